package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PriceSourceYT   = "yt_out"
	PriceSourcePT   = "pt_out"
	PriceSourceNone = "unavailable"
)

// PoolMetrics stores derived financial metrics for a pool. Prices are in the
// quote currency of the underlying price; APYs are fractions (0.05 = 5%).
type PoolMetrics struct {
	PoolID              string          `json:"pool_id"`
	PtPrice             decimal.Decimal `json:"pt_price"`
	YtPrice             decimal.Decimal `json:"yt_price"`
	PtPriceInAsset      decimal.Decimal `json:"pt_price_in_asset"`
	YtPriceInAsset      decimal.Decimal `json:"yt_price_in_asset"`
	PtApy               decimal.Decimal `json:"pt_apy"`
	YtApy               decimal.Decimal `json:"yt_apy"`
	ScaledUnderlyingApy decimal.Decimal `json:"scaled_underlying_apy"`
	ScaledPtApy         decimal.Decimal `json:"scaled_pt_apy"`
	SwapFeeApy          decimal.Decimal `json:"swap_fee_apy"`
	IncentiveApy        decimal.Decimal `json:"incentive_apy"`
	PoolApy             decimal.Decimal `json:"pool_apy"`
	Tvl                 decimal.Decimal `json:"tvl"`
	LpPrice             decimal.Decimal `json:"lp_price"`
	PriceSource         string          `json:"price_source"`
	Divergence          *string         `json:"divergence,omitempty"`
	ComputedAt          time.Time       `json:"computed_at"`
}

// ZeroMetrics is the fixed result for pools without liquidity.
func ZeroMetrics(poolID string, now time.Time) PoolMetrics {
	return PoolMetrics{
		PoolID:      poolID,
		PriceSource: PriceSourceNone,
		ComputedAt:  now.UTC(),
	}
}

// IsZero reports whether every metric is zero.
func (m PoolMetrics) IsZero() bool {
	for _, v := range []decimal.Decimal{
		m.PtPrice, m.YtPrice, m.PtApy, m.YtApy, m.ScaledUnderlyingApy, m.ScaledPtApy,
		m.SwapFeeApy, m.IncentiveApy, m.PoolApy, m.Tvl, m.LpPrice,
	} {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

// MarketQuote is external market data a pool's metrics depend on.
type MarketQuote struct {
	UnderlyingPrice decimal.Decimal            `json:"underlying_price" mapstructure:"underlying_price"`
	UnderlyingApy   decimal.Decimal            `json:"underlying_apy" mapstructure:"underlying_apy"`
	RewardPrices    map[string]decimal.Decimal `json:"reward_prices" mapstructure:"reward_prices"`
}
