// Package metrics derives prices, APYs, TVL and price impact from pool state
// and simulated exchange rates.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/model"
	"yieldScope/internal/simulate"
)

// DefaultDivergence is the relative PT price gap the cross-check reports.
var DefaultDivergence = decimal.RequireFromString("0.01")

type Options struct {
	// CrossCheck also prices through the PT path when the YT path succeeds.
	CrossCheck bool
	Divergence decimal.Decimal
	Logger     *zap.Logger
	Now        func() time.Time
}

// Calculator computes PoolMetrics.
type Calculator struct {
	pricer     *Pricer
	crossCheck bool
	divergence decimal.Decimal
	logger     *zap.Logger
	now        func() time.Time
}

func NewCalculator(pricer *Pricer, opts Options) *Calculator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	divergence := opts.Divergence
	if !divergence.IsPositive() {
		divergence = DefaultDivergence
	}
	return &Calculator{
		pricer:     pricer,
		crossCheck: opts.CrossCheck,
		divergence: divergence,
		logger:     logger,
		now:        now,
	}
}

// AssetPrices are PT and YT prices in units of the underlying asset.
type AssetPrices struct {
	PT     decimal.Decimal
	YT     decimal.Decimal
	Source string
}

// Compute prices pool and derives its metrics. Pools without liquidity
// return zero metrics without simulating.
func (c *Calculator) Compute(ctx context.Context, pool model.PoolDescriptor, state model.PoolState, quote model.MarketQuote) (simulate.Result[model.PoolMetrics], error) {
	var res simulate.Result[model.PoolMetrics]
	now := c.now()
	if !priceable(state, quote) {
		res.Value = model.ZeroMetrics(pool.ID, now)
		res.Diagnostics.Note("pool has no liquidity or no underlying price")
		return res, nil
	}

	prices, err := c.Prices(ctx, pool, state, &res.Diagnostics)
	if err != nil {
		return res, fmt.Errorf("compute metrics %s: %w", pool.ID, err)
	}

	if c.crossCheck && prices.Source == model.PriceSourceYT {
		c.compare(ctx, pool, state, prices, &res)
	}

	m, notes := Derive(pool, state, quote, prices, now)
	for _, n := range notes {
		res.Diagnostics.Note(n)
	}
	if res.Value.Divergence != nil {
		m.Divergence = res.Value.Divergence
	}
	res.Value = m
	return res, nil
}

func priceable(state model.PoolState, quote model.MarketQuote) bool {
	if !state.HasLiquidity() || !quote.UnderlyingPrice.IsPositive() {
		return false
	}
	return !state.TotalSy.Value().Add(state.TotalPt.Value()).IsZero()
}

// Prices discovers PT/YT prices in asset terms. The YT-out path is primary;
// the PT-out path is tried whenever it fails.
func (c *Calculator) Prices(ctx context.Context, pool model.PoolDescriptor, state model.PoolState, diag *simulate.Diagnostics) (AssetPrices, error) {
	prices, primaryErr := c.fromYT(ctx, pool, state, diag)
	if primaryErr == nil {
		return prices, nil
	}
	if ctx.Err() != nil {
		return AssetPrices{}, primaryErr
	}
	c.logger.Warn("yt price path failed, falling back to pt",
		zap.String("pool", pool.ID),
		zap.Error(primaryErr),
	)
	prices, fallbackErr := c.fromPT(ctx, pool, state, diag)
	if fallbackErr == nil {
		if diag != nil {
			diag.Note("priced through pt fallback")
		}
		return prices, nil
	}
	return AssetPrices{}, fmt.Errorf("price discovery: %w", errors.Join(primaryErr, fallbackErr))
}

func (c *Calculator) fromYT(ctx context.Context, pool model.PoolDescriptor, state model.PoolState, diag *simulate.Diagnostics) (AssetPrices, error) {
	rate, err := c.pricer.Rate(ctx, pool, RateYtPerSy, diag)
	if err != nil {
		return AssetPrices{}, err
	}
	yt := state.ExchangeRate().Div(rate.Value)
	return checkPrices(AssetPrices{PT: one.Sub(yt), YT: yt, Source: model.PriceSourceYT})
}

func (c *Calculator) fromPT(ctx context.Context, pool model.PoolDescriptor, state model.PoolState, diag *simulate.Diagnostics) (AssetPrices, error) {
	rate, err := c.pricer.Rate(ctx, pool, RatePtPerSy, diag)
	if err != nil {
		return AssetPrices{}, err
	}
	pt := state.ExchangeRate().Div(rate.Value)
	return checkPrices(AssetPrices{PT: pt, YT: one.Sub(pt), Source: model.PriceSourcePT})
}

func checkPrices(p AssetPrices) (AssetPrices, error) {
	if !p.PT.IsPositive() || p.PT.GreaterThan(one) {
		return AssetPrices{}, fmt.Errorf("implausible pt price %s from %s", p.PT, p.Source)
	}
	return p, nil
}

// compare runs the PT path and records a divergence beyond the threshold.
// The YT-derived prices stay authoritative.
func (c *Calculator) compare(ctx context.Context, pool model.PoolDescriptor, state model.PoolState, primary AssetPrices, res *simulate.Result[model.PoolMetrics]) {
	other, err := c.fromPT(ctx, pool, state, &res.Diagnostics)
	if err != nil {
		c.logger.Debug("pt cross-check failed", zap.String("pool", pool.ID), zap.Error(err))
		return
	}
	gap := primary.PT.Sub(other.PT).Abs().Div(primary.PT)
	if gap.LessThanOrEqual(c.divergence) {
		return
	}
	msg := fmt.Sprintf("pt price %s (yt path) vs %s (pt path), gap %s", primary.PT.StringFixed(6), other.PT.StringFixed(6), gap.StringFixed(4))
	c.logger.Warn("price paths diverge", zap.String("pool", pool.ID), zap.String("detail", msg))
	res.Value.Divergence = &msg
	res.Diagnostics.Note(msg)
}

// Derive computes every metric from state and asset prices. It never
// divides by zero: a zero TVL or empty pool yields zero metrics.
func Derive(pool model.PoolDescriptor, state model.PoolState, quote model.MarketQuote, prices AssetPrices, now time.Time) (model.PoolMetrics, []string) {
	var notes []string
	totalSy := state.TotalSy.Value()
	totalPt := state.TotalPt.Value()
	up := quote.UnderlyingPrice

	syPrice := up.Mul(state.ExchangeRate())
	ptPrice := prices.PT.Mul(up)
	ytPrice := prices.YT.Mul(up)
	tvl := totalSy.Mul(syPrice).Add(totalPt.Mul(ptPrice))

	ratioSy, ok := safeDiv(totalSy, totalSy.Add(totalPt))
	lpPrice, ok2 := safeDiv(tvl, state.LpSupply.Value())
	if !ok || !ok2 || !tvl.IsPositive() {
		return model.ZeroMetrics(pool.ID, now), []string{"zero denominator"}
	}
	ratioPt := one.Sub(ratioSy)

	days := pool.DaysToExpiry(now)
	var ptApy, ytApy, swapFeeApy decimal.Decimal
	if days.IsPositive() {
		yearsLeft := days.Div(daysPerYear)
		periods := daysPerYear.Div(days)

		if v, err := compound(one.Div(prices.PT).Sub(one), periods); err == nil {
			ptApy = v
		} else {
			notes = append(notes, "pt apy: "+err.Error())
		}

		// Return held to maturity; not annualized.
		if prices.YT.IsPositive() {
			if growth, err := compound(quote.UnderlyingApy, yearsLeft); err == nil {
				ytApy = growth.Mul(ytFeeFactor).Div(prices.YT).Sub(one)
			} else {
				notes = append(notes, "yt apy: "+err.Error())
			}
		}

		feeRate := state.LpFeesAccrued.Value().Mul(syPrice).Div(tvl)
		if v, err := compound(feeRate, periods); err == nil {
			swapFeeApy = v
		} else {
			notes = append(notes, "swap fee apy: "+err.Error())
		}
	}

	incentiveApy := decimal.Zero
	for _, stream := range state.Rewards {
		if !stream.Active(now) {
			continue
		}
		price, ok := quote.RewardPrices[stream.TokenType]
		if !ok || !price.IsPositive() {
			notes = append(notes, "no price for reward "+stream.TokenType)
			continue
		}
		daily := stream.DailyEmission().Mul(price)
		v, err := compound(daily.Div(tvl), daysPerYear)
		if err != nil {
			notes = append(notes, "incentive apy: "+err.Error())
			continue
		}
		incentiveApy = incentiveApy.Add(v)
	}

	scaledUnderlying := quote.UnderlyingApy.Mul(ratioSy)
	scaledPt := ptApy.Mul(ratioPt)

	return model.PoolMetrics{
		PoolID:              pool.ID,
		PtPrice:             ptPrice,
		YtPrice:             ytPrice,
		PtPriceInAsset:      prices.PT,
		YtPriceInAsset:      prices.YT,
		PtApy:               ptApy,
		YtApy:               ytApy,
		ScaledUnderlyingApy: scaledUnderlying,
		ScaledPtApy:         scaledPt,
		SwapFeeApy:          swapFeeApy,
		IncentiveApy:        incentiveApy,
		PoolApy:             scaledUnderlying.Add(scaledPt).Add(swapFeeApy).Add(incentiveApy),
		Tvl:                 tvl,
		LpPrice:             lpPrice,
		PriceSource:         prices.Source,
		ComputedAt:          now.UTC(),
	}, notes
}
