package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"yieldScope/internal/amount"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// PoolDescriptor holds the static identifiers of one market.
type PoolDescriptor struct {
	ID              string      `json:"id" mapstructure:"id"`
	Name            string      `json:"name" mapstructure:"name"`
	PackageID       string      `json:"package_id" mapstructure:"package_id"`
	OraclePackageID string      `json:"oracle_package_id" mapstructure:"oracle_package_id"`
	Objects         PoolObjects `json:"objects" mapstructure:"objects"`
	Types           PoolTypes   `json:"types" mapstructure:"types"`
	Decimals        uint8       `json:"decimals" mapstructure:"decimals"`
	MaturityMs      int64       `json:"maturity_ms" mapstructure:"maturity_ms"`
}

// PoolObjects lists the shared ledger objects a pool's calls touch.
type PoolObjects struct {
	Version             string `json:"version" mapstructure:"version"`
	PyState             string `json:"py_state" mapstructure:"py_state"`
	MarketState         string `json:"market_state" mapstructure:"market_state"`
	MarketFactoryConfig string `json:"market_factory_config" mapstructure:"market_factory_config"`
	YieldFactoryConfig  string `json:"yield_factory_config" mapstructure:"yield_factory_config"`
	SyState             string `json:"sy_state" mapstructure:"sy_state"`
	OracleConfig        string `json:"oracle_config" mapstructure:"oracle_config"`
	OracleFeed          string `json:"oracle_feed" mapstructure:"oracle_feed"`
	Clock               string `json:"clock" mapstructure:"clock"`
}

// PoolTypes holds the type tags used as call type arguments.
type PoolTypes struct {
	Underlying   string   `json:"underlying" mapstructure:"underlying"`
	SY           string   `json:"sy" mapstructure:"sy"`
	PT           string   `json:"pt" mapstructure:"pt"`
	YT           string   `json:"yt" mapstructure:"yt"`
	PyPosition   string   `json:"py_position" mapstructure:"py_position"`
	LpPosition   string   `json:"lp_position" mapstructure:"lp_position"`
	RewardTokens []string `json:"reward_tokens" mapstructure:"reward_tokens"`
}

// Validate checks the descriptor has every identifier calls need.
func (p PoolDescriptor) Validate() error {
	missing := make([]string, 0)
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("id", p.ID)
	check("package_id", p.PackageID)
	check("oracle_package_id", p.OraclePackageID)
	check("objects.version", p.Objects.Version)
	check("objects.py_state", p.Objects.PyState)
	check("objects.market_state", p.Objects.MarketState)
	check("objects.market_factory_config", p.Objects.MarketFactoryConfig)
	check("objects.yield_factory_config", p.Objects.YieldFactoryConfig)
	check("objects.sy_state", p.Objects.SyState)
	check("objects.oracle_config", p.Objects.OracleConfig)
	check("objects.oracle_feed", p.Objects.OracleFeed)
	check("types.underlying", p.Types.Underlying)
	check("types.sy", p.Types.SY)
	if len(missing) > 0 {
		return fmt.Errorf("pool %q missing %s", p.ID, strings.Join(missing, ", "))
	}
	if p.MaturityMs <= 0 {
		return fmt.Errorf("pool %q maturity must be set", p.ID)
	}
	if p.Decimals > amount.MaxDecimals {
		return fmt.Errorf("pool %q decimals %d out of range", p.ID, p.Decimals)
	}
	return nil
}

// ClockID returns the clock object, defaulting to the system clock.
func (p PoolDescriptor) ClockID() string {
	if p.Objects.Clock == "" {
		return "0x6"
	}
	return p.Objects.Clock
}

func (p PoolDescriptor) Maturity() time.Time {
	return time.UnixMilli(p.MaturityMs).UTC()
}

// Expired reports whether the pool has reached maturity.
func (p PoolDescriptor) Expired(now time.Time) bool {
	return now.UnixMilli() >= p.MaturityMs
}

// DaysToExpiry returns the fractional number of days until maturity.
func (p PoolDescriptor) DaysToExpiry(now time.Time) decimal.Decimal {
	remaining := p.MaturityMs - now.UnixMilli()
	return decimal.NewFromInt(remaining).Div(decimal.NewFromInt(msPerDay))
}

// PoolState holds the on-ledger aggregates of a pool, read fresh before use.
type PoolState struct {
	PoolID        string          `json:"pool_id"`
	TotalSy       amount.Quantity `json:"total_sy"`
	TotalPt       amount.Quantity `json:"total_pt"`
	LpSupply      amount.Quantity `json:"lp_supply"`
	Capacity      amount.Quantity `json:"capacity"`
	LpFeesAccrued amount.Quantity `json:"lp_fees_accrued"`
	PyIndex       amount.Quantity `json:"py_index"`
	Rewards       []RewardStream  `json:"rewards"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// HasLiquidity reports whether the pool has been seeded.
func (s PoolState) HasLiquidity() bool {
	return s.LpSupply.Sign() > 0
}

// ExchangeRate returns the SY to asset rate, treating an unset index as 1.
func (s PoolState) ExchangeRate() decimal.Decimal {
	if s.PyIndex.Sign() <= 0 {
		return decimal.NewFromInt(1)
	}
	return s.PyIndex.Value()
}

// RewardStream is one active incentive emission of a pool.
type RewardStream struct {
	TokenType         string          `json:"token_type"`
	EmissionPerSecond amount.Quantity `json:"emission_per_second"`
	StartMs           int64           `json:"start_ms"`
	EndMs             int64           `json:"end_ms"`
}

// Active reports whether the stream emits at now.
func (r RewardStream) Active(now time.Time) bool {
	ms := now.UnixMilli()
	return ms >= r.StartMs && ms < r.EndMs && r.EmissionPerSecond.Sign() > 0
}

// DailyEmission returns the tokens emitted per day.
func (r RewardStream) DailyEmission() decimal.Decimal {
	return r.EmissionPerSecond.Value().Mul(decimal.NewFromInt(86400))
}
