package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldScope/internal/amount"
	"yieldScope/internal/chain"
	"yieldScope/internal/codec"
	"yieldScope/internal/model"
	"yieldScope/internal/probe"
	"yieldScope/internal/simerr"
	"yieldScope/internal/simulate"
	"yieldScope/internal/txb"
	"yieldScope/internal/voucher"
)

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// viewLedger answers rate views with fixed out-per-in rates. A missing
// rate aborts the simulation.
type viewLedger struct {
	rates map[string]decimal.Decimal
	calls int
}

func (v *viewLedger) Simulate(ctx context.Context, intent *txb.Intent) (*chain.SimulateResponse, error) {
	v.calls++
	resp := &chain.SimulateResponse{Results: make([]chain.StepResult, len(intent.Commands))}
	for i, cmd := range intent.Commands {
		rate, ok := v.rates[cmd.Entry.Name]
		if cmd.Kind != txb.CommandMoveCall || cmd.Entry.Module == "oracle" {
			continue
		}
		if !ok {
			resp.Error = "MoveAbort: " + cmd.Entry.Function
			return resp, nil
		}
		in, err := codec.DecodeU64(cmd.Args[1].Pure)
		if err != nil {
			return nil, err
		}
		out := rate.Mul(decimal.NewFromInt(int64(in))).Floor().IntPart()
		resp.Results[i] = chain.StepResult{ReturnValues: []chain.ReturnValue{{Bytes: codec.EncodeU64(uint64(out)), Type: "u64"}}}
	}
	return resp, nil
}

func testPool() model.PoolDescriptor {
	return model.PoolDescriptor{
		ID:              "pool-1",
		PackageID:       "0xabc",
		OraclePackageID: "0xfeed",
		Decimals:        6,
		MaturityMs:      testNow.Add(365 * 24 * time.Hour).UnixMilli(),
		Objects: model.PoolObjects{
			Version: "0x1", PyState: "0x2", MarketState: "0x3", MarketFactoryConfig: "0x4",
			YieldFactoryConfig: "0x5", SyState: "0x7", OracleConfig: "0x8", OracleFeed: "0x9",
		},
		Types: model.PoolTypes{Underlying: "0x2::usd::USD", SY: "0xabc::sy::SY"},
	}
}

func testState() model.PoolState {
	return model.PoolState{
		PoolID:        "pool-1",
		TotalSy:       amount.FromUint64(1_000_000_000_000, 6),
		TotalPt:       amount.FromUint64(500_000_000_000, 6),
		LpSupply:      amount.FromUint64(900_000_000_000, 6),
		LpFeesAccrued: amount.Zero(6),
	}
}

func testQuote() model.MarketQuote {
	return model.MarketQuote{UnderlyingPrice: decimal.NewFromInt(2), UnderlyingApy: decimal.RequireFromString("0.05")}
}

func newCalc(ledger *viewLedger, crossCheck bool) (*Calculator, *simulate.Executor) {
	exec := simulate.NewExecutor(ledger, simulate.Options{})
	pricer := NewPricer(exec, voucher.OracleProvider{}, probe.NewMemos(), PricerOptions{Sender: "0x1"})
	return NewCalculator(pricer, Options{CrossCheck: crossCheck, Now: func() time.Time { return testNow }}), exec
}

func near(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	w := decimal.RequireFromString(want)
	assert.True(t, got.Sub(w).Abs().LessThan(decimal.New(1, -9)), "want %s got %s", want, got)
}

func TestComputeZeroLiquidityIssuesNoSimulation(t *testing.T) {
	ledger := &viewLedger{}
	calc, exec := newCalc(ledger, true)
	state := testState()
	state.LpSupply = amount.Zero(6)

	res, err := calc.Compute(context.Background(), testPool(), state, testQuote())
	require.NoError(t, err)
	assert.True(t, res.Value.IsZero())
	assert.Equal(t, model.PriceSourceNone, res.Value.PriceSource)
	assert.Equal(t, int64(0), exec.Calls())
	assert.Equal(t, 0, ledger.calls)
}

func TestComputeFromYTPath(t *testing.T) {
	ledger := &viewLedger{rates: map[string]decimal.Decimal{
		txb.YtOutForExactWrapperIn.Name: decimal.NewFromInt(20),
	}}
	calc, exec := newCalc(ledger, false)

	res, err := calc.Compute(context.Background(), testPool(), testState(), testQuote())
	require.NoError(t, err)
	m := res.Value
	assert.Equal(t, model.PriceSourceYT, m.PriceSource)
	near(t, "0.95", m.PtPriceInAsset)
	near(t, "0.05", m.YtPriceInAsset)
	near(t, "1.9", m.PtPrice)
	near(t, "0.0526315789", m.PtApy)
	// (1.05 - 1) * 0.95 / 0.05 - 1
	near(t, "-0.05", m.YtApy)
	near(t, "2950000", m.Tvl)
	near(t, "3.2777777778", m.LpPrice)
	near(t, "0.0333333333", m.ScaledUnderlyingApy)
	near(t, "0.0175438596", m.ScaledPtApy)
	assert.Equal(t, int64(1), exec.Calls())
	assert.Equal(t, 1, res.Diagnostics.Simulations)
}

func TestComputeFallsBackToPTPath(t *testing.T) {
	ledger := &viewLedger{rates: map[string]decimal.Decimal{
		txb.PtOutForExactWrapperIn.Name: decimal.RequireFromString("1.25"),
	}}
	calc, exec := newCalc(ledger, false)

	res, err := calc.Compute(context.Background(), testPool(), testState(), testQuote())
	require.NoError(t, err)
	assert.Equal(t, model.PriceSourcePT, res.Value.PriceSource)
	near(t, "0.8", res.Value.PtPriceInAsset)
	near(t, "0.2", res.Value.YtPriceInAsset)
	assert.Equal(t, int64(len(probe.DefaultMagnitudes)+1), exec.Calls())
	assert.Contains(t, res.Diagnostics.Notes, "priced through pt fallback")
}

func TestComputeBothPathsFail(t *testing.T) {
	calc, _ := newCalc(&viewLedger{}, false)

	_, err := calc.Compute(context.Background(), testPool(), testState(), testQuote())
	var allErr *simerr.AllProbesFailedError
	require.ErrorAs(t, err, &allErr)
	assert.Equal(t, "Unable to price this pool.", simerr.UserMessage(err))
}

func TestComputeCrossCheckPrefersYT(t *testing.T) {
	ledger := &viewLedger{rates: map[string]decimal.Decimal{
		txb.YtOutForExactWrapperIn.Name: decimal.NewFromInt(20),
		txb.PtOutForExactWrapperIn.Name: decimal.RequireFromString("1.25"),
	}}
	calc, _ := newCalc(ledger, true)

	res, err := calc.Compute(context.Background(), testPool(), testState(), testQuote())
	require.NoError(t, err)
	assert.Equal(t, model.PriceSourceYT, res.Value.PriceSource)
	near(t, "0.95", res.Value.PtPriceInAsset)
	require.NotNil(t, res.Value.Divergence)
	assert.Contains(t, *res.Value.Divergence, "0.800000")
}

func TestDeriveAfterMaturity(t *testing.T) {
	pool := testPool()
	pool.MaturityMs = testNow.Add(-time.Hour).UnixMilli()
	prices := AssetPrices{PT: decimal.RequireFromString("0.99"), YT: decimal.RequireFromString("0.01"), Source: model.PriceSourceYT}

	m, _ := Derive(pool, testState(), testQuote(), prices, testNow)
	assert.True(t, m.PtApy.IsZero())
	assert.True(t, m.YtApy.IsZero())
	assert.True(t, m.SwapFeeApy.IsZero())
	assert.True(t, m.Tvl.IsPositive())
}

func TestDeriveFeesAndIncentives(t *testing.T) {
	state := testState()
	state.LpFeesAccrued = amount.FromUint64(29_500_000_000, 6)
	state.Rewards = []model.RewardStream{
		{
			TokenType:         "0x2::rwd::RWD",
			EmissionPerSecond: amount.FromDecimal(decimal.RequireFromString("0.1"), 6),
			StartMs:           testNow.Add(-time.Hour).UnixMilli(),
			EndMs:             testNow.Add(time.Hour).UnixMilli(),
		},
		{
			TokenType:         "0x2::old::OLD",
			EmissionPerSecond: amount.FromDecimal(decimal.NewFromInt(5), 6),
			StartMs:           0,
			EndMs:             testNow.Add(-time.Hour).UnixMilli(),
		},
	}
	quote := testQuote()
	quote.RewardPrices = map[string]decimal.Decimal{"0x2::rwd::RWD": decimal.NewFromInt(1)}
	prices := AssetPrices{PT: decimal.RequireFromString("0.95"), YT: decimal.RequireFromString("0.05"), Source: model.PriceSourceYT}

	m, notes := Derive(testPool(), state, quote, prices, testNow)
	assert.Empty(t, notes)
	// fees 29500 SY * 2 / tvl 2950000 = 2% over exactly one year
	near(t, "0.02", m.SwapFeeApy)
	// daily 8640 / 2950000, compounded 365 times
	assert.True(t, m.IncentiveApy.GreaterThan(decimal.RequireFromString("1.9")))
	assert.True(t, m.IncentiveApy.LessThan(decimal.RequireFromString("1.95")))
	sum := m.ScaledUnderlyingApy.Add(m.ScaledPtApy).Add(m.SwapFeeApy).Add(m.IncentiveApy)
	assert.True(t, sum.Equal(m.PoolApy))
}

func TestPriceImpact(t *testing.T) {
	near(t, "0.05", PriceImpact(decimal.RequireFromString("0.95"), decimal.NewFromInt(1)))
	assert.True(t, PriceImpact(decimal.NewFromInt(2), decimal.NewFromInt(1)).IsZero())
	assert.True(t, PriceImpact(decimal.NewFromInt(1), decimal.Zero).IsZero())
}

func TestPow(t *testing.T) {
	v, err := pow(decimal.RequireFromString("1.05"), decimal.NewFromInt(2))
	require.NoError(t, err)
	near(t, "1.1025", v)

	v, err = pow(decimal.NewFromInt(4), decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	near(t, "2", v)

	_, err = pow(decimal.Zero, decimal.NewFromInt(2))
	assert.ErrorIs(t, err, ErrPowDomain)
	_, err = pow(decimal.NewFromInt(10), decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrPowOverflow)
}

func TestDeriveYtApyIsHoldingPeriodReturn(t *testing.T) {
	pool := testPool()
	pool.MaturityMs = testNow.Add(4380 * time.Hour).UnixMilli()
	quote := testQuote()
	quote.UnderlyingApy = decimal.RequireFromString("0.21")
	prices := AssetPrices{PT: decimal.RequireFromString("0.95"), YT: decimal.RequireFromString("0.05"), Source: model.PriceSourceYT}

	m, _ := Derive(pool, testState(), quote, prices, testNow)
	// (1.21^0.5 - 1) * 0.95 / 0.05 - 1, not raised to 1/yearsLeft
	near(t, "0.9", m.YtApy)
}
