package actions

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldScope/internal/model"
	"yieldScope/internal/simerr"
	"yieldScope/internal/txb"
)

func assertNear(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	w := decimal.RequireFromString(want)
	assert.True(t, got.Sub(w).Abs().LessThan(decimal.New(1, -9)), "want %s got %s", want, got)
}

func heldPosition(pt, yt uint64) model.PyPosition {
	return model.PyPosition{
		ID:         "0xaa01",
		PoolID:     "pool-1",
		MaturityMs: testPool().MaturityMs,
		PtBalance:  units(pt),
		YtBalance:  units(yt),
	}
}

func TestPreviewMint(t *testing.T) {
	ledger := newFakeLedger()
	ledger.returns[txb.MintPrincipalAndYield.Name] = 990_000
	eng, exec := newTestEngine(t, ledger)

	res, err := eng.PreviewMint(context.Background(), MintRequest{PoolID: "pool-1", Amount: units(1_000_000)})
	require.NoError(t, err)
	assert.Equal(t, "0.990000", res.Value.PtOut.String())
	assert.Equal(t, res.Value.PtOut.String(), res.Value.YtOut.String())
	assert.True(t, res.Value.PositionCreated)
	assert.Equal(t, int64(1), exec.Calls())
	assert.Equal(t, 1, res.Value.Intent.Count(txb.DepositForWrapper.Name))
}

func TestPreviewRemoveLiquidity(t *testing.T) {
	ledger := newFakeLedger()
	maturity := testPool().MaturityMs
	ledger.lps = []model.LPPosition{
		{ID: "0xb1", MaturityMs: maturity, LpAmount: units(10_000_000), UnclaimedRewards: []string{"0x2::rwd::RWD"}},
		{ID: "0xb2", MaturityMs: maturity, LpAmount: units(5_000_000)},
		{ID: "0xb3", MaturityMs: maturity + 1, LpAmount: units(7_000_000)},
	}
	ledger.emit(txb.BurnLP, txb.EventLiquidityBurned, map[string]string{"sy_out": "12000000", "pt_out": "3000000"})
	eng, exec := newTestEngine(t, ledger)

	res, err := eng.PreviewRemoveLiquidity(context.Background(), RemoveRequest{PoolID: "pool-1", SlippagePct: pct("1")})
	require.NoError(t, err)
	p := res.Value
	assert.Equal(t, int64(1), exec.Calls())
	assert.Equal(t, "15.000000", p.LpIn.String())
	assert.Equal(t, "12.000000", p.SyOut.String())
	assert.Equal(t, "11.880000", p.MinSyOut.String())
	assert.Equal(t, "3.000000", p.PtOut.String())
	assert.Equal(t, 1, p.PositionsJoined)
	assert.Equal(t, []string{"0x2::rwd::RWD"}, p.RewardsClaimed)

	in := p.Intent
	assert.Equal(t, uint64(15_000_000), pureU64(t, in, txb.BurnLP, 1))
	assert.Equal(t, uint64(11_880_000), pureU64(t, in, txb.BurnLP, 2))
	claim := in.Find(txb.ClaimReward.Name)
	join := in.Find(txb.JoinLPPositions.Name)
	burn := in.Find(txb.BurnLP.Name)
	assert.Less(t, claim, join)
	assert.Less(t, join, burn)
	assert.Equal(t, []string{"0xabc::sy::SY", "0x2::rwd::RWD"}, in.Commands[claim].TypeArgs)
	assert.Equal(t, "0xb1", in.Commands[burn].Args[8].Object)
}

func TestPreviewRemoveToUnderlying(t *testing.T) {
	ledger := newFakeLedger()
	ledger.py = []model.PyPosition{heldPosition(0, 0)}
	ledger.lps = []model.LPPosition{{ID: "0xb1", MaturityMs: testPool().MaturityMs, LpAmount: units(10_000_000)}}
	ledger.emit(txb.BurnLP, txb.EventLiquidityBurned, map[string]string{"sy_out": "1000000", "pt_out": "0"})
	eng, _ := newTestEngine(t, ledger)

	res, err := eng.PreviewRemoveLiquidity(context.Background(), RemoveRequest{
		PoolID: "pool-1", LpAmount: units(4_000_000), SlippagePct: pct("0.5"), ToUnderlying: true,
	})
	require.NoError(t, err)
	in := res.Value.Intent
	assert.Equal(t, 1, in.Count(txb.RedeemWrapper.Name))
	assert.Equal(t, 0, in.Count(txb.ClaimReward.Name))
	assert.Equal(t, 0, in.Count(txb.JoinLPPositions.Name))
	assert.Equal(t, 0, in.Count(txb.PositionInit.Name))
	assert.Equal(t, uint64(4_000_000), pureU64(t, in, txb.BurnLP, 1))
}

func TestPreviewRemoveRejects(t *testing.T) {
	ledger := newFakeLedger()
	eng, _ := newTestEngine(t, ledger)
	ctx := context.Background()

	_, err := eng.PreviewRemoveLiquidity(ctx, RemoveRequest{PoolID: "pool-1", SlippagePct: pct("1")})
	assert.True(t, errors.Is(err, ErrNoPosition))

	ledger.lps = []model.LPPosition{{ID: "0xb1", MaturityMs: testPool().MaturityMs, LpAmount: units(1_000_000)}}
	_, err = eng.PreviewRemoveLiquidity(ctx, RemoveRequest{PoolID: "pool-1", LpAmount: units(2_000_000), SlippagePct: pct("1")})
	var inputErr *simerr.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "lp_amount", inputErr.Field)
}

func TestPreviewRedeemClaimsInterestFirst(t *testing.T) {
	ledger := newFakeLedger()
	pos := heldPosition(10_000_000, 10_000_000)
	pos.UnclaimedInterest = true
	ledger.py = []model.PyPosition{pos}
	ledger.emit(txb.RedeemPrincipalAndYield, txb.EventPyRedeemed, map[string]string{"sy_out": "9500000"})
	eng, _ := newTestEngine(t, ledger)

	res, err := eng.PreviewRedeem(context.Background(), RedeemRequest{
		PoolID: "pool-1", PtAmount: units(5_000_000), YtAmount: units(5_000_000),
		SlippagePct: pct("1"), ToUnderlying: true,
	})
	require.NoError(t, err)
	p := res.Value
	assert.True(t, p.InterestClaimed)
	assert.Equal(t, "9.500000", p.SyOut.String())
	assert.Equal(t, "9.500000", p.UnderlyingOut.String())
	assert.Equal(t, "9.405000", p.MinOut.String())
	in := p.Intent
	assert.Less(t, in.Find(txb.ClaimInterest.Name), in.Find(txb.RedeemPrincipalAndYield.Name))
	assert.Equal(t, uint64(5_000_000), pureU64(t, in, txb.RedeemPrincipalAndYield, 1))
	assert.Equal(t, uint64(9_405_000), pureU64(t, in, txb.RedeemWrapper, 2))
}

func TestPreviewRedeemBeforeMaturityNeedsEqualAmounts(t *testing.T) {
	ledger := newFakeLedger()
	ledger.py = []model.PyPosition{heldPosition(10_000_000, 10_000_000)}
	eng, exec := newTestEngine(t, ledger)
	ctx := context.Background()

	_, err := eng.PreviewRedeem(ctx, RedeemRequest{PoolID: "pool-1", PtAmount: units(5_000_000), YtAmount: units(4_000_000), SlippagePct: pct("1")})
	assert.True(t, errors.Is(err, ErrNotMatured))

	_, err = eng.PreviewRedeem(ctx, RedeemRequest{PoolID: "pool-1", PtAmount: units(20_000_000), YtAmount: units(20_000_000), SlippagePct: pct("1")})
	var inputErr *simerr.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "pt_amount", inputErr.Field)
	assert.Equal(t, int64(0), exec.Calls())
}

func TestPreviewSwapBuyPT(t *testing.T) {
	ledger := newFakeLedger()
	ledger.returns[txb.SwapExactInForPrincipal.Name] = 1_100_000
	ledger.rates[txb.PtOutForExactWrapperIn.Name] = pct("1.2")
	eng, exec := newTestEngine(t, ledger)

	res, err := eng.PreviewSwap(context.Background(), SwapRequest{
		PoolID: "pool-1", Side: BuyPT, Amount: units(1_000_000), SlippagePct: pct("1"),
	})
	require.NoError(t, err)
	p := res.Value
	assert.Equal(t, int64(2), exec.Calls())
	assert.Equal(t, "1.100000", p.AmountOut.String())
	assert.Equal(t, "1.089000", p.MinOut.String())
	assert.Equal(t, uint64(1_089_000), pureU64(t, p.Intent, txb.SwapExactInForPrincipal, 1))
	assertNear(t, "1.1", p.ExecRate)
	assertNear(t, "1.2", p.SpotRate)
	assertNear(t, "0.0833333333", p.PriceImpact)
	assert.True(t, p.PositionCreated)
}

func TestPreviewSwapSellYT(t *testing.T) {
	ledger := newFakeLedger()
	ledger.py = []model.PyPosition{heldPosition(0, 10_000_000)}
	ledger.emit(txb.SwapExactYieldForWrapper, txb.EventSwapped, map[string]string{"sy_out": "400000"})
	ledger.rates[txb.YtOutForExactWrapperIn.Name] = pct("20")
	eng, _ := newTestEngine(t, ledger)

	res, err := eng.PreviewSwap(context.Background(), SwapRequest{
		PoolID: "pool-1", Side: SellYT, Amount: units(10_000_000), SlippagePct: pct("0.5"), ToUnderlying: true,
	})
	require.NoError(t, err)
	p := res.Value
	assert.Equal(t, "0.400000", p.AmountOut.String())
	assert.Equal(t, uint64(398_000), pureU64(t, p.Intent, txb.SwapExactYieldForWrapper, 2))
	assert.Equal(t, 1, p.Intent.Count(txb.RedeemWrapper.Name))
	assertNear(t, "0.04", p.ExecRate)
	assertNear(t, "0.05", p.SpotRate)
	assertNear(t, "0.2", p.PriceImpact)
	assert.False(t, p.PositionCreated)
}

func TestPreviewSwapWithoutSpotRate(t *testing.T) {
	ledger := newFakeLedger()
	ledger.returns[txb.SwapExactInForYield.Name] = 5_000_000
	eng, _ := newTestEngine(t, ledger)

	res, err := eng.PreviewSwap(context.Background(), SwapRequest{
		PoolID: "pool-1", Side: BuyYT, Amount: units(1_000_000), SlippagePct: pct("1"),
	})
	require.NoError(t, err)
	assert.True(t, res.Value.SpotRate.IsZero())
	assert.True(t, res.Value.PriceImpact.IsZero())
	require.NotEmpty(t, res.Diagnostics.Notes)
	assert.Contains(t, res.Diagnostics.Notes[0], "Unable to price this pool.")
}

func TestPreviewSwapRejects(t *testing.T) {
	ledger := newFakeLedger()
	eng, exec := newTestEngine(t, ledger)
	ctx := context.Background()

	_, err := eng.PreviewSwap(ctx, SwapRequest{PoolID: "pool-1", Side: SellPT, Amount: units(1), SlippagePct: pct("1")})
	assert.True(t, errors.Is(err, ErrNoPosition))

	ledger.py = []model.PyPosition{heldPosition(1_000_000, 0)}
	_, err = eng.PreviewSwap(ctx, SwapRequest{PoolID: "pool-1", Side: SellPT, Amount: units(2_000_000), SlippagePct: pct("1")})
	var inputErr *simerr.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "amount", inputErr.Field)

	_, err = eng.PreviewSwap(ctx, SwapRequest{PoolID: "pool-1", Side: "hold", Amount: units(1), SlippagePct: pct("1")})
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "side", inputErr.Field)
	assert.Equal(t, int64(0), exec.Calls())
}

func TestSubmitSignsAndInvalidates(t *testing.T) {
	ledger := newFakeLedger()
	ledger.returns[txb.MintPrincipalAndYield.Name] = 990_000
	eng, _ := newTestEngine(t, ledger)
	ctx := context.Background()

	res, err := eng.PreviewMint(ctx, MintRequest{PoolID: "pool-1", Amount: units(1_000_000)})
	require.NoError(t, err)

	eng.cache.Put("pool-1", model.PoolMetrics{PoolID: "pool-1"})
	digest, err := eng.Submit(ctx, "pool-1", res.Value.Intent, fakeSigner{})
	require.NoError(t, err)
	assert.Equal(t, "0xd1", digest)
	assert.Equal(t, "sig", ledger.signature)
	require.Len(t, ledger.submitted, 1)
	want, err := res.Value.Intent.Bytes()
	require.NoError(t, err)
	assert.Equal(t, want, ledger.submitted[0])
	_, ok := eng.cache.Get("pool-1")
	assert.False(t, ok)
}

func TestSubmitFailures(t *testing.T) {
	ledger := newFakeLedger()
	ledger.returns[txb.MintPrincipalAndYield.Name] = 990_000
	eng, _ := newTestEngine(t, ledger)
	ctx := context.Background()
	res, err := eng.PreviewMint(ctx, MintRequest{PoolID: "pool-1", Amount: units(1_000_000)})
	require.NoError(t, err)
	intent := res.Value.Intent

	_, err = eng.Submit(ctx, "pool-1", intent, nil)
	assert.True(t, errors.Is(err, ErrNoSigner))

	_, err = eng.Submit(ctx, "pool-1", intent, fakeSigner{err: errSign})
	assert.True(t, errors.Is(err, errSign))
	assert.Empty(t, ledger.submitted)

	eng.cache.Put("pool-1", model.PoolMetrics{PoolID: "pool-1"})
	ledger.submitErr = errors.New("rejected")
	_, err = eng.Submit(ctx, "pool-1", intent, fakeSigner{})
	assert.Error(t, err)
	_, ok := eng.cache.Get("pool-1")
	assert.False(t, ok, "a failed submit still invalidates")
}

func TestMetricsAreCached(t *testing.T) {
	ledger := newFakeLedger()
	ledger.rates[txb.YtOutForExactWrapperIn.Name] = pct("20")
	eng, exec := newTestEngine(t, ledger)
	quote := model.MarketQuote{UnderlyingPrice: decimal.NewFromInt(2), UnderlyingApy: pct("0.05")}
	ctx := context.Background()

	first, err := eng.Metrics(ctx, "pool-1", quote)
	require.NoError(t, err)
	second, err := eng.Metrics(ctx, "pool-1", quote)
	require.NoError(t, err)
	assert.Equal(t, int64(1), exec.Calls())
	assert.True(t, first.PtPrice.Equal(second.PtPrice))
	assert.Equal(t, model.PriceSourceYT, first.PriceSource)
}
