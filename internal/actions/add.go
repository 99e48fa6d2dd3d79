package actions

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/amount"
	"yieldScope/internal/metrics"
	"yieldScope/internal/simulate"
	"yieldScope/internal/txb"
)

// AddRequest deposits Amount of the underlying into the pool.
type AddRequest struct {
	PoolID      string
	Amount      amount.Quantity
	// Coins are the sender's underlying coins; empty splits the gas coin.
	Coins       []string
	SlippagePct decimal.Decimal
	PreferMint  bool
}

type AddPreview struct {
	Path            string          `json:"path"`
	LpOut           amount.Quantity `json:"lp_out"`
	MinLpOut        amount.Quantity `json:"min_lp_out"`
	// SyIn is the SY share swapped for PT (swap-and-add) or minted (mint).
	SyIn            amount.Quantity `json:"sy_in"`
	PositionCreated bool            `json:"position_created"`
	Intent          *txb.Intent     `json:"intent"`
}

// PreviewAddLiquidity simulates a deposit along the path chosen for the
// pool's depth and returns the intent bounded by the slippage tolerance.
func (e *Engine) PreviewAddLiquidity(ctx context.Context, req AddRequest) (simulate.Result[AddPreview], error) {
	var res simulate.Result[AddPreview]
	pool, err := e.pool(req.PoolID)
	if err != nil {
		return res, err
	}
	if err := validateAmount("amount", req.Amount); err != nil {
		return res, err
	}
	if err := validateTolerance(req.SlippagePct); err != nil {
		return res, err
	}
	if err := e.checkOpen(pool); err != nil {
		return res, err
	}
	pc, err := e.load(ctx, pool)
	if err != nil {
		return res, fmt.Errorf("preview add %s: %w", pool.ID, err)
	}

	deposit, err := req.Amount.Rescale(pool.Decimals)
	if err != nil {
		return res, err
	}
	syTotal := toSy(deposit, pc.state)
	path := SelectAddPath(pc.state.LpSupply.Value(), pc.state.TotalSy.Value(), syTotal.Value(), req.PreferMint)
	e.logger.Info("add liquidity path",
		zap.String("pool", pool.ID),
		zap.String("path", path.String()),
		zap.String("deposit", deposit.String()),
	)

	var (
		build   buildFunc
		syIn    amount.Quantity
		created bool
		event   string
	)
	switch path {
	case PathSeed:
		event = txb.EventLiquiditySeeded
		build = func(minLp *big.Int) (*txb.Intent, error) {
			s, err := e.newStepper(pool)
			if err != nil {
				return nil, err
			}
			var pos txb.Arg
			pos, created = s.position(pc.py)
			sy := s.depositSy(s.sourceCoin(req.Coins, deposit))
			o := pool.Objects
			seed := s.b.MoveCall(pool.PackageID, txb.SeedLiquidity, s.syType(),
				s.obj(o.Version), sy, txb.BigU64(minLp), s.voucher, pos, s.obj(o.PyState),
				s.obj(o.YieldFactoryConfig), s.obj(o.MarketFactoryConfig), s.obj(o.MarketState), s.clock())
			s.transfers = append(s.transfers, seed.Out("lp_position"))
			s.b.BindEvent("lp_amount", event, "lp_amount")
			return s.finish()
		}
	case PathMint:
		event = txb.EventLiquidityMinted
		rate, err := e.pricer.Rate(ctx, pool, metrics.RatePyPerSy, &res.Diagnostics)
		if err != nil {
			return res, fmt.Errorf("preview add %s: %w", pool.ID, err)
		}
		syIn = mintShare(syTotal, rate.Value, pc.state.TotalSy.Value(), pc.state.TotalPt.Value())
		build = func(minLp *big.Int) (*txb.Intent, error) {
			s, err := e.newStepper(pool)
			if err != nil {
				return nil, err
			}
			var pos txb.Arg
			pos, created = s.position(pc.py)
			sy := s.depositSy(s.sourceCoin(req.Coins, deposit))
			o := pool.Objects
			mintSy := s.b.SplitCoins(sy, txb.Amount(syIn)).Nth(0)
			mint := s.b.MoveCall(pool.PackageID, txb.MintPrincipalAndYield, s.syType(),
				s.obj(o.Version), mintSy, s.voucher, pos, s.obj(o.PyState), s.obj(o.YieldFactoryConfig), s.clock())
			lp := s.b.MoveCall(pool.PackageID, txb.MintLP, s.syType(),
				s.obj(o.Version), sy, mint.Out("pt_amount"), txb.BigU64(minLp), s.voucher, pos,
				s.obj(o.PyState), s.obj(o.MarketFactoryConfig), s.obj(o.MarketState), s.clock())
			s.b.BindReturn("pt_minted", mint, "pt_amount")
			s.transfers = append(s.transfers, lp.Out("lp_position"), lp.Out("sy_remainder"))
			s.b.BindEvent("lp_amount", event, "lp_amount")
			return s.finish()
		}
	default:
		event = txb.EventLiquidityAdded
		syIn = share(syTotal, pc.state.TotalPt.Value(), pc.state.TotalSy.Value().Add(pc.state.TotalPt.Value()))
		build = func(minLp *big.Int) (*txb.Intent, error) {
			s, err := e.newStepper(pool)
			if err != nil {
				return nil, err
			}
			var pos txb.Arg
			pos, created = s.position(pc.py)
			sy := s.depositSy(s.sourceCoin(req.Coins, deposit))
			o := pool.Objects
			view := s.b.MoveCall(pool.PackageID, txb.PtOutForExactWrapperIn, s.syType(),
				s.obj(o.Version), txb.Amount(syIn), s.voucher, s.obj(o.PyState),
				s.obj(o.MarketFactoryConfig), s.obj(o.MarketState), s.clock())
			add := s.b.MoveCall(pool.PackageID, txb.AddLiquiditySingleSided, s.syType(),
				s.obj(o.Version), sy, view.Out("pt_out"), txb.BigU64(minLp), s.voucher, pos,
				s.obj(o.PyState), s.obj(o.MarketFactoryConfig), s.obj(o.MarketState), s.clock())
			s.b.BindReturn("pt_value", view, "pt_out")
			s.transfers = append(s.transfers, add.Out("lp_position"))
			s.b.BindEvent("lp_amount", event, "lp_amount")
			return s.finish()
		}
	}

	label := fmt.Sprintf("%s add %s", pool.ID, path)
	tolerance := req.SlippagePct
	if path == PathSeed {
		// Seeding sets the price; there is nothing to bound against.
		tolerance = decimal.NewFromInt(100)
		res.Diagnostics.Note("seed path: no minimum LP bound")
	}
	lpOut, minLp, final, err := e.bounded(ctx, label, build, tolerance, &res.Diagnostics, eventAmount("lp_amount", pool.Decimals))
	if err != nil {
		return res, fmt.Errorf("preview add %s: %w", pool.ID, err)
	}
	res.Value = AddPreview{
		Path:            path.String(),
		LpOut:           lpOut,
		MinLpOut:        minLp,
		SyIn:            syIn,
		PositionCreated: created,
		Intent:          final,
	}
	return res, nil
}

// mintShare is the SY minted into PT so that the PT minted and the SY left
// over match the pool's PT to SY ratio.
func mintShare(syTotal amount.Quantity, pyPerSy, totalSy, totalPt decimal.Decimal) amount.Quantity {
	return share(syTotal, totalPt, pyPerSy.Mul(totalSy).Add(totalPt))
}
