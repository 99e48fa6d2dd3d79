package actions

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/amount"
	"yieldScope/internal/metrics"
	"yieldScope/internal/simerr"
	"yieldScope/internal/simulate"
	"yieldScope/internal/txb"
)

// Side is the direction and asset of a swap.
type Side string

const (
	BuyPT  Side = "buy-pt"
	BuyYT  Side = "buy-yt"
	SellPT Side = "sell-pt"
	SellYT Side = "sell-yt"
)

func ParseSide(s string) (Side, error) {
	switch side := Side(s); side {
	case BuyPT, BuyYT, SellPT, SellYT:
		return side, nil
	}
	return "", &simerr.InputError{Field: "side", Err: fmt.Errorf("unknown side %q", s)}
}

func (s Side) buying() bool { return s == BuyPT || s == BuyYT }

func (s Side) rateKind() metrics.RateKind {
	if s == BuyPT || s == SellPT {
		return metrics.RatePtPerSy
	}
	return metrics.RateYtPerSy
}

// SwapRequest trades Amount: underlying when buying, PT or YT when selling.
type SwapRequest struct {
	PoolID       string
	Side         Side
	Amount       amount.Quantity
	Coins        []string
	SlippagePct  decimal.Decimal
	ToUnderlying bool
}

type SwapPreview struct {
	Side            Side            `json:"side"`
	AmountIn        amount.Quantity `json:"amount_in"`
	AmountOut       amount.Quantity `json:"amount_out"`
	MinOut          amount.Quantity `json:"min_out"`
	ExecRate        decimal.Decimal `json:"exec_rate"`
	SpotRate        decimal.Decimal `json:"spot_rate"`
	PriceImpact     decimal.Decimal `json:"price_impact"`
	PositionCreated bool            `json:"position_created"`
	Intent          *txb.Intent     `json:"intent"`
}

// PreviewSwap simulates buying or selling PT or YT against SY and measures
// the execution rate against a small probe of the same market.
func (e *Engine) PreviewSwap(ctx context.Context, req SwapRequest) (simulate.Result[SwapPreview], error) {
	var res simulate.Result[SwapPreview]
	pool, err := e.pool(req.PoolID)
	if err != nil {
		return res, err
	}
	if _, err := ParseSide(string(req.Side)); err != nil {
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
		return res, fmt.Errorf("preview swap %s: %w", pool.ID, err)
	}
	amountIn, err := req.Amount.Rescale(pool.Decimals)
	if err != nil {
		return res, err
	}
	if !req.Side.buying() {
		if len(pc.py) == 0 {
			return res, fmt.Errorf("preview swap %s: %w", pool.ID, ErrNoPosition)
		}
		balance := pc.py[0].PtBalance
		if req.Side == SellYT {
			balance = pc.py[0].YtBalance
		}
		if err := covers("amount", balance, amountIn); err != nil {
			return res, err
		}
	}

	var created bool
	o := pool.Objects
	build := func(minOut *big.Int) (*txb.Intent, error) {
		s, err := e.newStepper(pool)
		if err != nil {
			return nil, err
		}
		var pos txb.Arg
		pos, created = s.position(pc.py)
		switch req.Side {
		case BuyPT:
			sy := s.depositSy(s.sourceCoin(req.Coins, amountIn))
			swap := s.b.MoveCall(pool.PackageID, txb.SwapExactInForPrincipal, s.syType(),
				s.obj(o.Version), txb.BigU64(minOut), s.voucher, sy, pos,
				s.obj(o.PyState), s.obj(o.MarketFactoryConfig), s.obj(o.MarketState), s.clock())
			s.b.BindReturn("out", swap, "pt_out")
		case BuyYT:
			sy := s.depositSy(s.sourceCoin(req.Coins, amountIn))
			swap := s.b.MoveCall(pool.PackageID, txb.SwapExactInForYield, s.syType(),
				s.obj(o.Version), txb.BigU64(minOut), s.voucher, sy, pos, s.obj(o.PyState),
				s.obj(o.YieldFactoryConfig), s.obj(o.MarketFactoryConfig), s.obj(o.MarketState), s.clock())
			s.b.BindReturn("out", swap, "yt_out")
		case SellPT:
			swap := s.b.MoveCall(pool.PackageID, txb.SwapExactPrincipalForWrapper, s.syType(),
				s.obj(o.Version), txb.Amount(amountIn), txb.BigU64(minOut), s.voucher, pos,
				s.obj(o.PyState), s.obj(o.MarketFactoryConfig), s.obj(o.MarketState), s.clock())
			s.sellProceeds(swap.Out("sy_coin"), req.ToUnderlying)
		case SellYT:
			swap := s.b.MoveCall(pool.PackageID, txb.SwapExactYieldForWrapper, s.syType(),
				s.obj(o.Version), txb.Amount(amountIn), txb.BigU64(minOut), s.voucher, pos, s.obj(o.PyState),
				s.obj(o.YieldFactoryConfig), s.obj(o.MarketFactoryConfig), s.obj(o.MarketState), s.clock())
			s.sellProceeds(swap.Out("sy_coin"), req.ToUnderlying)
		}
		return s.finish()
	}

	read := returnAmount("out", pool.Decimals)
	if !req.Side.buying() {
		read = eventAmount("out", pool.Decimals)
	}
	label := fmt.Sprintf("%s %s", pool.ID, req.Side)
	out, minOut, final, err := e.bounded(ctx, label, build, req.SlippagePct, &res.Diagnostics, read)
	if err != nil {
		return res, fmt.Errorf("preview swap %s: %w", pool.ID, err)
	}

	preview := SwapPreview{
		Side:            req.Side,
		AmountIn:        amountIn,
		AmountOut:       out,
		MinOut:          minOut,
		PositionCreated: created,
		Intent:          final,
	}
	syIn := amountIn
	if req.Side.buying() {
		syIn = toSy(amountIn, pc.state)
	}
	if !syIn.IsZero() {
		preview.ExecRate = out.Value().Div(syIn.Value())
	}
	spot, err := e.spotRate(pool.ID, req.Side, func(kind metrics.RateKind) (metrics.Rate, error) {
		return e.pricer.Rate(ctx, pool, kind, &res.Diagnostics)
	})
	switch {
	case err == nil:
		preview.SpotRate = spot
		preview.PriceImpact = metrics.PriceImpact(preview.ExecRate, spot)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return res, err
	default:
		res.Diagnostics.Note("spot rate unavailable: " + simerr.UserMessage(err))
	}
	res.Value = preview
	return res, nil
}

// spotRate returns the marginal rate in the swap's own direction: asset per
// SY when buying, SY per asset when selling.
func (e *Engine) spotRate(poolID string, side Side, rate func(metrics.RateKind) (metrics.Rate, error)) (decimal.Decimal, error) {
	r, err := rate(side.rateKind())
	if err != nil {
		e.logger.Warn("spot rate probe failed", zap.String("pool", poolID), zap.String("side", string(side)), zap.Error(err))
		return decimal.Zero, err
	}
	if side.buying() {
		return r.Value, nil
	}
	if !r.Value.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive %s rate", r.Kind)
	}
	return decimal.NewFromInt(1).Div(r.Value), nil
}

func (s *stepper) sellProceeds(syCoin txb.Arg, toUnderlying bool) {
	if toUnderlying {
		syCoin = s.redeemSy(syCoin, zeroBound())
	}
	s.transfers = append(s.transfers, syCoin)
	s.b.BindEvent("out", txb.EventSwapped, "sy_out")
}
