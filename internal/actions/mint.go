package actions

import (
	"context"
	"fmt"

	"yieldScope/internal/amount"
	"yieldScope/internal/simulate"
	"yieldScope/internal/txb"
)

// MintRequest splits Amount of the underlying into PT and YT.
type MintRequest struct {
	PoolID string
	Amount amount.Quantity
	Coins  []string
}

type MintPreview struct {
	PtOut           amount.Quantity `json:"pt_out"`
	YtOut           amount.Quantity `json:"yt_out"`
	PositionCreated bool            `json:"position_created"`
	Intent          *txb.Intent     `json:"intent"`
}

// PreviewMint simulates wrapping the deposit and minting PT and YT in equal
// amounts into the sender's position. Minting has no market price to bound.
func (e *Engine) PreviewMint(ctx context.Context, req MintRequest) (simulate.Result[MintPreview], error) {
	var res simulate.Result[MintPreview]
	pool, err := e.pool(req.PoolID)
	if err != nil {
		return res, err
	}
	if err := validateAmount("amount", req.Amount); err != nil {
		return res, err
	}
	if err := e.checkOpen(pool); err != nil {
		return res, err
	}
	pc, err := e.load(ctx, pool)
	if err != nil {
		return res, fmt.Errorf("preview mint %s: %w", pool.ID, err)
	}
	deposit, err := req.Amount.Rescale(pool.Decimals)
	if err != nil {
		return res, err
	}

	s, err := e.newStepper(pool)
	if err != nil {
		return res, err
	}
	pos, created := s.position(pc.py)
	sy := s.depositSy(s.sourceCoin(req.Coins, deposit))
	o := pool.Objects
	mint := s.b.MoveCall(pool.PackageID, txb.MintPrincipalAndYield, s.syType(),
		s.obj(o.Version), sy, s.voucher, pos, s.obj(o.PyState), s.obj(o.YieldFactoryConfig), s.clock())
	s.b.BindReturn("pt_amount", mint, "pt_amount")
	intent, err := s.finish()
	if err != nil {
		return res, err
	}

	out, err := e.exec.Simulate(ctx, pool.ID+" mint", intent)
	if err != nil {
		return res, fmt.Errorf("preview mint %s: %w", pool.ID, err)
	}
	res.Diagnostics.Observe(out)
	pt, err := out.Amount("pt_amount", pool.Decimals)
	if err != nil {
		return res, err
	}
	res.Value = MintPreview{PtOut: pt, YtOut: pt, PositionCreated: created, Intent: intent}
	return res, nil
}
