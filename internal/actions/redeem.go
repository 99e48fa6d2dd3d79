package actions

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"yieldScope/internal/amount"
	"yieldScope/internal/model"
	"yieldScope/internal/simerr"
	"yieldScope/internal/simulate"
	"yieldScope/internal/txb"
)

// RedeemRequest burns PT and YT back into SY. Before maturity both amounts
// must be equal; after it YT is worthless and may be zero.
type RedeemRequest struct {
	PoolID       string
	PtAmount     amount.Quantity
	YtAmount     amount.Quantity
	SlippagePct  decimal.Decimal
	ToUnderlying bool
}

type RedeemPreview struct {
	SyOut           amount.Quantity `json:"sy_out"`
	UnderlyingOut   amount.Quantity `json:"underlying_out,omitempty"`
	MinOut          amount.Quantity `json:"min_out"`
	InterestClaimed bool            `json:"interest_claimed"`
	Intent          *txb.Intent     `json:"intent"`
}

// PreviewRedeem claims accrued interest when the position carries any, then
// redeems PT and YT and optionally unwraps the SY.
func (e *Engine) PreviewRedeem(ctx context.Context, req RedeemRequest) (simulate.Result[RedeemPreview], error) {
	var res simulate.Result[RedeemPreview]
	pool, err := e.pool(req.PoolID)
	if err != nil {
		return res, err
	}
	if err := validateTolerance(req.SlippagePct); err != nil {
		return res, err
	}
	pt, yt, err := redeemAmounts(pool, req, pool.Expired(e.now()))
	if err != nil {
		return res, err
	}
	pc, err := e.load(ctx, pool)
	if err != nil {
		return res, fmt.Errorf("preview redeem %s: %w", pool.ID, err)
	}
	if len(pc.py) == 0 {
		return res, fmt.Errorf("preview redeem %s: %w", pool.ID, ErrNoPosition)
	}
	position := pc.py[0]
	if err := covers("pt_amount", position.PtBalance, pt); err != nil {
		return res, err
	}
	if err := covers("yt_amount", position.YtBalance, yt); err != nil {
		return res, err
	}

	build := func(minOut *big.Int) (*txb.Intent, error) {
		s, err := e.newStepper(pool)
		if err != nil {
			return nil, err
		}
		o := pool.Objects
		pos := txb.Object(position.ID)
		if position.UnclaimedInterest {
			claim := s.b.MoveCall(pool.PackageID, txb.ClaimInterest, s.syType(),
				s.obj(o.Version), pos, s.obj(o.PyState), s.voucher, s.obj(o.YieldFactoryConfig), s.clock())
			s.transfers = append(s.transfers, claim.Out("sy_coin"))
		}
		redeem := s.b.MoveCall(pool.PackageID, txb.RedeemPrincipalAndYield, s.syType(),
			s.obj(o.Version), txb.Amount(pt), txb.Amount(yt), s.voucher, pos,
			s.obj(o.PyState), s.obj(o.YieldFactoryConfig), s.clock())
		coin := redeem.Out("sy_coin")
		if req.ToUnderlying {
			coin = s.redeemSy(coin, minOut)
		}
		s.transfers = append(s.transfers, coin)
		s.b.BindEvent("sy_out", txb.EventPyRedeemed, "sy_out")
		return s.finish()
	}

	read := func(o *simulate.Outcome) (amount.Quantity, error) {
		sy, err := o.EventAmount("sy_out", pool.Decimals)
		if err != nil {
			return amount.Quantity{}, err
		}
		res.Value.SyOut = sy
		if !req.ToUnderlying {
			return sy, nil
		}
		return sy.MulDecimal(pc.state.ExchangeRate()).Floor(), nil
	}
	out, minOut, final, err := e.bounded(ctx, pool.ID+" redeem", build, req.SlippagePct, &res.Diagnostics, read)
	if err != nil {
		return res, fmt.Errorf("preview redeem %s: %w", pool.ID, err)
	}
	if req.ToUnderlying {
		res.Value.UnderlyingOut = out
	} else {
		// redeem_py takes no bound of its own
		res.Diagnostics.Note("sy redemption is unbounded; min_out is informational")
	}
	res.Value.MinOut = minOut
	res.Value.InterestClaimed = position.UnclaimedInterest
	res.Value.Intent = final
	return res, nil
}

func redeemAmounts(pool model.PoolDescriptor, req RedeemRequest, matured bool) (pt, yt amount.Quantity, err error) {
	pt, yt = amount.Zero(pool.Decimals), amount.Zero(pool.Decimals)
	if !req.PtAmount.IsZero() {
		if pt, err = req.PtAmount.Rescale(pool.Decimals); err != nil {
			return pt, yt, &simerr.InputError{Field: "pt_amount", Err: err}
		}
	}
	if !req.YtAmount.IsZero() {
		if yt, err = req.YtAmount.Rescale(pool.Decimals); err != nil {
			return pt, yt, &simerr.InputError{Field: "yt_amount", Err: err}
		}
	}
	if err := validateAmount("pt_amount", pt); err != nil {
		return pt, yt, err
	}
	if !matured && !pt.Value().Equal(yt.Value()) {
		return pt, yt, &simerr.InputError{Field: "yt_amount", Err: fmt.Errorf("%w: must equal pt_amount before maturity", ErrNotMatured)}
	}
	return pt, yt, nil
}

func covers(field string, balance, want amount.Quantity) error {
	c, err := want.Cmp(balance)
	if err != nil {
		return &simerr.InputError{Field: field, Err: err}
	}
	if c > 0 {
		return &simerr.InputError{Field: field, Err: fmt.Errorf("%w: %s exceeds balance %s", amount.ErrInvalidAmount, want, balance)}
	}
	return nil
}
