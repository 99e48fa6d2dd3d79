package actions

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/amount"
	"yieldScope/internal/model"
	"yieldScope/internal/simerr"
	"yieldScope/internal/simulate"
	"yieldScope/internal/txb"
)

// RemoveRequest burns LpAmount of the sender's liquidity. A zero LpAmount
// burns everything held for the pool's maturity.
type RemoveRequest struct {
	PoolID       string
	LpAmount     amount.Quantity
	SlippagePct  decimal.Decimal
	ToUnderlying bool
}

type RemovePreview struct {
	LpIn            amount.Quantity `json:"lp_in"`
	SyOut           amount.Quantity `json:"sy_out"`
	MinSyOut        amount.Quantity `json:"min_sy_out"`
	PtOut           amount.Quantity `json:"pt_out"`
	PositionsJoined int             `json:"positions_joined"`
	RewardsClaimed  []string        `json:"rewards_claimed,omitempty"`
	Intent          *txb.Intent     `json:"intent"`
}

// PreviewRemoveLiquidity claims pending rewards, joins the sender's LP
// positions into one and burns from it.
func (e *Engine) PreviewRemoveLiquidity(ctx context.Context, req RemoveRequest) (simulate.Result[RemovePreview], error) {
	var res simulate.Result[RemovePreview]
	pool, err := e.pool(req.PoolID)
	if err != nil {
		return res, err
	}
	if err := validateTolerance(req.SlippagePct); err != nil {
		return res, err
	}
	pc, err := e.load(ctx, pool)
	if err != nil {
		return res, fmt.Errorf("preview remove %s: %w", pool.ID, err)
	}
	lps, err := e.ledger.LPPositions(ctx, e.sender, pool)
	if err != nil {
		return res, fmt.Errorf("preview remove %s: %w", pool.ID, err)
	}
	lps = model.SameMaturity(lps, pool.MaturityMs)
	if len(lps) == 0 {
		return res, fmt.Errorf("preview remove %s: %w", pool.ID, ErrNoPosition)
	}

	held := amount.Zero(pool.Decimals)
	for _, p := range lps {
		if held, err = held.Add(p.LpAmount); err != nil {
			return res, err
		}
	}
	lpIn := held
	if !req.LpAmount.IsZero() {
		if lpIn, err = req.LpAmount.Rescale(pool.Decimals); err != nil {
			return res, &simerr.InputError{Field: "lp_amount", Err: err}
		}
	}
	if err := validateAmount("lp_amount", lpIn); err != nil {
		return res, err
	}
	if c, err := lpIn.Cmp(held); err != nil || c > 0 {
		return res, &simerr.InputError{Field: "lp_amount", Err: fmt.Errorf("%w: %s exceeds held %s", amount.ErrInvalidAmount, lpIn, held)}
	}
	rewards := model.PendingRewardTokens(lps)

	build := func(minSy *big.Int) (*txb.Intent, error) {
		s, err := e.newStepper(pool)
		if err != nil {
			return nil, err
		}
		o := pool.Objects
		for _, p := range lps {
			for _, token := range p.UnclaimedRewards {
				claim := s.b.MoveCall(pool.PackageID, txb.ClaimReward, []string{pool.Types.SY, token},
					s.obj(o.Version), s.obj(o.MarketState), txb.Object(p.ID), s.clock())
				s.transfers = append(s.transfers, claim.Out("reward_coin"))
			}
		}
		primary := txb.Object(lps[0].ID)
		for _, p := range lps[1:] {
			s.b.MoveCall(pool.PackageID, txb.JoinLPPositions, s.syType(), s.obj(o.MarketState), primary, txb.Object(p.ID))
		}
		pos, _ := s.position(pc.py)
		burn := s.b.MoveCall(pool.PackageID, txb.BurnLP, s.syType(),
			s.obj(o.Version), txb.Amount(lpIn), txb.BigU64(minSy), s.voucher, pos,
			s.obj(o.PyState), s.obj(o.MarketFactoryConfig), s.obj(o.MarketState), primary, s.clock())
		syCoin := burn.Out("sy_coin")
		if req.ToUnderlying {
			syCoin = s.redeemSy(syCoin, zeroBound())
		}
		s.transfers = append(s.transfers, syCoin)
		s.b.BindEvent("sy_out", txb.EventLiquidityBurned, "sy_out")
		s.b.BindEvent("pt_out", txb.EventLiquidityBurned, "pt_out")
		return s.finish()
	}

	label := pool.ID + " remove"
	var ptOut amount.Quantity
	read := func(o *simulate.Outcome) (amount.Quantity, error) {
		pt, err := o.EventAmount("pt_out", pool.Decimals)
		if err != nil {
			return amount.Quantity{}, err
		}
		ptOut = pt
		return o.EventAmount("sy_out", pool.Decimals)
	}
	syOut, minSy, final, err := e.bounded(ctx, label, build, req.SlippagePct, &res.Diagnostics, read)
	if err != nil {
		return res, fmt.Errorf("preview remove %s: %w", pool.ID, err)
	}
	if len(rewards) > 0 {
		e.logger.Debug("claiming rewards before burn", zap.String("pool", pool.ID), zap.Strings("tokens", rewards))
	}
	res.Value = RemovePreview{
		LpIn:            lpIn,
		SyOut:           syOut,
		MinSyOut:        minSy,
		PtOut:           ptOut,
		PositionsJoined: len(lps) - 1,
		RewardsClaimed:  rewards,
		Intent:          final,
	}
	return res, nil
}
