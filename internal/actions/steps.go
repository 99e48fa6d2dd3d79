package actions

import (
	"math/big"

	"github.com/shopspring/decimal"

	"yieldScope/internal/amount"
	"yieldScope/internal/model"
	"yieldScope/internal/txb"
)

// stepper appends the shared step sequences of every action.
type stepper struct {
	b       *txb.Builder
	pool    model.PoolDescriptor
	sender  string
	voucher txb.Arg
	// transfers collects objects returned to the sender at the end.
	transfers []txb.Arg
}

func (e *Engine) newStepper(pool model.PoolDescriptor) (*stepper, error) {
	b := txb.New(e.sender)
	v, err := e.vouchers.AppendVoucher(b, pool)
	if err != nil {
		return nil, err
	}
	return &stepper{b: b, pool: pool, sender: e.sender, voucher: v}, nil
}

func (s *stepper) syType() []string { return []string{s.pool.Types.SY} }

func (s *stepper) obj(id string) txb.Arg { return txb.Object(id) }

func (s *stepper) clock() txb.Arg { return txb.Object(s.pool.ClockID()) }

// position reuses the sender's PY position or creates one in this intent.
func (s *stepper) position(existing []model.PyPosition) (txb.Arg, bool) {
	if len(existing) > 0 {
		return txb.Object(existing[0].ID), false
	}
	o := s.pool.Objects
	h := s.b.MoveCall(s.pool.PackageID, txb.PositionInit, s.syType(), s.obj(o.Version), s.obj(o.PyState), s.clock())
	pos := h.Out("py_position")
	s.transfers = append(s.transfers, pos)
	return pos, true
}

// sourceCoin produces a coin of exactly q from the sender's coins, or from
// the gas coin when none are given.
func (s *stepper) sourceCoin(coins []string, q amount.Quantity) txb.Arg {
	if len(coins) == 0 {
		return s.b.SplitCoins(txb.Gas(), txb.Amount(q)).Nth(0)
	}
	primary := txb.Object(coins[0])
	if len(coins) > 1 {
		rest := make([]txb.Arg, 0, len(coins)-1)
		for _, c := range coins[1:] {
			rest = append(rest, txb.Object(c))
		}
		s.b.MergeCoins(primary, rest...)
	}
	return s.b.SplitCoins(primary, txb.Amount(q)).Nth(0)
}

// depositSy wraps an underlying coin into SY.
func (s *stepper) depositSy(coin txb.Arg) txb.Arg {
	o := s.pool.Objects
	h := s.b.MoveCall(s.pool.PackageID, txb.DepositForWrapper, []string{s.pool.Types.Underlying, s.pool.Types.SY},
		s.obj(o.Version), coin, txb.U64(0), s.obj(o.SyState))
	return h.Out("sy_coin")
}

// redeemSy unwraps an SY coin into the underlying.
func (s *stepper) redeemSy(syCoin txb.Arg, minOut *big.Int) txb.Arg {
	o := s.pool.Objects
	h := s.b.MoveCall(s.pool.PackageID, txb.RedeemWrapper, []string{s.pool.Types.Underlying, s.pool.Types.SY},
		s.obj(o.Version), syCoin, txb.BigU64(minOut), s.obj(o.SyState))
	return h.Out("coin")
}

func (s *stepper) finish() (*txb.Intent, error) {
	if len(s.transfers) > 0 {
		s.b.TransferObjects(s.transfers, txb.Address(s.sender))
	}
	return s.b.Build()
}

// toSy estimates the SY a deposit of underlying wraps into.
func toSy(q amount.Quantity, state model.PoolState) amount.Quantity {
	return amount.FromDecimal(q.Value().Div(state.ExchangeRate()), q.Decimals()).Floor()
}

// share returns q * num / den floored, or zero when den is zero.
func share(q amount.Quantity, num, den decimal.Decimal) amount.Quantity {
	if den.IsZero() {
		return amount.Zero(q.Decimals())
	}
	return q.MulDecimal(num.Div(den)).Floor()
}

func zeroBound() *big.Int { return big.NewInt(0) }
