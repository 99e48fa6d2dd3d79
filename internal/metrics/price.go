package metrics

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/model"
	"yieldScope/internal/probe"
	"yieldScope/internal/simulate"
	"yieldScope/internal/txb"
	"yieldScope/internal/voucher"
)

// RateKind selects which view a probe simulates.
type RateKind string

const (
	// RatePtPerSy is PT received per SY swapped in.
	RatePtPerSy RateKind = "pt"
	// RateYtPerSy is YT received per SY swapped in.
	RateYtPerSy RateKind = "yt"
	// RatePyPerSy is PT (and YT) minted per SY deposited.
	RatePyPerSy RateKind = "mint"
)

type rateView struct {
	entry  txb.EntryPoint
	output string
}

var rateViews = map[RateKind]rateView{
	RatePtPerSy: {txb.PtOutForExactWrapperIn, "pt_out"},
	RateYtPerSy: {txb.YtOutForExactWrapperIn, "yt_out"},
	RatePyPerSy: {txb.PyOutForExactWrapperIn, "py_out"},
}

// Rate is a probed exchange rate with the probe that produced it.
type Rate struct {
	Kind      RateKind
	Value     decimal.Decimal
	Magnitude uint64
}

// Pricer discovers exchange rates by simulating view calls through the
// probe ladder.
type Pricer struct {
	exec       *simulate.Executor
	vouchers   voucher.Provider
	memos      *probe.Memos
	magnitudes []uint64
	sender     string
	logger     *zap.Logger
}

type PricerOptions struct {
	Sender     string
	Magnitudes []uint64
	Logger     *zap.Logger
}

func NewPricer(exec *simulate.Executor, vouchers voucher.Provider, memos *probe.Memos, opts PricerOptions) *Pricer {
	magnitudes := opts.Magnitudes
	if len(magnitudes) == 0 {
		magnitudes = probe.DefaultMagnitudes
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if memos == nil {
		memos = probe.NewMemos()
	}
	return &Pricer{
		exec:       exec,
		vouchers:   vouchers,
		memos:      memos,
		magnitudes: magnitudes,
		sender:     opts.Sender,
		logger:     logger,
	}
}

func (p *Pricer) Memos() *probe.Memos { return p.memos }

// Rate probes pool for kind and records the simulations in diag.
func (p *Pricer) Rate(ctx context.Context, pool model.PoolDescriptor, kind RateKind, diag *simulate.Diagnostics) (Rate, error) {
	view, ok := rateViews[kind]
	if !ok {
		return Rate{}, fmt.Errorf("unknown rate kind %q", kind)
	}
	label := fmt.Sprintf("%s %s rate", pool.ID, kind)
	memo := p.memos.For(probe.Key(pool.ID, string(kind)))

	attempt, err := probe.Run(ctx, label, p.magnitudes, memo, func(ctx context.Context, mag uint64) (decimal.Decimal, error) {
		intent, err := p.rateIntent(pool, view, mag)
		if err != nil {
			return decimal.Zero, err
		}
		out, err := p.exec.Simulate(ctx, label, intent)
		if err != nil {
			return decimal.Zero, err
		}
		if diag != nil {
			diag.Observe(out)
		}
		got, err := out.U64(view.output)
		if err != nil {
			return decimal.Zero, err
		}
		if got == 0 {
			return decimal.Zero, fmt.Errorf("%s: zero output at magnitude %d", label, mag)
		}
		return fromU64(got).Div(fromU64(mag)), nil
	})
	if err != nil {
		return Rate{}, err
	}
	if diag != nil {
		diag.ProbeIndex = attempt.Index
	}
	p.logger.Debug("rate probed",
		zap.String("pool", pool.ID),
		zap.String("kind", string(kind)),
		zap.Uint64("magnitude", attempt.Magnitude),
		zap.Int("tries", attempt.Tries),
		zap.String("rate", attempt.Value.String()),
	)
	return Rate{Kind: kind, Value: attempt.Value, Magnitude: attempt.Magnitude}, nil
}

func (p *Pricer) rateIntent(pool model.PoolDescriptor, view rateView, mag uint64) (*txb.Intent, error) {
	b := txb.New(p.sender)
	voucherArg, err := p.vouchers.AppendVoucher(b, pool)
	if err != nil {
		return nil, err
	}
	o := pool.Objects
	args := []txb.Arg{txb.Object(o.Version), txb.U64(mag), voucherArg, txb.Object(o.PyState)}
	switch view.entry.Name {
	case txb.PtOutForExactWrapperIn.Name:
		args = append(args, txb.Object(o.MarketFactoryConfig), txb.Object(o.MarketState))
	case txb.YtOutForExactWrapperIn.Name:
		args = append(args, txb.Object(o.YieldFactoryConfig), txb.Object(o.MarketFactoryConfig), txb.Object(o.MarketState))
	case txb.PyOutForExactWrapperIn.Name:
		args = append(args, txb.Object(o.YieldFactoryConfig))
	}
	args = append(args, txb.Object(pool.ClockID()))
	step := b.MoveCall(pool.PackageID, view.entry, []string{pool.Types.SY}, args...)
	b.BindReturn(view.output, step, view.output)
	return b.Build()
}
