package actions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"yieldScope/internal/amount"
	"yieldScope/internal/chain"
	"yieldScope/internal/codec"
	"yieldScope/internal/metrics"
	"yieldScope/internal/metrics/cache"
	"yieldScope/internal/model"
	"yieldScope/internal/probe"
	"yieldScope/internal/simulate"
	"yieldScope/internal/txb"
	"yieldScope/internal/voucher"
)

const testSender = "0x5e"

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

// fakeLedger executes intents by entry name: views answer at fixed rates,
// configured calls return a u64 or emit an event, anything listed in
// aborts fails the simulation.
type fakeLedger struct {
	state   model.PoolState
	py      []model.PyPosition
	lps     []model.LPPosition
	rates   map[string]decimal.Decimal
	returns map[string]uint64
	emits   map[string]chain.Event
	aborts  map[string]string

	sims      []*txb.Intent
	submitted [][]byte
	signature string
	submitErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		state:   testState(),
		rates:   make(map[string]decimal.Decimal),
		returns: make(map[string]uint64),
		emits:   make(map[string]chain.Event),
		aborts:  make(map[string]string),
	}
}

func (f *fakeLedger) emit(entry txb.EntryPoint, eventType string, fields map[string]string) {
	raw, _ := json.Marshal(fields)
	f.emits[entry.Name] = chain.Event{Type: "0xabc::" + eventType, ParsedJSON: raw}
}

func (f *fakeLedger) Simulate(ctx context.Context, intent *txb.Intent) (*chain.SimulateResponse, error) {
	f.sims = append(f.sims, intent)
	resp := &chain.SimulateResponse{Results: make([]chain.StepResult, len(intent.Commands)), Raw: json.RawMessage(`{}`)}
	for i, cmd := range intent.Commands {
		if cmd.Kind != txb.CommandMoveCall {
			continue
		}
		name := cmd.Entry.Name
		if msg, ok := f.aborts[name]; ok {
			resp.Error = "MoveAbort in " + cmd.Entry.Function + ": " + msg
			return resp, nil
		}
		if rate, ok := f.rates[name]; ok {
			in, err := codec.DecodeU64(cmd.Args[1].Pure)
			if err != nil {
				return nil, err
			}
			out := rate.Mul(decimal.NewFromInt(int64(in))).Floor().IntPart()
			resp.Results[i] = chain.StepResult{ReturnValues: []chain.ReturnValue{{Bytes: codec.EncodeU64(uint64(out)), Type: "u64"}}}
		} else if len(cmd.Entry.Outputs) == 1 && cmd.Entry.Outputs[0].Type == "u64" && cmd.Entry.Module != "oracle" {
			v, ok := f.returns[name]
			if !ok {
				resp.Error = "MoveAbort in " + cmd.Entry.Function + ": no answer"
				return resp, nil
			}
			resp.Results[i] = chain.StepResult{ReturnValues: []chain.ReturnValue{{Bytes: codec.EncodeU64(v), Type: "u64"}}}
		}
		if ev, ok := f.emits[name]; ok {
			resp.Events = append(resp.Events, ev)
		}
	}
	return resp, nil
}

func (f *fakeLedger) PoolState(ctx context.Context, pool model.PoolDescriptor) (model.PoolState, error) {
	return f.state, nil
}

func (f *fakeLedger) PyPositions(ctx context.Context, owner string, pool model.PoolDescriptor) ([]model.PyPosition, error) {
	return f.py, nil
}

func (f *fakeLedger) LPPositions(ctx context.Context, owner string, pool model.PoolDescriptor) ([]model.LPPosition, error) {
	return f.lps, nil
}

func (f *fakeLedger) Submit(ctx context.Context, intentBytes []byte, signature string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, intentBytes)
	f.signature = signature
	return "0xd1", nil
}

type fakeSigner struct{ err error }

func (s fakeSigner) Sign(ctx context.Context, intentBytes []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "sig", nil
}

var errSign = errors.New("wallet rejected")

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

func units(v uint64) amount.Quantity { return amount.FromUint64(v, 6) }

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestEngine(t *testing.T, ledger *fakeLedger) (*Engine, *simulate.Executor) {
	t.Helper()
	exec := simulate.NewExecutor(ledger, simulate.Options{})
	vouchers := voucher.OracleProvider{}
	pricer := metrics.NewPricer(exec, vouchers, probe.NewMemos(), metrics.PricerOptions{Sender: testSender})
	calc := metrics.NewCalculator(pricer, metrics.Options{Now: clock})
	metricsCache := cache.New(cache.Config{Now: clock})
	eng := NewEngine(ledger, exec, vouchers, pricer, calc, metricsCache, Config{
		Sender: testSender,
		Pools:  []model.PoolDescriptor{testPool()},
		Now:    clock,
	})
	return eng, exec
}

// pureU64 decodes the pure argument at position arg of the first call of ep.
func pureU64(t *testing.T, intent *txb.Intent, ep txb.EntryPoint, arg int) uint64 {
	t.Helper()
	idx := intent.Find(ep.Name)
	require.GreaterOrEqual(t, idx, 0, "no %s step", ep.Name)
	v, err := codec.DecodeU64(intent.Commands[idx].Args[arg].Pure)
	require.NoError(t, err)
	return v
}
