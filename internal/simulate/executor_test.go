package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldScope/internal/chain"
	"yieldScope/internal/codec"
	"yieldScope/internal/model"
	"yieldScope/internal/simerr"
	"yieldScope/internal/txb"
)

type stubSimulator struct {
	resp *chain.SimulateResponse
	err  error
}

func (s stubSimulator) Simulate(ctx context.Context, intent *txb.Intent) (*chain.SimulateResponse, error) {
	return s.resp, s.err
}

type memorySink struct {
	mu    sync.Mutex
	items []model.SimulationDiagnostic
}

func (m *memorySink) Write(ctx context.Context, d model.SimulationDiagnostic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, d)
	return nil
}

func viewIntent(t *testing.T, bindEvent bool) *txb.Intent {
	t.Helper()
	b := txb.New("0x1")
	view := b.MoveCall("0xabc", txb.PtOutForExactWrapperIn, []string{"0xabc::sy::SY"},
		txb.Object("0x2"), txb.U64(1000), txb.Object("0x4"), txb.Object("0x3"),
		txb.Object("0x5"), txb.Object("0x7"), txb.Object("0x6"))
	b.BindReturn("pt_out", view, "pt_out")
	if bindEvent {
		b.BindEvent("lp_amount", txb.EventLiquidityAdded, "lp_amount")
	}
	intent, err := b.Build()
	require.NoError(t, err)
	return intent
}

func u64Result(v uint64) chain.StepResult {
	return chain.StepResult{ReturnValues: []chain.ReturnValue{{Bytes: codec.EncodeU64(v), Type: "u64"}}}
}

func TestSimulateReadsBindings(t *testing.T) {
	resp := &chain.SimulateResponse{
		Results: []chain.StepResult{u64Result(47_500_000)},
		Events: []chain.Event{
			{Type: "0xabc::market::LiquidityAdded", ParsedJSON: json.RawMessage(`{"lp_amount":"45123456789"}`)},
		},
	}
	exec := NewExecutor(stubSimulator{resp: resp}, Options{})

	out, err := exec.Simulate(context.Background(), "view", viewIntent(t, true))
	require.NoError(t, err)
	assert.Equal(t, int64(1), exec.Calls())

	v, err := out.U64("pt_out")
	require.NoError(t, err)
	assert.Equal(t, uint64(47_500_000), v)

	q, err := out.Amount("pt_out", 6)
	require.NoError(t, err)
	assert.Equal(t, "47.500000", q.String())

	lp, err := out.EventAmount("lp_amount", 6)
	require.NoError(t, err)
	assert.Equal(t, "45123.456789", lp.String())

	_, err = out.U64("unknown")
	var decodeErr *simerr.DecodeInvariantError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestSimulateAbortIsSimulationError(t *testing.T) {
	sink := &memorySink{}
	resp := &chain.SimulateResponse{Error: "MoveAbort: insufficient_liquidity", Raw: json.RawMessage(`{"error":"x"}`)}
	exec := NewExecutor(stubSimulator{resp: resp}, Options{Sink: sink})

	_, err := exec.Simulate(context.Background(), "view", viewIntent(t, false))
	var simErr *simerr.SimulationError
	require.ErrorAs(t, err, &simErr)
	assert.Len(t, simErr.Steps, 1)
	assert.JSONEq(t, `{"error":"x"}`, string(simErr.Raw))

	require.Len(t, sink.items, 1)
	assert.Equal(t, model.DiagnosticSimulation, sink.items[0].Kind)
	assert.Equal(t, "view", sink.items[0].Label)
}

func TestSimulateMissingReturnIsDecodeInvariant(t *testing.T) {
	sink := &memorySink{}
	resp := &chain.SimulateResponse{Results: []chain.StepResult{{}}}
	exec := NewExecutor(stubSimulator{resp: resp}, Options{Sink: sink})

	_, err := exec.Simulate(context.Background(), "view", viewIntent(t, false))
	var decodeErr *simerr.DecodeInvariantError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "pt_out", decodeErr.Binding)
	assert.True(t, simerr.Fatal(err))
	require.Len(t, sink.items, 1)
	assert.Equal(t, model.DiagnosticDecode, sink.items[0].Kind)
}

func TestSimulateMissingEventIsDecodeInvariant(t *testing.T) {
	resp := &chain.SimulateResponse{Results: []chain.StepResult{u64Result(1)}}
	exec := NewExecutor(stubSimulator{resp: resp}, Options{})

	_, err := exec.Simulate(context.Background(), "view", viewIntent(t, true))
	var decodeErr *simerr.DecodeInvariantError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "lp_amount", decodeErr.Binding)
}

func TestSimulateWrongWidthIsDecodeInvariant(t *testing.T) {
	resp := &chain.SimulateResponse{Results: []chain.StepResult{
		{ReturnValues: []chain.ReturnValue{{Bytes: []byte{1, 2}, Type: "u64"}}},
	}}
	exec := NewExecutor(stubSimulator{resp: resp}, Options{})

	out, err := exec.Simulate(context.Background(), "view", viewIntent(t, false))
	require.NoError(t, err)
	_, err = out.U64("pt_out")
	var decodeErr *simerr.DecodeInvariantError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestSimulateTransportError(t *testing.T) {
	sink := &memorySink{}
	netErr := &simerr.NetworkError{Op: "ledger_simulateIntent", Err: errors.New("refused")}
	exec := NewExecutor(stubSimulator{err: netErr}, Options{Sink: sink, RateLimit: 100})

	_, err := exec.Simulate(context.Background(), "view", viewIntent(t, false))
	assert.True(t, simerr.Retryable(err))
	require.Len(t, sink.items, 1)
	assert.Equal(t, model.DiagnosticNetwork, sink.items[0].Kind)
}

func TestSimulateHonorsCancelledContext(t *testing.T) {
	exec := NewExecutor(stubSimulator{resp: &chain.SimulateResponse{}}, Options{RateLimit: 0.001})
	// the first token is free; the second must wait
	ctx, cancel := context.WithCancel(context.Background())
	_, _ = exec.Simulate(ctx, "first", viewIntent(t, false))
	cancel()
	_, err := exec.Simulate(ctx, "second", viewIntent(t, false))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), exec.Calls())
}
