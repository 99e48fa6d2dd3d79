package storage

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"yieldScope/internal/model"
	"yieldScope/internal/simulate"
)

var (
	_ simulate.DiagnosticSink = (*JsonlStorage)(nil)
	_ MetricsSink             = (*JsonlStorage)(nil)
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestJsonlAppendsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "diag.jsonl")
	s := NewJsonlStorage(path)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, model.SimulationDiagnostic{
		Kind:  model.DiagnosticSimulation,
		Label: "pool-1 add swap-and-add",
		Steps: []string{"#0 0xabc::market::add_liquidity_single_sy<T>()"},
		Error: "MoveAbort",
	}))
	require.NoError(t, s.PutMetrics(ctx, []model.PoolMetrics{
		{PoolID: "pool-1", PtPrice: decimal.RequireFromString("0.95"), ComputedAt: time.Unix(0, 0).UTC()},
		{PoolID: "pool-2", PriceSource: model.PriceSourceNone},
	}))
	require.NoError(t, s.PutMetrics(ctx, nil))

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "diagnostic", gjson.Get(lines[0], "type").String())
	assert.Equal(t, "MoveAbort", gjson.Get(lines[0], "diagnostic.error").String())
	assert.False(t, gjson.Get(lines[0], "metrics").Exists())
	assert.Equal(t, "pool-1", gjson.Get(lines[1], "metrics.pool_id").String())
	assert.Equal(t, "0.95", gjson.Get(lines[1], "metrics.pt_price").String())
	assert.Equal(t, model.PriceSourceNone, gjson.Get(lines[2], "metrics.price_source").String())
}
