package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"yieldScope/internal/model"
)

// Store provides Postgres persistence for metrics snapshots, probe memo
// state and simulation diagnostics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pool_metrics (
		pool_id text NOT NULL,
		computed_at timestamptz NOT NULL,
		pt_price numeric NOT NULL,
		yt_price numeric NOT NULL,
		pt_apy numeric NOT NULL,
		yt_apy numeric NOT NULL,
		swap_fee_apy numeric NOT NULL,
		incentive_apy numeric NOT NULL,
		pool_apy numeric NOT NULL,
		tvl numeric NOT NULL,
		lp_price numeric NOT NULL,
		price_source text NOT NULL,
		divergence numeric,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		PRIMARY KEY (pool_id, computed_at)
	)`,
	`CREATE TABLE IF NOT EXISTS probe_state (
		name text PRIMARY KEY,
		indices jsonb NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_diagnostics (
		id bigserial PRIMARY KEY,
		kind text NOT NULL,
		label text NOT NULL,
		sender text NOT NULL,
		steps jsonb NOT NULL,
		error text NOT NULL,
		raw jsonb,
		occurred_at timestamptz NOT NULL
	)`,
}

// EnsureSchema creates the tables the store writes to.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// numeric passes a decimal as text so Postgres parses it exactly.
func numeric(d decimal.Decimal) string { return d.String() }

// PutMetrics inserts or updates metrics snapshots.
func (s *Store) PutMetrics(ctx context.Context, metrics []model.PoolMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_metrics (
				pool_id, computed_at, pt_price, yt_price, pt_apy, yt_apy, swap_fee_apy,
				incentive_apy, pool_apy, tvl, lp_price, price_source, divergence, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
			ON CONFLICT (pool_id, computed_at)
			DO UPDATE SET
				pt_price = EXCLUDED.pt_price,
				yt_price = EXCLUDED.yt_price,
				pt_apy = EXCLUDED.pt_apy,
				yt_apy = EXCLUDED.yt_apy,
				swap_fee_apy = EXCLUDED.swap_fee_apy,
				incentive_apy = EXCLUDED.incentive_apy,
				pool_apy = EXCLUDED.pool_apy,
				tvl = EXCLUDED.tvl,
				lp_price = EXCLUDED.lp_price,
				price_source = EXCLUDED.price_source,
				divergence = EXCLUDED.divergence,
				updated_at = now()
		`,
			m.PoolID,
			m.ComputedAt,
			numeric(m.PtPrice),
			numeric(m.YtPrice),
			numeric(m.PtApy),
			numeric(m.YtApy),
			numeric(m.SwapFeeApy),
			numeric(m.IncentiveApy),
			numeric(m.PoolApy),
			numeric(m.Tvl),
			numeric(m.LpPrice),
			m.PriceSource,
			m.Divergence,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LatestMetrics returns the most recent snapshot for poolID.
func (s *Store) LatestMetrics(ctx context.Context, poolID string) (model.PoolMetrics, bool, error) {
	var m model.PoolMetrics
	var pt, yt, ptApy, ytApy, feeApy, incApy, poolApy, tvl, lp string
	row := s.pool.QueryRow(ctx, `
		SELECT pool_id, computed_at, pt_price::text, yt_price::text, pt_apy::text, yt_apy::text,
			swap_fee_apy::text, incentive_apy::text, pool_apy::text, tvl::text, lp_price::text,
			price_source, divergence::text
		FROM pool_metrics WHERE pool_id=$1 ORDER BY computed_at DESC LIMIT 1
	`, poolID)
	if err := row.Scan(&m.PoolID, &m.ComputedAt, &pt, &yt, &ptApy, &ytApy, &feeApy, &incApy, &poolApy, &tvl, &lp, &m.PriceSource, &m.Divergence); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolMetrics{}, false, nil
		}
		return model.PoolMetrics{}, false, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&m.PtPrice, pt}, {&m.YtPrice, yt}, {&m.PtApy, ptApy}, {&m.YtApy, ytApy},
		{&m.SwapFeeApy, feeApy}, {&m.IncentiveApy, incApy}, {&m.PoolApy, poolApy},
		{&m.Tvl, tvl}, {&m.LpPrice, lp},
	} {
		v, err := decimal.NewFromString(f.src)
		if err != nil {
			return model.PoolMetrics{}, false, fmt.Errorf("parse stored metric: %w", err)
		}
		*f.dst = v
	}
	return m, true, nil
}

// LoadProbeState returns the memo indices saved under name.
func (s *Store) LoadProbeState(ctx context.Context, name string) (map[string]int, error) {
	if name == "" {
		return nil, fmt.Errorf("state name required")
	}
	var indices map[string]int
	row := s.pool.QueryRow(ctx, `SELECT indices FROM probe_state WHERE name=$1`, name)
	if err := row.Scan(&indices); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return indices, nil
}

// SaveProbeState upserts the memo indices for name.
func (s *Store) SaveProbeState(ctx context.Context, name string, indices map[string]int) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO probe_state (name, indices, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET indices = EXCLUDED.indices, updated_at = now()
	`, name, indices)
	return err
}

// Write records a failed simulation.
func (s *Store) Write(ctx context.Context, d model.SimulationDiagnostic) error {
	var raw any
	if len(d.Raw) > 0 {
		raw = string(d.Raw)
	}
	occurred, err := time.Parse(time.RFC3339Nano, d.Occurred)
	if err != nil {
		occurred = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO simulation_diagnostics (kind, label, sender, steps, error, raw, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.Kind, d.Label, d.Sender, d.Steps, d.Error, raw, occurred)
	return err
}
