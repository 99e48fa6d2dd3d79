package storage

import (
	"context"

	"yieldScope/internal/model"
)

// MetricsSink persists computed pool metrics snapshots.
type MetricsSink interface {
	PutMetrics(ctx context.Context, metrics []model.PoolMetrics) error
}
