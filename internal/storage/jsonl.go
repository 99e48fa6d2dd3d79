package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"yieldScope/internal/model"
)

// JsonlStorage appends diagnostics and metrics snapshots to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

type jsonlRecord struct {
	Type       string                      `json:"type"`
	Diagnostic *model.SimulationDiagnostic `json:"diagnostic,omitempty"`
	Metrics    *model.PoolMetrics          `json:"metrics,omitempty"`
}

// Write appends one failed-simulation diagnostic.
func (s *JsonlStorage) Write(ctx context.Context, d model.SimulationDiagnostic) error {
	return s.append([]jsonlRecord{{Type: "diagnostic", Diagnostic: &d}})
}

// PutMetrics appends a batch of metrics snapshots.
func (s *JsonlStorage) PutMetrics(ctx context.Context, metrics []model.PoolMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	records := make([]jsonlRecord, len(metrics))
	for i := range metrics {
		records[i] = jsonlRecord{Type: "metrics", Metrics: &metrics[i]}
	}
	return s.append(records)
}

func (s *JsonlStorage) append(records []jsonlRecord) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", record.Type, err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write %s record: %w", record.Type, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
