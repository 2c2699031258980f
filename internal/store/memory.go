package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/i474232898/pws-daily-ingest/internal/weather"
)

var (
	// ErrNotFound is returned when no record exists for a date.
	ErrNotFound = weather.ErrNotFound
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: YYYY-MM-DD
	summaries map[string]summaryRow
	raws      map[string]rawRow

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		summaries: make(map[string]summaryRow),
		raws:      make(map[string]rawRow),
		now:       time.Now,
	}
}

// UpsertSummary replaces whatever summary was stored for date.
func (s *MemoryStore) UpsertSummary(_ context.Context, date time.Time, stationID string, summary weather.DailySummary) error {
	row := newSummaryRow(date, stationID, summary, s.now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[row.Date] = row
	return nil
}

// UpsertRawPayload replaces whatever payload was stored for date.
func (s *MemoryStore) UpsertRawPayload(_ context.Context, date time.Time, stationID string, payload json.RawMessage) error {
	row, err := newRawRow(date, stationID, payload, s.now().UTC())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.raws[row.Date] = row
	return nil
}

// GetDailyRecord returns the stored summary and payload for date.
func (s *MemoryStore) GetDailyRecord(_ context.Context, date time.Time) (weather.DailyRecord, error) {
	key := dateKey(date)

	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, ok := s.summaries[key]
	if !ok {
		return weather.DailyRecord{}, ErrNotFound
	}
	rec := sum.toRecord()
	if raw, ok := s.raws[key]; ok {
		raw.fill(&rec)
	}
	return rec, nil
}

// Len returns the number of stored summaries and raw payloads.
func (s *MemoryStore) Len() (summaries, raws int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.summaries), len(s.raws)
}

var _ weather.Store = (*MemoryStore)(nil)
