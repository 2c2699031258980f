package weather

import (
	"context"
	"encoding/json"
	"time"
)

// UpstreamResponse is a raw upstream answer; status is not interpreted.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
}

// Upstream abstracts the PWS history API.
// Fetch returns an error only for request building or transport failures.
type Upstream interface {
	Fetch(ctx context.Context, stationID, date string) (UpstreamResponse, error)
}

// Store is the contract the SQL store (and the in-memory one) must satisfy.
// Writes are keyed by calendar date; a later write replaces an earlier one.
// The raw payload is the upstream body exactly as received.
type Store interface {
	UpsertSummary(ctx context.Context, date time.Time, stationID string, summary DailySummary) error
	UpsertRawPayload(ctx context.Context, date time.Time, stationID string, payload json.RawMessage) error
	GetDailyRecord(ctx context.Context, date time.Time) (DailyRecord, error)
}
