package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// Service orchestrates upstream fetches, summarization and persistence.
type Service struct {
	store    Store
	upstream Upstream
	logger   *zap.SugaredLogger
}

// NewService creates a new Service. store may be nil, in which case only the
// read-only proxy path works.
func NewService(store Store, upstream Upstream, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		store:    store,
		upstream: upstream,
		logger:   logger,
	}
}

// PersistenceEnabled reports whether a store was configured.
func (s *Service) PersistenceEnabled() bool {
	return s.store != nil
}

// ValidateStationDate checks that station and date are present and the date is
// an existing calendar day written as YYYYMMDD.
func ValidateStationDate(stationID, date string) error {
	if err := validate.Struct(StationDate{StationID: stationID, Date: date}); err != nil {
		return fmt.Errorf("%w: stationId and date (YYYYMMDD) are required: %v", ErrValidation, err)
	}
	if _, err := ParseDate(date); err != nil {
		return fmt.Errorf("%w: date %q is not a calendar day", ErrValidation, date)
	}
	return nil
}

// FetchHistory proxies the upstream history for one station-day. The upstream
// status is returned unchanged, including error statuses.
func (s *Service) FetchHistory(ctx context.Context, stationID, date string) (HistoryResult, error) {
	if err := ValidateStationDate(stationID, date); err != nil {
		return HistoryResult{}, err
	}

	resp, err := s.upstream.Fetch(ctx, stationID, date)
	if err != nil {
		return HistoryResult{}, err
	}

	return HistoryResult{
		StatusCode: resp.StatusCode,
		Body:       passthroughBody(resp.Body),
	}, nil
}

// IngestDaily fetches one station-day, summarizes it and writes both the summary
// and the raw payload. The two writes are not atomic; re-running the same day
// overwrites both.
func (s *Service) IngestDaily(ctx context.Context, stationID, date string) (IngestResult, error) {
	if err := ValidateStationDate(stationID, date); err != nil {
		return IngestResult{}, err
	}
	if s.store == nil {
		return IngestResult{}, fmt.Errorf("%w: no database configured", ErrStoreUnavailable)
	}

	resp, err := s.upstream.Fetch(ctx, stationID, date)
	if err != nil {
		return IngestResult{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return IngestResult{}, NewUpstreamStatusError(resp.StatusCode, resp.Body)
	}

	payload, err := decodePayload(resp.Body)
	if err != nil {
		return IngestResult{}, err
	}

	summary, ok := Summarize(payload)
	if !ok {
		return IngestResult{}, fmt.Errorf("%w: station %s on %s", ErrNoObservations, stationID, date)
	}

	day, err := ParseDate(date)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.store.UpsertSummary(ctx, day, stationID, summary); err != nil {
		return IngestResult{}, err
	}
	if err := s.store.UpsertRawPayload(ctx, day, stationID, json.RawMessage(resp.Body)); err != nil {
		s.logger.Warnw("summary written without raw payload", "station", stationID, "date", date, "error", err)
		return IngestResult{}, err
	}

	s.logger.Infow("daily ingestion stored",
		"station", stationID,
		"date", date,
		"observations", summary.ObservationCount,
	)

	return IngestResult{
		Date:      day,
		StationID: stationID,
		Summary:   summary,
	}, nil
}

// GetDaily returns the persisted record for a YYYYMMDD date.
func (s *Service) GetDaily(ctx context.Context, date string) (DailyRecord, error) {
	if err := validate.Var(date, "required,len=8,number"); err != nil {
		return DailyRecord{}, fmt.Errorf("%w: date (YYYYMMDD) is required", ErrValidation)
	}
	day, err := ParseDate(date)
	if err != nil {
		return DailyRecord{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if s.store == nil {
		return DailyRecord{}, fmt.Errorf("%w: no database configured", ErrStoreUnavailable)
	}
	return s.store.GetDailyRecord(ctx, day)
}

// Today returns the YYYYMMDD code of now in loc.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DateLayout)
}

// decodePayload parses a 2xx body. An empty body means the upstream has
// nothing for that day and decodes to an empty payload. Numbers stay as
// json.Number so no precision is lost before summarizing.
func decodePayload(body []byte) (ObservationPayload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return ObservationPayload{}, nil
	}
	var payload ObservationPayload
	if err := decodeJSON(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamMalformed, err)
	}
	if payload == nil {
		payload = ObservationPayload{}
	}
	return payload, nil
}

// passthroughBody returns the decoded JSON body, or the text wrapped as {"raw": ...}.
func passthroughBody(body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}
	}
	var v any
	if err := decodeJSON(body, &v); err != nil {
		return map[string]any{"raw": string(body)}
	}
	return v
}

func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
