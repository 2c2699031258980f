package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/i474232898/pws-daily-ingest/internal/weather"
)

// Dialect selects the SQL driver and schema flavour.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

const upsertSummarySQL = `
INSERT INTO daily_summaries (
	date, station_id, rainfall_mm, temp_min_c, temp_max_c,
	avg_humidity_pct, max_wind_speed_mps, observation_count, recorded_at
) VALUES (
	:date, :station_id, :rainfall_mm, :temp_min_c, :temp_max_c,
	:avg_humidity_pct, :max_wind_speed_mps, :observation_count, :recorded_at
)
ON CONFLICT (date) DO UPDATE SET
	station_id = EXCLUDED.station_id,
	rainfall_mm = EXCLUDED.rainfall_mm,
	temp_min_c = EXCLUDED.temp_min_c,
	temp_max_c = EXCLUDED.temp_max_c,
	avg_humidity_pct = EXCLUDED.avg_humidity_pct,
	max_wind_speed_mps = EXCLUDED.max_wind_speed_mps,
	observation_count = EXCLUDED.observation_count,
	recorded_at = EXCLUDED.recorded_at`

const upsertRawSQL = `
INSERT INTO daily_raw_payloads (date, station_id, payload, recorded_at)
VALUES (:date, :station_id, :payload, :recorded_at)
ON CONFLICT (date) DO UPDATE SET
	station_id = EXCLUDED.station_id,
	payload = EXCLUDED.payload,
	recorded_at = EXCLUDED.recorded_at`

const selectSummarySQL = `
SELECT station_id, rainfall_mm, temp_min_c, temp_max_c, avg_humidity_pct,
	max_wind_speed_mps, observation_count, recorded_at
FROM daily_summaries WHERE date = ?`

const selectRawSQL = `
SELECT station_id, payload, recorded_at
FROM daily_raw_payloads WHERE date = ?`

// SQLStore persists daily records in PostgreSQL or SQLite through sqlx.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// DialectFor guesses the dialect from a connection string.
func DialectFor(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "sqlite:"):
		return DialectSQLite
	case strings.HasPrefix(lower, "file:"), lower == ":memory:", strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return DialectSQLite
	default:
		return DialectPostgres
	}
}

// Open connects and pings the database named by dsn.
func Open(ctx context.Context, dsn string, logger *zap.SugaredLogger) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: empty connection string", weather.ErrStoreUnavailable)
	}
	dialect := DialectFor(dsn)
	if dialect == DialectSQLite {
		dsn = strings.TrimPrefix(dsn, "sqlite:")
	}

	db, err := sqlx.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", weather.ErrStoreUnavailable, err)
	}
	if dialect == DialectSQLite {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", weather.ErrStoreUnavailable, err)
	}

	return NewSQLStore(db, dialect, logger), nil
}

// NewSQLStore wraps an existing connection.
func NewSQLStore(db *sqlx.DB, dialect Dialect, logger *zap.SugaredLogger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
	}
}

// Init creates the tables if they do not exist yet. Safe to call on every start.
func (s *SQLStore) Init(ctx context.Context) error {
	stmts := schemaFor(s.dialect)
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create schema: %v", weather.ErrStoreUnavailable, err)
		}
	}
	s.logger.Infow("daily store schema ready", "dialect", s.dialect)
	return nil
}

// Close releases the underlying pool.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertSummary writes the summary for date, replacing any earlier one.
func (s *SQLStore) UpsertSummary(ctx context.Context, date time.Time, stationID string, summary weather.DailySummary) error {
	row := newSummaryRow(date, stationID, summary, s.now().UTC())
	if _, err := s.db.NamedExecContext(ctx, upsertSummarySQL, row); err != nil {
		s.logger.Errorw("failed to upsert daily summary", "date", row.Date, "station", stationID, "error", err)
		return fmt.Errorf("%w: upsert summary: %v", weather.ErrStoreUnavailable, err)
	}
	return nil
}

// UpsertRawPayload writes the unmodified payload for date, replacing any earlier one.
func (s *SQLStore) UpsertRawPayload(ctx context.Context, date time.Time, stationID string, payload json.RawMessage) error {
	row, err := newRawRow(date, stationID, payload, s.now().UTC())
	if err != nil {
		return err
	}
	if _, err := s.db.NamedExecContext(ctx, upsertRawSQL, row); err != nil {
		s.logger.Errorw("failed to upsert raw payload", "date", row.Date, "station", stationID, "error", err)
		return fmt.Errorf("%w: upsert raw payload: %v", weather.ErrStoreUnavailable, err)
	}
	return nil
}

// GetDailyRecord reads back the summary and, if present, the raw payload for date.
func (s *SQLStore) GetDailyRecord(ctx context.Context, date time.Time) (weather.DailyRecord, error) {
	key := dateKey(date)

	var sum summaryRow
	if err := s.db.GetContext(ctx, &sum, s.db.Rebind(selectSummarySQL), key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return weather.DailyRecord{}, ErrNotFound
		}
		return weather.DailyRecord{}, fmt.Errorf("%w: select summary: %v", weather.ErrStoreUnavailable, err)
	}
	sum.Date = key
	rec := sum.toRecord()

	var raw rawRow
	err := s.db.GetContext(ctx, &raw, s.db.Rebind(selectRawSQL), key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return rec, nil
	case err != nil:
		return weather.DailyRecord{}, fmt.Errorf("%w: select raw payload: %v", weather.ErrStoreUnavailable, err)
	}
	raw.fill(&rec)
	return rec, nil
}

var _ weather.Store = (*SQLStore)(nil)
