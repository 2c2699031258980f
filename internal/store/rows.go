package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/i474232898/pws-daily-ingest/internal/weather"
)

const dateKeyLayout = "2006-01-02"

func dateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// summaryRow maps onto daily_summaries.
type summaryRow struct {
	Date             string    `db:"date"`
	StationID        string    `db:"station_id"`
	RainfallMm       *float64  `db:"rainfall_mm"`
	TempMinC         *float64  `db:"temp_min_c"`
	TempMaxC         *float64  `db:"temp_max_c"`
	AvgHumidityPct   *float64  `db:"avg_humidity_pct"`
	MaxWindSpeedMps  *float64  `db:"max_wind_speed_mps"`
	ObservationCount int       `db:"observation_count"`
	RecordedAt       time.Time `db:"recorded_at"`
}

func newSummaryRow(date time.Time, stationID string, s weather.DailySummary, at time.Time) summaryRow {
	return summaryRow{
		Date:             dateKey(date),
		StationID:        stationID,
		RainfallMm:       s.RainfallMm,
		TempMinC:         s.TempMinC,
		TempMaxC:         s.TempMaxC,
		AvgHumidityPct:   s.AvgHumidityPct,
		MaxWindSpeedMps:  s.MaxWindSpeedMps,
		ObservationCount: s.ObservationCount,
		RecordedAt:       at,
	}
}

func (r summaryRow) toRecord() weather.DailyRecord {
	day, _ := time.ParseInLocation(dateKeyLayout, r.Date, time.UTC)
	return weather.DailyRecord{
		Date:      day,
		StationID: r.StationID,
		Summary: weather.DailySummary{
			RainfallMm:       r.RainfallMm,
			TempMinC:         r.TempMinC,
			TempMaxC:         r.TempMaxC,
			AvgHumidityPct:   r.AvgHumidityPct,
			MaxWindSpeedMps:  r.MaxWindSpeedMps,
			ObservationCount: r.ObservationCount,
		},
		RecordedAt: r.RecordedAt,
	}
}

// rawRow maps onto daily_raw_payloads.
type rawRow struct {
	Date       string       `db:"date"`
	StationID  string       `db:"station_id"`
	Payload    jsonDocument `db:"payload"`
	RecordedAt time.Time    `db:"recorded_at"`
}

func newRawRow(date time.Time, stationID string, payload json.RawMessage, at time.Time) (rawRow, error) {
	if !json.Valid(payload) {
		return rawRow{}, fmt.Errorf("%w: raw payload is not valid JSON", weather.ErrUpstreamMalformed)
	}
	return rawRow{
		Date:       dateKey(date),
		StationID:  stationID,
		Payload:    append(jsonDocument(nil), payload...),
		RecordedAt: at,
	}, nil
}

// fill copies the payload onto rec.
func (r rawRow) fill(rec *weather.DailyRecord) {
	if len(r.Payload) == 0 {
		return
	}
	rec.Raw = append(json.RawMessage(nil), r.Payload...)
	rec.RawAt = r.RecordedAt
}

// jsonDocument is an opaque JSON value stored in a JSONB (postgres) or TEXT
// (sqlite) column. It is bound as text so lib/pq does not send it as bytea.
type jsonDocument []byte

func (j jsonDocument) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return string(j), nil
}

func (j *jsonDocument) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(jsonDocument(nil), v...)
	case string:
		*j = jsonDocument(v)
	default:
		return fmt.Errorf("jsonDocument: Scan failed, expected []byte or string but got %T", value)
	}
	return nil
}
