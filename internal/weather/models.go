package weather

import (
	"encoding/json"
	"time"
)

// DateLayout is the 8-digit date code used by the upstream and the HTTP API.
const DateLayout = "20060102"

// StationDate identifies one station's calendar day.
// StationID is opaque; Date must be a YYYYMMDD code.
type StationDate struct {
	StationID string `validate:"required"`
	Date      string `validate:"required,len=8,number"`
}

// ObservationPayload is the decoded upstream response that summaries are computed from.
// Numbers are held as json.Number.
type ObservationPayload map[string]any

// DailySummary is the fixed set of daily aggregates derived from a payload.
// A nil pointer means the series had no valid readings.
type DailySummary struct {
	RainfallMm       *float64 `json:"rainfallMm"`
	TempMinC         *float64 `json:"tempMinC"`
	TempMaxC         *float64 `json:"tempMaxC"`
	AvgHumidityPct   *float64 `json:"avgHumidityPct"`
	MaxWindSpeedMps  *float64 `json:"maxWindSpeedMps"`
	ObservationCount int      `json:"observationCount"`
}

// DailyRecord is a persisted day: the summary plus the raw payload it came from.
type DailyRecord struct {
	Date       time.Time       `json:"date"` // midnight UTC
	StationID  string          `json:"stationId"`
	Summary    DailySummary    `json:"summary"`
	RecordedAt time.Time       `json:"recordedAt"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	RawAt      time.Time       `json:"rawRecordedAt"`
}

// IngestResult is what a successful ingestion reports back.
type IngestResult struct {
	Date      time.Time
	StationID string
	Summary   DailySummary
}

// HistoryResult is the proxied upstream answer: its status and decoded body.
type HistoryResult struct {
	StatusCode int
	Body       any
}

// ParseDate converts a YYYYMMDD code into midnight UTC of that day.
func ParseDate(code string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, code, time.UTC)
}
