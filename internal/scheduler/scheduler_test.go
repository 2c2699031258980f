package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/pws-daily-ingest/internal/weather"
)

type recordingIngester struct {
	station, date string
	calls         int
	err           error
}

func (r *recordingIngester) IngestDaily(_ context.Context, stationID, date string) (weather.IngestResult, error) {
	r.calls++
	r.station, r.date = stationID, date
	return weather.IngestResult{StationID: stationID}, r.err
}

func TestStartDisabled(t *testing.T) {
	for _, cfg := range []Config{
		{Enabled: false, StationID: "ISANTI123"},
		{Enabled: true, StationID: ""},
	} {
		s := New(cfg, &recordingIngester{}, nil)
		require.NoError(t, s.Start())
		assert.Zero(t, s.Jobs())
		s.Stop()
	}
}

func TestStartRegistersDailyJob(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)

	s := New(Config{Enabled: true, StationID: "ISANTI123", Location: loc}, &recordingIngester{}, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, 1, s.Jobs())
}

func TestRunOnceUsesReferenceToday(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)

	ing := &recordingIngester{}
	s := New(Config{Enabled: true, StationID: "ISANTI123", Location: loc}, ing, nil)
	// 02:05 in Santiago on May 2nd is 06:05 UTC.
	s.now = func() time.Time { return time.Date(2024, 5, 2, 6, 5, 0, 0, time.UTC) }

	s.RunOnce(context.Background())
	assert.Equal(t, 1, ing.calls)
	assert.Equal(t, "ISANTI123", ing.station)
	assert.Equal(t, "20240502", ing.date)
}

func TestRunOnceSwallowsFailures(t *testing.T) {
	ing := &recordingIngester{err: errors.New("upstream down")}
	s := New(Config{Enabled: true, StationID: "ISANTI123"}, ing, nil)

	assert.NotPanics(t, func() { s.RunOnce(context.Background()) })
	assert.Equal(t, 1, ing.calls)
}
