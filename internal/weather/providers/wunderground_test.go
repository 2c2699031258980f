package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/pws-daily-ingest/internal/weather"
)

func santiago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)
	return loc
}

func TestSelectUpstreamToday(t *testing.T) {
	loc := santiago(t)
	p := NewWundergroundProvider(http.DefaultClient, WundergroundConfig{APIKey: "secret", Location: loc})

	// 01:00 UTC on the 2nd is the evening of the 1st in Santiago.
	now := time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC)
	req, err := p.SelectUpstream("ISANTI123", "20240501", now)
	require.NoError(t, err)

	assert.Equal(t, KindToday, req.Kind)
	assert.Equal(t, DefaultWundergroundBaseURL+"/v2/pws/observations/all/1day", req.URL)
	assert.False(t, req.Query.Has("date"))
	assert.Equal(t, "ISANTI123", req.Query.Get("stationId"))
	assert.Equal(t, "json", req.Query.Get("format"))
	assert.Equal(t, "m", req.Query.Get("units"))
	assert.Equal(t, "secret", req.Query.Get("apiKey"))
}

func TestSelectUpstreamHistory(t *testing.T) {
	loc := santiago(t)
	p := NewWundergroundProvider(http.DefaultClient, WundergroundConfig{APIKey: "secret", Location: loc})

	now := time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC)
	for _, date := range []string{"20240502", "20240430", "19991231"} {
		req, err := p.SelectUpstream("ISANTI123", date, now)
		require.NoError(t, err)
		assert.Equal(t, KindHistory, req.Kind, date)
		assert.Equal(t, DefaultWundergroundBaseURL+"/v2/pws/history/all", req.URL)
		assert.Equal(t, date, req.Query.Get("date"))
		assert.Equal(t, "ISANTI123", req.Query.Get("stationId"))
		assert.Equal(t, "m", req.Query.Get("units"))
		assert.Equal(t, "secret", req.Query.Get("apiKey"))
	}
}

func TestSelectUpstreamErrors(t *testing.T) {
	now := time.Now()

	noKey := NewWundergroundProvider(http.DefaultClient, WundergroundConfig{})
	_, err := noKey.SelectUpstream("ISANTI123", "20240501", now)
	assert.ErrorIs(t, err, weather.ErrConfiguration)

	p := NewWundergroundProvider(http.DefaultClient, WundergroundConfig{APIKey: "secret"})
	for _, in := range [][2]string{
		{"", "20240501"},
		{"ISANTI123", ""},
		{"ISANTI123", "2024133"},
		{"ISANTI123", "202405011"},
		{"ISANTI123", "2024-5-1"},
	} {
		_, err := p.SelectUpstream(in[0], in[1], now)
		assert.ErrorIs(t, err, weather.ErrValidation, "%v", in)
	}
}

func TestFetchRoutesAndPassesStatus(t *testing.T) {
	var gotPath, gotUA string
	var gotDate string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		gotDate = r.URL.Query().Get("date")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	p := NewWundergroundProvider(srv.Client(), WundergroundConfig{
		APIKey:    "secret",
		BaseURL:   srv.URL + "/",
		UserAgent: "pws-test/1.0",
		Location:  time.UTC,
		Now:       func() time.Time { return now },
	})

	resp, err := p.Fetch(context.Background(), "ISANTI123", "20240501")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.JSONEq(t, `{"success":false}`, string(resp.Body))
	assert.Equal(t, "/v2/pws/history/all", gotPath)
	assert.Equal(t, "20240501", gotDate)
	assert.Equal(t, "pws-test/1.0", gotUA)

	_, err = p.Fetch(context.Background(), "ISANTI123", "20240510")
	require.NoError(t, err)
	assert.Equal(t, "/v2/pws/observations/all/1day", gotPath)
	assert.Empty(t, gotDate)
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	p := NewWundergroundProvider(&http.Client{Timeout: time.Second}, WundergroundConfig{
		APIKey:  "secret",
		BaseURL: base,
	})

	_, err := p.Fetch(context.Background(), "ISANTI123", "20240501")
	require.ErrorIs(t, err, weather.ErrUpstreamUnreachable)
	assert.NotContains(t, err.Error(), "secret")
	assert.NotContains(t, err.Error(), "apiKey")
}

func TestCallerCancellationDoesNotOpenCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") == "20240501" {
			<-r.Context().Done()
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"observations":[]}`))
	}))
	defer srv.Close()

	p := NewWundergroundProvider(srv.Client(), WundergroundConfig{APIKey: "secret", BaseURL: srv.URL})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		_, err := p.Fetch(cancelled, "ISANTI123", "20240502")
		assert.ErrorIs(t, err, weather.ErrUpstreamUnreachable)
	}

	// Requests abandoned mid-flight by their caller.
	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := p.Fetch(ctx, "ISANTI123", "20240501")
		cancel()
		assert.ErrorIs(t, err, weather.ErrUpstreamUnreachable)
	}

	resp, err := p.Fetch(context.Background(), "ISANTI123", "20240502")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransportFailuresOpenCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	p := NewWundergroundProvider(&http.Client{Timeout: time.Second}, WundergroundConfig{APIKey: "secret", BaseURL: base})
	for i := 0; i < 6; i++ {
		_, err := p.Fetch(context.Background(), "ISANTI123", "20240501")
		require.ErrorIs(t, err, weather.ErrUpstreamUnreachable)
	}

	_, err := p.Fetch(context.Background(), "ISANTI123", "20240501")
	require.ErrorIs(t, err, weather.ErrUpstreamUnreachable)
	assert.Contains(t, err.Error(), errCircuitOpen.Error())
}

func TestFetchHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewWundergroundProvider(srv.Client(), WundergroundConfig{APIKey: "secret", BaseURL: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Fetch(ctx, "ISANTI123", "20240501")
	assert.ErrorIs(t, err, weather.ErrUpstreamUnreachable)
}

func TestFetchWithoutKeyMakesNoCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	p := NewWundergroundProvider(srv.Client(), WundergroundConfig{BaseURL: srv.URL})
	_, err := p.Fetch(context.Background(), "ISANTI123", "20240501")
	assert.ErrorIs(t, err, weather.ErrConfiguration)
	assert.False(t, called)
}
