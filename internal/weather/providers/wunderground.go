package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/i474232898/pws-daily-ingest/internal/weather"
	"github.com/sony/gobreaker"
)

const DefaultWundergroundBaseURL = "https://api.weather.com"

var dateCodeRE = regexp.MustCompile(`^\d{8}$`)

// RequestKind tells which upstream endpoint shape a request targets.
type RequestKind string

const (
	// KindToday is the current-day observations endpoint; the upstream infers the date.
	KindToday   RequestKind = "today"
	// KindHistory is the historical-day endpoint and takes an explicit date.
	KindHistory RequestKind = "history"
)

// UpstreamRequest is a fully parameterized upstream call.
type UpstreamRequest struct {
	Kind  RequestKind
	URL   string
	Query url.Values
}

// String returns the URL with its query encoded.
func (r UpstreamRequest) String() string {
	return r.URL + "?" + r.Query.Encode()
}

// WundergroundConfig configures the weather.com PWS v2 provider.
type WundergroundConfig struct {
	APIKey    string
	BaseURL   string
	UserAgent string
	Location  *time.Location // reference timezone for "today"
	Now       func() time.Time
}

// WundergroundProvider implements weather.Upstream for the weather.com PWS API.
type WundergroundProvider struct {
	name      string
	apiKey    string
	baseURL   string
	userAgent string
	loc       *time.Location
	now       func() time.Time
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

func NewWundergroundProvider(client *http.Client, cfg WundergroundConfig) *WundergroundProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "wunderground",
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: countsAsSuccess,
	})

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultWundergroundBaseURL
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &WundergroundProvider{
		name:      "wunderground",
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		loc:       loc,
		now:       now,
		httpCfg: HTTPClientConfig{
			Client: client,
		},
		circuit: cb,
	}
}

func (p *WundergroundProvider) Name() string {
	return p.name
}

// SelectUpstream picks the current-day endpoint when date is today in the
// reference timezone, and the historical endpoint otherwise.
func (p *WundergroundProvider) SelectUpstream(stationID, date string, now time.Time) (UpstreamRequest, error) {
	if p.apiKey == "" {
		return UpstreamRequest{}, fmt.Errorf("%w: weather.com api key is not configured", weather.ErrConfiguration)
	}
	if stationID == "" || date == "" {
		return UpstreamRequest{}, fmt.Errorf("%w: stationId and date are required", weather.ErrValidation)
	}
	if !dateCodeRE.MatchString(date) {
		return UpstreamRequest{}, fmt.Errorf("%w: date must be YYYYMMDD, got %q", weather.ErrValidation, date)
	}

	values := url.Values{}
	values.Set("stationId", stationID)
	values.Set("format", "json")
	values.Set("units", "m")
	values.Set("apiKey", p.apiKey)

	if date == weather.Today(now, p.loc) {
		return UpstreamRequest{
			Kind:  KindToday,
			URL:   p.baseURL + "/v2/pws/observations/all/1day",
			Query: values,
		}, nil
	}

	values.Set("date", date)
	return UpstreamRequest{
		Kind:  KindHistory,
		URL:   p.baseURL + "/v2/pws/history/all",
		Query: values,
	}, nil
}

// Fetch performs the selected request once. Any HTTP status is returned as-is.
func (p *WundergroundProvider) Fetch(ctx context.Context, stationID, date string) (weather.UpstreamResponse, error) {
	upReq, err := p.SelectUpstream(stationID, date, p.now())
	if err != nil {
		return weather.UpstreamResponse{}, err
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, upReq.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if p.userAgent != "" {
			req.Header.Set("User-Agent", p.userAgent)
		}
		return req, nil
	}

	status, body, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.UpstreamResponse{}, err
	}

	return weather.UpstreamResponse{
		StatusCode: status,
		Body:       body,
	}, nil
}
