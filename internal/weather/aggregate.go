package weather

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Per-series paths into a single observation.
var (
	precipPath   = []string{"metric", "precipTotal"}
	tempPath     = []string{"metric", "temp"}
	windPath     = []string{"metric", "windSpeed"}
	humidityPath = []string{"humidity"}
)

// Summarize reduces the payload's observations into daily aggregates.
// The boolean is false when the payload has no observation list or it is empty.
//
// Precipitation is a running daily total on each observation, so the day's
// rainfall is its maximum rather than its sum.
func Summarize(payload ObservationPayload) (DailySummary, bool) {
	raw, ok := payload["observations"]
	if !ok {
		return DailySummary{}, false
	}
	observations, ok := raw.([]any)
	if !ok || len(observations) == 0 {
		return DailySummary{}, false
	}

	var precip, temp, wind, humidity series
	for _, o := range observations {
		obs, ok := o.(map[string]any)
		if !ok {
			continue
		}
		precip.add(lookup(obs, precipPath))
		temp.add(lookup(obs, tempPath))
		wind.add(lookup(obs, windPath))
		humidity.add(lookup(obs, humidityPath))
	}

	return DailySummary{
		RainfallMm:       precip.max(),
		TempMinC:         temp.min(),
		TempMaxC:         temp.max(),
		AvgHumidityPct:   humidity.mean(),
		MaxWindSpeedMps:  wind.max(),
		ObservationCount: len(observations),
	}, true
}

// series accumulates the finite values of one field across observations.
type series struct {
	n           int
	sum, lo, hi float64
}

func (s *series) add(v any) {
	f, ok := toFinite(v)
	if !ok {
		return
	}
	if s.n == 0 || f < s.lo {
		s.lo = f
	}
	if s.n == 0 || f > s.hi {
		s.hi = f
	}
	s.sum += f
	s.n++
}

func (s *series) min() *float64 {
	if s.n == 0 {
		return nil
	}
	v := s.lo
	return &v
}

func (s *series) max() *float64 {
	if s.n == 0 {
		return nil
	}
	v := s.hi
	return &v
}

func (s *series) mean() *float64 {
	if s.n == 0 {
		return nil
	}
	v := s.sum / float64(s.n)
	return &v
}

func lookup(obs map[string]any, path []string) any {
	var cur any = obs
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

// toFinite coerces JSON scalars to a finite float. Missing, null, boolean and
// non-numeric values are rejected rather than read as zero.
func toFinite(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
