package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/pws-daily-ingest/internal/common"
)

// Environment names accepted for each setting, in lookup order. Several
// deployments used different names over time; the first non-empty one wins.
var (
	DatabaseURLKeys     = []string{"DATABASE_URL", "POSTGRES_URL", "PG_URL", "DB_URL"}
	WUAPIKeyKeys        = []string{"WU_API_KEY", "WUNDERGROUND_API_KEY", "WEATHER_API_KEY", "API_KEY"}
	IngestEnabledKeys   = []string{"INGEST_ENABLED", "ENABLE_DAILY_INGEST", "CRON_ENABLED"}
	IngestStationIDKeys = []string{"INGEST_STATION_ID", "WU_STATION_ID", "STATION_ID"}
	UserAgentKeys       = []string{"USER_AGENT", "WU_USER_AGENT", "HTTP_USER_AGENT"}
	PortKeys            = []string{"PORT", "HTTP_PORT"}
	ReferenceTZKeys     = []string{"REFERENCE_TZ", "TZ_REFERENCE"}
	UpstreamTimeoutKeys = []string{"UPSTREAM_TIMEOUT"}
	WUBaseURLKeys       = []string{"WU_BASE_URL"}
	StaticDirKeys       = []string{"STATIC_DIR", "PUBLIC_DIR"}
	DebugKeys           = []string{"DEBUG", "LOG_DEBUG"}
)

const (
	DefaultUserAgent       = "pws-daily-ingest/1.0"
	DefaultPort            = "8080"
	DefaultReferenceTZ     = "America/Santiago"
	DefaultUpstreamTimeout = 20 * time.Second
	DefaultStaticDir       = "./public"
)

// AppConfig is resolved once at startup and treated as read-only afterwards.
type AppConfig struct {
	// DatabaseURL empty disables persistence and the ingestion routes.
	DatabaseURL string

	// WUAPIKey empty only fails the routes that call the upstream.
	WUAPIKey  string
	WUBaseURL string
	UserAgent string

	// Scheduled ingestion runs only when enabled and a station is set.
	IngestEnabled   bool
	IngestStationID string

	// ReferenceTZ decides what "today" means for routing and scheduling.
	ReferenceTZ     *time.Location
	UpstreamTimeout time.Duration

	Port      string
	StaticDir string
	Debug     bool
}

// PersistenceEnabled reports whether a database was configured.
func (c *AppConfig) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}

// SchedulerEnabled reports whether the daily job should be registered.
func (c *AppConfig) SchedulerEnabled() bool {
	return c.IngestEnabled && c.IngestStationID != ""
}

// Load reads .env (if any) and the environment.
func Load() (*AppConfig, error) {
	// A missing .env file is normal in containers.
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup resolves configuration through lookup, which has the shape of os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (*AppConfig, error) {
	get := func(keys []string) string {
		values := make([]string, 0, len(keys))
		for _, k := range keys {
			if v, ok := lookup(k); ok {
				values = append(values, v)
			}
		}
		return common.FirstNonEmpty(values...)
	}
	getDefault := func(keys []string, def string) string {
		if v := get(keys); v != "" {
			return v
		}
		return def
	}

	cfg := &AppConfig{
		DatabaseURL:     get(DatabaseURLKeys),
		WUAPIKey:        get(WUAPIKeyKeys),
		WUBaseURL:       get(WUBaseURLKeys),
		UserAgent:       getDefault(UserAgentKeys, DefaultUserAgent),
		IngestEnabled:   parseBool(get(IngestEnabledKeys)),
		IngestStationID: get(IngestStationIDKeys),
		Port:            getDefault(PortKeys, DefaultPort),
		StaticDir:       getDefault(StaticDirKeys, DefaultStaticDir),
		Debug:           parseBool(get(DebugKeys)),
	}

	tzName := getDefault(ReferenceTZKeys, DefaultReferenceTZ)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid REFERENCE_TZ %q: %w", tzName, err)
	}
	cfg.ReferenceTZ = loc

	cfg.UpstreamTimeout = DefaultUpstreamTimeout
	if v := get(UpstreamTimeoutKeys); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: must be positive, got %s", d)
		}
		cfg.UpstreamTimeout = d
	}

	return cfg, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on", "y":
		return true
	default:
		return false
	}
}
