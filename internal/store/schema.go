package store

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS daily_summaries (
    date DATE PRIMARY KEY,
    station_id TEXT NOT NULL,
    rainfall_mm DOUBLE PRECISION NULL,
    temp_min_c DOUBLE PRECISION NULL,
    temp_max_c DOUBLE PRECISION NULL,
    avg_humidity_pct DOUBLE PRECISION NULL,
    max_wind_speed_mps DOUBLE PRECISION NULL,
    observation_count INTEGER NOT NULL DEFAULT 0,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`,
	`CREATE TABLE IF NOT EXISTS daily_raw_payloads (
    date DATE PRIMARY KEY,
    station_id TEXT NOT NULL,
    payload JSONB NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS daily_summaries (
    date DATE PRIMARY KEY,
    station_id TEXT NOT NULL,
    rainfall_mm REAL NULL,
    temp_min_c REAL NULL,
    temp_max_c REAL NULL,
    avg_humidity_pct REAL NULL,
    max_wind_speed_mps REAL NULL,
    observation_count INTEGER NOT NULL DEFAULT 0,
    recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	`CREATE TABLE IF NOT EXISTS daily_raw_payloads (
    date DATE PRIMARY KEY,
    station_id TEXT NOT NULL,
    payload TEXT NOT NULL,
    recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
}

func schemaFor(d Dialect) []string {
	if d == DialectSQLite {
		return sqliteSchema
	}
	return postgresSchema
}
