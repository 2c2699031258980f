package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/pws-daily-ingest/internal/weather"
)

// DailyAt is the wall-clock time, in the reference timezone, of the daily run.
const DailyAt = "02:05"

// runTimeout bounds a single scheduled ingestion.
const runTimeout = 2 * time.Minute

// Ingester is the ingestion entry point the scheduler drives.
type Ingester interface {
	IngestDaily(ctx context.Context, stationID, date string) (weather.IngestResult, error)
}

// Config controls the daily trigger.
type Config struct {
	Enabled   bool
	StationID string
	Location  *time.Location
}

// Scheduler runs one ingestion per day for the configured station.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ingester  Ingester
	cfg       Config
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// New creates a new Scheduler.
func New(cfg Config, ingester Ingester, logger *zap.SugaredLogger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		ingester:  ingester,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the daily job and starts the underlying scheduler. It does
// nothing unless the trigger is enabled and a station is configured.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled || s.cfg.StationID == "" {
		s.logger.Infow("scheduler: daily ingestion disabled",
			"enabled", s.cfg.Enabled,
			"station", s.cfg.StationID,
		)
		return nil
	}

	_, err := s.scheduler.Every(1).Day().At(DailyAt).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Infow("scheduler: daily ingestion scheduled",
		"at", DailyAt,
		"tz", s.cfg.Location.String(),
		"station", s.cfg.StationID,
	)
	return nil
}

// RunOnce ingests today (in the reference timezone) for the configured
// station. Failures are logged and left for the next run.
func (s *Scheduler) RunOnce(ctx context.Context) {
	runID := uuid.NewString()
	date := weather.Today(s.now(), s.cfg.Location)
	log := s.logger.With("run_id", runID, "station", s.cfg.StationID, "date", date)

	log.Info("scheduler: running daily ingestion")
	res, err := s.ingester.IngestDaily(ctx, s.cfg.StationID, date)
	if err != nil {
		log.Errorw("scheduler: daily ingestion failed", "error", err)
		return
	}
	log.Infow("scheduler: daily ingestion completed", "observations", res.Summary.ObservationCount)
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
