package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/pws-daily-ingest/internal/weather"
)

// Options tunes the API handlers.
type Options struct {
	// UpstreamTimeout bounds each request's upstream call; zero means no extra bound.
	UpstreamTimeout time.Duration
	Logger          *zap.SugaredLogger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	h := &handlers{service: service, timeout: opts.UpstreamTimeout, logger: logger}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	api := app.Group("/api", noCache)
	api.Get("/wu/history", h.history)
	api.Get("/ingest/daily", h.ingestDaily)
	api.Get("/daily", h.daily)
}

// noCache keeps intermediaries from serving stale intraday observations.
func noCache(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, proxy-revalidate, max-age=0")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
	c.Set("Surrogate-Control", "no-store")
	return c.Next()
}

type handlers struct {
	service *weather.Service
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// stationDateQuery holds the query parameters shared by the upstream routes.
type stationDateQuery struct {
	StationID string `query:"stationId"`
	Date      string `query:"date"`
}

func (h *handlers) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(c.UserContext(), h.timeout)
	}
	return context.WithCancel(c.UserContext())
}

func (h *handlers) history(c *fiber.Ctx) error {
	var q stationDateQuery
	if err := c.QueryParser(&q); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.context(c)
	defer cancel()

	res, err := h.service.FetchHistory(ctx, q.StationID, q.Date)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(res.StatusCode).JSON(res.Body)
}

func (h *handlers) ingestDaily(c *fiber.Ctx) error {
	var q stationDateQuery
	if err := c.QueryParser(&q); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.context(c)
	defer cancel()

	res, err := h.service.IngestDaily(ctx, q.StationID, q.Date)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":               true,
		"fecha":            res.Date.Format("2006-01-02"),
		"stationId":        res.StationID,
		"rainfallMm":       res.Summary.RainfallMm,
		"tempMinC":         res.Summary.TempMinC,
		"tempMaxC":         res.Summary.TempMaxC,
		"avgHumidityPct":   res.Summary.AvgHumidityPct,
		"maxWindSpeedMps":  res.Summary.MaxWindSpeedMps,
		"observationCount": res.Summary.ObservationCount,
	})
}

func (h *handlers) daily(c *fiber.Ctx) error {
	rec, err := h.service.GetDaily(c.UserContext(), c.Query("date"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":         true,
		"fecha":      rec.Date.Format("2006-01-02"),
		"stationId":  rec.StationID,
		"summary":    rec.Summary,
		"recordedAt": rec.RecordedAt,
		"raw":        rec.Raw,
	})
}

func (h *handlers) fail(c *fiber.Ctx, err error) error {
	status, body := errorResponse(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Errorw("request failed", "path", c.Path(), "status", status, "error", err)
	} else {
		h.logger.Warnw("request rejected", "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(body)
}

// errorResponse maps a service error onto an HTTP status and JSON body.
// Details of server-side failures stay in the logs; clients get the detail
// only for problems with their own request.
func errorResponse(err error) (int, fiber.Map) {
	status, body := classify(err)
	body["ok"] = false
	if status < fiber.StatusInternalServerError {
		body["message"] = err.Error()
	} else {
		body["message"] = body["error"]
	}
	return status, body
}

func classify(err error) (int, fiber.Map) {
	var statusErr *weather.UpstreamStatusError
	switch {
	case errors.As(err, &statusErr):
		return statusErr.StatusCode, fiber.Map{
			"error":       "upstream request was rejected",
			"status":      statusErr.StatusCode,
			"bodyPreview": statusErr.BodyPreview,
		}
	case errors.Is(err, weather.ErrValidation):
		return fiber.StatusBadRequest, fiber.Map{"error": "stationId and date (YYYYMMDD) are required"}
	case errors.Is(err, weather.ErrConfiguration):
		return fiber.StatusInternalServerError, fiber.Map{"error": "server is misconfigured"}
	case errors.Is(err, weather.ErrUpstreamUnreachable):
		return fiber.StatusBadGateway, fiber.Map{"error": "upstream is unreachable"}
	case errors.Is(err, weather.ErrUpstreamMalformed):
		return fiber.StatusBadGateway, fiber.Map{"error": "upstream returned malformed data"}
	case errors.Is(err, weather.ErrNoObservations):
		return fiber.StatusInternalServerError, fiber.Map{"error": "no observations for requested day"}
	case errors.Is(err, weather.ErrNotFound):
		return fiber.StatusNotFound, fiber.Map{"error": "no daily record for requested date"}
	case errors.Is(err, weather.ErrStoreUnavailable):
		return fiber.StatusInternalServerError, fiber.Map{"error": "daily store is unavailable"}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fiber.Map{"error": fe.Message}
	}
	return fiber.StatusInternalServerError, fiber.Map{"error": "internal error"}
}

// ErrorHandler is the app-wide fallback for errors that escape a handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, body := errorResponse(err)
	return c.Status(status).JSON(body)
}
