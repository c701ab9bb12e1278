package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"atlas.fit/gazetteer/internal/db"
	"atlas.fit/gazetteer/internal/gazetteer"
	"atlas.fit/gazetteer/internal/hubs"
)

const (
	defaultRunsPageSize = 25
	maxRunsPageSize     = 200
	defaultTopEntities  = 20
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server exposes the read-only gazetteer API: stats, run history and
// hub coverage. All writes go through the CLI, never through HTTP.
type Server struct {
	pool     *db.Pool
	analyzer *hubs.GapAnalyzer
	logger   zerolog.Logger
	opts     Options
}

func NewServer(pool *db.Pool, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8091
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:     pool,
		analyzer: hubs.NewGapAnalyzer(pool, logger),
		logger:   logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/runs", s.handleRuns)
	api.GET("/entities/top", s.handleTopEntities)
	api.GET("/places/:place_id/parents", s.handlePlaceParents)
	api.GET("/hubs/gaps", s.handleHubGaps)
	api.GET("/hubs/predict", s.handleHubPredict)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("gazetteer api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("gazetteer api server stopped")
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.pool.CollectStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("collect stats failed")
		return internalError(c, "Internal server error")
	}
	return success(c, stats)
}

func (s *Server) handleRuns(c echo.Context) error {
	limit := defaultRunsPageSize
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return fail(c, http.StatusBadRequest, "limit must be a positive integer", nil)
		}
		limit = min(parsed, maxRunsPageSize)
	}

	runs, err := s.pool.ListRuns(c.Request().Context(), strings.TrimSpace(c.QueryParam("source")), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list runs failed")
		return internalError(c, "Internal server error")
	}
	return success(c, map[string]any{"runs": runs})
}

func (s *Server) handleTopEntities(c echo.Context) error {
	kind := strings.TrimSpace(c.QueryParam("kind"))
	if kind == "" {
		kind = string(gazetteer.KindCountry)
	}

	n := defaultTopEntities
	if raw := strings.TrimSpace(c.QueryParam("n")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return fail(c, http.StatusBadRequest, "n must be a positive integer", nil)
		}
		n = parsed
	}

	entities, err := s.analyzer.GetTopEntities(c.Request().Context(), kind, n)
	if err != nil {
		if _, kindErr := gazetteer.ParseKind(kind); kindErr != nil {
			return fail(c, http.StatusBadRequest, kindErr.Error(), nil)
		}
		s.logger.Error().Err(err).Msg("top entities failed")
		return internalError(c, "Internal server error")
	}
	return success(c, map[string]any{"entities": entities})
}

func (s *Server) handlePlaceParents(c echo.Context) error {
	placeID, err := strconv.ParseInt(strings.TrimSpace(c.Param("place_id")), 10, 64)
	if err != nil || placeID <= 0 {
		return fail(c, http.StatusBadRequest, "place_id must be a positive integer", nil)
	}
	relation := strings.TrimSpace(c.QueryParam("relation"))
	if relation == "" {
		relation = "capital_of"
	}

	parents, err := s.pool.GetParents(c.Request().Context(), placeID, relation)
	if err != nil {
		s.logger.Error().Err(err).Msg("list parents failed")
		return internalError(c, "Internal server error")
	}
	return success(c, map[string]any{
		"place_id": placeID,
		"relation": relation,
		"parents":  parents,
	})
}

func (s *Server) handleHubGaps(c echo.Context) error {
	host := strings.TrimSpace(c.QueryParam("host"))
	if host == "" {
		return fail(c, http.StatusBadRequest, "host is required", nil)
	}
	kind := strings.TrimSpace(c.QueryParam("kind"))
	if kind == "" {
		kind = string(gazetteer.KindCountry)
	}
	if _, err := gazetteer.ParseKind(kind); err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}

	report, err := s.analyzer.AnalyzeGaps(c.Request().Context(), host, kind)
	if err != nil {
		s.logger.Error().Err(err).Msg("analyze gaps failed")
		return internalError(c, "Internal server error")
	}
	return success(c, report)
}

func (s *Server) handleHubPredict(c echo.Context) error {
	host := strings.TrimSpace(c.QueryParam("host"))
	name := strings.TrimSpace(c.QueryParam("name"))
	if host == "" || name == "" {
		return fail(c, http.StatusBadRequest, "host and name are required", nil)
	}

	urls := hubs.PredictHubURLs(host, name, strings.TrimSpace(c.QueryParam("code")))
	return success(c, map[string]any{"predictions": urls})
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}
