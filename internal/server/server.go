package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coursechat/internal/rag"
)

// System is the orchestrator surface the HTTP layer depends on.
type System interface {
	Query(ctx context.Context, query, sessionID string) (rag.QueryResult, error)
	CourseAnalytics(ctx context.Context) (rag.Analytics, error)
	ClearSession(ctx context.Context, id string) error
}

// Server exposes the question-answering API over HTTP.
type Server struct {
	echo   *echo.Echo
	system System
	logger *log.Logger
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(system System, gatherer prometheus.Gatherer, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[HTTP] ", log.LstdFlags)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{echo: e, system: system, logger: logger}
	e.HTTPErrorHandler = s.errorHandler

	e.POST("/api/query", s.handleQuery)
	e.GET("/api/courses", s.handleCourses)
	e.DELETE("/api/sessions/:id", s.handleClearSession)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) Start(addr string) error {
	s.logger.Printf("listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "query is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	result, err := s.system.Query(ctx, req.Query, req.SessionID)
	if err != nil {
		s.logger.Printf("query failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to answer query"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleCourses(c echo.Context) error {
	analytics, err := s.system.CourseAnalytics(c.Request().Context())
	if err != nil {
		s.logger.Printf("course analytics failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load course statistics"})
	}
	return c.JSON(http.StatusOK, analytics)
}

func (s *Server) handleClearSession(c echo.Context) error {
	id := c.Param("id")
	if err := s.system.ClearSession(c.Request().Context(), id); err != nil {
		s.logger.Printf("clear session %s failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to clear session"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code >= http.StatusInternalServerError {
		s.logger.Printf("request %s %s failed: %v", c.Request().Method, c.Request().URL.Path, err)
	}
	if !c.Response().Committed {
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}
