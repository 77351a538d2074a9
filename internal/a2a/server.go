// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package a2a serves the research orchestrator over HTTP for other agents:
// an agent card for discovery, a task endpoint that runs one research
// request, and lookup of finished tasks by session id.
package a2a

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/research-agent/internal/report"
	"github.com/pdiddy/research-agent/internal/research"
	"github.com/pdiddy/research-agent/internal/taskstore"
	"github.com/pdiddy/research-agent/pkg/types"
)

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 15 * time.Second

// Runner executes one research request. *research.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req research.Request) (types.ResearchReport, error)
}

// TaskStore records finished tasks. *taskstore.Store satisfies it.
type TaskStore interface {
	Save(ctx context.Context, t taskstore.Task) error
	Get(ctx context.Context, id string) (*taskstore.Task, error)
}

// Server is the A2A HTTP server.
type Server struct {
	runner  Runner
	store   TaskStore
	cfg     types.ServerConfig
	card    AgentCard
	log     *zap.Logger
	limiter *rateLimiter

	// newID generates session ids.
	newID func() string
}

// NewServer returns a server running requests through runner. store may be
// nil, in which case tasks are not recorded and GET /a2a/task/:id answers 404.
func NewServer(runner Runner, store TaskStore, cfg types.ServerConfig, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		runner:  runner,
		store:   store,
		cfg:     cfg,
		card:    NewAgentCard(cfg, version),
		log:     log,
		limiter: newRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour),
		newID:   uuid.NewString,
	}
}

// Card returns the agent card the server advertises.
func (s *Server) Card() AgentCard { return s.card }

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/health", s.health)
	r.GET("/a2a/info", s.info)

	tasks := r.Group("/a2a/task", requireAPIKey(s.cfg.APIKeys))
	tasks.POST("", limit(s.limiter), s.createTask)
	tasks.GET("/:id", s.getTask)
	return r
}

// Run listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if len(s.cfg.APIKeys) == 0 {
		s.log.Warn("no API keys configured: /a2a/task accepts unauthenticated requests")
	}
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("A2A server listening", zap.String("addr", s.cfg.Addr), zap.String("card", s.card.URL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serving on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down A2A server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) info(c *gin.Context) {
	c.JSON(http.StatusOK, s.card)
}

// TaskResponse is the body of a completed POST /a2a/task.
type TaskResponse struct {
	SessionID      string               `json:"session_id"`
	Status         taskstore.Status     `json:"status"`
	ResearchReport string               `json:"research_report"`
	Report         types.ResearchReport `json:"report"`
}

func (s *Server) createTask(c *gin.Context) {
	var req research.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	id := s.newID()
	log := s.log.With(zap.String("session_id", id))
	rep, err := s.runner.Run(c.Request.Context(), req)
	if err != nil {
		s.taskFailed(c, log, id, req, err)
		return
	}

	s.save(c.Request.Context(), log, taskstore.Task{
		ID:        id,
		Query:     rep.Query,
		Mode:      rep.Methodology.SearchMode,
		Status:    taskstore.StatusCompleted,
		CreatedAt: rep.GeneratedAt,
		Report:    &rep,
	})
	c.JSON(http.StatusOK, TaskResponse{
		SessionID:      id,
		Status:         taskstore.StatusCompleted,
		ResearchReport: report.MarkdownString(rep),
		Report:         rep,
	})
}

func (s *Server) taskFailed(c *gin.Context, log *zap.Logger, id string, req research.Request, err error) {
	var all *research.AllProvidersFailedError
	switch {
	case errors.As(err, &all):
		mode, _ := research.ParseMode(string(req.Mode))
		s.save(c.Request.Context(), log, taskstore.Task{
			ID:     id,
			Query:  req.Query,
			Mode:   mode,
			Status: taskstore.StatusFailed,
			Error:  err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{
			"session_id": id,
			"status":     taskstore.StatusFailed,
			"error":      err.Error(),
			"failures":   all.Failures(),
		})
	case badRequest(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("research task failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "research failed"})
	}
}

func badRequest(err error) bool {
	for _, target := range []error{
		research.ErrEmptyQuery,
		research.ErrNoProviders,
		research.ErrUnknownProvider,
		research.ErrUnknownMode,
		research.ErrDomainsRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) save(ctx context.Context, log *zap.Logger, t taskstore.Task) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(context.WithoutCancel(ctx), t); err != nil {
		log.Error("saving task", zap.Error(err))
	}
}

func (s *Server) getTask(c *gin.Context) {
	id := c.Param("id")
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task store disabled"})
		return
	}
	t, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, taskstore.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading task"})
		return
	}

	body := gin.H{"session_id": t.ID, "status": t.Status, "task": t}
	if t.Report != nil {
		body["research_report"] = report.MarkdownString(*t.Report)
	}
	c.JSON(http.StatusOK, body)
}
