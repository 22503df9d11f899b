// Package handler exposes the contest engine over a gin HTTP API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/challenge"
	"github.com/AccelByte/extend-completion-contest/pkg/common"
	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/datasync"
	"github.com/AccelByte/extend-completion-contest/pkg/leaderboard"
	"github.com/AccelByte/extend-completion-contest/pkg/monthly"
	"github.com/AccelByte/extend-completion-contest/pkg/parser"
	"github.com/AccelByte/extend-completion-contest/pkg/scoring"
	"github.com/AccelByte/extend-completion-contest/pkg/state"
	"github.com/AccelByte/extend-completion-contest/pkg/store"
	"github.com/gin-gonic/gin"
)

const (
	// Default number of sync runs listed
	DefaultRunsLimit = 20
)

// HealthChecker reports whether the service's dependencies are reachable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Services are the contest components served by the API.
type Services struct {
	Store        *store.Store
	Synchronizer *datasync.Synchronizer
	Months       []*monthly.Evaluator
	Aggregator   *leaderboard.Aggregator
	Assigner     *challenge.Assigner
	Scorer       scoring.Engine
	Health       HealthChecker
}

// Handler serves the contest HTTP API.
type Handler struct {
	store        *store.Store
	synchronizer *datasync.Synchronizer
	months       map[int]*monthly.Evaluator
	aggregator   *leaderboard.Aggregator
	assigner     *challenge.Assigner
	scorer       scoring.Engine
	health       HealthChecker
	now          func() time.Time
}

// New creates a Handler.
func New(s Services) *Handler {
	months := make(map[int]*monthly.Evaluator, len(s.Months))
	for _, e := range s.Months {
		months[e.Month().Challenge] = e
	}
	return &Handler{
		store:        s.Store,
		synchronizer: s.Synchronizer,
		months:       months,
		aggregator:   s.Aggregator,
		assigner:     s.Assigner,
		scorer:       s.Scorer,
		health:       s.Health,
		now:          time.Now,
	}
}

// RegisterRoutes mounts every route on router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/healthz", h.Healthz)

	v1 := router.Group("/v1")
	{
		players := v1.Group("/players")
		players.GET("", h.ListPlayers)
		players.POST("", h.CreatePlayer)
		players.GET("/:id/progress", h.PlayerProgress)
		players.GET("/:id/challenges", h.PlayerChallenges)

		v1.POST("/sync/:profile", h.Sync)
		v1.GET("/sync/runs", h.SyncRuns)

		v1.GET("/value", h.Value)

		v1.POST("/monthly/:challenge/evaluate", h.EvaluateMonth)
		v1.GET("/monthly/:challenge", h.MonthLeaderboard)

		v1.POST("/yearly/recalculate", h.RecalculateYear)
		v1.GET("/yearly", h.YearLeaderboard)

		v1.POST("/random/assign", h.AssignRandom)
	}
}

// Healthz reports 200 while Redis and the database answer.
func (h *Handler) Healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Check(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var pe *parser.ParseError
	switch {
	case errors.Is(err, contest.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contest.ErrInvalidState), errors.Is(err, state.ErrLocked):
		return http.StatusConflict
	case errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.Is(err, contest.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail records err on the scope and writes the mapped error response.
func fail(c *gin.Context, scope *common.Scope, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		scope.TraceError(err)
		scope.Log.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	} else {
		scope.Log.Warnf("%s %s rejected: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}
