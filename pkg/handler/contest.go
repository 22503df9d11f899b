package handler

import (
	"net/http"
	"strconv"

	"github.com/AccelByte/extend-completion-contest/pkg/challenge"
	"github.com/AccelByte/extend-completion-contest/pkg/common"
	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/monthly"
	"github.com/gin-gonic/gin"
)

// Value computes the points a game would score. ratio and estimate are
// optional; a missing estimate reports ok=false.
func (h *Handler) Value(c *gin.Context) {
	platform, ok := contest.ParsePlatform(c.Query("platform"))
	if !ok {
		badRequest(c, "invalid platform")
		return
	}
	ratio, ok := floatQuery(c, "ratio")
	if !ok {
		return
	}
	estimate, ok := floatQuery(c, "estimate")
	if !ok {
		return
	}

	value, ok := h.scorer.CalcBcmValue(platform, ratio, estimate)
	c.JSON(http.StatusOK, gin.H{"value": value, "ok": ok})
}

func floatQuery(c *gin.Context, name string) (*float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}

func (h *Handler) month(c *gin.Context) (*monthly.Evaluator, bool) {
	n, err := strconv.Atoi(c.Param("challenge"))
	if err != nil {
		badRequest(c, "invalid challenge")
		return nil, false
	}
	e, ok := h.months[n]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": contest.NotFoundf("challenge %d", n).Error()})
		return nil, false
	}
	return e, true
}

// EvaluateMonth recomputes one monthly challenge for the whole roster.
func (h *Handler) EvaluateMonth(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.EvaluateMonth")
	defer scope.Finish()

	e, ok := h.month(c)
	if !ok {
		return
	}
	scope.WithChallenge(e.Month().Challenge)

	players, err := h.store.Players(scope.Ctx)
	if err != nil {
		fail(c, scope, err)
		return
	}
	result, err := e.Evaluate(scope.Ctx, players)
	if err != nil {
		fail(c, scope, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MonthLeaderboard returns a monthly challenge's persisted recaps.
func (h *Handler) MonthLeaderboard(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.MonthLeaderboard")
	defer scope.Finish()

	e, ok := h.month(c)
	if !ok {
		return
	}
	recaps, err := e.Leaderboard(scope.Ctx)
	if err != nil {
		fail(c, scope, err)
		return
	}
	c.JSON(http.StatusOK, recaps)
}

// RecalculateYear rebuilds the yearly leaderboard.
func (h *Handler) RecalculateYear(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.RecalculateYear")
	defer scope.Finish()

	players, err := h.store.Players(scope.Ctx)
	if err != nil {
		fail(c, scope, err)
		return
	}
	stats, err := h.aggregator.Recalculate(scope.Ctx, players)
	if err != nil {
		fail(c, scope, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// YearLeaderboard returns the persisted yearly standings.
func (h *Handler) YearLeaderboard(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.YearLeaderboard")
	defer scope.Finish()

	stats, err := h.aggregator.Standings(scope.Ctx)
	if err != nil {
		fail(c, scope, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AssignRandom issues, rerolls or retries a random challenge. A zero
// playerId picks an eligible player at random.
func (h *Handler) AssignRandom(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.AssignRandom")
	defer scope.Finish()

	var req challenge.Request
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if req.PlayerID < 0 {
		badRequest(c, "invalid playerId")
		return
	}

	result, err := h.assigner.Assign(scope.Ctx, req)
	if err != nil {
		fail(c, scope, err)
		return
	}
	scope.WithPlayer(result.Issue.PlayerID).Log.Infof("random challenge %d issued", result.Issue.Challenge)
	c.JSON(http.StatusOK, result)
}
