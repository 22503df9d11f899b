package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/common"
	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/gin-gonic/gin"
)

type createPlayerRequest struct {
	Gamertag     string     `json:"gamertag" binding:"required"`
	ExternalID   int        `json:"externalId" binding:"required,gt=0"`
	RegisteredAt *time.Time `json:"registeredAt"`
}

// ListPlayers returns the roster.
func (h *Handler) ListPlayers(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.ListPlayers")
	defer scope.Finish()

	players, err := h.store.Players(scope.Ctx)
	if err != nil {
		fail(c, scope, err)
		return
	}
	c.JSON(http.StatusOK, players)
}

// CreatePlayer registers a player. RegisteredAt defaults to now.
func (h *Handler) CreatePlayer(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.CreatePlayer")
	defer scope.Finish()

	var req createPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	p := &contest.Player{
		Gamertag:     strings.TrimSpace(req.Gamertag),
		ExternalID:   req.ExternalID,
		RegisteredAt: h.now().UTC(),
	}
	if req.RegisteredAt != nil {
		p.RegisteredAt = req.RegisteredAt.UTC()
	}
	if err := h.store.CreatePlayer(scope.Ctx, p); err != nil {
		fail(c, scope, err)
		return
	}

	scope.WithPlayer(p.ID).Log.Infof("registered player %s", p.Gamertag)
	c.JSON(http.StatusCreated, p)
}

// PlayerProgress returns a player's alphabet, odd job and participation progress.
func (h *Handler) PlayerProgress(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.PlayerProgress")
	defer scope.Finish()

	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	scope.WithPlayer(id)

	progress, err := h.aggregator.Progress(scope.Ctx, id)
	if err != nil {
		fail(c, scope, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// PlayerChallenges returns a player's random challenge history.
func (h *Handler) PlayerChallenges(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.PlayerChallenges")
	defer scope.Finish()

	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	scope.WithPlayer(id)

	history, err := h.assigner.History(scope.Ctx, id)
	if err != nil {
		fail(c, scope, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
