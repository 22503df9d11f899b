package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/common"
	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/datasync"
	"github.com/AccelByte/extend-completion-contest/pkg/source"
	"github.com/gin-gonic/gin"
)

type syncOptionsRequest struct {
	CompletionStatus source.CompletionStatus `json:"completionStatus"`
	UnlockCutoff     *time.Time              `json:"unlockCutoff"`
	ContestStatus    source.ContestStatus    `json:"contestStatus"`
	Timezone         source.Timezone         `json:"timezone"`
	Platforms        []string                `json:"platforms"`
}

func (r syncOptionsRequest) options() (*source.Options, error) {
	opts := &source.Options{
		CompletionStatus: r.CompletionStatus,
		UnlockCutoff:     r.UnlockCutoff,
		ContestStatus:    r.ContestStatus,
		Timezone:         r.Timezone,
	}
	if opts.CompletionStatus == "" {
		opts.CompletionStatus = source.CompletionAll
	}
	for _, name := range r.Platforms {
		p, ok := contest.ParsePlatform(name)
		if !ok {
			return nil, contest.InvalidStatef("unknown platform %q", name)
		}
		opts.Platforms = append(opts.Platforms, p)
	}
	return opts, nil
}

// Sync runs one sync under the named profile. The optional player query
// parameter narrows the run to one player; the custom profile reads its
// options from the body.
func (h *Handler) Sync(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.Sync")
	defer scope.Finish()

	profile, err := datasync.ParseProfile(c.Param("profile"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	scope.Tag("sync.profile", string(profile))

	var custom *source.Options
	if c.Request.ContentLength > 0 {
		var req syncOptionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if custom, err = req.options(); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	opts, err := datasync.ProfileOptions(profile, h.now(), custom)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	var players []contest.Player
	if raw := c.Query("player"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "invalid player")
			return
		}
		p, err := h.store.Player(scope.Ctx, id)
		if err != nil {
			fail(c, scope, err)
			return
		}
		players = []contest.Player{*p}
	} else {
		roster, err := h.store.Players(scope.Ctx)
		if err != nil {
			fail(c, scope, err)
			return
		}
		players = datasync.SelectPlayers(profile, roster)
	}

	run, err := h.synchronizer.Sync(scope.Ctx, players, profile, opts)
	if err != nil {
		fail(c, scope, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// SyncRuns lists the most recent sync runs.
func (h *Handler) SyncRuns(c *gin.Context) {
	scope := common.GetScopeFromContext(c.Request.Context(), "Handler.SyncRuns")
	defer scope.Finish()

	limit := DefaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = v
	}

	runs, err := h.synchronizer.Runs(scope.Ctx, limit)
	if err != nil {
		fail(c, scope, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}
