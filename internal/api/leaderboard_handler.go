package api

import (
	"net/http"

	"octofit/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// LeaderboardHandler serves team standings.
type LeaderboardHandler struct {
	leaderboardService service.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

type RefreshResponse struct {
	Detail string `json:"detail"`
	Teams  int    `json:"teams"`
}

func (h *LeaderboardHandler) ListLeaderboards(c *gin.Context) {
	leaderboards, err := h.leaderboardService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve leaderboards")
		return
	}
	c.JSON(http.StatusOK, MapLeaderboardsToResponse(leaderboards))
}

func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	id, ok := parseIDParam(c, "id", service.ErrLeaderboardNotFound)
	if !ok {
		return
	}
	leaderboard, err := h.leaderboardService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to retrieve leaderboard")
		return
	}
	c.JSON(http.StatusOK, MapLeaderboardToResponse(leaderboard))
}

// Rankings godoc
// @Summary Recompute and return team rankings
// @Description Orders teams by total duration, assigns dense ranks and persists them.
// @Tags Leaderboard
// @Produce json
// @Success 200 {array} LeaderboardResponse
// @Failure 503 {object} gin.H "Another ranking is in progress"
// @Router /leaderboard/rankings [get]
func (h *LeaderboardHandler) Rankings(c *gin.Context) {
	ranked, err := h.leaderboardService.Rankings(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to compute rankings")
		return
	}
	c.JSON(http.StatusOK, MapLeaderboardsToResponse(ranked))
}

// Refresh recomputes every team's counters from its activities. Staff only.
func (h *LeaderboardHandler) Refresh(c *gin.Context) {
	count, err := h.leaderboardService.RefreshAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to refresh leaderboards")
		return
	}
	userID, _ := getUserIDFromContext(c)
	log.Info().Int("teams", count).Str("requested_by", userID).Msg("leaderboards refreshed")
	c.JSON(http.StatusOK, RefreshResponse{Detail: "Leaderboards refreshed", Teams: count})
}
