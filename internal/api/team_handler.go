package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"octofit/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeamHandler serves teams and their membership actions.
type TeamHandler struct {
	teamService service.TeamService
}

func NewTeamHandler(teamService service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

type TeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type MemberRequest struct {
	// Decoded loosely: a numeric id is an unknown user, not a missing one.
	UserID any `json:"user_id" swaggertype:"string"`
}

func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, err := h.teamService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve teams")
		return
	}
	c.JSON(http.StatusOK, MapTeamsToResponse(teams))
}

func (h *TeamHandler) GetTeam(c *gin.Context) {
	id, ok := parseIDParam(c, "id", service.ErrTeamNotFound)
	if !ok {
		return
	}
	team, err := h.teamService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to retrieve team")
		return
	}
	c.JSON(http.StatusOK, MapTeamToResponse(team))
}

// CreateTeam godoc
// @Summary Create a team
// @Description The caller becomes the creator and first member.
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param team body TeamRequest true "Team fields"
// @Success 201 {object} TeamResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if req.Name == nil {
		abortWithError(c, http.StatusBadRequest, "name is required")
		return
	}
	team, err := h.teamService.Create(c.Request.Context(), actor, service.TeamInput{Name: req.Name, Description: req.Description})
	if err != nil {
		respondError(c, err, "Failed to create team")
		return
	}
	c.JSON(http.StatusCreated, MapTeamToResponse(team))
}

// UpdateTeam handles PUT (name required) and PATCH (partial).
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", service.ErrTeamNotFound)
	if !ok {
		return
	}
	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if c.Request.Method == http.MethodPut && req.Name == nil {
		abortWithError(c, http.StatusBadRequest, "name is required")
		return
	}
	team, err := h.teamService.Update(c.Request.Context(), actor, id, service.TeamInput{Name: req.Name, Description: req.Description})
	if err != nil {
		respondError(c, err, "Failed to update team")
		return
	}
	c.JSON(http.StatusOK, MapTeamToResponse(team))
}

func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", service.ErrTeamNotFound)
	if !ok {
		return
	}
	if err := h.teamService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err, "Failed to delete team")
		return
	}
	c.Status(http.StatusNoContent)
}

// AddMember godoc
// @Summary Add a user to a team
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Team ID"
// @Param member body MemberRequest true "User to add"
// @Success 200 {object} DetailResponse
// @Failure 400 {object} gin.H "user_id is required"
// @Failure 404 {object} gin.H "Team or user not found"
// @Router /teams/{id}/add_member [post]
func (h *TeamHandler) AddMember(c *gin.Context) {
	teamID, userID, ok := h.memberTarget(c)
	if !ok {
		return
	}
	if err := h.teamService.AddMember(c.Request.Context(), teamID, userID); err != nil {
		respondError(c, err, "Failed to add member")
		return
	}
	c.JSON(http.StatusOK, DetailResponse{Detail: "Member added successfully"})
}

func (h *TeamHandler) RemoveMember(c *gin.Context) {
	teamID, userID, ok := h.memberTarget(c)
	if !ok {
		return
	}
	if err := h.teamService.RemoveMember(c.Request.Context(), teamID, userID); err != nil {
		respondError(c, err, "Failed to remove member")
		return
	}
	c.JSON(http.StatusOK, DetailResponse{Detail: "Member removed successfully"})
}

// memberTarget reads the team path id and the user_id body field.
func (h *TeamHandler) memberTarget(c *gin.Context) (primitive.ObjectID, primitive.ObjectID, bool) {
	if _, ok := getActor(c); !ok {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	teamID, ok := parseIDParam(c, "id", service.ErrTeamNotFound)
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	var req MemberRequest
	// An empty body is the same as a missing user_id; broken JSON is not.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return primitive.NilObjectID, primitive.NilObjectID, false
	}

	var raw string
	switch v := req.UserID.(type) {
	case nil:
	case string:
		raw = v
	default:
		// Integer ids from older clients never match an ObjectID.
		abortWithError(c, http.StatusNotFound, service.ErrUserNotFound.Error())
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	if raw == "" {
		abortWithError(c, http.StatusBadRequest, "user_id is required")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		abortWithError(c, http.StatusNotFound, service.ErrUserNotFound.Error())
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return teamID, userID, true
}
