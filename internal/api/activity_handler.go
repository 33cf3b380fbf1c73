package api

import (
	"fmt"
	"net/http"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityHandler serves logged activities and the caller's statistics.
type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// ActivityRequest is the body of create and update calls. Nullable fields
// use Optional so an explicit null clears the stored value.
type ActivityRequest struct {
	ActivityType    *domain.ActivityType `json:"activity_type"`
	DurationMinutes *int                 `json:"duration_minutes"`
	DistanceKm      Optional[float64]    `json:"distance_km"`
	CaloriesBurned  Optional[int]        `json:"calories_burned"`
	Notes           *string              `json:"notes"`
	Date            *string              `json:"date"`
	TeamID          Optional[string]     `json:"team_id"`
}

type StatsResponse struct {
	TotalActivities int     `json:"total_activities"`
	TotalDuration   int     `json:"total_duration"`
	TotalCalories   int     `json:"total_calories"`
	TotalDistance   float64 `json:"total_distance"`
}

// input converts the request into service input, reporting malformed
// values as a message for a 400 response.
func (r ActivityRequest) input() (service.ActivityInput, string) {
	in := service.ActivityInput{
		ActivityType:    r.ActivityType,
		DurationMinutes: r.DurationMinutes,
		DistanceKm:      r.DistanceKm.Ptr(),
		CaloriesBurned:  r.CaloriesBurned.Ptr(),
		Notes:           r.Notes,
		ClearDistance:   r.DistanceKm.Null,
		ClearCalories:   r.CaloriesBurned.Null,
		ClearTeam:       r.TeamID.Null,
	}
	if r.Date != nil {
		date, err := domain.ParseActivityDate(*r.Date)
		if err != nil {
			return in, "date must be in YYYY-MM-DD format"
		}
		in.Date = &date
	}
	if raw := r.TeamID.Ptr(); raw != nil {
		if *raw == "" {
			in.ClearTeam = true
		} else {
			teamID, err := primitive.ObjectIDFromHex(*raw)
			if err != nil {
				return in, "team_id is not a valid id"
			}
			in.TeamID = &teamID
		}
	}
	return in, ""
}

// ListActivities godoc
// @Summary List activities
// @Description Staff see every activity, other users only their own. Filters: activity_type, date, team_id.
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ActivityResponse
// @Router /activities [get]
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var q service.ActivityQuery
	if raw := c.Query("activity_type"); raw != "" {
		t := domain.ActivityType(raw)
		if !t.Valid() {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("activity_type %q is not a valid choice", raw))
			return
		}
		q.ActivityType = &t
	}
	if raw := c.Query("date"); raw != "" {
		date, err := domain.ParseActivityDate(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
			return
		}
		q.Date = &date
	}
	if raw := c.Query("team_id"); raw != "" {
		teamID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "team_id is not a valid id")
			return
		}
		q.TeamID = &teamID
	}

	activities, err := h.activityService.List(c.Request.Context(), actor, q)
	if err != nil {
		respondError(c, err, "Failed to retrieve activities")
		return
	}
	c.JSON(http.StatusOK, MapActivitiesToResponse(activities))
}

// CreateActivity godoc
// @Summary Log an activity for the caller
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param activity body ActivityRequest true "Activity fields"
// @Success 201 {object} ActivityResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /activities [post]
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	in, ok := bindActivityInput(c)
	if !ok {
		return
	}
	activity, err := h.activityService.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err, "Failed to create activity")
		return
	}
	c.JSON(http.StatusCreated, MapActivityToResponse(activity))
}

func (h *ActivityHandler) GetActivity(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", service.ErrActivityNotFound)
	if !ok {
		return
	}
	activity, err := h.activityService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "Failed to retrieve activity")
		return
	}
	c.JSON(http.StatusOK, MapActivityToResponse(activity))
}

// UpdateActivity handles PUT (type, duration and date required) and PATCH.
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", service.ErrActivityNotFound)
	if !ok {
		return
	}
	in, ok := bindActivityInput(c)
	if !ok {
		return
	}
	if c.Request.Method == http.MethodPut && (in.ActivityType == nil || in.DurationMinutes == nil || in.Date == nil) {
		abortWithError(c, http.StatusBadRequest, "activity_type, duration_minutes and date are required")
		return
	}
	activity, err := h.activityService.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		respondError(c, err, "Failed to update activity")
		return
	}
	c.JSON(http.StatusOK, MapActivityToResponse(activity))
}

func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", service.ErrActivityNotFound)
	if !ok {
		return
	}
	if err := h.activityService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err, "Failed to delete activity")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ActivityHandler) MyActivities(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	activities, err := h.activityService.MyActivities(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to retrieve activities")
		return
	}
	c.JSON(http.StatusOK, MapActivitiesToResponse(activities))
}

// Stats godoc
// @Summary Totals over the caller's activities
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Router /activities/stats [get]
func (h *ActivityHandler) Stats(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	stats, err := h.activityService.Stats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, StatsResponse{
		TotalActivities: stats.TotalActivities,
		TotalDuration:   stats.TotalDuration,
		TotalCalories:   stats.TotalCalories,
		TotalDistance:   stats.TotalDistance,
	})
}

// TeamActivities lists every activity attributed to ?team_id=.
func (h *ActivityHandler) TeamActivities(c *gin.Context) {
	if _, ok := getActor(c); !ok {
		return
	}
	raw := c.Query("team_id")
	if raw == "" {
		abortWithError(c, http.StatusBadRequest, "team_id is required")
		return
	}
	teamID, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "team_id is not a valid id")
		return
	}
	activities, err := h.activityService.TeamActivities(c.Request.Context(), teamID)
	if err != nil {
		respondError(c, err, "Failed to retrieve team activities")
		return
	}
	c.JSON(http.StatusOK, MapActivitiesToResponse(activities))
}

func bindActivityInput(c *gin.Context) (service.ActivityInput, bool) {
	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return service.ActivityInput{}, false
	}
	in, problem := req.input()
	if problem != "" {
		abortWithError(c, http.StatusBadRequest, problem)
		return service.ActivityInput{}, false
	}
	return in, true
}
