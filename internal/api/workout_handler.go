package api

import (
	"net/http"

	"octofit/tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// WorkoutHandler serves workout suggestions.
type WorkoutHandler struct {
	workoutService service.WorkoutService
}

func NewWorkoutHandler(workoutService service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

func (h *WorkoutHandler) ListWorkouts(c *gin.Context) {
	workouts, err := h.workoutService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve workouts")
		return
	}
	c.JSON(http.StatusOK, MapWorkoutsToResponse(workouts))
}

func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	id, ok := parseIDParam(c, "id", service.ErrWorkoutNotFound)
	if !ok {
		return
	}
	workout, err := h.workoutService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to retrieve workout")
		return
	}
	c.JSON(http.StatusOK, MapWorkoutToResponse(workout))
}

// Suggestions godoc
// @Summary Workouts matching the caller's fitness level
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} WorkoutResponse
// @Failure 404 {object} gin.H "Caller has no profile"
// @Router /workouts/suggestions [get]
func (h *WorkoutHandler) Suggestions(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	workouts, err := h.workoutService.Suggestions(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to retrieve workout suggestions")
		return
	}
	c.JSON(http.StatusOK, MapWorkoutsToResponse(workouts))
}
