package api

import (
	"net/http"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles the business services the HTTP layer depends on.
type Services struct {
	Auth        service.AuthService
	Users       service.UserService
	Profiles    service.ProfileService
	Teams       service.TeamService
	Activities  service.ActivityService
	Workouts    service.WorkoutService
	Leaderboard service.LeaderboardService
}

func SetupRoutes(router *gin.Engine, services Services, pinger Pinger) {
	authHandler := NewAuthHandler(services.Auth)
	userHandler := NewUserHandler(services.Users)
	profileHandler := NewProfileHandler(services.Profiles)
	teamHandler := NewTeamHandler(services.Teams)
	activityHandler := NewActivityHandler(services.Activities)
	workoutHandler := NewWorkoutHandler(services.Workouts)
	leaderboardHandler := NewLeaderboardHandler(services.Leaderboard)

	authMiddleware := AuthMiddleware(services.Auth)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/healthz", Healthz(pinger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		authGroup.GET("/user", authMiddleware, authHandler.CurrentUser)
	}

	// --- Public reads ---
	api.GET("/users", userHandler.ListUsers)
	api.GET("/users/:id", userHandler.GetUser)

	teams := api.Group("/teams")
	{
		teams.GET("", teamHandler.ListTeams)
		teams.GET("/:id", teamHandler.GetTeam)
		teams.POST("", authMiddleware, teamHandler.CreateTeam)
		teams.PUT("/:id", authMiddleware, teamHandler.UpdateTeam)
		teams.PATCH("/:id", authMiddleware, teamHandler.UpdateTeam)
		teams.DELETE("/:id", authMiddleware, teamHandler.DeleteTeam)
		teams.POST("/:id/add_member", authMiddleware, teamHandler.AddMember)
		teams.POST("/:id/remove_member", authMiddleware, teamHandler.RemoveMember)
	}

	workouts := api.Group("/workouts")
	{
		workouts.GET("", workoutHandler.ListWorkouts)
		workouts.GET("/suggestions", authMiddleware, workoutHandler.Suggestions)
		workouts.GET("/:id", workoutHandler.GetWorkout)
	}

	leaderboard := api.Group("/leaderboard")
	{
		leaderboard.GET("", leaderboardHandler.ListLeaderboards)
		leaderboard.GET("/rankings", leaderboardHandler.Rankings)
		leaderboard.GET("/:id", leaderboardHandler.GetLeaderboard)
		leaderboard.POST("/refresh", authMiddleware, RoleMiddleware(domain.RoleStaff), leaderboardHandler.Refresh)
	}

	// --- Authenticated resources ---
	protected := api.Group("")
	protected.Use(authMiddleware)

	profiles := protected.Group("/profiles")
	{
		profiles.GET("", profileHandler.ListProfiles)
		profiles.POST("", profileHandler.CreateProfile)
		profiles.GET("/me", profileHandler.GetMyProfile)
		profiles.PATCH("/me", profileHandler.UpdateMyProfile)
		profiles.POST("/me/avatar", profileHandler.RequestAvatarUpload)
		profiles.GET("/:id", profileHandler.GetProfile)
		profiles.PUT("/:id", profileHandler.UpdateProfile)
		profiles.PATCH("/:id", profileHandler.UpdateProfile)
		profiles.DELETE("/:id", profileHandler.DeleteProfile)
	}

	activities := protected.Group("/activities")
	{
		activities.GET("", activityHandler.ListActivities)
		activities.POST("", activityHandler.CreateActivity)
		activities.GET("/my_activities", activityHandler.MyActivities)
		activities.GET("/stats", activityHandler.Stats)
		activities.GET("/team_activities", activityHandler.TeamActivities)
		activities.GET("/:id", activityHandler.GetActivity)
		activities.PUT("/:id", activityHandler.UpdateActivity)
		activities.PATCH("/:id", activityHandler.UpdateActivity)
		activities.DELETE("/:id", activityHandler.DeleteActivity)
	}
}
