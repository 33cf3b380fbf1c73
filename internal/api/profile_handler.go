package api

import (
	"fmt"
	"net/http"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// ProfileHandler serves fitness profiles. Non-staff callers only ever see
// their own.
type ProfileHandler struct {
	profileService service.ProfileService
}

func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

type ProfileRequest struct {
	Bio          *string              `json:"bio"`
	Avatar       *string              `json:"avatar"`
	FitnessLevel *domain.FitnessLevel `json:"fitness_level"`
}

func (r ProfileRequest) input() service.ProfileInput {
	return service.ProfileInput{
		Bio:          r.Bio,
		Avatar:       r.Avatar,
		FitnessLevel: r.FitnessLevel,
	}
}

type AvatarUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

type AvatarUploadResponse struct {
	UploadURL string    `json:"upload_url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	profiles, err := h.profileService.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to retrieve profiles")
		return
	}
	c.JSON(http.StatusOK, MapProfilesToResponse(profiles))
}

// CreateProfile godoc
// @Summary Create the caller's profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body ProfileRequest true "Profile fields"
// @Success 201 {object} ProfileResponse
// @Failure 409 {object} gin.H "Profile already exists"
// @Router /profiles [post]
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	profile, err := h.profileService.Create(c.Request.Context(), actor, req.input())
	if err != nil {
		respondError(c, err, "Failed to create profile")
		return
	}
	c.JSON(http.StatusCreated, MapProfileToResponse(profile))
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", service.ErrProfileNotFound)
	if !ok {
		return
	}
	profile, err := h.profileService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "Failed to retrieve profile")
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(profile))
}

// UpdateProfile serves both PUT and PATCH; every profile field is optional.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", service.ErrProfileNotFound)
	if !ok {
		return
	}
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	profile, err := h.profileService.Update(c.Request.Context(), actor, id, req.input())
	if err != nil {
		respondError(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(profile))
}

func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", service.ErrProfileNotFound)
	if !ok {
		return
	}
	if err := h.profileService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err, "Failed to delete profile")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMyProfile godoc
// @Summary Get the caller's profile
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfileResponse
// @Failure 404 {object} gin.H "profile not found"
// @Router /profiles/me [get]
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	profile, err := h.profileService.GetMine(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "Failed to retrieve profile")
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(profile))
}

func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	profile, err := h.profileService.UpdateMine(c.Request.Context(), actor, req.input())
	if err != nil {
		respondError(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(profile))
}

// RequestAvatarUpload godoc
// @Summary Get a presigned URL for uploading a new avatar
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AvatarUploadRequest true "Image content type"
// @Success 200 {object} AvatarUploadResponse
// @Failure 503 {object} gin.H "Object storage is not configured"
// @Router /profiles/me/avatar [post]
func (h *ProfileHandler) RequestAvatarUpload(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	var req AvatarUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	upload, err := h.profileService.RequestAvatarUpload(c.Request.Context(), actor, req.ContentType)
	if err != nil {
		respondError(c, err, "Failed to prepare avatar upload")
		return
	}
	c.JSON(http.StatusOK, AvatarUploadResponse{
		UploadURL: upload.UploadURL,
		ObjectKey: upload.ObjectKey,
		ExpiresAt: upload.ExpiresAt,
	})
}
