package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"encantia/internal/models"
	"encantia/internal/services"
)

// maxAvatarSize caps avatar uploads at 5 MiB.
const maxAvatarSize = 5 << 20

type ProfileHandler struct {
	profileService *services.ProfileService
	followService  *services.FollowService
}

func NewProfileHandler(profileService *services.ProfileService, followService *services.FollowService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, followService: followService}
}

// Directory godoc
// @Summary Profiles grouped by role
// @Description Profiles without a role are listed under "Usuarios"
// @Tags profiles
// @Produce json
// @Success 200 {array} models.DirectoryGroup
// @Router /profiles/directory [get]
func (h *ProfileHandler) Directory(c *gin.Context) {
	groups, err := h.profileService.Directory(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// ListProfiles godoc
// @Summary All profiles
// @Tags profiles
// @Produce json
// @Success 200 {array} models.Profile
// @Router /profiles [get]
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.profileService.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

// GetProfile godoc
// @Summary One profile
// @Tags profiles
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	p, err := h.profileService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetMyProfile godoc
// @Summary The caller's profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Profile
// @Failure 404 {object} models.ErrorResponse "No profile yet"
// @Router /me/profile [get]
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	p, err := sess.Profile(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if p == nil {
		fail(c, services.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProfile godoc
// @Summary Create the caller's profile
// @Description Display names are unique regardless of case
// @Tags profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateProfileRequest true "Profile data"
// @Success 201 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "Name taken or profile exists"
// @Router /me/profile [post]
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	var req models.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.profileService.Create(c.Request.Context(), sess.UserID, sess.Email, req.Name, req.AvatarURL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdateProfile godoc
// @Summary Update the caller's profile
// @Tags profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /me/profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.profileService.Update(c.Request.Context(), sess.UserID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UploadAvatar godoc
// @Summary Upload a new avatar
// @Tags profiles
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Image file"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Router /me/profile/avatar [post]
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("avatar")
	if err != nil {
		badRequest(c, err)
		return
	}
	if fh.Size > maxAvatarSize {
		fail(c, services.ErrInvalidInput)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	p, err := h.profileService.UploadAvatar(c.Request.Context(), sess.UserID, fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// FollowStatus godoc
// @Summary Follower counts and whether the caller follows
// @Tags follows
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.FollowStatusResponse
// @Router /profiles/{id}/follow [get]
func (h *ProfileHandler) FollowStatus(c *gin.Context) {
	res, err := h.followService.Status(c.Request.Context(), viewerID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ToggleFollow godoc
// @Summary Follow or unfollow
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.FollowStatusResponse
// @Failure 400 {object} models.ErrorResponse "Cannot follow yourself"
// @Router /profiles/{id}/follow [post]
func (h *ProfileHandler) ToggleFollow(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	res, err := h.followService.Toggle(c.Request.Context(), sess.UserID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
