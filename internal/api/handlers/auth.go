package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"encantia/internal/auth"
	"encantia/internal/models"
	"encantia/pkg/response"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignUp godoc
// @Summary Register a new user
// @Description Create an account with email and password and return a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.SignUpRequest true "Account data"
// @Success 201 {object} models.LoginResponse "Account created"
// @Failure 400 {object} models.ErrorResponse "Bad request - invalid input data"
// @Failure 409 {object} models.ErrorResponse "Email already registered"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.authService.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Login godoc
// @Summary User login
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "User login credentials"
// @Success 200 {object} models.LoginResponse "Login successful - returns JWT token and user data"
// @Failure 400 {object} models.ErrorResponse "Bad request - invalid input data"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid credentials"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.authService.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Logout godoc
// @Summary Sign out
// @Description Revoke the bearer token used for this request
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.MessageResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	claims, err := h.authService.Tokens().Parse(ctx, sess.Token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.AuthTokenInvalid, "")
		return
	}
	if err := h.authService.SignOut(ctx, claims); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "signed out"})
}

// UpdatePassword godoc
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdatePasswordRequest true "New password"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/password [put]
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	var req models.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.authService.UpdatePassword(c.Request.Context(), sess.UserID, req.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "password updated"})
}

// RequestPasswordReset godoc
// @Summary Send a password reset link
// @Description Always answers 202 so the endpoint cannot be used to enumerate accounts
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.PasswordResetRequest true "Email and optional redirect"
// @Success 202 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/password/reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.authService.SendPasswordReset(c.Request.Context(), req.Email, req.RedirectTo); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, models.MessageResponse{Message: "if the email exists a reset link was sent"})
}

// ConfirmPasswordReset godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.PasswordResetConfirmRequest true "Token and new password"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/password/reset/confirm [post]
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req models.PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "password updated"})
}

// OAuthURL godoc
// @Summary Provider sign-in URL
// @Tags auth
// @Produce json
// @Param provider path string true "github, discord, gitlab, google or spotify"
// @Param redirect_to query string false "Where the provider should send the user back"
// @Success 200 {object} models.OAuthURLResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/oauth/{provider} [get]
func (h *AuthHandler) OAuthURL(c *gin.Context) {
	provider := c.Param("provider")
	url, err := h.authService.SignInWithOAuth(provider, c.Query("redirect_to"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OAuthURLResponse{Provider: provider, URL: url})
}
