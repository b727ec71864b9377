package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/session"
	"github.com/safesignal/sosclient/internal/utils"
)

type SessionHandler struct {
	sessions *session.Manager
}

func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SignIn exchanges credentials for a token and loads the profile
func (h *SessionHandler) SignIn(c *gin.Context) {
	var request models.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	profile, err := h.sessions.SignIn(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err, "Failed to sign in")
		return
	}

	utils.SuccessResponse(c, "Signed in successfully", profile)
}

// Register creates an account and signs in when the server hands back a token
func (h *SessionHandler) Register(c *gin.Context) {
	var request models.RegisterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	profile, err := h.sessions.Register(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err, "Failed to register")
		return
	}

	if profile == nil {
		utils.CreatedResponse(c, "Registered successfully, please sign in", nil)
		return
	}
	utils.CreatedResponse(c, "Registered successfully", profile)
}

func (h *SessionHandler) SignOut(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context()); err != nil {
		respondError(c, err, "Failed to sign out")
		return
	}
	utils.SuccessResponse(c, "Signed out successfully", nil)
}

// Current returns the signed-in profile
func (h *SessionHandler) Current(c *gin.Context) {
	profile, err := h.sessions.Profile(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load profile")
		return
	}
	utils.SuccessResponse(c, "Profile retrieved successfully", profile)
}
