package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/session"
	"github.com/safesignal/sosclient/internal/utils"
	"github.com/safesignal/sosclient/pkg/logger"
)

// SessionRequired rejects bridge calls while nobody is signed in and puts
// the signed-in profile on the context.
func SessionRequired(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := sessions.Profile(c.Request.Context())
		if err != nil {
			if session.IsUnauthorized(err) {
				utils.UnauthorizedResponse(c)
			} else {
				utils.ErrorResponse(c, http.StatusBadGateway, utils.CodeNetworkFailure, "Failed to load profile")
			}
			c.Abort()
			return
		}

		c.Set(utils.ContextUserID, profile.ID)
		c.Set(utils.ContextProfile, profile)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), profile.ID))
		c.Next()
	}
}

// CurrentProfile returns the profile set by SessionRequired.
func CurrentProfile(c *gin.Context) (*models.Profile, bool) {
	v, ok := c.Get(utils.ContextProfile)
	if !ok {
		return nil, false
	}
	p, ok := v.(*models.Profile)
	return p, ok
}
