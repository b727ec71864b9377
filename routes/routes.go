package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/safesignal/sosclient/internal/handlers"
	"github.com/safesignal/sosclient/internal/middleware"
	"github.com/safesignal/sosclient/internal/session"
	"github.com/safesignal/sosclient/pkg/websocket"
)

type Handlers struct {
	Session   *handlers.SessionHandler
	Surface   *handlers.SurfaceHandler
	Alert     *handlers.AlertHandler
	Contact   *handlers.ContactHandler
	Location  *handlers.LocationHandler
	WebSocket *websocket.Handler
}

// SetupRoutes registers the bridge API the UI shell talks to
func SetupRoutes(r *gin.RouterGroup, sessions *session.Manager, h Handlers) {
	// Session routes (no session required)
	sessionGroup := r.Group("/session")
	{
		sessionGroup.POST("", h.Session.SignIn)
		sessionGroup.POST("/register", h.Session.Register)
		sessionGroup.DELETE("", h.Session.SignOut)
		sessionGroup.GET("", h.Session.Current)
	}

	// The shell reports OS location state whether or not anyone is signed in
	locationGroup := r.Group("/location")
	{
		locationGroup.PUT("/permission", h.Location.UpdatePermission)
		locationGroup.PUT("/fix", h.Location.ReportFix)
	}

	r.GET("/ws", h.WebSocket.HandleWebSocket)

	// Protected routes
	protected := r.Group("")
	protected.Use(middleware.SessionRequired(sessions))

	surfaces := protected.Group("/surfaces")
	{
		surfaces.GET("", h.Surface.ListSurfaces)
		surfaces.GET("/:surface", h.Surface.GetSurface)
		surfaces.POST("/:surface/subjects/:subject/press-start", h.Surface.PressStart)
		surfaces.POST("/:surface/subjects/:subject/press-end", h.Surface.PressEnd)
		surfaces.POST("/:surface/subjects/:subject/cancel", h.Surface.Cancel)
		surfaces.POST("/:surface/alerts", h.Surface.SubmitAlert)
		surfaces.POST("/:surface/composer/tags/:tag", h.Surface.ToggleTag)
		surfaces.DELETE("/:surface/composer", h.Surface.CloseComposer)
	}

	alerts := protected.Group("/alerts")
	{
		alerts.GET("", h.Alert.GetAlerts)
		alerts.GET("/active", h.Alert.GetActiveAlerts)
		alerts.GET("/resolved", h.Alert.GetResolvedAlerts)
		alerts.GET("/:id", h.Alert.GetAlert)
		alerts.POST("/:id/resolve", h.Alert.ResolveAlert)
	}

	contacts := protected.Group("/contacts")
	{
		contacts.GET("", h.Contact.GetContacts)
		contacts.POST("", h.Contact.AddContact)
		contacts.DELETE("/:id", h.Contact.DeleteContact)
	}
}
