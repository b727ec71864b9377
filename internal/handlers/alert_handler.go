package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/reconciler"
	"github.com/safesignal/sosclient/internal/surface"
	"github.com/safesignal/sosclient/internal/utils"
	"github.com/safesignal/sosclient/pkg/maps"
)

type AlertHandler struct {
	alerts   *reconciler.Reconciler
	geocoder maps.Geocoder
}

func NewAlertHandler(alerts *reconciler.Reconciler, geocoder maps.Geocoder) *AlertHandler {
	return &AlertHandler{alerts: alerts, geocoder: geocoder}
}

// view refreshes from the server unless ?cached=true is given.
func (h *AlertHandler) view(c *gin.Context) (reconciler.View, bool) {
	if c.Query("cached") == "true" {
		return h.alerts.Snapshot(), true
	}
	view, err := h.alerts.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load alerts")
		return view, false
	}
	return view, true
}

// GetAlerts returns both the active and the resolved list
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}
	utils.SuccessResponseWithMeta(c, "Alerts retrieved successfully", view, &utils.Meta{
		Total: len(view.Active) + len(view.Resolved),
	})
}

func (h *AlertHandler) GetActiveAlerts(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}
	utils.SuccessResponseWithMeta(c, "Active alerts retrieved successfully", view.Active, &utils.Meta{Count: len(view.Active)})
}

func (h *AlertHandler) GetResolvedAlerts(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}
	utils.SuccessResponseWithMeta(c, "Resolved alerts retrieved successfully", view.Resolved, &utils.Meta{Count: len(view.Resolved)})
}

// GetAlert returns the detail view of one alert from the local projection
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alertID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid alert ID")
		return
	}

	viewer, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	alert, found := h.alerts.Get(alertID)
	if !found {
		utils.NotFoundResponse(c, "Alert")
		return
	}

	utils.SuccessResponse(c, "Alert retrieved successfully", surface.Describe(c.Request.Context(), alert, viewer, h.geocoder))
}

// ResolveAlert marks an alert resolved; only its author may do so
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	alertID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid alert ID")
		return
	}

	requester, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	view, err := h.alerts.ApplyResolution(c.Request.Context(), alertID, requester)
	if err != nil {
		respondError(c, err, "Failed to resolve alert")
		return
	}

	utils.SuccessResponse(c, "Alert resolved successfully", view)
}
