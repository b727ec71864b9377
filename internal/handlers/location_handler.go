package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safesignal/sosclient/internal/location"
	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/utils"
)

// LocationHandler lets the UI shell report what the OS told it. It only
// works when the location source is the shell.
type LocationHandler struct {
	device    *location.ShellDevice
	providers []*location.Provider
}

func NewLocationHandler(device *location.ShellDevice, providers ...*location.Provider) *LocationHandler {
	return &LocationHandler{device: device, providers: providers}
}

type PermissionRequest struct {
	Permission location.Permission `json:"permission" binding:"required,oneof=undetermined granted denied"`
}

type FixRequest struct {
	Latitude  float64    `json:"latitude" binding:"latitude"`
	Longitude float64    `json:"longitude" binding:"longitude"`
	Accuracy  float64    `json:"accuracy" binding:"gte=0"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// UpdatePermission records the OS permission answer. Cached answers are
// dropped so the next lookup asks again.
func (h *LocationHandler) UpdatePermission(c *gin.Context) {
	if h.device == nil {
		utils.ConflictResponse(c, utils.CodeConflict, "Location is not reported by the shell")
		return
	}

	var request PermissionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	h.device.SetPermission(request.Permission)
	for _, p := range h.providers {
		p.Reset()
	}

	utils.SuccessResponse(c, "Location permission updated", gin.H{"permission": request.Permission})
}

func (h *LocationHandler) ReportFix(c *gin.Context) {
	if h.device == nil {
		utils.ConflictResponse(c, utils.CodeConflict, "Location is not reported by the shell")
		return
	}

	var request FixRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	fix := models.Fix{
		Coordinate: models.Coordinate{Latitude: request.Latitude, Longitude: request.Longitude},
		Accuracy:   request.Accuracy,
	}
	if request.Timestamp != nil {
		fix.Timestamp = *request.Timestamp
	}
	h.device.ReportFix(fix)

	utils.NoContentResponse(c)
}
