package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/surface"
	"github.com/safesignal/sosclient/internal/utils"
)

type SurfaceHandler struct {
	surfaces *surface.Registry
}

func NewSurfaceHandler(surfaces *surface.Registry) *SurfaceHandler {
	return &SurfaceHandler{surfaces: surfaces}
}

func (h *SurfaceHandler) lookup(c *gin.Context) (*surface.Surface, bool) {
	s, ok := h.surfaces.Get(c.Param("surface"))
	if !ok {
		utils.NotFoundResponse(c, "Surface")
		return nil, false
	}
	return s, true
}

// subject reads the pressed control. Generic surfaces have a single
// control; contact surfaces use the contact id.
func subject(c *gin.Context) (string, bool) {
	id := c.Param("subject")
	if id == "" {
		utils.BadRequestResponse(c, "Subject is required")
		return "", false
	}
	return id, true
}

// ListSurfaces returns the status of every surface
func (h *SurfaceHandler) ListSurfaces(c *gin.Context) {
	all := h.surfaces.All()
	statuses := make([]surface.Status, 0, len(all))
	for _, s := range all {
		statuses = append(statuses, s.Status())
	}
	utils.SuccessResponse(c, "Surfaces retrieved successfully", statuses)
}

func (h *SurfaceHandler) GetSurface(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, "Surface retrieved successfully", s.Status())
}

// PressStart begins a press on a subject of the surface
func (h *SurfaceHandler) PressStart(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	subjectID, ok := subject(c)
	if !ok {
		return
	}

	sessionID, err := s.PressStart(subjectID)
	if err != nil {
		respondError(c, err, "Failed to start press")
		return
	}

	utils.AcceptedResponse(c, "Press started", gin.H{"session": sessionID, "status": s.Status()})
}

// PressEnd releases a press and reports how the gesture was classified
func (h *SurfaceHandler) PressEnd(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	subjectID, ok := subject(c)
	if !ok {
		return
	}

	verdict, err := s.PressEnd(c.Request.Context(), subjectID)
	if err != nil {
		respondError(c, err, "Failed to open composer")
		return
	}

	utils.SuccessResponse(c, "Press ended", gin.H{"verdict": verdict.String(), "status": s.Status()})
}

func (h *SurfaceHandler) Cancel(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	subjectID, ok := subject(c)
	if !ok {
		return
	}

	s.Cancel(subjectID)
	utils.SuccessResponse(c, "Press cancelled", s.Status())
}

// SubmitAlert sends the composer draft of the surface
func (h *SurfaceHandler) SubmitAlert(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}

	var request surface.ComposeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	alert, err := s.SubmitComposed(c.Request.Context(), request)
	if err != nil {
		respondError(c, err, "Failed to create alert")
		return
	}

	utils.CreatedResponse(c, "Alert created successfully", alert)
}

// ToggleTag adds or removes a tag in the surface's open composer
func (h *SurfaceHandler) ToggleTag(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}

	tags, err := s.ToggleTag(models.Tag(c.Param("tag")))
	if err != nil {
		respondError(c, err, "Failed to select tag")
		return
	}

	utils.SuccessResponse(c, "Tag selection updated", gin.H{"tags": tags})
}

func (h *SurfaceHandler) CloseComposer(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	s.CloseComposer()
	utils.SuccessResponse(c, "Composer closed", s.Status())
}
