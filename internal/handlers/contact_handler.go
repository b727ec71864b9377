package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/surface"
	"github.com/safesignal/sosclient/internal/utils"
	"github.com/safesignal/sosclient/internal/validators"
	"github.com/safesignal/sosclient/pkg/api"
	"github.com/safesignal/sosclient/pkg/logger"
)

type ContactHandler struct {
	store     api.ContactStore
	auth      surface.TokenSource
	directory *surface.ContactDirectory
	logger    *logger.Logger
}

func NewContactHandler(store api.ContactStore, auth surface.TokenSource, directory *surface.ContactDirectory, log *logger.Logger) *ContactHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &ContactHandler{store: store, auth: auth, directory: directory, logger: log}
}

func (h *ContactHandler) signOut(ctx context.Context, err error) {
	if !api.IsUnauthorized(err) {
		return
	}
	if cerr := h.auth.HandleUnauthorized(ctx); cerr != nil {
		h.logger.WithError(cerr).Error("Failed to clear credentials after 401")
	}
}

// reload refreshes the directory after a change. The change itself already
// succeeded, so a failed reload is only logged.
func (h *ContactHandler) reload(ctx context.Context) {
	if _, err := h.directory.Refresh(ctx); err != nil {
		h.logger.WithError(err).Warn("Failed to reload contacts")
	}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	contacts, err := h.directory.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load contacts")
		return
	}
	utils.SuccessResponseWithMeta(c, "Contacts retrieved successfully", contacts, &utils.Meta{Count: len(contacts)})
}

// AddContact creates a contact and reloads the directory
func (h *ContactHandler) AddContact(c *gin.Context) {
	var request models.ContactRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		respondError(c, errs, "Invalid contact")
		return
	}

	ctx := c.Request.Context()
	token, err := h.auth.Token(ctx)
	if err != nil {
		respondError(c, err, "Failed to add contact")
		return
	}

	contact, err := h.store.CreateContact(ctx, &request, token)
	if err != nil {
		h.signOut(ctx, err)
		respondError(c, err, "Failed to add contact")
		return
	}
	h.reload(ctx)

	utils.CreatedResponse(c, "Contact added successfully", contact)
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	contactID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid contact ID")
		return
	}

	ctx := c.Request.Context()
	token, err := h.auth.Token(ctx)
	if err != nil {
		respondError(c, err, "Failed to delete contact")
		return
	}

	if err := h.store.DeleteContact(ctx, contactID, token); err != nil {
		h.signOut(ctx, err)
		respondError(c, err, "Failed to delete contact")
		return
	}
	h.reload(ctx)

	utils.NoContentResponse(c)
}
