package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/composer"
	"github.com/safesignal/sosclient/internal/dispatch"
	"github.com/safesignal/sosclient/internal/reconciler"
	"github.com/safesignal/sosclient/internal/session"
	"github.com/safesignal/sosclient/internal/surface"
	"github.com/safesignal/sosclient/internal/utils"
	"github.com/safesignal/sosclient/internal/validators"
	"github.com/safesignal/sosclient/pkg/api"
)

// respondError maps a domain error onto the response envelope.
func respondError(c *gin.Context, err error, fallback string) {
	c.Error(err)

	var verrs validators.ValidationErrors
	if errors.As(err, &verrs) {
		utils.ValidationErrorResponse(c, verrs.Fields())
		return
	}

	var cerr *composer.ValidationError
	if errors.As(err, &cerr) {
		utils.ErrorResponseWithDetails(c, http.StatusBadRequest, utils.CodeValidation, cerr.Message,
			map[string]string{"code": string(cerr.Code), "title": cerr.Title()})
		return
	}

	if errors.Is(err, surface.ErrUnknownContact) {
		utils.NotFoundResponse(c, "Contact")
		return
	}

	var derr *dispatch.Error
	if errors.As(err, &derr) {
		switch derr.Kind {
		case dispatch.KindAlreadyInFlight:
			utils.ConflictResponse(c, utils.CodeAlreadyInFlight, "A submission is already in flight")
		case dispatch.KindUnauthorized:
			utils.UnauthorizedResponse(c)
		case dispatch.KindServerRejected:
			utils.ErrorResponse(c, http.StatusBadGateway, utils.CodeServerRejected, fallback)
		default:
			utils.ErrorResponse(c, http.StatusBadGateway, utils.CodeNetworkFailure, fallback)
		}
		return
	}

	switch {
	case session.IsUnauthorized(err):
		utils.UnauthorizedResponse(c)
	case errors.Is(err, reconciler.ErrNotAuthor):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, reconciler.ErrAlertNotFound):
		utils.NotFoundResponse(c, "Alert")
	case errors.Is(err, reconciler.ErrAlreadyResolved):
		utils.ConflictResponse(c, utils.CodeConflict, err.Error())
	case errors.Is(err, surface.ErrClosed), errors.Is(err, surface.ErrComposerClosed):
		utils.ConflictResponse(c, utils.CodeConflict, err.Error())
	default:
		var se *api.StatusError
		if errors.As(err, &se) || errors.Is(err, api.ErrMalformedResponse) {
			utils.ErrorResponse(c, http.StatusBadGateway, utils.CodeServerRejected, fallback)
			return
		}
		utils.ErrorResponse(c, http.StatusBadGateway, utils.CodeNetworkFailure, fallback)
	}
}

// currentUserID reads the id SessionRequired put on the context.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, exists := c.Get(utils.ContextUserID)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}
