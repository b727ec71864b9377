package api

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/models"
)

type AlertStore interface {
	CreateAlert(ctx context.Context, payload interface{}, token string) (*models.Alert, error)
	ListAlerts(ctx context.Context, token string) ([]models.Alert, error)
	UpdateAlertStatus(ctx context.Context, id primitive.ObjectID, status models.AlertStatus, token string) (*models.Alert, error)
}

type ContactStore interface {
	ListContacts(ctx context.Context, token string) ([]models.Contact, error)
	CreateContact(ctx context.Context, req *models.ContactRequest, token string) (*models.Contact, error)
	DeleteContact(ctx context.Context, id primitive.ObjectID, token string) error
}

type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error)
	Profile(ctx context.Context, token string) (*models.Profile, error)
}
