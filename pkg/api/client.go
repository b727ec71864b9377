package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/config"
	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/pkg/logger"
)

const (
	alertPath    = "/api/alert"
	contactPath  = "/api/contact"
	loginPath    = "/api/user/login"
	registerPath = "/api/user/register"
	profilePath  = "/api/user/profile"
)

// Client talks to the alert, contact and user endpoints of the REST service.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(cfg *config.APIConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log,
	}
}

// WithHTTPClient replaces the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Alerts

func (c *Client) CreateAlert(ctx context.Context, payload interface{}, token string) (*models.Alert, error) {
	var alert models.Alert
	if err := c.do(ctx, http.MethodPost, alertPath, token, payload, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (c *Client) ListAlerts(ctx context.Context, token string) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := c.do(ctx, http.MethodGet, alertPath, token, nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (c *Client) UpdateAlertStatus(ctx context.Context, id primitive.ObjectID, status models.AlertStatus, token string) (*models.Alert, error) {
	body := map[string]interface{}{"status": status}
	var alert models.Alert
	if err := c.do(ctx, http.MethodPut, alertPath+"/"+id.Hex(), token, body, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Contacts

func (c *Client) ListContacts(ctx context.Context, token string) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := c.do(ctx, http.MethodGet, contactPath, token, nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (c *Client) CreateContact(ctx context.Context, req *models.ContactRequest, token string) (*models.Contact, error) {
	var contact models.Contact
	if err := c.do(ctx, http.MethodPost, contactPath, token, req, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (c *Client) DeleteContact(ctx context.Context, id primitive.ObjectID, token string) error {
	return c.do(ctx, http.MethodDelete, contactPath+"/"+id.Hex(), token, nil, nil)
}

// Users

func (c *Client) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.do(ctx, http.MethodPost, loginPath, "", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login: %w: no token", ErrMalformedResponse)
	}
	return &resp, nil
}

// Register may succeed without a token, in which case the caller has to log
// in separately.
func (c *Client) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.do(ctx, http.MethodPost, registerPath, "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Profile(ctx context.Context, token string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodGet, profilePath, token, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	start := time.Now()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.LogAPIRequest(method, path, resp.StatusCode, time.Since(start))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// errorMessage pulls the server's explanation out of an error body. The
// service answers with either {"message": ...} or {"error": ...}.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
