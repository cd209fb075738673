package apiclient

import (
	"context"
	"net/http"

	"topdivers/internal/models"
)

type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

type adminLoginRequest struct {
	LoginRequest
	Role string `json:"role"`
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// LoginResponse carries either a user or an admin and their token.
type LoginResponse struct {
	User        *models.AuthUser `json:"user,omitempty"`
	Admin       *models.AuthUser `json:"admin,omitempty"`
	Token       string           `json:"token,omitempty"`
	AccessToken string           `json:"access_token,omitempty"`
}

// BearerToken returns whichever token field the backend filled.
func (r *LoginResponse) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

type VerifyResponse struct {
	Valid    bool             `json:"valid"`
	UserType string           `json:"user_type,omitempty"`
	User     *models.AuthUser `json:"user,omitempty"`
	Admin    *models.AuthUser `json:"admin,omitempty"`
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminLogin authenticates against /auth/admin/login with role "admin".
func (c *Client) AdminLogin(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/auth/admin/login", adminLoginRequest{LoginRequest: req, Role: models.UserTypeAdmin}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify asks the backend whether token is still valid. A 401 is reported
// as Valid=false without an error and without notifying.
func (c *Client) Verify(ctx context.Context, token string) (*VerifyResponse, error) {
	var resp VerifyResponse
	err := c.roundTrip(WithToken(ctx, token), http.MethodGet, "/auth/verify", nil, &resp)
	if IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden) {
		return &VerifyResponse{Valid: false}, nil
	}
	if err != nil {
		return nil, err
	}
	if !resp.Valid && (resp.User != nil || resp.Admin != nil) {
		resp.Valid = true
	}
	return &resp, nil
}

func (c *Client) Me(ctx context.Context) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := c.get(ctx, "/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) MyInvoices(ctx context.Context) ([]models.Invoice, error) {
	return getList[models.Invoice](ctx, c, "/users/me/invoices", false)
}
