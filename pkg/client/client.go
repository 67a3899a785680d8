package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/naveenspark/clubdesk/pkg/domain"
)

// ResetCodeLength is the exact length of a password-reset code.
const ResetCodeLength = 6

// Client is the clubdesk backend API client. It holds no session state;
// protected calls take the bearer token as an argument.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The client is used as
// given; WithTimeout does not touch it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 30 * time.Second,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var s domain.Session
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/auth/login",
		body:     LoginRequest{Email: email, Password: password},
		fallback: "login failed",
		kinds: map[int]error{
			http.StatusBadRequest:   ErrInvalidCredentials,
			http.StatusUnauthorized: ErrInvalidCredentials,
			http.StatusForbidden:    ErrInvalidCredentials,
			http.StatusNotFound:     ErrInvalidCredentials,
		},
	}, &s)
	if err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if err := checkSession(&s); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &s, nil
}

// Register creates an owner account and returns its first session.
// The response never carries a club; none exists before onboarding.
func (c *Client) Register(ctx context.Context, p domain.RegisterProfile) (*domain.Session, error) {
	var s domain.Session
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/auth/register",
		body:     p,
		fallback: "registration failed",
		kinds: map[int]error{
			http.StatusBadRequest:          ErrValidation,
			http.StatusConflict:            ErrValidation,
			http.StatusUnprocessableEntity: ErrValidation,
		},
	}, &s)
	if err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	if err := checkSession(&s); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	s.Club = nil
	return &s, nil
}

// Logout tells the backend to revoke token. Callers treat failure as advisory.
func (c *Client) Logout(ctx context.Context, token string) error {
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/auth/logout",
		token:    token,
		body:     struct{}{},
		fallback: "logout failed",
	}, nil)
	if err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	return nil
}

// RequestPasswordReset asks the backend to email a reset code.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/auth/request-reset",
		body:     map[string]string{"email": email},
		fallback: "could not send reset code",
		kinds: map[int]error{
			http.StatusNotFound:   ErrNotFound,
			http.StatusBadRequest: ErrValidation,
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("client.RequestPasswordReset: %w", err)
	}
	return nil
}

// VerifyResetCode checks a reset code and returns the backend's message.
// Codes that are not exactly ResetCodeLength characters are rejected locally.
func (c *Client) VerifyResetCode(ctx context.Context, email, code string) (string, error) {
	if err := CheckResetCode(code); err != nil {
		return "", fmt.Errorf("client.VerifyResetCode: %w", err)
	}
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/auth/verify-reset-code",
		body:     map[string]string{"email": email, "code": code},
		fallback: "invalid or expired code",
		kinds:    codeKinds,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("client.VerifyResetCode: %w", err)
	}
	return out.Message, nil
}

// ResetPasswordRequest is the payload for POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword sets a new password using a verified reset code. The backend
// re-validates the code, so an expired code fails with ErrInvalidCode.
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := CheckResetCode(code); err != nil {
		return fmt.Errorf("client.ResetPassword: %w", err)
	}
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/auth/reset-password",
		body:     ResetPasswordRequest{Email: email, Code: code, NewPassword: newPassword},
		fallback: "could not reset password",
		kinds: map[int]error{
			http.StatusBadRequest:          ErrInvalidCode,
			http.StatusUnauthorized:        ErrInvalidCode,
			http.StatusGone:                ErrInvalidCode,
			http.StatusUnprocessableEntity: ErrValidation,
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("client.ResetPassword: %w", err)
	}
	return nil
}

// SubmitOnboarding sends the owner's business setup. It returns the main
// club as created by the backend when the response includes it.
func (c *Client) SubmitOnboarding(ctx context.Context, token string, o domain.Onboarding) (*domain.Club, error) {
	if token == "" {
		return nil, fmt.Errorf("client.SubmitOnboarding: %w", ErrUnauthorized)
	}
	var out struct {
		MainClub *domain.Club `json:"mainClub"`
	}
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/auth/onboarding",
		token:    token,
		body:     o,
		fallback: "onboarding failed",
		kinds: map[int]error{
			http.StatusBadRequest:          ErrValidation,
			http.StatusUnprocessableEntity: ErrValidation,
		},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("client.SubmitOnboarding: %w", err)
	}
	return out.MainClub, nil
}

// ChangePassword replaces an employee's password.
func (c *Client) ChangePassword(ctx context.Context, token, employeeID, newPassword string) error {
	if token == "" {
		return fmt.Errorf("client.ChangePassword: %w", ErrUnauthorized)
	}
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/employees/" + url.PathEscape(employeeID) + "/change-password",
		token:    token,
		body:     map[string]string{"newPassword": newPassword},
		fallback: "could not change password",
		kinds: map[int]error{
			http.StatusBadRequest:          ErrValidation,
			http.StatusUnprocessableEntity: ErrValidation,
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("client.ChangePassword: %w", err)
	}
	return nil
}

// CheckResetCode validates the shape of a reset code before it is sent.
func CheckResetCode(code string) error {
	if len([]rune(code)) != ResetCodeLength {
		return fmt.Errorf("%w: code must be exactly %d characters", ErrInvalidCode, ResetCodeLength)
	}
	return nil
}

var codeKinds = map[int]error{
	http.StatusBadRequest:   ErrInvalidCode,
	http.StatusUnauthorized: ErrInvalidCode,
	http.StatusNotFound:     ErrInvalidCode,
	http.StatusGone:         ErrInvalidCode,
}

// checkSession enforces that token and user arrive together and that the
// user is an owner or an employee.
func checkSession(s *domain.Session) error {
	if s.Token == "" || s.User.ID == "" {
		return errors.New("malformed session response: token and user are required")
	}
	if !s.User.Kind.Valid() {
		return fmt.Errorf("malformed session response: unknown account type %q", s.User.Kind)
	}
	return nil
}

// request describes one backend call.
type request struct {
	method   string
	path     string
	token    string
	body     any
	fallback string
	// kinds maps response status codes to sentinel errors for this endpoint.
	// Statuses not listed fall back to defaultKind.
	kinds map[int]error
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var reqBody io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "api request failed",
			"method", r.method, "path", r.path, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	c.logger.DebugContext(ctx, "api request",
		"method", r.method, "path", r.path, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		kind, ok := r.kinds[resp.StatusCode]
		if !ok {
			kind = defaultKind(resp.StatusCode)
		}
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: r.fallback, Kind: kind}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(respBody, r.fallback), Kind: kind}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts the backend's message from an error body.
// Both {"message": ...} and {"error": ...} shapes are accepted.
func errorMessage(body []byte, fallback string) string {
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Error != "" {
			return apiErr.Error
		}
	}
	return fallback
}
