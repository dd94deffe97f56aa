// Package backend is the client of the management API's auth namespace.
// It exposes the three session operations the lifecycle manager needs and
// nothing else; everything other console code does against the management
// API happens elsewhere, with the bearer token this package helped obtain.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/surveyforge/console-auth/internal/errors"
	"github.com/surveyforge/console-auth/internal/utils"
	"github.com/surveyforge/console-auth/sessiontoken"
)

// SessionGrant is a freshly issued backend session, returned by both
// SignInWithIdentity and ExtendSession.
type SessionGrant struct {
	SessionID   string
	AccessToken string
	ExpiresIn   int64 // seconds, relative to issuance
	IsAdmin     bool
	Permissions []string
}

// SignInParams carries the verified IdP identity exchanged for a new
// backend session.
type SignInParams struct {
	InstanceID      string
	Subject         string
	Name            string
	Email           string
	ImageURL        string
	Provider        sessiontoken.Provider
	IdpRefreshToken string
}

// SessionAPI is the surface the orchestrator depends on. Implemented by
// Gateway; gatewayfake provides a scripted test double.
type SessionAPI interface {
	// SignInWithIdentity exchanges a verified IdP identity for a new
	// backend session.
	SignInWithIdentity(ctx context.Context, params SignInParams) (*SessionGrant, error)

	// GetRenewToken asks the backend for the opaque renewal token of a
	// live session. An empty token with a nil error means the backend has
	// no renew token for this session, which is benign.
	GetRenewToken(ctx context.Context, accessToken, sessionID string) (string, error)

	// ExtendSession exchanges a fresh IdP refresh token for an extended
	// backend session.
	ExtendSession(ctx context.Context, accessToken, idpRefreshToken string) (*SessionGrant, error)
}

var _ SessionAPI = (*Gateway)(nil)

// Gateway talks HTTP+JSON to the backend's auth namespace. It never
// retries: renewal failure semantics stay simple and the orchestrator's
// state machine decides what a failure means.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// GatewayOption defines a function type to modify the Gateway instance.
type GatewayOption func(*Gateway)

// WithHTTPClient sets the HTTP client used for backend calls. The caller
// owns timeout configuration; every request is additionally bounded by
// its context.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.httpClient = client
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger zerolog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// NewGateway creates a Gateway against the backend base URL
// (e.g., "https://api.example.com").
func NewGateway(baseURL string, options ...GatewayOption) *Gateway {
	g := &Gateway{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		logger:     log.Logger,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Wire shapes. Response fields are pointers so a missing required field is
// detected and rejected instead of silently propagating a zero value.
type signInRequest struct {
	InstanceID      string `json:"instanceId"`
	Sub             string `json:"sub"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	ImageURL        string `json:"imageUrl,omitempty"`
	Provider        string `json:"provider"`
	IdpRefreshToken string `json:"idpRefreshToken,omitempty"`
}

type renewTokenRequest struct {
	SessionID string `json:"sessionId"`
}

type extendSessionRequest struct {
	IdpRefreshToken string `json:"idpRefreshToken"`
}

type sessionGrantResponse struct {
	SessionID   *string  `json:"sessionId"`
	AccessToken *string  `json:"accessToken"`
	ExpiresIn   *int64   `json:"expiresIn"`
	IsAdmin     *bool    `json:"isAdmin"`
	Permissions []string `json:"permissions"`
}

type renewTokenResponse struct {
	RenewToken *string `json:"renewToken"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (g *Gateway) SignInWithIdentity(ctx context.Context, params SignInParams) (*SessionGrant, error) {
	body := signInRequest{
		InstanceID:      params.InstanceID,
		Sub:             params.Subject,
		Name:            params.Name,
		Email:           params.Email,
		ImageURL:        params.ImageURL,
		Provider:        string(params.Provider),
		IdpRefreshToken: params.IdpRefreshToken,
	}

	var resp sessionGrantResponse
	if err := g.post(ctx, "/auth/sign-in", "", body, &resp); err != nil {
		return nil, err
	}
	return grantFromResponse(resp)
}

func (g *Gateway) GetRenewToken(ctx context.Context, accessToken, sessionID string) (string, error) {
	var resp renewTokenResponse
	if err := g.post(ctx, "/auth/renew-token", accessToken, renewTokenRequest{SessionID: sessionID}, &resp); err != nil {
		return "", err
	}
	// absent renew token is a valid backend answer, not a failure
	return utils.Value(resp.RenewToken), nil
}

func (g *Gateway) ExtendSession(ctx context.Context, accessToken, idpRefreshToken string) (*SessionGrant, error) {
	var resp sessionGrantResponse
	if err := g.post(ctx, "/auth/extend", accessToken, extendSessionRequest{IdpRefreshToken: idpRefreshToken}, &resp); err != nil {
		return nil, err
	}
	return grantFromResponse(resp)
}

func grantFromResponse(resp sessionGrantResponse) (*SessionGrant, error) {
	if utils.Value(resp.SessionID) == "" || utils.Value(resp.AccessToken) == "" {
		return nil, apperrors.Wrapf(apperrors.ErrBackendInvalidResponse, "missing sessionId or accessToken")
	}
	if utils.Value(resp.ExpiresIn) <= 0 {
		return nil, apperrors.Wrapf(apperrors.ErrBackendInvalidResponse, "missing or non-positive expiresIn")
	}
	return &SessionGrant{
		SessionID:   *resp.SessionID,
		AccessToken: *resp.AccessToken,
		ExpiresIn:   *resp.ExpiresIn,
		IsAdmin:     utils.Value(resp.IsAdmin),
		Permissions: resp.Permissions,
	}, nil
}

// post performs one backend call: JSON in, JSON out, bearer auth when a
// token applies, one correlation id per request for log matching. Error
// payloads are logged for operators but never surfaced to the end user.
func (g *Gateway) post(ctx context.Context, path, accessToken string, requestBody, responseBody any) error {
	requestID := uuid.New().String()
	endpoint := g.baseURL + path

	encoded, err := json.Marshal(requestBody)
	if err != nil {
		return apperrors.Wrapf(err, "backend.post marshal %s", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return apperrors.Wrapf(err, "backend.post request %s", path)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Warn().
			Str("endpoint", endpoint).
			Str("request_id", requestID).
			Err(err).
			Msg("backend call failed")
		return apperrors.Wrapf(apperrors.ErrBackendConnection, "%s: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrBackendConnection, "%s read body: %v", path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		backendErr := errorResponse{}
		_ = json.Unmarshal(raw, &backendErr)
		g.logger.Warn().
			Str("endpoint", endpoint).
			Str("request_id", requestID).
			Int("status", resp.StatusCode).
			Str("backend_error", backendErr.Error).
			Str("backend_message", backendErr.Message).
			Msg("backend refused request")
		// 5xx is classed as a transport failure; only 4xx is a rejection.
		if resp.StatusCode >= http.StatusInternalServerError {
			return apperrors.Wrapf(apperrors.ErrBackendConnection, "%s status %d", path, resp.StatusCode)
		}
		return apperrors.Wrapf(apperrors.ErrBackendRejected, "%s status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(raw, responseBody); err != nil {
		g.logger.Warn().
			Str("endpoint", endpoint).
			Str("request_id", requestID).
			Err(err).
			Msg("backend response malformed")
		return apperrors.Wrapf(apperrors.ErrBackendInvalidResponse, "%s decode: %v", path, err)
	}
	return nil
}
