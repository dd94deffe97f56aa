// Package idp is the OpenID Connect relying-party side of the session
// lifecycle: the interactive authorization-code flow that first
// authenticates a console user, and the refresh-token exchange the
// renewal chain uses to keep that identity alive without another
// interactive login.
package idp

import (
	"context"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	apperrors "github.com/surveyforge/console-auth/internal/errors"
	"github.com/surveyforge/console-auth/sessiontoken"
)

// Identity is a verified IdP authentication event: the subject plus
// optional profile fields and the refresh token captured for later
// renewal. This is what the orchestrator's sign-in path consumes.
type Identity struct {
	Provider     sessiontoken.Provider
	Subject      string
	Name         string
	Email        string
	ImageURL     string
	RefreshToken string
}

// TokenSet is the result of a refresh-token exchange.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// TokenRefresher is the subset of the client the orchestrator needs.
// idpfake provides a scripted test double.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)
}

// Config holds the relying-party registration with the IdP.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// TokenEndpoint overrides discovery. Set it when the client is only
	// used for refresh exchanges; otherwise it is taken from the issuer's
	// discovery document.
	TokenEndpoint string
}

var _ TokenRefresher = (*Client)(nil)

// Client performs the two IdP-facing operations this system needs.
type Client struct {
	cfg           Config
	tokenEndpoint string
	oauth2Config  *oauth2.Config
	verifier      *oidc.IDTokenVerifier
	httpClient    *http.Client
	logger        zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for IdP calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client. When cfg.Issuer is set the IdP's endpoints
// are discovered from its well-known configuration and ID tokens are
// verified against its signing keys; otherwise cfg.TokenEndpoint must be
// set and only RefreshToken is usable.
func NewClient(ctx context.Context, cfg Config, options ...ClientOption) (*Client, error) {
	c := &Client{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		logger:     log.Logger,
	}
	for _, option := range options {
		option(c)
	}

	if cfg.Issuer == "" {
		if cfg.TokenEndpoint == "" {
			return nil, errors.New("[idp.NewClient] Issuer or TokenEndpoint is required")
		}
		c.tokenEndpoint = cfg.TokenEndpoint
		return c, nil
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, c.httpClient), cfg.Issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[idp.NewClient] oidc.NewProvider")
	}

	c.tokenEndpoint = provider.Endpoint().TokenURL
	if cfg.TokenEndpoint != "" {
		c.tokenEndpoint = cfg.TokenEndpoint
	}
	c.oauth2Config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
	}
	c.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})

	return c, nil
}

// AuthCodeURL builds the IdP authorization URL for an interactive login
// with PKCE and a nonce.
func (c *Client) AuthCodeURL(state, nonce, codeChallenge string) string {
	return c.oauth2Config.AuthCodeURL(state,
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode completes the authorization-code flow: exchanges the code,
// verifies the ID token signature and claims, checks the nonce, and
// returns the verified identity together with the IdP refresh token.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier, expectedNonce string) (*Identity, error) {
	ctx = oidc.ClientContext(ctx, c.httpClient)

	oauth2Token, err := c.oauth2Config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[idp.ExchangeCode] token exchange")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrIdentityProviderInvalidResponse, "no ID token in response")
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "[idp.ExchangeCode] ID token verification")
	}

	var claims struct {
		Nonce   string `json:"nonce"`
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[idp.ExchangeCode] extracting claims")
	}

	// Validate nonce to prevent replay attacks
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return nil, errors.New("[idp.ExchangeCode] nonce mismatch")
	}

	return &Identity{
		Provider:     sessiontoken.ProviderOIDC,
		Subject:      claims.Sub,
		Name:         claims.Name,
		Email:        claims.Email,
		ImageURL:     claims.Picture,
		RefreshToken: oauth2Token.RefreshToken,
	}, nil
}
