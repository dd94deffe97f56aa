// Package server integrates the session credential lifecycle with the
// console's request cycle: it reads the session cookie, runs the
// orchestrator once per request, and writes back whatever token the
// orchestrator returns. All view rendering and API proxying live
// elsewhere; this package only establishes who the request is.
package server

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/surveyforge/console-auth/idp"
	"github.com/surveyforge/console-auth/internal/config"
	"github.com/surveyforge/console-auth/orchestrator"
	"github.com/surveyforge/console-auth/sessiontoken/jwtcodec"
)

// IdentityFlow is the interactive-login surface of the IdP client the
// server needs. Implemented by *idp.Client.
type IdentityFlow interface {
	AuthCodeURL(state, nonce, codeChallenge string) string
	ExchangeCode(ctx context.Context, code, codeVerifier, expectedNonce string) (*idp.Identity, error)
}

// Server wires the orchestrator, the IdP flow and the cookie codec into
// HTTP handlers and middleware.
type Server struct {
	config       config.Config
	orchestrator *orchestrator.Orchestrator
	identityFlow IdentityFlow
	codec        *jwtcodec.Codec
	logger       zerolog.Logger
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server with required dependencies.
func New(cfg config.Config, orch *orchestrator.Orchestrator, flow IdentityFlow, options ...ServerOption) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if orch == nil {
		return nil, errors.New("[server.New] orchestrator is required")
	}
	if flow == nil {
		return nil, errors.New("[server.New] identity flow is required")
	}

	s := &Server{
		config:       cfg,
		orchestrator: orch,
		identityFlow: flow,
		codec:        jwtcodec.New(cfg.GetCookieSigningKey()),
		logger:       log.Logger,
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// Routes returns a mux with the auth endpoints mounted. Application
// routes are expected to be added by the host behind RequireSession.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(RouteLogin, s.LoginHandler())
	mux.HandleFunc(RouteCallback, s.CallbackHandler())
	mux.HandleFunc(RouteLogout, s.SignOutHandler())
	return mux
}
