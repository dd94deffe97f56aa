// Package orchestrator ties the session credential lifecycle together.
// Evaluate is called once per inbound request with the request's current
// token and decides whether to do nothing, perform first-time sign-in,
// perform renewal, or mark the session as fatally broken. It holds no
// state of its own: everything lives in the SessionToken the caller
// threads through, so concurrent invocations need no coordination.
package orchestrator

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/surveyforge/console-auth/backend"
	"github.com/surveyforge/console-auth/idp"
	apperrors "github.com/surveyforge/console-auth/internal/errors"
	"github.com/surveyforge/console-auth/renewal"
	"github.com/surveyforge/console-auth/sessiontoken"
)

// Outcome classifies an Evaluate result so callers cannot accidentally
// treat a fatal result as usable.
type Outcome int

const (
	// OutcomeActive means the token is usable: either untouched because
	// nothing was due, benignly unchanged, or freshly issued/renewed.
	OutcomeActive Outcome = iota

	// OutcomeSoftFailure means a renewal attempt failed transiently; the
	// previous token is preserved and the next request will try again.
	OutcomeSoftFailure

	// OutcomeFatal means the token is tombstoned; the surrounding
	// application must force a fresh interactive login.
	OutcomeFatal
)

// Result is the single return shape of Evaluate: a well-formed token,
// always, plus the outcome that produced it.
type Result struct {
	Outcome Outcome
	Token   sessiontoken.SessionToken
}

// SignInEvent is a freshly completed IdP authentication carried into
// Evaluate by the host's callback handler.
type SignInEvent struct {
	Provider        sessiontoken.Provider
	Subject         string
	Name            string
	Email           string
	ImageURL        string
	IdpRefreshToken string
}

// Orchestrator evaluates session tokens against the backend session API
// and the identity provider.
type Orchestrator struct {
	backend    backend.SessionAPI
	idp        idp.TokenRefresher
	instanceID string
	nowTime    func() time.Time // nowTime function (injectable for testing)
	logger     zerolog.Logger
}

// Option defines a function type to modify the Orchestrator instance.
type Option func(*Orchestrator)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(o *Orchestrator) {
		o.nowTime = nowFunc
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New initializes an Orchestrator with required dependencies. Optional
// configuration can be provided via options (e.g., WithNowTime for
// testing).
func New(sessionAPI backend.SessionAPI, refresher idp.TokenRefresher, instanceID string, options ...Option) (*Orchestrator, error) {
	if sessionAPI == nil {
		return nil, errors.New("[orchestrator.New] backend session API is required")
	}
	if refresher == nil {
		return nil, errors.New("[orchestrator.New] IdP token refresher is required")
	}

	o := &Orchestrator{
		backend:    sessionAPI,
		idp:        refresher,
		instanceID: instanceID,
		nowTime:    time.Now,
		logger:     log.Logger,
	}
	for _, option := range options {
		option(o)
	}
	return o, nil
}

// Evaluate processes one request's token. When event is non-nil a
// first-time sign-in is performed regardless of the current token;
// otherwise the token is renewed if due and returned untouched if not.
// Evaluate never returns an error: every outcome is a well-formed token,
// possibly unchanged, possibly tombstoned.
func (o *Orchestrator) Evaluate(ctx context.Context, token sessiontoken.SessionToken, event *SignInEvent) Result {
	if event != nil {
		return o.signIn(ctx, *event)
	}

	// Terminal states never self-heal; only a fresh sign-in event leaves them.
	if token.HasError() {
		return Result{Outcome: OutcomeFatal, Token: token}
	}

	if !renewal.IsDue(token, o.nowTime()) {
		return Result{Outcome: OutcomeActive, Token: token}
	}

	return o.renew(ctx, token)
}

// signIn exchanges a verified IdP identity for a new backend session.
// Any failure yields a clean LoginFailed token with no partial state; the
// caller is expected to force a fresh interactive login.
func (o *Orchestrator) signIn(ctx context.Context, event SignInEvent) Result {
	if event.Subject == "" {
		o.logger.Warn().
			Str("provider", string(event.Provider)).
			Err(apperrors.ErrMissingSubject).
			Msg("sign-in refused")
		return Result{Outcome: OutcomeFatal, Token: sessiontoken.Failed(sessiontoken.ErrorLoginFailed)}
	}

	grant, err := o.backend.SignInWithIdentity(ctx, backend.SignInParams{
		InstanceID:      o.instanceID,
		Subject:         event.Subject,
		Name:            event.Name,
		Email:           event.Email,
		ImageURL:        event.ImageURL,
		Provider:        event.Provider,
		IdpRefreshToken: event.IdpRefreshToken,
	})
	if err != nil {
		o.logger.Error().
			Str("provider", string(event.Provider)).
			Err(err).
			Msg("backend sign-in exchange failed")
		return Result{Outcome: OutcomeFatal, Token: sessiontoken.Failed(sessiontoken.ErrorLoginFailed)}
	}

	token := o.tokenFromGrant(event.Provider, grant)
	token.Identity = displayIdentity(event)
	return Result{Outcome: OutcomeActive, Token: token}
}

// renew runs the three-step renewal chain. Steps 1 and 2 fail open:
// renewing early is optional while the current access token still has
// time left, so their failures preserve the previous token. Step 3 is
// the one that fails closed, but only on an explicit backend rejection,
// which means the session itself has been invalidated.
func (o *Orchestrator) renew(ctx context.Context, token sessiontoken.SessionToken) Result {
	// Tokens that were never fully established have nothing to renew.
	if !token.Established() {
		return Result{Outcome: OutcomeActive, Token: token}
	}

	// Step 1: ask the backend for the renew token of this session.
	renewToken, err := o.backend.GetRenewToken(ctx, token.BackendAccessToken, token.BackendSessionID)
	if err != nil {
		o.logger.Warn().
			Str("session_id", token.BackendSessionID).
			Err(err).
			Msg("renewal: renew token fetch failed, keeping current session")
		return Result{Outcome: OutcomeSoftFailure, Token: token}
	}
	if renewToken == "" {
		// The backend never captured an IdP refresh token for this session.
		return Result{Outcome: OutcomeActive, Token: token}
	}

	// Step 2: exchange it at the IdP for a fresh refresh token.
	tokenSet, err := o.idp.RefreshToken(ctx, renewToken)
	if err != nil {
		o.logger.Warn().
			Str("session_id", token.BackendSessionID).
			Err(err).
			Msg("renewal: IdP refresh exchange failed, keeping current session")
		return Result{Outcome: OutcomeSoftFailure, Token: token}
	}
	if tokenSet.RefreshToken == "" {
		o.logger.Warn().
			Str("session_id", token.BackendSessionID).
			Msg("renewal: IdP returned no refresh token, keeping current session")
		return Result{Outcome: OutcomeSoftFailure, Token: token}
	}

	// Step 3: extend the backend session with the fresh refresh token.
	grant, err := o.backend.ExtendSession(ctx, token.BackendAccessToken, tokenSet.RefreshToken)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrBackendRejected) {
			// The backend has explicitly invalidated this session; the
			// stale access token must not be presented as valid.
			o.logger.Error().
				Str("session_id", token.BackendSessionID).
				Err(err).
				Msg("renewal: backend rejected session extension")
			return Result{Outcome: OutcomeFatal, Token: token.Tombstone(sessiontoken.ErrorRefreshAccessToken)}
		}
		o.logger.Warn().
			Str("session_id", token.BackendSessionID).
			Err(err).
			Msg("renewal: session extension failed transiently, keeping current session")
		return Result{Outcome: OutcomeSoftFailure, Token: token}
	}

	renewed := o.tokenFromGrant(token.Provider, grant)
	renewed.Identity = token.Identity
	return Result{Outcome: OutcomeActive, Token: renewed}
}

// tokenFromGrant builds a fresh token from a backend grant: all
// renewal-relevant fields set together, error cleared.
func (o *Orchestrator) tokenFromGrant(provider sessiontoken.Provider, grant *backend.SessionGrant) sessiontoken.SessionToken {
	issuedAt := o.nowTime().Unix()
	expiresAt, renewAt := renewal.Window(issuedAt, grant.ExpiresIn)

	return sessiontoken.SessionToken{
		Provider:           provider,
		BackendSessionID:   grant.SessionID,
		BackendAccessToken: grant.AccessToken,
		ExpiresAt:          expiresAt,
		RenewAt:            renewAt,
		IsAdmin:            grant.IsAdmin,
		Permissions:        grant.Permissions,
		Error:              sessiontoken.ErrorNone,
	}
}

func displayIdentity(event SignInEvent) *sessiontoken.DisplayIdentity {
	if event.Name == "" && event.Email == "" && event.ImageURL == "" {
		return nil
	}
	return &sessiontoken.DisplayIdentity{
		Name:     event.Name,
		Email:    event.Email,
		ImageURL: event.ImageURL,
	}
}
