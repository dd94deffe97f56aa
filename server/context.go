package server

import (
	"context"

	"github.com/surveyforge/console-auth/sessiontoken"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySessionToken stores the evaluated session token for the request
const ContextKeySessionToken ContextKey = "session_token"

// FromContext returns the session token the middleware attached to the
// request, if any.
func FromContext(ctx context.Context) (sessiontoken.SessionToken, bool) {
	token, ok := ctx.Value(ContextKeySessionToken).(sessiontoken.SessionToken)
	return token, ok
}

// BearerFromContext returns the usable backend access token for outbound
// management API calls, honoring the token's error gate.
func BearerFromContext(ctx context.Context) (string, bool) {
	token, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	return token.UsableAccessToken()
}
