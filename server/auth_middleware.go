package server

import (
	"context"
	"net/http"
	"net/url"
)

// RequireSession is middleware for console routes. It evaluates the
// session token exactly once per request: decodes the cookie, lets the
// orchestrator decide whether to renew, persists whatever token comes
// back, and redirects to interactive login when the session is absent or
// terminally broken.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := s.sessionFromRequest(r)

			result := s.orchestrator.Evaluate(r.Context(), token, nil)

			// Persist the token whenever the orchestrator changed it:
			// renewed fields or a tombstone both need to reach the client.
			if !result.Token.Equal(token) {
				s.setSessionCookie(w, r, result.Token)
			}

			if result.Token.HasError() || !result.Token.Established() {
				s.redirectToLogin(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySessionToken, result.Token)
			next(w, r.WithContext(ctx))
		}
	}
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := RouteLogin
	if r.Method == http.MethodGet && r.URL.Path != RouteHome {
		target += "?return_url=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
