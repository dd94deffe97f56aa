package server

import (
	"fmt"
	"net/http"

	"github.com/surveyforge/console-auth/orchestrator"
)

// LoginHandler kicks off an interactive IdP login: generates state,
// nonce and a PKCE verifier, stashes them in the short-lived login-state
// cookie, and redirects to the IdP's authorization endpoint.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := loginState{
			State:        generateRandomString(32),
			Nonce:        generateRandomString(32),
			CodeVerifier: generateRandomString(32),
			ReturnURL:    r.URL.Query().Get("return_url"),
		}

		if err := s.setLoginStateCookie(w, r, state); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist login state")
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}

		authURL := s.identityFlow.AuthCodeURL(state.State, state.Nonce, generateCodeChallenge(state.CodeVerifier))
		http.Redirect(w, r, authURL, http.StatusSeeOther)
	}
}

// CallbackHandler completes the interactive flow: verifies state,
// exchanges the code for a verified identity, and hands that identity to
// the orchestrator as a sign-in event. The resulting token - fresh
// session or clean LoginFailed tombstone - is written to the cookie
// either way.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue supports both GET query params and form_post
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		if errorParam != "" {
			http.Error(w, fmt.Sprintf("Authorization failed: %s - %s", errorParam, errorDesc), http.StatusBadRequest)
			return
		}
		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		login, err := s.loginStateFromRequest(r)
		if err != nil || login.State != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}
		s.clearLoginStateCookie(w, r)

		identity, err := s.identityFlow.ExchangeCode(r.Context(), code, login.CodeVerifier, login.Nonce)
		if err != nil {
			s.logger.Error().Err(err).Msg("IdP code exchange failed")
			http.Error(w, "Login failed", http.StatusUnauthorized)
			return
		}

		event := orchestrator.SignInEvent{
			Provider:        identity.Provider,
			Subject:         identity.Subject,
			Name:            identity.Name,
			Email:           identity.Email,
			ImageURL:        identity.ImageURL,
			IdpRefreshToken: identity.RefreshToken,
		}
		result := s.orchestrator.Evaluate(r.Context(), s.sessionFromRequest(r), &event)

		s.setSessionCookie(w, r, result.Token)

		if result.Outcome == orchestrator.OutcomeFatal {
			http.Error(w, "Login failed", http.StatusUnauthorized)
			return
		}

		returnURL := login.ReturnURL
		if returnURL == "" {
			returnURL = RouteHome
		}
		http.Redirect(w, r, returnURL, http.StatusSeeOther)
	}
}

// SignOutHandler destroys the session. The token is the only session
// record there is, so discarding the cookie is the whole operation: no
// backend call is made.
func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.clearSessionCookie(w, r)
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}
