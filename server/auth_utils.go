package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"

	"github.com/surveyforge/console-auth/sessiontoken"
)

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// generateCodeChallenge creates a PKCE code challenge from a verifier
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

func getScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// setSessionCookie writes the signed session token. The cookie outlives
// the access token so tombstoned sessions can still be read and routed
// to a fresh login.
func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, token sessiontoken.SessionToken) {
	value, err := s.codec.Encode(token)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode session cookie")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * 24 * 60 * 60,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// sessionFromRequest decodes the request's session cookie. A missing or
// invalid cookie yields the zero token: the caller starts from scratch.
func (s *Server) sessionFromRequest(r *http.Request) sessiontoken.SessionToken {
	cookie, err := r.Cookie(s.config.GetSessionCookieName())
	if err != nil {
		return sessiontoken.SessionToken{}
	}

	token, err := s.codec.Decode(cookie.Value)
	if err != nil {
		s.logger.Debug().Err(err).Msg("discarding unreadable session cookie")
		return sessiontoken.SessionToken{}
	}
	return token
}
