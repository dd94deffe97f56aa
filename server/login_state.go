package server

import (
	"net/http"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// loginStateTimeout bounds how long an interactive login may stay
// in flight.
const loginStateTimeout = 5 * time.Minute

// loginState tracks one in-flight interactive login. It travels in its
// own short-lived signed cookie, so the server keeps no state between
// the redirect to the IdP and the callback.
type loginState struct {
	State        string `json:"state"`
	Nonce        string `json:"nonce"`
	CodeVerifier string `json:"codeVerifier"`
	ReturnURL    string `json:"returnUrl,omitempty"`
}

type loginStateClaims struct {
	Login loginState `json:"login"`
	jwtlib.RegisteredClaims
}

func (s *Server) setLoginStateCookie(w http.ResponseWriter, r *http.Request, state loginState) error {
	claims := loginStateClaims{
		Login: state,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(loginStateTimeout)),
		},
	}

	value, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.config.GetCookieSigningKey())
	if err != nil {
		return errors.Wrap(err, "[server.setLoginStateCookie] sign")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetLoginStateCookieName(),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(loginStateTimeout.Seconds()),
	})
	return nil
}

func (s *Server) loginStateFromRequest(r *http.Request) (*loginState, error) {
	cookie, err := r.Cookie(s.config.GetLoginStateCookieName())
	if err != nil {
		return nil, errors.Wrap(err, "[server.loginStateFromRequest] no login state cookie")
	}

	claims := &loginStateClaims{}
	_, err = jwtlib.ParseWithClaims(cookie.Value, claims,
		func(t *jwtlib.Token) (interface{}, error) { return s.config.GetCookieSigningKey(), nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[server.loginStateFromRequest] parse")
	}
	return &claims.Login, nil
}

func (s *Server) clearLoginStateCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetLoginStateCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
