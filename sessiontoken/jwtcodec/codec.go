// Package jwtcodec serializes a SessionToken into the signed cookie value
// the host framework carries between requests. The cookie is the only
// durable record of the session: the server keeps no state of its own.
package jwtcodec

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/surveyforge/console-auth/internal/errors"
	"github.com/surveyforge/console-auth/sessiontoken"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const issuerClaim = "console-auth"

type sessionClaims struct {
	Session sessiontoken.SessionToken `json:"session"`
	jwtlib.RegisteredClaims
}

// Codec signs and verifies session cookies with a shared HMAC key.
type Codec struct {
	signingKey []byte
}

func New(signingKey []byte) *Codec {
	return &Codec{signingKey: signingKey}
}

// Encode signs the token into a compact JWT suitable for a cookie value.
// The JWT itself carries no expiry: the session token's own ExpiresAt and
// the backend's rejection of stale access tokens are the backstop, and a
// tombstoned token must survive past expiry so the host can read its
// error marker.
func (c *Codec) Encode(token sessiontoken.SessionToken) (string, error) {
	claims := sessionClaims{
		Session: token,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:   issuerClaim,
			IssuedAt: jwtlib.NewNumericDate(NowTimeFunc()),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", apperrors.Wrapf(err, "jwtcodec.Encode sign")
	}
	return signed, nil
}

// Decode verifies the cookie value and returns the session token it
// carries. A forged, tampered or otherwise unparseable value returns
// ErrInvalidSessionCookie; callers treat that as an absent session and
// start a fresh interactive login rather than surfacing an error.
func (c *Codec) Decode(raw string) (sessiontoken.SessionToken, error) {
	claims := &sessionClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims,
		func(t *jwtlib.Token) (interface{}, error) { return c.signingKey, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(issuerClaim),
	)
	if err != nil {
		return sessiontoken.SessionToken{}, apperrors.Wrapf(apperrors.ErrInvalidSessionCookie, "jwtcodec.Decode: %v", err)
	}
	return claims.Session, nil
}
