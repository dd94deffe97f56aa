package config

const (
	sessionCookieNameVar    = "SESSION_COOKIE_NAME"
	loginStateCookieNameVar = "LOGIN_STATE_COOKIE_NAME"
	cookieSigningKeyVar     = "COOKIE_SIGNING_KEY"
)

// SessionCookie reads the signed-cookie transport settings from the
// environment.
type SessionCookie struct{}

var _ SessionCookieConfig = SessionCookie{}

func (SessionCookie) GetSessionCookieName() string {
	return GetEnv(sessionCookieNameVar, "console_session")
}

func (SessionCookie) GetLoginStateCookieName() string {
	return GetEnv(loginStateCookieNameVar, "console_login_state")
}

func (SessionCookie) GetCookieSigningKey() []byte {
	return []byte(GetEnv(cookieSigningKeyVar, "cookie-signing-key-change-in-production"))
}
