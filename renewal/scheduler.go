package renewal

import (
	"time"

	"github.com/surveyforge/console-auth/sessiontoken"
)

// ComputeRenewAt returns the scheduled renewal time for a token issued at
// issuedAt and expiring at expiresAt: the floor midpoint of the validity
// window. Midpoint scheduling self-scales to whatever lifetime the backend
// grants and always leaves at least half the window as a buffer against a
// failed renewal attempt.
func ComputeRenewAt(issuedAt, expiresAt int64) int64 {
	return (expiresAt + issuedAt) / 2
}

// Window computes the absolute expiry and renewal times for a grant issued
// at issuedAt with a relative lifetime of expiresIn seconds.
func Window(issuedAt, expiresIn int64) (expiresAt, renewAt int64) {
	expiresAt = issuedAt + expiresIn
	return expiresAt, ComputeRenewAt(issuedAt, expiresAt)
}

// IsDue reports whether the token is due for a renewal attempt: its
// RenewAt is set and now has reached it. Tokens without a schedule are
// never due.
func IsDue(token sessiontoken.SessionToken, now time.Time) bool {
	return token.RenewAt != 0 && now.Unix() >= token.RenewAt
}
