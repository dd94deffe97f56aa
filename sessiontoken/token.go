package sessiontoken

import "slices"

// Provider identifies the identity provider that established a session.
// Currently a single OIDC provider is supported; the type exists so a
// second provider can be added without reshaping the token.
type Provider string

const ProviderOIDC Provider = "oidc"

// ErrorKind is the sticky fault marker carried by a SessionToken.
// Once set it is terminal: the orchestrator never clears it, and the
// surrounding application must force a fresh interactive login.
type ErrorKind string

const (
	// ErrorNone means the token carries no fault.
	ErrorNone ErrorKind = ""

	// ErrorLoginFailed means the initial identity exchange could not
	// establish a backend session.
	ErrorLoginFailed ErrorKind = "LoginFailed"

	// ErrorRefreshAccessToken means an established session was explicitly
	// rejected by the backend during renewal.
	ErrorRefreshAccessToken ErrorKind = "RefreshAccessTokenError"
)

// DisplayIdentity is the user-facing identity shown in the console chrome.
// It is not security-sensitive and is never used for authorization.
type DisplayIdentity struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// SessionToken is the unit of truth for an authenticated console session.
// It is carried by the caller on every request (serialized into a signed
// cookie by the host framework) and mutated only by the orchestrator:
// created by sign-in, replaced wholesale by a successful renewal,
// tombstoned (Error set, other fields left as-is) by a terminal failure,
// and destroyed by a plain client-side discard on sign-out.
type SessionToken struct {
	Provider           Provider         `json:"provider,omitempty"`
	BackendSessionID   string           `json:"backendSessionId,omitempty"`
	BackendAccessToken string           `json:"backendAccessToken,omitempty"`
	ExpiresAt          int64            `json:"expiresAt,omitempty"` // unix seconds
	RenewAt            int64            `json:"renewAt,omitempty"`   // unix seconds, always <= ExpiresAt
	IsAdmin            bool             `json:"isAdmin,omitempty"`
	Permissions        []string         `json:"permissions,omitempty"` // opaque to this subsystem
	Identity           *DisplayIdentity `json:"identity,omitempty"`
	Error              ErrorKind        `json:"error,omitempty"`
}

// Established reports whether the token carries a fully established backend
// session. BackendSessionID and BackendAccessToken are set together or not
// at all; a token failing this check is treated as never signed in.
func (t SessionToken) Established() bool {
	return t.BackendSessionID != "" && t.BackendAccessToken != ""
}

// HasError reports whether the token is tombstoned with a terminal fault.
func (t SessionToken) HasError() bool {
	return t.Error != ErrorNone
}

// UsableAccessToken returns the bearer credential for outbound management
// API calls. A tombstoned token never presents a credential, even if one
// is still present from a prior successful period.
func (t SessionToken) UsableAccessToken() (string, bool) {
	if t.HasError() || !t.Established() {
		return "", false
	}
	return t.BackendAccessToken, true
}

// Tombstone returns a copy of the token with the terminal fault set.
// Remaining fields are left as they were; callers must gate on
// UsableAccessToken rather than reading BackendAccessToken directly.
func (t SessionToken) Tombstone(kind ErrorKind) SessionToken {
	t.Error = kind
	return t
}

// Failed returns a token carrying only the given terminal fault, with no
// partial session state.
func Failed(kind ErrorKind) SessionToken {
	return SessionToken{Error: kind}
}

// Equal reports whether two tokens are field-for-field identical. Used
// by the transport layer to decide whether the cookie needs rewriting.
func (t SessionToken) Equal(other SessionToken) bool {
	if t.Provider != other.Provider ||
		t.BackendSessionID != other.BackendSessionID ||
		t.BackendAccessToken != other.BackendAccessToken ||
		t.ExpiresAt != other.ExpiresAt ||
		t.RenewAt != other.RenewAt ||
		t.IsAdmin != other.IsAdmin ||
		t.Error != other.Error {
		return false
	}
	if !slices.Equal(t.Permissions, other.Permissions) {
		return false
	}
	if (t.Identity == nil) != (other.Identity == nil) {
		return false
	}
	return t.Identity == nil || *t.Identity == *other.Identity
}
