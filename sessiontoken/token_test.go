package sessiontoken_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/surveyforge/console-auth/sessiontoken"
)

func TestUsableAccessToken(t *testing.T) {
	tests := []struct {
		name      string
		token     sessiontoken.SessionToken
		wantToken string
		wantOK    bool
	}{
		{
			name: "established token presents its credential",
			token: sessiontoken.SessionToken{
				BackendSessionID:   "s1",
				BackendAccessToken: "a1",
			},
			wantToken: "a1",
			wantOK:    true,
		},
		{
			name:   "zero token presents nothing",
			token:  sessiontoken.SessionToken{},
			wantOK: false,
		},
		{
			name: "tombstoned token never presents a stale credential",
			token: sessiontoken.SessionToken{
				BackendSessionID:   "s1",
				BackendAccessToken: "a1",
				Error:              sessiontoken.ErrorRefreshAccessToken,
			},
			wantOK: false,
		},
		{
			name: "access token without a session id is not established",
			token: sessiontoken.SessionToken{
				BackendAccessToken: "a1",
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.token.UsableAccessToken()
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantToken, got)
		})
	}
}

func TestTombstonePreservesFields(t *testing.T) {
	token := sessiontoken.SessionToken{
		Provider:           sessiontoken.ProviderOIDC,
		BackendSessionID:   "s1",
		BackendAccessToken: "a1",
		ExpiresAt:          1200,
		RenewAt:            1100,
		IsAdmin:            true,
	}

	dead := token.Tombstone(sessiontoken.ErrorRefreshAccessToken)

	require.True(t, dead.HasError())
	require.Equal(t, sessiontoken.ErrorRefreshAccessToken, dead.Error)
	require.Equal(t, "s1", dead.BackendSessionID)
	require.Equal(t, int64(1200), dead.ExpiresAt)

	// the original value is untouched
	require.False(t, token.HasError())
}

func TestFailedCarriesNoPartialState(t *testing.T) {
	token := sessiontoken.Failed(sessiontoken.ErrorLoginFailed)

	require.Equal(t, sessiontoken.SessionToken{Error: sessiontoken.ErrorLoginFailed}, token)
	require.False(t, token.Established())
}
