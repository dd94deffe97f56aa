package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/surveyforge/console-auth/backend"
	"github.com/surveyforge/console-auth/backend/gatewayfake"
	"github.com/surveyforge/console-auth/idp"
	"github.com/surveyforge/console-auth/idp/idpfake"
	"github.com/surveyforge/console-auth/internal/config"
	apperrors "github.com/surveyforge/console-auth/internal/errors"
	"github.com/surveyforge/console-auth/orchestrator"
	"github.com/surveyforge/console-auth/server"
	"github.com/surveyforge/console-auth/sessiontoken"
	"github.com/surveyforge/console-auth/sessiontoken/jwtcodec"
)

// fakeFlow is a scripted IdentityFlow for handler tests.
type fakeFlow struct {
	identity *idp.Identity
	err      error
}

func (f *fakeFlow) AuthCodeURL(state, nonce, codeChallenge string) string {
	return "https://idp.example.com/authorize?state=" + state
}

func (f *fakeFlow) ExchangeCode(_ context.Context, code, codeVerifier, expectedNonce string) (*idp.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type testFixture struct {
	config  config.Config
	gateway *gatewayfake.FakeGateway
	flow    *fakeFlow
	server  *server.Server
	codec   *jwtcodec.Codec
}

func setupTestFixture(t *testing.T, now int64) *testFixture {
	t.Helper()

	cfg := config.New()
	gateway := gatewayfake.NewFakeGateway()
	refresher := idpfake.NewFakeRefresher()

	orch, err := orchestrator.New(gateway, refresher, cfg.GetInstanceID(),
		orchestrator.WithNowTime(func() time.Time { return time.Unix(now, 0) }),
	)
	require.NoError(t, err)

	flow := &fakeFlow{}
	srv, err := server.New(cfg, orch, flow)
	require.NoError(t, err)

	return &testFixture{
		config:  cfg,
		gateway: gateway,
		flow:    flow,
		server:  srv,
		codec:   jwtcodec.New(cfg.GetCookieSigningKey()),
	}
}

func (f *testFixture) requestWithSession(t *testing.T, token sessiontoken.SessionToken, target string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	value, err := f.codec.Encode(token)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: f.config.GetSessionCookieName(), Value: value})
	return req
}

// sessionCookie extracts the session cookie written to the recorder, if any.
func (f *testFixture) sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == f.config.GetSessionCookieName() {
			return c
		}
	}
	return nil
}

func activeToken() sessiontoken.SessionToken {
	return sessiontoken.SessionToken{
		Provider:           sessiontoken.ProviderOIDC,
		BackendSessionID:   "s1",
		BackendAccessToken: "a1",
		ExpiresAt:          1100,
		RenewAt:            1050,
	}
}

func TestRequireSessionRedirectsWithoutCookie(t *testing.T) {
	fixture := setupTestFixture(t, 1000)

	called := false
	handler := fixture.server.RequireSession()(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/surveys", nil))

	require.False(t, called)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), server.RouteLogin)
	require.Contains(t, rec.Header().Get("Location"), "return_url=%2Fsurveys")
}

func TestRequireSessionPassesActiveToken(t *testing.T) {
	fixture := setupTestFixture(t, 1000) // before renewAt

	var gotToken sessiontoken.SessionToken
	var gotBearer string
	handler := fixture.server.RequireSession()(func(w http.ResponseWriter, r *http.Request) {
		gotToken, _ = server.FromContext(r.Context())
		gotBearer, _ = server.BearerFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	handler(rec, fixture.requestWithSession(t, activeToken(), "/surveys"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, activeToken(), gotToken)
	require.Equal(t, "a1", gotBearer)
	require.Nil(t, fixture.sessionCookie(rec), "unchanged token must not rewrite the cookie")
}

func TestRequireSessionRenewsDueToken(t *testing.T) {
	fixture := setupTestFixture(t, 1060) // past renewAt
	fixture.gateway.RenewToken = "r1"
	fixture.gateway.ExtendGrant = &backend.SessionGrant{
		SessionID:   "s2",
		AccessToken: "a2",
		ExpiresIn:   1000,
		IsAdmin:     true,
	}

	refresher := idpfake.NewFakeRefresher()
	refresher.TokenSet = &idp.TokenSet{AccessToken: "ia2", RefreshToken: "ir2", ExpiresIn: 3600}
	orch, err := orchestrator.New(fixture.gateway, refresher, "default",
		orchestrator.WithNowTime(func() time.Time { return time.Unix(1060, 0) }),
	)
	require.NoError(t, err)
	srv, err := server.New(fixture.config, orch, fixture.flow)
	require.NoError(t, err)

	var gotBearer string
	handler := srv.RequireSession()(func(w http.ResponseWriter, r *http.Request) {
		gotBearer, _ = server.BearerFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	handler(rec, fixture.requestWithSession(t, activeToken(), "/surveys"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a2", gotBearer, "handler sees the renewed credential")

	cookie := fixture.sessionCookie(rec)
	require.NotNil(t, cookie, "renewed token must be persisted")
	renewed, err := fixture.codec.Decode(cookie.Value)
	require.NoError(t, err)
	require.Equal(t, "s2", renewed.BackendSessionID)
	require.Equal(t, int64(2060), renewed.ExpiresAt)
	require.Equal(t, int64(1560), renewed.RenewAt)
}

func TestRequireSessionTombstonesOnExplicitRejection(t *testing.T) {
	fixture := setupTestFixture(t, 1060)
	fixture.gateway.RenewToken = "r1"
	fixture.gateway.ExtendErr = apperrors.ErrBackendRejected

	refresher := idpfake.NewFakeRefresher()
	refresher.TokenSet = &idp.TokenSet{AccessToken: "ia2", RefreshToken: "ir2", ExpiresIn: 3600}
	orch, err := orchestrator.New(fixture.gateway, refresher, "default",
		orchestrator.WithNowTime(func() time.Time { return time.Unix(1060, 0) }),
	)
	require.NoError(t, err)
	srv, err := server.New(fixture.config, orch, fixture.flow)
	require.NoError(t, err)

	called := false
	handler := srv.RequireSession()(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	handler(rec, fixture.requestWithSession(t, activeToken(), "/surveys"))

	require.False(t, called)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	cookie := fixture.sessionCookie(rec)
	require.NotNil(t, cookie)
	dead, err := fixture.codec.Decode(cookie.Value)
	require.NoError(t, err)
	require.Equal(t, sessiontoken.ErrorRefreshAccessToken, dead.Error)
}

func TestSignOutClearsCookie(t *testing.T) {
	fixture := setupTestFixture(t, 1000)

	rec := httptest.NewRecorder()
	fixture.server.SignOutHandler()(rec, fixture.requestWithSession(t, activeToken(), server.RouteLogout))

	cookie := fixture.sessionCookie(rec)
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
	require.Negative(t, cookie.MaxAge)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.RouteLogin, rec.Header().Get("Location"))
}
