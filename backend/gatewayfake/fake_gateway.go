package gatewayfake

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/surveyforge/console-auth/backend"
)

var _ backend.SessionAPI = (*FakeGateway)(nil)

// FakeGateway is a scripted stand-in for the backend session API. Each
// operation returns the configured grant/token or error and records its
// calls for assertions.
type FakeGateway struct {
	SignInGrant *backend.SessionGrant
	SignInErr   error

	RenewToken    string
	RenewTokenErr error

	ExtendGrant *backend.SessionGrant
	ExtendErr   error

	SignInCalls     []backend.SignInParams
	RenewTokenCalls []RenewTokenCall
	ExtendCalls     []ExtendCall

	lock sync.Mutex
}

type RenewTokenCall struct {
	AccessToken string
	SessionID   string
}

type ExtendCall struct {
	AccessToken     string
	IdpRefreshToken string
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

func (g *FakeGateway) SignInWithIdentity(_ context.Context, params backend.SignInParams) (*backend.SessionGrant, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.SignInCalls = append(g.SignInCalls, params)
	if g.SignInErr != nil {
		return nil, g.SignInErr
	}
	if g.SignInGrant == nil {
		return nil, errors.New("gatewayfake: no sign-in grant configured")
	}
	grant := *g.SignInGrant
	return &grant, nil
}

func (g *FakeGateway) GetRenewToken(_ context.Context, accessToken, sessionID string) (string, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.RenewTokenCalls = append(g.RenewTokenCalls, RenewTokenCall{AccessToken: accessToken, SessionID: sessionID})
	if g.RenewTokenErr != nil {
		return "", g.RenewTokenErr
	}
	return g.RenewToken, nil
}

func (g *FakeGateway) ExtendSession(_ context.Context, accessToken, idpRefreshToken string) (*backend.SessionGrant, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.ExtendCalls = append(g.ExtendCalls, ExtendCall{AccessToken: accessToken, IdpRefreshToken: idpRefreshToken})
	if g.ExtendErr != nil {
		return nil, g.ExtendErr
	}
	if g.ExtendGrant == nil {
		return nil, errors.New("gatewayfake: no extend grant configured")
	}
	grant := *g.ExtendGrant
	return &grant, nil
}
