package idpfake

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/surveyforge/console-auth/idp"
)

var _ idp.TokenRefresher = (*FakeRefresher)(nil)

// FakeRefresher is a scripted stand-in for the IdP token endpoint.
type FakeRefresher struct {
	TokenSet *idp.TokenSet
	Err      error

	Calls []string // refresh tokens passed in

	lock sync.Mutex
}

func NewFakeRefresher() *FakeRefresher {
	return &FakeRefresher{}
}

func (f *FakeRefresher) RefreshToken(_ context.Context, refreshToken string) (*idp.TokenSet, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.Calls = append(f.Calls, refreshToken)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.TokenSet == nil {
		return nil, errors.New("idpfake: no token set configured")
	}
	tokenSet := *f.TokenSet
	return &tokenSet, nil
}
