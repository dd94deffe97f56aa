package config

import "strings"

const (
	idpIssuerVar       = "IDP_ISSUER"
	idpClientIDVar     = "IDP_CLIENT_ID"
	idpClientSecretVar = "IDP_CLIENT_SECRET"
	idpRedirectURLVar  = "IDP_REDIRECT_URL"
	idpScopesVar       = "IDP_SCOPES"
)

// IdentityProvider reads the OIDC relying-party settings from the environment.
type IdentityProvider struct{}

var _ IdentityProviderConfig = IdentityProvider{}

func (IdentityProvider) GetIssuer() string {
	return GetEnv(idpIssuerVar, "")
}

func (IdentityProvider) GetClientID() string {
	return GetEnv(idpClientIDVar, "")
}

func (IdentityProvider) GetClientSecret() string {
	return GetEnv(idpClientSecretVar, "")
}

func (IdentityProvider) GetRedirectURL() string {
	return GetEnv(idpRedirectURLVar, EnvVars{}.GetBaseURL()+"/callback")
}

// GetScopes returns the scopes requested from the IdP. offline_access is
// included by default so the IdP issues the refresh token the renewal
// chain depends on.
func (IdentityProvider) GetScopes() []string {
	scopes := GetEnv(idpScopesVar, "openid profile email offline_access")
	return strings.Fields(scopes)
}
