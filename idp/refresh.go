package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/surveyforge/console-auth/internal/errors"
)

// flexSeconds decodes expires_in whether the IdP sends it as a JSON
// number or, as some providers do, a quoted string.
type flexSeconds int64

func (s *flexSeconds) UnmarshalJSON(b []byte) error {
	trimmed := bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return err
	}
	*s = flexSeconds(v)
	return nil
}

type refreshResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    flexSeconds `json:"expires_in"`
}

type idpError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// RefreshToken exchanges an opaque refresh token for a new token set via
// grant_type=refresh_token against the token endpoint, using the
// client's own confidential credentials. Failures are typed: a transport
// fault unwraps to ErrIdentityProviderConnection, an explicit IdP denial
// to ErrIdentityProviderRejected. Token values are never logged.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	params := url.Values{}
	params.Set("client_id", c.cfg.ClientID)
	params.Set("client_secret", c.cfg.ClientSecret)
	params.Set("grant_type", "refresh_token")
	params.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, apperrors.Wrapf(err, "idp.RefreshToken request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().
			Str("endpoint", c.tokenEndpoint).
			Err(err).
			Msg("identity provider unreachable")
		return nil, apperrors.Wrapf(apperrors.ErrIdentityProviderConnection, "%v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrIdentityProviderConnection, "read body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		idpErr := idpError{}
		_ = json.Unmarshal(raw, &idpErr)
		c.logger.Warn().
			Str("endpoint", c.tokenEndpoint).
			Int("status", resp.StatusCode).
			Str("idp_error", idpErr.Code).
			Str("idp_error_description", idpErr.Description).
			Msg("identity provider rejected refresh exchange")
		return nil, apperrors.Wrapf(apperrors.ErrIdentityProviderRejected, "status %d: %s", resp.StatusCode, idpErr.Code)
	}

	tokenResponse := refreshResponse{}
	if err := json.Unmarshal(raw, &tokenResponse); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrIdentityProviderInvalidResponse, "decode: %v", err)
	}
	if tokenResponse.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrIdentityProviderInvalidResponse, "no access token in response")
	}

	return &TokenSet{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresIn:    int64(tokenResponse.ExpiresIn),
	}, nil
}
