package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
	"github.com/custodia-labs/secondbrain-cli/internal/core/ports/driven"
)

// Ensure AuthClient implements the interfaces.
var (
	_ driven.AuthAPI      = (*AuthClient)(nil)
	_ driven.TokenRenewer = (*AuthClient)(nil)
)

// AuthClient talks to the /auth endpoints.
//
// Login, Renew and Logout use the plain transport: they carry their own
// credentials and must never trigger a renewal. Me goes through the
// authenticated client.
type AuthClient struct {
	api   *Client
	plain *http.Client
	oauth oauth2.Config
}

// tokenResponse is the body of /auth/login and /auth/refresh.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// refreshRequest is the body of /auth/refresh and /auth/logout.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// NewAuthClient creates an auth client. plain is the unauthenticated
// transport; api is the authenticated client.
func NewAuthClient(api *Client, plain *http.Client) *AuthClient {
	if plain == nil {
		plain = NewHTTPClient(DefaultTimeout)
	}
	return &AuthClient{
		api:   api,
		plain: plain,
		oauth: oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  api.endpoint("/auth/login"),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// Login performs the OAuth2 password grant against /auth/login.
func (a *AuthClient) Login(ctx context.Context, email, password string) (domain.CredentialPair, error) {
	ctx, cancel := a.api.bound(ctx)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.plain)

	token, err := a.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			switch retrieveErr.Response.StatusCode {
			case http.StatusUnauthorized, http.StatusBadRequest:
				return domain.CredentialPair{}, domain.ErrInvalidCredentials
			}
			return domain.CredentialPair{}, &domain.APIError{
				StatusCode: retrieveErr.Response.StatusCode,
				Detail:     string(retrieveErr.Body),
			}
		}
		return domain.CredentialPair{}, fmt.Errorf("%w: login: %w", domain.ErrTransientNetwork, err)
	}

	return domain.CredentialPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}, nil
}

// Renew exchanges a refresh token at /auth/refresh.
func (a *AuthClient) Renew(ctx context.Context, refreshToken string) (domain.CredentialPair, error) {
	req, err := a.api.newRequest(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return domain.CredentialPair{}, err
	}

	var resp tokenResponse
	if err := a.api.call(a.plain, req, &resp); err != nil {
		return domain.CredentialPair{}, fmt.Errorf("refresh: %w", err)
	}
	return domain.CredentialPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// Logout revokes a refresh token at /auth/logout.
func (a *AuthClient) Logout(ctx context.Context, refreshToken string) error {
	req, err := a.api.newRequest(ctx, http.MethodPost, "/auth/logout", refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	if err := a.api.call(a.plain, req, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me returns the authenticated user.
func (a *AuthClient) Me(ctx context.Context) (*domain.User, error) {
	req, err := a.api.newRequest(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := a.api.do(req, &user); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &user, nil
}
