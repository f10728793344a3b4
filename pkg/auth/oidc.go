package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/caldera-store/caldera/config/configkey"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
)

type OIDCClaims struct {
	Subject           string
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Picture           string `json:"picture"`
}

// OIDCProvider handles login against a generic OpenID Connect provider
// configured with oidc.provider.url.
type OIDCProvider struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	conf     *oauth2.Config
}

func NewOIDCProvider(ctx context.Context) (*OIDCProvider, error) {
	providerURL := viper.GetString(configkey.OIDCProviderURL)
	if providerURL == "" {
		return nil, errors.New("oidc provider url not configured")
	}

	provider, err := oidc.NewProvider(ctx, providerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}

	clientId := viper.GetString(configkey.OIDCClientId)

	return &OIDCProvider{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientId}),
		conf: &oauth2.Config{
			ClientID:     clientId,
			ClientSecret: viper.GetString(configkey.OIDCClientSecret),
			RedirectURL:  viper.GetString(configkey.ExternalURL) + "/auth/oidc/callback",
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func (p *OIDCProvider) Name() string {
	return "oidc"
}

func (p *OIDCProvider) LoginURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

// Exchange trades the callback code for a verified identity.
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*OIDCClaims, string, error) {
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("oidc code exchange failed: %w", err)
	}

	rawIdToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, "", errors.New("oidc token response missing id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIdToken)
	if err != nil {
		return nil, "", fmt.Errorf("oidc id token verification failed: %w", err)
	}

	var claims OIDCClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, "", err
	}
	claims.Subject = idToken.Subject
	if claims.PreferredUsername == "" {
		claims.PreferredUsername = claims.Email
	}
	if claims.Name == "" {
		claims.Name = claims.PreferredUsername
	}

	return &claims, token.AccessToken, nil
}

// ValidateToken asks the provider's UserInfo endpoint whether the access
// token still stands. Fail closed on any error.
func (p *OIDCProvider) ValidateToken(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, revocationCheckTimeout)
	defer cancel()

	_, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	if err != nil {
		logrus.Warnf("oidc token check failed, treating as revoked: %v", err)
		return false
	}

	return true
}
