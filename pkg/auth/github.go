package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/caldera-store/caldera/config/configkey"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// revocation checks block the request, so keep them short
const revocationCheckTimeout = 5 * time.Second

type GithubUser struct {
	Id        int    `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type GithubProvider struct {
	conf    *oauth2.Config
	client  *resty.Client
	apiBase string
}

func NewGithubProvider() *GithubProvider {
	return &GithubProvider{
		conf: &oauth2.Config{
			ClientID:     viper.GetString(configkey.GithubClientId),
			ClientSecret: viper.GetString(configkey.GithubClientSecret),
			RedirectURL:  viper.GetString(configkey.ExternalURL) + "/auth/github/callback",
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		client:  resty.New().SetTimeout(revocationCheckTimeout),
		apiBase: "https://api.github.com",
	}
}

func (p *GithubProvider) Name() string {
	return "github"
}

func (p *GithubProvider) LoginURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

// Exchange trades the callback code for a token and fetches the GitHub
// user behind it.
func (p *GithubProvider) Exchange(ctx context.Context, code string) (*GithubUser, string, error) {
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("github code exchange failed: %w", err)
	}

	user, err := p.fetchUser(ctx, token.AccessToken)
	if err != nil {
		return nil, "", err
	}

	return user, token.AccessToken, nil
}

// ValidateToken reports whether the stored token is still good. Any
// network failure or non-200 is treated as revoked: the session gets
// logged out rather than trusted.
func (p *GithubProvider) ValidateToken(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, revocationCheckTimeout)
	defer cancel()

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "token "+token).
		Get(p.apiBase + "/user")
	if err != nil {
		logrus.Warnf("github token check failed, treating as revoked: %v", err)
		return false
	}

	return resp.StatusCode() == http.StatusOK
}

func (p *GithubProvider) fetchUser(ctx context.Context, token string) (*GithubUser, error) {
	var user GithubUser
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "token "+token).
		SetResult(&user).
		Get(p.apiBase + "/user")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("github api returned status %d", resp.StatusCode())
	}
	if user.Name == "" {
		user.Name = user.Login
	}

	return &user, nil
}
