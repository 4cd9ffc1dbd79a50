package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

const (
	ProviderGitHub  = "github"
	ProviderDiscord = "discord"
	ProviderGitLab  = "gitlab"
	ProviderGoogle  = "google"
	ProviderSpotify = "spotify"
)

// Discord is missing from x/oauth2/endpoints.
var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

type provider struct {
	endpoint oauth2.Endpoint
	scopes   []string
}

var providers = map[string]provider{
	ProviderGitHub:  {endpoints.GitHub, []string{"read:user", "user:email"}},
	ProviderDiscord: {discordEndpoint, []string{"identify", "email"}},
	ProviderGitLab:  {endpoints.GitLab, []string{"read_user"}},
	ProviderGoogle:  {endpoints.Google, []string{"openid", "email", "profile"}},
	ProviderSpotify: {spotifyEndpoint, spotifyScopes},
}

// OAuth builds authorize URLs for the sign-in providers.
type OAuth struct {
	clientIDs map[string]string
}

func NewOAuth(clientIDs map[string]string) *OAuth {
	return &OAuth{clientIDs: clientIDs}
}

func (o *OAuth) config(name, redirectURL string) (*oauth2.Config, error) {
	name = strings.ToLower(name)
	p, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	clientID := o.clientIDs[name]
	if clientID == "" {
		return nil, fmt.Errorf("%w: %q is not configured", ErrUnknownProvider, name)
	}
	return &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    p.endpoint,
		RedirectURL: redirectURL,
		Scopes:      p.scopes,
	}, nil
}

func (o *OAuth) AuthorizeURL(name, redirectURL, state string) (string, error) {
	cfg, err := o.config(name, redirectURL)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state), nil
}
