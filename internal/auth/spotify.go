package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	SpotifyScopes   = "user-read-playback-state user-read-currently-playing"
	httpCallTimeout = 10 * time.Second
)

var (
	spotifyScopes = strings.Fields(SpotifyScopes)

	spotifyEndpoint = oauth2.Endpoint{
		AuthURL:   endpoints.Spotify.AuthURL,
		TokenURL:  endpoints.Spotify.TokenURL,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
)

type SpotifyToken struct {
	AccessToken  string
	TokenType    string
	Scope        string
	ExpiresIn    int
	RefreshToken string
}

// SpotifyClient runs the authorization-code flow that links a Spotify account.
type SpotifyClient struct {
	Config     *oauth2.Config
	HTTPClient *http.Client
	states     *LinkStates
}

func NewSpotifyClient(clientID, clientSecret, publicURL string, states *LinkStates) *SpotifyClient {
	return &SpotifyClient{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     spotifyEndpoint,
			RedirectURL:  strings.TrimRight(publicURL, "/") + "/api/oauth/callback/spotify",
			Scopes:       spotifyScopes,
		},
		HTTPClient: &http.Client{Timeout: httpCallTimeout},
		states:     states,
	}
}

// AuthorizeURL sends the browser to Spotify with a signed state naming userID.
func (c *SpotifyClient) AuthorizeURL(userID string) (string, error) {
	state, err := c.states.Sign(userID)
	if err != nil {
		return "", err
	}
	return c.Config.AuthCodeURL(state), nil
}

// UserFromState returns the user that started the flow.
func (c *SpotifyClient) UserFromState(state string) (string, error) {
	return c.states.Verify(state)
}

func (c *SpotifyClient) Exchange(ctx context.Context, code string) (*SpotifyToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
	tok, err := c.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("spotify token exchange failed: %w", err)
	}

	out := &SpotifyToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok),
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	return out, nil
}

// expiresIn reads the raw lifetime so callers can anchor it on their own clock.
func expiresIn(tok *oauth2.Token) int {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	if !tok.Expiry.IsZero() {
		return int(time.Until(tok.Expiry).Seconds())
	}
	return 0
}
