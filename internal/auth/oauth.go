package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sakif/og-studio/internal/apperror"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUserURL is the "get the authenticated user" endpoint.
const GitHubUserURL = "https://api.github.com/user"

// GitHubUser is the portion of the GitHub /user API response we care about.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID        int64  `json:"id"`         // stable, never changes
	Login     string `json:"login"`      // GitHub username, e.g. "sakif"
	Name      string `json:"name"`       // display name, often empty
	AvatarURL string `json:"avatar_url"` // profile picture URL
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Redirect the user to GitHub's authorization endpoint with ClientID and scopes.
//  2. The user approves (or denies) on GitHub.
//  3. GitHub redirects back to CallbackURL with a short-lived "code".
//  4. Exchange the code for an access token (server-to-server, uses ClientSecret).
//  5. Use the access token to call the GitHub API for user info.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// GitHubOption customises a GitHubProvider. Tests use these to point the
// provider at an httptest server.
type GitHubOption func(*GitHubProvider)

// WithEndpoint overrides GitHub's authorize/token endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) GitHubOption {
	return func(p *GitHubProvider) {
		p.config.Endpoint = endpoint
	}
}

// WithUserURL overrides the profile endpoint.
func WithUserURL(url string) GitHubOption {
	return func(p *GitHubProvider) {
		p.userURL = url
	}
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// callbackURL must match the "Authorization callback URL" of the OAuth App
// exactly. Example: "http://localhost:8080/auth/github/callback"
//
// Only "read:user" is requested: the profile (ID, login, name, avatar) is all
// the app stores.
func NewGitHubProvider(clientID, clientSecret, callbackURL string, opts ...GitHubOption) *GitHubProvider {
	endpoint := github.Endpoint
	// GitHub takes client credentials in the form body. Pinning the style
	// stops oauth2 from retrying the exchange with a second style on failure.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	p := &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     endpoint,
		},
		userURL: GitHubUserURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// The state is a random value the caller also stores in a cookie; the
// callback compares the two to reject forged requests.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the GitHub user profile.
//
// A code GitHub refuses (expired, already used, unknown) comes back as an
// error wrapping apperror.ErrInvalidCode. Everything else (network, provider
// outage, bad JSON) is returned unclassified.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode != "" {
			return nil, fmt.Errorf("auth: exchanging OAuth code: %w (%w)", apperror.InvalidCode(rErr.ErrorCode), err)
		}
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// Client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 {
		return nil, errors.New("auth: GitHub returned an invalid user (ID = 0)")
	}

	return &ghUser, nil
}
