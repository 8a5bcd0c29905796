package services

import (
	"context"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"gitgauge/internal/domain"
)

// UserFetcher resolves a full user profile from an access token.
type UserFetcher interface {
	// CurrentUser fetches the profile of the token's owner.
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
}

// GitHubUserFetcher fetches profiles from the GitHub REST API.
type GitHubUserFetcher struct {
	baseURL string
}

// NewGitHubUserFetcher creates a fetcher. baseURL overrides the API host for
// testing; an empty string targets api.github.com.
func NewGitHubUserFetcher(baseURL string) *GitHubUserFetcher {
	return &GitHubUserFetcher{baseURL: baseURL}
}

// CurrentUser fetches the profile of the token's owner.
func (f *GitHubUserFetcher) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.NewNoCredentialError("MISSING_TOKEN", "No access token available")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if f.baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(f.baseURL, f.baseURL)
		if err != nil {
			return nil, domain.NewInternalError("GITHUB_BASE_URL", "Invalid GitHub API base URL", err)
		}
	}

	ghUser, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, domain.NewRejectedError("GITHUB_UNAUTHORIZED", "GitHub rejected the access token", nil)
		}
		return nil, domain.NewUnavailableError("GITHUB_UNREACHABLE", "Failed to fetch user from GitHub", err)
	}

	user := &domain.User{
		ID:          ghUser.GetID(),
		Login:       ghUser.GetLogin(),
		AvatarURL:   ghUser.GetAvatarURL(),
		Name:        ghUser.Name,
		Bio:         ghUser.Bio,
		PublicRepos: ghUser.GetPublicRepos(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}
