// Package domain contains the core entities of the gitgauge client library.
package domain

// User represents a GitHub user profile as returned by the GitHub API.
// JSON tags follow GitHub's wire names so the struct decodes API responses
// directly.
//
// ID is a known lossy field: the session store does not persist it, so a
// profile restored from storage always carries ID 0.
type User struct {
	ID          int64   `json:"id"`
	Login       string  `json:"login"`
	AvatarURL   string  `json:"avatar_url"`
	Name        *string `json:"name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	PublicRepos int     `json:"public_repos"`
}

// Validate checks the user profile invariants.
func (u *User) Validate() error {
	if u.Login == "" {
		return NewValidationError("EMPTY_LOGIN", "User login cannot be empty", nil)
	}
	if u.PublicRepos < 0 {
		return NewValidationError("NEGATIVE_REPO_COUNT", "Public repository count cannot be negative", map[string]interface{}{
			"public_repos": u.PublicRepos,
		})
	}
	return nil
}

// DisplayName returns the user's name when set, falling back to the login.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Login
}
