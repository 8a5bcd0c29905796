package domain

// Repository is a single entry in the user's repository listing. The listing
// is transient: every successful list operation fully replaces the previous
// one, and the local copy exists only as a read-through cache for offline use.
type Repository struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	HTMLURL     string  `json:"html_url"`
	Stars       int     `json:"stargazers_count"`
}

// Validate checks the listing entry invariants.
func (r *Repository) Validate() error {
	if r.Name == "" {
		return NewValidationError("EMPTY_REPO_NAME", "Repository name cannot be empty", nil)
	}
	return nil
}
