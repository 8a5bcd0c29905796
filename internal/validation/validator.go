// Package validation provides input validation for repository coordinates.
package validation

import (
	"regexp"
	"strings"

	"gitgauge/internal/domain"
)

var (
	// GitHub logins: alphanumeric and hyphens, no leading/trailing or
	// consecutive hyphens. Length is checked separately.
	ownerRegex = regexp.MustCompile(`^[a-zA-Z0-9](?:-?[a-zA-Z0-9])*$`)

	// Repository names: alphanumeric plus dot, hyphen and underscore.
	repoRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)
)

// ValidateOwner checks a repository owner login.
func ValidateOwner(owner string) error {
	if owner == "" {
		return domain.NewValidationError("EMPTY_OWNER", "Repository owner cannot be empty", nil)
	}
	if len(owner) > 39 || !ownerRegex.MatchString(owner) {
		return domain.NewValidationError("INVALID_OWNER", "Invalid repository owner", map[string]interface{}{
			"owner": owner,
		})
	}
	return nil
}

// ValidateRepoName checks a repository name.
func ValidateRepoName(repo string) error {
	if repo == "" {
		return domain.NewValidationError("EMPTY_REPO", "Repository name cannot be empty", nil)
	}
	if repo == "." || repo == ".." {
		return domain.NewValidationError("INVALID_REPO", "Invalid repository name", map[string]interface{}{
			"repo": repo,
		})
	}
	if !repoRegex.MatchString(repo) {
		return domain.NewValidationError("INVALID_REPO", "Invalid repository name", map[string]interface{}{
			"repo": repo,
		})
	}
	return nil
}

// ValidateRef checks a git ref name against the rules that matter for
// building cache keys and request paths. It is stricter than git itself.
func ValidateRef(ref string) error {
	if ref == "" {
		return domain.NewValidationError("EMPTY_REF", "Git ref cannot be empty", nil)
	}
	if strings.HasPrefix(ref, "/") || strings.HasSuffix(ref, "/") ||
		strings.Contains(ref, "..") || strings.ContainsAny(ref, " ~^:?*[\\") {
		return domain.NewValidationError("INVALID_REF", "Invalid git ref", map[string]interface{}{
			"ref": ref,
		})
	}
	return nil
}

// ValidateCoordinates checks a full (owner, repo, ref) triple.
func ValidateCoordinates(owner, repo, ref string) error {
	if err := ValidateOwner(owner); err != nil {
		return err
	}
	if err := ValidateRepoName(repo); err != nil {
		return err
	}
	return ValidateRef(ref)
}
