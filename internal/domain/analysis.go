package domain

import (
	"fmt"
	"time"
)

// Analysis represents an AI-generated analysis of a repository at a given ref.
// At most one record exists per (owner, repo, ref); re-analysis overwrites.
type Analysis struct {
	Owner         string `json:"owner"`
	Repo          string `json:"repo"`
	Ref           string `json:"ref"`
	Summary       string `json:"summary"`
	Body          string `json:"analysis"`
	FilesAnalyzed int    `json:"files_analyzed"`
	CreatedAt     int64  `json:"created_at"` // epoch millis
}

// AnalysisKey returns the composite cache key for a repository analysis.
func AnalysisKey(owner, repo, ref string) string {
	return fmt.Sprintf("%s/%s/%s", owner, repo, ref)
}

// Key returns the composite cache key of this analysis.
func (a *Analysis) Key() string {
	return AnalysisKey(a.Owner, a.Repo, a.Ref)
}

// Validate checks the analysis invariants.
func (a *Analysis) Validate() error {
	if a.Owner == "" || a.Repo == "" || a.Ref == "" {
		return NewValidationError("INVALID_ANALYSIS_KEY", "Owner, repo and ref must all be set", nil)
	}
	if a.FilesAnalyzed < 0 {
		return NewValidationError("NEGATIVE_FILE_COUNT", "Files analyzed count cannot be negative", nil)
	}
	return nil
}

// Age returns how long ago the analysis was produced.
func (a *Analysis) Age() time.Duration {
	return time.Since(time.UnixMilli(a.CreatedAt))
}
