package domain

import (
	"fmt"
	"time"
)

// DefaultAnalysisType is used when a notification payload omits the analysis type.
const DefaultAnalysisType = "repository_analysis"

// Notification is a locally stored analysis-completion event delivered over
// the notification channel.
type Notification struct {
	ID           string `json:"id"`
	RepoName     string `json:"repo_name"`
	RepoOwner    string `json:"repo_owner"`
	Message      string `json:"message"`
	AnalysisType string `json:"analysis_type"`
	Timestamp    int64  `json:"timestamp"` // epoch millis
	Read         bool   `json:"read"`
}

// NotificationPayload is the wire shape delivered by the notification channel.
type NotificationPayload struct {
	ID           string  `json:"id"`
	RepoName     string  `json:"repo_name"`
	RepoOwner    *string `json:"repo_owner,omitempty"`
	Message      *string `json:"message,omitempty"`
	AnalysisType string  `json:"analysis_type"`
}

// ToNotification converts a payload into a storable notification, filling the
// defaults the channel is allowed to omit. fallbackID is used when the payload
// carries no id.
func (p *NotificationPayload) ToNotification(fallbackID string) *Notification {
	id := p.ID
	if id == "" {
		id = fallbackID
	}

	message := fmt.Sprintf("AI analysis for %s completed", p.RepoName)
	if p.Message != nil && *p.Message != "" {
		message = *p.Message
	}

	owner := ""
	if p.RepoOwner != nil {
		owner = *p.RepoOwner
	}

	analysisType := p.AnalysisType
	if analysisType == "" {
		analysisType = DefaultAnalysisType
	}

	return &Notification{
		ID:           id,
		RepoName:     p.RepoName,
		RepoOwner:    owner,
		Message:      message,
		AnalysisType: analysisType,
		Timestamp:    time.Now().UnixMilli(),
	}
}

// Validate checks the notification invariants.
func (n *Notification) Validate() error {
	if n.ID == "" {
		return NewValidationError("EMPTY_NOTIFICATION_ID", "Notification ID cannot be empty", nil)
	}
	if n.RepoName == "" {
		return NewValidationError("EMPTY_REPO_NAME", "Notification repository name cannot be empty", nil)
	}
	return nil
}
