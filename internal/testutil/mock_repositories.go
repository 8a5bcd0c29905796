// Package testutil provides testing utilities and mock implementations.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"gitgauge/internal/domain"
)

// MockCredentialRepository implements CredentialRepository for testing.
type MockCredentialRepository struct {
	mu    sync.RWMutex
	token string
	set   bool

	SaveErr  error
	GetErr   error
	ClearErr error
}

// NewMockCredentialRepository creates a new mock credential repository.
func NewMockCredentialRepository() *MockCredentialRepository {
	return &MockCredentialRepository{}
}

// Save stores the token.
func (m *MockCredentialRepository) Save(_ context.Context, token string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.set = true
	return nil
}

// Get returns the stored token.
func (m *MockCredentialRepository) Get(_ context.Context) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return "", domain.NewNotFoundError("CREDENTIAL_NOT_FOUND", "No credential stored")
	}
	return m.token, nil
}

// Clear removes the stored token.
func (m *MockCredentialRepository) Clear(_ context.Context) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.set = false
	return nil
}

// Exists reports whether a token is stored.
func (m *MockCredentialRepository) Exists(_ context.Context) (bool, error) {
	if m.GetErr != nil {
		return false, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set, nil
}

// MockSessionRepository implements SessionRepository for testing.
type MockSessionRepository struct {
	mu      sync.RWMutex
	session *domain.Session

	SaveErr error
	GetErr  error
}

// NewMockSessionRepository creates a new mock session repository.
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

// Save stores the user as the current session.
func (m *MockSessionRepository) Save(_ context.Context, user *domain.User) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = domain.NewSession(*user)
	return nil
}

// GetCurrent returns the stored user.
func (m *MockSessionRepository) GetCurrent(_ context.Context) (*domain.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, domain.NewNotFoundError("SESSION_NOT_FOUND", "No session stored")
	}
	user := m.session.User
	return &user, nil
}

// GetSession returns the full session record.
func (m *MockSessionRepository) GetSession(_ context.Context) (*domain.Session, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, domain.NewNotFoundError("SESSION_NOT_FOUND", "No session stored")
	}
	session := *m.session
	return &session, nil
}

// Clear removes the stored session.
func (m *MockSessionRepository) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// HasActive reports whether an active session is stored.
func (m *MockSessionRepository) HasActive(_ context.Context) (bool, error) {
	if m.GetErr != nil {
		return false, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil && m.session.Active, nil
}

// Touch refreshes the last-login timestamp.
func (m *MockSessionRepository) Touch(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return domain.NewNotFoundError("SESSION_NOT_FOUND", "No session stored")
	}
	m.session.LastLoginAt = time.Now().UnixMilli()
	return nil
}

// Watch returns a channel that closes when ctx is done. The mock does not
// emit change events.
func (m *MockSessionRepository) Watch(ctx context.Context) <-chan *domain.User {
	ch := make(chan *domain.User)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

// MockAnalysisRepository implements AnalysisRepository for testing.
type MockAnalysisRepository struct {
	mu       sync.RWMutex
	analyses map[string]*domain.Analysis

	SaveErr error
	GetErr  error
}

// NewMockAnalysisRepository creates a new mock analysis repository.
func NewMockAnalysisRepository() *MockAnalysisRepository {
	return &MockAnalysisRepository{
		analyses: make(map[string]*domain.Analysis),
	}
}

// Save stores an analysis under its composite key.
func (m *MockAnalysisRepository) Save(_ context.Context, analysis *domain.Analysis) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *analysis
	m.analyses[analysis.Key()] = &copied
	return nil
}

// Get returns the analysis for (owner, repo, ref).
func (m *MockAnalysisRepository) Get(_ context.Context, owner, repo, ref string) (*domain.Analysis, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	analysis, exists := m.analyses[domain.AnalysisKey(owner, repo, ref)]
	if !exists {
		return nil, domain.NewNotFoundError("ANALYSIS_NOT_CACHED", "No cached analysis")
	}
	copied := *analysis
	return &copied, nil
}

// Delete removes the analysis for (owner, repo, ref).
func (m *MockAnalysisRepository) Delete(_ context.Context, owner, repo, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.analyses, domain.AnalysisKey(owner, repo, ref))
	return nil
}

// Clear removes all analyses.
func (m *MockAnalysisRepository) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = make(map[string]*domain.Analysis)
	return nil
}

// PurgeOlderThan removes analyses older than age.
func (m *MockAnalysisRepository) PurgeOlderThan(_ context.Context, age time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-age).UnixMilli()
	var removed int64
	for key, analysis := range m.analyses {
		if analysis.CreatedAt < cutoff {
			delete(m.analyses, key)
			removed++
		}
	}
	return removed, nil
}

// MockListingRepository implements ListingRepository for testing.
type MockListingRepository struct {
	mu    sync.RWMutex
	repos []domain.Repository

	ReplaceErr error
	ListErr    error
}

// NewMockListingRepository creates a new mock listing repository.
func NewMockListingRepository() *MockListingRepository {
	return &MockListingRepository{}
}

// ReplaceAll replaces the stored listing.
func (m *MockListingRepository) ReplaceAll(_ context.Context, repos []domain.Repository) error {
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos = append([]domain.Repository(nil), repos...)
	return nil
}

// List returns the stored listing.
func (m *MockListingRepository) List(_ context.Context) ([]domain.Repository, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Repository(nil), m.repos...), nil
}

// Count returns the number of stored entries.
func (m *MockListingRepository) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.repos), nil
}

// Clear removes the stored listing.
func (m *MockListingRepository) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos = nil
	return nil
}

// MockNotificationRepository implements NotificationRepository for testing.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification

	SaveErr error
}

// NewMockNotificationRepository creates a new mock notification repository.
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[string]*domain.Notification),
	}
}

// Save stores a notification.
func (m *MockNotificationRepository) Save(_ context.Context, notification *domain.Notification) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *notification
	m.notifications[notification.ID] = &copied
	return nil
}

// List returns all notifications, newest first.
func (m *MockNotificationRepository) List(_ context.Context) ([]domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// Unread returns unread notifications, newest first.
func (m *MockNotificationRepository) Unread(ctx context.Context) ([]domain.Notification, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(all))
	for _, n := range all {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

// UnreadCount returns the number of unread notifications.
func (m *MockNotificationRepository) UnreadCount(ctx context.Context) (int, error) {
	unread, err := m.Unread(ctx)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

// MarkRead marks a notification as read.
func (m *MockNotificationRepository) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, exists := m.notifications[id]
	if !exists {
		return domain.NewNotFoundError("NOTIFICATION_NOT_FOUND", "Notification not found")
	}
	n.Read = true
	return nil
}

// Delete removes a notification.
func (m *MockNotificationRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notifications, id)
	return nil
}

// DeleteAll removes all notifications.
func (m *MockNotificationRepository) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = make(map[string]*domain.Notification)
	return nil
}
