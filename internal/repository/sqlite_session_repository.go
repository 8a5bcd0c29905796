package repository

import (
	"context"
	"sync"
	"time"

	"github.com/pocketbase/dbx"

	"gitgauge/internal/domain"
)

// sessionRowID is the constant primary key of the single session row.
const sessionRowID = 1

type sessionRow struct {
	ID          int     `db:"id"`
	Login       string  `db:"login"`
	AvatarURL   string  `db:"avatar_url"`
	Name        *string `db:"name"`
	Bio         *string `db:"bio"`
	PublicRepos int     `db:"public_repos"`
	LastLogin   int64   `db:"last_login"`
	IsActive    int     `db:"is_active"`
}

func (r *sessionRow) toUser() *domain.User {
	// The numeric GitHub id is not persisted; restored profiles carry 0.
	return &domain.User{
		ID:          0,
		Login:       r.Login,
		AvatarURL:   r.AvatarURL,
		Name:        r.Name,
		Bio:         r.Bio,
		PublicRepos: r.PublicRepos,
	}
}

// sqliteSessionRepository implements SessionRepository over the single-row
// user_sessions table and maintains in-process watchers notified on every
// change.
type sqliteSessionRepository struct {
	db *dbx.DB

	mu       sync.Mutex
	watchers map[int]chan *domain.User
	nextID   int
}

// NewSQLiteSessionRepository creates the session store.
func NewSQLiteSessionRepository(db *dbx.DB) SessionRepository {
	return &sqliteSessionRepository{
		db:       db,
		watchers: make(map[int]chan *domain.User),
	}
}

// Save writes the session row for user.
func (r *sqliteSessionRepository) Save(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.NewValidationError("NIL_USER", "User cannot be nil", nil)
	}
	if err := user.Validate(); err != nil {
		return err
	}

	_, err := r.db.NewQuery(
		`INSERT OR REPLACE INTO user_sessions
			(id, login, avatar_url, name, bio, public_repos, last_login, is_active)
		 VALUES ({:id}, {:login}, {:avatar}, {:name}, {:bio}, {:repos}, {:login_at}, 1)`,
	).Bind(dbx.Params{
		"id":       sessionRowID,
		"login":    user.Login,
		"avatar":   user.AvatarURL,
		"name":     user.Name,
		"bio":      user.Bio,
		"repos":    user.PublicRepos,
		"login_at": time.Now().UnixMilli(),
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("SESSION_SAVE_FAILED", "Failed to save user session", err)
	}

	r.notify(user)
	return nil
}

// GetCurrent returns the active session's user profile.
func (r *sqliteSessionRepository) GetCurrent(ctx context.Context) (*domain.User, error) {
	session, err := r.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	user := session.User
	return &user, nil
}

// GetSession returns the full session record.
func (r *sqliteSessionRepository) GetSession(ctx context.Context) (*domain.Session, error) {
	var row sessionRow
	err := r.db.NewQuery(
		`SELECT id, login, avatar_url, name, bio, public_repos, last_login, is_active
		 FROM user_sessions WHERE id = {:id} AND is_active = 1`,
	).Bind(dbx.Params{"id": sessionRowID}).WithContext(ctx).One(&row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewNotFoundError("SESSION_NOT_FOUND", "No active session stored")
		}
		return nil, domain.NewInternalError("SESSION_QUERY_FAILED", "Failed to read user session", err)
	}

	return &domain.Session{
		User:        *row.toUser(),
		LastLoginAt: row.LastLogin,
		Active:      row.IsActive == 1,
	}, nil
}

// Clear removes the session row.
func (r *sqliteSessionRepository) Clear(ctx context.Context) error {
	_, err := r.db.NewQuery(
		`DELETE FROM user_sessions WHERE id = {:id}`,
	).Bind(dbx.Params{"id": sessionRowID}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("SESSION_CLEAR_FAILED", "Failed to clear user session", err)
	}

	r.notify(nil)
	return nil
}

// HasActive reports whether an active session row exists.
func (r *sqliteSessionRepository) HasActive(ctx context.Context) (bool, error) {
	var row struct {
		Count int `db:"count"`
	}
	err := r.db.NewQuery(
		`SELECT COUNT(*) AS count FROM user_sessions WHERE id = {:id} AND is_active = 1`,
	).Bind(dbx.Params{"id": sessionRowID}).WithContext(ctx).One(&row)
	if err != nil {
		return false, domain.NewInternalError("SESSION_QUERY_FAILED", "Failed to check user session", err)
	}
	return row.Count > 0, nil
}

// Touch refreshes the last-login timestamp of the current session.
func (r *sqliteSessionRepository) Touch(ctx context.Context) error {
	_, err := r.db.NewQuery(
		`UPDATE user_sessions SET last_login = {:now} WHERE id = {:id} AND is_active = 1`,
	).Bind(dbx.Params{
		"id":  sessionRowID,
		"now": time.Now().UnixMilli(),
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("SESSION_TOUCH_FAILED", "Failed to refresh session timestamp", err)
	}
	return nil
}

// Watch returns a channel re-emitting the stored user on every change.
func (r *sqliteSessionRepository) Watch(ctx context.Context) <-chan *domain.User {
	ch := make(chan *domain.User, 8)

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.watchers[id] = ch
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.watchers, id)
		r.mu.Unlock()
		close(ch)
	}()

	return ch
}

// notify fans the new value out to watchers. Slow watchers miss updates
// rather than blocking the write path.
func (r *sqliteSessionRepository) notify(user *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.watchers {
		select {
		case ch <- user:
		default:
		}
	}
}
