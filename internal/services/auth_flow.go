package services

import (
	"sync"

	"gitgauge/internal/domain"
)

// AuthPhase names a stage of the login flow.
type AuthPhase string

const (
	// PhaseIdle means no login is in progress.
	PhaseIdle AuthPhase = "idle"
	// PhaseLoading means a login was started and is waiting on the backend.
	PhaseLoading AuthPhase = "loading"
	// PhaseAwaitingBrowser means an authorization URL is ready for the user.
	PhaseAwaitingBrowser AuthPhase = "awaiting_browser"
	// PhaseAuthenticated means the login completed with a user.
	PhaseAuthenticated AuthPhase = "authenticated"
	// PhaseFailed means the login failed with a reason.
	PhaseFailed AuthPhase = "failed"
)

// AuthState is one observable snapshot of the login flow. URL is set only in
// PhaseAwaitingBrowser, User only in PhaseAuthenticated, Reason only in
// PhaseFailed.
type AuthState struct {
	Phase  AuthPhase
	URL    string
	User   *domain.User
	Reason string
}

// AuthFlow is a small state machine UIs subscribe to while a login runs.
// Transitions out of order are rejected so a stale callback cannot clobber a
// later state.
type AuthFlow struct {
	mu          sync.Mutex
	state       AuthState
	subscribers map[int]chan AuthState
	nextSubID   int
}

// NewAuthFlow creates an AuthFlow in the idle phase.
func NewAuthFlow() *AuthFlow {
	return &AuthFlow{
		state:       AuthState{Phase: PhaseIdle},
		subscribers: make(map[int]chan AuthState),
	}
}

// State returns the current snapshot.
func (f *AuthFlow) State() AuthState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Begin moves idle (or failed) to loading.
func (f *AuthFlow) Begin() error {
	return f.transition(func(cur AuthPhase) (*AuthState, error) {
		if cur != PhaseIdle && cur != PhaseFailed {
			return nil, domain.NewValidationError("AUTH_IN_PROGRESS", "A login is already in progress", nil)
		}
		return &AuthState{Phase: PhaseLoading}, nil
	})
}

// URLReady publishes the authorization URL for the user to open.
func (f *AuthFlow) URLReady(url string) error {
	return f.transition(func(cur AuthPhase) (*AuthState, error) {
		if cur != PhaseLoading {
			return nil, domain.NewValidationError("AUTH_NOT_LOADING", "No login waiting for a URL", nil)
		}
		return &AuthState{Phase: PhaseAwaitingBrowser, URL: url}, nil
	})
}

// Complete records a successful login.
func (f *AuthFlow) Complete(user *domain.User) error {
	return f.transition(func(cur AuthPhase) (*AuthState, error) {
		if cur != PhaseLoading && cur != PhaseAwaitingBrowser {
			return nil, domain.NewValidationError("AUTH_NOT_PENDING", "No login pending completion", nil)
		}
		return &AuthState{Phase: PhaseAuthenticated, User: user}, nil
	})
}

// Fail records a failed login with a user-facing reason.
func (f *AuthFlow) Fail(reason string) error {
	return f.transition(func(cur AuthPhase) (*AuthState, error) {
		if cur == PhaseIdle || cur == PhaseAuthenticated {
			return nil, domain.NewValidationError("AUTH_NOT_PENDING", "No login pending failure", nil)
		}
		return &AuthState{Phase: PhaseFailed, Reason: reason}, nil
	})
}

// Reset clears a finished or failed flow back to idle.
func (f *AuthFlow) Reset() {
	_ = f.transition(func(AuthPhase) (*AuthState, error) {
		return &AuthState{Phase: PhaseIdle}, nil
	})
}

// Subscribe returns a channel of state snapshots, starting with the current
// one. Unsubscribe with the returned function.
func (f *AuthFlow) Subscribe() (<-chan AuthState, func()) {
	f.mu.Lock()
	id := f.nextSubID
	f.nextSubID++
	ch := make(chan AuthState, 8)
	ch <- f.state
	f.subscribers[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if sub, ok := f.subscribers[id]; ok {
			delete(f.subscribers, id)
			close(sub)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *AuthFlow) transition(step func(AuthPhase) (*AuthState, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := step(f.state.Phase)
	if err != nil {
		return err
	}
	f.state = *next

	for _, ch := range f.subscribers {
		select {
		case ch <- f.state:
		default:
			// Slow subscriber; skip rather than block the flow.
		}
	}
	return nil
}
