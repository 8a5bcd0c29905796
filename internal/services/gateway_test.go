package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gitgauge/internal/domain"
	"gitgauge/internal/testutil"
)

// mockBackend is a function-field BackendClient for gateway tests.
type mockBackend struct {
	loginURLFn func(ctx context.Context) (*LoginURLResponse, error)
	exchangeFn func(ctx context.Context, code, state string) (*TokenResponse, error)
	initiateFn func(ctx context.Context) (*DeviceFlowResponse, error)
	pollFn     func(ctx context.Context, deviceCode string) (*DevicePollResponse, error)
	listFn     func(ctx context.Context, token string) ([]domain.Repository, error)
	analyzeFn  func(ctx context.Context, token, owner, repo, ref string, force bool) (*AnalyzeResponse, error)

	listCalls    atomic.Int32
	analyzeCalls atomic.Int32
	pollCalls    atomic.Int32
}

func (m *mockBackend) GetLoginURL(ctx context.Context) (*LoginURLResponse, error) {
	return m.loginURLFn(ctx)
}

func (m *mockBackend) ExchangeCode(ctx context.Context, code, state string) (*TokenResponse, error) {
	return m.exchangeFn(ctx, code, state)
}

func (m *mockBackend) InitiateDeviceFlow(ctx context.Context) (*DeviceFlowResponse, error) {
	return m.initiateFn(ctx)
}

func (m *mockBackend) PollDeviceFlowOnce(ctx context.Context, deviceCode string) (*DevicePollResponse, error) {
	m.pollCalls.Add(1)
	return m.pollFn(ctx, deviceCode)
}

func (m *mockBackend) ListRepositories(ctx context.Context, token string) ([]domain.Repository, error) {
	m.listCalls.Add(1)
	return m.listFn(ctx, token)
}

func (m *mockBackend) AnalyzeRepository(ctx context.Context, token, owner, repo, ref string, force bool) (*AnalyzeResponse, error) {
	m.analyzeCalls.Add(1)
	return m.analyzeFn(ctx, token, owner, repo, ref, force)
}

// mockFetcher is a function-field UserFetcher.
type mockFetcher struct {
	currentUserFn func(ctx context.Context, token string) (*domain.User, error)
}

func (m *mockFetcher) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	return m.currentUserFn(ctx, token)
}

type gatewayFixture struct {
	gateway     *Gateway
	backend     *mockBackend
	credentials *testutil.MockCredentialRepository
	sessions    *testutil.MockSessionRepository
	analyses    *testutil.MockAnalysisRepository
	listings    *testutil.MockListingRepository
	cache       *MemoryCacheBackend
}

func newGatewayFixture(backend *mockBackend, github UserFetcher) *gatewayFixture {
	credentials := testutil.NewMockCredentialRepository()
	sessions := testutil.NewMockSessionRepository()
	analyses := testutil.NewMockAnalysisRepository()
	listings := testutil.NewMockListingRepository()
	cache := NewMemoryCacheBackend()

	gateway := NewGateway(
		backend,
		github,
		NewSessionManager(credentials, sessions, testLogger()),
		analyses,
		listings,
		cache,
		GatewayConfig{ListingCacheTTL: time.Minute, AnalysisRetention: 24 * time.Hour},
		testLogger(),
	)
	return &gatewayFixture{
		gateway:     gateway,
		backend:     backend,
		credentials: credentials,
		sessions:    sessions,
		analyses:    analyses,
		listings:    listings,
		cache:       cache,
	}
}

func (f *gatewayFixture) login(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := f.credentials.Save(ctx, "gho_token"); err != nil {
		t.Fatalf("Save() token error = %v", err)
	}
	if err := f.sessions.Save(ctx, sessionUser()); err != nil {
		t.Fatalf("Save() session error = %v", err)
	}
}

func analyzeResponse(summary string) *AnalyzeResponse {
	return &AnalyzeResponse{
		Summary:  summary,
		Analysis: "Detailed analysis body",
		Repository: AnalysisScope{
			Owner:         "octocat",
			Repo:          "alpha",
			Ref:           "main",
			FilesAnalyzed: 42,
		},
	}
}

func TestGateway_GetLoginURL(t *testing.T) {
	backend := &mockBackend{
		loginURLFn: func(context.Context) (*LoginURLResponse, error) {
			return &LoginURLResponse{AuthURL: "https://github.com/login/oauth/authorize?state=x"}, nil
		},
	}
	fixture := newGatewayFixture(backend, &mockFetcher{})

	url, err := fixture.gateway.GetLoginURL(context.Background())
	if err != nil {
		t.Fatalf("GetLoginURL() error = %v", err)
	}
	if !strings.HasPrefix(url, "https://github.com/login/oauth/authorize") {
		t.Errorf("GetLoginURL() = %q, want authorization URL", url)
	}
}

func TestGateway_GetLoginURLPreservesErrorType(t *testing.T) {
	backend := &mockBackend{
		loginURLFn: func(context.Context) (*LoginURLResponse, error) {
			return nil, domain.NewUnavailableError("BACKEND_UNREACHABLE", "Backend unreachable", nil)
		},
	}
	fixture := newGatewayFixture(backend, &mockFetcher{})

	_, err := fixture.gateway.GetLoginURL(context.Background())
	if err == nil {
		t.Fatal("GetLoginURL() expected error, got nil")
	}
	if !domain.IsUnavailable(err) {
		t.Errorf("GetLoginURL() error type = %v, want UnavailableError preserved", domain.TypeOf(err))
	}
}

func TestGateway_ExchangeCodeForToken(t *testing.T) {
	backend := &mockBackend{
		exchangeFn: func(_ context.Context, code, state string) (*TokenResponse, error) {
			if code != "abc" || state != "xyz" {
				t.Errorf("ExchangeCode called with (%q, %q), want (abc, xyz)", code, state)
			}
			return &TokenResponse{AccessToken: "gho_fresh"}, nil
		},
	}
	github := &mockFetcher{
		currentUserFn: func(_ context.Context, token string) (*domain.User, error) {
			if token != "gho_fresh" {
				t.Errorf("CurrentUser called with token %q, want gho_fresh", token)
			}
			return sessionUser(), nil
		},
	}
	fixture := newGatewayFixture(backend, github)
	ctx := context.Background()

	user, err := fixture.gateway.ExchangeCodeForToken(ctx, "abc", "xyz")
	if err != nil {
		t.Fatalf("ExchangeCodeForToken() error = %v", err)
	}
	if user.Login != "octocat" {
		t.Errorf("user.Login = %q, want octocat", user.Login)
	}

	// The full session must be persisted.
	token, stored, err := fixture.gateway.sessions.RestoreSession(ctx)
	if err != nil {
		t.Fatalf("RestoreSession() error = %v", err)
	}
	if token != "gho_fresh" || stored == nil {
		t.Error("ExchangeCodeForToken() did not persist the session")
	}
}

func TestGateway_ExchangeCodeForTokenProfileFailure(t *testing.T) {
	backend := &mockBackend{
		exchangeFn: func(context.Context, string, string) (*TokenResponse, error) {
			return &TokenResponse{AccessToken: "gho_fresh"}, nil
		},
	}
	github := &mockFetcher{
		currentUserFn: func(context.Context, string) (*domain.User, error) {
			return nil, domain.NewRejectedError("GITHUB_UNAUTHORIZED", "Token rejected", nil)
		},
	}
	fixture := newGatewayFixture(backend, github)

	_, err := fixture.gateway.ExchangeCodeForToken(context.Background(), "abc", "xyz")
	if err == nil {
		t.Fatal("ExchangeCodeForToken() expected error when profile fetch fails")
	}
	if !domain.IsRejected(err) {
		t.Errorf("error type = %v, want RejectedError preserved", domain.TypeOf(err))
	}

	// No half-written session may remain.
	valid, verr := fixture.gateway.HasValidOfflineSession(context.Background())
	if verr != nil {
		t.Fatalf("HasValidOfflineSession() error = %v", verr)
	}
	if valid {
		t.Error("session persisted despite profile fetch failure")
	}
}

func TestGateway_InitiateDeviceFlowUnsupported(t *testing.T) {
	backend := &mockBackend{
		initiateFn: func(context.Context) (*DeviceFlowResponse, error) {
			return nil, domain.NewRejectedError("BACKEND_REJECTED", "Not found", nil)
		},
	}
	fixture := newGatewayFixture(backend, &mockFetcher{})

	_, err := fixture.gateway.InitiateDeviceFlow(context.Background())
	if err == nil {
		t.Fatal("InitiateDeviceFlow() expected error, got nil")
	}
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("error %v is not a DomainError", err)
	}
	if domainErr.Code != "DEVICE_FLOW_UNSUPPORTED" {
		t.Errorf("error code = %q, want DEVICE_FLOW_UNSUPPORTED", domainErr.Code)
	}
	if !strings.Contains(domainErr.Message, "browser login") {
		t.Errorf("error message = %q, want browser-login guidance", domainErr.Message)
	}
}

func TestGateway_PollDeviceFlow(t *testing.T) {
	pollUser := &DevicePollUser{Login: "octocat"}

	t.Run("pending then success", func(t *testing.T) {
		responses := []*DevicePollResponse{
			{Status: "pending"},
			{Status: "pending"},
			{Status: "complete", AccessToken: "gho_device", User: pollUser},
		}
		var call int
		backend := &mockBackend{
			pollFn: func(context.Context, string) (*DevicePollResponse, error) {
				resp := responses[call]
				call++
				return resp, nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})

		var waits []time.Duration
		fixture.gateway.SetSleep(func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		})

		user, err := fixture.gateway.PollDeviceFlow(context.Background(), "devcode", 5, 900)
		if err != nil {
			t.Fatalf("PollDeviceFlow() error = %v", err)
		}
		if user.Login != "octocat" {
			t.Errorf("user.Login = %q, want octocat", user.Login)
		}
		if len(waits) != 2 {
			t.Fatalf("slept %d times, want 2", len(waits))
		}
		for _, d := range waits {
			if d != 5*time.Second {
				t.Errorf("wait = %v, want 5s", d)
			}
		}
	})

	t.Run("slow_down doubles one wait only", func(t *testing.T) {
		responses := []*DevicePollResponse{
			{Status: "slow_down"},
			{Status: "pending"},
			{AccessToken: "gho_device", User: pollUser},
		}
		var call int
		backend := &mockBackend{
			pollFn: func(context.Context, string) (*DevicePollResponse, error) {
				resp := responses[call]
				call++
				return resp, nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})

		var waits []time.Duration
		fixture.gateway.SetSleep(func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		})

		if _, err := fixture.gateway.PollDeviceFlow(context.Background(), "devcode", 5, 900); err != nil {
			t.Fatalf("PollDeviceFlow() error = %v", err)
		}
		if len(waits) != 2 {
			t.Fatalf("slept %d times, want 2", len(waits))
		}
		if waits[0] != 10*time.Second {
			t.Errorf("slow_down wait = %v, want 10s", waits[0])
		}
		if waits[1] != 5*time.Second {
			t.Errorf("wait after slow_down = %v, want base 5s", waits[1])
		}
	})

	t.Run("denied status rejects", func(t *testing.T) {
		backend := &mockBackend{
			pollFn: func(context.Context, string) (*DevicePollResponse, error) {
				return &DevicePollResponse{Status: "access_denied"}, nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.gateway.SetSleep(func(context.Context, time.Duration) error { return nil })

		_, err := fixture.gateway.PollDeviceFlow(context.Background(), "devcode", 5, 900)
		if !domain.IsRejected(err) {
			t.Errorf("PollDeviceFlow() error = %v, want RejectedError", err)
		}
	})

	t.Run("expired from backend propagates", func(t *testing.T) {
		backend := &mockBackend{
			pollFn: func(context.Context, string) (*DevicePollResponse, error) {
				return nil, domain.NewExpiredError("DEVICE_CODE_EXPIRED", "Device code expired. Please try again.")
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})

		_, err := fixture.gateway.PollDeviceFlow(context.Background(), "devcode", 5, 900)
		if !domain.IsExpired(err) {
			t.Errorf("PollDeviceFlow() error = %v, want ExpiredError", err)
		}
	})

	t.Run("deadline exhausts into expired", func(t *testing.T) {
		backend := &mockBackend{
			pollFn: func(context.Context, string) (*DevicePollResponse, error) {
				return &DevicePollResponse{Status: "pending"}, nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.gateway.SetSleep(func(context.Context, time.Duration) error { return nil })

		// expiresIn shorter than one interval: the first pending poll already
		// pushes past the deadline.
		_, err := fixture.gateway.PollDeviceFlow(context.Background(), "devcode", 5, 2)
		if !domain.IsExpired(err) {
			t.Errorf("PollDeviceFlow() error = %v, want ExpiredError", err)
		}
		if backend.pollCalls.Load() != 1 {
			t.Errorf("polled %d times, want 1", backend.pollCalls.Load())
		}
	})

	t.Run("cancellation stops polling", func(t *testing.T) {
		backend := &mockBackend{
			pollFn: func(context.Context, string) (*DevicePollResponse, error) {
				return &DevicePollResponse{Status: "pending"}, nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})

		ctx, cancel := context.WithCancel(context.Background())
		fixture.gateway.SetSleep(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		})

		_, err := fixture.gateway.PollDeviceFlow(ctx, "devcode", 5, 900)
		if err == nil {
			t.Fatal("PollDeviceFlow() expected error after cancellation")
		}
		var domainErr *domain.DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != "DEVICE_POLL_CANCELLED" {
			t.Errorf("PollDeviceFlow() error = %v, want DEVICE_POLL_CANCELLED", err)
		}
	})

	t.Run("synthesizes partial profile", func(t *testing.T) {
		avatar := "https://avatars.githubusercontent.com/u/583231"
		name := "The Octocat"
		backend := &mockBackend{
			pollFn: func(context.Context, string) (*DevicePollResponse, error) {
				return &DevicePollResponse{
					Status:      "complete",
					AccessToken: "gho_device",
					User:        &DevicePollUser{Login: "octocat", Name: &name, AvatarURL: &avatar},
				}, nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})

		user, err := fixture.gateway.PollDeviceFlow(context.Background(), "devcode", 5, 900)
		if err != nil {
			t.Fatalf("PollDeviceFlow() error = %v", err)
		}
		if user.ID != 0 {
			t.Errorf("user.ID = %d, want synthesized 0", user.ID)
		}
		if user.Bio != nil || user.PublicRepos != 0 {
			t.Error("synthesized profile carries fields the poll response cannot provide")
		}
		if user.AvatarURL != avatar {
			t.Errorf("user.AvatarURL = %q, want %q", user.AvatarURL, avatar)
		}

		token, err := fixture.gateway.sessions.StoredToken(context.Background())
		if err != nil || token != "gho_device" {
			t.Errorf("stored token = (%q, %v), want gho_device", token, err)
		}
	})

	t.Run("success without user rejects", func(t *testing.T) {
		backend := &mockBackend{
			pollFn: func(context.Context, string) (*DevicePollResponse, error) {
				return &DevicePollResponse{Status: "complete", AccessToken: "gho_device"}, nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})

		_, err := fixture.gateway.PollDeviceFlow(context.Background(), "devcode", 5, 900)
		if !domain.IsRejected(err) {
			t.Errorf("PollDeviceFlow() error = %v, want RejectedError", err)
		}
	})
}

func TestGateway_ListRepositories(t *testing.T) {
	repos := []domain.Repository{
		{ID: 1, Name: "alpha", HTMLURL: "https://github.com/octocat/alpha", Stars: 10},
	}

	t.Run("fetch refreshes local mirror", func(t *testing.T) {
		backend := &mockBackend{
			listFn: func(context.Context, string) ([]domain.Repository, error) {
				return repos, nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)
		ctx := context.Background()

		got, err := fixture.gateway.ListRepositories(ctx)
		if err != nil {
			t.Fatalf("ListRepositories() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "alpha" {
			t.Errorf("ListRepositories() = %+v, want alpha", got)
		}

		stored, err := fixture.gateway.CachedRepositories(ctx)
		if err != nil {
			t.Fatalf("CachedRepositories() error = %v", err)
		}
		if len(stored) != 1 {
			t.Error("listing was not mirrored to local storage")
		}
	})

	t.Run("hot cache short-circuits the backend", func(t *testing.T) {
		backend := &mockBackend{
			listFn: func(context.Context, string) ([]domain.Repository, error) {
				return repos, nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)
		ctx := context.Background()

		if _, err := fixture.gateway.ListRepositories(ctx); err != nil {
			t.Fatalf("ListRepositories() error = %v", err)
		}
		if _, err := fixture.gateway.ListRepositories(ctx); err != nil {
			t.Fatalf("ListRepositories() second call error = %v", err)
		}
		if calls := backend.listCalls.Load(); calls != 1 {
			t.Errorf("backend called %d times, want 1 (second served from hot cache)", calls)
		}
	})

	t.Run("fetch failure falls back to stored listing", func(t *testing.T) {
		backend := &mockBackend{
			listFn: func(context.Context, string) ([]domain.Repository, error) {
				return nil, domain.NewUnavailableError("BACKEND_UNREACHABLE", "Backend unreachable", nil)
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)
		ctx := context.Background()

		if err := fixture.listings.ReplaceAll(ctx, repos); err != nil {
			t.Fatalf("ReplaceAll() error = %v", err)
		}

		got, err := fixture.gateway.ListRepositories(ctx)
		if err != nil {
			t.Fatalf("ListRepositories() error = %v, want stored fallback", err)
		}
		if len(got) != 1 || got[0].Name != "alpha" {
			t.Errorf("ListRepositories() fallback = %+v, want stored listing", got)
		}
	})

	t.Run("fetch failure without stored listing propagates", func(t *testing.T) {
		backend := &mockBackend{
			listFn: func(context.Context, string) ([]domain.Repository, error) {
				return nil, domain.NewUnavailableError("BACKEND_UNREACHABLE", "Backend unreachable", nil)
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)

		_, err := fixture.gateway.ListRepositories(context.Background())
		if !domain.IsUnavailable(err) {
			t.Errorf("ListRepositories() error = %v, want UnavailableError", err)
		}
	})

	t.Run("no credential serves stored listing", func(t *testing.T) {
		backend := &mockBackend{}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		ctx := context.Background()

		if err := fixture.listings.ReplaceAll(ctx, repos); err != nil {
			t.Fatalf("ReplaceAll() error = %v", err)
		}

		got, err := fixture.gateway.ListRepositories(ctx)
		if err != nil {
			t.Fatalf("ListRepositories() error = %v, want offline listing", err)
		}
		if len(got) != 1 {
			t.Errorf("ListRepositories() = %+v, want stored listing", got)
		}
		if backend.listCalls.Load() != 0 {
			t.Error("backend was called without a credential")
		}
	})

	t.Run("no credential and no cache reports NoCredential", func(t *testing.T) {
		fixture := newGatewayFixture(&mockBackend{}, &mockFetcher{})

		_, err := fixture.gateway.ListRepositories(context.Background())
		if !domain.IsNoCredential(err) {
			t.Errorf("ListRepositories() error = %v, want NoCredentialError", err)
		}
	})
}

func TestGateway_AnalyzeRepository(t *testing.T) {
	t.Run("fresh fetch is cached", func(t *testing.T) {
		backend := &mockBackend{
			analyzeFn: func(_ context.Context, _, owner, repo, ref string, force bool) (*AnalyzeResponse, error) {
				if owner != "octocat" || repo != "alpha" || ref != "main" || force {
					t.Errorf("AnalyzeRepository called with (%s, %s, %s, %v)", owner, repo, ref, force)
				}
				return analyzeResponse("Fresh summary"), nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)
		ctx := context.Background()

		result, err := fixture.gateway.AnalyzeRepository(ctx, "octocat", "alpha", "main", false)
		if err != nil {
			t.Fatalf("AnalyzeRepository() error = %v", err)
		}
		if result.FromCache {
			t.Error("fresh result reported FromCache = true")
		}
		if result.Analysis.Summary != "Fresh summary" || result.Analysis.FilesAnalyzed != 42 {
			t.Errorf("Analysis = %+v, want backend payload", result.Analysis)
		}

		cached, err := fixture.analyses.Get(ctx, "octocat", "alpha", "main")
		if err != nil {
			t.Fatalf("analysis was not cached: %v", err)
		}
		if cached.Summary != "Fresh summary" {
			t.Errorf("cached Summary = %q", cached.Summary)
		}
	})

	t.Run("cache hit skips the backend", func(t *testing.T) {
		backend := &mockBackend{
			analyzeFn: func(context.Context, string, string, string, string, bool) (*AnalyzeResponse, error) {
				return analyzeResponse("Fresh summary"), nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)
		ctx := context.Background()

		if _, err := fixture.gateway.AnalyzeRepository(ctx, "octocat", "alpha", "main", false); err != nil {
			t.Fatalf("AnalyzeRepository() error = %v", err)
		}
		result, err := fixture.gateway.AnalyzeRepository(ctx, "octocat", "alpha", "main", false)
		if err != nil {
			t.Fatalf("AnalyzeRepository() second call error = %v", err)
		}
		if !result.FromCache {
			t.Error("second call not served from cache")
		}
		if calls := backend.analyzeCalls.Load(); calls != 1 {
			t.Errorf("backend called %d times, want 1", calls)
		}
	})

	t.Run("force bypasses the cache", func(t *testing.T) {
		backend := &mockBackend{
			analyzeFn: func(_ context.Context, _, _, _, _ string, force bool) (*AnalyzeResponse, error) {
				return analyzeResponse("Fresh summary"), nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)
		ctx := context.Background()

		if _, err := fixture.gateway.AnalyzeRepository(ctx, "octocat", "alpha", "main", false); err != nil {
			t.Fatalf("AnalyzeRepository() error = %v", err)
		}
		result, err := fixture.gateway.AnalyzeRepository(ctx, "octocat", "alpha", "main", true)
		if err != nil {
			t.Fatalf("AnalyzeRepository(force) error = %v", err)
		}
		if result.FromCache {
			t.Error("forced call served from cache")
		}
		if calls := backend.analyzeCalls.Load(); calls != 2 {
			t.Errorf("backend called %d times, want 2", calls)
		}
	})

	t.Run("fetch failure serves stale cache", func(t *testing.T) {
		var fail atomic.Bool
		backend := &mockBackend{
			analyzeFn: func(context.Context, string, string, string, string, bool) (*AnalyzeResponse, error) {
				if fail.Load() {
					return nil, domain.NewUnavailableError("BACKEND_UNREACHABLE", "Backend unreachable", nil)
				}
				return analyzeResponse("Fresh summary"), nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)
		ctx := context.Background()

		if _, err := fixture.gateway.AnalyzeRepository(ctx, "octocat", "alpha", "main", false); err != nil {
			t.Fatalf("AnalyzeRepository() error = %v", err)
		}
		fail.Store(true)

		result, err := fixture.gateway.AnalyzeRepository(ctx, "octocat", "alpha", "main", true)
		if err != nil {
			t.Fatalf("AnalyzeRepository() error = %v, want stale cached fallback", err)
		}
		if !result.FromCache {
			t.Error("stale fallback not flagged FromCache")
		}
	})

	t.Run("fetch failure without cache propagates", func(t *testing.T) {
		backend := &mockBackend{
			analyzeFn: func(context.Context, string, string, string, string, bool) (*AnalyzeResponse, error) {
				return nil, domain.NewUnavailableError("BACKEND_UNREACHABLE", "Backend unreachable", nil)
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)

		_, err := fixture.gateway.AnalyzeRepository(context.Background(), "octocat", "alpha", "main", false)
		if !domain.IsUnavailable(err) {
			t.Errorf("AnalyzeRepository() error = %v, want UnavailableError", err)
		}
	})

	t.Run("cache write failure still returns fresh result", func(t *testing.T) {
		backend := &mockBackend{
			analyzeFn: func(context.Context, string, string, string, string, bool) (*AnalyzeResponse, error) {
				return analyzeResponse("Fresh summary"), nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)
		fixture.analyses.SaveErr = domain.NewInternalError("ANALYSIS_SAVE_FAILED", "disk full", nil)

		result, err := fixture.gateway.AnalyzeRepository(context.Background(), "octocat", "alpha", "main", false)
		if err != nil {
			t.Fatalf("AnalyzeRepository() error = %v, want fresh result despite save failure", err)
		}
		if result.Analysis.Summary != "Fresh summary" {
			t.Errorf("Summary = %q", result.Analysis.Summary)
		}
	})

	t.Run("no credential", func(t *testing.T) {
		fixture := newGatewayFixture(&mockBackend{}, &mockFetcher{})

		_, err := fixture.gateway.AnalyzeRepository(context.Background(), "octocat", "alpha", "main", false)
		if !domain.IsNoCredential(err) {
			t.Errorf("AnalyzeRepository() error = %v, want NoCredentialError", err)
		}
	})

	t.Run("invalid coordinates rejected before any fetch", func(t *testing.T) {
		backend := &mockBackend{}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)

		_, err := fixture.gateway.AnalyzeRepository(context.Background(), "bad owner!", "alpha", "main", false)
		if domain.TypeOf(err) != domain.ValidationError {
			t.Errorf("AnalyzeRepository() error = %v, want ValidationError", err)
		}
		if backend.analyzeCalls.Load() != 0 {
			t.Error("backend was called with invalid coordinates")
		}
	})

	t.Run("empty ref defaults to main", func(t *testing.T) {
		backend := &mockBackend{
			analyzeFn: func(_ context.Context, _, _, _, ref string, _ bool) (*AnalyzeResponse, error) {
				if ref != "main" {
					t.Errorf("ref = %q, want main", ref)
				}
				return analyzeResponse("Fresh summary"), nil
			},
		}
		fixture := newGatewayFixture(backend, &mockFetcher{})
		fixture.login(t)

		result, err := fixture.gateway.AnalyzeRepository(context.Background(), "octocat", "alpha", "", false)
		if err != nil {
			t.Fatalf("AnalyzeRepository() error = %v", err)
		}
		if result.Analysis.Ref != "main" {
			t.Errorf("Analysis.Ref = %q, want main", result.Analysis.Ref)
		}
	})
}

func TestGateway_AnalyzeRepositoryCoalescesConcurrentFetches(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &mockBackend{
		analyzeFn: func(context.Context, string, string, string, string, bool) (*AnalyzeResponse, error) {
			close(started)
			<-release
			return analyzeResponse("Fresh summary"), nil
		},
	}
	fixture := newGatewayFixture(backend, &mockFetcher{})
	fixture.login(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*AnalysisResult, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = fixture.gateway.AnalyzeRepository(ctx, "octocat", "alpha", "main", false)
	}()

	// Wait for the first fetch to be in flight, then join it.
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = fixture.gateway.AnalyzeRepository(ctx, "octocat", "alpha", "main", false)
	}()

	// Give the second call a moment to register on the in-flight entry
	// before releasing the fetch.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("call %d error = %v", i, errs[i])
		}
		if results[i].Analysis.Summary != "Fresh summary" {
			t.Errorf("call %d Summary = %q", i, results[i].Analysis.Summary)
		}
	}
	if calls := backend.analyzeCalls.Load(); calls != 1 {
		t.Errorf("backend called %d times, want 1 coalesced fetch", calls)
	}
}

func TestGateway_Logout(t *testing.T) {
	backend := &mockBackend{
		listFn: func(context.Context, string) ([]domain.Repository, error) {
			return []domain.Repository{{ID: 1, Name: "alpha", HTMLURL: "https://github.com/octocat/alpha"}}, nil
		},
	}
	fixture := newGatewayFixture(backend, &mockFetcher{})
	fixture.login(t)
	ctx := context.Background()

	if _, err := fixture.gateway.ListRepositories(ctx); err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}
	if err := fixture.gateway.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if fixture.gateway.IsLoggedIn(ctx) {
		t.Error("IsLoggedIn() = true after Logout")
	}
	stored, err := fixture.gateway.CachedRepositories(ctx)
	if err != nil {
		t.Fatalf("CachedRepositories() error = %v", err)
	}
	if len(stored) != 0 {
		t.Error("stored listing survived Logout")
	}
	raw, err := fixture.cache.Get(ctx, listingCacheKey)
	if err != nil {
		t.Fatalf("cache Get() error = %v", err)
	}
	if raw != nil {
		t.Error("hot cache entry survived Logout")
	}
}

func TestGateway_PurgeOldAnalyses(t *testing.T) {
	fixture := newGatewayFixture(&mockBackend{}, &mockFetcher{})
	ctx := context.Background()

	old := &domain.Analysis{
		Owner: "octocat", Repo: "alpha", Ref: "main",
		Summary:   "stale",
		CreatedAt: time.Now().Add(-48 * time.Hour).UnixMilli(),
	}
	fresh := &domain.Analysis{
		Owner: "octocat", Repo: "beta", Ref: "main",
		Summary:   "fresh",
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := fixture.analyses.Save(ctx, old); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := fixture.analyses.Save(ctx, fresh); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	removed, err := fixture.gateway.PurgeOldAnalyses(ctx)
	if err != nil {
		t.Fatalf("PurgeOldAnalyses() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("PurgeOldAnalyses() removed %d, want 1", removed)
	}
	if _, err := fixture.analyses.Get(ctx, "octocat", "beta", "main"); err != nil {
		t.Error("fresh analysis was purged")
	}
}
