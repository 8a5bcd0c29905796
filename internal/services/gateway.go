package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gitgauge/internal/domain"
	"gitgauge/internal/repository"
	"gitgauge/internal/validation"
)

const listingCacheKey = "repositories"

// AnalysisResult is an analysis together with its provenance, so callers can
// tell a fresh backend result from a stale cached fallback.
type AnalysisResult struct {
	Analysis  *domain.Analysis
	FromCache bool
}

// SleepFunc blocks for d or until ctx is done. Injectable for tests.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Gateway is the authenticated, offline-first front door of the client core.
// Every remote operation that can be served from local storage falls back to
// it when the network or the backend fails.
type Gateway struct {
	backend  BackendClient
	github   UserFetcher
	sessions *SessionManager
	analyses repository.AnalysisRepository
	listings repository.ListingRepository
	cache    CacheBackend
	logger   *slog.Logger

	listingTTL time.Duration
	retention  time.Duration
	sleep      SleepFunc

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// GatewayConfig carries the tunables of a Gateway.
type GatewayConfig struct {
	ListingCacheTTL   time.Duration
	AnalysisRetention time.Duration
}

// NewGateway wires a Gateway from its collaborators.
func NewGateway(
	backend BackendClient,
	github UserFetcher,
	sessions *SessionManager,
	analyses repository.AnalysisRepository,
	listings repository.ListingRepository,
	cache CacheBackend,
	cfg GatewayConfig,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		backend:    backend,
		github:     github,
		sessions:   sessions,
		analyses:   analyses,
		listings:   listings,
		cache:      cache,
		logger:     logger,
		listingTTL: cfg.ListingCacheTTL,
		retention:  cfg.AnalysisRetention,
		sleep:      defaultSleep,
		inflight:   make(map[string]chan struct{}),
	}
}

// SetSleep replaces the poll delay function. Intended for tests.
func (g *Gateway) SetSleep(fn SleepFunc) { g.sleep = fn }

// GetLoginURL fetches the browser authorization URL for web-based login.
func (g *Gateway) GetLoginURL(ctx context.Context) (string, error) {
	resp, err := g.backend.GetLoginURL(ctx)
	if err != nil {
		return "", wrapGatewayError(err, "LOGIN_URL_FAILED", "Failed to get login URL")
	}
	return resp.AuthURL, nil
}

// ExchangeCodeForToken completes the web login: it exchanges the callback
// code, resolves the full profile from GitHub, and persists the session.
func (g *Gateway) ExchangeCodeForToken(ctx context.Context, code, state string) (*domain.User, error) {
	tokenResp, err := g.backend.ExchangeCode(ctx, code, state)
	if err != nil {
		return nil, wrapGatewayError(err, "CODE_EXCHANGE_FAILED", "Failed to exchange authorization code")
	}

	user, err := g.github.CurrentUser(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, wrapGatewayError(err, "PROFILE_FETCH_FAILED", "Failed to fetch user profile")
	}

	if err := g.sessions.CreateSession(ctx, user, tokenResp.AccessToken); err != nil {
		return nil, err
	}
	return user, nil
}

// InitiateDeviceFlow starts a device authorization. A 404 from the backend
// means the deployment does not support the flow.
func (g *Gateway) InitiateDeviceFlow(ctx context.Context) (*DeviceFlowResponse, error) {
	resp, err := g.backend.InitiateDeviceFlow(ctx)
	if err != nil {
		if domain.IsRejected(err) {
			return nil, domain.NewRejectedError(
				"DEVICE_FLOW_UNSUPPORTED",
				"Device flow not available. Please use browser login.",
				err,
			)
		}
		return nil, wrapGatewayError(err, "DEVICE_FLOW_FAILED", "Failed to start device flow")
	}
	return resp, nil
}

// PollDeviceFlow polls a pending device grant until it completes, the code
// expires, or ctx is cancelled. intervalSeconds and expiresIn come from the
// initiate response; a slow_down status doubles the wait for that one poll.
func (g *Gateway) PollDeviceFlow(
	ctx context.Context, deviceCode string, intervalSeconds, expiresIn int,
) (*domain.User, error) {
	if intervalSeconds <= 0 {
		intervalSeconds = 5
	}
	interval := time.Duration(intervalSeconds) * time.Second

	deadline := time.Now().Add(time.Duration(expiresIn) * time.Second)
	if expiresIn <= 0 {
		deadline = time.Now().Add(15 * time.Minute)
	}

	for {
		resp, err := g.backend.PollDeviceFlowOnce(ctx, deviceCode)
		if err != nil {
			if domain.IsExpired(err) {
				return nil, err
			}
			return nil, wrapGatewayError(err, "DEVICE_POLL_FAILED", "Failed to poll device flow")
		}

		if resp.AccessToken != "" {
			return g.completeDeviceLogin(ctx, resp)
		}

		wait := interval
		switch strings.ToLower(resp.Status) {
		case "slow_down":
			// Doubled for this poll only; the base interval is unchanged.
			wait = 2 * interval
		case "", "pending":
		default:
			return nil, domain.NewRejectedError(
				"DEVICE_POLL_REJECTED",
				"Device authorization was denied",
				nil,
			)
		}

		if time.Now().Add(wait).After(deadline) {
			return nil, domain.NewExpiredError("DEVICE_CODE_EXPIRED", "Device code expired. Please try again.")
		}
		if err := g.sleep(ctx, wait); err != nil {
			return nil, domain.NewInternalError("DEVICE_POLL_CANCELLED", "Device flow polling cancelled", err)
		}
	}
}

// completeDeviceLogin builds the session from a successful poll. The backend
// returns only a partial profile here, so the rest is synthesized.
func (g *Gateway) completeDeviceLogin(ctx context.Context, resp *DevicePollResponse) (*domain.User, error) {
	if resp.User == nil || resp.User.Login == "" {
		return nil, domain.NewRejectedError("DEVICE_POLL_NO_USER", "Device flow completed without a user", nil)
	}

	avatar := ""
	if resp.User.AvatarURL != nil {
		avatar = *resp.User.AvatarURL
	}
	user := &domain.User{
		ID:          0,
		Login:       resp.User.Login,
		AvatarURL:   avatar,
		Name:        resp.User.Name,
		Bio:         nil,
		PublicRepos: 0,
	}

	if err := g.sessions.CreateSession(ctx, user, resp.AccessToken); err != nil {
		return nil, err
	}
	return user, nil
}

// ListRepositories fetches the user's repositories from the backend and
// refreshes the local mirror. When the fetch fails for any reason, the stored
// listing is returned instead; only when that is also empty does the original
// failure propagate.
func (g *Gateway) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	token, err := g.sessions.StoredToken(ctx)
	if err != nil {
		if domain.IsNotFound(err) {
			return g.listingsFallback(ctx, domain.NewNoCredentialError(
				"NOT_AUTHENTICATED", "No access token available. Please log in.",
			))
		}
		return nil, err
	}

	if cached := g.hotListing(ctx); cached != nil {
		return cached, nil
	}

	repos, err := g.backend.ListRepositories(ctx, token)
	if err != nil {
		return g.listingsFallback(ctx, wrapGatewayError(err, "LIST_FAILED", "Failed to list repositories"))
	}

	if err := g.sessions.UpdateSessionTimestamp(ctx); err != nil {
		g.logger.Warn("failed to refresh session timestamp", slog.String("error", err.Error()))
	}
	if err := g.listings.ReplaceAll(ctx, repos); err != nil {
		g.logger.Warn("failed to persist repository listing", slog.String("error", err.Error()))
	}
	g.storeHotListing(ctx, repos)

	return repos, nil
}

// CachedRepositories returns the stored listing without touching the network.
func (g *Gateway) CachedRepositories(ctx context.Context) ([]domain.Repository, error) {
	return g.listings.List(ctx)
}

func (g *Gateway) listingsFallback(ctx context.Context, cause error) ([]domain.Repository, error) {
	repos, listErr := g.listings.List(ctx)
	if listErr != nil {
		g.logger.Warn("failed to read stored listing during fallback", slog.String("error", listErr.Error()))
		return nil, cause
	}
	if len(repos) == 0 {
		return nil, cause
	}
	g.logger.Info("serving stored repository listing", slog.Int("count", len(repos)))
	return repos, nil
}

func (g *Gateway) hotListing(ctx context.Context) []domain.Repository {
	raw, err := g.cache.Get(ctx, listingCacheKey)
	if err != nil {
		g.logger.Warn("hot cache read failed", slog.String("error", err.Error()))
		return nil
	}
	if raw == nil {
		return nil
	}
	var repos []domain.Repository
	if err := json.Unmarshal(raw, &repos); err != nil {
		g.logger.Warn("hot cache entry malformed", slog.String("error", err.Error()))
		return nil
	}
	return repos
}

func (g *Gateway) storeHotListing(ctx context.Context, repos []domain.Repository) {
	raw, err := json.Marshal(repos)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, listingCacheKey, raw, g.listingTTL); err != nil {
		g.logger.Warn("hot cache write failed", slog.String("error", err.Error()))
	}
}

// AnalyzeRepository returns the analysis for (owner, repo, ref). Unless force
// is set, a cached record wins. On a fresh fetch failure of any kind the
// cached record is served as a stale fallback; only when none exists does the
// failure propagate. Concurrent calls for the same key share one fetch.
func (g *Gateway) AnalyzeRepository(
	ctx context.Context, owner, repo, ref string, force bool,
) (*AnalysisResult, error) {
	if ref == "" {
		ref = "main"
	}
	if err := validation.ValidateCoordinates(owner, repo, ref); err != nil {
		return nil, err
	}
	key := domain.AnalysisKey(owner, repo, ref)

	if !force {
		if cached, err := g.analyses.Get(ctx, owner, repo, ref); err == nil {
			return &AnalysisResult{Analysis: cached, FromCache: true}, nil
		} else if !domain.IsNotFound(err) {
			g.logger.Warn("analysis cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	// Coalesce concurrent fetches for the same key.
	g.mu.Lock()
	if done, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, domain.NewInternalError("ANALYZE_CANCELLED", "Analysis request cancelled", ctx.Err())
		}
		if cached, err := g.analyses.Get(ctx, owner, repo, ref); err == nil {
			return &AnalysisResult{Analysis: cached, FromCache: true}, nil
		}
		// The coalesced fetch failed; fall through and try ourselves.
		g.mu.Lock()
	}
	done := make(chan struct{})
	g.inflight[key] = done
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
		close(done)
	}()

	fresh, err := g.fetchAnalysis(ctx, owner, repo, ref, force)
	if err != nil {
		if cached, cacheErr := g.analyses.Get(ctx, owner, repo, ref); cacheErr == nil {
			g.logger.Info("serving cached analysis after fetch failure",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			return &AnalysisResult{Analysis: cached, FromCache: true}, nil
		}
		return nil, err
	}

	if err := g.analyses.Save(ctx, fresh); err != nil {
		// The caller still gets the fresh result; only future cache hits
		// are lost.
		g.logger.Warn("failed to cache analysis", slog.String("key", key), slog.String("error", err.Error()))
	}
	return &AnalysisResult{Analysis: fresh, FromCache: false}, nil
}

func (g *Gateway) fetchAnalysis(
	ctx context.Context, owner, repo, ref string, force bool,
) (*domain.Analysis, error) {
	token, err := g.sessions.StoredToken(ctx)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNoCredentialError(
				"NOT_AUTHENTICATED", "No access token available. Please log in.",
			)
		}
		return nil, err
	}

	resp, err := g.backend.AnalyzeRepository(ctx, token, owner, repo, ref, force)
	if err != nil {
		return nil, wrapGatewayError(err, "ANALYZE_FAILED", "Failed to analyze repository")
	}

	return &domain.Analysis{
		Owner:         owner,
		Repo:          repo,
		Ref:           ref,
		Summary:       resp.Summary,
		Body:          resp.Analysis,
		FilesAnalyzed: resp.Repository.FilesAnalyzed,
		CreatedAt:     time.Now().UnixMilli(),
	}, nil
}

// IsLoggedIn reports credential presence. A store failure reads as logged out.
func (g *Gateway) IsLoggedIn(ctx context.Context) bool {
	has, err := g.sessions.HasToken(ctx)
	if err != nil {
		g.logger.Warn("credential check failed", slog.String("error", err.Error()))
		return false
	}
	return has
}

// RestoreSessionFromStorage returns the stored profile when a complete
// session exists, or nil without error otherwise.
func (g *Gateway) RestoreSessionFromStorage(ctx context.Context) (*domain.User, error) {
	_, user, err := g.sessions.RestoreSession(ctx)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// HasValidOfflineSession reports whether both token and profile are stored.
func (g *Gateway) HasValidOfflineSession(ctx context.Context) (bool, error) {
	return g.sessions.HasValidSession(ctx)
}

// StoredUserProfile returns the persisted profile, or nil when none exists.
func (g *Gateway) StoredUserProfile(ctx context.Context) (*domain.User, error) {
	return g.sessions.StoredUser(ctx)
}

// Logout clears the session, the stored listing, and the hot cache.
func (g *Gateway) Logout(ctx context.Context) error {
	if err := g.sessions.Logout(ctx); err != nil {
		return err
	}
	if err := g.listings.Clear(ctx); err != nil {
		g.logger.Warn("failed to clear stored listing", slog.String("error", err.Error()))
	}
	if err := g.cache.Delete(ctx, listingCacheKey); err != nil {
		g.logger.Warn("failed to clear hot cache", slog.String("error", err.Error()))
	}
	return nil
}

// PurgeOldAnalyses drops cached analyses older than the retention window and
// returns the number removed.
func (g *Gateway) PurgeOldAnalyses(ctx context.Context) (int64, error) {
	if g.retention <= 0 {
		return 0, nil
	}
	return g.analyses.PurgeOlderThan(ctx, g.retention)
}

// wrapGatewayError puts a stable code and message in front of err while
// keeping its domain type, so callers branch the same way at every layer.
func wrapGatewayError(err error, code, message string) error {
	return &domain.DomainError{
		Type:    domain.TypeOf(err),
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
