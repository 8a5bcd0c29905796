package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gitgauge/internal/domain"
)

// LoginURLResponse is the backend payload for the browser-based login URL.
type LoginURLResponse struct {
	AuthURL string `json:"auth_url"`
}

// TokenResponse is the backend payload carrying an exchanged access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// DeviceFlowResponse is the backend payload starting a device authorization.
type DeviceFlowResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// DevicePollUser is the minimal profile the backend returns on a successful
// device authorization.
type DevicePollUser struct {
	Login     string  `json:"login"`
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// DevicePollResponse is one poll result of a pending device authorization.
type DevicePollResponse struct {
	Status      string          `json:"status,omitempty"`
	AccessToken string          `json:"access_token,omitempty"`
	User        *DevicePollUser `json:"user,omitempty"`
}

// AnalysisScope identifies which repository revision an analysis covers.
type AnalysisScope struct {
	Owner         string `json:"owner"`
	Repo          string `json:"repo"`
	Ref           string `json:"ref"`
	FilesAnalyzed int    `json:"files_analyzed"`
}

// AnalyzeResponse is the backend payload of a completed repository analysis.
type AnalyzeResponse struct {
	Summary    string        `json:"summary"`
	Analysis   string        `json:"analysis"`
	Repository AnalysisScope `json:"repository"`
}

type analyzeRequest struct {
	Owner    string   `json:"owner"`
	Repo     string   `json:"repo"`
	Ref      string   `json:"ref"`
	Contents []string `json:"contents"`
}

// BackendClient talks to the analysis backend. All methods translate
// transport and protocol failures into domain errors so callers branch on
// error type rather than HTTP minutiae.
type BackendClient interface {
	// GetLoginURL fetches the browser authorization URL for web-based login.
	GetLoginURL(ctx context.Context) (*LoginURLResponse, error)
	// ExchangeCode trades an authorization code for an access token.
	ExchangeCode(ctx context.Context, code, state string) (*TokenResponse, error)
	// InitiateDeviceFlow starts a device authorization.
	InitiateDeviceFlow(ctx context.Context) (*DeviceFlowResponse, error)
	// PollDeviceFlowOnce performs a single poll of a pending device grant.
	PollDeviceFlowOnce(ctx context.Context, deviceCode string) (*DevicePollResponse, error)
	// ListRepositories fetches the authenticated user's repositories.
	ListRepositories(ctx context.Context, token string) ([]domain.Repository, error)
	// AnalyzeRepository requests a fresh AI analysis of a repository ref.
	AnalyzeRepository(ctx context.Context, token, owner, repo, ref string, force bool) (*AnalyzeResponse, error)
}

// HTTPBackendClient is the production BackendClient over JSON/HTTP.
type HTTPBackendClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPBackendClient creates a backend client rooted at baseURL.
func NewHTTPBackendClient(baseURL string, timeout time.Duration) *HTTPBackendClient {
	return &HTTPBackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetLoginURL fetches the browser authorization URL.
func (c *HTTPBackendClient) GetLoginURL(ctx context.Context) (*LoginURLResponse, error) {
	var out LoginURLResponse
	if err := c.doJSON(ctx, http.MethodGet, "/login/url", "", nil, &out); err != nil {
		return nil, err
	}
	if out.AuthURL == "" {
		return nil, domain.NewRejectedError("EMPTY_AUTH_URL", "Backend returned no authorization URL", nil)
	}
	return &out, nil
}

// ExchangeCode trades an authorization code for an access token.
func (c *HTTPBackendClient) ExchangeCode(ctx context.Context, code, state string) (*TokenResponse, error) {
	if code == "" {
		return nil, domain.NewValidationError("EMPTY_CODE", "Authorization code cannot be empty", nil)
	}

	q := url.Values{}
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}

	var out TokenResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/callback?"+q.Encode(), "", nil, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, domain.NewRejectedError("EMPTY_TOKEN", "Backend returned no access token", nil)
	}
	return &out, nil
}

// InitiateDeviceFlow starts a device authorization.
func (c *HTTPBackendClient) InitiateDeviceFlow(ctx context.Context) (*DeviceFlowResponse, error) {
	var out DeviceFlowResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/device/initiate", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PollDeviceFlowOnce performs a single poll of a pending device grant.
func (c *HTTPBackendClient) PollDeviceFlowOnce(ctx context.Context, deviceCode string) (*DevicePollResponse, error) {
	if deviceCode == "" {
		return nil, domain.NewValidationError("EMPTY_DEVICE_CODE", "Device code cannot be empty", nil)
	}

	q := url.Values{}
	q.Set("device_code", deviceCode)

	var out DevicePollResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/device/poll?"+q.Encode(), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRepositories fetches the authenticated user's repositories.
func (c *HTTPBackendClient) ListRepositories(ctx context.Context, token string) ([]domain.Repository, error) {
	var out []domain.Repository
	if err := c.doJSON(ctx, http.MethodGet, "/repos/list", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeRepository requests a fresh AI analysis of a repository ref.
func (c *HTTPBackendClient) AnalyzeRepository(
	ctx context.Context, token, owner, repo, ref string, force bool,
) (*AnalyzeResponse, error) {
	path := fmt.Sprintf("/repos/%s/%s/analyze", url.PathEscape(owner), url.PathEscape(repo))
	if force {
		path += "?force=true"
	}

	req := analyzeRequest{Owner: owner, Repo: repo, Ref: ref, Contents: []string{}}

	var out AnalyzeResponse
	if err := c.doJSON(ctx, http.MethodPost, path, token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPBackendClient) doJSON(
	ctx context.Context, method, path, token string, body, out interface{},
) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return domain.NewInternalError("REQUEST_ENCODE_FAILED", "Failed to encode request body", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return domain.NewInternalError("REQUEST_BUILD_FAILED", "Failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewUnavailableError("BACKEND_UNREACHABLE", "Backend request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewUnavailableError("BACKEND_READ_FAILED", "Failed to read backend response", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return domain.NewUnavailableError(
			"BACKEND_ERROR",
			fmt.Sprintf("Backend returned status %d", resp.StatusCode),
			nil,
		)
	case resp.StatusCode >= 400:
		// The device poll endpoint reports expiry through an error body.
		if strings.Contains(strings.ToLower(string(raw)), "expired") {
			return domain.NewExpiredError("DEVICE_CODE_EXPIRED", "Device code expired. Please try again.")
		}
		return domain.NewRejectedError(
			"BACKEND_REJECTED",
			fmt.Sprintf("Backend rejected the request with status %d", resp.StatusCode),
			nil,
		)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return domain.NewRejectedError("BACKEND_BAD_RESPONSE", "Backend returned a malformed response", nil)
		}
	}
	return nil
}
