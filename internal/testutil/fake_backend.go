package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"
)

// FakeBackend is an in-process stand-in for the gitgauge analysis backend.
// It serves the auth and analysis endpoints the client talks to, with
// scriptable responses per test.
type FakeBackend struct {
	Server *httptest.Server

	mu sync.Mutex

	// Scripted behavior. Zero values produce sensible defaults.
	AccessToken   string
	AuthURL       string
	DeviceCode    string
	UserCode      string
	Interval      int
	ExpiresIn     int
	PollStatuses  []string // statuses returned before success, e.g. "pending", "slow_down"
	PollUserLogin string
	Repositories  []map[string]interface{}
	AnalyzeStatus int // non-zero forces this status from the analyze endpoint
	ListStatus    int // non-zero forces this status from the list endpoint

	pollCalls    int
	listCalls    int
	analyzeCalls int
}

// NewFakeBackend starts a fake backend with default behavior.
func NewFakeBackend() *FakeBackend {
	gin.SetMode(gin.TestMode)

	f := &FakeBackend{
		AccessToken:   "gho_testtoken",
		AuthURL:       "https://github.com/login/oauth/authorize?client_id=test",
		DeviceCode:    "device-code-1",
		UserCode:      "ABCD-1234",
		Interval:      1,
		ExpiresIn:     900,
		PollUserLogin: "octocat",
	}

	router := gin.New()
	router.GET("/login/url", f.handleLoginURL)
	router.GET("/auth/callback", f.handleCallback)
	router.POST("/auth/device/initiate", f.handleDeviceInitiate)
	router.POST("/auth/device/poll", f.handleDevicePoll)
	router.GET("/repos/list", f.handleList)
	router.POST("/repos/:owner/:repo/analyze", f.handleAnalyze)

	f.Server = httptest.NewServer(router)
	return f
}

// Close shuts the backend down.
func (f *FakeBackend) Close() {
	f.Server.Close()
}

// URL returns the backend base URL.
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

// ListCalls returns how many times the list endpoint was hit.
func (f *FakeBackend) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// AnalyzeCalls returns how many times the analyze endpoint was hit.
func (f *FakeBackend) AnalyzeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyzeCalls
}

// PollCalls returns how many times the device poll endpoint was hit.
func (f *FakeBackend) PollCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollCalls
}

func (f *FakeBackend) handleLoginURL(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"auth_url": f.AuthURL})
}

func (f *FakeBackend) handleCallback(c *gin.Context) {
	if c.Query("code") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": f.AccessToken})
}

func (f *FakeBackend) handleDeviceInitiate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"device_code":      f.DeviceCode,
		"user_code":        f.UserCode,
		"verification_uri": "https://github.com/login/device",
		"expires_in":       f.ExpiresIn,
		"interval":         f.Interval,
	})
}

func (f *FakeBackend) handleDevicePoll(c *gin.Context) {
	if c.Query("device_code") != f.DeviceCode {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device code expired"})
		return
	}

	f.mu.Lock()
	call := f.pollCalls
	f.pollCalls++
	statuses := f.PollStatuses
	f.mu.Unlock()

	if call < len(statuses) {
		c.JSON(http.StatusOK, gin.H{"status": statuses[call]})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": f.AccessToken,
		"user": gin.H{
			"login":      f.PollUserLogin,
			"avatar_url": "https://avatars.example/u/1",
		},
	})
}

func (f *FakeBackend) handleList(c *gin.Context) {
	f.mu.Lock()
	f.listCalls++
	status := f.ListStatus
	repos := f.Repositories
	f.mu.Unlock()

	if !f.authorized(c) {
		return
	}
	if status != 0 {
		c.JSON(status, gin.H{"error": "unavailable"})
		return
	}
	if repos == nil {
		repos = []map[string]interface{}{}
	}
	c.JSON(http.StatusOK, repos)
}

func (f *FakeBackend) handleAnalyze(c *gin.Context) {
	f.mu.Lock()
	f.analyzeCalls++
	status := f.AnalyzeStatus
	f.mu.Unlock()

	if !f.authorized(c) {
		return
	}
	if status != 0 {
		c.JSON(status, gin.H{"error": "unavailable"})
		return
	}

	var req struct {
		Owner string `json:"owner"`
		Repo  string `json:"repo"`
		Ref   string `json:"ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":  "A small test repository.",
		"analysis": "The repository is well structured.",
		"repository": gin.H{
			"owner":          c.Param("owner"),
			"repo":           c.Param("repo"),
			"ref":            req.Ref,
			"files_analyzed": 3,
		},
	})
}

func (f *FakeBackend) authorized(c *gin.Context) bool {
	if c.GetHeader("Authorization") != "Bearer "+f.AccessToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}
