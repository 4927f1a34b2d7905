package workplace

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://graph.facebook.com/v2.10"
	DefaultTimeout  = 10 * time.Second
	DefaultPageSize = 100
)

// Options configures a Client. Only AccessToken is required.
type Options struct {
	BaseURL     string
	AccessToken string
	AppSecret   string
	HTTPClient  *http.Client

	// Timeout bounds each individual request, including reading the body.
	Timeout time.Duration

	// PageSize is the member page size requested from the roster endpoint.
	PageSize int
}

// Client talks to the Graph API.
type Client struct {
	baseURL     string
	accessToken string
	proof       string
	httpClient  *http.Client
	timeout     time.Duration
	pageSize    int
}

// New builds a Client, filling unset options with defaults.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Client{
		baseURL:     baseURL,
		accessToken: opts.AccessToken,
		proof:       AppSecretProof(opts.AccessToken, opts.AppSecret),
		httpClient:  httpClient,
		timeout:     timeout,
		pageSize:    pageSize,
	}
}

// AppSecretProof returns the hex HMAC-SHA256 of the access token keyed with
// the app secret, or "" when no secret is configured.
func AppSecretProof(accessToken, appSecret string) string {
	if appSecret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil))
}
