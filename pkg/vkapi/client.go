// Package vkapi implements the VK API transport: single method calls,
// paginated collection fetches and plain file downloads.
package vkapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"vkdumper/pkg/config"
	"vkdumper/pkg/logger"
	"vkdumper/pkg/ratelimit"
)

// Well known VK API error codes
const (
	// ErrCodeAuthFailed is returned for an invalid or expired access token
	ErrCodeAuthFailed = 5
	// ErrCodeTooBigResponse is returned when a paginated method is asked for
	// more data than the server is willing to serialize in one response
	ErrCodeTooBigResponse = 13
	// ErrCodeAccessDenied is returned for content the token cannot see
	ErrCodeAccessDenied = 15
)

// Error represents an error reported by the VK API itself
type Error struct {
	Code    int
	Message string
	Method  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("vk api error %d on %s: %s", e.Code, e.Method, e.Message)
}

// IsTooBigResponse reports whether err is the API "response size is too big"
// condition that the paginated fetcher recovers from
func IsTooBigResponse(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == ErrCodeTooBigResponse
}

// IsAuthError reports whether err means the access token was rejected
func IsAuthError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == ErrCodeAuthFailed
}

// Params holds the request parameters of one API method call
type Params map[string]interface{}

func (p Params) clone() Params {
	out := make(Params, len(p)+2)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Client is the VK API client. All method calls go through one rate limiter
// because the request budget is per session.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
	token      string
	limiter    ratelimit.Limiter
	log        logger.Logger
}

// NewClient creates a VK API client from the configuration
func NewClient(cfg *config.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.VK.RequestTimeout},
		baseURL:    cfg.VK.BaseURL,
		version:    cfg.VK.APIVersion,
		token:      cfg.VK.AccessToken,
		limiter:    ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerSecond, time.Second),
		log:        log,
	}
}

// SetToken replaces the access token used for method calls
func (c *Client) SetToken(token string) {
	c.token = token
}

// envelope is the outer shape of every VK API response
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_msg"`
	} `json:"error"`
}

// Call performs one API method call and returns the decoded response payload.
// Depending on the method the payload is a JSON object or a JSON array, so it
// is returned as the generic decoded form.
func (c *Client) Call(method string, params Params) (interface{}, error) {
	c.limiter.Wait()

	form := url.Values{}
	form.Set("access_token", c.token)
	form.Set("v", c.version)
	for key, value := range params {
		form.Set(key, fmt.Sprint(value))
	}

	start := time.Now()
	resp, err := c.httpClient.PostForm(c.baseURL+"/"+method, form)
	if err != nil {
		c.log.ErrorWithFields("api request failed", map[string]interface{}{
			"method": method,
			"error":  err.Error(),
		})
		return nil, fmt.Errorf("vk api transport error on %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vk api read error on %s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vk api http status %d on %s", resp.StatusCode, method)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("vk api malformed response on %s: %w", method, err)
	}
	if env.Error != nil {
		return nil, &Error{Code: env.Error.Code, Message: env.Error.Message, Method: method}
	}

	var payload interface{}
	if err := json.Unmarshal(env.Response, &payload); err != nil {
		return nil, fmt.Errorf("vk api malformed payload on %s: %w", method, err)
	}

	c.log.DebugWithFields("api request completed", map[string]interface{}{
		"method":   method,
		"duration": time.Since(start),
	})
	return payload, nil
}

// Download fetches one file over plain HTTP. Attachment URLs are presigned by
// the API and need no token.
func (c *Client) Download(fileURL string) ([]byte, error) {
	resp, err := c.httpClient.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download read failed: %w", err)
	}
	return data, nil
}
