package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrRejected is returned when the auth service answers success=false.
var ErrRejected = errors.New("request rejected")

// Client provides access to the session, auth and upload services.
// Cookies set by login are kept and sent with later requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new REST API client.
// baseURL should be the service root, e.g., "http://localhost:8000".
func NewClient(baseURL string) *Client {
	return NewClientWithLogger(baseURL, nil)
}

// NewClientWithLogger is NewClient with retry attempts logged to logger.
func NewClientWithLogger(baseURL string, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.CheckRetry = retryIdempotent
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if logger != nil {
		rc.Logger = logger.With("component", "rest")
	}

	httpClient := rc.StandardClient()
	httpClient.Timeout = 30 * time.Second
	jar, _ := cookiejar.New(nil)
	httpClient.Jar = jar

	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type idempotentKey struct{}

// withIdempotent marks a request as safe to send more than once.
func withIdempotent(ctx context.Context) context.Context {
	return context.WithValue(ctx, idempotentKey{}, true)
}

// retryIdempotent applies the default policy to idempotent requests only.
// Login, signup and upload are sent once.
func retryIdempotent(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ok, _ := ctx.Value(idempotentKey{}).(bool); !ok {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// Authentication endpoints

// Login authenticates with existing credentials. A rejected login returns
// the response together with an error wrapping ErrRejected.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.postJSON(ctx, "/login", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &resp, fmt.Errorf("login: %w: %s", ErrRejected, resp.Detail)
	}
	return &resp, nil
}

// Signup creates a new account.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.postJSON(ctx, "/signup", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &resp, fmt.Errorf("signup: %w: %s", ErrRejected, resp.Detail)
	}
	return &resp, nil
}

// Session returns the identity bound to the client's cookies.
func (c *Client) Session(ctx context.Context) (*SessionResponse, error) {
	req, err := http.NewRequestWithContext(withIdempotent(ctx), http.MethodGet, c.baseURL+"/session", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var resp SessionResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upload endpoints

// Upload sends one file as multipart field "file".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp UploadResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if resp.ImageRef == "" {
		return nil, errors.New("upload response has no imageRef")
	}
	return &resp, nil
}

// Helper methods

func (c *Client) postJSON(ctx context.Context, path string, body, dest any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
