package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
)

const (
	defaultTimeout           = 15 * time.Second
	errorBodyReadLimit int64 = 4096
	operationFind            = "find"
	operationUpdate          = "update"
	operationLogin           = "login"
	operationMe              = "me"
)

var (
	errBaseURLRequired = errors.New("data api base url is required")

	// ErrTransport marks failures where no response was received from the data API.
	ErrTransport = errors.New("data api network failure")
)

// RequestObserver receives one observation per data API call.
type RequestObserver interface {
	ObserveDataAPIRequest(operation, outcome string, duration time.Duration)
}

// Client talks to the CMS REST API (Strapi envelope conventions).
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	observer   RequestObserver
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithRateLimit throttles outbound calls with a shared token bucket.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver records call latency and outcome.
func WithObserver(observer RequestObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient builds a data API client rooted at baseURL (without the /api suffix).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return client, nil
}

// Pagination mirrors meta.pagination in list responses.
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// APIError is the error object the data API returns on non-2xx responses.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("status %d %s: %s", e.Status, e.Name, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// User is the subset of the CMS user record the backend needs. Role is left raw because the
// CMS returns it either as a string or as an object; callers normalize it.
type User struct {
	ID       int             `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Blocked  bool            `json:"blocked"`
	Role     json.RawMessage `json:"role"`
}

// LoginResult is the CMS response to a local login.
type LoginResult struct {
	JWT  string `json:"jwt"`
	User User   `json:"user"`
}

// Find lists a resource and decodes data into out.
func (c *Client) Find(ctx context.Context, token, resource string, query Query, out any) (*Pagination, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "data api client not configured")
	}
	endpoint := c.buildURL("api", resource)
	if encoded := query.Encode(); encoded != "" {
		endpoint = endpoint + "?" + encoded
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
		Meta struct {
			Pagination Pagination `json:"pagination"`
		} `json:"meta"`
	}
	if err := c.do(ctx, operationFind, http.MethodGet, endpoint, token, nil, &envelope); err != nil {
		return nil, err
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+resource+" list")
		}
	}
	return &envelope.Meta.Pagination, nil
}

// Update replaces fields on one record addressed by its documentId.
func (c *Client) Update(ctx context.Context, token, resource, documentID string, data any, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "data api client not configured")
	}
	trimmed := strings.TrimSpace(documentID)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
	}

	payload, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+resource+" update")
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	endpoint := c.buildURL("api", resource, url.PathEscape(trimmed))
	if err := c.do(ctx, operationUpdate, http.MethodPut, endpoint, token, payload, &envelope); err != nil {
		return err
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+resource+" update")
		}
	}
	return nil
}

// Login exchanges credentials for a CMS token.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "data api client not configured")
	}
	payload, err := json.Marshal(map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal login request")
	}

	var result LoginResult
	if err := c.do(ctx, operationLogin, http.MethodPost, c.buildURL("api", "auth", "local"), "", payload, &result); err != nil {
		// the CMS answers bad credentials with 400
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials")
		}
		return nil, err
	}
	if strings.TrimSpace(result.JWT) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "login response missing token")
	}
	return &result, nil
}

// Me returns the user that owns token, with its role expanded.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "data api client not configured")
	}
	endpoint := c.buildURL("api", "users", "me") + "?populate=role"
	var user User
	if err := c.do(ctx, operationMe, http.MethodGet, endpoint, token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, operation, method, endpoint, token string, body []byte, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveDataAPIRequest(operation, outcomeOf(err), time.Since(start))
		}
	}()

	if c.limiter != nil {
		if waitErr := c.limiter.Wait(ctx); waitErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %v", ErrTransport, waitErr), operation+" request throttled")
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+operation+" request")
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
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %v", ErrTransport, err), operation+" request failed").
			WithDetails(map[string]any{"message": ErrTransport.Error()})
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := readAPIError(resp)
		return pkgerrors.Wrap(codeForStatus(resp.StatusCode), apiErr, operation+" request failed").
			WithDetails(map[string]any{"status": apiErr.Status, "message": apiErr.Message})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+operation+" response")
	}
	return nil
}

// readAPIError extracts error.message from the body when parseable, else falls back to
// the raw body or the status text.
func readAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Error struct {
			Status  int    `json:"status"`
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if len(raw) > 0 && json.Unmarshal(raw, &payload) == nil {
		apiErr.Name = payload.Error.Name
		apiErr.Message = payload.Error.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	}
	return pkgerrors.CodeDependency
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, ErrTransport) {
		return "network_error"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.Status)
	}
	return "error"
}

func (c *Client) buildURL(parts ...string) string {
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, c.baseURL)
	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part != "" {
			clean = append(clean, part)
		}
	}
	return strings.Join(clean, "/")
}
