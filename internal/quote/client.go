package quote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	defaultBaseURL   = "http://127.0.0.1:8080"
	DefaultUserAgent = "quotedesk/0.1"
	requestTimeout   = 60 * time.Second
	maxErrorBody     = 64 << 10
)

// ShockFetcher reads the server side of one shock. It is implemented by
// *Client and can be faked in tests.
type ShockFetcher interface {
	FetchShock(ctx context.Context, shockID int64) (Shock, error)
	FetchSupplies(ctx context.Context, shockID int64) ([]SupplyLine, error)
	FetchWorkforce(ctx context.Context, shockID int64) ([]WorkforceLine, error)
}

var _ ShockFetcher = (*Client)(nil)

// APIError is a non-2xx response. Message holds the server's own message
// when it sent one.
type APIError struct {
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}

// Client talks to the quote REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	validate  *validator.Validate
}

// NewClient builds a Client for baseURL. An empty userAgent uses the
// default.
func NewClient(baseURL, userAgent string) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: userAgent,
		validate:  newValidate(),
	}, nil
}

// FetchShock retrieves the shock summary.
func (c *Client) FetchShock(ctx context.Context, shockID int64) (Shock, error) {
	var payload Shock
	if err := c.do(ctx, http.MethodGet, shockPath(shockID), nil, &payload); err != nil {
		return Shock{}, err
	}
	return payload, nil
}

// FetchSupplies lists the supply lines of a shock in business order.
func (c *Client) FetchSupplies(ctx context.Context, shockID int64) ([]SupplyLine, error) {
	return fetchLines[SupplyLine](ctx, c, shockID, suppliesResource)
}

// FetchWorkforce lists the workforce lines of a shock in business order.
func (c *Client) FetchWorkforce(ctx context.Context, shockID int64) ([]WorkforceLine, error) {
	return fetchLines[WorkforceLine](ctx, c, shockID, workforceResource)
}

type itemsPayload[T any] struct {
	Items []T `json:"items"`
}

type idsPayload struct {
	IDs []int64 `json:"ids"`
}

type messagePayload struct {
	Message string `json:"message"`
}

func fetchLines[T any](ctx context.Context, c *Client, shockID int64, resource string) ([]T, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload itemsPayload[T]
	if err := c.do(ctx, http.MethodGet, shockPath(shockID)+"/"+resource, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeError(rel.Path, resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(path string, resp *http.Response) error {
	apiErr := &APIError{Path: path, Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var payload messagePayload
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Message = strings.TrimSpace(payload.Message)
	}
	return apiErr
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func shockPath(shockID int64) string {
	return "/api/shocks/" + strconv.FormatInt(shockID, 10)
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_base %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
