// Package backend is the HTTP client for the marketplace REST API that owns
// orders and users.
package backend

import (
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

	"panic-list/internal/core"

	"github.com/sirupsen/logrus"
)

// DefaultOrdersPageSize is the page size used when walking the order list.
const DefaultOrdersPageSize = 100

// maxErrorBody caps how much of a failed response is kept for the error message.
const maxErrorBody = 4 << 10

// ErrUnsuccessful is returned when the backend answers with success=false.
var ErrUnsuccessful = errors.New("backend reported failure")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// envelope is the response wrapper used by every backend endpoint.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client calls the marketplace backend. A Client is safe for concurrent use;
// WithToken returns a copy bound to one caller's credentials.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	token    string
	pageSize int
	log      logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithPageSize sets the page size used by ListAllOrders.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL:  u,
		http:     &http.Client{Timeout: 15 * time.Second},
		pageSize: DefaultOrdersPageSize,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// ── Orders ────────────────────────────────────────────────────────────────────

// OrderListParams are the query parameters of GET /orders.
type OrderListParams struct {
	ProviderID string
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

func (p OrderListParams) values() url.Values {
	v := url.Values{}
	if p.ProviderID != "" {
		v.Set("provider", p.ProviderID)
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
	}
	if p.SortOrder != "" {
		v.Set("sortOrder", p.SortOrder)
	}
	return v
}

// OrderList is one page of orders plus the total across all pages.
type OrderList struct {
	Orders []core.RawOrder `json:"orders"`
	Total  int             `json:"total"`
}

// ListOrders fetches one page of orders.
func (c *Client) ListOrders(ctx context.Context, p OrderListParams) (*OrderList, error) {
	var list OrderList
	if err := c.get(ctx, "/orders", p.values(), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListAllOrders walks the order list for providerID, newest first, until the
// reported total is reached or an empty page is returned. Short pages do not
// end the walk; the backend may cap limit below the requested page size.
func (c *Client) ListAllOrders(ctx context.Context, providerID string) ([]core.RawOrder, error) {
	var all []core.RawOrder
	params := OrderListParams{
		ProviderID: providerID,
		Limit:      c.pageSize,
		SortBy:     "createdAt",
		SortOrder:  "desc",
	}
	for {
		page, err := c.ListOrders(ctx, params)
		if err != nil {
			return nil, err
		}
		if len(page.Orders) == 0 {
			break
		}
		all = append(all, page.Orders...)
		if len(all) >= page.Total {
			break
		}
		params.Offset += len(page.Orders)
	}
	c.log.WithFields(logrus.Fields{"provider_id": providerID, "orders": len(all)}).Debug("fetched orders")
	return all, nil
}

// ── Users ─────────────────────────────────────────────────────────────────────

// PublicProfile fetches GET /users/public/{id}. A 404 yields a nil profile.
func (c *Client) PublicProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	return c.profile(ctx, "/users/public/"+url.PathEscape(userID))
}

// UserRecord fetches GET /users/{id}. A 404 yields a nil profile.
func (c *Client) UserRecord(ctx context.Context, userID string) (*core.UserProfile, error) {
	return c.profile(ctx, "/users/"+url.PathEscape(userID))
}

func (c *Client) profile(ctx context.Context, path string) (*core.UserProfile, error) {
	var p core.UserProfile
	if err := c.get(ctx, path, nil, &p); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ── Transport ─────────────────────────────────────────────────────────────────

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	// path is already escaped
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	env := envelope[json.RawMessage]{}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return fmt.Errorf("GET %s: %w: %s", path, ErrUnsuccessful, msg)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

var _ core.Backend = (*Client)(nil)
