package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/blog-porter/app/record"
	"github.com/lysyi3m/blog-porter/app/resources"
)

const (
	DefaultBaseURL = "http://posterous.com/api/2"
	DefaultUser    = "me"
	DefaultSite    = "primary"

	maxMessageLen = 200
)

type Options struct {
	BaseURL   string
	Username  string
	Password  string
	User      string
	Site      string
	UserAgent string
	Timeout   time.Duration
	RateLimit float64
	MaxPages  int
}

// Client talks to the Posterous API. Records it returns are wrapped by the
// registry handed to New.
type Client struct {
	opts       Options
	httpClient *http.Client
	registry   *resources.Registry
	limiter    *rateLimiter

	mu    sync.Mutex
	token string
}

func New(opts Options, httpClient *http.Client, registry *resources.Registry) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.User == "" {
		opts.User = DefaultUser
	}
	if opts.Site == "" {
		opts.Site = DefaultSite
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		opts:       opts,
		httpClient: httpClient,
		registry:   registry,
		limiter:    newRateLimiter(opts.RateLimit),
	}
}

func (c *Client) Site() string { return c.opts.Site }

func (c *Client) User() string { return c.opts.User }

// APIToken fetches the account's api token once and caches it.
func (c *Client) APIToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	data, err := c.do(ctx, "/auth/token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get api token: %w", err)
	}

	raw, err := record.Decode(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode api token: %w", err)
	}
	token := raw.String("api_token")
	if token == "" {
		return "", fmt.Errorf("api token missing from response")
	}

	c.token = token
	return token, nil
}

// Posts returns every post of the site, page by page. query is passed
// through, e.g. tag=starred.
func (c *Client) Posts(ctx context.Context, query url.Values) ([]resources.Resource, error) {
	var out []resources.Resource
	err := c.EachPost(ctx, query, func(r resources.Resource) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// EachPost streams posts to fn as pages arrive. Paging stops at the first
// empty page or after MaxPages.
func (c *Client) EachPost(ctx context.Context, query url.Values, fn func(resources.Resource) error) error {
	for page := 1; page <= c.opts.MaxPages; page++ {
		q := cloneQuery(query)
		q.Set("page", strconv.Itoa(page))

		records, err := c.list(ctx, c.sitePath("posts"), q)
		if err != nil {
			return fmt.Errorf("failed to list posts page %d: %w", page, err)
		}
		if len(records) == 0 {
			return nil
		}

		slog.Debug("Posts page fetched", "site", c.opts.Site, "page", page, "count", len(records))

		for _, raw := range records {
			if err := fn(c.registry.Wrap(resources.KindPost, raw)); err != nil {
				return err
			}
		}
	}

	slog.Warn("Stopped paging posts", "site", c.opts.Site, "max_pages", c.opts.MaxPages)
	return nil
}

func (c *Client) Pages(ctx context.Context, query url.Values) ([]resources.Resource, error) {
	records, err := c.list(ctx, c.sitePath("pages"), query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return c.wrapAll(resources.KindPage, records), nil
}

func (c *Client) Theme(ctx context.Context, query url.Values) (resources.Resource, error) {
	raw, err := c.one(ctx, c.sitePath("theme"), query)
	if err != nil {
		return nil, fmt.Errorf("failed to get theme: %w", err)
	}
	return c.registry.Wrap(resources.KindTheme, raw), nil
}

func (c *Client) Sites(ctx context.Context) ([]resources.Resource, error) {
	records, err := c.list(ctx, "/users/"+url.PathEscape(c.opts.User)+"/sites", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return c.wrapAll(resources.KindSite, records), nil
}

func (c *Client) CurrentUser(ctx context.Context) (resources.Resource, error) {
	data, err := c.do(ctx, "/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	raw, err := record.Decode(data)
	if err != nil {
		return nil, err
	}
	return c.registry.Wrap(resources.KindUser, raw), nil
}

func (c *Client) sitePath(resource string) string {
	return "/users/" + url.PathEscape(c.opts.User) + "/sites/" + url.PathEscape(c.opts.Site) + "/" + resource
}

func (c *Client) wrapAll(kind resources.Kind, records []*record.Raw) []resources.Resource {
	out := make([]resources.Resource, 0, len(records))
	for _, raw := range records {
		out = append(out, c.registry.Wrap(kind, raw))
	}
	return out
}

func (c *Client) list(ctx context.Context, path string, query url.Values) ([]*record.Raw, error) {
	data, err := c.authorized(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return record.DecodeList(data)
}

func (c *Client) one(ctx context.Context, path string, query url.Values) (*record.Raw, error) {
	data, err := c.authorized(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return record.Decode(data)
}

// authorized performs a request carrying the api token.
func (c *Client) authorized(ctx context.Context, path string, query url.Values) ([]byte, error) {
	token, err := c.APIToken(ctx)
	if err != nil {
		return nil, err
	}
	q := cloneQuery(query)
	q.Set("api_token", token)
	return c.do(ctx, path, q)
}

func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	u := c.opts.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.opts.Username, c.opts.Password)
	req.Header.Set("Accept", "application/json")
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.limiter.Update(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	return data, nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return truncate(strings.TrimSpace(string(data)), maxMessageLen)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func cloneQuery(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
