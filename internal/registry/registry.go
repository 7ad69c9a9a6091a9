// Package registry is the client for the remote skills database: paged
// search plus resolution of scoped names ("@author/name") to one record.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
)

var (
	// ErrNotFound means the database answered but no record matched.
	ErrNotFound = errors.New("skill not found in registry")
	// ErrUnreachable covers transport failures, non-2xx statuses and undecodable bodies.
	ErrUnreachable = errors.New("registry unreachable")
	// ErrMalformedName means the input is not name, author/name or @author/name.
	ErrMalformedName = errors.New("malformed skill name")
)

// SortBy orders search results.
type SortBy string

const (
	SortStars  SortBy = "stars"
	SortRecent SortBy = "recent"
	SortName   SortBy = "name"
)

// ParseSortBy validates a sort key. Empty selects stars.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortStars:
		return SortStars, nil
	case SortRecent:
		return SortRecent, nil
	case SortName:
		return SortName, nil
	default:
		return "", fmt.Errorf("invalid sort %q (valid: stars, recent, name)", s)
	}
}

// FetchOptions are the query parameters of a database search.
type FetchOptions struct {
	Search   string
	Author   string
	Category string
	Limit    int
	Offset   int
	SortBy   SortBy
}

// Page is one page of search results.
type Page struct {
	Skills []model.RemoteSkill `json:"skills"`
	Total  int                 `json:"total"`
}

// Client talks to the skills database.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sortBy     SortBy
	limit      int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithSortBy sets the default ranking used by Fetch and Resolve.
func WithSortBy(s SortBy) Option {
	return func(c *Client) {
		if s != "" {
			c.sortBy = s
		}
	}
}

// WithLimit sets the default page size.
func WithLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// New creates a client for the database at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		sortBy:     SortStars,
		limit:      20,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch runs one search against the database.
func (c *Client) Fetch(ctx context.Context, opts FetchOptions) (*Page, error) {
	if opts.SortBy == "" {
		opts.SortBy = c.sortBy
	}
	if opts.Limit <= 0 {
		opts.Limit = c.limit
	}

	reqURL, err := c.buildURL(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	defer logging.Timer("registry fetch")()
	logging.Debug("querying registry", logging.URL(reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnreachable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	page, err := decodePage(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnreachable, err)
	}
	return page, nil
}

func (c *Client) buildURL(opts FetchOptions) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	setIf := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	setIf("search", opts.Search)
	setIf("author", opts.Author)
	setIf("category", opts.Category)
	q.Set("limit", strconv.Itoa(opts.Limit))
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	q.Set("sortBy", string(opts.SortBy))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Resolve maps input to exactly one record. With an author, only an exact
// case-insensitive (name, author) match counts. Without one, the best-ranked
// exact name match wins, else the best-ranked result overall.
func (c *Client) Resolve(ctx context.Context, input string) (*model.RemoteSkill, error) {
	ref, err := ParseScopedName(input)
	if err != nil {
		return nil, err
	}

	page, err := c.Fetch(ctx, FetchOptions{Search: ref.Name, Author: ref.Author})
	if err != nil {
		return nil, err
	}

	skill, ok := pick(page.Skills, ref, c.sortBy)
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	logging.Debug("resolved skill", logging.Skill(skill.ScopedName), logging.Source(skill.CloneSource()))
	return &skill, nil
}

func pick(skills []model.RemoteSkill, ref ScopedName, sortBy SortBy) (model.RemoteSkill, bool) {
	if len(skills) == 0 {
		return model.RemoteSkill{}, false
	}

	if ref.Author != "" {
		for _, s := range skills {
			if strings.EqualFold(s.Name, ref.Name) && strings.EqualFold(s.Author, ref.Author) {
				return s, true
			}
		}
		return model.RemoteSkill{}, false
	}

	ranked := Rank(skills, sortBy)
	for _, s := range ranked {
		if strings.EqualFold(s.Name, ref.Name) {
			return s, true
		}
	}
	return ranked[0], true
}
