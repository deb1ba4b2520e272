// Package notion is a small client for the Notion pages and blocks API.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/ibeckermayer/x2notion/internal/blocks"
	"github.com/ibeckermayer/x2notion/internal/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"
	PageBaseURL    = "https://www.notion.so/"

	// MaxChildren is the most blocks one create or append request may carry
	MaxChildren = 100
	NameLimit   = 100
	SenderLimit = 200

	DefaultTitle  = "Twitter Post"
	DefaultSender = "Unknown"

	// Notion allows an average of three requests per second per integration
	defaultRPS = 3
)

// Page is a database row to create
type Page struct {
	Title    string
	URL      string
	Types    []string
	Sender   string
	PostDate time.Time
	SaveDate time.Time
	Children []types.Block
}

// CreatedPage identifies a page after creation
type CreatedPage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client talks to the Notion API. Page creation and block appends are sent once;
// property updates are idempotent and retried.
type Client struct {
	baseURL string
	version string
	creds   types.Credentials

	once    *retryablehttp.Client
	retried *retryablehttp.Client
	limiter *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, proxies)
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithVersion overrides the Notion-Version header
func WithVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithRateLimit sets the request rate; zero or negative disables limiting
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetry configures retries of idempotent requests
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retried.RetryMax = max
		c.retried.RetryWaitMin = waitMin
		c.retried.RetryWaitMax = waitMax
	}
}

// New creates a client for the given credentials
func New(creds types.Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		version: DefaultVersion,
		creds:   creds,
		once:    newHTTPClient(0),
		retried: newHTTPClient(3),
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithCredentials returns a client sharing transport and rate limit but
// authenticating as creds
func (c *Client) WithCredentials(creds types.Credentials) *Client {
	cp := *c
	cp.creds = creds
	return &cp
}

func newHTTPClient(retries int) *retryablehttp.Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = retries
	hc.Logger = leveledLogger{}
	// hand non-2xx responses back so the body can be reported verbatim
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	hc.HTTPClient.Timeout = 30 * time.Second
	return hc
}

// PageURL builds the viewable URL of a page from its id
func PageURL(id string) string {
	return PageBaseURL + strings.ReplaceAll(id, "-", "")
}

// CreatePage creates a database row with its content. Children beyond the first
// MaxChildren are appended in batches after the page exists.
func (c *Client) CreatePage(ctx context.Context, page Page) (*CreatedPage, error) {
	if err := c.creds.Validate(); err != nil {
		return nil, err
	}

	children, err := encodeBlocks(page.Children)
	if err != nil {
		return nil, fmt.Errorf("failed to encode blocks: %w", err)
	}
	first, rest := children, []map[string]any(nil)
	if len(children) > MaxChildren {
		first, rest = children[:MaxChildren], children[MaxChildren:]
	}

	payload := map[string]any{
		"parent":     map[string]any{"database_id": strings.ReplaceAll(c.creds.DatabaseID, "-", "")},
		"properties": encodeProperties(page),
		"children":   first,
	}

	var created CreatedPage
	if err := c.do(ctx, c.once, http.MethodPost, "/pages", payload, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("failed to create page: response carried no id")
	}
	created.URL = PageURL(created.ID)

	for len(rest) > 0 {
		n := min(len(rest), MaxChildren)
		if err := c.appendEncoded(ctx, created.ID, rest[:n]); err != nil {
			return &created, fmt.Errorf("failed to append children to %s: %w", created.ID, err)
		}
		rest = rest[n:]
	}

	log.Info().Str("component", "notion").Str("page", created.ID).Int("blocks", len(children)).Msg("created page")
	return &created, nil
}

// AppendChildren appends blocks to an existing block or page
func (c *Client) AppendChildren(ctx context.Context, blockID string, content []types.Block) error {
	if err := c.creds.Validate(); err != nil {
		return err
	}
	children, err := encodeBlocks(content)
	if err != nil {
		return fmt.Errorf("failed to encode blocks: %w", err)
	}
	for len(children) > 0 {
		n := min(len(children), MaxChildren)
		if err := c.appendEncoded(ctx, blockID, children[:n]); err != nil {
			return err
		}
		children = children[n:]
	}
	return nil
}

func (c *Client) appendEncoded(ctx context.Context, blockID string, children []map[string]any) error {
	return c.do(ctx, c.once, http.MethodPatch, "/blocks/"+blockID+"/children", map[string]any{"children": children}, nil)
}

// UpdateRichTextProperty replaces one rich-text property of a page
func (c *Client) UpdateRichTextProperty(ctx context.Context, pageID, property, text string) error {
	if c.creds.APIKey == "" {
		return &types.ValidationError{Field: "api_key", Message: "Notion API key not configured"}
	}
	payload := map[string]any{
		"properties": map[string]any{
			property: map[string]any{"rich_text": plainRichText(blocks.Truncate(text, blocks.MaxTextLength))},
		},
	}
	return c.do(ctx, c.retried, http.MethodPatch, "/pages/"+pageID, payload, nil)
}

func (c *Client) do(ctx context.Context, hc *retryablehttp.Client, method, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.version)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Notion API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &types.SubmissionError{Status: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
