// Package catalogapi queries a site's product lookup endpoint as an
// alternate taxonomy source when page scraping yields nothing.
package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/retailtools/catalogcheck/internal/classify"
)

// DefaultParams are the query parameter names tried, in order, when
// looking up an identifier.
var DefaultParams = []string{"partNumber", "sku", "ean"}

// Config controls the lookup client.
type Config struct {
	Enabled bool
	BaseURL string
	// Path is the lookup endpoint, e.g. "/api/catalog/product".
	Path      string
	Params    []string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
}

// Client wraps the lookup endpoint. The zero value is not usable; build
// one with New.
type Client struct {
	cfg    Config
	http   *resty.Client
	logger *zap.Logger
}

// New builds a lookup client, or returns nil when the endpoint is not
// configured. A nil *Client is safe to call and always misses.
func New(cfg Config, logger *zap.Logger) *Client {
	if !cfg.Enabled || cfg.BaseURL == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if len(cfg.Params) == 0 {
		cfg.Params = DefaultParams
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.APIKey != "" {
		client.SetHeader("X-Api-Key", cfg.APIKey)
	}

	return &Client{cfg: cfg, http: client, logger: logger}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() {
	if c == nil {
		return
	}
	_ = c.http.Close()
}

// Lookup tries each configured query parameter against the endpoint and
// returns the first category path found. Transport errors, non-2xx
// statuses and unparseable bodies are logged and treated as misses;
// nothing here is fatal to a run.
func (c *Client) Lookup(ctx context.Context, id string) ([]string, bool) {
	if c == nil || id == "" {
		return nil, false
	}
	for _, param := range c.cfg.Params {
		crumbs, err := c.query(ctx, param, id)
		if err != nil {
			c.logger.Debug("catalog api query failed",
				zap.String("param", param),
				zap.String("id", id),
				zap.Error(err),
			)
			continue
		}
		if len(crumbs) > 0 {
			return crumbs, true
		}
	}
	return nil, false
}

func (c *Client) query(ctx context.Context, param, id string) ([]string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(param, id).
		Get(c.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("lookup request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("lookup status %d", resp.StatusCode())
	}

	var decoded interface{}
	if err := json.Unmarshal(resp.Bytes(), &decoded); err != nil {
		return nil, fmt.Errorf("decode lookup body: %w", err)
	}
	return categoryPath(decoded), nil
}

// categoryKeys are tried on each object level, outermost first.
var categoryKeys = []string{"categories", "categoryPath", "category", "breadcrumb", "breadcrumbs"}

// categoryPath digs a category path out of an arbitrary lookup payload.
// A string value may itself carry separators ("Despensa > Arroz") and is
// split; a list may hold strings or objects with a name-like field.
func categoryPath(v interface{}) []string {
	switch val := v.(type) {
	case map[string]interface{}:
		for _, key := range categoryKeys {
			if inner, ok := val[key]; ok {
				if crumbs := categoryValue(inner); len(crumbs) > 0 {
					return crumbs
				}
			}
		}
		for _, key := range []string{"product", "item", "data", "result"} {
			if inner, ok := val[key]; ok {
				if crumbs := categoryPath(inner); len(crumbs) > 0 {
					return crumbs
				}
			}
		}
	case []interface{}:
		for _, item := range val {
			if crumbs := categoryPath(item); len(crumbs) > 0 {
				return crumbs
			}
		}
	}
	return nil
}

func categoryValue(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return classify.SplitPath(val)
	case []interface{}:
		var crumbs []string
		for _, item := range val {
			switch entry := item.(type) {
			case string:
				crumbs = append(crumbs, entry)
			case map[string]interface{}:
				for _, key := range []string{"name", "label", "title"} {
					if name, ok := entry[key].(string); ok && name != "" {
						crumbs = append(crumbs, name)
						break
					}
				}
			}
		}
		return crumbs
	}
	return nil
}
