// Package fetch retrieves page markup, statically via Colly and, when a page
// needs JavaScript, through a headless Chrome renderer.
package fetch

import (
	"context"
	"net/http"
	"time"
)

// Page is the outcome of fetching one URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
	Headless   bool
}

// Usable reports whether the page carries content worth parsing: the target
// answered 200 with a non-empty body.
func (p Page) Usable() bool {
	return p.StatusCode == http.StatusOK && len(p.Body) > 0
}

// Fetcher retrieves a URL without executing JavaScript.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Renderer retrieves a URL through a full browser engine.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (Page, error)
	Close()
}

// BrowserHeaders returns the fixed header set sent with every static
// request so traffic matches what the retail site expects from a browser.
func BrowserHeaders(userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "es-CL,es;q=0.9,en;q=0.8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("DNT", "1")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}

// DefaultUserAgent mirrors a current desktop Chrome build.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

// Timeouts applied when configuration leaves them zero.
const (
	DefaultTimeout           = 25 * time.Second
	DefaultNavigationTimeout = 35 * time.Second
	DefaultSelectorTimeout   = 8 * time.Second
)
