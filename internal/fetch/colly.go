package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/retailtools/catalogcheck/internal/session"
)

// Config controls the static fetcher.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// CookieURL scopes the run's cookies; usually the site base URL.
	CookieURL string
}

// CollyFetcher implements Fetcher with a Colly collector. One fetcher is
// built per validation run so the run's cookies ride on every request.
type CollyFetcher struct {
	cfg     Config
	headers http.Header
	base    *colly.Collector
	cookies []*http.Cookie
	logger  *zap.Logger
}

// NewCollyFetcher builds a fetcher carrying the given run cookies.
func NewCollyFetcher(cfg Config, cookies session.Cookies, logger *zap.Logger) (*CollyFetcher, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	base.IgnoreRobotsTxt = true
	base.AllowURLRevisit = true
	base.WithTransport(cloudflarebp.AddCloudFlareByPass(newHTTPTransport(cfg.Timeout)))
	base.SetRequestTimeout(cfg.Timeout)

	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{Name: name, Value: value})
	}
	if len(httpCookies) > 0 && cfg.CookieURL != "" {
		if err := base.SetCookies(cfg.CookieURL, httpCookies); err != nil {
			return nil, fmt.Errorf("set run cookies: %w", err)
		}
	}

	return &CollyFetcher{
		cfg:     cfg,
		headers: BrowserHeaders(cfg.UserAgent),
		base:    base,
		cookies: httpCookies,
		logger:  logger,
	}, nil
}

// Fetch executes a single GET, following redirects, and returns the final
// page. Non-200 responses come back as pages the caller can inspect;
// transport failures come back as errors.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	collector := f.base.Clone()

	var (
		page     Page
		fetchErr error
		received bool
	)

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range f.headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		received = true
		page = Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			received = true
			page = Page{
				URL:        rawURL,
				FinalURL:   r.Request.URL.String(),
				StatusCode: r.StatusCode,
				Body:       append([]byte(nil), r.Body...),
			}
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return Page{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		// Colly surfaces non-2xx statuses as errors; the OnError hook has
		// already captured the page in that case, so only bail when there
		// is no response to hand back.
		if err != nil && !received {
			return Page{}, fmt.Errorf("visit %s: %w", rawURL, err)
		}
	}

	switch {
	case fetchErr != nil && !received:
		return Page{}, fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
	case !received:
		return Page{}, errors.New("fetch produced no response")
	}

	f.logger.Debug("static fetch completed",
		zap.String("url", rawURL),
		zap.String("final_url", page.FinalURL),
		zap.Int("status", page.StatusCode),
		zap.Int("bytes", len(page.Body)),
	)
	return page, nil
}

func newHTTPTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          64,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
