package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrRendererDisabled indicates headless rendering is off via configuration.
var ErrRendererDisabled = errors.New("renderer disabled")

// RendererConfig controls the headless fallback path.
type RendererConfig struct {
	Enabled           bool
	UserAgent         string
	NavigationTimeout time.Duration
	// WaitSelector is awaited best-effort after navigation so client-side
	// breadcrumbs have a chance to mount before the snapshot.
	WaitSelector    string
	SelectorTimeout time.Duration
	// CookieHeader is forwarded with every render of this run.
	CookieHeader string
	MaxParallel  int
}

// ChromedpRenderer implements Renderer with headless Chrome.
type ChromedpRenderer struct {
	cfg         RendererConfig
	allocator   context.Context
	allocCancel context.CancelFunc
	limiter     chan struct{}
	logger      *zap.Logger
}

// NewChromedpRenderer starts a Chrome allocator for one run.
func NewChromedpRenderer(cfg RendererConfig, logger *zap.Logger) (*ChromedpRenderer, error) {
	if !cfg.Enabled {
		return nil, ErrRendererDisabled
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.SelectorTimeout <= 0 {
		cfg.SelectorTimeout = DefaultSelectorTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromedpRenderer{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// Close shuts down the Chrome allocator.
func (r *ChromedpRenderer) Close() {
	if r == nil {
		return
	}
	r.allocCancel()
}

// Render navigates with JavaScript enabled and returns the DOM snapshot.
func (r *ChromedpRenderer) Render(ctx context.Context, rawURL string) (Page, error) {
	if r == nil {
		return Page{}, ErrRendererDisabled
	}
	if err := r.acquire(ctx); err != nil {
		return Page{}, err
	}
	defer r.release()

	tabCtx, cancelTab := chromedp.NewContext(r.allocator)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.cfg.NavigationTimeout)
	defer cancelTask()
	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	var finalURL string
	actions := []chromedp.Action{
		r.networkSetup(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return Page{}, fmt.Errorf("headless navigate %s: %w", rawURL, err)
	}

	r.awaitSelector(taskCtx)

	var html string
	if err := chromedp.Run(taskCtx,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return Page{}, fmt.Errorf("headless snapshot %s: %w", rawURL, err)
	}

	status, metaURL := meta.snapshot()
	if status == 0 {
		status = 200
	}
	if finalURL == "" {
		finalURL = metaURL
	}
	if finalURL == "" {
		finalURL = rawURL
	}

	r.logger.Debug("headless render completed",
		zap.String("url", rawURL),
		zap.String("final_url", finalURL),
		zap.Int("status", status),
		zap.Int("bytes", len(html)),
	)
	return Page{
		URL:        rawURL,
		FinalURL:   finalURL,
		StatusCode: status,
		Body:       []byte(html),
		Headless:   true,
	}, nil
}

// awaitSelector gives the breadcrumb container a bounded window to appear.
// Pages without one still get a snapshot, so the wait outcome is ignored.
func (r *ChromedpRenderer) awaitSelector(parent context.Context) {
	if r.cfg.WaitSelector == "" {
		return
	}
	waitCtx, cancel := context.WithTimeout(parent, r.cfg.SelectorTimeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(r.cfg.WaitSelector, chromedp.ByQuery)); err != nil {
		r.logger.Debug("wait selector not found", zap.String("selector", r.cfg.WaitSelector))
	}
}

func (r *ChromedpRenderer) networkSetup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetUserAgentOverride(r.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		if r.cfg.CookieHeader != "" {
			headers := network.Headers{"Cookie": r.cfg.CookieHeader}
			if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
				return fmt.Errorf("set cookie header: %w", err)
			}
		}
		return nil
	})
}

func (r *ChromedpRenderer) acquire(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	select {
	case r.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

func (r *ChromedpRenderer) release() {
	if r.limiter == nil {
		return
	}
	select {
	case <-r.limiter:
	default:
	}
}

// responseMeta records the first document response of a render. Events
// arrive on chromedp's listener goroutine, so reads and writes share a
// mutex.
type responseMeta struct {
	mu       sync.Mutex
	captured bool
	status   int
	url      string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev interface{}) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.captured {
		return
	}
	m.captured = true
	m.status = int(resp.Response.Status)
	m.url = resp.Response.URL
}

func (m *responseMeta) snapshot() (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.url
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
