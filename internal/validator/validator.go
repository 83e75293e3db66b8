package validator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/retailtools/catalogcheck/internal/classify"
	"github.com/retailtools/catalogcheck/internal/extract"
	"github.com/retailtools/catalogcheck/internal/fetch"
	"github.com/retailtools/catalogcheck/internal/metrics"
	"github.com/retailtools/catalogcheck/internal/navigate"
	"github.com/retailtools/catalogcheck/internal/sku"
)

// CategoryLookup is the alternate taxonomy source consulted when page
// scraping yields nothing.
type CategoryLookup interface {
	Lookup(ctx context.Context, id string) ([]string, bool)
}

// Deps wires a Runner. Renderer and Lookup are optional; a nil Clock
// falls back to the system clock.
type Deps struct {
	Fetcher   fetch.Fetcher
	Renderer  fetch.Renderer
	Navigator *navigate.Navigator
	Chain     *extract.Chain
	Lookup    CategoryLookup
	// SearchPath is a format string with one %s for the escaped query,
	// resolved against BaseURL, e.g. "/busca?Ntt=%s".
	BaseURL    string
	SearchPath string
	// Delay is the politeness pause between identifiers.
	Delay  time.Duration
	Clock  Clock
	Logger *zap.Logger
}

// Runner drives the pipeline for a batch of identifiers, strictly one at
// a time so the target site never sees concurrent traffic from a run.
type Runner struct {
	deps    Deps
	limiter *rate.Limiter
	logger  *zap.Logger
	clock   Clock
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewRunner validates the wiring and builds a Runner.
func NewRunner(deps Deps) (*Runner, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("runner needs a fetcher")
	}
	if deps.Navigator == nil {
		return nil, fmt.Errorf("runner needs a navigator")
	}
	if deps.Chain == nil {
		return nil, fmt.Errorf("runner needs an extraction chain")
	}
	if deps.BaseURL == "" {
		return nil, fmt.Errorf("runner needs a base url")
	}
	if deps.SearchPath == "" || !strings.Contains(deps.SearchPath, "%s") {
		return nil, fmt.Errorf("search path %q must carry one %%s query slot", deps.SearchPath)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}

	var limiter *rate.Limiter
	if deps.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(deps.Delay), 1)
	}

	return &Runner{
		deps:    deps,
		limiter: limiter,
		logger:  deps.Logger,
		clock:   deps.Clock,
	}, nil
}

// Run processes identifiers in input order with a politeness pause
// between them. hook, when non-nil, receives each row as it completes.
// A canceled context stops the batch; rows already produced are
// returned along with the context error.
func (r *Runner) Run(ctx context.Context, skus []string, hook func(Result)) ([]Result, error) {
	results := make([]Result, 0, len(skus))
	for _, raw := range skus {
		// the limiter starts with one token, so the first identifier goes
		// out immediately and each later one waits out the delay
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return results, fmt.Errorf("politeness wait: %w", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.Process(ctx, raw)
		results = append(results, res)
		if hook != nil {
			hook(res)
		}
	}
	return results, nil
}

// Process runs the full pipeline for one identifier. Every outcome is a
// row; scrape failures degrade to a not-found row rather than an error.
func (r *Runner) Process(ctx context.Context, raw string) Result {
	start := r.clock.Now()
	candidates := sku.Candidates(raw)

	var fallback Result
	for _, candidate := range candidates {
		res, found := r.processCandidate(ctx, raw, candidate)
		if found {
			return r.finish(res, start)
		}
		// remember the best losing row: one with a page beats one without
		if fallback.SKU == "" || (fallback.URL == "" && res.URL != "") {
			fallback = res
		}
	}

	if r.deps.Lookup != nil {
		for _, candidate := range candidates {
			crumbs, ok := r.deps.Lookup.Lookup(ctx, candidate)
			if !ok {
				continue
			}
			clean, onlyNoise := classify.Clean(crumbs)
			return r.finish(Result{
				SKU:         raw,
				Cataloged:   classify.Cataloged(clean),
				RawCrumbs:   crumbs,
				CleanCrumbs: clean,
				Source:      SourceAPI,
				Mode:        ModeAPI,
				Observation: classify.Observation(clean, onlyNoise),
			}, start)
		}
	}

	if fallback.SKU == "" {
		fallback = notFound(raw)
	}
	return r.finish(fallback, start)
}

// processCandidate resolves one candidate to a product page and rules on
// it. found is true when the page yielded any taxonomy labels at all;
// the candidate loop stops at the first such page.
func (r *Runner) processCandidate(ctx context.Context, raw, candidate string) (Result, bool) {
	page, mode, ok := r.productPage(ctx, candidate)
	if !ok {
		return notFound(raw), false
	}

	crumbs, tag := r.deps.Chain.Extract(page.Body)
	if len(crumbs) == 0 && mode == ModeHTTP && r.deps.Renderer != nil && fetch.NeedsJS(page.Body) {
		if rendered, err := r.deps.Renderer.Render(ctx, pageURL(page)); err == nil && rendered.Usable() {
			metrics.ObserveFetch(ModeHeadless, rendered.StatusCode)
			page = rendered
			mode = ModeHeadless
			crumbs, tag = r.deps.Chain.Extract(page.Body)
		}
	}

	clean, onlyNoise := classify.Clean(crumbs)
	res := Result{
		SKU:         raw,
		Cataloged:   classify.Cataloged(clean),
		RawCrumbs:   crumbs,
		CleanCrumbs: clean,
		Source:      tag,
		URL:         pageURL(page),
		Mode:        mode,
		Observation: classify.Observation(clean, onlyNoise),
		BodyLen:     len(page.Body),
	}
	return res, len(crumbs) > 0
}

// productPage finds the product detail page for a candidate: search the
// site, then either the search redirected straight to the product or the
// first product link on the results page is followed.
func (r *Runner) productPage(ctx context.Context, candidate string) (fetch.Page, string, bool) {
	searchURL := r.searchURL(candidate)

	search, mode, ok := r.fetchWithFallback(ctx, searchURL)
	if !ok {
		return fetch.Page{}, ModeNone, false
	}
	if r.deps.Navigator.IsProductURL(search.FinalURL) {
		return search, mode, true
	}

	productURL := r.deps.Navigator.FirstProductURL(search.Body)
	if productURL == "" && mode == ModeHTTP && r.deps.Renderer != nil && fetch.NeedsJS(search.Body) {
		rendered, err := r.deps.Renderer.Render(ctx, searchURL)
		if err == nil && rendered.Usable() {
			metrics.ObserveFetch(ModeHeadless, rendered.StatusCode)
			if r.deps.Navigator.IsProductURL(rendered.FinalURL) {
				return rendered, ModeHeadless, true
			}
			productURL = r.deps.Navigator.FirstProductURL(rendered.Body)
		}
	}
	if productURL == "" {
		r.logger.Debug("no product link on results page",
			zap.String("candidate", candidate),
			zap.String("search_url", searchURL),
		)
		return fetch.Page{}, ModeNone, false
	}

	return r.fetchWithFallback(ctx, productURL)
}

// fetchWithFallback tries the static fetcher and degrades to the
// headless renderer when the static path produced no usable page.
func (r *Runner) fetchWithFallback(ctx context.Context, rawURL string) (fetch.Page, string, bool) {
	page, err := r.deps.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		r.logger.Debug("static fetch failed", zap.String("url", rawURL), zap.Error(err))
	} else {
		metrics.ObserveFetch(ModeHTTP, page.StatusCode)
	}
	if err == nil && page.Usable() {
		return page, ModeHTTP, true
	}
	if r.deps.Renderer == nil {
		return fetch.Page{}, ModeNone, false
	}
	rendered, err := r.deps.Renderer.Render(ctx, rawURL)
	if err != nil {
		r.logger.Debug("headless fetch failed", zap.String("url", rawURL), zap.Error(err))
		return fetch.Page{}, ModeNone, false
	}
	metrics.ObserveFetch(ModeHeadless, rendered.StatusCode)
	if !rendered.Usable() {
		return fetch.Page{}, ModeNone, false
	}
	return rendered, ModeHeadless, true
}

func (r *Runner) searchURL(candidate string) string {
	base := strings.TrimRight(r.deps.BaseURL, "/")
	return base + fmt.Sprintf(r.deps.SearchPath, url.QueryEscape(candidate))
}

func (r *Runner) finish(res Result, start time.Time) Result {
	elapsed := r.clock.Now().Sub(start)
	metrics.ObserveLookup(res.Mode, res.Source, res.Cataloged, elapsed)
	r.logger.Info("identifier processed",
		zap.String("sku", res.SKU),
		zap.Bool("cataloged", res.Cataloged),
		zap.String("source", res.Source),
		zap.String("mode", res.Mode),
		zap.String("path", res.CleanPath()),
		zap.Duration("elapsed", elapsed),
	)
	return res
}

func notFound(raw string) Result {
	return Result{
		SKU:         raw,
		Source:      extract.TagNone,
		Mode:        ModeNone,
		Observation: classify.ObsNotFound,
	}
}

func pageURL(p fetch.Page) string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}
