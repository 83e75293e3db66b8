package cmd

import (
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/retailtools/catalogcheck/internal/catalogapi"
	"github.com/retailtools/catalogcheck/internal/config"
	"github.com/retailtools/catalogcheck/internal/extract"
	"github.com/retailtools/catalogcheck/internal/fetch"
	"github.com/retailtools/catalogcheck/internal/logging"
	"github.com/retailtools/catalogcheck/internal/navigate"
	"github.com/retailtools/catalogcheck/internal/session"
	"github.com/retailtools/catalogcheck/internal/validator"
)

// pipelineParams override per-run pieces of the configuration.
type pipelineParams struct {
	cookies  session.Cookies
	delay    time.Duration
	headless bool
	useAPI   bool
}

// buildRunner assembles the full pipeline for one run. The returned
// cleanup releases the headless browser and the API client.
func buildRunner(cfg config.Config, logger *zap.Logger, p pipelineParams) (*validator.Runner, func(), error) {
	base, err := url.Parse(cfg.Site.BaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse base url: %w", err)
	}

	fetcher, err := fetch.NewCollyFetcher(fetch.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
		CookieURL: cfg.Site.BaseURL,
	}, p.cookies, logging.Named(logger, "fetch"))
	if err != nil {
		return nil, nil, fmt.Errorf("init fetcher: %w", err)
	}

	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	deps := validator.Deps{
		Fetcher:    fetcher,
		Navigator:  navigate.New(base, cfg.Site.ProductTokens),
		BaseURL:    cfg.Site.BaseURL,
		SearchPath: cfg.Site.SearchPath,
		Delay:      p.delay,
		Logger:     logging.Named(logger, "validator"),
	}

	strategies := extract.DefaultStrategies(cfg.Extract.DOMSelectors)
	if len(cfg.Extract.Strategies) > 0 {
		strategies, err = extract.FromNames(cfg.Extract.Strategies, cfg.Extract.DOMSelectors)
		if err != nil {
			return nil, nil, fmt.Errorf("configure extraction: %w", err)
		}
	}
	deps.Chain = extract.NewChain(logging.Named(logger, "extract"), strategies...)

	if p.headless {
		renderer, err := fetch.NewChromedpRenderer(fetch.RendererConfig{
			Enabled:           true,
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			WaitSelector:      cfg.Headless.WaitSelector,
			SelectorTimeout:   time.Duration(cfg.Headless.WaitTimeout) * time.Second,
			CookieHeader:      p.cookies.Header(),
			MaxParallel:       cfg.Headless.MaxParallel,
		}, logging.Named(logger, "headless"))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init renderer: %w", err)
		}
		cleanups = append(cleanups, renderer.Close)
		deps.Renderer = renderer
	}

	if p.useAPI {
		client := catalogapi.New(catalogapi.Config{
			Enabled:   cfg.CatalogAPI.Enabled,
			BaseURL:   cfg.CatalogAPI.BaseURL,
			Path:      cfg.CatalogAPI.Path,
			Params:    cfg.CatalogAPI.Params,
			APIKey:    cfg.CatalogAPI.APIKey,
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   time.Duration(cfg.CatalogAPI.TimeoutSeconds) * time.Second,
		}, logging.Named(logger, "catalogapi"))
		if client != nil {
			cleanups = append(cleanups, client.Close)
			deps.Lookup = client
		}
	}

	runner, err := validator.NewRunner(deps)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("build runner: %w", err)
	}
	return runner, cleanup, nil
}
