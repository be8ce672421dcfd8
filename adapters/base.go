package adapters

import (
	"context"
	"time"

	"pricewatch/internal/document"
	"pricewatch/internal/types"
	"pricewatch/utils"
)

const (
	defaultSettle = 3 * time.Second
	fashionSettle = 5 * time.Second
)

// PageLoader renders pages with either the headless browser or the plain
// HTTP client, depending on UseHeadlessBrowser.
type PageLoader struct {
	config        *types.Config
	logger        types.Logger
	httpClient    *utils.HTTPClient
	browserClient *utils.BrowserClient
}

// NewPageLoader creates a page loader with initialized HTTP and browser clients
func NewPageLoader(config *types.Config, logger types.Logger) *PageLoader {
	return &PageLoader{
		config:        config,
		logger:        logger,
		httpClient:    utils.NewHTTPClient(config, logger),
		browserClient: utils.NewBrowserClient(config, logger),
	}
}

// Render implements utils.Renderer
func (p *PageLoader) Render(ctx context.Context, url string, opts utils.RenderOptions) (document.Document, error) {
	if p.config.UseHeadlessBrowser {
		return p.browserClient.Render(ctx, url, opts)
	}
	return p.httpClient.Render(ctx, url, opts)
}

// HTTPClient returns the plain HTTP client, for JSON APIs
func (p *PageLoader) HTTPClient() *utils.HTTPClient {
	return p.httpClient
}

// Config returns the loader configuration
func (p *PageLoader) Config() *types.Config {
	return p.config
}

// Close cleans up resources
func (p *PageLoader) Close() {
	if p.httpClient != nil {
		p.httpClient.Close()
	}
}

// RenderOptions converts a store's render hints into renderer options
func RenderOptions(store *StoreConfig, generic GenericSelectors) utils.RenderOptions {
	hints := store.Render
	opts := utils.RenderOptions{
		Settle:  hints.Settle,
		WaitFor: hints.WaitFor,
	}
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
		if hints.Fashion {
			opts.Settle = fashionSettle
		}
	}
	if hints.Fashion {
		opts.ConsentSelectors = generic.ConsentSelectors
	}
	for _, c := range hints.Cookies {
		opts.Cookies = append(opts.Cookies, utils.RenderCookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}
	return opts
}
