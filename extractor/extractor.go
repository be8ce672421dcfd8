// Package extractor resolves a product's name, price and image from a
// rendered retail page. Each field runs its own ordered list of strategies
// and the first validated value wins.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"pricewatch/adapters"
	"pricewatch/internal/document"
	"pricewatch/internal/types"
	"pricewatch/utils"
)

// Extractor loads product pages and runs the field cascade over them
type Extractor struct {
	renderer utils.Renderer
	registry *adapters.Registry
	logger   types.Logger
}

// New creates an extractor. A nil registry uses the embedded store registry.
func New(renderer utils.Renderer, registry *adapters.Registry, logger types.Logger) *Extractor {
	if registry == nil {
		registry = adapters.DefaultRegistry()
	}
	return &Extractor{
		renderer: renderer,
		registry: registry,
		logger:   logger,
	}
}

// Extract renders rawURL and extracts the product on it. Field misses are
// not errors; only a page that cannot be loaded gives Success=false.
func (e *Extractor) Extract(ctx context.Context, rawURL string) *types.ScrapeResult {
	return e.ExtractTarget(ctx, types.ScrapeTarget{URL: rawURL})
}

// ExtractTarget is Extract with an optional store label overriding URL resolution
func (e *Extractor) ExtractTarget(ctx context.Context, target types.ScrapeTarget) *types.ScrapeResult {
	rawURL := strings.TrimSpace(target.URL)
	store := target.StoreHint
	if store == "" {
		store = e.registry.ResolveStore(rawURL)
	}

	if err := checkURL(rawURL); err != nil {
		return failure(rawURL, store, err)
	}

	e.logger.Infof("Extracting %s (store: %s)", rawURL, store)
	config := e.registry.Store(store)

	doc, err := e.renderer.Render(ctx, rawURL, adapters.RenderOptions(config, e.registry.Generic()))
	if err != nil {
		e.logger.Warnf("Failed to load %s: %v", rawURL, err)
		return failure(rawURL, store, err)
	}

	product := e.ExtractDocument(doc, store)
	product.SourceURL = rawURL
	return &types.ScrapeResult{
		Success:   true,
		StoreName: store,
		URL:       rawURL,
		Product:   product,
	}
}

// ExtractPrice is a price-only refresh of rawURL
func (e *Extractor) ExtractPrice(ctx context.Context, rawURL string) (*float64, error) {
	result := e.Extract(ctx, rawURL)
	if !result.Success {
		return nil, errors.New(result.Error)
	}
	return result.Product.Price, nil
}

// ExtractDocument runs the price, name and image cascades over an already
// rendered document for the given store label
func (e *Extractor) ExtractDocument(doc document.Document, store string) *types.ExtractedProduct {
	config := e.registry.Store(store)
	generic := e.registry.Generic()

	product := &types.ExtractedProduct{
		StoreName: store,
		SourceURL: doc.URL(),
	}

	if price, source, ok := firstSuccess(doc, priceStrategies(config, generic)); ok {
		product.Price = types.Float(price)
		e.logger.Debugf("Price %.2f from %s", price, source)
	} else {
		e.logger.Debugf("No price found on %s", doc.URL())
	}

	name, source := resolveName(doc, nameStrategies(config, generic))
	product.Name = name
	e.logger.Debugf("Name %q from %s", name, source)

	if src, source, ok := firstSuccess(doc, imageStrategies(config, generic)); ok {
		product.ImageURL = types.String(src)
		e.logger.Debugf("Image %s from %s", src, source)
	}

	return product
}

func checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", types.ErrInvalidURL, rawURL)
	}
	return nil
}

func failure(rawURL, store string, err error) *types.ScrapeResult {
	return &types.ScrapeResult{
		Success:   false,
		Error:     err.Error(),
		StoreName: store,
		URL:       rawURL,
	}
}
