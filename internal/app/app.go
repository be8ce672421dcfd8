// Package app wires the extraction, search and comparison components from
// configuration. Both binaries build their dependencies through it.
package app

import (
	"fmt"

	"pricewatch/adapters"
	"pricewatch/compare"
	"pricewatch/extractor"
	"pricewatch/internal/cache"
	"pricewatch/internal/config"
	"pricewatch/internal/types"
	"pricewatch/oracle"
	"pricewatch/search"
	"pricewatch/utils"
)

// App holds the wired components
type App struct {
	Config    *config.Config
	Loader    *adapters.PageLoader
	Registry  *adapters.Registry
	Extractor *extractor.Extractor
	Search    search.Provider
	Oracle    *oracle.BarcodeOracle
	Comparer  *compare.Service
	Batch     *extractor.BatchChecker

	oracleClient *utils.HTTPClient
	searchCache  *cache.Memory[[]types.SearchResult]
}

// New builds the component graph for cfg
func New(cfg *config.Config, logger types.Logger) (*App, error) {
	settings := cfg.ScrapeSettings()
	loader := adapters.NewPageLoader(settings, logger)
	registry := adapters.DefaultRegistry()

	providers, err := buildProviders(cfg.Search, loader, logger)
	if err != nil {
		loader.Close()
		return nil, err
	}

	searchCache := cache.NewMemory[[]types.SearchResult](cfg.Cache.CleanupInterval)
	provider := search.NewCachedProvider(search.NewMultiProvider(logger, providers...), searchCache, cfg.Cache.TTL, logger)

	// barcode lookups fan out in parallel and must not queue behind the page limiter
	oracleSettings := *settings
	oracleSettings.RequestDelay = 0
	oracleClient := utils.NewHTTPClient(&oracleSettings, logger)
	barcodes := oracle.NewBarcodeOracle(oracleClient, oracle.Endpoints{
		UPCItemDB:         cfg.Oracle.UPCItemDBURL,
		OpenFoodFacts:     cfg.Oracle.OpenFoodFactsURL,
		OpenBeautyFacts:   cfg.Oracle.OpenBeautyFactsURL,
		OpenProductsFacts: cfg.Oracle.OpenProductsFactsURL,
	}, logger)

	ext := extractor.New(loader, registry, logger)
	storeSite := search.NewStoreSite(loader, registry, logger)

	return &App{
		Config:       cfg,
		Loader:       loader,
		Registry:     registry,
		Extractor:    ext,
		Search:       provider,
		Oracle:       barcodes,
		Comparer:     compare.NewService(ext, provider, barcodes, storeSite, logger),
		Batch:        extractor.NewBatchChecker(ext, cfg.Batch.Delay, logger),
		oracleClient: oracleClient,
		searchCache:  searchCache,
	}, nil
}

func buildProviders(cfg config.SearchConfig, loader *adapters.PageLoader, logger types.Logger) ([]search.Provider, error) {
	var providers []search.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "duckduckgo":
			providers = append(providers, search.NewDuckDuckGo(loader, cfg.DuckDuckGoURL, logger))
		case "google":
			providers = append(providers, search.NewGoogleShopping(loader, cfg.GoogleURL, logger))
		case "searxng":
			providers = append(providers, search.NewSearXNG(loader.HTTPClient(), cfg.SearXNGURL, logger))
		default:
			return nil, fmt.Errorf("unknown search provider %q", name)
		}
	}
	return providers, nil
}

// Close releases clients and stops the cache janitor
func (a *App) Close() {
	a.searchCache.Close()
	a.oracleClient.Close()
	a.Loader.Close()
}
