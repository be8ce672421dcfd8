package types

import "errors"

var (
	// ErrRenderFailed is returned when a page could not be loaded or rendered
	ErrRenderFailed = errors.New("failed to render page")

	// ErrInvalidURL is returned for URLs that cannot be fetched
	ErrInvalidURL = errors.New("invalid url")

	// ErrSearchFailed is returned when a search provider could not produce results
	ErrSearchFailed = errors.New("search failed")

	// ErrStoreNotConfigured is returned when a store has no search configuration
	ErrStoreNotConfigured = errors.New("store not configured for search")

	// ErrNotFound is returned when a lookup found nothing
	ErrNotFound = errors.New("not found")

	// ErrCacheMiss is returned when a key is not in the cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidBarcode is returned for codes that are not UPC/EAN shaped
	ErrInvalidBarcode = errors.New("invalid barcode")

	// ErrDisallowed is returned when robots.txt forbids a fetch
	ErrDisallowed = errors.New("disallowed by robots.txt")
)
