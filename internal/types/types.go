package types

import "time"

// ScrapeTarget is a single extraction request
type ScrapeTarget struct {
	URL       string `json:"url"`
	StoreHint string `json:"store_hint,omitempty"`
}

// ExtractedProduct is the normalized record produced by the extraction cascade.
// Price and ImageURL are nil when every strategy for that field missed.
type ExtractedProduct struct {
	Name      string   `json:"name"`
	Price     *float64 `json:"price"`
	ImageURL  *string  `json:"image_url"`
	StoreName string   `json:"store_name"`
	SourceURL string   `json:"source_url"`
}

// ScrapeResult wraps an extraction outcome. A failed page load carries
// Success=false, an Error message and the best-effort store label only.
type ScrapeResult struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	StoreName string            `json:"store_name"`
	URL       string            `json:"url"`
	Product   *ExtractedProduct `json:"product,omitempty"`
}

// ProductIdentity is the matching key derived from a product name
type ProductIdentity struct {
	IdentifyingWords []string `json:"identifying_words"`
	ModelNumber      string   `json:"model_number,omitempty"`
	Variants         []string `json:"variants"`
}

// SearchResult is a candidate listing returned by a search provider
type SearchResult struct {
	Title      string   `json:"title"`
	Price      *float64 `json:"price"`
	StoreName  string   `json:"store_name"`
	ProductURL string   `json:"product_url"`
	ImageURL   string   `json:"image_url,omitempty"`
	Source     string   `json:"source,omitempty"`
}

// MatchCandidate is a search result that survived matching, priced against a reference
type MatchCandidate struct {
	SearchResult
	IsCheaper        bool     `json:"is_cheaper"`
	SavingsAmount    *float64 `json:"savings_amount,omitempty"`
	SavingsPercent   *float64 `json:"savings_percent,omitempty"`
	ExtraCost        *float64 `json:"extra_cost,omitempty"`
	ExtraCostPercent *float64 `json:"extra_cost_percent,omitempty"`
}

// AlternativesResult holds at most three ranked matches
type AlternativesResult struct {
	Alternatives []MatchCandidate `json:"alternatives"`
	HasBestPrice bool             `json:"has_best_price"`
}

// IdentityGuess is an externally supplied name/brand guess (vision model, barcode database)
type IdentityGuess struct {
	ItemName string `json:"item_name"`
	Brand    string `json:"brand,omitempty"`
	Source   string `json:"source,omitempty"`
	Barcode  string `json:"barcode,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Category string `json:"category,omitempty"`
	Quantity string `json:"quantity,omitempty"`
}

// TrackedItem is an item handed to the batch checker by its caller
type TrackedItem struct {
	ID           string   `json:"id"`
	URL          string   `json:"url"`
	CurrentPrice *float64 `json:"current_price"`
}

// PriceCheck is the per-item outcome of a batch price refresh
type PriceCheck struct {
	ItemID        string   `json:"item_id"`
	URL           string   `json:"url"`
	OldPrice      *float64 `json:"old_price"`
	NewPrice      *float64 `json:"new_price"`
	Changed       bool     `json:"changed"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// BatchSummary aggregates a batch price refresh
type BatchSummary struct {
	Checked int          `json:"checked"`
	Updated int          `json:"updated"`
	Errors  int          `json:"errors"`
	Items   []PriceCheck `json:"items"`
}

// Config holds the configuration for rendering and fetching
type Config struct {
	RequestDelay          time.Duration
	MaxRetries            int
	Timeout               time.Duration
	MaxConcurrentRequests int
	UseHeadlessBrowser    bool
	UserAgent             string
	MaxBodyBytes          int64
	RespectRobots         bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		RequestDelay:          2 * time.Second,
		MaxRetries:            3,
		Timeout:               45 * time.Second,
		MaxConcurrentRequests: 2,
		UseHeadlessBrowser:    true,
		UserAgent:             "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		MaxBodyBytes:          5 * 1024 * 1024,
		RespectRobots:         false,
	}
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to v
func String(v string) *string {
	return &v
}
