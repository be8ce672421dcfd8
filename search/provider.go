// Package search collects candidate listings for a product query from
// shopping-search backends and individual store websites.
package search

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pricewatch/internal/cache"
	"pricewatch/internal/types"
)

// Provider turns a text query into candidate listings
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]types.SearchResult, error)
}

var (
	brandQuotes = regexp.MustCompile(`['‘’]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// BuildQuery combines a brand and product description into a search query.
// The brand is prepended unless the description already starts with it.
func BuildQuery(brand, product string) string {
	brand = normalizeBrand(brand)
	product = strings.Join(strings.Fields(product), " ")
	if brand == "" || strings.Contains(strings.ToLower(product), strings.ToLower(brand)) {
		return product
	}
	return strings.TrimSpace(brand + " " + product)
}

func normalizeBrand(brand string) string {
	brand = brandQuotes.ReplaceAllString(brand, "")
	return strings.TrimSpace(spaces.ReplaceAllString(brand, " "))
}

// URLMatchesBrand reports whether rawURL's host contains the brand name with
// punctuation and spaces removed
func URLMatchesBrand(rawURL, brand string) bool {
	if rawURL == "" || brand == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	compact := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.ToLower(brand))
	return compact != "" && strings.Contains(strings.ToLower(u.Hostname()), compact)
}

// MultiProvider queries several providers concurrently and concatenates their
// results in provider order. It only fails when every provider fails.
type MultiProvider struct {
	providers []Provider
	logger    types.Logger
}

// NewMultiProvider creates a provider fanning out to providers
func NewMultiProvider(logger types.Logger, providers ...Provider) *MultiProvider {
	return &MultiProvider{providers: providers, logger: logger}
}

func (m *MultiProvider) Name() string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

// Search implements Provider
func (m *MultiProvider) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	if len(m.providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", types.ErrSearchFailed)
	}

	results := make([][]types.SearchResult, len(m.providers))
	errs := make([]error, len(m.providers))

	var g errgroup.Group
	for i, p := range m.providers {
		g.Go(func() error {
			found, err := p.Search(ctx, query)
			if err != nil {
				m.logger.Warnf("Search provider %s failed: %v", p.Name(), err)
				errs[i] = err
				return nil
			}
			m.logger.Debugf("Search provider %s returned %d results", p.Name(), len(found))
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()

	var merged []types.SearchResult
	failed := 0
	for i := range m.providers {
		if errs[i] != nil {
			failed++
			continue
		}
		merged = append(merged, results[i]...)
	}
	if failed == len(m.providers) {
		return nil, fmt.Errorf("%w: all %d providers failed: %v", types.ErrSearchFailed, failed, errs[0])
	}
	return merged, nil
}

// CachedProvider memoizes a provider's results per normalized query
type CachedProvider struct {
	provider Provider
	cache    *cache.Memory[[]types.SearchResult]
	ttl      time.Duration
	logger   types.Logger
}

// NewCachedProvider wraps provider with a TTL cache
func NewCachedProvider(provider Provider, c *cache.Memory[[]types.SearchResult], ttl time.Duration, logger types.Logger) *CachedProvider {
	return &CachedProvider{provider: provider, cache: c, ttl: ttl, logger: logger}
}

func (c *CachedProvider) Name() string {
	return c.provider.Name()
}

// Search implements Provider. Failures are not cached.
func (c *CachedProvider) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	key := c.provider.Name() + ":" + strings.ToLower(strings.Join(strings.Fields(query), " "))
	if cached, err := c.cache.Get(ctx, key); err == nil {
		c.logger.Debugf("Search cache hit for %q", query)
		return cached, nil
	}

	results, err := c.provider.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, results, c.ttl); err != nil {
		c.logger.Warnf("Failed to cache search results: %v", err)
	}
	return results, nil
}

// sortByPrice orders results cheapest first with unpriced results last
func sortByPrice(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Price, results[j].Price
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})
}

// unwrapRedirect extracts the target of Google ("/url?q=") and DuckDuckGo
// ("uddg=") click-tracking links
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	q := u.Query()
	if target := q.Get("uddg"); target != "" {
		return target
	}
	if strings.HasSuffix(u.Path, "/url") {
		if target := q.Get("q"); target != "" {
			return target
		}
		if target := q.Get("url"); target != "" {
			return target
		}
	}
	return href
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
