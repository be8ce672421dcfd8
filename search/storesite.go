package search

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"pricewatch/adapters"
	"pricewatch/extractor"
	"pricewatch/internal/document"
	"pricewatch/internal/types"
	"pricewatch/utils"
)

const (
	storeSearchSettle = 4 * time.Second
	storeSearchWait   = `[class*="product"], [class*="search-result"], [class*="grid"]`
	priceTolerance    = 1.0
)

var (
	storeConsent = []string{
		"#onetrust-accept-btn-handler",
		`button[id*="accept"]`,
		`button[class*="accept"]`,
		`[class*="cookie"] button`,
		`[class*="consent"] button`,
	}

	// links that are never product pages
	ignoredLinkPatterns = []string{
		"onetrust.com", "cookielaw.org", "privacy", "consent",
		"facebook.com", "twitter.com", "instagram.com", "youtube.com", "google.com",
		"javascript:", "#",
		"/services/", "/book-an-appointment", "/store-locator", "/customer-service",
		"/contact", "/about", "/faq", "/help", "/login", "/register", "/cart",
		"/checkout", "/wishlist", "/account",
		"/products/sofas", "/products/chairs", "/products/tables",
		"/products/lighting", "/products/accessories",
		"/category", "/categories", "/collections",
	}

	productLinkPatterns = []string{
		"/product", "/p/", "/dp/", "/ip/", "/item",
		"/home-scents/", "/accessories/", "/bags/", "/clothing/", "/shoes/",
		"/jewellery/", "/gifts/", "/objects/",
	}

	productCards = `[class*="product"], [class*="Product"], [class*="card"], [class*="tile"], [class*="item"]`
	cardPriceEl  = `[class*="price"], [class*="Price"]`
)

// StoreSite finds a product on a store's own website using the search
// configuration in the store registry
type StoreSite struct {
	renderer utils.Renderer
	registry *adapters.Registry
	logger   types.Logger
}

// NewStoreSite creates a store-site search. A nil registry uses the embedded one.
func NewStoreSite(renderer utils.Renderer, registry *adapters.Registry, logger types.Logger) *StoreSite {
	if registry == nil {
		registry = adapters.DefaultRegistry()
	}
	return &StoreSite{renderer: renderer, registry: registry, logger: logger}
}

// FindProduct searches store for productName and returns the first product
// link. With a target price only a product card priced within one unit of
// it is accepted.
func (s *StoreSite) FindProduct(ctx context.Context, store, productName string, targetPrice *float64) (string, error) {
	site, err := s.registry.SearchSite(store)
	if err != nil {
		return "", err
	}

	searchURL := site.SearchURL(productName)
	s.logger.Infof("Searching %s for %q", site.Domain, productName)

	doc, err := s.renderer.Render(ctx, searchURL, utils.RenderOptions{
		Settle:           storeSearchSettle,
		WaitFor:          storeSearchWait,
		ConsentSelectors: storeConsent,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", types.ErrSearchFailed, site.Domain, err)
	}

	var link string
	if targetPrice != nil && *targetPrice > 0 {
		link = priceMatchedLink(doc, site.Domain, *targetPrice)
		if link == "" {
			s.logger.Debugf("No product priced near %.2f on %s", *targetPrice, site.Domain)
		}
	} else {
		link = firstProductLink(doc, site)
	}
	if link == "" {
		return "", fmt.Errorf("%w: no product found on %s", types.ErrNotFound, site.Domain)
	}
	return link, nil
}

func priceMatchedLink(doc document.Document, domain string, target float64) string {
	for _, card := range doc.All(productCards) {
		priceEl, ok := card.First(cardPriceEl)
		if !ok {
			continue
		}
		m := cardPrice.FindString(priceEl.Text())
		price, ok := extractor.CleanPrice(m)
		if !ok || math.Abs(price-target) > priceTolerance {
			continue
		}
		a, ok := card.First("a[href]")
		if !ok {
			continue
		}
		href, _ := a.Attr("href")
		if abs, ok := productLink(href, domain); ok {
			return abs
		}
	}
	return ""
}

func firstProductLink(doc document.Document, site *adapters.SearchSite) string {
	for _, a := range doc.All(site.ProductLinkSelector) {
		href, _ := a.Attr("href")
		if abs, ok := productLink(href, site.Domain); ok {
			return abs
		}
	}
	return ""
}

// productLink validates href as a product page on domain and makes it absolute
func productLink(href, domain string) (string, bool) {
	if !validProductURL(href, domain) {
		return "", false
	}
	switch {
	case strings.HasPrefix(href, "http"):
		return href, true
	case strings.HasPrefix(href, "//"):
		return "https:" + href, true
	}
	return "https://" + domain + href, true
}

func validProductURL(href, domain string) bool {
	if href == "" {
		return false
	}
	lower := strings.ToLower(href)
	if !strings.Contains(lower, strings.ToLower(domain)) && !strings.HasPrefix(href, "/") {
		return false
	}
	if containsAny(lower, ignoredLinkPatterns) {
		return false
	}
	if containsAny(lower, productLinkPatterns) {
		return true
	}
	return strings.Contains(lower, ".html") && !strings.Contains(lower, "/search")
}
