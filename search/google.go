package search

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pricewatch/adapters"
	"pricewatch/internal/document"
	"pricewatch/internal/types"
	"pricewatch/utils"
)

const (
	defaultGoogleURL = "https://www.google.com/search"
	googleSettle     = 3 * time.Second
)

var (
	// result containers, tried in order until one matches
	googleResultSelectors = []string{
		".sh-dgr__gr-auto",
		".sh-dlr__list-result",
		"[data-docid]",
		".sh-pr__product-results-grid > div",
		".KZmu8e",
	}
	googleFallbackLinks = `a[href*="shopping/product"], a[href*="url?q="]`

	googleTitle    = `h3, h4, [class*="title"], [class*="name"], .tAxDx, .Xjkr3b`
	googlePrice    = `[class*="price"], .a8Pemb, .kHxwFf, span[aria-label*="price"]`
	googleMerchant = `[class*="merchant"], [class*="store"], .aULzUe, .IuHnof`
	googleLink     = `a[href*="url?q="], a[href*="shopping/product"], a[href]`

	googleConsent = []string{`button[id*="accept"]`, `[aria-label*="Accept"]`}

	cardPrice = regexp.MustCompile(`[£$€]?\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`)
)

// GoogleShopping searches Google's shopping vertical through a renderer
type GoogleShopping struct {
	renderer utils.Renderer
	baseURL  string
	logger   types.Logger
}

// NewGoogleShopping creates a Google Shopping provider. An empty baseURL uses google.com.
func NewGoogleShopping(renderer utils.Renderer, baseURL string, logger types.Logger) *GoogleShopping {
	if baseURL == "" {
		baseURL = defaultGoogleURL
	}
	return &GoogleShopping{renderer: renderer, baseURL: baseURL, logger: logger}
}

func (g *GoogleShopping) Name() string { return "google-shopping" }

// SearchURL returns the shopping results URL for query
func (g *GoogleShopping) SearchURL(query string) string {
	return fmt.Sprintf("%s?q=%s&tbm=shop&hl=en", g.baseURL, encodeQuery(query))
}

// Search implements Provider
func (g *GoogleShopping) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	searchURL := g.SearchURL(query)
	g.logger.Infof("Google Shopping search for %q", query)

	doc, err := g.renderer.Render(ctx, searchURL, utils.RenderOptions{
		Settle:           googleSettle,
		ConsentSelectors: googleConsent,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: google shopping: %v", types.ErrSearchFailed, err)
	}

	results := ParseGoogleShopping(doc)
	g.logger.Debugf("Google Shopping returned %d results", len(results))
	return results, nil
}

// Preferred returns the cheapest result whose store contains store, or the
// cheapest overall when none does
func Preferred(results []types.SearchResult, store string) (types.SearchResult, bool) {
	if len(results) == 0 {
		return types.SearchResult{}, false
	}
	want := strings.ToLower(strings.TrimSpace(store))
	if want != "" {
		for _, r := range results {
			if strings.Contains(strings.ToLower(r.StoreName), want) {
				return r, true
			}
		}
	}
	return results[0], true
}

// ParseGoogleShopping reads product cards from a rendered Google Shopping page
func ParseGoogleShopping(doc document.Document) []types.SearchResult {
	var cards []document.Element
	for _, selector := range googleResultSelectors {
		if cards = doc.All(selector); len(cards) > 0 {
			break
		}
	}
	if len(cards) == 0 {
		cards = doc.All(googleFallbackLinks)
	}

	var results []types.SearchResult
	for _, card := range cards {
		result := types.SearchResult{Source: "google-shopping"}

		if el, ok := card.First(googleTitle); ok {
			result.Title = el.Text()
		}
		if el, ok := card.First(googlePrice); ok {
			if m := cardPrice.FindStringSubmatch(el.Text()); m != nil {
				if p, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
					result.Price = types.Float(p)
				}
			}
		}
		if el, ok := card.First(googleMerchant); ok {
			result.StoreName = el.Text()
		}
		if link := cardLink(doc.URL(), card); link != "" {
			result.ProductURL = link
		}
		if img, ok := card.First(`img[src*="http"]`); ok {
			result.ImageURL, _ = img.Attr("src")
		}

		if result.Title == "" || (result.ProductURL == "" && result.Price == nil) {
			continue
		}
		if result.StoreName == "" && result.ProductURL != "" {
			result.StoreName = adapters.ResolveStore(result.ProductURL)
		}
		results = append(results, result)
	}

	sortByPrice(results)
	return results
}

// cardLink returns the unwrapped merchant URL of a card, skipping links that
// stay on google.com. Cards that are themselves anchors are read directly.
func cardLink(base string, card document.Element) string {
	var href string
	if card.Tag() == "a" {
		href, _ = card.Attr("href")
	} else if el, ok := card.First(googleLink); ok {
		href, _ = el.Attr("href")
	}
	if href == "" {
		return ""
	}
	href = unwrapRedirect(document.Resolve(base, href))
	if strings.Contains(href, "google.com") {
		return ""
	}
	return href
}
