package search

import (
	"context"
	"fmt"
	"net/url"
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
	defaultDuckDuckGoURL = "https://duckduckgo.com/"
	duckDuckGoSettle     = 6 * time.Second
	maxTitleLength       = 200
	minListingText       = 30
	minTitleLine         = 20
)

var (
	listingPrice = regexp.MustCompile(`[£$€]\s?(\d{1,3}(?:,\d{3})*\.\d{2})`)

	// merchant names as they appear in shopping cards, most specific first
	knownMerchants = []string{
		"Amazon UK", "Amazon", "eBay UK", "eBay", "Boots.com", "Boots",
		"ASOS", "Superdrug", "Tesco", "OnBuy.com", "OnBuy", "Argos",
		"John Lewis", "Currys", "Sainsburys", "Very", "Next",
	}

	filterListingText = []string{"Up to £", "Price -", "Low To High"}
)

// DuckDuckGo searches the DuckDuckGo shopping tab through a renderer
type DuckDuckGo struct {
	renderer utils.Renderer
	baseURL  string
	logger   types.Logger
}

// NewDuckDuckGo creates a DuckDuckGo shopping provider. An empty baseURL uses duckduckgo.com.
func NewDuckDuckGo(renderer utils.Renderer, baseURL string, logger types.Logger) *DuckDuckGo {
	if baseURL == "" {
		baseURL = defaultDuckDuckGoURL
	}
	return &DuckDuckGo{renderer: renderer, baseURL: baseURL, logger: logger}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// SearchURL returns the shopping results URL for query
func (d *DuckDuckGo) SearchURL(query string) string {
	return fmt.Sprintf("%s?q=%s&iar=shopping&iax=shopping&ia=shopping", d.baseURL, encodeQuery(query))
}

// Search implements Provider
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	searchURL := d.SearchURL(query)
	d.logger.Infof("DuckDuckGo shopping search for %q", query)

	doc, err := d.renderer.Render(ctx, searchURL, utils.RenderOptions{Settle: duckDuckGoSettle})
	if err != nil {
		return nil, fmt.Errorf("%w: duckduckgo: %v", types.ErrSearchFailed, err)
	}

	results := ParseDuckDuckGo(doc)
	d.logger.Debugf("DuckDuckGo returned %d shopping results", len(results))
	return results, nil
}

// ParseDuckDuckGo reads shopping cards out of a rendered results page. Cards
// are list items carrying a price, a link and enough text to hold a title.
func ParseDuckDuckGo(doc document.Document) []types.SearchResult {
	var results []types.SearchResult
	seen := make(map[string]bool)

	for _, li := range doc.All("li") {
		text := li.VisibleText()
		m := listingPrice.FindStringSubmatch(text)
		if m == nil || len(text) < minListingText || containsAny(text, filterListingText) {
			continue
		}

		link, ok := li.First("a[href]")
		if !ok {
			continue
		}
		href, _ := link.Attr("href")
		href = unwrapRedirect(document.Resolve(doc.URL(), href))
		if href == "" {
			continue
		}

		title := listingTitle(text)
		store := merchant(text)
		if store == "" {
			store = adapters.ResolveStore(href)
		}

		key := truncate(title, 30) + "|" + store
		if seen[key] {
			continue
		}
		seen[key] = true

		price, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}

		result := types.SearchResult{
			Title:      truncate(title, maxTitleLength),
			Price:      types.Float(price),
			StoreName:  store,
			ProductURL: href,
			Source:     "duckduckgo",
		}
		if img, ok := li.First("img[src]"); ok {
			src, _ := img.Attr("src")
			result.ImageURL = document.Resolve(doc.URL(), src)
		}
		results = append(results, result)
	}

	sortByPrice(results)
	return results
}

// listingTitle picks the first substantial line that is not a price or a
// shipping note, falling back to the first line
func listingTitle(text string) string {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) > minTitleLine && !strings.HasPrefix(line, "£") && !strings.HasPrefix(line, "$") &&
			!strings.HasPrefix(line, "€") && !strings.HasPrefix(line, "Free") {
			return line
		}
	}
	return strings.TrimSpace(lines[0])
}

func merchant(text string) string {
	for _, name := range knownMerchants {
		if strings.Contains(text, name) {
			return name
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func encodeQuery(q string) string {
	return strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
}
