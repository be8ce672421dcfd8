package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"pricewatch/adapters"
	"pricewatch/extractor"
	"pricewatch/internal/types"
)

// JSONGetter fetches and decodes a JSON document
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v interface{}) error
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
		ImgSrc  string `json:"img_src"`
		Engine  string `json:"engine"`
	} `json:"results"`
}

// SearXNG queries a SearXNG instance's JSON API. Listings are kept only when
// a price can be read from their snippet or title.
type SearXNG struct {
	client  JSONGetter
	baseURL string
	logger  types.Logger
}

// NewSearXNG creates a SearXNG provider for the instance at baseURL
func NewSearXNG(client JSONGetter, baseURL string, logger types.Logger) *SearXNG {
	return &SearXNG{client: client, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

func (s *SearXNG) Name() string { return "searxng" }

// Search implements Provider
func (s *SearXNG) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("%w: searxng base url not configured", types.ErrSearchFailed)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	endpoint := s.baseURL + "/search?" + params.Encode()

	var resp searxngResponse
	if err := s.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("%w: searxng: %v", types.ErrSearchFailed, err)
	}

	var results []types.SearchResult
	for _, r := range resp.Results {
		if r.URL == "" || r.Title == "" {
			continue
		}
		price, ok := snippetPrice(r.Content)
		if !ok {
			price, ok = snippetPrice(r.Title)
		}
		if !ok {
			continue
		}
		results = append(results, types.SearchResult{
			Title:      truncate(strings.TrimSpace(r.Title), maxTitleLength),
			Price:      types.Float(price),
			StoreName:  adapters.ResolveStore(r.URL),
			ProductURL: r.URL,
			ImageURL:   r.ImgSrc,
			Source:     "searxng",
		})
	}
	s.logger.Debugf("SearXNG returned %d priced results out of %d", len(results), len(resp.Results))
	return results, nil
}

func snippetPrice(text string) (float64, bool) {
	m := listingPrice.FindString(text)
	if m == "" {
		return 0, false
	}
	return extractor.CleanPrice(m)
}
