// Package compare ties extraction, identity, search and matching together:
// given a product page, a name guess or a barcode it finds the cheapest
// equivalent listings at other stores.
package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pricewatch/extractor"
	"pricewatch/identity"
	"pricewatch/internal/types"
	"pricewatch/matcher"
	"pricewatch/search"
)

// ProductExtractor loads and extracts a product page
type ProductExtractor interface {
	Extract(ctx context.Context, rawURL string) *types.ScrapeResult
}

// BarcodeLookup turns a barcode into an identity guess
type BarcodeLookup interface {
	Lookup(ctx context.Context, code string) (*types.IdentityGuess, error)
}

// LinkFinder locates a product page on a store's own site
type LinkFinder interface {
	FindProduct(ctx context.Context, store, productName string, targetPrice *float64) (string, error)
}

// Request describes the product being compared
type Request struct {
	Name         string   `json:"name"`
	Brand        string   `json:"brand,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	CurrentStore string   `json:"current_store,omitempty"`
}

// Comparison is the outcome of a price comparison
type Comparison struct {
	Product  *types.ExtractedProduct `json:"product,omitempty"`
	Guess    *types.IdentityGuess    `json:"guess,omitempty"`
	Identity types.ProductIdentity   `json:"identity"`
	Query    string                  `json:"query"`
	types.AlternativesResult
}

// Service runs comparisons. The oracle and link finder are optional.
type Service struct {
	extractor ProductExtractor
	provider  search.Provider
	oracle    BarcodeLookup
	links     LinkFinder
	logger    types.Logger
}

// NewService creates a comparison service
func NewService(extractor ProductExtractor, provider search.Provider, oracle BarcodeLookup, links LinkFinder, logger types.Logger) *Service {
	return &Service{
		extractor: extractor,
		provider:  provider,
		oracle:    oracle,
		links:     links,
		logger:    logger,
	}
}

// CompareURL extracts the product at rawURL and compares it against other stores
func (s *Service) CompareURL(ctx context.Context, rawURL, brand string) (*Comparison, error) {
	result := s.extractor.Extract(ctx, rawURL)
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", types.ErrRenderFailed, result.Error)
	}
	product := result.Product
	if product.Name == "" || product.Name == extractor.UnknownProduct {
		return nil, fmt.Errorf("%w: no product name on %s", types.ErrNotFound, rawURL)
	}

	comparison, err := s.Compare(ctx, Request{
		Name:         product.Name,
		Brand:        brand,
		CurrentPrice: product.Price,
		CurrentStore: product.StoreName,
	})
	if err != nil {
		return nil, err
	}
	comparison.Product = product
	return comparison, nil
}

// CompareGuess compares an externally identified product, such as a vision
// model's guess from a photo
func (s *Service) CompareGuess(ctx context.Context, guess types.IdentityGuess, currentPrice *float64, currentStore string) (*Comparison, error) {
	name := identity.FromGuess(guess)
	if name == "" {
		return nil, fmt.Errorf("%w: empty item name", types.ErrNotFound)
	}
	comparison, err := s.Compare(ctx, Request{
		Name:         name,
		Brand:        guess.Brand,
		CurrentPrice: currentPrice,
		CurrentStore: currentStore,
	})
	if err != nil {
		return nil, err
	}
	comparison.Guess = &guess
	return comparison, nil
}

// CompareBarcode identifies a barcode through the oracle and compares the result
func (s *Service) CompareBarcode(ctx context.Context, code string, currentPrice *float64, currentStore string) (*Comparison, error) {
	if s.oracle == nil {
		return nil, errors.New("barcode lookup is not configured")
	}
	guess, err := s.oracle.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.CompareGuess(ctx, *guess, currentPrice, currentStore)
}

// Compare searches for req and ranks the matching listings
func (s *Service) Compare(ctx context.Context, req Request) (*Comparison, error) {
	ref := identity.Derive(req.Name)
	query := search.BuildQuery(req.Brand, req.Name)
	s.logger.Infof("Comparing %q (words: %v, model: %q, variants: %v)", query, ref.IdentifyingWords, ref.ModelNumber, ref.Variants)

	results, err := s.provider.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	var current float64
	if req.CurrentPrice != nil {
		current = *req.CurrentPrice
	}
	alternatives := matcher.FindAlternatives(ref, current, req.CurrentStore, results)
	s.fillLinks(ctx, alternatives.Alternatives)

	s.logger.Infof("Found %d alternatives from %d results for %q", len(alternatives.Alternatives), len(results), query)
	return &Comparison{
		Identity:           ref,
		Query:              query,
		AlternativesResult: alternatives,
	}, nil
}

// fillLinks looks up store-site product pages for alternatives whose search
// result carried no usable link. Misses leave the link empty.
func (s *Service) fillLinks(ctx context.Context, alternatives []types.MatchCandidate) {
	if s.links == nil {
		return
	}
	for i := range alternatives {
		alt := &alternatives[i]
		if strings.TrimSpace(alt.ProductURL) != "" {
			continue
		}
		link, err := s.links.FindProduct(ctx, alt.StoreName, alt.Title, alt.Price)
		if err != nil {
			s.logger.Debugf("No store-site link for %s at %s: %v", alt.Title, alt.StoreName, err)
			continue
		}
		alt.ProductURL = link
	}
}
