// Package matcher filters candidate listings from other stores down to the
// ones describing the same product and ranks them by price.
package matcher

import (
	"math"
	"sort"
	"strings"

	"pricewatch/identity"
	"pricewatch/internal/types"
)

// MaxAlternatives is the number of ranked matches returned
const MaxAlternatives = 3

// FindAlternatives keeps the candidates that match ref, sorts them by price
// (stable, so equal prices keep pool order) and returns the cheapest three
// priced against currentPrice. An empty result is not an error.
func FindAlternatives(ref types.ProductIdentity, currentPrice float64, currentStore string, pool []types.SearchResult) types.AlternativesResult {
	var matches []types.SearchResult
	for _, candidate := range pool {
		if Matches(ref, currentStore, candidate) {
			matches = append(matches, candidate)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return *matches[i].Price < *matches[j].Price
	})
	if len(matches) > MaxAlternatives {
		matches = matches[:MaxAlternatives]
	}

	result := types.AlternativesResult{
		Alternatives: make([]types.MatchCandidate, 0, len(matches)),
		HasBestPrice: true,
	}
	for _, m := range matches {
		result.Alternatives = append(result.Alternatives, price(m, currentPrice))
	}
	if len(matches) > 0 {
		cheapest := *matches[0].Price
		result.HasBestPrice = currentPrice > 0 && currentPrice <= cheapest
	}
	return result
}

// Matches reports whether candidate is a priced listing of the same product
// at a different store
func Matches(ref types.ProductIdentity, currentStore string, candidate types.SearchResult) bool {
	if SameStore(currentStore, candidate.StoreName) {
		return false
	}
	if candidate.Price == nil || *candidate.Price <= 0 {
		return false
	}

	title := apostrophes.Replace(strings.ToLower(candidate.Title))
	for _, word := range ref.IdentifyingWords {
		if !strings.Contains(title, word) {
			return false
		}
	}
	if ref.ModelNumber != "" && !strings.Contains(title, ref.ModelNumber) {
		return false
	}
	if len(ref.Variants) > 0 && !identity.ContainsAll(identity.Variants(candidate.Title), ref.Variants) {
		return false
	}
	return true
}

// identifying words are stripped of punctuation, so "levi's" must read "levis"
var apostrophes = strings.NewReplacer("'", "", "’", "")

// SameStore compares store labels by case-insensitive containment in either
// direction. An empty label never matches.
func SameStore(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func price(result types.SearchResult, currentPrice float64) types.MatchCandidate {
	candidate := types.MatchCandidate{SearchResult: result}
	if currentPrice <= 0 {
		return candidate
	}

	p := *result.Price
	diff := round2(math.Abs(currentPrice - p))
	pct := round2(math.Abs(currentPrice-p) / currentPrice * 100)
	if p < currentPrice {
		candidate.IsCheaper = true
		candidate.SavingsAmount = types.Float(diff)
		candidate.SavingsPercent = types.Float(pct)
	} else {
		candidate.ExtraCost = types.Float(diff)
		candidate.ExtraCostPercent = types.Float(pct)
	}
	return candidate
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
