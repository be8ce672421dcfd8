package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"pricewatch/adapters"
	"pricewatch/internal/document"
)

const (
	// MaxPrice is the exclusive upper bound for a plausible price
	MaxPrice = 100000

	minTextPrice = 1
	maxTextPrice = 10000
)

var (
	nonPriceChars = regexp.MustCompile(`[^0-9.,]`)
	pricePattern  = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?`)
	commaDecimal  = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})*,\d{2}$`)

	currencyAmount = regexp.MustCompile(`[$£€]\s*(\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?)`)

	inlineOfferPrice = regexp.MustCompile(`"@type"\s*:\s*"Offer"[^}]*"price"\s*:\s*"?(\d+(?:\.\d+)?)"?`)
	inlineGBPPrice   = regexp.MustCompile(`"priceCurrency"\s*:\s*"GBP"[^}]*"price"\s*:\s*"?(\d+(?:\.\d+)?)"?`)
)

// CleanPrice parses the first plausible amount out of a price string such as
// "£1,249.99" or "Now $49.99". Amounts outside (0, MaxPrice) are rejected.
func CleanPrice(raw string) (float64, bool) {
	cleaned := nonPriceChars.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0, false
	}

	if commaDecimal.MatchString(cleaned) {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	match := pricePattern.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil || !validPrice(price) {
		return 0, false
	}
	return price, true
}

func validPrice(p float64) bool {
	return p > 0 && p < MaxPrice
}

func priceStrategies(store *adapters.StoreConfig, generic adapters.GenericSelectors) []Strategy[float64] {
	var strategies []Strategy[float64]
	if store.StructuredDataPriority {
		strategies = append(strategies,
			Strategy[float64]{Name: "jsonld-priority", Run: jsonLDPrice},
			Strategy[float64]{Name: "inline-offer", Run: inlineScriptPrice},
		)
	}
	return append(strategies,
		Strategy[float64]{Name: "store-selectors", Run: selectorPrice(store.PriceSelectors)},
		Strategy[float64]{Name: "generic-selectors", Run: selectorPrice(generic.PriceSelectors)},
		Strategy[float64]{Name: "visible-text", Run: visibleTextPrice},
		Strategy[float64]{Name: "meta", Run: metaPrice},
		Strategy[float64]{Name: "jsonld", Run: jsonLDPrice},
	)
}

func selectorPrice(selectors []string) func(document.Document) (float64, bool) {
	return func(doc document.Document) (float64, bool) {
		for _, selector := range selectors {
			text, ok := doc.Text(selector)
			if !ok {
				continue
			}
			if price, ok := CleanPrice(text); ok {
				return price, true
			}
		}
		return 0, false
	}
}

// inlineScriptPrice looks for schema.org offers serialized inside arbitrary scripts
func inlineScriptPrice(doc document.Document) (float64, bool) {
	html := doc.HTML()
	for _, pattern := range []*regexp.Regexp{inlineOfferPrice, inlineGBPPrice} {
		m := pattern.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		if price, err := strconv.ParseFloat(m[1], 64); err == nil && validPrice(price) {
			return price, true
		}
	}
	return 0, false
}

// visibleTextPrice takes the first currency amount on the page in a sane band
func visibleTextPrice(doc document.Document) (float64, bool) {
	for _, m := range currencyAmount.FindAllString(doc.VisibleText(), -1) {
		price, ok := CleanPrice(m)
		if ok && price >= minTextPrice && price <= maxTextPrice {
			return price, true
		}
	}
	return 0, false
}

func metaPrice(doc document.Document) (float64, bool) {
	for _, selector := range []string{
		`meta[property="product:price:amount"]`,
		`meta[property="og:price:amount"]`,
	} {
		if content, ok := doc.Attr(selector, "content"); ok {
			if price, ok := CleanPrice(content); ok {
				return price, true
			}
		}
	}
	return 0, false
}
