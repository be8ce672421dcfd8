// Package identity derives a comparable product identity from a free-text
// product name: the leading identifying words, an optional model number and
// the set of size/quantity variants the name describes.
package identity

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pricewatch/internal/types"
)

const maxIdentifyingWords = 2

// genericWords never identify a product on their own
var genericWords = toSet(
	// connectives
	"the", "and", "or", "with", "for", "of", "in", "on", "by", "to", "from", "at",
	"new", "pack", "set", "kit", "size", "edition", "version", "plus",
	// colors
	"black", "white", "red", "blue", "green", "grey", "gray", "silver", "gold",
	"pink", "beige", "brown", "navy", "cream", "ivory", "orange", "purple", "yellow",
	// sizes
	"xs", "xl", "xxl", "xxxl", "small", "medium", "large", "mini", "regular",
	// units
	"ml", "cl", "ltr", "litre", "liter", "kg", "mg", "oz", "lb", "lbs", "cm", "mm",
	"inch", "inches", "tablets", "capsules", "caplets", "pieces", "pcs",
	// audience
	"men", "mens", "women", "womens", "kids", "unisex",
	// categories too broad to match on
	"garment", "steamer", "product", "item",
)

// unitWords may follow a number after a space ("120 Tablets"); attached
// suffixes ("330ml") only need to avoid variantStopSuffixes
var unitWords = toSet(
	"ml", "cl", "l", "ltr", "litre", "litres", "liter", "liters",
	"g", "kg", "mg", "oz", "fl", "lb", "lbs", "cm", "mm", "inch", "inches",
	"tablets", "tablet", "capsules", "caplets", "pieces", "pcs", "pack", "packs",
	"count", "ct", "sheets", "rolls", "pods", "cans", "bottles", "sachets",
	"servings", "gb", "tb",
)

// variantStopSuffixes follow a number without describing a variant
var variantStopSuffixes = toSet(
	"th", "st", "nd", "rd", "am", "pm", "v", "w", "kw", "hz",
	"h", "hr", "hrs", "hour", "hours", "min", "mins", "minute", "minutes",
	"sec", "secs", "year", "years", "yr", "yrs", "day", "days", "month", "months",
	"in", "x", "and", "of", "to", "for", "off", "percent",
)

var (
	modelNumberPattern = regexp.MustCompile(`\b[A-Za-z]{1,3}\d{3,}[A-Za-z0-9]*\b`)
	nonAlphanumeric    = regexp.MustCompile(`[^a-z0-9]`)

	numberUnitPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?)(\s*)([A-Za-z]+)\b`)
	quantityPattern   = regexp.MustCompile(`(?i)\bx\s?(\d+)\b`)
	letterSizePattern = regexp.MustCompile(`\b(?:(?i:size)\s+)?(XXL|XL|XS|S|M|L)\b`)
	numberedSize      = regexp.MustCompile(`(?i)\b(size|uk|us|eu)\s*(\d+(?:\.\d+)?)\b`)
)

// Derive builds the identity of a product name. It is deterministic and an
// empty name yields an empty identity.
func Derive(name string) types.ProductIdentity {
	return types.ProductIdentity{
		IdentifyingWords: IdentifyingWords(name),
		ModelNumber:      ModelNumber(name),
		Variants:         Variants(name),
	}
}

// IdentifyingWords returns up to the first two non-generic tokens, lower-cased
// and stripped of punctuation
func IdentifyingWords(name string) []string {
	words := []string{}
	for _, token := range strings.Fields(name) {
		word := nonAlphanumeric.ReplaceAllString(strings.ToLower(token), "")
		if len(word) < 2 {
			continue
		}
		if _, generic := genericWords[word]; generic {
			continue
		}
		words = append(words, word)
		if len(words) == maxIdentifyingWords {
			break
		}
	}
	return words
}

// ModelNumber returns the first token shaped like "WAN28281GB" or "HD9252", lower-cased
func ModelNumber(name string) string {
	return strings.ToLower(modelNumberPattern.FindString(name))
}

// Variants returns the sorted set of size, quantity and unit descriptors in
// name, e.g. "120tablets", "x12", "m", "uk10"
func Variants(name string) []string {
	set := make(map[string]struct{})
	add := func(v string) {
		v = strings.ToLower(strings.Join(strings.Fields(v), ""))
		if v != "" {
			set[v] = struct{}{}
		}
	}

	for _, m := range numberUnitPattern.FindAllStringSubmatch(name, -1) {
		if yearLike(m[1]) {
			continue
		}
		unit := strings.ToLower(m[3])
		if _, stop := variantStopSuffixes[unit]; stop {
			continue
		}
		if _, known := unitWords[unit]; m[2] != "" && !known {
			continue
		}
		add(m[1] + unit)
	}
	for _, m := range quantityPattern.FindAllStringSubmatch(name, -1) {
		add("x" + m[1])
	}
	for _, m := range letterSizePattern.FindAllStringSubmatchIndex(name, -1) {
		// "H&M", "M&S", "LEVI'S"
		if joinedLetter(name, m[0], m[1]) {
			continue
		}
		add(name[m[2]:m[3]])
	}
	for _, m := range numberedSize.FindAllStringSubmatch(name, -1) {
		add(m[1] + m[2])
	}

	variants := make([]string, 0, len(set))
	for v := range set {
		variants = append(variants, v)
	}
	sort.Strings(variants)
	return variants
}

// ContainsAll reports whether every variant in want is present in have
func ContainsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := toSet(have...)
	for _, v := range want {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

// FromGuess turns an externally supplied guess into a product name, putting
// the brand in front when the guessed name does not already carry it
func FromGuess(guess types.IdentityGuess) string {
	name := strings.TrimSpace(guess.ItemName)
	brand := strings.TrimSpace(guess.Brand)
	if brand == "" || strings.Contains(strings.ToLower(name), strings.ToLower(brand)) {
		return name
	}
	return strings.TrimSpace(brand + " " + name)
}

func yearLike(number string) bool {
	if len(number) != 4 {
		return false
	}
	n, err := strconv.Atoi(number)
	return err == nil && n >= 1900 && n <= 2099
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// joinedLetter reports whether name[start:end] is attached to an ampersand
// or follows an apostrophe
func joinedLetter(name string, start, end int) bool {
	if end < len(name) && name[end] == '&' {
		return true
	}
	before := name[:start]
	return strings.HasSuffix(before, "&") || strings.HasSuffix(before, "'") || strings.HasSuffix(before, "’")
}
