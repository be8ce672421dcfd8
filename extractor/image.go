package extractor

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"pricewatch/adapters"
	"pricewatch/internal/document"
)

var imageAttributes = []string{
	"src",
	"data-src",
	"data-lazy-src",
	"data-old-hires",
	"data-a-dynamic-image",
	"data-srcset",
	"srcset",
}

var (
	rejectedImageWords = []string{"logo", "icon", ".svg", "1x1", "pixel", "promotion", "banner", "promo"}
	imageDimensions    = regexp.MustCompile(`(\d+)x(\d+)`)
)

const (
	minImageSide     = 300
	maxImageAspect   = 3.0
	dataURIPrefix    = "data:"
	dynamicImageJSON = "{"
)

func imageStrategies(store *adapters.StoreConfig, generic adapters.GenericSelectors) []Strategy[string] {
	var strategies []Strategy[string]
	if store.StructuredDataPriority {
		strategies = append(strategies, Strategy[string]{Name: "jsonld-priority", Run: validated(jsonLDImage)})
	}
	return append(strategies,
		Strategy[string]{Name: "store-selectors", Run: selectorImage(store.ImageSelectors)},
		Strategy[string]{Name: "generic-selectors", Run: selectorImage(generic.ImageSelectors)},
		Strategy[string]{Name: "og:image", Run: validated(metaImage(`meta[property="og:image"]`))},
		Strategy[string]{Name: "twitter:image", Run: validated(metaImage(`meta[name="twitter:image"], meta[property="twitter:image"]`))},
		Strategy[string]{Name: "jsonld", Run: validated(jsonLDImage)},
	)
}

// validProductImage rejects logos, tracking pixels, banners and images whose
// filename dimensions are too small or too elongated for a product shot
func validProductImage(src string) bool {
	lower := strings.ToLower(src)
	for _, word := range rejectedImageWords {
		if strings.Contains(lower, word) {
			return false
		}
	}

	if strings.Contains(lower, "product") {
		return true
	}
	m := imageDimensions.FindStringSubmatch(lower)
	if m == nil {
		return true
	}
	w, errW := strconv.Atoi(m[1])
	h, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil || w == 0 || h == 0 {
		return false
	}
	if w < minImageSide || h < minImageSide {
		return false
	}
	ratio := float64(w) / float64(h)
	return ratio <= maxImageAspect && 1/ratio <= maxImageAspect
}

func validated(run func(document.Document) (string, bool)) func(document.Document) (string, bool) {
	return func(doc document.Document) (string, bool) {
		src, ok := run(doc)
		if !ok || !validProductImage(src) {
			return "", false
		}
		return src, true
	}
}

func metaImage(selector string) func(document.Document) (string, bool) {
	return func(doc document.Document) (string, bool) {
		content, ok := doc.Attr(selector, "content")
		if !ok {
			return "", false
		}
		return normalizeImageURL(doc.URL(), content)
	}
}

func selectorImage(selectors []string) func(document.Document) (string, bool) {
	return func(doc document.Document) (string, bool) {
		for _, selector := range selectors {
			el, ok := doc.First(selector)
			if !ok {
				continue
			}
			if src, ok := elementImage(doc.URL(), el); ok && validProductImage(src) {
				return src, true
			}
			if el.Tag() != "picture" && !strings.Contains(selector, "picture") {
				continue
			}
			if src, ok := pictureImage(doc, el, selector); ok && validProductImage(src) {
				return src, true
			}
		}
		return "", false
	}
}

// pictureImage resolves a <picture> through its <source> children
func pictureImage(doc document.Document, el document.Element, selector string) (string, bool) {
	if source, ok := el.First("source"); ok {
		if src, ok := elementImage(doc.URL(), source); ok {
			return src, true
		}
	}
	if source, ok := doc.First(strings.Replace(selector, "img", "source", 1)); ok {
		return elementImage(doc.URL(), source)
	}
	return "", false
}

// elementImage reads the best image URL off an element, checking lazy-load
// attributes, Amazon's dynamic image map and srcset descriptors
func elementImage(base string, el document.Element) (string, bool) {
	for _, attr := range imageAttributes {
		value, ok := el.Attr(attr)
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			continue
		}

		switch {
		case strings.HasPrefix(value, dynamicImageJSON):
			if src, ok := firstJSONKey(value); ok {
				if abs, ok := normalizeImageURL(base, src); ok {
					return abs, true
				}
			}
		case attr == "srcset" || attr == "data-srcset":
			if src, ok := largestSrcset(value); ok {
				if abs, ok := normalizeImageURL(base, src); ok {
					return abs, true
				}
			}
		default:
			if abs, ok := normalizeImageURL(base, value); ok {
				return abs, true
			}
		}
	}
	return "", false
}

// normalizeImageURL makes src absolute and only accepts http(s) results
func normalizeImageURL(base, src string) (string, bool) {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(strings.ToLower(src), dataURIPrefix) {
		return "", false
	}
	abs := document.Resolve(base, src)
	lower := strings.ToLower(abs)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", false
	}
	return abs, true
}

// largestSrcset picks the candidate with the largest width or density descriptor
func largestSrcset(srcset string) (string, bool) {
	best, bestSize := "", -1.0
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		size := 0.0
		if len(fields) > 1 {
			descriptor := strings.TrimRight(strings.TrimRight(fields[1], "w"), "x")
			if v, err := strconv.ParseFloat(descriptor, 64); err == nil {
				size = v
			}
		}
		if size > bestSize {
			best, bestSize = fields[0], size
		}
	}
	return best, best != ""
}

// firstJSONKey returns the first key of a JSON object in source order
func firstJSONKey(raw string) (string, bool) {
	dec := json.NewDecoder(strings.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return "", false
	}
	tok, err := dec.Token()
	if err != nil {
		return "", false
	}
	key, ok := tok.(string)
	return key, ok
}
