package extractor

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"pricewatch/adapters"
	"pricewatch/internal/document"
)

// UnknownProduct is the name reported when no strategy found one
const UnknownProduct = "Unknown Product"

const (
	minNameLength = 4
	maxNameLength = 500
)

// invalidName matches navigation, auth and error boilerplate that selectors
// sometimes pick up instead of the product title. Whole words only, so
// "HomePod" or "Cartier" survive.
var invalidName = regexp.MustCompile(`(?i)\b(?:` + strings.Join([]string{
	`shop women`, `shop men`, `hello`, `welcome`,
	`select your country`, `choose a country`, `sign in`,
	`log in`, `register`, `create account`, `search engine`,
	`search`, `home`, `cart`, `checkout`, `my account`,
	`access denied`, `oops`, `we've noticed`, `unusual activity`,
	`error`, `page not found`, `404`, `forbidden`, `blocked`,
}, "|") + `)\b`)

var slugPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/([a-z][a-z0-9-]+)-p\d+\.html$`),
	regexp.MustCompile(`(?i)/product\.([a-z][a-z0-9-]+)\.\d+\.html$`),
	regexp.MustCompile(`(?i)/([a-z][a-z0-9-]+)(?:-\d+)?\.html$`),
	regexp.MustCompile(`(?i)/p/([a-z][a-z0-9-]+)`),
}

var titleSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[|–-]\s*(?:ZARA|COS|H&M|ASOS|Target|Walmart|Amazon|LG UK|LG|Best Buy|Currys)\b.*$`),
	regexp.MustCompile(`(?i)\s*[|–-]\s*(?:United States|UK)\b.*$`),
}

var modelToken = regexp.MustCompile(`^[A-Za-z0-9]+$`)

const maxModelNumberLength = 10

// validName normalizes whitespace and rejects boilerplate or implausible lengths
func validName(raw string) (string, bool) {
	name := strings.Join(strings.Fields(raw), " ")
	n := utf8.RuneCountInString(name)
	if n < minNameLength || n > maxNameLength {
		return "", false
	}
	if invalidName.MatchString(name) {
		return "", false
	}
	return name, true
}

// looksLikeModelNumber reports names such as "S3BF" or "B09JQL3NWT" that are
// an identifier rather than a title
func looksLikeModelNumber(name string) bool {
	compact := strings.ReplaceAll(name, " ", "")
	if len(compact) > maxModelNumberLength {
		return false
	}
	return modelToken.MatchString(compact)
}

func nameStrategies(store *adapters.StoreConfig, generic adapters.GenericSelectors) []Strategy[string] {
	return []Strategy[string]{
		{Name: "store-selectors", Run: selectorName(store.NameSelectors)},
		{Name: "generic-selectors", Run: selectorName(generic.NameSelectors)},
		{Name: "og:title", Run: metaName},
		{Name: "jsonld", Run: jsonLDName},
		{Name: "url-slug", Run: slugName},
		{Name: "document-title", Run: titleName},
	}
}

// resolveName runs the name cascade. A winner that is only a model number
// gives way to the document title or URL slug when either yields a real title.
func resolveName(doc document.Document, strategies []Strategy[string]) (string, string) {
	name, source, ok := firstSuccess(doc, strategies)
	if ok && !looksLikeModelNumber(name) {
		return name, source
	}

	for _, s := range []Strategy[string]{
		{Name: "document-title", Run: titleName},
		{Name: "url-slug", Run: slugName},
	} {
		if better, found := s.Run(doc); found && !looksLikeModelNumber(better) {
			return better, s.Name
		}
	}

	if ok {
		return name, source
	}
	return UnknownProduct, ""
}

func selectorName(selectors []string) func(document.Document) (string, bool) {
	return func(doc document.Document) (string, bool) {
		for _, selector := range selectors {
			text, ok := doc.Text(selector)
			if !ok {
				continue
			}
			if name, ok := validName(text); ok {
				return name, true
			}
		}
		return "", false
	}
}

func metaName(doc document.Document) (string, bool) {
	content, ok := doc.Attr(`meta[property="og:title"]`, "content")
	if !ok {
		return "", false
	}
	return validName(stripTitleSuffixes(content))
}

// slugName turns "/us/en/oversized-wool-coat-p02010744.html" into "Oversized Wool Coat"
func slugName(doc document.Document) (string, bool) {
	u, err := url.Parse(doc.URL())
	if err != nil {
		return "", false
	}
	for _, pattern := range slugPatterns {
		m := pattern.FindStringSubmatch(u.Path)
		if m == nil || len(m[1]) <= 3 {
			continue
		}
		if name, ok := validName(titleCase(m[1])); ok {
			return name, true
		}
	}
	return "", false
}

func titleName(doc document.Document) (string, bool) {
	title := doc.Title()
	if _, ok := validName(title); !ok {
		return "", false
	}
	return validName(stripTitleSuffixes(title))
}

func stripTitleSuffixes(title string) string {
	for _, suffix := range titleSuffixes {
		title = suffix.ReplaceAllString(title, "")
	}
	return strings.TrimSpace(title)
}

func titleCase(slug string) string {
	var words []string
	for _, w := range strings.Split(slug, "-") {
		if w == "" {
			continue
		}
		words = append(words, strings.ToUpper(w[:1])+strings.ToLower(w[1:]))
	}
	return strings.Join(words, " ")
}
