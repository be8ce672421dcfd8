package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"pricewatch/internal/document"
)

const jsonLDSelector = `script[type="application/ld+json"]`

// jsonLDProducts returns every schema.org Product node embedded in the page,
// in document order. Broken blocks are skipped.
func jsonLDProducts(doc document.Document) []map[string]interface{} {
	var products []map[string]interface{}
	for _, script := range doc.All(jsonLDSelector) {
		var data interface{}
		if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
			continue
		}
		products = append(products, collectProducts(data)...)
	}
	return products
}

func collectProducts(data interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	switch v := data.(type) {
	case []interface{}:
		for _, item := range v {
			out = append(out, collectProducts(item)...)
		}
	case map[string]interface{}:
		if isProduct(v["@type"]) {
			out = append(out, v)
		}
		if graph, ok := v["@graph"]; ok {
			out = append(out, collectProducts(graph)...)
		}
	}
	return out
}

func isProduct(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

// jsonLDPrice returns the first offer price of the first product that has one
func jsonLDPrice(doc document.Document) (float64, bool) {
	for _, product := range jsonLDProducts(doc) {
		for _, offer := range asList(product["offers"]) {
			o, ok := offer.(map[string]interface{})
			if !ok {
				continue
			}
			for _, key := range []string{"price", "lowPrice"} {
				if price, ok := numberValue(o[key]); ok && validPrice(price) {
					return price, true
				}
			}
		}
	}
	return 0, false
}

// jsonLDName returns the first product name that is not boilerplate
func jsonLDName(doc document.Document) (string, bool) {
	for _, product := range jsonLDProducts(doc) {
		if name, ok := product["name"].(string); ok {
			if cleaned, ok := validName(name); ok {
				return cleaned, true
			}
		}
	}
	return "", false
}

// jsonLDImage returns the first product image, either a plain URL or an ImageObject
func jsonLDImage(doc document.Document) (string, bool) {
	for _, product := range jsonLDProducts(doc) {
		images := asList(product["image"])
		if len(images) == 0 {
			continue
		}
		var raw string
		switch img := images[0].(type) {
		case string:
			raw = img
		case map[string]interface{}:
			raw, _ = img["url"].(string)
		}
		if src, ok := normalizeImageURL(doc.URL(), raw); ok {
			return src, true
		}
	}
	return "", false
}

func asList(v interface{}) []interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return t
	default:
		return []interface{}{t}
	}
}

func numberValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil {
			return f, true
		}
		return CleanPrice(n)
	}
	return 0, false
}
