// Package document provides the queryable page abstraction the extraction
// cascade and the search parsers run against. Pages rendered by a headless
// browser and static fixture HTML both end up as a Document.
package document

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a rendered page that supports CSS selection, attribute reads
// and raw text access.
type Document interface {
	// URL returns the final URL of the page
	URL() string
	// Title returns the contents of <title>
	Title() string
	// First returns the first element matching selector
	First(selector string) (Element, bool)
	// All returns every element matching selector in document order
	All(selector string) []Element
	// Text returns the trimmed text of the first element matching selector
	Text(selector string) (string, bool)
	// Attr returns an attribute of the first element matching selector
	Attr(selector, attr string) (string, bool)
	// VisibleText returns the page body as a reader would see it, one block per line
	VisibleText() string
	// HTML returns the raw page markup
	HTML() string
}

// Element is a single node in a Document
type Element interface {
	Tag() string
	Text() string
	VisibleText() string
	Attr(name string) (string, bool)
	First(selector string) (Element, bool)
	All(selector string) []Element
}

type goqueryDocument struct {
	doc *goquery.Document
	url string
	raw string
}

// FromHTML parses raw markup into a Document located at pageURL
func FromHTML(raw, pageURL string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &goqueryDocument{doc: doc, url: pageURL, raw: raw}, nil
}

// FromReader parses markup read from r into a Document located at pageURL
func FromReader(r io.Reader, pageURL string) (Document, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read html: %w", err)
	}
	return FromHTML(string(body), pageURL)
}

func (d *goqueryDocument) URL() string {
	return d.url
}

func (d *goqueryDocument) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

func (d *goqueryDocument) First(selector string) (Element, bool) {
	return first(d.doc.Selection, selector)
}

func (d *goqueryDocument) All(selector string) []Element {
	return all(d.doc.Selection, selector)
}

func (d *goqueryDocument) Text(selector string) (string, bool) {
	el, ok := d.First(selector)
	if !ok {
		return "", false
	}
	text := el.Text()
	return text, text != ""
}

func (d *goqueryDocument) Attr(selector, attr string) (string, bool) {
	el, ok := d.First(selector)
	if !ok {
		return "", false
	}
	value, ok := el.Attr(attr)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (d *goqueryDocument) VisibleText() string {
	body := d.doc.Find("body")
	if body.Length() == 0 {
		return VisibleText(d.doc.Nodes[0])
	}
	return VisibleText(body.Nodes[0])
}

func (d *goqueryDocument) HTML() string {
	return d.raw
}

type selectionElement struct {
	sel *goquery.Selection
}

func (e *selectionElement) Tag() string {
	return strings.ToLower(goquery.NodeName(e.sel))
}

func (e *selectionElement) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e *selectionElement) VisibleText() string {
	return VisibleText(e.sel.Nodes[0])
}

func (e *selectionElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *selectionElement) First(selector string) (Element, bool) {
	return first(e.sel, selector)
}

func (e *selectionElement) All(selector string) []Element {
	return all(e.sel, selector)
}

func first(root *goquery.Selection, selector string) (Element, bool) {
	found := root.Find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return &selectionElement{sel: found}, true
}

func all(root *goquery.Selection, selector string) []Element {
	var elements []Element
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &selectionElement{sel: s})
	})
	return elements
}

// Resolve turns ref into an absolute URL against base. Protocol-relative
// references get https. Unresolvable input is returned unchanged.
func Resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
