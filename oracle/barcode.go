// Package oracle supplies external product identity guesses. Barcodes are
// looked up in public product databases; the first database that knows the
// code (in priority order) provides the guess.
package oracle

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"pricewatch/internal/types"
)

// JSONGetter fetches and decodes a JSON document
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v interface{}) error
}

// Endpoints are the base URLs of the barcode databases. Empty entries are skipped.
type Endpoints struct {
	UPCItemDB         string
	OpenFoodFacts     string
	OpenBeautyFacts   string
	OpenProductsFacts string
}

// DefaultEndpoints returns the public database URLs
func DefaultEndpoints() Endpoints {
	return Endpoints{
		UPCItemDB:         "https://api.upcitemdb.com",
		OpenFoodFacts:     "https://world.openfoodfacts.org",
		OpenBeautyFacts:   "https://world.openbeautyfacts.org",
		OpenProductsFacts: "https://world.openproductsfacts.org",
	}
}

var (
	barcodeSeparators = regexp.MustCompile(`[\s-]`)
	digitsOnly        = regexp.MustCompile(`^\d+$`)
	validLengths      = map[int]bool{6: true, 7: true, 8: true, 12: true, 13: true, 14: true}
)

type lookup struct {
	source string
	run    func(ctx context.Context, barcode string) (*types.IdentityGuess, error)
}

// BarcodeOracle resolves barcodes to identity guesses
type BarcodeOracle struct {
	client  JSONGetter
	lookups []lookup
	logger  types.Logger
}

// NewBarcodeOracle creates an oracle querying the configured endpoints
func NewBarcodeOracle(client JSONGetter, endpoints Endpoints, logger types.Logger) *BarcodeOracle {
	o := &BarcodeOracle{client: client, logger: logger}
	if endpoints.UPCItemDB != "" {
		o.lookups = append(o.lookups, lookup{"UPC Database", o.upcItemDB(endpoints.UPCItemDB)})
	}
	for _, facts := range []struct{ source, base string }{
		{"Open Food Facts", endpoints.OpenFoodFacts},
		{"Open Beauty Facts", endpoints.OpenBeautyFacts},
		{"Open Products Facts", endpoints.OpenProductsFacts},
	} {
		if facts.base != "" {
			o.lookups = append(o.lookups, lookup{facts.source, o.openFacts(facts.source, facts.base)})
		}
	}
	return o
}

// CleanBarcode strips spaces and dashes
func CleanBarcode(code string) string {
	return barcodeSeparators.ReplaceAllString(code, "")
}

// IsValidBarcode reports whether code looks like a UPC-A, UPC-E, EAN-8,
// EAN-13 or GTIN-14 once separators are removed
func IsValidBarcode(code string) bool {
	clean := CleanBarcode(code)
	return digitsOnly.MatchString(clean) && validLengths[len(clean)]
}

// Lookup queries every database in parallel and returns the first named
// product in priority order. Database errors count as misses.
func (o *BarcodeOracle) Lookup(ctx context.Context, code string) (*types.IdentityGuess, error) {
	if !IsValidBarcode(code) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidBarcode, code)
	}
	barcode := CleanBarcode(code)
	o.logger.Infof("Looking up barcode %s in %d databases", barcode, len(o.lookups))

	guesses := make([]*types.IdentityGuess, len(o.lookups))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range o.lookups {
		g.Go(func() error {
			guess, err := l.run(gctx, barcode)
			if err != nil {
				o.logger.Debugf("%s lookup failed for %s: %v", l.source, barcode, err)
				return nil
			}
			guesses[i] = guess
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, guess := range guesses {
		if guess != nil && guess.ItemName != "" {
			o.logger.Infof("Barcode %s found in %s: %s", barcode, guess.Source, guess.ItemName)
			return guess, nil
		}
	}
	return nil, fmt.Errorf("%w: barcode %s", types.ErrNotFound, barcode)
}

type upcResponse struct {
	Items []struct {
		Title    string   `json:"title"`
		Brand    string   `json:"brand"`
		Category string   `json:"category"`
		Images   []string `json:"images"`
		Size     string   `json:"size"`
	} `json:"items"`
}

func (o *BarcodeOracle) upcItemDB(base string) func(context.Context, string) (*types.IdentityGuess, error) {
	return func(ctx context.Context, barcode string) (*types.IdentityGuess, error) {
		var resp upcResponse
		endpoint := fmt.Sprintf("%s/prod/trial/lookup?upc=%s", strings.TrimRight(base, "/"), barcode)
		if err := o.client.GetJSON(ctx, endpoint, &resp); err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			return nil, nil
		}
		item := resp.Items[0]
		guess := &types.IdentityGuess{
			ItemName: item.Title,
			Brand:    item.Brand,
			Source:   "UPC Database",
			Barcode:  barcode,
			Category: item.Category,
			Quantity: item.Size,
		}
		if len(item.Images) > 0 {
			guess.ImageURL = item.Images[0]
		}
		return guess, nil
	}
}

type factsResponse struct {
	Status  int `json:"status"`
	Product *struct {
		ProductName    string   `json:"product_name"`
		ProductNameEN  string   `json:"product_name_en"`
		Brands         string   `json:"brands"`
		CategoriesTags []string `json:"categories_tags"`
		ImageURL       string   `json:"image_url"`
		ImageFrontURL  string   `json:"image_front_url"`
		Quantity       string   `json:"quantity"`
	} `json:"product"`
}

// openFacts queries one of the Open*Facts databases, which share an API
func (o *BarcodeOracle) openFacts(source, base string) func(context.Context, string) (*types.IdentityGuess, error) {
	return func(ctx context.Context, barcode string) (*types.IdentityGuess, error) {
		var resp factsResponse
		endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", strings.TrimRight(base, "/"), barcode)
		if err := o.client.GetJSON(ctx, endpoint, &resp); err != nil {
			return nil, err
		}
		if resp.Status != 1 || resp.Product == nil {
			return nil, nil
		}
		p := resp.Product
		guess := &types.IdentityGuess{
			ItemName: firstNonEmpty(p.ProductName, p.ProductNameEN),
			Brand:    p.Brands,
			Source:   source,
			Barcode:  barcode,
			ImageURL: firstNonEmpty(p.ImageURL, p.ImageFrontURL),
			Quantity: p.Quantity,
		}
		if len(p.CategoriesTags) > 0 {
			guess.Category = strings.TrimPrefix(p.CategoriesTags[0], "en:")
		}
		return guess, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
