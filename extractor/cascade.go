package extractor

import "pricewatch/internal/document"

// Strategy resolves one field from a document. A strategy that finds
// nothing usable reports ok=false and the cascade moves on.
type Strategy[T any] struct {
	Name string
	Run  func(doc document.Document) (T, bool)
}

// firstSuccess runs strategies in order and returns the first value found
// along with the name of the strategy that produced it.
func firstSuccess[T any](doc document.Document, strategies []Strategy[T]) (T, string, bool) {
	for _, s := range strategies {
		if v, ok := s.Run(doc); ok {
			return v, s.Name, true
		}
	}
	var zero T
	return zero, "", false
}
