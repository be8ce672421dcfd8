package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/cache"
	"pricewatch/internal/document"
	"pricewatch/internal/types"
	"pricewatch/utils"
)

// fakeRenderer serves fixture HTML for any URL and records requests
type fakeRenderer struct {
	html string
	err  error
	urls []string
	opts []utils.RenderOptions
}

func (f *fakeRenderer) Render(_ context.Context, url string, opts utils.RenderOptions) (document.Document, error) {
	f.urls = append(f.urls, url)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return document.FromHTML(f.html, url)
}

type stubProvider struct {
	name    string
	results []types.SearchResult
	err     error
	calls   atomic.Int32
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(context.Context, string) ([]types.SearchResult, error) {
	s.calls.Add(1)
	return s.results, s.err
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		brand, product, want string
	}{
		{"Tefal", "AeroSteam Garment Steamer", "Tefal AeroSteam Garment Steamer"},
		{"tefal", "Tefal AeroSteam", "Tefal AeroSteam"},
		{"L’Oréal", "  Revitalift   Serum ", "LOréal Revitalift Serum"},
		{"", "Kettle", "Kettle"},
		{"Sony", "", "Sony"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.brand, tt.product))
		})
	}
}

func TestURLMatchesBrand(t *testing.T) {
	assert.True(t, URLMatchesBrand("https://www.johnlewis.com/p/123", "John Lewis"))
	assert.True(t, URLMatchesBrand("https://uk.tefal.com/steam", "Tefal"))
	assert.False(t, URLMatchesBrand("https://www.argos.co.uk/p/1", "Tefal"))
	assert.False(t, URLMatchesBrand("", "Tefal"))
	assert.False(t, URLMatchesBrand("https://www.argos.co.uk/", "!!"))
}

func TestUnwrapRedirect(t *testing.T) {
	tests := map[string]string{
		"https://www.google.com/url?q=https://www.argos.co.uk/p/1&sa=U":               "https://www.argos.co.uk/p/1",
		"https://duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.boots.com%2Fpanadol&rut=x": "https://www.boots.com/panadol",
		"https://www.currys.co.uk/products/kettle":                                   "https://www.currys.co.uk/products/kettle",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, unwrapRedirect(in))
		})
	}
}

func TestMultiProvider(t *testing.T) {
	a := &stubProvider{name: "a", results: []types.SearchResult{{Title: "A1"}, {Title: "A2"}}}
	b := &stubProvider{name: "b", err: errors.New("blocked")}
	c := &stubProvider{name: "c", results: []types.SearchResult{{Title: "C1"}}}

	multi := NewMultiProvider(logrus.New(), a, b, c)
	assert.Equal(t, "a+b+c", multi.Name())

	results, err := multi.Search(context.Background(), "kettle")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "A1", results[0].Title)
	assert.Equal(t, "A2", results[1].Title)
	assert.Equal(t, "C1", results[2].Title)
}

func TestMultiProvider_AllFail(t *testing.T) {
	multi := NewMultiProvider(logrus.New(),
		&stubProvider{name: "a", err: errors.New("timeout")},
		&stubProvider{name: "b", err: errors.New("blocked")},
	)

	_, err := multi.Search(context.Background(), "kettle")
	assert.ErrorIs(t, err, types.ErrSearchFailed)

	_, err = NewMultiProvider(logrus.New()).Search(context.Background(), "kettle")
	assert.ErrorIs(t, err, types.ErrSearchFailed)
}

func TestMultiProvider_EmptyIsSuccess(t *testing.T) {
	multi := NewMultiProvider(logrus.New(), &stubProvider{name: "a"})

	results, err := multi.Search(context.Background(), "kettle")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCachedProvider(t *testing.T) {
	c := cache.NewMemory[[]types.SearchResult](time.Minute)
	defer c.Close()

	inner := &stubProvider{name: "stub", results: []types.SearchResult{{Title: "Kettle", Price: types.Float(20)}}}
	cached := NewCachedProvider(inner, c, time.Minute, logrus.New())

	for i := 0; i < 3; i++ {
		results, err := cached.Search(context.Background(), fmt.Sprintf(" Kettle%s", " "))
		require.NoError(t, err)
		assert.Len(t, results, 1)
	}
	_, err := cached.Search(context.Background(), "KETTLE")
	require.NoError(t, err)

	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, "stub", cached.Name())
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	c := cache.NewMemory[[]types.SearchResult](time.Minute)
	defer c.Close()

	inner := &stubProvider{name: "stub", err: errors.New("down")}
	cached := NewCachedProvider(inner, c, time.Minute, logrus.New())

	_, err := cached.Search(context.Background(), "kettle")
	require.Error(t, err)
	_, err = cached.Search(context.Background(), "kettle")
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestSortByPrice(t *testing.T) {
	results := []types.SearchResult{
		{Title: "none"},
		{Title: "ten", Price: types.Float(10)},
		{Title: "five", Price: types.Float(5)},
		{Title: "ten-b", Price: types.Float(10)},
	}

	sortByPrice(results)

	var titles []string
	for _, r := range results {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"five", "ten", "ten-b", "none"}, titles)
}
