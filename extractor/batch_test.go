package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/types"
)

type stubFetcher struct {
	prices map[string]*float64
	calls  []string
}

func (s *stubFetcher) ExtractPrice(_ context.Context, url string) (*float64, error) {
	s.calls = append(s.calls, url)
	price, ok := s.prices[url]
	if !ok {
		return nil, errors.New("page unavailable")
	}
	return price, nil
}

func TestBatchChecker_CheckAll(t *testing.T) {
	fetcher := &stubFetcher{prices: map[string]*float64{
		"https://a.example/1": types.Float(45),
		"https://a.example/2": types.Float(20),
		"https://a.example/4": nil,
	}}
	items := []types.TrackedItem{
		{ID: "1", URL: "https://a.example/1", CurrentPrice: types.Float(50)},
		{ID: "2", URL: "https://a.example/2", CurrentPrice: types.Float(20)},
		{ID: "3", URL: "https://a.example/3", CurrentPrice: types.Float(10)},
		{ID: "4", URL: "https://a.example/4"},
		{ID: "5"},
	}

	checker := NewBatchChecker(fetcher, time.Millisecond, logrus.New())
	summary, err := checker.CheckAll(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2, summary.Errors)
	require.Len(t, summary.Items, 4)
	assert.Len(t, fetcher.calls, 4)

	first := summary.Items[0]
	assert.True(t, first.Changed)
	require.NotNil(t, first.ChangePercent)
	assert.Equal(t, -10.0, *first.ChangePercent)

	assert.False(t, summary.Items[1].Changed)
	assert.Nil(t, summary.Items[1].ChangePercent)
	assert.Equal(t, "page unavailable", summary.Items[2].Error)
	assert.Equal(t, "no price found", summary.Items[3].Error)
}

func TestBatchChecker_ChangePercentRounding(t *testing.T) {
	fetcher := &stubFetcher{prices: map[string]*float64{"https://a.example/1": types.Float(40)}}
	checker := NewBatchChecker(fetcher, 0, logrus.New())

	summary, err := checker.CheckAll(context.Background(), []types.TrackedItem{
		{ID: "1", URL: "https://a.example/1", CurrentPrice: types.Float(30)},
	})
	require.NoError(t, err)
	require.NotNil(t, summary.Items[0].ChangePercent)
	assert.Equal(t, 33.3, *summary.Items[0].ChangePercent)
}

func TestBatchChecker_ContextCancelled(t *testing.T) {
	fetcher := &stubFetcher{prices: map[string]*float64{}}
	checker := NewBatchChecker(fetcher, time.Hour, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	summary, err := checker.CheckAll(ctx, []types.TrackedItem{
		{ID: "1", URL: "https://a.example/1"},
		{ID: "2", URL: "https://a.example/2"},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, summary.Items, 1)
	assert.Len(t, fetcher.calls, 1)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, WriteJSON(path, &types.BatchSummary{Checked: 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"checked": 1`)
}
