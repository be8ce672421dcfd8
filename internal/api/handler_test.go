package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/compare"
	"pricewatch/internal/config"
	"pricewatch/internal/types"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubExtractor struct {
	calls   atomic.Int32
	release chan struct{}
	result  *types.ScrapeResult
}

func (s *stubExtractor) ExtractTarget(_ context.Context, target types.ScrapeTarget) *types.ScrapeResult {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	return s.result
}

type stubComparer struct {
	err      error
	lastMode string
}

func (s *stubComparer) result() (*compare.Comparison, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &compare.Comparison{Query: s.lastMode, AlternativesResult: types.AlternativesResult{HasBestPrice: true}}, nil
}

func (s *stubComparer) Compare(context.Context, compare.Request) (*compare.Comparison, error) {
	s.lastMode = "name"
	return s.result()
}

func (s *stubComparer) CompareURL(context.Context, string, string) (*compare.Comparison, error) {
	s.lastMode = "url"
	return s.result()
}

func (s *stubComparer) CompareGuess(context.Context, types.IdentityGuess, *float64, string) (*compare.Comparison, error) {
	s.lastMode = "guess"
	return s.result()
}

func (s *stubComparer) CompareBarcode(context.Context, string, *float64, string) (*compare.Comparison, error) {
	s.lastMode = "barcode"
	return s.result()
}

type stubBatch struct{}

func (stubBatch) CheckAll(_ context.Context, items []types.TrackedItem) (*types.BatchSummary, error) {
	return &types.BatchSummary{Checked: len(items)}, nil
}

func setupTestRouter(extractor Extractor, comparer Comparer, batch BatchRunner) *gin.Engine {
	cfg := config.ServerConfig{
		Port:           "8080",
		Environment:    "test",
		AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
	}
	handler := NewHandler(extractor, comparer, batch, time.Second, logrus.New())
	return SetupRouter(cfg, handler, logrus.New())
}

func post(router *gin.Engine, path string, body interface{}) (*httptest.ResponseRecorder, APIResponse) {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter(nil, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestExtract(t *testing.T) {
	extractor := &stubExtractor{result: &types.ScrapeResult{
		Success:   true,
		StoreName: "Argos",
		Product:   &types.ExtractedProduct{Name: "Tefal AeroSteam", Price: types.Float(45)},
	}}
	router := setupTestRouter(extractor, nil, nil)

	w, resp := post(router, "/api/v1/extract", ExtractRequest{URL: "https://www.argos.co.uk/product/1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), "Tefal AeroSteam")

	w, resp = post(router, "/api/v1/extract", ExtractRequest{URL: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}

func TestExtract_Failure(t *testing.T) {
	extractor := &stubExtractor{result: &types.ScrapeResult{Success: false, Error: "failed to render page: timeout", StoreName: "Argos"}}
	router := setupTestRouter(extractor, nil, nil)

	w, resp := post(router, "/api/v1/extract", ExtractRequest{URL: "https://www.argos.co.uk/product/1"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "failed to render page: timeout", resp.Error)
}

func TestExtract_SharesInflightRequests(t *testing.T) {
	extractor := &stubExtractor{
		release: make(chan struct{}),
		result:  &types.ScrapeResult{Success: true, Product: &types.ExtractedProduct{Name: "Kettle"}},
	}
	router := setupTestRouter(extractor, nil, nil)

	var wg sync.WaitGroup
	codes := make([]int, 5)
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, _ := post(router, "/api/v1/extract", ExtractRequest{URL: "https://www.currys.co.uk/products/kettle"})
			codes[i] = w.Code
		}()
	}

	// let the requests pile up on the blocked extraction
	time.Sleep(100 * time.Millisecond)
	close(extractor.release)
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Less(t, extractor.calls.Load(), int32(5))
}

func TestIdentity(t *testing.T) {
	router := setupTestRouter(nil, nil, nil)

	w, resp := post(router, "/api/v1/identity", map[string]string{"name": "Panadol Extra Advance 120 Tablets"})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, []interface{}{"panadol", "extra"}, data["identifying_words"])
	assert.Equal(t, []interface{}{"120tablets"}, data["variants"])

	w, _ = post(router, "/api/v1/identity", map[string]string{"item_name": "AeroSteam", "brand": "Tefal"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "aerosteam")

	w, _ = post(router, "/api/v1/identity", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlternatives(t *testing.T) {
	router := setupTestRouter(nil, nil, nil)

	w, resp := post(router, "/api/v1/alternatives", AlternativesRequest{
		Name:         "Tefal AeroSteam",
		CurrentPrice: 50,
		CurrentStore: "StoreA",
		Results: []types.SearchResult{
			{Title: "Tefal AeroSteam", Price: types.Float(45), StoreName: "StoreB"},
			{Title: "Philips Steamer", Price: types.Float(20), StoreName: "StoreC"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	alternatives := data["alternatives"].([]interface{})
	require.Len(t, alternatives, 1)
	assert.Equal(t, "StoreB", alternatives[0].(map[string]interface{})["store_name"])
	assert.Equal(t, false, data["has_best_price"])
}

func TestCompare_Modes(t *testing.T) {
	comparer := &stubComparer{}
	router := setupTestRouter(nil, comparer, nil)

	tests := []struct {
		body CompareRequest
		mode string
	}{
		{CompareRequest{URL: "https://www.argos.co.uk/product/1"}, "url"},
		{CompareRequest{Guess: &types.IdentityGuess{ItemName: "AeroSteam"}}, "guess"},
		{CompareRequest{Name: "Tefal AeroSteam"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			w, resp := post(router, "/api/v1/compare", tt.body)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.mode, comparer.lastMode)
		})
	}

	w, _ := post(router, "/api/v1/compare", CompareRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorStatus(t *testing.T) {
	tests := map[error]int{
		types.ErrNotFound:        http.StatusNotFound,
		types.ErrInvalidBarcode:  http.StatusBadRequest,
		types.ErrSearchFailed:    http.StatusBadGateway,
		context.DeadlineExceeded: http.StatusGatewayTimeout,
		assert.AnError:           http.StatusInternalServerError,
	}
	for err, status := range tests {
		comparer := &stubComparer{err: err}
		router := setupTestRouter(nil, comparer, nil)

		w, resp := post(router, "/api/v1/barcode", BarcodeRequest{Barcode: "012345678905"})
		assert.Equal(t, status, w.Code, err.Error())
		assert.False(t, resp.Success)
	}
}

func TestBatch(t *testing.T) {
	router := setupTestRouter(nil, nil, stubBatch{})

	w, resp := post(router, "/api/v1/batch", BatchRequest{Items: []types.TrackedItem{{ID: "1", URL: "https://a.example/p/1"}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp.Data.(map[string]interface{})["checked"])

	w, _ = post(router, "/api/v1/batch", BatchRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnconfiguredEndpoints(t *testing.T) {
	router := setupTestRouter(nil, nil, nil)

	for _, path := range []string{"/api/v1/extract", "/api/v1/compare", "/api/v1/barcode", "/api/v1/batch"} {
		w, _ := post(router, path, map[string]string{})
		assert.Equal(t, http.StatusNotImplemented, w.Code, path)
	}
}

func TestCORS(t *testing.T) {
	router := setupTestRouter(nil, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/extract", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "chrome-extension://abcdef", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
