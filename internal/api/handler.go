package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"pricewatch/compare"
	"pricewatch/identity"
	"pricewatch/internal/types"
	"pricewatch/matcher"
)

// Extractor extracts a single product page
type Extractor interface {
	ExtractTarget(ctx context.Context, target types.ScrapeTarget) *types.ScrapeResult
}

// Comparer runs cross-store comparisons
type Comparer interface {
	Compare(ctx context.Context, req compare.Request) (*compare.Comparison, error)
	CompareURL(ctx context.Context, rawURL, brand string) (*compare.Comparison, error)
	CompareGuess(ctx context.Context, guess types.IdentityGuess, currentPrice *float64, currentStore string) (*compare.Comparison, error)
	CompareBarcode(ctx context.Context, code string, currentPrice *float64, currentStore string) (*compare.Comparison, error)
}

// BatchRunner refreshes prices for tracked items
type BatchRunner interface {
	CheckAll(ctx context.Context, items []types.TrackedItem) (*types.BatchSummary, error)
}

// APIResponse is the envelope for every JSON response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ExtractRequest is the body of POST /extract
type ExtractRequest struct {
	URL       string `json:"url"`
	StoreHint string `json:"store_hint,omitempty"`
}

// IdentityRequest is the body of POST /identity. Either Name or ItemName is required.
type IdentityRequest struct {
	Name string `json:"name"`
	types.IdentityGuess
}

// AlternativesRequest is the body of POST /alternatives. Identity is derived
// from Name when not supplied.
type AlternativesRequest struct {
	Name         string                 `json:"name"`
	Identity     *types.ProductIdentity `json:"identity,omitempty"`
	CurrentPrice float64                `json:"current_price"`
	CurrentStore string                 `json:"current_store"`
	Results      []types.SearchResult   `json:"results"`
}

// CompareRequest is the body of POST /compare. URL, Name or Guess selects the mode.
type CompareRequest struct {
	URL          string               `json:"url"`
	Name         string               `json:"name"`
	Brand        string               `json:"brand"`
	Guess        *types.IdentityGuess `json:"guess,omitempty"`
	CurrentPrice *float64             `json:"current_price,omitempty"`
	CurrentStore string               `json:"current_store"`
}

// BarcodeRequest is the body of POST /barcode
type BarcodeRequest struct {
	Barcode      string   `json:"barcode"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	CurrentStore string   `json:"current_store"`
}

// BatchRequest is the body of POST /batch
type BatchRequest struct {
	Items []types.TrackedItem `json:"items"`
}

// Handler holds dependencies for HTTP handlers. Any of them may be nil,
// in which case the matching endpoint answers 501.
type Handler struct {
	extractor Extractor
	comparer  Comparer
	batch     BatchRunner
	timeout   time.Duration
	logger    types.Logger
	inflight  singleflight.Group
}

// NewHandler creates a new HTTP handler
func NewHandler(extractor Extractor, comparer Comparer, batch BatchRunner, timeout time.Duration, logger types.Logger) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Handler{
		extractor: extractor,
		comparer:  comparer,
		batch:     batch,
		timeout:   timeout,
		logger:    logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricewatch",
	})
}

// Extract renders and extracts one product page. Concurrent requests for the
// same page share a single render.
func (h *Handler) Extract(c *gin.Context) {
	if h.extractor == nil {
		h.sendError(c, http.StatusNotImplemented, "extraction is not configured")
		return
	}
	var req ExtractRequest
	if !h.bind(c, &req) {
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		h.sendError(c, http.StatusBadRequest, "url is required")
		return
	}

	key := req.StoreHint + "|" + req.URL
	v, _, shared := h.inflight.Do(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.timeout)
		defer cancel()
		return h.extractor.ExtractTarget(ctx, types.ScrapeTarget{URL: req.URL, StoreHint: req.StoreHint}), nil
	})
	if shared {
		h.logger.Debugf("Shared in-flight extraction for %s", req.URL)
	}

	result := v.(*types.ScrapeResult)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
		if strings.Contains(result.Error, types.ErrInvalidURL.Error()) {
			status = http.StatusBadRequest
		}
	}
	c.JSON(status, APIResponse{Success: result.Success, Data: result, Error: result.Error})
}

// Identity derives the matching key for a product name or guess
func (h *Handler) Identity(c *gin.Context) {
	var req IdentityRequest
	if !h.bind(c, &req) {
		return
	}
	name := req.Name
	if name == "" {
		name = identity.FromGuess(req.IdentityGuess)
	}
	if strings.TrimSpace(name) == "" {
		h.sendError(c, http.StatusBadRequest, "name or item_name is required")
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: identity.Derive(name)})
}

// Alternatives ranks a caller-supplied candidate pool
func (h *Handler) Alternatives(c *gin.Context) {
	var req AlternativesRequest
	if !h.bind(c, &req) {
		return
	}
	ref := types.ProductIdentity{}
	switch {
	case req.Identity != nil:
		ref = *req.Identity
	case req.Name != "":
		ref = identity.Derive(req.Name)
	}
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    matcher.FindAlternatives(ref, req.CurrentPrice, req.CurrentStore, req.Results),
	})
}

// Compare searches other stores for a page, a name or a guess
func (h *Handler) Compare(c *gin.Context) {
	if h.comparer == nil {
		h.sendError(c, http.StatusNotImplemented, "comparison is not configured")
		return
	}
	var req CompareRequest
	if !h.bind(c, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var (
		comparison *compare.Comparison
		err        error
	)
	switch {
	case req.URL != "":
		comparison, err = h.comparer.CompareURL(ctx, req.URL, req.Brand)
	case req.Guess != nil:
		comparison, err = h.comparer.CompareGuess(ctx, *req.Guess, req.CurrentPrice, req.CurrentStore)
	case req.Name != "":
		comparison, err = h.comparer.Compare(ctx, compare.Request{
			Name:         req.Name,
			Brand:        req.Brand,
			CurrentPrice: req.CurrentPrice,
			CurrentStore: req.CurrentStore,
		})
	default:
		h.sendError(c, http.StatusBadRequest, "one of url, name or guess is required")
		return
	}
	if err != nil {
		h.sendError(c, errorStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: comparison})
}

// Barcode identifies a barcode and compares it against other stores
func (h *Handler) Barcode(c *gin.Context) {
	if h.comparer == nil {
		h.sendError(c, http.StatusNotImplemented, "comparison is not configured")
		return
	}
	var req BarcodeRequest
	if !h.bind(c, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	comparison, err := h.comparer.CompareBarcode(ctx, req.Barcode, req.CurrentPrice, req.CurrentStore)
	if err != nil {
		h.sendError(c, errorStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: comparison})
}

// Batch refreshes the prices of the given items
func (h *Handler) Batch(c *gin.Context) {
	if h.batch == nil {
		h.sendError(c, http.StatusNotImplemented, "batch checks are not configured")
		return
	}
	var req BatchRequest
	if !h.bind(c, &req) {
		return
	}
	if len(req.Items) == 0 {
		h.sendError(c, http.StatusBadRequest, "no items provided")
		return
	}

	summary, err := h.batch.CheckAll(c.Request.Context(), req.Items)
	if err != nil {
		h.logger.Warnf("Batch check interrupted: %v", err)
		c.JSON(http.StatusGatewayTimeout, APIResponse{Success: false, Data: summary, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: summary})
}

func (h *Handler) bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) sendError(c *gin.Context, status int, message string) {
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("%s %s: %s", c.Request.Method, c.Request.URL.Path, message)
	}
	c.JSON(status, APIResponse{Success: false, Error: message})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidURL), errors.Is(err, types.ErrInvalidBarcode):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrRenderFailed), errors.Is(err, types.ErrSearchFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
