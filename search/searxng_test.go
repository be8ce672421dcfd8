package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/types"
	"pricewatch/utils"
)

func testHTTPClient() *utils.HTTPClient {
	config := types.DefaultConfig()
	config.RequestDelay = time.Millisecond
	config.MaxRetries = 0
	config.Timeout = 5 * time.Second
	return utils.NewHTTPClient(config, logrus.New())
}

func TestSearXNG_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "tefal aerosteam", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"title":"Tefal AeroSteam - Argos","url":"https://www.argos.co.uk/product/123","content":"Now £45.00 with free delivery","img_src":"https://img.example/a.jpg"},
			{"title":"Tefal AeroSteam review","url":"https://blog.example/review","content":"A great steamer"},
			{"title":"Tefal AeroSteam £52.99","url":"https://www.currys.co.uk/products/x","content":""},
			{"title":"","url":"https://www.currys.co.uk/products/y","content":"£10.00"}
		]}`))
	}))
	defer server.Close()

	client := testHTTPClient()
	defer client.Close()

	provider := NewSearXNG(client, server.URL+"/", logrus.New())
	results, err := provider.Search(context.Background(), "tefal aerosteam")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Argos", results[0].StoreName)
	assert.Equal(t, 45.0, *results[0].Price)
	assert.Equal(t, "https://img.example/a.jpg", results[0].ImageURL)
	assert.Equal(t, "searxng", results[0].Source)

	assert.Equal(t, "Currys", results[1].StoreName)
	assert.Equal(t, 52.99, *results[1].Price)
}

func TestSearXNG_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testHTTPClient()
	defer client.Close()

	_, err := NewSearXNG(client, server.URL, logrus.New()).Search(context.Background(), "kettle")
	assert.ErrorIs(t, err, types.ErrSearchFailed)

	_, err = NewSearXNG(client, "", logrus.New()).Search(context.Background(), "kettle")
	assert.ErrorIs(t, err, types.ErrSearchFailed)
}
