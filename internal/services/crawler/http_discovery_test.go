package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

func testOptions(baseURL string, pages int) Options {
	return Options{
		BaseURL:        baseURL,
		UserAgent:      "bookagent-test",
		PagesToScrape:  pages,
		DetailTimeout:  2 * time.Second,
		RequestTimeout: 5 * time.Second,
		ExtraHeaders:   map[string]string{"Accept-Language": "en-AU"},
	}
}

func TestHTTPDiscovery_SearchPaginatesUntilEmptyPage(t *testing.T) {
	var requests int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, "bookagent-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "en-AU", r.Header.Get("Accept-Language"))
		assert.Equal(t, "mars", r.URL.Query().Get("s"))
		_, _ = w.Write([]byte(searchPageHTML(
			productHTML("The Martian", "/product/the-martian-andy-weir/", salePrice, ""),
			productHTML("Red Mars", "/product/red-mars-kim-stanley-robinson/", plainPrice, ""),
		)))
	})
	mux.HandleFunc("/page/2/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte(searchPageHTML(
			productHTML("Mars Rising", "/product/mars-rising-jane-doe/", plainPrice, ""),
		)))
	})
	mux.HandleFunc("/page/3/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte(searchPageHTML()))
	})
	mux.HandleFunc("/page/4/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("pagination continued past an empty page")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	gateway := NewHTTPDiscovery(testOptions(server.URL, 5), server.Client(), arbor.NewLogger())
	session, err := gateway.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	books, err := session.Search(context.Background(), "mars")
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "The Martian", books[0].Title)
	assert.Equal(t, "Mars Rising", books[2].Title)
	assert.Equal(t, server.URL+"/product/mars-rising-jane-doe/", books[2].ProductURL)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestHTTPDiscovery_SearchRespectsPageLimit(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte(searchPageHTML(
			productHTML("The Martian", "/product/the-martian-andy-weir/", plainPrice, ""),
		)))
	}))
	defer server.Close()

	gateway := NewHTTPDiscovery(testOptions(server.URL, 2), server.Client(), arbor.NewLogger())
	session, err := gateway.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	books, err := session.Search(context.Background(), "mars")
	require.NoError(t, err)
	assert.Len(t, books, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestHTTPDiscovery_MissingLaterPageEndsSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(searchPageHTML(
			productHTML("The Martian", "/product/the-martian-andy-weir/", plainPrice, ""),
		)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	gateway := NewHTTPDiscovery(testOptions(server.URL, 3), server.Client(), arbor.NewLogger())
	session, err := gateway.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	books, err := session.Search(context.Background(), "mars")
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestHTTPDiscovery_SearchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	gateway := NewHTTPDiscovery(testOptions(server.URL, 2), server.Client(), arbor.NewLogger())
	session, err := gateway.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Search(context.Background(), "mars")
	assert.Error(t, err)
}

func TestHTTPDiscovery_FetchDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/product/the-martian-andy-weir/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="woocommerce-tabs--description-content"><p>Mark Watney is stranded. He survives.</p></div></body></html>`))
	})
	mux.HandleFunc("/product/slow-book-someone/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	opts := testOptions(server.URL, 1)
	opts.DetailTimeout = 100 * time.Millisecond
	gateway := NewHTTPDiscovery(opts, server.Client(), arbor.NewLogger())
	session, err := gateway.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	detail, err := session.FetchDetail(context.Background(), models.Book{
		Title:      "The Martian",
		ProductURL: server.URL + "/product/the-martian-andy-weir/",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mark Watney is stranded.", detail)

	_, err = session.FetchDetail(context.Background(), models.Book{
		Title:      "Slow",
		ProductURL: server.URL + "/product/slow-book-someone/",
	})
	assert.Error(t, err)

	_, err = session.FetchDetail(context.Background(), models.Book{Title: "No URL"})
	assert.Error(t, err)
}

func TestHTTPDiscovery_OpenCancelled(t *testing.T) {
	gateway := NewHTTPDiscovery(testOptions("http://127.0.0.1:1", 1), nil, arbor.NewLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gateway.Open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
