package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_ReturnsOrganicResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"data":[
			{"title":"Joe's Cafe","url":"https://joescafe.example","description":"Cafe in Denver"},
			{"title":"Yelp","url":"https://yelp.example/joes"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
	resp, err := c.Search(context.Background(), "Joe's Cafe cafe Denver CO")

	require.NoError(t, err)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, "https://joescafe.example", resp.First())
}

func TestSearch_NoResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRateLimit(1000))
	resp, err := c.Search(context.Background(), "gibberish venue name")

	require.NoError(t, err)
	assert.Empty(t, resp.First())
}

func TestSearch_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"data":[{"url":"https://acme.example"}]}`))
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRateLimit(1000))
	resp, err := c.Search(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, "https://acme.example", resp.First())
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := c.Search(context.Background(), "acme")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

func TestResponse_First_Empty(t *testing.T) {
	var nilResp *Response
	assert.Empty(t, nilResp.First())
	assert.Empty(t, (&Response{}).First())
}
