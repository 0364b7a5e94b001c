package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placescan/placescan/internal/model"
	"github.com/placescan/placescan/internal/orchestrate"
	"github.com/placescan/placescan/internal/scan"
	"github.com/placescan/placescan/internal/store"
	"github.com/placescan/placescan/pkg/websearch"
)

type stubSearch struct{ url string }

func (s stubSearch) Search(_ context.Context, _ string) (*websearch.Response, error) {
	if s.url == "" {
		return &websearch.Response{}, nil
	}
	return &websearch.Response{Data: []websearch.Result{{URL: s.url}}}, nil
}

type stubFetcher struct{ markup string }

func (f stubFetcher) Fetch(_ context.Context, _ string) (string, error) {
	return f.markup, nil
}

func newTestServer(t *testing.T) (*server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	factory := func(c *scan.Collector, sessionID string) *orchestrate.Orchestrator {
		return orchestrate.New(c,
			stubSearch{url: "https://joescafe.example"},
			stubFetcher{markup: `<script type="application/ld+json">
				{"@type":"Restaurant","telephone":"303-555-0147"}</script>`},
			orchestrate.WithStore(st, sessionID),
		)
	}
	return newServer(st, factory), st
}

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"location": {"city": "Denver", "state": "Colorado", "state_abbr": "CO"},
		"venues": [
			{"id": "v1", "name": "Joe's Cafe", "categories": ["CAFE"]},
			{"id": "v2", "name": "Acme Garage", "phone": "555-1234", "url": "https://acme.example"},
			{"id": "v3", "name": "", "phone": "555-9999"}
		]
	}`), 0o644))
	return path
}

func postScan(t *testing.T, ts *httptest.Server, input string) map[string]any {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"input": input})
	resp, err := http.Post(ts.URL+"/scan", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sess map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	return sess
}

func TestServe_Health(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_ScanAndListEntries(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	sess := postScan(t, ts, writeExport(t))
	assert.Equal(t, float64(2), sess["scanned"])
	assert.Equal(t, float64(1), sess["skipped"])
	sessionID := sess["id"].(string)

	resp, err := http.Get(ts.URL + "/sessions/" + sessionID + "/entries?severity=critical")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Count   int `json:"count"`
		Entries []struct {
			Venue struct {
				Name string `json:"name"`
			} `json:"venue"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Joe's Cafe", out.Entries[0].Venue.Name)
}

func TestServe_LatestSession(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/sessions/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	sess := postScan(t, ts, writeExport(t))

	resp, err = http.Get(ts.URL + "/sessions/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var latest map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&latest))
	assert.Equal(t, sess["id"], latest["id"])
}

func TestServe_ScanBadRequest(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/scan", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServe_ExtractVenue(t *testing.T) {
	s, st := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	sess := postScan(t, ts, writeExport(t))
	sessionID := sess["id"].(string)

	resp, err := http.Post(ts.URL+"/venues/v1/extract", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// The extraction runs in the background and persists to the store.
	require.Eventually(t, func() bool {
		entries, err := st.ListEntries(context.Background(), sessionID, store.EntryFilter{})
		if err != nil {
			return false
		}
		for _, e := range entries {
			if e.Venue.ID == "v1" && e.Extraction != nil {
				return e.Extraction.Phone == "303-555-0147"
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServe_ExtractUnknownVenue(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	postScan(t, ts, writeExport(t))

	resp, err := http.Post(ts.URL+"/venues/missing/extract", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// gatedStore holds every LatestSession call until two have arrived, so
// two concurrent restore paths are guaranteed to overlap.
type gatedStore struct {
	store.Store
	arrivals atomic.Int32
	gate     chan struct{}
}

func (g *gatedStore) LatestSession(ctx context.Context) (*model.Session, error) {
	if g.arrivals.Add(1) == 2 {
		close(g.gate)
	}
	select {
	case <-g.gate:
	case <-time.After(2 * time.Second):
	}
	return g.Store.LatestSession(ctx)
}

// countingSearch blocks in-flight until released and counts calls.
type countingSearch struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *countingSearch) Search(ctx context.Context, _ string) (*websearch.Response, error) {
	s.calls.Add(1)
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return &websearch.Response{}, nil
}

func TestServe_ConcurrentRestoreSharesOneOrchestrator(t *testing.T) {
	base, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })
	require.NoError(t, base.Migrate(context.Background()))

	gated := &gatedStore{Store: base, gate: make(chan struct{})}
	search := &countingSearch{release: make(chan struct{})}

	s := newServer(gated, func(c *scan.Collector, sessionID string) *orchestrate.Orchestrator {
		return orchestrate.New(c, search, stubFetcher{}, orchestrate.WithStore(base, sessionID))
	})
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	postScan(t, ts, writeExport(t))

	// Simulate a fresh process: both extract requests must restore.
	s.mu.Lock()
	s.sess, s.collector, s.orch = nil, nil, nil
	s.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(ts.URL+"/venues/v1/extract", "application/json", nil)
			if err == nil {
				resp.Body.Close()
				// The loser of the in-flight race may see 409; both are fine.
				assert.Contains(t, []int{http.StatusAccepted, http.StatusConflict}, resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	// One attempt is blocked inside the search; the duplicate for the same
	// identity must share its in-flight marker and stay a no-op. A split
	// orchestrator would issue a second search here.
	require.Eventually(t, func() bool { return search.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), search.calls.Load())

	close(search.release)
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.orch != nil && !s.orch.InFlight("v1")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServe_ExtractWithoutScanRestoresLatest(t *testing.T) {
	s, st := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	// Record a session, then simulate a fresh process by clearing the
	// in-memory state.
	sess := postScan(t, ts, writeExport(t))
	sessionID := sess["id"].(string)
	s.mu.Lock()
	s.sess, s.collector, s.orch = nil, nil, nil
	s.mu.Unlock()

	resp, err := http.Post(ts.URL+"/venues/v1/extract", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		entries, err := st.ListEntries(context.Background(), sessionID, store.EntryFilter{})
		if err != nil {
			return false
		}
		for _, e := range entries {
			if e.Venue.ID == "v1" && e.Extraction != nil {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
