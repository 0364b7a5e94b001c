package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/placescan/placescan/internal/fetch"
	"github.com/placescan/placescan/internal/model"
	"github.com/placescan/placescan/internal/orchestrate"
	"github.com/placescan/placescan/internal/scan"
	"github.com/placescan/placescan/internal/source"
	"github.com/placescan/placescan/internal/store"
	"github.com/placescan/placescan/pkg/websearch"
)

// initStore opens the configured store backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func newSearchClient() websearch.Client {
	opts := []websearch.Option{
		websearch.WithBaseURL(cfg.Search.BaseURL),
		websearch.WithRateLimit(cfg.Search.RatePerSec),
	}
	if cfg.Search.TimeoutSecs > 0 {
		opts = append(opts, websearch.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Search.TimeoutSecs) * time.Second,
		}))
	}
	return websearch.NewClient(cfg.Search.Key, opts...)
}

func newFetcher() fetch.Fetcher {
	var opts []fetch.Option
	if cfg.Fetch.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(cfg.Fetch.UserAgent))
	}
	if cfg.Fetch.TimeoutSecs > 0 {
		opts = append(opts, fetch.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		}))
	}
	return fetch.New(opts...)
}

// runScan loads a venue export, scans it, and persists a new session with
// its entries.
func runScan(ctx context.Context, st store.Store, inputPath string) (*scan.Collector, *model.Session, error) {
	exp, err := source.Load(inputPath)
	if err != nil {
		return nil, nil, err
	}

	collector := scan.NewCollector()
	scanned, skipped := collector.Scan(exp.Venues, exp.Location)

	sess, err := st.CreateSession(ctx, exp.Location, scanned, skipped)
	if err != nil {
		return nil, nil, err
	}
	if err := st.SaveEntries(ctx, sess.ID, collector.Entries()); err != nil {
		return nil, nil, err
	}
	return collector, sess, nil
}

// restoreCollector rebuilds an in-memory collector from a stored session's
// entries. Analysis is recomputed; it is deterministic over the venue
// snapshot, so the severities match what was stored.
func restoreCollector(ctx context.Context, st store.Store, sess *model.Session) (*scan.Collector, error) {
	entries, err := st.ListEntries(ctx, sess.ID, store.EntryFilter{})
	if err != nil {
		return nil, err
	}
	venues := make([]model.Venue, 0, len(entries))
	for _, e := range entries {
		venues = append(venues, e.Venue)
	}
	collector := scan.NewCollector()
	collector.Scan(venues, sess.Location)
	return collector, nil
}

// resolveSession returns the named session, or the most recent one when id
// is empty.
func resolveSession(ctx context.Context, st store.Store, id string) (*model.Session, error) {
	if id != "" {
		return st.GetSession(ctx, id)
	}
	sess, err := st.LatestSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, eris.New("no sessions recorded yet; run a scan first")
	}
	return sess, nil
}

func newOrchestrator(collector *scan.Collector, st store.Store, sessionID string) *orchestrate.Orchestrator {
	var opts []orchestrate.Option
	if st != nil {
		opts = append(opts, orchestrate.WithStore(st, sessionID))
	}
	if cfg.Search.TimeoutSecs > 0 {
		opts = append(opts, orchestrate.WithStageTimeout(time.Duration(cfg.Search.TimeoutSecs)*time.Second))
	}
	return orchestrate.New(collector, newSearchClient(), newFetcher(), opts...)
}
