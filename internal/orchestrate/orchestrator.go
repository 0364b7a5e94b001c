// Package orchestrate sequences the per-venue lookup: build a search
// query, take the first organic result, fetch it, and run the content
// extractor. Every attempt resolves to a stored result; no failure here
// is fatal.
package orchestrate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/placescan/placescan/internal/extract"
	"github.com/placescan/placescan/internal/fetch"
	"github.com/placescan/placescan/internal/model"
	"github.com/placescan/placescan/internal/query"
	"github.com/placescan/placescan/internal/scan"
	"github.com/placescan/placescan/internal/store"
	"github.com/placescan/placescan/pkg/websearch"
)

// Human-readable error reasons stored on failed attempts. A timeout is
// distinct from a transport failure, but both terminate the sequence the
// same way.
const (
	ReasonNoResults     = "No search results found"
	ReasonSearchFailed  = "Search request failed"
	ReasonSearchTimeout = "Search request timed out"
	ReasonFetchFailed   = "Website fetch failed"
	ReasonFetchTimeout  = "Website fetch timed out"
)

// DefaultStageTimeout bounds the search request and the page fetch
// independently.
const DefaultStageTimeout = 10 * time.Second

// Orchestrator coordinates search, fetch, and extraction per venue.
type Orchestrator struct {
	collector *scan.Collector
	search    websearch.Client
	fetcher   fetch.Fetcher
	timeout   time.Duration

	// Optional persistence of extraction updates.
	store     store.Store
	sessionID string

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithStageTimeout overrides the per-stage timeout.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// WithStore persists extraction updates to a session's entries.
func WithStore(st store.Store, sessionID string) Option {
	return func(o *Orchestrator) {
		o.store = st
		o.sessionID = sessionID
	}
}

// New creates an Orchestrator over a scanned collector.
func New(collector *scan.Collector, search websearch.Client, fetcher fetch.Fetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		collector: collector,
		search:    search,
		fetcher:   fetcher,
		timeout:   DefaultStageTimeout,
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// InFlight reports whether an extraction is currently running for the
// venue identity.
func (o *Orchestrator) InFlight(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inflight[id]
	return ok
}

// ExtractForVenue runs the lookup sequence for one venue. A second call
// while one is in flight for the same identity is a no-op; attempts for
// distinct venues are independent. The outcome, success or error, is
// stored on the venue's scan entry, and a retry replaces it entirely.
func (o *Orchestrator) ExtractForVenue(ctx context.Context, id string) error {
	entry, ok := o.collector.Get(id)
	if !ok {
		return eris.Errorf("orchestrate: no scan entry for venue %s", id)
	}

	o.mu.Lock()
	if _, running := o.inflight[id]; running {
		o.mu.Unlock()
		zap.L().Info("orchestrate: extraction already in flight, skipping",
			zap.String("venue_id", id),
		)
		return nil
	}
	o.inflight[id] = struct{}{}
	o.mu.Unlock()

	// Every exit path must clear the marker.
	defer func() {
		o.mu.Lock()
		delete(o.inflight, id)
		o.mu.Unlock()
	}()

	q := query.Build(entry.Venue.Name, entry.Venue.Categories, entry.Location.City, entry.Location.StateAbbr)

	sctx, cancel := context.WithTimeout(ctx, o.timeout)
	resp, err := o.search.Search(sctx, q)
	cancel()
	if err != nil {
		o.record(ctx, id, &model.ExtractionResult{
			Err:         stageReason(err, ReasonSearchTimeout, ReasonSearchFailed),
			SearchQuery: q,
		})
		return nil
	}

	siteURL := resp.First()
	if siteURL == "" {
		o.record(ctx, id, &model.ExtractionResult{
			Err:         ReasonNoResults,
			SearchQuery: q,
		})
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, o.timeout)
	markup, err := o.fetcher.Fetch(fctx, siteURL)
	cancel()
	if err != nil {
		o.record(ctx, id, &model.ExtractionResult{
			Err:         stageReason(err, ReasonFetchTimeout, ReasonFetchFailed),
			SearchQuery: q,
			SourceURL:   siteURL,
		})
		return nil
	}

	result := &model.ExtractionResult{
		Method:      model.MethodNone,
		SearchQuery: q,
		SourceURL:   siteURL,
	}
	if ex := extract.Extract(markup); ex != nil {
		result.Method = ex.Method
		result.Phone = ex.Phone
		result.Website = ex.Website
		result.Address = ex.Address
		result.Name = ex.Name
	}

	o.record(ctx, id, result)
	return nil
}

// ExtractAll runs extraction for every incomplete entry, worst severity
// first, with bounded concurrency.
func (o *Orchestrator) ExtractAll(ctx context.Context, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, entry := range o.collector.Entries() {
		if entry.Analysis.Severity == model.SeverityComplete {
			continue
		}
		id := entry.Venue.ID
		g.Go(func() error {
			return o.ExtractForVenue(gCtx, id)
		})
	}

	return g.Wait()
}

// record stores the result on the venue's entry and persists it when a
// store is configured.
func (o *Orchestrator) record(ctx context.Context, id string, res *model.ExtractionResult) {
	o.collector.AttachExtraction(id, res)

	if res.Failed() {
		zap.L().Warn("orchestrate: extraction failed",
			zap.String("venue_id", id),
			zap.String("reason", res.Err),
			zap.String("query", res.SearchQuery),
		)
	} else {
		zap.L().Info("orchestrate: extraction complete",
			zap.String("venue_id", id),
			zap.String("method", string(res.Method)),
			zap.String("source_url", res.SourceURL),
		)
	}

	if o.store != nil {
		if err := o.store.UpdateExtraction(ctx, o.sessionID, id, res); err != nil {
			zap.L().Warn("orchestrate: persist extraction failed",
				zap.String("venue_id", id),
				zap.Error(err),
			)
		}
	}
}

// stageReason maps a stage error to its stored reason, distinguishing
// timeouts from transport failures.
func stageReason(err error, timeoutReason, failureReason string) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutReason
	}
	return failureReason
}
