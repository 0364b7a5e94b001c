package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/placescan/placescan/internal/model"
	"github.com/placescan/placescan/internal/orchestrate"
	"github.com/placescan/placescan/internal/scan"
	"github.com/placescan/placescan/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for scans and extraction",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		s := newServer(st, func(c *scan.Collector, sessionID string) *orchestrate.Orchestrator {
			return newOrchestrator(c, st, sessionID)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: s.routes(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// orchestratorFactory builds an orchestrator bound to a scanned collector
// and a session; injected so tests can supply stub search and fetch.
type orchestratorFactory func(c *scan.Collector, sessionID string) *orchestrate.Orchestrator

// server holds the API state: the store plus the current in-memory scan.
type server struct {
	st      store.Store
	newOrch orchestratorFactory

	mu        sync.Mutex
	sess      *model.Session
	collector *scan.Collector
	orch      *orchestrate.Orchestrator
}

func newServer(st store.Store, newOrch orchestratorFactory) *server {
	return &server{st: st, newOrch: newOrch}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/scan", s.handleScan)
	r.Get("/sessions/latest", s.handleLatestSession)
	r.Get("/sessions/{sessionID}", s.handleGetSession)
	r.Get("/sessions/{sessionID}/entries", s.handleListEntries)
	r.Post("/venues/{venueID}/extract", s.handleExtract)

	return r
}

func (s *server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input == "" {
		writeError(w, http.StatusBadRequest, "input path is required")
		return
	}

	collector, sess, err := runScan(r.Context(), s.st, req.Input)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	s.sess = sess
	s.collector = collector
	s.orch = s.newOrch(collector, sess.ID)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, sess)
}

func (s *server) handleLatestSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.st.LatestSession(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "no sessions recorded")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.st.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	filter := store.EntryFilter{
		Severity: model.Severity(r.URL.Query().Get("severity")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	entries, err := s.st.ListEntries(r.Context(), chi.URLParam(r, "sessionID"), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

func (s *server) handleExtract(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venueID")

	s.mu.Lock()
	orch := s.orch
	collector := s.collector
	s.mu.Unlock()

	if orch == nil {
		// No scan this process yet: restore the latest recorded session.
		sess, err := s.st.LatestSession(r.Context())
		if err != nil || sess == nil {
			writeError(w, http.StatusConflict, "no scan session available; POST /scan first")
			return
		}
		restored, err := restoreCollector(r.Context(), s.st, sess)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		// Concurrent requests may race through the restore; only one result
		// may be installed, or the per-identity in-flight guard would be
		// split across orchestrators.
		s.mu.Lock()
		if s.orch == nil {
			s.sess, s.collector, s.orch = sess, restored, s.newOrch(restored, sess.ID)
		}
		orch, collector = s.orch, s.collector
		s.mu.Unlock()
	}

	if _, ok := collector.Get(venueID); !ok {
		writeError(w, http.StatusNotFound, "venue not in scan results")
		return
	}
	if orch.InFlight(venueID) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"status": "already in flight", "venue_id": venueID,
		})
		return
	}

	// Extraction runs in the background and must outlive the request
	// context; the result lands on the entry and in the store.
	go func() {
		if err := orch.ExtractForVenue(context.Background(), venueID); err != nil {
			zap.L().Error("api extraction failed",
				zap.String("venue_id", venueID),
				zap.Error(err),
			)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted", "venue_id": venueID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
