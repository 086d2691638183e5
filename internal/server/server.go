// Package server wires together HTTP routes, the authentication gate, and the
// asset library. Go's net/http package builds servers via handler functions
// which receive http.ResponseWriter + *http.Request.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"photodrop/internal/config"
	"photodrop/internal/hmacauth"
	"photodrop/internal/library"
	"photodrop/internal/model"
)

// Server hosts the PhotoDrop HTTP surface. Every route except /health sits
// behind the HMAC gate; handlers only run for authenticated requests.
type Server struct {
	cfg     *config.Config
	lib     library.Library
	gate    *hmacauth.Gate
	metrics metrics
	server  *http.Server
	once    sync.Once
}

// New constructs a Server around a library backend.
func New(cfg *config.Config, lib library.Library) *Server {
	return &Server{
		cfg:  cfg,
		lib:  lib,
		gate: hmacauth.NewGate(cfg.SharedSecret),
	}
}

// Handler returns the fully wired route tree. Split out from Run so tests can
// drive the exact production handler through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	// The health check is deliberately mounted outside the auth chain.
	mux.HandleFunc("/health", s.handleHealth)
	protected := http.NewServeMux()
	protected.HandleFunc("/photos", s.handleList)
	protected.HandleFunc("/photos/", s.handlePhotoRoute)
	mux.Handle("/photos", s.gate.Middleware(protected))
	mux.Handle("/photos/", s.gate.Middleware(protected))
	return s.metrics.middleware(mux)
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Handler(),
		}
	})
	go func() {
		<-ctx.Done()
		// When the context is cancelled we gracefully shutdown with a timeout.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("photodrop server listening on %s", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		// since is decimal Unix seconds; fractional values are accepted for
		// compatibility with older clients that sent float timestamps.
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		since = time.Unix(0, int64(f*float64(time.Second))).UTC()
	}
	assets, err := s.lib.List(r.Context(), since)
	if err != nil {
		s.respondLibraryError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, model.ListResponse{Count: len(assets), Photos: assets})
}

// handlePhotoRoute dispatches /photos/{id}, /photos/{id}/download, and
// /photos/{id}/livephoto. Asset ids may contain percent-encoded slashes, so
// routing works on the escaped path and unescapes the id afterwards.
func (s *Server) handlePhotoRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rawID := strings.TrimPrefix(r.URL.EscapedPath(), "/photos/")
	var action string
	for _, suffix := range []string{"/download", "/livephoto"} {
		if strings.HasSuffix(rawID, suffix) {
			rawID = strings.TrimSuffix(rawID, suffix)
			action = suffix[1:]
			break
		}
	}
	id, err := url.PathUnescape(rawID)
	if err != nil || id == "" {
		respondError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	switch action {
	case "download":
		s.handleDownload(w, r, id)
	case "livephoto":
		s.handleLivePhoto(w, r, id)
	default:
		s.handleMetadata(w, r, id)
	}
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request, id string) {
	asset, err := s.lib.Get(r.Context(), id)
	if err != nil {
		s.respondLibraryError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, id string) {
	asset, err := s.lib.Get(r.Context(), id)
	if err != nil {
		s.respondLibraryError(w, r, err)
		return
	}
	export, err := s.lib.Export(r.Context(), id)
	if err != nil {
		s.respondLibraryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.Header().Set("Content-Disposition", "attachment; filename=\""+export.Filename+"\"")
	w.Header().Set("X-Original-Filename", export.Filename)
	w.Header().Set("X-Media-Type", string(asset.Kind))
	if asset.CreatedAt != nil {
		w.Header().Set("X-Creation-Date", asset.CreatedAt.UTC().Format(time.RFC3339))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Data); err != nil {
		log.Printf("write download %s: %v", id, err)
	}
}

func (s *Server) respondLibraryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		respondError(w, http.StatusNotFound, "asset not found")
	case errors.Is(err, library.ErrNotComposite):
		respondError(w, http.StatusBadRequest, "asset is not a live photo")
	case errors.Is(err, library.ErrUnavailable):
		log.Printf("asset store unavailable for %s %s: %v", r.Method, r.URL.Path, err)
		respondError(w, http.StatusServiceUnavailable, "asset store unavailable")
	default:
		log.Printf("internal error for %s %s: %v", r.Method, r.URL.Path, err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	// ResponseWriter exposes headers + status writing; once WriteHeader is
	// called we must send the body, so always set headers first.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode json failed: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
