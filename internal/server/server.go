// Package server exposes the demo launcher over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/iTrooz/ardemo/internal/cache"
	"github.com/iTrooz/ardemo/internal/config"
	"github.com/iTrooz/ardemo/internal/deeplink"
	"github.com/iTrooz/ardemo/internal/demo"
	"github.com/iTrooz/ardemo/internal/rules"
)

// Server represents the launcher HTTP service
type Server struct {
	config *config.Config
	router *demo.Router
	cache  cache.Provider
	logger *logrus.Logger
	mux    *mux.Router
}

type openRequest struct {
	URL string `json:"url"`
}

type linkResponse struct {
	URL string `json:"url"`
}

type sceneResponse struct {
	Index int                `json:"index"`
	Scene *demo.PanoramaItem `json:"scene"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a new launcher server
func New(cfg *config.Config, router *demo.Router, provider cache.Provider, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		config: cfg,
		router: router,
		cache:  provider,
		logger: logger,
	}

	r := mux.NewRouter()
	r.Use(s.requestLogger)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)
	r.HandleFunc("/open", s.handleOpen).Methods(http.MethodPost)
	r.HandleFunc("/link/{demo}", s.handleLink).Methods(http.MethodPost)
	r.HandleFunc("/panorama", s.handlePanorama).Methods(http.MethodGet)
	r.HandleFunc("/panorama", s.handleClosePanorama).Methods(http.MethodDelete)
	r.HandleFunc("/panorama/next", s.handleScene).Methods(http.MethodPost)
	r.HandleFunc("/panorama/previous", s.handleScene).Methods(http.MethodPost)
	r.HandleFunc("/panorama/scene/{index:[0-9]+}", s.handleScene).Methods(http.MethodPost)
	r.HandleFunc("/panorama/location/{id}", s.handleLocation).Methods(http.MethodPost)
	r.HandleFunc("/recent/{demo}", s.handleRecent).Methods(http.MethodGet)
	r.HandleFunc("/recent/{demo}", s.handleClearRecent).Methods(http.MethodDelete)
	r.HandleFunc("/cache", s.handleClearCache).Methods(http.MethodDelete)
	s.mux = r

	return s
}

// Handler returns the HTTP handler (exported for testing)
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until the listener fails
func (s *Server) Start() error {
	s.logger.Infof("Starting demo launcher on port %d", s.config.Server.Port)
	s.logger.Infof("Cache directory: %s", s.config.Cache.Folder)
	s.logger.Infof("Rules mode: %s", s.config.Rules.Mode)
	if s.config.Content.ProxyURL != "" {
		s.logger.Infof("Content proxy: %s", s.config.Content.ProxyURL)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, deeplink.ErrInvalidDeepLink)
		return
	}

	result, err := s.router.Open(r.Context(), req.URL)
	if err != nil {
		status := statusFor(err)
		entry(r).WithError(err).WithField("status", status).Warn("Failed to open deep link")
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleLink builds a deep link from form fields, the way the entry forms do
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var link *url.URL
	var err error

	switch deeplink.ParseDemo(mux.Vars(r)["demo"]) {
	case deeplink.DemoMug:
		var form deeplink.MugForm
		if err = json.NewDecoder(r.Body).Decode(&form); err != nil {
			break
		}
		var params *deeplink.MugParameters
		if params, err = form.Parameters(); err == nil {
			link = params.DeepLink(s.config.Content.Scheme)
		}
	case deeplink.DemoPanorama:
		var form deeplink.PanoramaForm
		if err = json.NewDecoder(r.Body).Decode(&form); err != nil {
			break
		}
		var params *deeplink.PanoramaParameters
		if params, err = form.Parameters(); err == nil {
			link = params.DeepLink(s.config.Content.Scheme)
		}
	default:
		writeError(w, http.StatusNotFound, deeplink.ErrUnknownDemo)
		return
	}

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{URL: link.String()})
}

func (s *Server) handlePanorama(w http.ResponseWriter, r *http.Request) {
	result, err := s.router.Panorama()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleClosePanorama(w http.ResponseWriter, r *http.Request) {
	s.router.ClosePanorama()
	w.WriteHeader(http.StatusNoContent)
}

// handleScene moves the open panorama to the next, previous or given scene
func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	result, err := s.router.Panorama()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	p := result.Panorama

	var item *demo.PanoramaItem
	switch {
	case strings.HasSuffix(r.URL.Path, "/next"):
		item, err = p.Next(r.Context())
	case strings.HasSuffix(r.URL.Path, "/previous"):
		item, err = p.Previous(r.Context())
	default:
		index, convErr := strconv.Atoi(mux.Vars(r)["index"])
		if convErr != nil {
			writeError(w, http.StatusBadRequest, demo.ErrInvalidIndex)
			return
		}
		item, err = p.Select(r.Context(), index)
	}
	if err != nil {
		status := statusFor(err)
		entry(r).WithError(err).WithField("status", status).Warn("Failed to change panorama scene")
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, sceneResponse{Index: p.Index(), Scene: item})
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	result, err := s.router.SwitchLocation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := statusFor(err)
		entry(r).WithError(err).WithField("status", status).Warn("Failed to switch panorama location")
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	d := deeplink.ParseDemo(mux.Vars(r)["demo"])
	list, ok := s.router.Recent(d)
	if !ok {
		writeError(w, http.StatusNotFound, deeplink.ErrUnknownDemo)
		return
	}

	items := list.Items()
	links := make([]string, 0, len(items))
	for _, u := range items {
		links = append(links, u.String())
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) handleClearRecent(w http.ResponseWriter, r *http.Request) {
	d := deeplink.ParseDemo(mux.Vars(r)["demo"])
	list, ok := s.router.Recent(d)
	if !ok {
		writeError(w, http.StatusNotFound, deeplink.ErrUnknownDemo)
		return
	}

	if err := list.Clear(); err != nil {
		entry(r).WithError(err).Error("Failed to clear recent links")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	entry(r).WithField("demo", d).Info("Cleared recent links")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(); err != nil {
		entry(r).WithError(err).Error("Failed to clear asset cache")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	entry(r).Info("Cleared asset cache")
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps pipeline errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case deeplink.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, demo.ErrInvalidIndex):
		return http.StatusBadRequest
	case errors.Is(err, rules.ErrServerNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, demo.ErrNoPanorama):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to write response body: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
