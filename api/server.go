package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/click-battler/game/coordinator"
	"github.com/wricardo/click-battler/game/engine"
	"github.com/wricardo/click-battler/game/service"
)

// Server represents the REST API server
type Server struct {
	service   service.GameService
	chat      http.Handler
	staticDir string
	router    *mux.Router
	logger    *zap.Logger
}

// NewServer creates a new API server. chat is mounted at /chat when non-nil
// and staticDir is served at / when non-empty.
func NewServer(gameService service.GameService, chat http.Handler, staticDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service:   gameService,
		chat:      chat,
		staticDir: staticDir,
		router:    mux.NewRouter(),
		logger:    logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	// World
	s.router.HandleFunc("/api/world", s.handleGetWorld).Methods("GET")
	s.router.HandleFunc("/api/world/players/{id}", s.handleGetPlayer).Methods("GET")

	// Server
	s.router.HandleFunc("/api/stats", s.handleGetStats).Methods("GET")
	s.router.HandleFunc("/api/rules", s.handleGetRules).Methods("GET")

	// Rulesets
	s.router.HandleFunc("/api/rulesets", s.handleListRulesets).Methods("GET")
	s.router.HandleFunc("/api/rulesets", s.handleCreateRuleset).Methods("POST")
	s.router.HandleFunc("/api/rulesets/reload", s.handleReloadRulesets).Methods("POST")
	s.router.HandleFunc("/api/rulesets/{name}", s.handleGetRuleset).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// WebSocket
	if s.chat != nil {
		s.router.Handle("/chat", s.chat)
	}

	// Static files
	if s.staticDir != "" {
		// GET only, so wrong methods on API routes still get a 405
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir))).Methods("GET", "HEAD")
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPlayerNotFound), errors.Is(err, service.ErrRulesetNotFound):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrCoordinatorStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrNoRulesDir):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// World Handlers

func (s *Server) handleGetWorld(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetWorld(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid player id %q", raw))
		return
	}

	player, err := s.service.GetPlayer(r.Context(), engine.PlayerID(id))
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, player)
}

// Server Handlers

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetStats(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.service.GetRules(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

// Ruleset Handlers

func (s *Server) handleListRulesets(w http.ResponseWriter, r *http.Request) {
	rulesets, err := s.service.ListRulesets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rulesets": rulesets,
		"count":    len(rulesets),
	})
}

func (s *Server) handleReloadRulesets(w http.ResponseWriter, r *http.Request) {
	rulesets, err := s.service.ReloadRulesets(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rulesets": rulesets,
		"count":    len(rulesets),
	})
}

func (s *Server) handleGetRuleset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	rules, err := s.service.LoadRuleset(r.Context(), name)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateRuleset(w http.ResponseWriter, r *http.Request) {
	// Missing fields keep their classic value
	rules := engine.DefaultRules()
	rules.Name = ""
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if rules.Name == "" {
		respondError(w, http.StatusBadRequest, "Ruleset name is required")
		return
	}
	if err := engine.ValidateRules(&rules); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.SaveRuleset(r.Context(), rules.Name, &rules); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save ruleset: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Ruleset saved successfully",
		"ruleset_id": rules.Name,
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
