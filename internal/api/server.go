package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nki-one/quoteintake/internal/attachment"
	"github.com/nki-one/quoteintake/internal/auth"
	"github.com/nki-one/quoteintake/internal/config"
	"github.com/nki-one/quoteintake/internal/intake"
	"github.com/nki-one/quoteintake/internal/quotelog"
	"github.com/nki-one/quoteintake/internal/sse"
)

type Server struct {
	cfg    config.Config
	intake *intake.Service
	store  *quotelog.Store
	auth   *auth.Manager
	hub    *sse.Hub
	logger *slog.Logger
	mux    *http.ServeMux
	static http.Handler
}

func NewServer(cfg config.Config, intakeService *intake.Service, store *quotelog.Store, authManager *auth.Manager, hub *sse.Hub, logger *slog.Logger) *Server {
	server := &Server{
		cfg:    cfg,
		intake: intakeService,
		store:  store,
		auth:   authManager,
		hub:    hub,
		logger: logger,
	}
	if info, err := os.Stat(cfg.PublicDir); err == nil && info.IsDir() {
		server.static = http.FileServer(http.Dir(cfg.PublicDir))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/quote", server.handleQuote)
	mux.HandleFunc("/api/quote-logs", server.handleQuoteLogs)
	mux.HandleFunc("/api/quote-logs/", server.handleQuoteLog)
	mux.HandleFunc("/api/admin/login", server.handleAdminLogin)
	mux.HandleFunc("/api/admin/logout", server.handleAdminLogout)
	server.mux = mux
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		s.mux.ServeHTTP(w, r)
		return
	}
	if r.URL.Path == "/health" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	if s.static != nil {
		s.static.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

type quoteRequest struct {
	Name        string             `json:"name"`
	Company     string             `json:"company"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	Service     string             `json:"service"`
	Message     string             `json:"message"`
	Attachments []attachment.Input `json:"attachments"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.BodyLimit)

	var payload quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	if strings.TrimSpace(payload.Name) == "" ||
		strings.TrimSpace(payload.Email) == "" ||
		strings.TrimSpace(payload.Service) == "" {
		s.respondError(w, http.StatusBadRequest, "missing required fields", "")
		return
	}

	result, err := s.intake.Submit(r.Context(), intake.Submission{
		Name:        payload.Name,
		Company:     payload.Company,
		Email:       payload.Email,
		Phone:       payload.Phone,
		Service:     payload.Service,
		Message:     payload.Message,
		Attachments: payload.Attachments,
	})
	if err != nil {
		s.logger.Error("quote submission failed", "error", err, "email", payload.Email)
		s.respondError(w, http.StatusInternalServerError, "mail delivery failed", err.Error())
		return
	}

	response := map[string]any{"ok": true, "messageId": result.MessageID}
	if result.Preview != "" {
		response["preview"] = result.Preview
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleQuoteLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	// The default applies only when the parameter is absent or unparsable;
	// an explicit limit=0 is honored and yields an empty page.
	limit := quotelog.DefaultTailLimit
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}
	entries, err := s.store.Tail(limit)
	if err != nil {
		s.logger.Error("quote log read failed", "error", err)
	}
	if entries == nil {
		entries = []quotelog.Entry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "logs": entries})
}

func (s *Server) handleQuoteLog(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/quote-logs/")
	if rest == "stream" {
		s.handleStream(w, r)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid id", "")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var patch quotelog.Patch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid JSON", "")
			return
		}
		entry, err := s.store.Update(id, patch)
		if errors.Is(err, quotelog.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "not found", "")
			return
		}
		if err != nil {
			s.logger.Error("quote log update failed", "id", id, "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to update", "")
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "entry": entry})

	case http.MethodDelete:
		removed, err := s.store.Delete(id)
		if errors.Is(err, quotelog.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "not found", "")
			return
		}
		if err != nil {
			s.logger.Error("quote log delete failed", "id", id, "error", err)
			s.respondError(w, http.StatusInternalServerError, "failed to delete", "")
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": removed})

	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(payload)
			flusher.Flush()
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		}
	}
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	var payload struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	now := time.Now()
	token, err := s.auth.Login(payload.Password, now)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials", "")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.auth.CookieName(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.auth.MaxAge().Seconds()),
		Expires:  now.Add(s.auth.MaxAge()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.auth.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// requireAdmin gates the admin endpoints when a password is configured.
// Without one the admin surface stays open, for deployments that put their
// own access control in front.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !s.auth.Enabled() {
		return true
	}
	cookie, err := r.Cookie(s.auth.CookieName())
	if err != nil || s.auth.Verify(cookie.Value, time.Now()) != nil {
		s.respondError(w, http.StatusUnauthorized, "unauthorized", "")
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondError(w http.ResponseWriter, status int, errMsg, detail string) {
	payload := map[string]any{"error": errMsg}
	if detail != "" {
		payload["message"] = detail
	}
	s.respondJSON(w, status, payload)
}
