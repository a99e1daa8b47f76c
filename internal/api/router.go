// Package api exposes the read-only admin HTTP surface: health, login, and
// the accepted-applications listing. It never mutates review state.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ollkyy/scoutbot/internal/middleware"
	"github.com/ollkyy/scoutbot/internal/services"
)

const tokenTTL = 30 * 24 * time.Hour

type Router struct {
	review   *services.ReviewService
	passHash []byte
}

func NewRouter(review *services.ReviewService, adminPassword string) (*Router, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Router{review: review, passHash: hash}, nil
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", rt.handleHealth)                                          // GET
	mux.HandleFunc("/api/login", rt.handleLogin)                                         // POST
	mux.Handle("/api/accepted", middleware.RequireAuth(http.HandlerFunc(rt.handleAccepted))) // GET
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "name": "scoutbot admin API"})
}

// POST /api/login {"password": "..."} -> {"token": "..."}
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if bcrypt.CompareHashAndPassword(rt.passHash, []byte(req.Password)) != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	token, err := middleware.SignToken("reviewer", tokenTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// GET /api/accepted -> [{"identity": "42", "accepted_at": "..."}]
func (rt *Router) handleAccepted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries, err := rt.review.AcceptedList()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	type row struct {
		Identity   string    `json:"identity"`
		AcceptedAt time.Time `json:"accepted_at"`
	}
	out := make([]row, 0, len(entries))
	for _, e := range entries {
		out = append(out, row{Identity: e.Identity.String(), AcceptedAt: e.AcceptedAt})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
