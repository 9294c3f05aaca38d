// Package server is the small HTTP surface for capturing user-granted
// directory tokens: an alternative to pasting the token into the chat for
// deployments that front the bot with their own OAuth redirect page.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kamaqiyasov/vkinder/internal/app"
	"github.com/kamaqiyasov/vkinder/internal/config"
	"github.com/kamaqiyasov/vkinder/internal/repository"
)

type Server struct {
	http  *http.Server
	users *repository.UserRepository
	log   *slog.Logger
}

func New(cfg *config.Config, appCtx *app.AppContext) *Server {
	s := &Server{
		users: repository.NewUserRepository(appCtx.DB),
		log:   appCtx.Logger.With("component", "http"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/vk/callback", s.handleCallback).Methods(http.MethodGet)
	r.HandleFunc("/token/{userID:[0-9]+}", s.handleTokenStatus).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("token capture server listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCallback stores the token granted by the user.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("access_token")
	userIDStr := r.URL.Query().Get("user_id")

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if token == "" || err != nil || userID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "access_token and user_id are required"})
		return
	}

	if err := s.users.SetToken(r.Context(), userID, token); err != nil {
		s.log.Error("token store failed", "user", userID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not store token"})
		return
	}

	s.log.Info("user token captured", "user", userID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Token saved. You can return to the chat.")
}

// handleTokenStatus reports whether a token is on file, never the token
// itself.
func (s *Server) handleTokenStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["userID"], 10, 64)
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad user id"})
		return
	}

	token, err := s.users.GetToken(r.Context(), userID)
	if err != nil {
		s.log.Error("token lookup failed", "user", userID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   userID,
		"has_token": token != "",
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
