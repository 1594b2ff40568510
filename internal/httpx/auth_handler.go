package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/auth"
	"github.com/recordly/record-store/internal/users"
)

type AuthHandler struct {
	Users  *users.Repo
	Tokens *auth.Manager
	Log    *zap.Logger
}

type loginRequest struct {
	Username string `json:"username"`
}

func (h *AuthHandler) Register(r *chi.Mux) {
	r.Post("/auth/login", h.login)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeFail(w, http.StatusBadRequest, "username is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeFail(w, http.StatusUnauthorized, "user not found")
			return
		}
		writeError(h.Log, w, err)
		return
	}

	token, err := h.Tokens.Sign(u.Username, u.Roles)
	if err != nil {
		h.Log.Error("token signing failed", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeOK(w, http.StatusOK, "login successful", map[string]string{"token": token})
}
