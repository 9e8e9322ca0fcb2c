package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/game-topup-api/internal/auth"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
}

type AuthHandler struct {
	Login   Authenticator
	Log     log.FieldLogger
	Timeout time.Duration
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginUser struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/login", h.login)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	res, err := h.Login.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	u := res.User
	writeJSON(w, http.StatusOK, loginResponse{
		Token: res.Token,
		User:  loginUser{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Status: u.Status},
	})
}
