package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/farmville-istec/farmville/internal/auth"
	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/store"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if len(req.Username) < 3 {
		writeError(w, r, http.StatusBadRequest, "INVALID_USERNAME", "username must be at least 3 characters")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, r, http.StatusBadRequest, "INVALID_PASSWORD", "password must be at least 6 characters")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, r, http.StatusBadRequest, "INVALID_EMAIL", "email is not valid")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not process registration")
		return
	}

	user, err := h.users.Create(r.Context(), models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, r, http.StatusConflict, "USER_EXISTS", "username or email already registered")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not create user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login. A bad username and a bad password produce
// the same response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}

	user, err := h.users.ByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "username or password incorrect")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Profile handles GET /auth/profile (protected).
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return
	}
	user, err := h.users.ByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "INVALID_TOKEN", "user no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
