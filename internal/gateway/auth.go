package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ramavio/paperchat/internal/domain"
	"github.com/ramavio/paperchat/internal/store"
)

// tokenCookie is the opaque session cookie set at login.
const tokenCookie = "paperchat_token"

type ctxKey int

const userKey ctxKey = 0

// currentUser returns the authenticated user from the request context, or nil.
func currentUser(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userKey).(*domain.User)
	return u
}

// authMiddleware resolves the session cookie to a user and stores it in the
// request context. Resolution is best-effort; requireUser enforces presence.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
			if u := s.users.UserByToken(c.Value); u != nil {
				r = r.WithContext(context.WithValue(r.Context(), userKey, u))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireUser wraps a handler that needs an authenticated user.
func (s *Server) requireUser(next func(http.ResponseWriter, *http.Request, *domain.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		if u == nil {
			Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r, u)
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	u, err := s.users.Register(req.Username, req.Password)
	if errors.Is(err, store.ErrUsernameTaken) {
		Error(w, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("register failed")
		Error(w, http.StatusInternalServerError, "could not create account")
		return
	}

	s.startSession(w, r, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := s.users.Authenticate(req.Username, req.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		Error(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("login failed")
		Error(w, http.StatusInternalServerError, "could not log in")
		return
	}

	s.startSession(w, r, u)
}

// startSession mints a token, sets the cookie, and returns the user.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u *domain.User) {
	token, err := s.users.CreateToken(u.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("userId", u.ID).Msg("token creation failed")
		Error(w, http.StatusInternalServerError, "could not create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	JSON(w, http.StatusOK, map[string]any{
		"id":       u.ID,
		"username": u.Username,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
		s.users.DeleteToken(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, u *domain.User) {
	JSON(w, http.StatusOK, map[string]any{
		"id":       u.ID,
		"username": u.Username,
	})
}
