package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/taskapp/apiserver/internal/auth"
	"github.com/taskapp/apiserver/internal/services"
	"github.com/taskapp/apiserver/internal/store"
)

// AuthHandler provides the /auth endpoints: registration, login, profile
// CRUD, and token-based identity resolution.
type AuthHandler struct {
	userService *services.UserService
	authService *auth.Service
	resolver    *auth.Resolver
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, authService *auth.Service, resolver *auth.Resolver) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		resolver:    resolver,
	}
}

// AuthRouter registers auth routes on the given router.
//
// The user CRUD routes require a valid token but perform no ownership
// check: any authenticated caller can read, edit, or delete any user.
func AuthRouter(r chi.Router, userService *services.UserService, authService *auth.Service, resolver *auth.Resolver) {
	handler := NewAuthHandler(userService, authService, resolver)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.Get("/me", handler.Me)
	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAuth)
		r.Get("/validate-token", handler.ValidateToken)
		r.Get("/users", handler.ListUsers)
		r.Route("/user/{userID}", func(r chi.Router) {
			r.Get("/", handler.GetUser)
			r.Put("/", handler.UpdateUser)
			r.Delete("/", handler.DeleteUser)
		})
	})
}

// RequireAuth enforces token authentication and injects the subject into
// the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := h.resolver.Verify(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextSubjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.authService.Register(r.Context(), auth.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Gender:   req.Gender,
		AboutMe:  req.AboutMe,
		Password: req.Password,
	})
	if err != nil {
		var validationErr *auth.ValidationError
		if errors.As(err, &validationErr) {
			writeJSON(w, http.StatusBadRequest, RegisterErrorResponse{
				Message: "user registration failed",
				Errors:  validationErr.Errors,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{
		Message: "user registered successfully",
		UserID:  user.ID,
	})
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	token, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message: "Welcome, " + user.Name,
		Token:   token,
	})
}

// Logout acknowledges a logout. Tokens are self-contained and the server
// keeps no revocation state, so the client discards the token itself.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := bearerToken(r); err != nil {
		writeError(w, http.StatusBadRequest, "token is missing")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// Me resolves the bearer token to the current user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	tokenString, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "token is missing")
		return
	}

	user, err := h.resolver.Resolve(r.Context(), tokenString)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, "invalid token")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to load user")
		}
		return
	}

	writeJSON(w, http.StatusOK, UserDetails{
		Name:    user.Name,
		Email:   user.Email,
		Gender:  user.Gender,
		AboutMe: user.AboutMe,
	})
}

// ValidateToken reports success for any request that passed RequireAuth.
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "token is valid"})
}

// ListUsers returns all users.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	details := make([]UserDetails, 0, len(users))
	for _, user := range users {
		details = append(details, UserDetails{
			ID:      user.ID,
			Name:    user.Name,
			Email:   user.Email,
			Gender:  user.Gender,
			AboutMe: user.AboutMe,
		})
	}
	writeJSON(w, http.StatusOK, details)
}

// GetUser returns a single user's profile by id.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, UserDetails{
		Name:    user.Name,
		Email:   user.Email,
		Gender:  user.Gender,
		AboutMe: user.AboutMe,
	})
}

// UpdateUser replaces the mutable profile fields of a user.
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), id, services.ProfileUpdate{
		Name:    req.Name,
		Email:   req.Email,
		Gender:  req.Gender,
		AboutMe: req.AboutMe,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, store.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, store.ErrDuplicateEmail.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	writeJSON(w, http.StatusOK, UserDetails{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Gender:  user.Gender,
		AboutMe: user.AboutMe,
	})
}

// DeleteUser removes a user.
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "user deleted successfully"})
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	AboutMe  string `json:"aboutMe"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type RegisterErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type UpdateUserRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Gender  string `json:"gender"`
	AboutMe string `json:"aboutMe"`
}

// UserDetails is the public projection of a user. ID is omitted on the
// single-user and me endpoints, matching the list/update payloads only.
type UserDetails struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Gender  string `json:"gender"`
	AboutMe string `json:"aboutMe"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
