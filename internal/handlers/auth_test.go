package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/taskapp/apiserver/internal/auth"
	"github.com/taskapp/apiserver/internal/services"
	"github.com/taskapp/apiserver/internal/store"
	"github.com/taskapp/apiserver/types"
)

// memoryRepo is an in-memory user repository backing the handler tests.
// It enforces case-insensitive email uniqueness like the real database.
type memoryRepo struct {
	users map[string]types.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[string]types.User{}}
}

func (m *memoryRepo) GetByID(ctx context.Context, id string) (types.User, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memoryRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryRepo) List(ctx context.Context) ([]types.User, error) {
	users := []types.User{}
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *memoryRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := m.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, existing := range m.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func newTestRouter(t *testing.T) (*chi.Mux, *memoryRepo) {
	t.Helper()

	repo := newMemoryRepo()
	cfg := auth.Config{
		Secret:   []byte("test-secret"),
		Issuer:   "taskapp",
		Audience: "taskapp-web",
		TokenTTL: time.Hour,
	}

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, services.NewUserService(repo), auth.NewService(repo, cfg), auth.NewResolver(repo, cfg))
	})
	return router, repo
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func registerAnn(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "a@x.com",
		Name:     "Ann",
		Gender:   "Female",
		AboutMe:  "hi",
		Password: "Secret123!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	userID, _ := body["userId"].(string)
	require.NotEmpty(t, userID)
	return userID
}

func loginAnn(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "a@x.com",
		Password: "Secret123!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterLoginMe(t *testing.T) {
	router, _ := newTestRouter(t)

	registerAnn(t, router)

	rec := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "a@x.com",
		Password: "Secret123!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "Welcome, Ann", body["message"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)
	require.Equal(t, "Ann", me["name"])
	require.Equal(t, "a@x.com", me["email"])
	require.Equal(t, "Female", me["gender"])
	require.Equal(t, "hi", me["aboutMe"])
	require.NotContains(t, me, "id")
}

func TestRegister_MissingFields(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Gender: "Female",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body RegisterErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "user registration failed", body.Message)
	require.Len(t, body.Errors, 3)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	registerAnn(t, router)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "A@X.COM",
		Name:     "Other Ann",
		Password: "Another123!",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body RegisterErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Errors, store.ErrDuplicateEmail.Error())
}

func TestLogin_UniformFailureResponse(t *testing.T) {
	router, _ := newTestRouter(t)

	registerAnn(t, router)

	unknown := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "nobody@x.com",
		Password: "Secret123!",
	})
	wrongPass := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "a@x.com",
		Password: "wrong",
	})

	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	require.Equal(t, unknown.Body.String(), wrongPass.Body.String())
}

func TestMe_TokenErrors(t *testing.T) {
	router, repo := newTestRouter(t)

	userID := registerAnn(t, router)
	token := loginAnn(t, router)

	rec := doJSON(t, router, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// A valid token whose subject has been deleted resolves to 404.
	delete(repo.users, userID)
	rec = doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUsers(t *testing.T) {
	router, _ := newTestRouter(t)

	userID := registerAnn(t, router)
	token := loginAnn(t, router)

	rec := doJSON(t, router, http.MethodGet, "/auth/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []UserDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	require.Equal(t, userID, users[0].ID)
	require.Equal(t, "Ann", users[0].Name)
}

func TestGetUser(t *testing.T) {
	router, _ := newTestRouter(t)

	userID := registerAnn(t, router)
	token := loginAnn(t, router)

	rec := doJSON(t, router, http.MethodGet, "/auth/user/"+userID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "Ann", body["name"])
	require.NotContains(t, body, "id")

	rec = doJSON(t, router, http.MethodGet, "/auth/user/missing", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateUser(t *testing.T) {
	router, repo := newTestRouter(t)

	userID := registerAnn(t, router)
	token := loginAnn(t, router)

	rec := doJSON(t, router, http.MethodPut, "/auth/user/"+userID, token, UpdateUserRequest{
		Name:    "Ann B",
		Email:   "ann@x.com",
		Gender:  "Female",
		AboutMe: "hello",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated UserDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, userID, updated.ID)
	require.Equal(t, "Ann B", updated.Name)
	require.Equal(t, "ann@x.com", updated.Email)

	// Password hash survives profile updates.
	require.NotEmpty(t, repo.users[userID].PasswordHash)

	rec = doJSON(t, router, http.MethodPut, "/auth/user/"+userID, token, UpdateUserRequest{
		Name: "No Email",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/auth/user/missing", token, UpdateUserRequest{
		Name:  "Ghost",
		Email: "ghost@x.com",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateUser_IdempotentOnSameValues(t *testing.T) {
	router, repo := newTestRouter(t)

	userID := registerAnn(t, router)
	token := loginAnn(t, router)

	before := repo.users[userID]
	rec := doJSON(t, router, http.MethodPut, "/auth/user/"+userID, token, UpdateUserRequest{
		Name:    before.Name,
		Email:   before.Email,
		Gender:  before.Gender,
		AboutMe: before.AboutMe,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	after := repo.users[userID]
	require.Equal(t, before.Name, after.Name)
	require.Equal(t, before.Email, after.Email)
	require.Equal(t, before.Gender, after.Gender)
	require.Equal(t, before.AboutMe, after.AboutMe)
	require.Equal(t, before.PasswordHash, after.PasswordHash)
}

func TestDeleteUser(t *testing.T) {
	router, _ := newTestRouter(t)

	userID := registerAnn(t, router)
	token := loginAnn(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/auth/user/"+userID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "user deleted successfully", body["message"])

	rec = doJSON(t, router, http.MethodDelete, "/auth/user/"+userID, token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateToken(t *testing.T) {
	router, _ := newTestRouter(t)

	registerAnn(t, router)
	token := loginAnn(t, router)

	rec := doJSON(t, router, http.MethodGet, "/auth/validate-token", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/validate-token", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "token is valid", body["message"])
}

func TestLogout(t *testing.T) {
	router, _ := newTestRouter(t)

	registerAnn(t, router)
	token := loginAnn(t, router)

	rec := doJSON(t, router, http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
