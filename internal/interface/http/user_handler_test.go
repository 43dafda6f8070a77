package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	userapp "github.com/socialapp/user-service/internal/application"
	"github.com/socialapp/user-service/internal/domain/entity"
	repo "github.com/socialapp/user-service/internal/domain/repository"
	"github.com/socialapp/user-service/internal/infrastructure/sessionstore"
	"github.com/socialapp/user-service/internal/interface/middleware"
	"github.com/socialapp/user-service/pkg/helpers"
	"github.com/socialapp/user-service/pkg/validation"
)

// memRepo is an in-memory UserRepository good enough for routing tests.
type memRepo struct {
	mu      sync.Mutex
	byID    map[string]*entity.User
	byEmail map[string]*entity.User
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*entity.User{}, byEmail: map[string]*entity.User{}}
}

func (m *memRepo) Create(ctx context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return repo.ErrDuplicateEmail
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memRepo) GetAll(ctx context.Context) ([]entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memRepo) UpdateByID(ctx context.Context, id string, patch repo.UserPatch) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if patch.Email != nil {
		delete(m.byEmail, u.Email)
		u.Email = *patch.Email
		m.byEmail[u.Email] = u
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Password != nil {
		u.Password = *patch.Password
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

type testApp struct {
	router   *gin.Engine
	sessions *sessionstore.Store
	tokens   *helpers.TokenManager
	repo     *memRepo
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	mrepo := newMemRepo()
	sessions := sessionstore.New(rdb, 30*time.Minute)
	tokens := helpers.NewTokenManager("test-secret", time.Hour)
	cookies := helpers.NewCookie("localhost", false)

	svc := userapp.NewService(mrepo, sessions, tokens, logger)
	svc.MailEnabled = false // no delivery in tests; codes are read from the store

	userHandler := NewUserHandler(svc, logger, cookies)
	profileHandler := NewProfileHandler(svc, logger)
	emailHandler := NewEmailHandler(svc, logger)
	passwordHandler := NewPasswordHandler(svc, logger)

	r := gin.New()
	users := r.Group("/api/users")
	users.Use(middleware.Session(cookies, 30*time.Minute))
	users.GET("/", userHandler.List)
	users.GET("/check", userHandler.Check)
	users.POST("/register", userHandler.Register)
	users.POST("/verify-otp", userHandler.VerifyOTP)
	users.POST("/resendotp", userHandler.ResendOTP)
	users.POST("/login", userHandler.Login)
	users.POST("/logout", userHandler.Logout)

	auth := users.Group("/")
	auth.Use(middleware.Auth(tokens))
	auth.PATCH("/update-profile", profileHandler.UpdateProfile)
	auth.POST("/verify-password", profileHandler.VerifyPassword)
	auth.POST("/request-email-update-otp", emailHandler.RequestUpdateOTP)
	auth.PATCH("/confirm-email-update", emailHandler.ConfirmUpdate)
	auth.POST("/request-forgot-password-otp", passwordHandler.RequestOTP)
	auth.POST("/match-password-otp", passwordHandler.MatchOTP)
	auth.PATCH("/reset-forgot-password", passwordHandler.Reset)

	return &testApp{router: r, sessions: sessions, tokens: tokens, repo: mrepo}
}

func (a *testApp) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func cookieByName(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestRegisterVerifyCheckFlow(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	// Register: pending user lands in the session, nothing persisted yet.
	w := app.do(t, http.MethodPost, "/api/users/register", gin.H{
		"name": "Alice", "email": "a@x.com", "password": "secret1", "role": "user",
	})
	require.Equal(t, http.StatusOK, w.Code)
	sid := cookieByName(t, w, helpers.SessionCookie)

	st, err := app.sessions.GetRegistration(ctx, sid.Value)
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, "a@x.com", st.Pending.Email)
	_, err = app.repo.GetByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, repo.ErrNotFound)

	// Wrong code: 400, nothing created.
	wrong := "0000"
	if st.OTP == wrong {
		wrong = "0001"
	}
	w = app.do(t, http.MethodPost, "/api/users/verify-otp", gin.H{"otp": wrong}, sid)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Right code: user persisted, token cookie set, token in body.
	w = app.do(t, http.MethodPost, "/api/users/verify-otp", gin.H{"otp": st.OTP}, sid)
	require.Equal(t, http.StatusOK, w.Code)
	tokenCookie := cookieByName(t, w, helpers.TokenCookie)
	require.True(t, tokenCookie.HttpOnly)
	require.Contains(t, w.Body.String(), `"token"`)

	u, err := app.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", u.Password)

	// Check with the fresh token: authenticated.
	w = app.do(t, http.MethodGet, "/api/users/check", nil, tokenCookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"authenticated":true`)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	// Malformed email.
	w := app.do(t, http.MethodPost, "/api/users/register", gin.H{
		"name": "Alice", "email": "not-an-email", "password": "secret1", "role": "user",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Short password is caught by binding.
	w = app.do(t, http.MethodPost, "/api/users/register", gin.H{
		"name": "Alice", "email": "a@x.com", "password": "short", "role": "user",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckStatusAsymmetry(t *testing.T) {
	app := newTestApp(t)

	// No cookie: probe-style 400, not a gate rejection.
	w := app.do(t, http.MethodGet, "/api/users/check", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"authenticated":false`)

	// Garbage token: 401, still authenticated:false.
	w = app.do(t, http.MethodGet, "/api/users/check", nil,
		&http.Cookie{Name: helpers.TokenCookie, Value: "garbage"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), `"authenticated":false`)

	// Valid token whose user is gone: 404, authenticated:false.
	token, _, err := app.tokens.Issue("ghost", "g@x.com")
	require.NoError(t, err)
	w = app.do(t, http.MethodGet, "/api/users/check", nil,
		&http.Cookie{Name: helpers.TokenCookie, Value: token})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestLoginAndLogout(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	hash, err := helpers.HashPassword("secret1")
	require.NoError(t, err)
	require.NoError(t, app.repo.Create(ctx, &entity.User{ID: "u1", Name: "Alice", Email: "a@x.com", Password: hash, Role: "user"}))

	w := app.do(t, http.MethodPost, "/api/users/login", gin.H{"email": "a@x.com", "password": "wrongpass"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/api/users/login", gin.H{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	tokenCookie := cookieByName(t, w, helpers.TokenCookie)
	require.NotEmpty(t, tokenCookie.Value)

	w = app.do(t, http.MethodPost, "/api/users/logout", nil, tokenCookie)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := cookieByName(t, w, helpers.TokenCookie)
	require.Empty(t, cleared.Value)
}

func TestEmailChangeFlow(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	hash, _ := helpers.HashPassword("secret1")
	require.NoError(t, app.repo.Create(ctx, &entity.User{ID: "u1", Name: "Alice", Email: "a@x.com", Password: hash, Role: "user"}))
	token, _, err := app.tokens.Issue("u1", "a@x.com")
	require.NoError(t, err)
	auth := &http.Cookie{Name: helpers.TokenCookie, Value: token}

	// Unauthenticated requests are gated.
	w := app.do(t, http.MethodPost, "/api/users/request-email-update-otp", gin.H{"email": "new@x.com"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPost, "/api/users/request-email-update-otp", gin.H{"email": "a@x.com"}, auth)
	require.Equal(t, http.StatusBadRequest, w.Code, "current address is rejected")

	w = app.do(t, http.MethodPost, "/api/users/request-email-update-otp", gin.H{"email": "new@x.com"}, auth)
	require.Equal(t, http.StatusOK, w.Code)
	sid := cookieByName(t, w, helpers.SessionCookie)

	st, err := app.sessions.GetEmailChange(ctx, sid.Value)
	require.NoError(t, err)
	require.NotNil(t, st)

	w = app.do(t, http.MethodPatch, "/api/users/confirm-email-update", gin.H{"otp": st.OTP}, auth, sid)
	require.Equal(t, http.StatusCreated, w.Code)

	u, err := app.repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "new@x.com", u.Email)
}

func TestForgotPasswordFlow(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	hash, _ := helpers.HashPassword("secret1")
	require.NoError(t, app.repo.Create(ctx, &entity.User{ID: "u1", Name: "Alice", Email: "a@x.com", Password: hash, Role: "user"}))
	token, _, err := app.tokens.Issue("u1", "a@x.com")
	require.NoError(t, err)
	auth := &http.Cookie{Name: helpers.TokenCookie, Value: token}

	w := app.do(t, http.MethodPost, "/api/users/request-forgot-password-otp", gin.H{"email": "a@x.com"}, auth)
	require.Equal(t, http.StatusOK, w.Code)
	sid := cookieByName(t, w, helpers.SessionCookie)

	// Reset before the code is confirmed is refused.
	w = app.do(t, http.MethodPatch, "/api/users/reset-forgot-password",
		gin.H{"password": "newsecret", "conformPassword": "newsecret"}, auth, sid)
	require.Equal(t, http.StatusBadRequest, w.Code)

	st, err := app.sessions.GetReset(ctx, sid.Value)
	require.NoError(t, err)
	w = app.do(t, http.MethodPost, "/api/users/match-password-otp", gin.H{"otp": st.OTP}, auth, sid)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPatch, "/api/users/reset-forgot-password",
		gin.H{"password": "newsecret", "conformPassword": "newsecret"}, auth, sid)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"token"`)

	u, err := app.repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.True(t, helpers.CompareHashAndPassword(u.Password, "newsecret"))
}
