package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shopmesh/commerce-api/internal/api/handler"
	"github.com/shopmesh/commerce-api/internal/core/domain"
	"github.com/shopmesh/commerce-api/internal/core/password"
	"github.com/shopmesh/commerce-api/internal/core/ports"
	"github.com/shopmesh/commerce-api/internal/core/service"
	"github.com/shopmesh/commerce-api/internal/core/token"
)

// memUserRepo is an in-memory ports.UserRepository for end-to-end routing
// tests. It mirrors the store's contract: unique emails, conditional
// rotation, projection-aware reads.
type memUserRepo struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *memUserRepo) Insert(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	r.seq++
	stored := cloneUser(user)
	stored.ID = fmt.Sprintf("user-%d", r.seq)
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.byID[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id string, p ports.Projection) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := cloneUser(u)
	if p == ports.ProjectionPublic {
		out.PasswordHash = ""
		out.RefreshToken = ""
	}
	return out, nil
}

func (r *memUserRepo) UpdateFields(_ context.Context, id string, patch ports.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if patch.RefreshToken != nil {
		u.RefreshToken = *patch.RefreshToken
	}
	if patch.LastLoginAt != nil {
		u.LastLoginAt = patch.LastLoginAt
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (r *memUserRepo) RotateRefreshToken(_ context.Context, id, current, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok || u.RefreshToken != current {
		return domain.ErrRefreshTokenMismatch
	}
	u.RefreshToken = next
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memUserRepo) List(_ context.Context, page, limit int) ([]domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	users := make([]domain.User, 0, limit)
	start := (page - 1) * limit
	for i := start; i < len(ids) && len(users) < limit; i++ {
		u := cloneUser(r.byID[ids[i]])
		u.PasswordHash = ""
		u.RefreshToken = ""
		users = append(users, *u)
	}
	return users, int64(len(ids)), nil
}

func (r *memUserRepo) setRole(id, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].Role = role
}

type noopLimiter struct{}

func (noopLimiter) TooManyFailures(context.Context, string) (bool, error) { return false, nil }
func (noopLimiter) RecordFailure(context.Context, string) error           { return nil }
func (noopLimiter) Reset(context.Context, string) error                   { return nil }

type noopSink struct{}

func (noopSink) Enqueue(domain.AuthEvent) {}

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

// Prometheus collectors register in the default registry, so the router is
// built exactly once and shared by all tests in this package. Tests keep
// their state disjoint through distinct email addresses.
var (
	routerOnce sync.Once
	testRouter *echo.Echo
	testRepo   *memUserRepo
	testIssuer *token.Issuer
)

func router(t *testing.T) (*echo.Echo, *memUserRepo) {
	t.Helper()
	routerOnce.Do(func() {
		testRepo = newMemUserRepo()
		testIssuer = token.NewIssuer(token.Config{
			AccessSecret:  testAccessSecret,
			RefreshSecret: testRefreshSecret,
		})
		sessions := service.NewSessionService(
			testRepo,
			password.NewHasher(),
			testIssuer,
			noopLimiter{},
			noopSink{},
			zerolog.Nop(),
		)
		users := service.NewUserService(testRepo, zerolog.Nop())
		// Mongo and Redis stay nil: they are only dereferenced by the
		// /health/ready handler, which needs live connections and is not
		// exercised here. Requests to that route would panic.
		testRouter = NewRouter(Deps{
			Sessions: sessions,
			Users:    users,
			Cookies:  handler.NewCookiePolicy(false, 15*time.Minute, 7*24*time.Hour),
			Logger:   zerolog.Nop(),
		})
	})
	return testRouter, testRepo
}

func doJSON(e *echo.Echo, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func responseCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	t.Fatalf("cookie %q not in response", name)
	return nil
}

func registerAccount(t *testing.T, e *echo.Echo, name, email, pass string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"email":%q,"password":%q}`, name, email, pass)
	rec := doJSON(e, http.MethodPost, "/v1/auth/register", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%s)", email, rec.Code, rec.Body.String())
	}
	return rec
}

func loginAccount(t *testing.T, e *echo.Echo, email, pass string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, pass)
	rec := doJSON(e, http.MethodPost, "/v1/auth/login", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", email, rec.Code, rec.Body.String())
	}
	return rec
}

func TestRouter_RegisterThenMe(t *testing.T) {
	e, _ := router(t)

	rec := registerAccount(t, e, "Root Tester", "root@example.com", "secret-pass")
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("credential fields leaked: %s", rec.Body.String())
	}
	access := responseCookie(t, rec, "accessToken")
	if access.Path != "/" {
		t.Fatalf("access cookie path: %q", access.Path)
	}
	refresh := responseCookie(t, rec, "refreshToken")
	if refresh.Path != "/v1/auth/refresh" {
		t.Fatalf("refresh cookie path: %q", refresh.Path)
	}

	me := doJSON(e, http.MethodGet, "/v1/users/me", "", access)
	if me.Code != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d (%s)", me.Code, me.Body.String())
	}
	if !strings.Contains(me.Body.String(), "root@example.com") {
		t.Fatalf("unexpected /me body: %s", me.Body.String())
	}
}

func TestRouter_DuplicateEmail(t *testing.T) {
	e, _ := router(t)

	registerAccount(t, e, "First", "dup@example.com", "secret-pass")
	rec := doJSON(e, http.MethodPost, "/v1/auth/register",
		`{"name":"Second","email":"DUP@example.com","password":"secret-pass"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "EMAIL_TAKEN") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_LoginFailuresAreIndistinguishable(t *testing.T) {
	e, _ := router(t)

	registerAccount(t, e, "Known", "known@example.com", "secret-pass")

	wrongPass := doJSON(e, http.MethodPost, "/v1/auth/login",
		`{"email":"known@example.com","password":"wrong-pass"}`)
	noSuchUser := doJSON(e, http.MethodPost, "/v1/auth/login",
		`{"email":"ghost@example.com","password":"secret-pass"}`)

	if wrongPass.Code != http.StatusUnauthorized || noSuchUser.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPass.Code, noSuchUser.Code)
	}
	if wrongPass.Body.String() != noSuchUser.Body.String() {
		t.Fatalf("failure bodies differ:\n%s\n%s", wrongPass.Body.String(), noSuchUser.Body.String())
	}
}

func TestRouter_MissingExpiredAndForgedTokens(t *testing.T) {
	e, repo := router(t)

	rec := registerAccount(t, e, "Claims", "claims@example.com", "secret-pass")
	access := responseCookie(t, rec, "accessToken")

	var user *domain.User
	var err error
	if user, err = repo.FindByEmail(context.Background(), "claims@example.com"); err != nil {
		t.Fatalf("seed lookup: %v", err)
	}

	// No cookie at all: the client should try a refresh first.
	missing := doJSON(e, http.MethodGet, "/v1/users/me", "")
	if missing.Code != http.StatusUnauthorized || !strings.Contains(missing.Body.String(), `"action":"refresh"`) {
		t.Fatalf("missing token: %d %s", missing.Code, missing.Body.String())
	}

	// Expired but genuine: also refreshable.
	shortIssuer := token.NewIssuer(token.Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Nanosecond,
	})
	expiredToken, err := shortIssuer.Issue(token.KindAccess, user.ID, user.Role)
	if err != nil {
		t.Fatalf("issue expired token: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	expired := doJSON(e, http.MethodGet, "/v1/users/me", "",
		&http.Cookie{Name: "accessToken", Value: expiredToken})
	if expired.Code != http.StatusUnauthorized ||
		!strings.Contains(expired.Body.String(), "ACCESS_TOKEN_EXPIRED") ||
		!strings.Contains(expired.Body.String(), `"action":"refresh"`) {
		t.Fatalf("expired token: %d %s", expired.Code, expired.Body.String())
	}

	// Tampered: full reauthentication, no refresh shortcut.
	forged := doJSON(e, http.MethodGet, "/v1/users/me", "",
		&http.Cookie{Name: "accessToken", Value: access.Value + "x"})
	if forged.Code != http.StatusUnauthorized ||
		!strings.Contains(forged.Body.String(), "ACCESS_TOKEN_INVALID") ||
		!strings.Contains(forged.Body.String(), `"action":"reauthenticate"`) {
		t.Fatalf("forged token: %d %s", forged.Code, forged.Body.String())
	}
}

func TestRouter_RefreshRotationRejectsReplay(t *testing.T) {
	e, _ := router(t)

	rec := registerAccount(t, e, "Rotator", "rotator@example.com", "secret-pass")
	first := responseCookie(t, rec, "refreshToken")

	rotated := doJSON(e, http.MethodPost, "/v1/auth/refresh", "", first)
	if rotated.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d (%s)", rotated.Code, rotated.Body.String())
	}
	second := responseCookie(t, rotated, "refreshToken")
	if second.Value == first.Value {
		t.Fatal("refresh token was not rotated")
	}
	if strings.Contains(rotated.Body.String(), second.Value) {
		t.Fatal("refresh token leaked into the body")
	}

	replay := doJSON(e, http.MethodPost, "/v1/auth/refresh", "", first)
	if replay.Code != http.StatusForbidden ||
		!strings.Contains(replay.Body.String(), "REFRESH_TOKEN_INVALID") ||
		!strings.Contains(replay.Body.String(), `"action":"reauthenticate"`) {
		t.Fatalf("replayed token: %d %s", replay.Code, replay.Body.String())
	}
	if cleared := responseCookie(t, replay, "refreshToken"); cleared.MaxAge >= 0 {
		t.Fatal("cookies not cleared after rejected refresh")
	}

	// The rotated token is still live.
	again := doJSON(e, http.MethodPost, "/v1/auth/refresh", "", second)
	if again.Code != http.StatusOK {
		t.Fatalf("rotated token rejected: %d (%s)", again.Code, again.Body.String())
	}
}

func TestRouter_RefreshWithoutCookie(t *testing.T) {
	e, _ := router(t)

	rec := doJSON(e, http.MethodPost, "/v1/auth/refresh", "")
	if rec.Code != http.StatusUnauthorized ||
		!strings.Contains(rec.Body.String(), "REFRESH_TOKEN_MISSING") {
		t.Fatalf("expected 401 REFRESH_TOKEN_MISSING, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_LogoutRevokesRefreshToken(t *testing.T) {
	e, _ := router(t)

	rec := registerAccount(t, e, "Leaver", "leaver@example.com", "secret-pass")
	refresh := responseCookie(t, rec, "refreshToken")

	out := doJSON(e, http.MethodPost, "/v1/auth/logout", "", refresh)
	if out.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", out.Code)
	}
	for _, name := range []string{"accessToken", "refreshToken", "token"} {
		if ck := responseCookie(t, out, name); ck.MaxAge >= 0 {
			t.Fatalf("cookie %q not cleared on logout", name)
		}
	}

	afterLogout := doJSON(e, http.MethodPost, "/v1/auth/refresh", "", refresh)
	if afterLogout.Code != http.StatusForbidden {
		t.Fatalf("revoked token must not refresh: %d (%s)", afterLogout.Code, afterLogout.Body.String())
	}

	// Logout with no cookies at all still succeeds.
	bare := doJSON(e, http.MethodPost, "/v1/auth/logout", "")
	if bare.Code != http.StatusOK {
		t.Fatalf("bare logout: expected 200, got %d", bare.Code)
	}
}

func TestRouter_AdminGate(t *testing.T) {
	e, repo := router(t)

	rec := registerAccount(t, e, "Plain", "plain@example.com", "secret-pass")
	plainAccess := responseCookie(t, rec, "accessToken")

	denied := doJSON(e, http.MethodGet, "/v1/admin/users", "", plainAccess)
	if denied.Code != http.StatusForbidden || !strings.Contains(denied.Body.String(), "FORBIDDEN") {
		t.Fatalf("user role reached admin surface: %d %s", denied.Code, denied.Body.String())
	}

	registerAccount(t, e, "Operator", "operator@example.com", "secret-pass")
	admin, err := repo.FindByEmail(context.Background(), "operator@example.com")
	if err != nil {
		t.Fatalf("seed lookup: %v", err)
	}
	repo.setRole(admin.ID, domain.RoleAdmin)

	// The role claim is baked in at issuance, so log in again for an admin token.
	adminLogin := loginAccount(t, e, "operator@example.com", "secret-pass")
	adminAccess := responseCookie(t, adminLogin, "accessToken")

	listed := doJSON(e, http.MethodGet, "/v1/admin/users?page=1&limit=50", "", adminAccess)
	if listed.Code != http.StatusOK {
		t.Fatalf("admin list: expected 200, got %d (%s)", listed.Code, listed.Body.String())
	}
	var resp struct {
		Data       []json.RawMessage `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(listed.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid list body: %v", err)
	}
	if resp.Pagination.Total < 2 || len(resp.Data) < 2 {
		t.Fatalf("expected at least two users, got %+v", resp)
	}
	if strings.Contains(listed.Body.String(), "password") {
		t.Fatalf("credential fields leaked: %s", listed.Body.String())
	}
}

func TestRouter_DeactivationBlocksLoginNotLiveTokens(t *testing.T) {
	e, repo := router(t)

	rec := registerAccount(t, e, "Benched", "benched@example.com", "secret-pass")
	access := responseCookie(t, rec, "accessToken")

	registerAccount(t, e, "Switch", "switch@example.com", "secret-pass")
	admin, err := repo.FindByEmail(context.Background(), "switch@example.com")
	if err != nil {
		t.Fatalf("seed lookup: %v", err)
	}
	repo.setRole(admin.ID, domain.RoleAdmin)
	adminAccess := responseCookie(t, loginAccount(t, e, "switch@example.com", "secret-pass"), "accessToken")

	benched, err := repo.FindByEmail(context.Background(), "benched@example.com")
	if err != nil {
		t.Fatalf("seed lookup: %v", err)
	}
	patched := doJSON(e, http.MethodPatch, "/v1/admin/users/"+benched.ID+"/status",
		`{"active":false}`, adminAccess)
	if patched.Code != http.StatusOK {
		t.Fatalf("status patch: expected 200, got %d (%s)", patched.Code, patched.Body.String())
	}

	relogin := doJSON(e, http.MethodPost, "/v1/auth/login",
		`{"email":"benched@example.com","password":"secret-pass"}`)
	if relogin.Code != http.StatusForbidden || !strings.Contains(relogin.Body.String(), "ACCOUNT_DEACTIVATED") {
		t.Fatalf("deactivated login: %d %s", relogin.Code, relogin.Body.String())
	}

	// Already-issued access tokens keep working until they expire.
	me := doJSON(e, http.MethodGet, "/v1/users/me", "", access)
	if me.Code != http.StatusOK {
		t.Fatalf("live token rejected after deactivation: %d (%s)", me.Code, me.Body.String())
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	e, _ := router(t)

	health := doJSON(e, http.MethodGet, "/health", "")
	if health.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", health.Code)
	}

	metrics := doJSON(e, http.MethodGet, "/metrics", "")
	if metrics.Code != http.StatusOK || !strings.Contains(metrics.Body.String(), "commerce_") {
		t.Fatalf("metrics endpoint: %d", metrics.Code)
	}
}
