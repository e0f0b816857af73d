package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cryptosniper/internal/delivery/http/schema"
	"cryptosniper/internal/domain"
	"cryptosniper/internal/middleware"
	"cryptosniper/internal/monitoring"
	"cryptosniper/internal/repository"
	"cryptosniper/internal/session"
	"cryptosniper/internal/store"
	"cryptosniper/internal/usecase"
)

const testPassword = "hunter22"

type recordingSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *recordingSender) SendOTP(ctx context.Context, email, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = code
	return nil
}

func (s *recordingSender) code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(ctx context.Context, eventType string, userID, entityID int64, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type testServer struct {
	e        *echo.Echo
	users    domain.UserRepository
	sender   *recordingSender
	notifier *recordingNotifier
	metrics  *monitoring.Metrics
}

func newTestServer(t *testing.T, overrides ...func(*RouterConfig)) *testServer {
	t.Helper()

	log := zap.NewNop()
	st := store.New(nil)
	users := repository.NewUserRepository(st)
	strategies := repository.NewStrategyRepository(st)
	positions := repository.NewPositionRepository(st)
	portfolio := repository.NewPortfolioRepository(st)

	sender := &recordingSender{codes: make(map[string]string)}
	notifier := &recordingNotifier{}
	metrics := monitoring.NewMetrics("test")
	validator := schema.MustNew()

	authService := usecase.NewAuthService(users, session.NewMemoryOTPStore(), sender, notifier, metrics, log)
	sessionAuth := middleware.NewSessionAuth("test-secret", session.NewMemorySessionStore(nil), false)

	config := &RouterConfig{
		AuthHandler:      NewAuthHandler(authService, sessionAuth, validator, log),
		UserHandler:      NewUserHandler(users),
		StrategyHandler:  NewStrategyHandler(strategies, validator, notifier),
		PositionHandler:  NewPositionHandler(positions, strategies, validator, notifier),
		PortfolioHandler: NewPortfolioHandler(portfolio, validator, notifier),
		SessionAuth:      sessionAuth,
		AuthLimiter:      middleware.NewRateLimiter(1000, 1000),
		Metrics:          metrics,
		Logger:           log,
		AllowOrigins:     []string{"http://localhost:5173"},
		BodyLimit:        "1M",
	}
	for _, override := range overrides {
		override(config)
	}
	e := NewServer(config)

	return &testServer{e: e, users: users, sender: sender, notifier: notifier, metrics: metrics}
}

// seedUser stores a user directly with a cheap bcrypt hash
func (s *testServer) seedUser(t *testing.T, username string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: string(hash)}
	require.NoError(t, s.users.Create(context.Background(), user))
	return user
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signIn(t *testing.T, user *domain.User) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    user.Email,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", middleware.SessionCookieName)
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// ---------------------------------------------------------------------------
// Auth flow
// ---------------------------------------------------------------------------

func TestAuthFlow_SignupToProfile(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": "neo@zion.io", "phone": "+15550100"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := s.sender.code("neo@zion.io")
	require.Len(t, code, 6)

	rec = s.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "neo@zion.io", "otp": code}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/complete-registration", map[string]string{
		"username": "neo",
		"email":    "neo@zion.io",
		"name":     "Thomas Anderson",
		"phone":    "+15550100",
		"password": "redpill1",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[map[string]interface{}](t, rec)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "neo", user["username"])
	assert.Equal(t, "Thomas Anderson", user["name"])
	assert.NotContains(t, user, "password")

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	rec = s.do(t, http.MethodGet, "/api/user", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "neo@zion.io", profile["email"])
	assert.NotContains(t, profile, "passwordHash")
	assert.Equal(t, false, profile["brokerConnected"])

	assert.Contains(t, s.notifier.types(), domain.EventUserRegistered)
}

func TestAuth_SignupAlreadyRegistered(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t, "trinity")

	rec := s.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": user.Email}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CONFLICT", decode[ErrorBody](t, rec).ErrorCode)
}

func TestAuth_VerifyOTPErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@b.io", "otp": "123456"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP_MISSING", decode[ErrorBody](t, rec).ErrorCode)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": "a@b.io"}, nil).Code)
	wrong := "000000"
	if s.sender.code("a@b.io") == wrong {
		wrong = "000001"
	}

	rec = s.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@b.io", "otp": wrong}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP_INVALID", decode[ErrorBody](t, rec).ErrorCode)

	// A mismatch leaves the code usable
	rec = s.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@b.io", "otp": s.sender.code("a@b.io")}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_SignInBadCredentials(t *testing.T) {
	s := newTestServer(t)
	user := s.seedUser(t, "morpheus")

	rec := s.do(t, http.MethodPost, "/api/auth/signin", map[string]string{"email": user.Email, "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/signin", map[string]string{"email": "nobody@example.com", "password": testPassword}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuth_SignOutRevokesSession(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, s.seedUser(t, "cypher"))

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/user", nil, cookie).Code)

	rec := s.do(t, http.MethodPost, "/api/auth/signout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)

	// The old token is still well-signed but the session is gone
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/user", nil, cookie).Code)
}

func TestAuth_CompleteRegistrationRequiresVerifiedEmail(t *testing.T) {
	s := newTestServer(t)
	registration := map[string]string{
		"username": "switch",
		"email":    "switch@zion.io",
		"name":     "Switch",
		"phone":    "+15550101",
		"password": "whiterabbit",
	}

	rec := s.do(t, http.MethodPost, "/api/auth/complete-registration", registration, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "EMAIL_NOT_VERIFIED", decode[ErrorBody](t, rec).ErrorCode)
	assert.Empty(t, rec.Result().Cookies())

	// Issued but not yet verified is still refused
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": "switch@zion.io"}, nil).Code)
	rec = s.do(t, http.MethodPost, "/api/auth/complete-registration", registration, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "switch@zion.io", "otp": s.sender.code("switch@zion.io")}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/complete-registration", registration, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAuth_CompleteRegistrationValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/complete-registration", map[string]string{
		"username": "ab",
		"email":    "x@y.io",
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "VALIDATION_ERROR", body.ErrorCode)
	fields := body.Details["fields"].(map[string]interface{})
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "phone")
}

func TestAuth_RateLimitKeysOnPeerAddress(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 2)
	s := newTestServer(t, func(config *RouterConfig) {
		config.AuthLimiter = limiter
	})

	statuses := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", strings.NewReader(`{"email":"x@y.io","password":"whatever1"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("198.51.100.%d", i+1))
		req.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("198.51.100.%d", i+1))
		req.RemoteAddr = "203.0.113.7:40000"
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	assert.NotEqual(t, http.StatusTooManyRequests, statuses[0])
	assert.NotEqual(t, http.StatusTooManyRequests, statuses[1])
	for _, status := range statuses[2:] {
		assert.Equal(t, http.StatusTooManyRequests, status)
	}
	assert.Equal(t, 1, limiter.Visitors())
}

func TestAuth_RateLimitHonoursTrustedProxy(t *testing.T) {
	_, proxies, err := net.ParseCIDR("203.0.113.0/24")
	require.NoError(t, err)
	limiter := middleware.NewRateLimiter(0.001, 1)
	s := newTestServer(t, func(config *RouterConfig) {
		config.AuthLimiter = limiter
		config.TrustedProxies = []*net.IPNet{proxies}
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", strings.NewReader(`{"email":"x@y.io","password":"whatever1"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("198.51.100.%d", i+1))
		req.RemoteAddr = "203.0.113.7:40000"
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	}
	assert.Equal(t, 3, limiter.Visitors())
}

// ---------------------------------------------------------------------------
// Authorization contract
// ---------------------------------------------------------------------------

func TestStrategy_OwnershipContract(t *testing.T) {
	s := newTestServer(t)
	cookieA := s.signIn(t, s.seedUser(t, "alice"))
	cookieB := s.signIn(t, s.seedUser(t, "bob"))

	rec := s.do(t, http.MethodPost, "/api/strategies", map[string]interface{}{"name": "Momentum"}, cookieA)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Strategy](t, rec)
	path := fmt.Sprintf("/api/strategies/%d", created.ID)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, path, nil, cookieA).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path, nil, cookieB).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/strategies/999", nil, cookieA).Code)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPatch, path, map[string]string{"name": "stolen"}, cookieB).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, path, nil, cookieB).Code)

	rec = s.do(t, http.MethodGet, path, nil, cookieA)
	assert.Equal(t, "Momentum", decode[domain.Strategy](t, rec).Name)
}

func TestStrategy_CreateIgnoresPayloadOwner(t *testing.T) {
	s := newTestServer(t)
	alice := s.seedUser(t, "alice")
	cookie := s.signIn(t, alice)

	rec := s.do(t, http.MethodPost, "/api/strategies", map[string]interface{}{"name": "x", "userId": 999}, cookie)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, alice.ID, decode[domain.Strategy](t, rec).UserID)
}

func TestStrategy_ConfigRoundTrip(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, s.seedUser(t, "alice"))
	config := `{"instruments":[{"symbol":"BTC","strike":65000,"legs":[{"side":"BUY","qty":1,"sl":{"type":"PCT","value":12.5}}]}],"startTime":"09:15","endTime":"15:20","segment":"OPTION","strategyType":"TIME_BASED"}`

	rec := s.do(t, http.MethodPost, "/api/strategies",
		fmt.Sprintf(`{"name":"Straddle","type":"OPTION","maxDrawdown":10,"margin":5000,"config":%s}`, config), cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Strategy](t, rec)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/strategies/%d", created.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, config, string(decode[domain.Strategy](t, rec).Config))
}

func TestStrategy_PatchDeployAndDelete(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, s.seedUser(t, "alice"))

	rec := s.do(t, http.MethodPost, "/api/strategies", map[string]interface{}{"name": "Grid", "margin": 100}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.Strategy](t, rec)
	path := fmt.Sprintf("/api/strategies/%d", created.ID)

	rec = s.do(t, http.MethodPatch, path, `{"isDeployed":true,"id":77,"userId":77}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Strategy](t, rec)
	assert.True(t, updated.IsDeployed)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.UserID, updated.UserID)
	assert.Equal(t, 100.0, updated.Margin)

	rec = s.do(t, http.MethodGet, "/api/strategies/deployed", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Strategy](t, rec), 1)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, path, nil, cookie).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, nil, cookie).Code)

	assert.Equal(t, []string{
		domain.EventStrategyCreated,
		domain.EventStrategyDeployed,
		domain.EventStrategyDeleted,
	}, s.notifier.types())
}

func TestStrategy_EmptyPatchIsANoOp(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, s.seedUser(t, "alice"))

	rec := s.do(t, http.MethodPost, "/api/strategies", map[string]interface{}{"name": "Grid"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.Strategy](t, rec)

	rec = s.do(t, http.MethodPatch, fmt.Sprintf("/api/strategies/%d", created.ID), `{"userId":5,"config":null}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Grid", decode[domain.Strategy](t, rec).Name)

	assert.Equal(t, []string{domain.EventStrategyCreated}, s.notifier.types())
}

func TestStrategy_DeleteDetachesPositions(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, s.seedUser(t, "alice"))

	rec := s.do(t, http.MethodPost, "/api/strategies", map[string]interface{}{"name": "Grid"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	strategy := decode[domain.Strategy](t, rec)

	rec = s.do(t, http.MethodPost, "/api/positions", map[string]interface{}{
		"strategyId": strategy.ID, "symbol": "BTCUSDT", "exchange": "Delta",
		"notionalValue": 100, "entryPrice": 50000, "side": "LONG",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	position := decode[domain.Position](t, rec)
	require.NotNil(t, position.StrategyID)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/strategies/%d", strategy.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Strategy deleted successfully", decode[map[string]string](t, rec)["message"])

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/positions/%d", position.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[domain.Position](t, rec).StrategyID)
}

func TestStrategy_ListIsScopedAndNeverNull(t *testing.T) {
	s := newTestServer(t)
	cookieA := s.signIn(t, s.seedUser(t, "alice"))
	cookieB := s.signIn(t, s.seedUser(t, "bob"))

	rec := s.do(t, http.MethodGet, "/api/strategies", nil, cookieA)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/strategies", map[string]string{"name": "a1"}, cookieA).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/strategies", map[string]string{"name": "b1"}, cookieB).Code)

	rec = s.do(t, http.MethodGet, "/api/strategies", nil, cookieA)
	list := decode[[]domain.Strategy](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "a1", list[0].Name)
}

func TestStrategy_InvalidID(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, s.seedUser(t, "alice"))

	rec := s.do(t, http.MethodGet, "/api/strategies/abc", nil, cookie)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

func TestPosition_CreateDefaultsAndRevalue(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, s.seedUser(t, "alice"))

	rec := s.do(t, http.MethodPost, "/api/positions", map[string]interface{}{
		"symbol":        "BTCUSDT",
		"exchange":      "Delta",
		"notionalValue": 1000,
		"entryPrice":    100,
		"side":          "SHORT",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Position](t, rec)
	assert.Equal(t, 1.0, created.Leverage)
	assert.True(t, created.IsIsolated)
	assert.Equal(t, 100.0, created.MarkPrice)

	rec = s.do(t, http.MethodPatch, fmt.Sprintf("/api/positions/%d", created.ID), map[string]float64{"markPrice": 90}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Position](t, rec)
	assert.Equal(t, 90.0, updated.MarkPrice)
	assert.Equal(t, 100.0, updated.UnrealizedPnL)
	assert.Equal(t, 10.0, updated.UnrealizedPnLPercent)
}

func TestPosition_RejectsForeignStrategy(t *testing.T) {
	s := newTestServer(t)
	cookieA := s.signIn(t, s.seedUser(t, "alice"))
	cookieB := s.signIn(t, s.seedUser(t, "bob"))

	rec := s.do(t, http.MethodPost, "/api/strategies", map[string]string{"name": "mine"}, cookieA)
	require.Equal(t, http.StatusCreated, rec.Code)
	strategy := decode[domain.Strategy](t, rec)

	rec = s.do(t, http.MethodPost, "/api/positions", map[string]interface{}{
		"strategyId":    strategy.ID,
		"symbol":        "ETHUSDT",
		"exchange":      "Delta",
		"notionalValue": 10,
		"entryPrice":    2000,
		"side":          "LONG",
	}, cookieB)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPosition_DeleteAndOwnership(t *testing.T) {
	s := newTestServer(t)
	cookieA := s.signIn(t, s.seedUser(t, "alice"))
	cookieB := s.signIn(t, s.seedUser(t, "bob"))

	rec := s.do(t, http.MethodPost, "/api/positions", map[string]interface{}{
		"symbol": "SOLUSDT", "exchange": "Delta", "notionalValue": 50, "entryPrice": 150, "side": "LONG",
	}, cookieA)
	require.Equal(t, http.StatusCreated, rec.Code)
	path := fmt.Sprintf("/api/positions/%d", decode[domain.Position](t, rec).ID)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path, nil, cookieB).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, path, nil, cookieB).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, path, nil, cookieA).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, nil, cookieA).Code)
	assert.Contains(t, s.notifier.types(), domain.EventPositionClosed)
}

func TestPosition_ValidationDetails(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, s.seedUser(t, "alice"))

	rec := s.do(t, http.MethodPost, "/api/positions", map[string]interface{}{
		"symbol": "BTCUSDT", "exchange": "Delta", "notionalValue": 10, "entryPrice": 100, "side": "SIDEWAYS",
	}, cookie)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[ErrorBody](t, rec).Details["fields"].(map[string]interface{})
	assert.Contains(t, fields, "side")
}

// ---------------------------------------------------------------------------
// Portfolio
// ---------------------------------------------------------------------------

func TestPortfolio_SnapshotScenario(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, s.seedUser(t, "alice"))

	rec := s.do(t, http.MethodGet, "/api/portfolio", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	start := time.Now().Round(0)
	rec = s.do(t, http.MethodPost, "/api/portfolio/snapshot", map[string]interface{}{
		"totalValue": 12849.84,
		"btcValue":   0.2,
		"assets": map[string]interface{}{
			"BTC": map[string]float64{"percentage": 6, "value": 245.67},
		},
		"timestamp": "2001-01-01T00:00:00Z",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/portfolio", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	latest := decode[domain.PortfolioSnapshot](t, rec)
	assert.Equal(t, 12849.84, latest.TotalValue)
	assert.Equal(t, domain.AssetAllocation{Percentage: 6, Value: 245.67}, latest.Assets["BTC"])
	assert.False(t, latest.Timestamp.Before(start), "timestamp %s before request start %s", latest.Timestamp, start)
}

func TestPortfolio_HistoryLimitAndIsolation(t *testing.T) {
	s := newTestServer(t)
	cookieA := s.signIn(t, s.seedUser(t, "alice"))
	cookieB := s.signIn(t, s.seedUser(t, "bob"))

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/portfolio/snapshot",
			map[string]float64{"totalValue": float64(i), "btcValue": 0}, cookieA).Code)
	}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/portfolio/snapshot",
		map[string]float64{"totalValue": 999, "btcValue": 0}, cookieB).Code)

	rec := s.do(t, http.MethodGet, "/api/portfolio/history?limit=3", nil, cookieA)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]domain.PortfolioSnapshot](t, rec)
	require.Len(t, history, 3)
	assert.Equal(t, 4.0, history[0].TotalValue)
	for _, snap := range history {
		assert.NotEqual(t, 999.0, snap.TotalValue)
	}

	rec = s.do(t, http.MethodGet, "/api/portfolio/history", nil, cookieA)
	assert.Len(t, decode[[]domain.PortfolioSnapshot](t, rec), 5)

	rec = s.do(t, http.MethodGet, "/api/portfolio/history?limit=zero", nil, cookieA)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryLimit(t *testing.T) {
	limit, err := historyLimit("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultHistoryLimit, limit)

	limit, err = historyLimit("100000")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxHistoryLimit, limit)

	_, err = historyLimit("-1")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Plumbing
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]interface{}](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestErrorHandler_HidesInternalCause(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop(), nil)
	e.GET("/boom", func(c echo.Context) error {
		return fmt.Errorf("dial tcp 10.0.0.3:5432: connection refused")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body.ErrorCode)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/nope", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorBody](t, rec).ErrorCode)
}
