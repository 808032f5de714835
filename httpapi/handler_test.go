package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/championsworld/identity"
	"github.com/championsworld/identity/middleware"
	"github.com/championsworld/identity/store"
)

type capturingMailer struct {
	mu     sync.Mutex
	bodies []string
}

func (m *capturingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *capturingMailer) lastCode(t *testing.T, prefix string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.bodies, "no mail captured")
	body := m.bodies[len(m.bodies)-1]
	i := strings.Index(body, prefix)
	require.GreaterOrEqual(t, i, 0, "mail body %q missing %q", body, prefix)
	rest := body[i+len(prefix):]
	end := strings.IndexAny(rest, ".\n")
	if end < 0 {
		end = len(rest)
	}
	return rest[:end]
}

type noopSMS struct{}

func (noopSMS) Send(context.Context, string, string) error { return nil }

type stubOAuth struct{ email string }

func (s stubOAuth) Exchange(context.Context, string) (string, error) { return "tok", nil }
func (s stubOAuth) Profile(context.Context, string) (string, string, error) {
	return "sub-1", s.email, nil
}

type testServer struct {
	e      *echo.Echo
	engine *identity.Engine
	store  *store.Store
	mailer *capturingMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.Open("sqlite", filepath.Join(t.TempDir(), "api.db"), nil)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mailer := &capturingMailer{}
	var cfg identity.Config
	cfg.JWT.Secret = "httpapi-test-secret-httpapi-test"
	cfg.JWT.TTL = time.Hour
	cfg.Reset.TTL = 15 * time.Minute

	engine, err := identity.New().
		WithConfig(cfg).
		WithUserStore(st).
		WithRoleStore(st).
		WithResetTokenStore(st).
		WithAddressStore(st).
		WithRedis(client).
		WithMailer(mailer).
		WithSMSSender(noopSMS{}).
		WithOAuthProvider(stubOAuth{email: "g@x.com"}).
		Build()
	require.NoError(t, err)

	h := NewHandler(engine, nil)
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(nil)
	e.Use(middleware.Gate(engine.Tokens(), h.Policy(), nil))
	h.Register(e)

	return &testServer{e: e, engine: engine, store: st, mailer: mailer}
}

func (s *testServer) request(t *testing.T, method, path, bearer string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// seedSuperAdmin creates a SUPER_ADMIN account directly in the store and
// returns a token for it.
func (s *testServer) seedSuperAdmin(t *testing.T) string {
	t.Helper()
	rec := identity.UserRecord{Email: "root@x.com", Active: true, Provider: identity.ProviderLocal}
	require.NoError(t, s.store.CreateUser(context.Background(), &rec))
	require.NoError(t, s.store.AssignRole(context.Background(), rec.ID, identity.RoleSuperAdmin))
	tok, err := s.engine.Tokens().Issue(rec.Email, rec.ID, identity.RoleSuperAdmin)
	require.NoError(t, err)
	return tok
}

// registerCustomer runs the email registration flow and returns the token.
func (s *testServer) registerCustomer(t *testing.T, email string) string {
	t.Helper()
	rec := s.request(t, http.MethodPost, "/auth/register/email-otp/send", "", echo.Map{"email": email})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	code := s.mailer.lastCode(t, "Your OTP is: ")
	rec = s.request(t, http.MethodPost, "/auth/register/email-otp/verify", "",
		echo.Map{"email": email, "otp": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.request(t, http.MethodPost, "/auth/register/email-otp/complete", "", echo.Map{"email": email})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := decode[identity.LoginResult](t, rec)
	require.NotEmpty(t, res.Token)
	return res.Token
}

func TestEmailRegistrationAndMe(t *testing.T) {
	s := newTestServer(t)
	tok := s.registerCustomer(t, "new@x.com")

	rec := s.request(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ident := decode[identity.UserIdentity](t, rec)
	require.Equal(t, "new@x.com", ident.Email)
	require.Equal(t, "ROLE_CUSTOMER", ident.Role)

	// restarting registration for a taken email conflicts
	rec = s.request(t, http.MethodPost, "/auth/register/email-otp/send", "", echo.Map{"email": "new@x.com"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, http.MethodPost, "/auth/login", "",
		echo.Map{"email": "nobody@x.com", "password": "pw"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[map[string]string](t, rec)
	require.Equal(t, "invalid email or password", body["message"])

	rec = s.request(t, http.MethodPost, "/auth/login", "", echo.Map{"email": "nobody@x.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateToken(t *testing.T) {
	s := newTestServer(t)
	tok := s.registerCustomer(t, "v@x.com")

	rec := s.request(t, http.MethodGet, "/auth/validate-token", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	require.Equal(t, true, body["valid"])
	require.Equal(t, "Token is valid", body["message"])

	rec = s.request(t, http.MethodGet, "/auth/validate-token", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.request(t, http.MethodGet, "/auth/validate-token", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body = decode[map[string]any](t, rec)
	require.Equal(t, "Invalid token format", body["message"])
}

func TestGoogleLoginEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, http.MethodPost, "/auth/google", "", echo.Map{"code": "auth-code"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[identity.LoginResult](t, rec)
	require.Equal(t, identity.RoleCustomer, res.Identity.Role)
	require.Equal(t, "g@x.com", res.Identity.Email)
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	rootTok := s.seedSuperAdmin(t)

	rec := s.request(t, http.MethodPost, "/auth/admin/register", rootTok,
		echo.Map{"email": "admin@x.com", "password": "s3cret"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[identity.UserIdentity](t, rec)
	require.Equal(t, identity.RoleAdmin, created.Role)

	rec = s.request(t, http.MethodGet, "/auth/show-admins", rootTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	admins := decode[[]identity.AdminSummary](t, rec)
	require.Len(t, admins, 1)
	require.Equal(t, "admin@x.com", admins[0].Email)

	rec = s.request(t, http.MethodPut,
		"/auth/admin/status/"+itoa(created.UserID), rootTok, echo.Map{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// deactivated admin cannot log in
	rec = s.request(t, http.MethodPost, "/auth/login", "",
		echo.Map{"email": "admin@x.com", "password": "s3cret"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.request(t, http.MethodDelete, "/auth/admin/"+itoa(created.UserID), rootTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.request(t, http.MethodGet, "/auth/show-admins", rootTok, nil)
	admins = decode[[]identity.AdminSummary](t, rec)
	require.Empty(t, admins)
}

func TestAdminEndpointsRejectCustomers(t *testing.T) {
	s := newTestServer(t)
	tok := s.registerCustomer(t, "c@x.com")

	rec := s.request(t, http.MethodGet, "/auth/show-admins", tok, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[map[string]string](t, rec)
	require.Equal(t, "ACCESS DENIED", body["message"])
}

func TestPasswordResetEndpoints(t *testing.T) {
	s := newTestServer(t)
	rootTok := s.seedSuperAdmin(t)

	rec := s.request(t, http.MethodPost, "/auth/admin/register", rootTok,
		echo.Map{"email": "admin@x.com", "password": "old-pass"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.request(t, http.MethodPost, "/auth/forgot-password", "", echo.Map{"email": "admin@x.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := s.mailer.lastCode(t, "Your OTP for password reset is: ")

	rec = s.request(t, http.MethodPost, "/auth/reset-password", "", echo.Map{
		"email": "admin@x.com", "otp": code,
		"newPassword": "new-pass", "confirmPassword": "new-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.request(t, http.MethodPost, "/auth/login", "",
		echo.Map{"email": "admin@x.com", "password": "new-pass"})
	require.Equal(t, http.StatusOK, rec.Code)

	// the consumed code never works again
	rec = s.request(t, http.MethodPost, "/auth/reset-password", "", echo.Map{
		"email": "admin@x.com", "otp": code,
		"newPassword": "again", "confirmPassword": "again",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// customers get the same not-found answer as missing accounts
	_ = s.registerCustomer(t, "c@x.com")
	rec = s.request(t, http.MethodPost, "/auth/forgot-password", "", echo.Map{"email": "c@x.com"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.request(t, http.MethodPost, "/auth/forgot-password", "", echo.Map{"email": "none@x.com"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddressEndpoints(t *testing.T) {
	s := newTestServer(t)
	tok := s.registerCustomer(t, "c@x.com")

	rec := s.request(t, http.MethodPost, "/auth/addresses", tok, echo.Map{
		"label": "Home", "city": "Pune", "pincode": "411001", "country": "India",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[identity.AddressRecord](t, rec)
	require.True(t, created.Default, "first address becomes default")

	rec = s.request(t, http.MethodGet, "/auth/addresses", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]identity.AddressRecord](t, rec)
	require.Len(t, all, 1)

	rec = s.request(t, http.MethodPut, "/auth/addresses/"+itoa(created.ID), tok, echo.Map{
		"label": "House", "city": "Pune", "pincode": "411001", "country": "India",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[identity.AddressRecord](t, rec)
	require.Equal(t, "House", updated.Label)

	// another customer cannot touch it
	otherTok := s.registerCustomer(t, "other@x.com")
	rec = s.request(t, http.MethodDelete, "/auth/addresses/"+itoa(created.ID), otherTok, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.request(t, http.MethodDelete, "/auth/addresses/"+itoa(created.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{identity.ErrUserNotFound, http.StatusNotFound},
		{identity.ErrInvalidCredentials, http.StatusUnauthorized},
		{identity.ErrOTPInvalid, http.StatusBadRequest},
		{identity.ErrAccountInactive, http.StatusForbidden},
		{identity.ErrUserAlreadyExists, http.StatusConflict},
		{identity.ErrMailDelivery, http.StatusServiceUnavailable},
		{errors.New("surprise"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, statusOf(tc.err), "statusOf(%v)", tc.err)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
