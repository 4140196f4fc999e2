package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/angelmondragon/domiciliarios-backend/internal/auth"
	"github.com/angelmondragon/domiciliarios-backend/internal/ledger"
	"github.com/angelmondragon/domiciliarios-backend/internal/services"
	"github.com/angelmondragon/domiciliarios-backend/internal/settlement"
	pkgAuth "github.com/angelmondragon/domiciliarios-backend/pkg/auth"
	"github.com/angelmondragon/domiciliarios-backend/pkg/auth/session"
	"github.com/angelmondragon/domiciliarios-backend/pkg/config"
	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	"github.com/angelmondragon/domiciliarios-backend/pkg/logger"
	"github.com/angelmondragon/domiciliarios-backend/pkg/redis"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "token", User: auth.UserDTO{ID: 1, Username: req.Identifier}}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

// stubSettlementService records the filter and actor it was called with.
type stubSettlementService struct {
	settlement.Service
	opened   services.FilterState
	actor    settlement.Actor
	confirms int
}

func (s *stubSettlementService) Open(ctx context.Context, actor settlement.Actor, filter services.FilterState) (*settlement.Workflow, error) {
	s.opened = filter
	s.actor = actor
	return &settlement.Workflow{ID: "wf-1", OwnerID: actor.UserID, State: enums.WorkflowStateBrowsing, Filter: filter}, nil
}

func (s *stubSettlementService) Confirm(ctx context.Context, actor settlement.Actor, id string) (*settlement.CommitResult, error) {
	s.confirms++
	return &settlement.CommitResult{Outcome: enums.SettlementOutcomeCommitted, Workflow: &settlement.Workflow{ID: id}}, nil
}

type stubLedgerService struct {
	ledger.Service
	params ledger.ListParams
}

func (s *stubLedgerService) ListRuns(ctx context.Context, params ledger.ListParams) (*ledger.ListResult, error) {
	s.params = params
	return &ledger.ListResult{Items: []ledger.Run{}}, nil
}

type routerFixture struct {
	cfg        *config.Config
	handler    http.Handler
	sessions   *session.Manager
	settlement *stubSettlementService
	ledger     *stubLedgerService
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "domiciliarios-test",
			ExpirationMinutes: 30,
		},
		Settlement: config.SettlementConfig{TimeZone: "UTC"},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:          time.Minute,
			LoginIdentifierLimit: 5,
			LoginIPLimit:         20,
		},
	}
}

func newFixture(t *testing.T) *routerFixture {
	t.Helper()
	return newFixtureIn(t, time.UTC)
}

func newFixtureIn(t *testing.T, loc *time.Location) *routerFixture {
	t.Helper()
	cfg := testConfig()
	store := redis.NewMemory()
	sessions, err := session.NewManager(store, cfg.JWT)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	settlementSvc := &stubSettlementService{}
	ledgerSvc := &stubLedgerService{}
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	handler := NewRouter(cfg, logg, Dependencies{
		DB:                stubPinger{},
		Redis:             store,
		Sessions:          sessions,
		AuthService:       stubAuthService{},
		SettlementService: settlementSvc,
		LedgerService:     ledgerSvc,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Location: loc,
	})
	return &routerFixture{cfg: cfg, handler: handler, sessions: sessions, settlement: settlementSvc, ledger: ledgerSvc}
}

func (f *routerFixture) token(t *testing.T, role enums.UserRole) string {
	t.Helper()
	sess, err := f.sessions.Create(context.Background(), session.Session{
		UserID:   42,
		Username: "ana",
		Role:     role,
		CMSToken: "cms-token",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	token, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   sess.UserID,
		Username: sess.Username,
		Role:     sess.Role,
		JTI:      sess.ID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	f := newFixture(t)
	resp := f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Domiciliarios-Env") != "dev" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReady(t *testing.T) {
	f := newFixture(t)
	resp := f.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	f := newFixture(t)
	resp := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "metrics") {
		t.Fatalf("expected metrics handler, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestLoginIsPublic(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"identifier":"ana","password":"pw"}`))
	resp := f.do(req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAuthMeRequiresSession(t *testing.T) {
	f := newFixture(t)
	resp := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.UserRoleMerchant))
	resp = f.do(req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var body struct {
		Data auth.UserDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.ID != 42 || body.Data.Role != enums.UserRoleMerchant {
		t.Fatalf("unexpected user %+v", body.Data)
	}
}

func TestSettlementRoutesRejectMissingJWT(t *testing.T) {
	f := newFixture(t)
	resp := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/admin/settlements/runs", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestSettlementRoutesRequireAdministrator(t *testing.T) {
	f := newFixture(t)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/settlements/runs", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+f.token(t, enums.UserRoleAssistant))
	if resp := f.do(nonAdmin); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/settlements/runs?courierId=3&page=2", nil)
	admin.Header.Set("Authorization", "Bearer "+f.token(t, enums.UserRoleAdministrator))
	if resp := f.do(admin); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
	if f.ledger.params.CourierID != 3 || f.ledger.params.Page != 2 {
		t.Fatalf("unexpected ledger params %+v", f.ledger.params)
	}
}

func TestOpenSettlementSessionResolvesDates(t *testing.T) {
	f := newFixture(t)
	body := `{"courierId":3,"fechaInicio":"2024-03-01","fechaFin":"2024-03-31","settlement":"all"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/settlements/sessions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.UserRoleAdministrator))
	resp := f.do(req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	opened := f.settlement.opened
	if opened.CourierID != 3 || opened.Settlement != enums.SettlementFilterAll {
		t.Fatalf("unexpected filter %+v", opened)
	}
	if opened.From == nil || !opened.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %v", opened.From)
	}
	if opened.To == nil || opened.To.Day() != 31 || opened.To.Hour() != 23 {
		t.Fatalf("expected end of day, got %v", opened.To)
	}
	if f.settlement.actor.Tokens == nil || f.settlement.actor.Tokens.CurrentToken() != "cms-token" {
		t.Fatal("expected actor bound to the session token")
	}
}

func TestOpenSettlementSessionUsesConfiguredLocation(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	f := newFixtureIn(t, bogota)
	body := `{"courierId":3,"fechaInicio":"2024-03-01","fechaFin":"2024-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/settlements/sessions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.UserRoleAdministrator))
	if resp := f.do(req); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	from := f.settlement.opened.From
	if from == nil || !from.Equal(time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected Bogota midnight (05:00 UTC), got %v", from)
	}
}

func TestOpenSettlementSessionValidatesBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/settlements/sessions", strings.NewReader(`{"fechaInicio":"01/03/2024"}`))
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.UserRoleAdministrator))
	resp := f.do(req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestConfirmRequiresIdempotencyKeyAndReplays(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, enums.UserRoleAdministrator)

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/admin/settlements/sessions/wf-1/confirm", nil)
	missing.Header.Set("Authorization", "Bearer "+token)
	if resp := f.do(missing); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/settlements/sessions/wf-1/confirm", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "confirm-1")
		if resp := f.do(req); resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i, resp.Code)
		}
	}
	if f.settlement.confirms != 1 {
		t.Fatalf("expected one confirm, got %d", f.settlement.confirms)
	}
}
