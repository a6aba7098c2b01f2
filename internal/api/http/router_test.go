package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/live"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/memstore"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type testServer struct {
	app      *fiber.App
	db       *memstore.DB
	accounts *service.AccountService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	db := memstore.New()
	store := db.Store()
	tables := routing.Default()
	metrics := observability.NewMetrics()
	policy, err := authz.New()
	if err != nil {
		t.Fatalf("authz.New: %v", err)
	}
	dispatcher := events.NewInMemoryDispatcher(logger)
	hub := live.NewHub(live.NewStoreLoader(store), logger, live.WithMetrics(metrics))
	hub.Attach(dispatcher)
	t.Cleanup(hub.Close)

	accounts := service.NewAccountService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}, service.AccountDependencies{
		Accounts: store.Accounts,
	})
	tickets := service.NewTicketService(service.TicketDependencies{Store: store, Tables: tables, Dispatcher: dispatcher, Metrics: metrics})
	assignments := service.NewAssignmentService(service.AssignmentDependencies{Store: store, Tables: tables, Dispatcher: dispatcher, Metrics: metrics})
	feedback := service.NewFeedbackService(service.FeedbackDependencies{Store: store, Dispatcher: dispatcher, Metrics: metrics})
	messages := service.NewMessageService(service.MessageDependencies{Store: store, Dispatcher: dispatcher})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-service", "test", map[string]handlers.Pinger{"store": db}),
		Auth:           handlers.NewAuthHandler(accounts),
		Tickets:        handlers.NewTicketsHandler(tickets, messages, tables),
		Assignments:    handlers.NewAssignmentsHandler(assignments, tables),
		Feedback:       handlers.NewFeedbackHandler(feedback),
		Accounts:       handlers.NewAccountsHandler(accounts),
		Reports:        handlers.NewReportsHandler(service.NewReportService(store, tables)),
		Streams:        handlers.NewStreamsHandler(service.NewViewService(hub, policy), tables, logger, time.Second),
		AuthMiddleware: auth.NewAuthMiddleware(accounts.TokenManager(), store.Accounts),
		Policy:         policy,
		Metrics:        metrics,
	})
	return &testServer{app: app, db: db, accounts: accounts}
}

// seed stores an account directly and returns a bearer token for it.
func (s *testServer) seed(t *testing.T, role domain.Role) (*domain.Account, string) {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.NewString()
	account := &domain.Account{ID: id, Name: string(role), Email: id + "@example.com", Role: role, CreatedAt: now, UpdatedAt: now}
	if err := s.db.Store().Accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	token, _, err := s.accounts.TokenManager().GenerateToken(account)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return account, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	envelope, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error envelope in %v", body)
	}
	code, _ := envelope["code"].(string)
	return code
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	out, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data object in %v", body)
	}
	return out
}

func TestHealthLive(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, fiber.MethodGet, "/health/live", "", nil)
	if status != fiber.StatusOK || body["status"] != "alive" {
		t.Fatalf("got %d %v", status, body)
	}
	status, body = s.do(t, fiber.MethodGet, "/health/ready", "", nil)
	if status != fiber.StatusOK || body["status"] != "ready" {
		t.Fatalf("ready got %d %v", status, body)
	}
}

func TestRegisterLoginAndCreateTicket(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPost, "/auth/register", "", map[string]string{
		"name": "Dana", "email": "Dana@Example.com", "password": "correct-horse",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("register got %d %v", status, body)
	}
	account := data(t, body)["account"].(map[string]any)
	if account["email"] != "dana@example.com" || account["role"] != string(domain.RoleUser) {
		t.Fatalf("unexpected account %v", account)
	}

	status, body = s.do(t, fiber.MethodPost, "/auth/login", "", map[string]string{
		"email": "dana@example.com", "password": "correct-horse",
	})
	if status != fiber.StatusOK {
		t.Fatalf("login got %d %v", status, body)
	}
	token, _ := data(t, body)["auth"].(map[string]any)["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}

	status, body = s.do(t, fiber.MethodPost, "/v1/tickets", token, map[string]string{
		"category": "network", "description": "VPN drops every hour",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create got %d %v", status, body)
	}
	ticket := data(t, body)
	if ticket["status"] != string(domain.TicketStatusOpen) || ticket["color"] != "green" || ticket["category"] != "Network Issue" {
		t.Fatalf("unexpected ticket %v", ticket)
	}

	status, body = s.do(t, fiber.MethodGet, "/v1/tickets/"+ticket["id"].(string), token, nil)
	if status != fiber.StatusOK || data(t, body)["id"] != ticket["id"] {
		t.Fatalf("get got %d %v", status, body)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	if status, body := s.do(t, fiber.MethodPost, "/auth/register", "", map[string]string{
		"name": "Lee", "email": "lee@example.com", "password": "long-enough",
	}); status != fiber.StatusCreated {
		t.Fatalf("register got %d %v", status, body)
	}
	status, body := s.do(t, fiber.MethodPost, "/auth/login", "", map[string]string{
		"email": "lee@example.com", "password": "not-the-one",
	})
	if status != fiber.StatusUnauthorized || errorCode(t, body) != "UNAUTHORIZED" {
		t.Fatalf("got %d %v", status, body)
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, fiber.MethodGet, "/v1/tickets", "", nil)
	if status != fiber.StatusUnauthorized || errorCode(t, body) != "UNAUTHORIZED" {
		t.Fatalf("got %d %v", status, body)
	}
}

func TestCreateTicketValidationEnvelope(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seed(t, domain.RoleUser)

	status, body := s.do(t, fiber.MethodPost, "/v1/tickets", token, map[string]string{"category": "network"})
	if status != fiber.StatusBadRequest || errorCode(t, body) != "VALIDATION_FAILED" {
		t.Fatalf("got %d %v", status, body)
	}
	details, _ := body["error"].(map[string]any)["details"].(map[string]any)
	if _, ok := details["description"]; !ok {
		t.Fatalf("expected description detail, got %v", details)
	}
}

func TestMalformedCreatedRangeIsRejected(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.seed(t, domain.RoleUser)
	_, staffToken := s.seed(t, domain.RoleNetworkEngineer)

	for _, tc := range []struct {
		path  string
		token string
	}{
		{"/v1/tickets?created_from=yesterday", userToken},
		{"/v1/tickets?created_to=2024-13-01", userToken},
		{"/v1/assignments?created_from=garbage", staffToken},
	} {
		status, body := s.do(t, fiber.MethodGet, tc.path, tc.token, nil)
		if status != fiber.StatusBadRequest || errorCode(t, body) != "VALIDATION_FAILED" {
			t.Fatalf("%s: got %d %v", tc.path, status, body)
		}
	}

	status, body := s.do(t, fiber.MethodGet, "/v1/tickets?created_from=2024-01-01T00:00:00Z", userToken, nil)
	if status != fiber.StatusOK {
		t.Fatalf("well-formed range: got %d %v", status, body)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, fiber.MethodGet, "/nope", "", nil)
	if status != fiber.StatusNotFound || errorCode(t, body) != "NOT_FOUND" {
		t.Fatalf("got %d %v", status, body)
	}
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.seed(t, domain.RoleUser)
	_, staffToken := s.seed(t, domain.RoleNetworkEngineer)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
	}{
		{"user lists accounts", fiber.MethodGet, "/v1/accounts", userToken, nil},
		{"user reads reports", fiber.MethodGet, "/v1/reports", userToken, nil},
		{"staff opens ticket", fiber.MethodPost, "/v1/tickets", staffToken, map[string]string{"category": "network", "description": "x"}},
		{"staff changes roles", fiber.MethodPatch, "/v1/accounts/any/role", staffToken, map[string]string{"role": "admin"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := s.do(t, tc.method, tc.path, tc.token, tc.body)
			if status != fiber.StatusForbidden || errorCode(t, body) != "FORBIDDEN" {
				t.Fatalf("got %d %v", status, body)
			}
		})
	}
}

func TestAssignmentFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.seed(t, domain.RoleUser)
	_, adminToken := s.seed(t, domain.RoleAdmin)
	staff, staffToken := s.seed(t, domain.RoleNetworkEngineer)

	_, body := s.do(t, fiber.MethodPost, "/v1/tickets", userToken, map[string]string{
		"category": "network", "description": "Switch port dead",
	})
	ticketID := data(t, body)["id"].(string)

	status, body := s.do(t, fiber.MethodGet, "/v1/tickets/"+ticketID+"/candidates", adminToken, nil)
	if status != fiber.StatusOK {
		t.Fatalf("candidates got %d %v", status, body)
	}

	status, body = s.do(t, fiber.MethodPost, "/v1/tickets/"+ticketID+"/assignment", adminToken, map[string]string{"assignee_id": staff.ID})
	if status != fiber.StatusCreated {
		t.Fatalf("assign got %d %v", status, body)
	}
	result := data(t, body)
	assignmentID := result["assignment"].(map[string]any)["id"].(string)
	if result["ticket"].(map[string]any)["status"] != string(domain.TicketStatusInProgress) {
		t.Fatalf("unexpected ticket %v", result["ticket"])
	}

	status, body = s.do(t, fiber.MethodPost, "/v1/assignments/"+assignmentID+"/resolve", staffToken, nil)
	if status != fiber.StatusOK {
		t.Fatalf("resolve got %d %v", status, body)
	}

	status, body = s.do(t, fiber.MethodPost, "/v1/tickets/"+ticketID+"/feedback", userToken, map[string]any{"rating": 5, "comment": "fast"})
	if status != fiber.StatusCreated {
		t.Fatalf("feedback got %d %v", status, body)
	}
	status, body = s.do(t, fiber.MethodPost, "/v1/tickets/"+ticketID+"/feedback", userToken, map[string]any{"rating": 4, "comment": "fast enough"})
	if status != fiber.StatusOK {
		t.Fatalf("feedback update got %d %v", status, body)
	}
}

func TestRoutingGapOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.seed(t, domain.RoleUser)
	_, adminToken := s.seed(t, domain.RoleAdmin)

	_, body := s.do(t, fiber.MethodPost, "/v1/tickets", userToken, map[string]string{
		"category": "technical", "description": "Laptop fan noise",
	})
	ticketID := data(t, body)["id"].(string)

	status, body := s.do(t, fiber.MethodGet, "/v1/tickets/"+ticketID+"/candidates", adminToken, nil)
	if status != fiber.StatusUnprocessableEntity || errorCode(t, body) != "ROUTING_GAP" {
		t.Fatalf("got %d %v", status, body)
	}
}

func TestLastAdminDemotionIsNoop(t *testing.T) {
	s := newTestServer(t)
	admin, adminToken := s.seed(t, domain.RoleAdmin)

	status, body := s.do(t, fiber.MethodPatch, "/v1/accounts/"+admin.ID+"/role", adminToken, map[string]string{"role": string(domain.RoleUser)})
	if status != fiber.StatusOK {
		t.Fatalf("got %d %v", status, body)
	}
	result := data(t, body)
	if result["changed"] != false || result["account"].(map[string]any)["role"] != string(domain.RoleAdmin) {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, fiber.MethodGet, "/health/live", "", nil)

	resp, err := s.app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(raw), "helpdesk_http_requests_total") {
		t.Fatalf("got %d %s", resp.StatusCode, raw)
	}
}

func TestStreamViewsListing(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seed(t, domain.RoleUser)
	status, body := s.do(t, fiber.MethodGet, "/v1/streams", token, nil)
	if status != fiber.StatusOK {
		t.Fatalf("got %d %v", status, body)
	}
	if _, ok := body["data"].([]any); !ok {
		t.Fatalf("expected list of views, got %v", body)
	}
}
