package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/audit"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/config"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/dto"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/gateway"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/goroutine"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/http/handlers"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/ids"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/metrics"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/memory"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/service"
)

type apiFixture struct {
	router   *gin.Engine
	tokens   *service.TokenManager
	client   uuid.UUID
	provider uuid.UUID
	operator uuid.UUID
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	gen := ids.New()
	m := metrics.New()
	broker := audit.NewBroker()
	async := goroutine.NewRecoveryHandler(logger.Adapter{})
	t.Cleanup(async.Wait)

	ledger := service.NewLedger(gateway.NewSandbox(), service.LedgerConfig{FeeRate: 1000}, gen, m)
	orders := service.NewOrderEngine(service.EngineDeps{
		Store: store, Ledger: ledger, IDs: gen, Audit: broker, Metrics: m, Async: async,
	})
	disputes := service.NewDisputeEngine(orders)
	tokens := service.NewTokenManager("test-secret-test-secret-test-secret", time.Hour)

	cfg := &config.Config{Env: "test", AllowedOrigins: []string{"*"}, RateLimitLimit: 1000, RateLimitPeriod: time.Minute}
	r := SetupRouter(cfg, Handlers{
		Orders:      handlers.NewOrderHandler(orders),
		Disputes:    handlers.NewDisputeHandler(disputes),
		AuditStream: handlers.NewAuditStreamHandler(orders, broker),
		Health:      handlers.NewHealthHandler(store),
		Tokens:      tokens,
		Metrics:     m,
	})

	return &apiFixture{router: r, tokens: tokens, client: uuid.New(), provider: uuid.New(), operator: uuid.New()}
}

func (f *apiFixture) token(t *testing.T, userID uuid.UUID, role valueobject.Role) string {
	t.Helper()
	tok, err := f.tokens.NewAccessToken(userID, role)
	require.NoError(t, err)
	return tok
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (f *apiFixture) createOrder(t *testing.T) models.Order {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/orders", f.token(t, f.client, valueobject.RoleClient), dto.CreateOrderRequest{
		ProviderID:   f.provider,
		ServiceTitle: "Сборка мебели",
		ServicePrice: 20000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Order](t, w)
}

func TestAPI_OrderLifecycle(t *testing.T) {
	f := newAPI(t)
	clientTok := f.token(t, f.client, valueobject.RoleClient)
	providerTok := f.token(t, f.provider, "freelancer")

	order := f.createOrder(t)
	assert.Equal(t, valueobject.OrderStatusSent, order.Status)
	base := "/api/orders/" + order.ID.String()

	steps := []struct {
		path   string
		token  string
		status valueobject.OrderStatus
	}{
		{"/accept", providerTok, valueobject.OrderStatusAccepted},
		{"/fund", clientTok, valueobject.OrderStatusPaidEscrowHeld},
		{"/begin", providerTok, valueobject.OrderStatusAwaitingStartConfirmation},
		{"/confirm-start", clientTok, valueobject.OrderStatusInExecution},
		{"/request-finish", providerTok, valueobject.OrderStatusAwaitingFinishConfirmation},
		{"/confirm-finish", clientTok, valueobject.OrderStatusCompleted},
	}
	for _, step := range steps {
		w := f.do(t, http.MethodPost, base+step.path, step.token, nil)
		require.Equal(t, http.StatusOK, w.Code, "%s: %s", step.path, w.Body.String())
		assert.Equal(t, step.status, decode[models.Order](t, w).Status)
	}

	w := f.do(t, http.MethodGet, base+"/payment", clientTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payment := decode[models.Payment](t, w)
	assert.Equal(t, int64(2000), payment.OperatorFee)
	assert.Equal(t, int64(18000), payment.ProviderAmount)
	assert.Equal(t, valueobject.EscrowReleased, payment.EscrowStatus)

	w = f.do(t, http.MethodGet, base+"/audit", providerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.AuditLogEntry](t, w), 7)

	w = f.do(t, http.MethodGet, base+"/audit/replay", f.token(t, f.operator, valueobject.RoleOperator), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[service.AuditReplay](t, w).Consistent)

	w = f.do(t, http.MethodGet, "/api/orders?status=completed", clientTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.ListResponse[models.Order]](t, w).Items, 1)
}

func TestAPI_Errors(t *testing.T) {
	f := newAPI(t)
	order := f.createOrder(t)
	clientTok := f.token(t, f.client, valueobject.RoleClient)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/api/orders", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad token", http.MethodGet, "/api/orders", "garbage", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown role", http.MethodGet, "/api/orders", f.token(t, uuid.New(), "guest"), http.StatusForbidden, "FORBIDDEN"},
		{"bad uuid", http.MethodGet, "/api/orders/not-a-uuid", clientTok, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing order", http.MethodGet, "/api/orders/" + uuid.NewString(), clientTok, http.StatusNotFound, "NOT_FOUND"},
		{"wrong role", http.MethodPost, "/api/orders/" + order.ID.String() + "/accept", clientTok, http.StatusForbidden, "FORBIDDEN"},
		{"invalid transition", http.MethodPost, "/api/orders/" + order.ID.String() + "/fund", clientTok, http.StatusConflict, "INVALID_TRANSITION"},
		{"bad status filter", http.MethodGet, "/api/orders?status=lost", clientTok, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.token, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[dto.ErrorResponse](t, w).Code)
		})
	}
}

func TestAPI_CreateOrder_ValidationError(t *testing.T) {
	f := newAPI(t)
	w := f.do(t, http.MethodPost, "/api/orders", f.token(t, f.client, valueobject.RoleClient), map[string]any{
		"service_title": "Без исполнителя",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[dto.ErrorResponse](t, w).Code)
}

func TestAPI_DisputeFlow(t *testing.T) {
	f := newAPI(t)
	clientTok := f.token(t, f.client, valueobject.RoleClient)
	providerTok := f.token(t, f.provider, valueobject.RoleProvider)
	operatorTok := f.token(t, f.operator, "admin")

	order := f.createOrder(t)
	base := "/api/orders/" + order.ID.String()
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/accept", providerTok, nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/fund", clientTok, nil).Code)

	w := f.do(t, http.MethodPost, base+"/disputes", clientTok, dto.OpenDisputeRequest{ReasonCode: "provider_no_show"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dispute := decode[models.Dispute](t, w)

	w = f.do(t, http.MethodPost, base+"/disputes", providerTok, dto.OpenDisputeRequest{ReasonCode: "other"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DISPUTE_ALREADY_OPEN", decode[dto.ErrorResponse](t, w).Code)

	dpath := "/api/disputes/" + dispute.ID.String()
	w = f.do(t, http.MethodPost, dpath+"/messages", providerTok, dto.DisputeMessageRequest{Text: "был на месте в 10:00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, dpath+"/resolve", providerTok, dto.ResolveDisputeRequest{
		DecisionCode: "favor_provider", FinalOrderStatus: "completed",
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, dpath+"/resolve", operatorTok, dto.ResolveDisputeRequest{
		DecisionCode: "favor_client", FinalOrderStatus: "cancelled",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, dpath+"/resolve", operatorTok, dto.ResolveDisputeRequest{
		DecisionCode: "favor_client", FinalOrderStatus: "cancelled",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_APPLIED", decode[dto.ErrorResponse](t, w).Code)

	w = f.do(t, http.MethodGet, dpath+"/messages", clientTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.DisputeMessage](t, w), 1)

	w = f.do(t, http.MethodGet, dpath+"/resolution", clientTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, valueobject.OrderStatusCancelled, decode[models.DisputeResolution](t, w).FinalOrderStatus)

	w = f.do(t, http.MethodGet, base+"/payment", clientTok, nil)
	assert.Equal(t, valueobject.EscrowRefunded, decode[models.Payment](t, w).EscrowStatus)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	f := newAPI(t)
	f.createOrder(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[handlers.HealthResponse](t, w).Status)

	w = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "order_transitions_total")
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestAPI_AuditStream_SendsHistory(t *testing.T) {
	f := newAPI(t)
	order := f.createOrder(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+order.ID.String()+"/audit/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+f.token(t, f.client, valueobject.RoleClient))
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: audit\ndata: {"), body)
	assert.Contains(t, body, `"new_status":"sent"`)
}

func TestAPI_CORSPreflight(t *testing.T) {
	f := newAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
