package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pizzeria-backoffice-api-server/config"
	"pizzeria-backoffice-api-server/internal/audit"
	"pizzeria-backoffice-api-server/internal/auth"
	"pizzeria-backoffice-api-server/internal/drafting"
	"pizzeria-backoffice-api-server/internal/inventory"
	"pizzeria-backoffice-api-server/internal/invoice"
	"pizzeria-backoffice-api-server/internal/models"
	"pizzeria-backoffice-api-server/internal/negotiation"
	"pizzeria-backoffice-api-server/internal/quotation"
	"pizzeria-backoffice-api-server/internal/socket"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	hash, err := auth.HashPassword("margherita")
	require.NoError(t, err)
	mem.PutUser(models.User{UserID: "USR-1", Email: "chef@pizzeria.test", Password: hash, Role: models.RoleManager, Status: "active"})

	issuer, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	queue := audit.NewQueue(mem, 16, nil)
	t.Cleanup(func() { _ = queue.Close(context.Background()) })

	hub := socket.NewHub(nil)
	drafter := drafting.NewDrafter(nil, "Pizzeria Test", nil)
	inv := inventory.NewService(inventory.Options{Remote: mem, MirrorDebounce: 10 * time.Millisecond})

	router := SetupRouter(Dependencies{
		Config:    config.Config{Server: config.ServerConfig{Env: "test", AllowedOrigins: []string{"http://localhost:5173"}}},
		Issuer:    issuer,
		Users:     mem,
		Suppliers: mem.Suppliers(),
		Quotations: quotation.NewService(quotation.Deps{
			Store:    mem,
			Audit:    queue,
			AuditLog: mem,
			Drafter:  drafter,
			Notifier: hub,
		}),
		Negotiator: negotiation.NewAnalyzer(negotiation.NewPriceCache(nil, mem, time.Minute, 50, nil), drafter, 3),
		Inventory:  inv,
		Scanner:    invoice.NewScanner(nil, nil, inv, nil),
		Hub:        hub,
	})

	ts := &testServer{router: router}
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "chef@pizzeria.test", "password": "margherita",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	ts.token = login.Token
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestLoginAndAuth(t *testing.T) {
	ts := newTestServer(t)

	anon := &testServer{router: ts.router}
	rec := anon.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "chef@pizzeria.test", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = anon.do(t, http.MethodGet, "/api/v1/quotations", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/quotations", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestQuotationLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/suppliers", map[string]interface{}{
		"name": "Caseificio Rossi", "email": "ordini@rossi.it",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	supplier := decode[models.Supplier](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/quotations", map[string]interface{}{
		"supplierID": supplier.SupplierID,
		"items": []map[string]interface{}{
			{"productName": "Mozzarella", "quantity": 10, "unit": "kg", "estimatedUnitPrice": 5.0},
			{"productName": "Farina 00", "quantity": 20, "unit": "kg", "estimatedUnitPrice": 2.0},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	q := decode[models.Quotation](t, rec)
	assert.Equal(t, models.StatusDraft, q.Status)
	assert.Equal(t, 90.0, q.EstimatedTotal)
	assert.Equal(t, "chef@pizzeria.test", q.CreatedBy)

	rec = ts.do(t, http.MethodPost, "/api/v1/quotations/"+q.QuotationID+"/send", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusPending, decode[models.Quotation](t, rec).Status)

	rec = ts.do(t, http.MethodPost, "/api/v1/quotations/"+q.QuotationID+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/quotations/"+q.QuotationID+"/status", map[string]interface{}{"status": "approved"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/quotations/QUO-MISSING", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/quotations/"+q.QuotationID+"/negotiation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := decode[negotiation.Analysis](t, rec)
	assert.Len(t, analysis.SkippedItems, 2)

	require.Eventually(t, func() bool {
		rec := ts.do(t, http.MethodGet, "/api/v1/quotations/"+q.QuotationID+"/audit", nil)
		return rec.Code == http.StatusOK && len(decode[[]models.AuditEntry](t, rec)) == 2
	}, 2*time.Second, 20*time.Millisecond)

	rec = ts.do(t, http.MethodGet, "/api/v1/quotations?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Quotation](t, rec), 1)
}

func TestInventoryOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/v1/inventory/products/new", map[string]interface{}{
		"name": "Basilico", "category": "Erbe", "unit": "mazzo", "currentStock": 2, "minStock": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[models.Product](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/inventory/products/"+p.ProductID+"/consume", map[string]interface{}{"quantity": 5})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/inventory/low-stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	low := decode[[]models.LowStockProduct](t, rec)
	require.Len(t, low, 1)
	assert.Equal(t, "Basilico", low[0].Name)

	rec = ts.do(t, http.MethodGet, "/api/v1/inventory/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	backup := rec.Body.Bytes()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/import", bytes.NewReader(backup))
	req.Header.Set("Authorization", "Bearer "+ts.token)
	out := httptest.NewRecorder()
	ts.router.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code, out.Body.String())
	assert.Equal(t, []string{"Erbe"}, decode[models.InventorySnapshot](t, out).Categories)
}

func TestInvoiceScanRequiresFile(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/v1/invoices/scan", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
