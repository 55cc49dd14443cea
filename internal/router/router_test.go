package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cajaflow/internal/config"
	"cajaflow/internal/infra"
	"cajaflow/internal/middleware"
	"cajaflow/internal/model"
	"cajaflow/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const secret = "router-test-secret"

type stack struct {
	r          *gin.Engine
	db         *gorm.DB
	businessID uuid.UUID
	owner      string
	cashier    string
}

func newStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "router.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infra.RunMigrations(db))

	s := &stack{db: db, businessID: uuid.New()}
	ownerID, cashierID := uuid.New(), uuid.New()
	require.NoError(t, db.Create(&model.Business{ID: s.businessID, Name: "Kiosco", Timezone: "UTC"}).Error)
	require.NoError(t, db.Create(&model.BusinessMember{BusinessID: s.businessID, UserID: ownerID, Role: middleware.RolOwner}).Error)
	require.NoError(t, db.Create(&model.BusinessMember{BusinessID: s.businessID, UserID: cashierID, Role: middleware.RolCashier}).Error)
	s.owner = sign(t, ownerID, middleware.RolOwner)
	s.cashier = sign(t, cashierID, middleware.RolCashier)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg := &config.Config{
		Env:            "test",
		JWTSecret:      secret,
		ExactTolerance: "0.01",
		ReportTimezone: "UTC",
	}
	s.r = router.New(ctx, cfg, db, nil, router.Deps{})
	return s
}

func sign(t *testing.T, userID uuid.UUID, rol string) string {
	t.Helper()
	claims := middleware.JWTClaims{
		UserID:           userID.String(),
		Rol:              rol,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func (s *stack) call(t *testing.T, method, path, tok, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func (s *stack) pay(t *testing.T, metodo, amount string) {
	t.Helper()
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.db.Create(&model.Payment{
		ID:            uuid.New(),
		BusinessID:    s.businessID,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: metodo,
		Status:        model.PagoCompletado,
		CreatedAt:     time.Now().UTC(),
	}).Error)
	time.Sleep(2 * time.Millisecond)
}

func assertDecimal(t *testing.T, want string, got interface{}, field string) {
	t.Helper()
	str, ok := got.(string)
	require.True(t, ok, "%s: not a string: %v", field, got)
	assert.True(t, decimal.RequireFromString(str).Equal(decimal.RequireFromString(want)), "%s: want %s, got %s", field, want, str)
}

// ── Till lifecycle over HTTP ─────────────────────────────────────────────────

func TestRouter_TillLifecycle(t *testing.T) {
	s := newStack(t)
	biz := s.businessID.String()

	code, body := s.call(t, http.MethodPost, "/v1/caja/abrir", s.cashier, `{"business_id":"`+biz+`","initial_cash":"50.00"}`)
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)

	s.pay(t, model.MetodoEfectivo, "30.00")
	s.pay(t, model.MetodoEfectivo, "15.00")
	s.pay(t, model.MetodoTransferencia, "20.00")

	code, body = s.call(t, http.MethodPost, "/v1/caja/"+id+"/gastos", s.cashier, `{"amount":"12.00","description":"Bolsas"}`)
	require.Equal(t, http.StatusCreated, code, body)

	code, body = s.call(t, http.MethodGet, "/v1/caja/actual?business_id="+biz, s.cashier, "")
	require.Equal(t, http.StatusOK, code, body)
	assertDecimal(t, "45.00", body["current_cash_sales"], "current_cash_sales")
	assertDecimal(t, "20.00", body["current_transfer_sales"], "current_transfer_sales")
	assertDecimal(t, "12.00", body["current_expenses"], "current_expenses")
	assertDecimal(t, "83.00", body["expected_cash"], "expected_cash")

	code, body = s.call(t, http.MethodPost, "/v1/caja/abrir", s.cashier, `{"business_id":"`+biz+`","initial_cash":"10.00"}`)
	assert.Equal(t, http.StatusConflict, code, body)
	assert.Equal(t, "conflict", body["code"])

	code, body = s.call(t, http.MethodPost, "/v1/caja/"+id+"/cerrar", s.cashier, `{"counted_cash":{"mode":"manual","amount":"80.00"}}`)
	require.Equal(t, http.StatusOK, code, body)
	assertDecimal(t, "-3.00", body["difference"], "difference")
	assert.Equal(t, model.DiferenciaFaltante, body["difference_type"])

	code, body = s.call(t, http.MethodPost, "/v1/caja/"+id+"/gastos", s.cashier, `{"amount":"1.00","description":"Cinta"}`)
	assert.Equal(t, http.StatusConflict, code, body)
	assert.Equal(t, "invalid_state", body["code"])

	code, _ = s.call(t, http.MethodPost, "/v1/caja/"+id+"/cerrar", s.cashier, `{"counted_cash":{"mode":"manual","amount":"83.00"}}`)
	assert.Equal(t, http.StatusConflict, code)

	code, body = s.call(t, http.MethodGet, "/v1/caja/"+id, s.owner, "")
	require.Equal(t, http.StatusOK, code, body)
	session := body["session"].(map[string]interface{})
	assert.Equal(t, model.SesionCerrada, session["status"])
	assertDecimal(t, "80.00", session["actual_cash_counted"], "actual_cash_counted")

	code, _ = s.call(t, http.MethodGet, "/v1/caja/actual?business_id="+biz, s.cashier, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.call(t, http.MethodPost, "/v1/caja/abrir", s.cashier, `{"business_id":"`+biz+`","initial_cash":"10.00"}`)
	assert.Equal(t, http.StatusCreated, code, body)
}

func TestRouter_DenominatedClose(t *testing.T) {
	s := newStack(t)
	biz := s.businessID.String()

	code, body := s.call(t, http.MethodPost, "/v1/caja/abrir", s.cashier, `{"business_id":"`+biz+`","initial_cash":"46.00"}`)
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)

	for _, d := range []string{
		`{"type":"bill","value":"20","quantity":2}`,
		`{"type":"bill","value":"5","quantity":1}`,
	} {
		code, body = s.call(t, http.MethodPut, "/v1/caja/"+id+"/denominaciones", s.cashier, d)
		require.Equal(t, http.StatusNoContent, code, body)
	}

	code, body = s.call(t, http.MethodPost, "/v1/caja/"+id+"/cerrar", s.cashier, `{"counted_cash":{"mode":"manual","amount":"50.00"}}`)
	require.Equal(t, http.StatusConflict, code, body)
	assert.Equal(t, "integrity_mismatch", body["code"])
	assertDecimal(t, "45.00", body["subtotal_denominaciones"], "subtotal_denominaciones")

	code, body = s.call(t, http.MethodPost, "/v1/caja/"+id+"/cerrar", s.cashier,
		`{"counted_cash":{"mode":"denominated","denominations":[{"type":"coin","value":"0.25","quantity":4}]}}`)
	require.Equal(t, http.StatusOK, code, body)
	assertDecimal(t, "46.00", body["actual_cash_counted"], "actual_cash_counted")
	assert.Equal(t, model.DiferenciaExacto, body["difference_type"])
}

func TestRouter_DenominatedCloseWithDisagreeingAmount(t *testing.T) {
	s := newStack(t)
	biz := s.businessID.String()

	code, body := s.call(t, http.MethodPost, "/v1/caja/abrir", s.cashier, `{"business_id":"`+biz+`","initial_cash":"40.00"}`)
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)

	code, body = s.call(t, http.MethodPost, "/v1/caja/"+id+"/cerrar", s.cashier,
		`{"counted_cash":{"mode":"denominated","amount":"1000.00","denominations":[{"type":"bill","value":"20","quantity":2}]}}`)
	require.Equal(t, http.StatusConflict, code, body)
	assert.Equal(t, "integrity_mismatch", body["code"])
	assertDecimal(t, "1000.00", body["declarado"], "declarado")
	assertDecimal(t, "40.00", body["subtotal_denominaciones"], "subtotal_denominaciones")

	// The rows sent with the failed close were rolled back with it.
	code, body = s.call(t, http.MethodGet, "/v1/caja/"+id+"/denominaciones", s.cashier, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Empty(t, body["rows"])

	code, body = s.call(t, http.MethodGet, "/v1/caja/actual?business_id="+biz, s.cashier, "")
	assert.Equal(t, http.StatusOK, code, body)
}

func TestRouter_EmptyDrawerDenominatedClose(t *testing.T) {
	s := newStack(t)
	biz := s.businessID.String()

	code, body := s.call(t, http.MethodPost, "/v1/caja/abrir", s.cashier, `{"business_id":"`+biz+`","initial_cash":"0.00"}`)
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)

	code, body = s.call(t, http.MethodPost, "/v1/caja/"+id+"/cerrar", s.cashier,
		`{"counted_cash":{"mode":"denominated","denominations":[{"type":"bill","value":"20","quantity":0}]}}`)
	require.Equal(t, http.StatusOK, code, body)
	assertDecimal(t, "0", body["actual_cash_counted"], "actual_cash_counted")
	assert.Equal(t, model.DiferenciaExacto, body["difference_type"])
}

// ── Access control ───────────────────────────────────────────────────────────

func TestRouter_RolesAndMembership(t *testing.T) {
	s := newStack(t)
	biz := s.businessID.String()

	code, _ := s.call(t, http.MethodGet, "/v1/caja/historial?business_id="+biz, "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.call(t, http.MethodGet, "/v1/caja/historial?business_id="+biz, s.cashier, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, body := s.call(t, http.MethodGet, "/v1/caja/historial?business_id="+biz, s.owner, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(0), body["total"])

	today := time.Now().UTC().Format("2006-01-02")
	code, _ = s.call(t, http.MethodGet, "/v1/reportes/diario?business_id="+biz+"&fecha="+today, s.cashier, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.call(t, http.MethodGet, "/v1/reportes/diario?business_id="+biz+"&fecha="+today, s.owner, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, today, body["date"])

	outsider := sign(t, uuid.New(), middleware.RolOwner)
	code, body = s.call(t, http.MethodPost, "/v1/caja/abrir", outsider, `{"business_id":"`+biz+`","initial_cash":"1.00"}`)
	assert.Equal(t, http.StatusForbidden, code, body)
}

func TestRouter_EventsNeedRedis(t *testing.T) {
	s := newStack(t)

	code, body := s.call(t, http.MethodGet, "/v1/caja/eventos?business_id="+s.businessID.String(), s.cashier, "")
	assert.Equal(t, http.StatusConflict, code, body)
}

func TestRouter_HealthReportsRedisDown(t *testing.T) {
	s := newStack(t)

	code, body := s.call(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "error", body["redis"])
}

func TestRouter_RequestIDIsEchoed(t *testing.T) {
	s := newStack(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}
