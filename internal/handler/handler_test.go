package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"shop/internal/config"
	"shop/internal/gateway"
	"shop/internal/handler"
	"shop/internal/middleware"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "handler_secret"
	successURL = "https://shop.example/pay/success"
	failURL    = "https://shop.example/pay/fail"
)

// DBまで届いたらテスト失敗（入口で弾かれるケースだけを見る）
type noTx struct{ t *testing.T }

func (n noTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	n.t.Helper()
	n.t.Errorf("unexpected transaction")
	return errors.New("unexpected transaction")
}

type fakeGateway struct {
	cb  gateway.Callback
	err error
}

func (g fakeGateway) Name() string { return "vnpay" }

func (g fakeGateway) PaymentURL(ctx context.Context, req gateway.PaymentRequest) (string, error) {
	return "", errors.New("not used")
}

func (g fakeGateway) ParseCallback(q url.Values) (gateway.Callback, error) {
	return g.cb, g.err
}

type clock struct{}

func (clock) Now() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

func newServer(t *testing.T, gw gateway.Gateway) *echo.Echo {
	t.Helper()
	log := zap.NewNop()
	tx := noTx{t: t}
	cfg := config.Config{JWTSecret: testSecret}

	carts := usecase.NewCartUsecase(tx, log)
	items := usecase.NewCartItemUsecase(tx, log)
	orders := usecase.NewOrderUsecase(tx, clock{}, log)
	payments := usecase.NewPaymentUsecase(tx, gw, clock{}, 15*time.Minute, log)

	auth := []echo.MiddlewareFunc{middleware.AuthJWT(cfg)}
	optional := []echo.MiddlewareFunc{middleware.AuthOptional(cfg)}
	admin := []echo.MiddlewareFunc{middleware.AuthJWT(cfg), middleware.AdminRoleGuard()}

	e := echo.New()
	handler.NewCartHandler(carts).RegisterRoutes(e.Group("/carts"), auth, optional, admin)
	handler.NewCartItemHandler(items).RegisterRoutes(e.Group("/cart-items"), optional, admin)
	handler.NewOrderHandler(orders).RegisterRoutes(e.Group("/orders"), auth, admin)
	handler.NewPaymentHandler(payments, orders, successURL, failURL, log).RegisterRoutes(e.Group("/payments"), auth, admin)
	return e
}

func bearer(t *testing.T, sub string, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func do(e *echo.Echo, method, target, authz, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func paidCallback() gateway.Callback {
	return gateway.Callback{
		Provider:          "vnpay",
		TxnRef:            "99",
		Amount:            decimal.RequireFromString("25.00"),
		ResponseCode:      "00",
		TransactionStatus: "00",
		TransactionNo:     "14000001",
	}
}

// =====================
// 入口のバリデーション
// =====================

func TestHandler_Paging(t *testing.T) {
	e := newServer(t, fakeGateway{})
	adminAuth := bearer(t, "1", "ADMIN")

	rec := do(e, http.MethodGet, "/carts?pageIndex=0", adminAuth, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"code":"BAD_REQUEST","error":"page index and page size must be greater than or equal to 1"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/orders?pageSize=abc", adminAuth, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid pageSize")

	rec = do(e, http.MethodGet, "/payments?from=yesterday", adminAuth, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid from")
}

func TestHandler_AdminRoutesRejectUsers(t *testing.T) {
	e := newServer(t, fakeGateway{})

	rec := do(e, http.MethodGet, "/payments", bearer(t, "42", "USER"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodGet, "/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/orders/99/audit-logs", bearer(t, "42", "USER"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_CreateOrder_Validation(t *testing.T) {
	e := newServer(t, fakeGateway{})

	rec := do(e, http.MethodPost, "/orders", "", `{"cart_id":7}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/orders", bearer(t, "42", "USER"), `{"cart_id":7,"payment_method":"","billing_address":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"code":"BAD_REQUEST","error":"invalid payment_method"}`, rec.Body.String())
}

func TestHandler_OrderStatusRequiresAdmin(t *testing.T) {
	e := newServer(t, fakeGateway{})

	rec := do(e, http.MethodPut, "/orders/99", bearer(t, "42", "USER"), `{"status":"Paid"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_InvalidPathID(t *testing.T) {
	e := newServer(t, fakeGateway{})

	rec := do(e, http.MethodGet, "/carts/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/payments/payment-status/0", bearer(t, "42", "USER"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/orders/0/audit-logs", bearer(t, "1", "ADMIN"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DeleteOrderNotImplemented(t *testing.T) {
	e := newServer(t, fakeGateway{})

	rec := do(e, http.MethodDelete, "/orders/99", bearer(t, "1", "ADMIN"), "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.JSONEq(t, `{"code":"NOT_IMPLEMENTED","error":"not implemented"}`, rec.Body.String())
}

// =====================
// VNPay callback / IPN
// =====================

func TestHandler_Callback_InvalidSignatureRedirectsToFail(t *testing.T) {
	e := newServer(t, fakeGateway{err: gateway.ErrInvalidSignature})

	rec := do(e, http.MethodGet, "/payments/vnpay/callback?vnp_TxnRef=99", "", "")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "shop.example", loc.Host)
	assert.Equal(t, "/pay/fail", loc.Path)
	assert.Equal(t, "invalid_signature", loc.Query().Get("result"))
}

func TestHandler_Callback_GatewayFailure(t *testing.T) {
	cb := paidCallback()
	cb.ResponseCode = "24"
	e := newServer(t, fakeGateway{cb: cb})

	rec := do(e, http.MethodGet, "/payments/vnpay/callback", "", "")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "/pay/fail", loc.Path)
	assert.Equal(t, "gateway_failed", loc.Query().Get("result"))
	assert.Equal(t, "99", loc.Query().Get("orderId"))
}

func TestHandler_IPN_RspCodes(t *testing.T) {
	badRef := paidCallback()
	badRef.TxnRef = "x"
	failed := paidCallback()
	failed.TransactionStatus = "02"

	cases := []struct {
		name string
		gw   fakeGateway
		code string
	}{
		{"bad signature", fakeGateway{err: gateway.ErrInvalidSignature}, "97"},
		{"malformed", fakeGateway{err: gateway.ErrMalformedCallback}, "99"},
		{"unknown order ref", fakeGateway{cb: badRef}, "01"},
		{"gateway failed is acknowledged", fakeGateway{cb: failed}, "00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newServer(t, tc.gw)

			rec := do(e, http.MethodGet, "/payments/vnpay/ipn", "", "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"RspCode":"`+tc.code+`"`)
		})
	}
}
