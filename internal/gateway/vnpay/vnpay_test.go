package vnpay

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"shop/internal/gateway"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return New(Config{
		TmnCode:    "TMN01",
		HashSecret: "SECRETKEY",
		BaseURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "http://localhost:8080/payments/vnpay/callback",
	})
}

func testRequest() gateway.PaymentRequest {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return gateway.PaymentRequest{
		OrderID:     42,
		Amount:      decimal.RequireFromString("150000.50"),
		Description: "Thanh toán đơn hàng #42",
		IPAddress:   "10.0.0.1",
		CreatedAt:   created,
		ExpiresAt:   created.Add(15 * time.Minute),
	}
}

// 決済完了時にゲートウェイが返してくるクエリを組み立てる
func signedCallback(t *testing.T, c *Client, fields map[string]string) url.Values {
	t.Helper()
	v := url.Values{}
	for k, val := range fields {
		v.Set(k, val)
	}
	v.Set(paramSecureHash, c.sign(v.Encode()))
	return v
}

func successFields() map[string]string {
	return map[string]string{
		"vnp_TmnCode":           "TMN01",
		"vnp_Amount":            "15000050",
		"vnp_BankCode":          "NCB",
		"vnp_BankTranNo":        "VNP14226112",
		"vnp_CardType":          "ATM",
		"vnp_OrderInfo":         "Thanh toán đơn hàng #42",
		"vnp_PayDate":           "20260102101500",
		"vnp_ResponseCode":      "00",
		"vnp_TransactionNo":     "14226112",
		"vnp_TransactionStatus": "00",
		"vnp_TxnRef":            "42",
	}
}

func TestPaymentURL(t *testing.T) {
	c := newTestClient()

	raw, err := c.PaymentURL(context.Background(), testRequest())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?"))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "15000050", q.Get("vnp_Amount"))
	assert.Equal(t, "VND", q.Get("vnp_CurrCode"))
	assert.Equal(t, "42", q.Get("vnp_TxnRef"))
	assert.Equal(t, "TMN01", q.Get("vnp_TmnCode"))
	assert.Equal(t, "2.1.0", q.Get("vnp_Version"))
	//UTC 03:04:05 → GMT+7 10:04:05
	assert.Equal(t, "20260102100405", q.Get("vnp_CreateDate"))
	assert.Equal(t, "20260102101905", q.Get("vnp_ExpireDate"))
	assert.Len(t, q.Get(paramSecureHash), 128)

	//ハッシュは最後
	assert.True(t, strings.Contains(raw, "&vnp_SecureHash="))
	assert.Equal(t, raw[strings.Index(raw, "&vnp_SecureHash="):], "&vnp_SecureHash="+q.Get(paramSecureHash))
}

func TestPaymentURL_SignatureVerifiesOnRoundTrip(t *testing.T) {
	c := newTestClient()

	raw, err := c.PaymentURL(context.Background(), testRequest())
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	cb, err := c.ParseCallback(u.Query())
	require.NoError(t, err)
	assert.Equal(t, "42", cb.TxnRef)
	assert.True(t, decimal.RequireFromString("150000.50").Equal(cb.Amount))
}

func TestPaymentURL_InvalidRequest(t *testing.T) {
	c := newTestClient()

	req := testRequest()
	req.Amount = decimal.Zero
	_, err := c.PaymentURL(context.Background(), req)
	assert.Error(t, err)

	req = testRequest()
	req.OrderID = 0
	_, err = c.PaymentURL(context.Background(), req)
	assert.Error(t, err)

	req = testRequest()
	req.ExpiresAt = req.CreatedAt
	_, err = c.PaymentURL(context.Background(), req)
	assert.Error(t, err)
}

func TestParseCallback_Success(t *testing.T) {
	c := newTestClient()
	q := signedCallback(t, c, successFields())

	cb, err := c.ParseCallback(q)
	require.NoError(t, err)

	assert.True(t, cb.Succeeded())
	assert.Equal(t, "vnpay", cb.Provider)
	assert.Equal(t, "vnpay:14226112", cb.Ref())
	assert.Equal(t, "NCB", cb.BankCode)
	assert.Equal(t, "ATM", cb.CardType)
	assert.True(t, decimal.RequireFromString("150000.50").Equal(cb.Amount))

	id, err := cb.OrderID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseCallback_UppercaseHashAndHashTypeAccepted(t *testing.T) {
	c := newTestClient()
	q := signedCallback(t, c, successFields())
	q.Set(paramSecureHash, strings.ToUpper(q.Get(paramSecureHash)))
	q.Set(paramSecureHashType, "HmacSHA512")

	_, err := c.ParseCallback(q)
	assert.NoError(t, err)
}

func TestParseCallback_IgnoresNonVnpAndEmptyFields(t *testing.T) {
	c := newTestClient()
	q := signedCallback(t, c, successFields())
	q.Set("utm_source", "mail")
	q.Set("vnp_Empty", "")

	_, err := c.ParseCallback(q)
	assert.NoError(t, err)
}

func TestParseCallback_Tampered(t *testing.T) {
	c := newTestClient()
	q := signedCallback(t, c, successFields())
	q.Set("vnp_Amount", "100")

	_, err := c.ParseCallback(q)
	assert.ErrorIs(t, err, gateway.ErrInvalidSignature)
}

func TestParseCallback_MissingHash(t *testing.T) {
	c := newTestClient()
	q := signedCallback(t, c, successFields())
	q.Del(paramSecureHash)

	_, err := c.ParseCallback(q)
	assert.ErrorIs(t, err, gateway.ErrInvalidSignature)
}

func TestParseCallback_WrongSecret(t *testing.T) {
	q := signedCallback(t, New(Config{HashSecret: "other"}), successFields())

	_, err := newTestClient().ParseCallback(q)
	assert.ErrorIs(t, err, gateway.ErrInvalidSignature)
}

func TestParseCallback_Failed(t *testing.T) {
	c := newTestClient()
	f := successFields()
	f["vnp_ResponseCode"] = "24"
	f["vnp_TransactionStatus"] = "02"

	cb, err := c.ParseCallback(signedCallback(t, c, f))
	require.NoError(t, err)
	assert.False(t, cb.Succeeded())
}

func TestParseCallback_MalformedAmount(t *testing.T) {
	c := newTestClient()
	f := successFields()
	f["vnp_Amount"] = "abc"

	_, err := c.ParseCallback(signedCallback(t, c, f))
	assert.ErrorIs(t, err, gateway.ErrMalformedCallback)
}
