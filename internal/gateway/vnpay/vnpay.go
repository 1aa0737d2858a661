package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shop/internal/gateway"

	"github.com/shopspring/decimal"
)

const (
	providerName = "vnpay"

	version   = "2.1.0"
	command   = "pay"
	orderType = "other"
	locale    = "vn"

	defaultCurrency = "VND"
	defaultIP       = "127.0.0.1"

	// yyyyMMddHHmmss
	dateLayout = "20060102150405"

	paramSecureHash     = "vnp_SecureHash"
	paramSecureHashType = "vnp_SecureHashType"
)

// VNPayはGMT+7固定
var vietnamTZ = time.FixedZone("GMT+7", 7*60*60)

type Config struct {
	TmnCode    string
	HashSecret string
	BaseURL    string
	ReturnURL  string
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) Name() string {
	return providerName
}

func (c *Client) PaymentURL(_ context.Context, req gateway.PaymentRequest) (string, error) {
	if req.OrderID <= 0 {
		return "", errors.New("vnpay: invalid order id")
	}
	if !req.Amount.IsPositive() {
		return "", errors.New("vnpay: amount must be positive")
	}
	if !req.ExpiresAt.After(req.CreatedAt) {
		return "", errors.New("vnpay: expiry must be after creation")
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	ip := req.IPAddress
	if ip == "" {
		ip = defaultIP
	}

	v := url.Values{}
	v.Set("vnp_Version", version)
	v.Set("vnp_Command", command)
	v.Set("vnp_TmnCode", c.cfg.TmnCode)
	//最小単位（×100）の整数
	v.Set("vnp_Amount", toMinorUnits(req.Amount))
	v.Set("vnp_CreateDate", req.CreatedAt.In(vietnamTZ).Format(dateLayout))
	v.Set("vnp_ExpireDate", req.ExpiresAt.In(vietnamTZ).Format(dateLayout))
	v.Set("vnp_CurrCode", currency)
	v.Set("vnp_IpAddr", ip)
	v.Set("vnp_Locale", locale)
	v.Set("vnp_OrderInfo", req.Description)
	v.Set("vnp_OrderType", orderType)
	v.Set("vnp_ReturnUrl", c.cfg.ReturnURL)
	v.Set("vnp_TxnRef", strconv.FormatInt(req.OrderID, 10))

	//Encodeはキー昇順
	data := v.Encode()
	return c.cfg.BaseURL + "?" + data + "&" + paramSecureHash + "=" + c.sign(data), nil
}

func (c *Client) ParseCallback(q url.Values) (gateway.Callback, error) {
	got := strings.ToLower(strings.TrimSpace(q.Get(paramSecureHash)))
	if got == "" {
		return gateway.Callback{}, gateway.ErrInvalidSignature
	}

	//署名対象はハッシュ以外の空でないvnp_*すべて
	data := url.Values{}
	for k, vs := range q {
		if !strings.HasPrefix(k, "vnp_") || k == paramSecureHash || k == paramSecureHashType {
			continue
		}
		if len(vs) == 0 || vs[0] == "" {
			continue
		}
		data.Set(k, vs[0])
	}

	want := c.sign(data.Encode())
	if !hmac.Equal([]byte(got), []byte(want)) {
		return gateway.Callback{}, gateway.ErrInvalidSignature
	}

	amount, err := fromMinorUnits(data.Get("vnp_Amount"))
	if err != nil {
		return gateway.Callback{}, fmt.Errorf("%w: vnp_Amount", gateway.ErrMalformedCallback)
	}
	if data.Get("vnp_TxnRef") == "" {
		return gateway.Callback{}, fmt.Errorf("%w: vnp_TxnRef", gateway.ErrMalformedCallback)
	}

	return gateway.Callback{
		Provider:          providerName,
		TxnRef:            data.Get("vnp_TxnRef"),
		Amount:            amount,
		ResponseCode:      data.Get("vnp_ResponseCode"),
		TransactionStatus: data.Get("vnp_TransactionStatus"),
		TransactionNo:     data.Get("vnp_TransactionNo"),
		BankCode:          data.Get("vnp_BankCode"),
		BankTranNo:        data.Get("vnp_BankTranNo"),
		CardType:          data.Get("vnp_CardType"),
		PayDate:           data.Get("vnp_PayDate"),
		OrderInfo:         data.Get("vnp_OrderInfo"),
	}, nil
}

// HMAC-SHA512（16進小文字）
func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

var hundred = decimal.NewFromInt(100)

func toMinorUnits(amount decimal.Decimal) string {
	return amount.Mul(hundred).Round(0).StringFixed(0)
}

func fromMinorUnits(s string) (decimal.Decimal, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return decimal.Decimal{}, errors.New("invalid amount")
	}
	return decimal.New(n, -2), nil
}
