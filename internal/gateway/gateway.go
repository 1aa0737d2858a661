package gateway

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// 署名が一致しない・欠けている
	ErrInvalidSignature = errors.New("gateway: invalid signature")
	// 署名は正しいが必須項目が読めない
	ErrMalformedCallback = errors.New("gateway: malformed callback")
)

// 決済画面へのリダイレクトURLを作るための入力
type PaymentRequest struct {
	OrderID     int64
	Amount      decimal.Decimal
	Currency    string
	Description string
	IPAddress   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// 検証済みのゲートウェイ通知
type Callback struct {
	Provider          string
	TxnRef            string
	Amount            decimal.Decimal
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
	BankTranNo        string
	CardType          string
	PayDate           string
	OrderInfo         string
}

const successCode = "00"

func (c Callback) Succeeded() bool {
	return c.ResponseCode == successCode && c.TransactionStatus == successCode
}

// TxnRefは注文ID
func (c Callback) OrderID() (int64, error) {
	id, err := strconv.ParseInt(c.TxnRef, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrMalformedCallback
	}
	return id, nil
}

// 重複排除キー。ゲートウェイ側の取引番号を優先する
func (c Callback) Ref() string {
	if c.TransactionNo != "" {
		return c.Provider + ":" + c.TransactionNo
	}
	return c.Provider + ":" + c.TxnRef + ":" + c.PayDate
}

type Gateway interface {
	Name() string
	PaymentURL(ctx context.Context, req PaymentRequest) (string, error)
	// 署名を検証してから読む
	ParseCallback(q url.Values) (Callback, error)
}
