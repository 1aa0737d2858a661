package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusCancel  PaymentStatus = "Cancel"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusCancel},
	PaymentStatusPaid:    {PaymentStatusCancel},
	PaymentStatusCancel:  {},
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return canTransition(paymentTransitions, s, next)
}

// Amountは常に注文のカート明細から再計算した値（クライアントやゲートウェイの金額は使わない）
// GatewayRefはゲートウェイ通知の重複排除キー。手動登録の支払いはnil
type Payment struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64           `gorm:"not null;index" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentDate   time.Time       `gorm:"not null;index" json:"payment_date"`
	GatewayRef    *string         `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	TransactionNo string          `gorm:"type:varchar(50)" json:"transaction_no,omitempty"`
	BankCode      string          `gorm:"type:varchar(20)" json:"bank_code,omitempty"`
	BankTranNo    string          `gorm:"type:varchar(50)" json:"bank_tran_no,omitempty"`
	CardType      string          `gorm:"type:varchar(20)" json:"card_type,omitempty"`
	PayDate       string          `gorm:"type:varchar(14)" json:"pay_date,omitempty"`
}
