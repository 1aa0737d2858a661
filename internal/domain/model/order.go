package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPaid      OrderStatus = "Paid"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {},
	OrderStatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return canTransition(orderTransitions, s, next)
}

// CartIDは作成時に一度だけ設定し、以後変更しない
type Order struct {
	ID             int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID         int64       `gorm:"not null;uniqueIndex" json:"cart_id"`
	Cart           *Cart       `gorm:"foreignKey:CartID" json:"cart,omitempty"`
	UserID         int64       `gorm:"not null;index" json:"user_id"`
	User           *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PaymentMethod  string      `gorm:"type:varchar(50);not null" json:"payment_method"`
	BillingAddress string      `gorm:"type:varchar(255);not null" json:"billing_address"`
	Status         OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	OrderDate      time.Time   `gorm:"not null;index" json:"order_date"`
}
