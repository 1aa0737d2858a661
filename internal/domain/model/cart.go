package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusPending CartStatus = "Pending"
	CartStatusActive  CartStatus = "Active"
	CartStatusDeleted CartStatus = "Deleted"
)

// 許可する遷移（同じステータスへの更新は何もしない）
var cartTransitions = map[CartStatus][]CartStatus{
	CartStatusPending: {CartStatusActive, CartStatusDeleted},
	CartStatusActive:  {CartStatusDeleted},
	CartStatusDeleted: {},
}

func (s CartStatus) Valid() bool {
	_, ok := cartTransitions[s]
	return ok
}

// 「最新の未注文カート」の対象になるか
func (s CartStatus) Open() bool {
	return s == CartStatusPending || s == CartStatusActive
}

func (s CartStatus) CanTransitionTo(next CartStatus) bool {
	return canTransition(cartTransitions, s, next)
}

// UserIDがnilなら匿名カート
// TotalPriceは明細から再計算した値をキャッシュする
type Cart struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     *int64          `gorm:"index" json:"user_id"`
	Status     CartStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"total_price"`
	CartItems  []CartItem      `gorm:"constraint:OnDelete:CASCADE" json:"cart_items"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 所有者か（匿名カートは誰でも扱える）
func (c Cart) OwnedBy(userID int64) bool {
	return c.UserID == nil || *c.UserID == userID
}
