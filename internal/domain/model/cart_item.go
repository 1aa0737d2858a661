package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カートの明細
// Priceは追加・更新時点の商品価格を保存する（カタログの値下げ等で既存カートは変わらない）
type CartItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64           `gorm:"not null;index" json:"cart_id"`
	ProductID int64           `gorm:"not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"price"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

// Σ(quantity × price)
func SumItems(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
