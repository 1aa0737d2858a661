package repository

import (
	"context"
	"time"

	"shop/internal/domain/model"
)

type OrderListFilter struct {
	PageIndex      int
	PageSize       int
	ID             *int64
	CartID         *int64
	UserID         *int64
	PaymentMethod  string
	BillingAddress string
	Status         string
	OrderDate      *time.Time
	From           *time.Time
	To             *time.Time
}

type OrderRepository interface {
	Repository[model.Order]

	// id desc、ユーザー・カート・明細・商品を一括で読み込む
	List(ctx context.Context, f OrderListFilter) (Paginated[model.Order], error)
	// 注文＋カートのスナップショット（N+1にしない）
	FindSnapshot(ctx context.Context, orderID int64) (model.Order, error)
	ExistsByCartID(ctx context.Context, cartID int64) (bool, error)
}
