package repository

import (
	"context"
	"time"

	"shop/internal/domain/model"

	"github.com/shopspring/decimal"
)

type PaymentListFilter struct {
	PageIndex   int
	PageSize    int
	ID          *int64
	OrderID     *int64
	MaxAmount   *decimal.Decimal
	Status      string
	PaymentDate *time.Time
	From        *time.Time
	To          *time.Time
}

type PaymentRepository interface {
	Repository[model.Payment]

	List(ctx context.Context, f PaymentListFilter) (Paginated[model.Payment], error)
	FindLatestByOrderID(ctx context.Context, orderID int64) (model.Payment, error)
	// ゲートウェイ通知の重複チェック
	FindByGatewayRef(ctx context.Context, ref string) (model.Payment, bool, error)
}
