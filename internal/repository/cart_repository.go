package repository

import (
	"context"

	"shop/internal/domain/model"

	"github.com/shopspring/decimal"
)

type CartListFilter struct {
	PageIndex int
	PageSize  int
	ID        *int64
	UserID    *int64
	Status    string
}

type CartRepository interface {
	Repository[model.Cart]

	// id desc、明細付き
	List(ctx context.Context, f CartListFilter) (Paginated[model.Cart], error)
	// 明細（商品付き）を含めて取得
	FindWithItems(ctx context.Context, cartID int64) (model.Cart, error)
	// Pending/Activeかつ注文に使われていない最新のカート
	FindLatestOpenByUserID(ctx context.Context, userID int64) (model.Cart, bool, error)
	// トランザクション終了までユーザー単位で排他する
	LockOwner(ctx context.Context, userID int64) error
	UpdateTotal(ctx context.Context, cartID int64, total decimal.Decimal) error
	UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error
	// 匿名カートを注文者のものにする。所有者が決まっていればErrNotFound
	ClaimOwner(ctx context.Context, cartID, userID int64) error
}
