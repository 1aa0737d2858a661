package repository

import (
	"context"

	"shop/internal/domain/model"
)

type CartItemListFilter struct {
	PageIndex int
	PageSize  int
	ID        *int64
	CartID    *int64
	ProductID *int64
	Quantity  *int64
}

type CartItemRepository interface {
	Repository[model.CartItem]

	List(ctx context.Context, f CartItemListFilter) (Paginated[model.CartItem], error)
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
}
