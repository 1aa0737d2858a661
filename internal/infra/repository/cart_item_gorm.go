package repository

import (
	"context"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
)

type CartItemGormRepository struct {
	gormRepository[model.CartItem]
}

func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{gormRepository: newGormRepository[model.CartItem](db)}
}

func (r *CartItemGormRepository) List(ctx context.Context, f repo.CartItemListFilter) (repo.Paginated[model.CartItem], error) {
	q := r.Entities(ctx)

	if f.ID != nil {
		q = q.Where("id = ?", *f.ID)
	}
	if f.CartID != nil {
		q = q.Where("cart_id = ?", *f.CartID)
	}
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.Quantity != nil {
		q = q.Where("quantity = ?", *f.Quantity)
	}

	return r.GetPaging(q, f.PageIndex, f.PageSize, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Product").Order("cart_id desc").Order("id asc")
	})
}

// カート明細を一覧取得
func (r *CartItemGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}
