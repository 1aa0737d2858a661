package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartGormRepository struct {
	gormRepository[model.Cart]
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{gormRepository: newGormRepository[model.Cart](db)}
}

// 明細は id asc、商品も一緒に読む
func withCartItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("CartItems", func(tx *gorm.DB) *gorm.DB { return tx.Order("cart_items.id asc") }).
		Preload("CartItems.Product")
}

func (r *CartGormRepository) List(ctx context.Context, f repo.CartListFilter) (repo.Paginated[model.Cart], error) {
	q := r.Entities(ctx)

	if f.ID != nil {
		q = q.Where("id = ?", *f.ID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	return r.GetPaging(q, f.PageIndex, f.PageSize, withCartItems, orderByIDDesc)
}

func (r *CartGormRepository) FindWithItems(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).Scopes(withCartItems).First(&cart, cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// Pending/Activeで、どの注文からも参照されていない最新カート
func (r *CartGormRepository) FindLatestOpenByUserID(ctx context.Context, userID int64) (model.Cart, bool, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Scopes(withCartItems).
		Where("user_id = ? AND status IN ?", userID, []model.CartStatus{model.CartStatusPending, model.CartStatusActive}).
		Where("NOT EXISTS (SELECT 1 FROM orders WHERE orders.cart_id = carts.id)").
		Order("id desc").
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, false, nil
	}
	if err != nil {
		return model.Cart{}, false, err
	}
	return cart, true, nil
}

// トランザクション終了時に自動で解放される
func (r *CartGormRepository) LockOwner(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", userID).Error
}

func (r *CartGormRepository) UpdateTotal(ctx context.Context, cartID int64, total decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("total_price", total)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// carts.statusを更新
func (r *CartGormRepository) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CartGormRepository) ClaimOwner(ctx context.Context, cartID, userID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ? AND user_id IS NULL", cartID).
		Update("user_id", userID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
