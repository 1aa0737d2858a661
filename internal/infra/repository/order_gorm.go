package repository

import (
	"context"
	"errors"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	gormRepository[model.Order]
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{gormRepository: newGormRepository[model.Order](db)}
}

// 注文詳細で使う関連をまとめて読む（N+1回避）
func withOrderSnapshot(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("Cart").
		Preload("Cart.CartItems", func(tx *gorm.DB) *gorm.DB { return tx.Order("cart_items.id asc") }).
		Preload("Cart.CartItems.Product")
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) (repo.Paginated[model.Order], error) {
	q := r.Entities(ctx)

	if f.ID != nil {
		q = q.Where("id = ?", *f.ID)
	}
	if f.CartID != nil {
		q = q.Where("cart_id = ?", *f.CartID)
	}
	//user_id 絞り込み
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.PaymentMethod != "" {
		q = q.Where("payment_method ILIKE ?", "%"+f.PaymentMethod+"%")
	}
	if f.BillingAddress != "" {
		q = q.Where("billing_address ILIKE ?", "%"+f.BillingAddress+"%")
	}
	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	//期間絞り込み（日付単位）
	q = whereDate(q, "order_date", f.OrderDate, f.From, f.To)

	return r.GetPaging(q, f.PageIndex, f.PageSize, withOrderSnapshot, orderByIDDesc)
}

func (r *OrderGormRepository) FindSnapshot(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Scopes(withOrderSnapshot).First(&o, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) ExistsByCartID(ctx context.Context, cartID int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("cart_id = ?", cartID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// 指定日・開始日・終了日で絞る。いずれも時刻は無視して日単位で比較する
func whereDate(q *gorm.DB, column string, on, from, to *time.Time) *gorm.DB {
	if on != nil {
		start := startOfDay(*on)
		q = q.Where(column+" >= ? AND "+column+" < ?", start, start.AddDate(0, 0, 1))
	}
	if from != nil {
		q = q.Where(column+" >= ?", startOfDay(*from))
	}
	if to != nil {
		q = q.Where(column+" < ?", startOfDay(*to).AddDate(0, 0, 1))
	}
	return q
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
