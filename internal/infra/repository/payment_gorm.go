package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
)

type PaymentGormRepository struct {
	gormRepository[model.Payment]
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{gormRepository: newGormRepository[model.Payment](db)}
}

func (r *PaymentGormRepository) List(ctx context.Context, f repo.PaymentListFilter) (repo.Paginated[model.Payment], error) {
	q := r.Entities(ctx)

	if f.ID != nil {
		q = q.Where("id = ?", *f.ID)
	}
	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}
	//0 <= amount <= 上限
	if f.MaxAmount != nil {
		q = q.Where("amount >= 0 AND amount <= ?", *f.MaxAmount)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	q = whereDate(q, "payment_date", f.PaymentDate, f.From, f.To)

	return r.GetPaging(q, f.PageIndex, f.PageSize, orderByIDDesc)
}

// 注文に対する最新の支払い
func (r *PaymentGormRepository) FindLatestByOrderID(ctx context.Context, orderID int64) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id desc").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) FindByGatewayRef(ctx context.Context, ref string) (model.Payment, bool, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_ref = ?", ref).
		First(&p).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, false, nil
	}
	if err != nil {
		return model.Payment{}, false, err
	}
	return p, true, nil
}
