package repository

import (
	"context"

	"shop/internal/domain/model"
)

// 商品は参照のみ（カタログ管理は別）
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}
