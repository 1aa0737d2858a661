package repository

import (
	"shop/internal/domain/model"

	"gorm.io/gorm"
)

// 価格スナップショット用にIDで引くだけ
type ProductGormRepository struct {
	gormRepository[model.Product]
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{gormRepository: newGormRepository[model.Product](db)}
}
