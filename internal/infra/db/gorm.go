package db

import (
	"time"

	"shop/internal/config"
	"shop/internal/domain/model"
	"shop/internal/infra/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config, zl *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.IsDev() {
		level = gormlogger.Info
	}

	//SQLログもzapに流す
	gl := gormlogger.New(logger.NewPrintfAdapter(zl.Named("gorm")), gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})

	return gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: gl})
}

// Migrate はテーブルを作成・更新する
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.Payment{},
		&model.AuditLog{},
	)
}
