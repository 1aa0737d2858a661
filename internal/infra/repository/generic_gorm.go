package repository

import (
	"context"
	"errors"

	repo "shop/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgreSQLのunique_violation
const pgUniqueViolation = "23505"

// 型ごとの共通CRUDとページング。各リポジトリに埋め込んで使う
type gormRepository[T any] struct {
	db *gorm.DB
}

func newGormRepository[T any](db *gorm.DB) gormRepository[T] {
	return gormRepository[T]{db: db}
}

// 絞り込み前のクエリ。呼び出し側でWhere/Preloadしてから実行する
func (r gormRepository[T]) Entities(ctx context.Context) *gorm.DB {
	var zero T
	return r.db.WithContext(ctx).Model(&zero)
}

func (r gormRepository[T]) FindByID(ctx context.Context, id int64) (T, error) {
	var entity T
	err := r.db.WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var zero T
		return zero, repo.ErrNotFound
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return entity, nil
}

func (r gormRepository[T]) Insert(ctx context.Context, entity *T) error {
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(entity).Error)
}

// 関連（明細など）は保存しない
func (r gormRepository[T]) Update(ctx context.Context, entity *T) error {
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Save(entity).Error)
}

func (r gormRepository[T]) Delete(ctx context.Context, entity *T) error {
	res := r.db.WithContext(ctx).Delete(entity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 絞り込み済みのクエリを件数取得 → skip/take して1ページ分を返す。
// scopes（Preload/Order）は件数取得の後にだけ適用する
func (r gormRepository[T]) GetPaging(q *gorm.DB, pageIndex, pageSize int, scopes ...func(*gorm.DB) *gorm.DB) (repo.Paginated[T], error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return repo.Paginated[T]{}, err
	}

	var items []T
	if err := q.Scopes(scopes...).
		Offset(repo.Offset(pageIndex, pageSize)).
		Limit(pageSize).
		Find(&items).Error; err != nil {
		return repo.Paginated[T]{}, err
	}

	return repo.NewPaginated(items, total, pageIndex, pageSize), nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return repo.ErrDuplicate
	}
	return err
}

func orderByIDDesc(db *gorm.DB) *gorm.DB {
	return db.Order("id desc")
}
