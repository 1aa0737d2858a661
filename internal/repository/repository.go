package repository

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ユニーク制約違反
	ErrDuplicate = errors.New("duplicate key")
)

// エンティティ共通の窓口。
// Insert/Update/Deleteはトランザクション内でステージされ、WithinTxの終了時にまとめてcommitされる。
type Repository[T any] interface {
	//主キーで1件取得（無ければErrNotFound）
	FindByID(ctx context.Context, id int64) (T, error)
	//作成後はentityにID等が埋まる
	Insert(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, entity *T) error
}
