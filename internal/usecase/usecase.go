package usecase

import (
	"math"
	"net/http"
	"time"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"

	maxPageSize = 100
)

type Clock interface {
	Now() time.Time
}

// 認証済みの呼び出し元。UserIDが0なら匿名
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) Authenticated() bool {
	return a.UserID > 0
}

// ページ番号・件数はどちらも1以上。オフセットがintに収まらない番号は弾く
func validatePaging(pageIndex, pageSize int) error {
	if pageIndex < 1 || pageSize < 1 {
		return NewHTTPError(http.StatusBadRequest, "page index and page size must be greater than or equal to 1")
	}
	if pageSize > maxPageSize {
		return NewHTTPError(http.StatusBadRequest, "page size too large")
	}
	if pageIndex > math.MaxInt/pageSize {
		return NewHTTPError(http.StatusBadRequest, "page index too large")
	}
	return nil
}
