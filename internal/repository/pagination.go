package repository

// 一覧1ページ分と総件数
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	PageIndex  int   `json:"page_index"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginated[T any](items []T, total int64, pageIndex, pageSize int) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{
		Items:      items,
		TotalCount: total,
		PageIndex:  pageIndex,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
	}
}

func (p Paginated[T]) HasPreviousPage() bool {
	return p.PageIndex > 1
}

func (p Paginated[T]) HasNextPage() bool {
	return p.PageIndex < p.TotalPages
}

// ページ番号は1始まり。呼び出し側で pageIndex, pageSize >= 1 を保証すること
func Offset(pageIndex, pageSize int) int {
	return (pageIndex - 1) * pageSize
}

func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
