package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetAndTotalPages(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 10))
	assert.Equal(t, 20, Offset(3, 10))

	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated[int](nil, 25, 2, 10)

	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasPreviousPage())
	assert.True(t, p.HasNextPage())

	last := NewPaginated([]int{1}, 25, 3, 10)
	assert.False(t, last.HasNextPage())

	// 範囲外のページは空で総件数だけ返す
	beyond := NewPaginated([]int{}, 25, 9, 10)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, int64(25), beyond.TotalCount)
	assert.False(t, beyond.HasNextPage())
}
