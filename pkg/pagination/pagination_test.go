package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		query       string
		wantPage    int
		wantPerPage int
		wantOffset  int
	}{
		{"", 1, 20, 0},
		{"?page=3&per_page=50", 3, 50, 100},
		{"?page=-1", 1, 20, 0},
		{"?page=0", 1, 20, 0},
		{"?page=abc", 1, 20, 0},
		{"?per_page=100", 1, 100, 0},
		{"?per_page=101", 1, 20, 0},
		{"?per_page=0", 1, 20, 0},
		{"?page=2&per_page=5", 2, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := FromRequest(httptest.NewRequest(http.MethodGet, "/api/v1/orders"+tt.query, nil))
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestDefaultParams(t *testing.T) {
	assert.Equal(t, Params{Page: 1, PerPage: 20, Offset: 0}, DefaultParams())
}

func TestNewResult(t *testing.T) {
	r := NewResult([]int{1, 2, 3}, 23, New(2, 10))
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)

	last := NewResult([]int{21, 22, 23}, 23, New(3, 10))
	assert.False(t, last.HasNext)

	exact := NewResult([]int{}, 20, New(1, 10))
	assert.Equal(t, 2, exact.TotalPages)
}

func TestNewResult_NilDataBecomesEmpty(t *testing.T) {
	r := NewResult[string](nil, 0, DefaultParams())
	assert.NotNil(t, r.Data)
	assert.Empty(t, r.Data)
	assert.Equal(t, 0, r.TotalPages)
	assert.False(t, r.HasNext)
	assert.False(t, r.HasPrev)
}

func TestWindow(t *testing.T) {
	lo, hi := Window(23, New(3, 10))
	assert.Equal(t, 20, lo)
	assert.Equal(t, 23, hi)

	lo, hi = Window(5, New(4, 10))
	assert.Equal(t, 5, lo)
	assert.Equal(t, 5, hi)
}
