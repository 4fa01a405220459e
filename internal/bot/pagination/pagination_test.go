package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/estatebot/core/telegram/keyboard"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		n, page   int
		wantPage  int
		wantItems []int
		prev      bool
		next      bool
	}{
		{"first page", 5, 1, 1, []int{1, 2}, false, true},
		{"middle page", 5, 2, 2, []int{3, 4}, true, true},
		{"last partial page", 5, 3, 3, []int{5}, true, false},
		{"past end steps back", 5, 9, 3, []int{5}, true, false},
		{"exact fit last page", 4, 2, 2, []int{3, 4}, true, false},
		{"zero page means first", 3, 0, 1, []int{1, 2}, false, true},
		{"empty list", 0, 4, 1, []int{}, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Paginate(seq(tc.n), tc.page, 2)
			assert.Equal(t, tc.wantPage, p.Number)
			assert.Equal(t, tc.wantItems, p.Items)
			assert.Equal(t, tc.prev, p.HasPrev)
			assert.Equal(t, tc.next, p.HasNext)
		})
	}
}

func TestPaginateNeverOutOfRange(t *testing.T) {
	for size := 1; size <= 5; size++ {
		for n := 0; n <= 12; n++ {
			for page := -1; page <= 15; page++ {
				p := Paginate(seq(n), page, size)
				if n > 0 {
					assert.NotEmpty(t, p.Items, "n=%d size=%d page=%d", n, size, page)
				}
				assert.LessOrEqual(t, len(p.Items), size)
				assert.Equal(t, p.Number > 1, p.HasPrev)
				nextHasData := len(Paginate(seq(n), p.Number+1, size).Items) > 0 &&
					Paginate(seq(n), p.Number+1, size).Number == p.Number+1
				assert.Equal(t, nextHasData, p.HasNext, "n=%d size=%d page=%d", n, size, page)
			}
		}
	}
}

func TestIndexAndNav(t *testing.T) {
	p := Paginate(seq(7), 2, 3)
	assert.Equal(t, 4, p.Index(0))

	row := p.Nav(func(label string, page int) keyboard.InlineBtn {
		return keyboard.InlineBtn{Text: label, Unique: "list", Data: string(rune('0' + page))}
	})
	if assert.Len(t, row, 2) {
		assert.Equal(t, "1", row[0].Data)
		assert.Equal(t, "3", row[1].Data)
	}
	assert.Empty(t, Paginate(seq(1), 1, 2).Nav(func(string, int) keyboard.InlineBtn { return keyboard.InlineBtn{} }))
}

func TestDefaultSize(t *testing.T) {
	assert.Equal(t, DefaultSize, Paginate(seq(9), 1, 0).Size)
}
