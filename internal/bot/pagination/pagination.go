// Package pagination slices fetched lists into fixed-size pages.
package pagination

import "github.com/m3rciful/estatebot/core/telegram/keyboard"

// DefaultSize is the page size used when none is configured.
const DefaultSize = 2

// Page is one window over a list.
type Page[T any] struct {
	Items   []T
	// Number is 1-based and always within range.
	Number  int
	Size    int
	Total   int
	HasPrev bool
	HasNext bool
	start   int
}

// Paginate returns page number of items. Numbers below 1 mean 1. A number
// past the end steps back to the last page with data, so a list that shrank
// between renders still shows something. Empty input yields page 1 with no items.
func Paginate[T any](items []T, number, size int) Page[T] {
	if size < 1 {
		size = DefaultSize
	}
	number = max(number, 1)
	total := len(items)
	if last := (total + size - 1) / size; number > last {
		number = max(last, 1)
	}
	start := min((number-1)*size, total)
	end := min(start+size, total)
	return Page[T]{
		Items:   items[start:end],
		Number:  number,
		Size:    size,
		Total:   total,
		HasPrev: number > 1,
		HasNext: end < total,
		start:   start,
	}
}

// Index returns the 1-based position in the full list of the i-th item on the page.
func (p Page[T]) Index(i int) int { return p.start + i + 1 }

// Nav returns the Previous/Next buttons that apply to the page. target
// builds a button that reopens the listing at the given page.
func (p Page[T]) Nav(target func(label string, page int) keyboard.InlineBtn) []keyboard.InlineBtn {
	var row []keyboard.InlineBtn
	if p.HasPrev {
		row = append(row, target("⬅️ Previous", p.Number-1))
	}
	if p.HasNext {
		row = append(row, target("➡️ Next", p.Number+1))
	}
	return row
}
