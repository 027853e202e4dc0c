package pagination

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Page is one slice of a filtered, ordered result set.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Number   int   `json:"number"`
	NumPages int   `json:"num_pages"`
	Count    int64 `json:"count"`
	PerPage  int   `json:"per_page"`
}

func (p *Page[T]) HasNext() bool     { return p.Number < p.NumPages }
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }
func (p *Page[T]) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}
func (p *Page[T]) NextNumber() int     { return p.Number + 1 }
func (p *Page[T]) PreviousNumber() int { return p.Number - 1 }

// ParseNumber reads a raw page query value. Absent or non-integer input means
// page 1; integers too large for int mean the last page.
func ParseNumber(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "last" {
		return math.MaxInt
	}
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		// out of int range still clamps to the nearest end
		if strings.HasPrefix(raw, "-") {
			return 1
		}
		return math.MaxInt
	}
	if err != nil {
		return 1
	}
	return n
}

// NumPages never returns less than 1 so an empty set still has a first page.
func NumPages(count int64, perPage int) int {
	if perPage <= 0 || count <= 0 {
		return 1
	}
	return int((count + int64(perPage) - 1) / int64(perPage))
}

// Clamp maps a requested page onto the nearest page in [1, numPages].
func Clamp(requested, numPages int) int {
	if requested < 1 {
		return 1
	}
	if requested > numPages {
		return numPages
	}
	return requested
}

// Paginate counts q, clamps the requested page and loads its items sorted by
// order with the given associations preloaded. q must carry a Model and no
// Preload so the count is scoped to the right table.
func Paginate[T any](ctx context.Context, q *gorm.DB, raw string, perPage int, order string, preloads ...string) (*Page[T], error) {
	q = q.WithContext(ctx).Session(&gorm.Session{})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, err
	}

	page := &Page[T]{
		NumPages: NumPages(count, perPage),
		Count:    count,
		PerPage:  perPage,
		Items:    []T{},
	}
	page.Number = Clamp(ParseNumber(raw), page.NumPages)

	if count == 0 {
		return page, nil
	}

	find := q
	if order != "" {
		find = find.Order(order)
	}
	for _, p := range preloads {
		find = find.Preload(p)
	}
	if err := find.Offset((page.Number - 1) * perPage).Limit(perPage).Find(&page.Items).Error; err != nil {
		return nil, err
	}
	return page, nil
}
