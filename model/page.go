package model

import "math"

// Default paging values used when a caller omits them.
const (
	DefaultPage = 0
	DefaultSize = 5
	MaxSize     = 100

	// MaxPage keeps page*MaxSize well inside int on every platform.
	MaxPage = math.MaxInt32 / MaxSize
)

// Page is one zero-indexed page of results.
type Page[T any] struct {
	Content       []T `json:"content"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// NewPage builds a page and derives TotalPages from total and size.
func NewPage[T any](content []T, page, size, total int) Page[T] {
	if content == nil {
		content = []T{}
	}

	pages := 0
	if size > 0 {
		pages = total / size
		if total%size != 0 {
			pages++
		}
	}

	return Page[T]{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// EmptyPage returns a page with no content.
func EmptyPage[T any](page, size int) Page[T] {
	return NewPage[T](nil, page, size, 0)
}

// MapPage converts the content of a page, keeping the paging fields.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Content))
	for i, item := range p.Content {
		out[i] = fn(item)
	}
	return Page[U]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}

// NormalizePaging clamps page and size to valid values. Pages past MaxPage
// are clamped to it; they are empty for any realistic data set.
func NormalizePaging(page, size int) (int, int) {
	if page < 0 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return page, size
}

// Offset returns page*size, or -1 when the product does not fit in an int.
func Offset(page, size int) int {
	if page < 0 || size <= 0 {
		return -1
	}
	if page > math.MaxInt/size {
		return -1
	}
	return page * size
}
