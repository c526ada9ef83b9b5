package paging

// Page is one page of a larger list. Pages are numbered from 1.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
}

// TotalPages returns ceil(total / size), or 0 when either is not positive.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Slice returns the requested page of items. A page below 1 is treated as 1,
// and a page past the end yields an empty, non-nil slice.
func Slice[T any](items []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}

	p := Page[T]{
		Items:      []T{},
		Page:       page,
		TotalPages: TotalPages(len(items), size),
		PageSize:   size,
		Total:      len(items),
	}

	start := (page - 1) * size
	if start >= len(items) {
		return p
	}
	end := min(start+size, len(items))
	p.Items = items[start:end]
	return p
}
