package pagination

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Limits bounds the page size a caller may request
type Limits struct {
	DefaultSize int
	MaxSize     int
}

// DefaultLimits returns the built-in page size bounds
func DefaultLimits() Limits {
	return Limits{DefaultSize: DefaultPageSize, MaxSize: MaxPageSize}
}

// Params is a requested page
type Params struct {
	Page     int
	PageSize int
}

// Normalize fills in defaults: page below 1 becomes 1, and the size is
// bounded by the limits.
func (l Limits) Normalize(page, pageSize int) Params {
	if l.DefaultSize <= 0 {
		l.DefaultSize = DefaultPageSize
	}
	if l.MaxSize <= 0 {
		l.MaxSize = MaxPageSize
	}
	if pageSize <= 0 {
		pageSize = l.DefaultSize
	}
	if pageSize > l.MaxSize {
		pageSize = l.MaxSize
	}
	if page < 1 {
		page = 1
	}
	return Params{Page: page, PageSize: pageSize}
}

// Window is a page resolved against a total count
type Window struct {
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
}

// Resolve clamps the page to [1, totalPages], or to 1 when there is nothing
// to show.
func Resolve(p Params, total int) Window {
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	totalPages := total / size
	if total%size > 0 {
		totalPages++
	}

	page := p.Page
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	return Window{
		Page:       page,
		PageSize:   size,
		TotalCount: total,
		TotalPages: totalPages,
	}
}

func (w Window) Limit() int  { return w.PageSize }
func (w Window) Offset() int { return (w.Page - 1) * w.PageSize }

// Result is one page of items plus its position
type Result[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// NewResult builds a Result. Items is never nil so it encodes as [].
func NewResult[T any](items []T, w Window) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items:      items,
		Page:       w.Page,
		PageSize:   w.PageSize,
		TotalCount: w.TotalCount,
		TotalPages: w.TotalPages,
	}
}
