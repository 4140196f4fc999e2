package pagination

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 10
	// MaxPageSize caps how many rows any page can request.
	MaxPageSize = 100
)

// Params holds page-based pagination inputs from controllers or services.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Meta mirrors the pagination block returned by the data API and by our own list endpoints.
type Meta struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// NormalizePageSize enforces the default and maximum page sizes.
func NormalizePageSize(size, fallback int) int {
	if fallback <= 0 || fallback > MaxPageSize {
		fallback = DefaultPageSize
	}
	if size <= 0 {
		return fallback
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// Normalize returns params with page >= 1 and a bounded page size.
func (p Params) Normalize(defaultPageSize int) Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.PageSize = NormalizePageSize(p.PageSize, defaultPageSize)
	return p
}

// Offset is the row offset of the first record on the page.
func (p Params) Offset() int {
	n := p.Normalize(DefaultPageSize)
	return (n.Page - 1) * n.PageSize
}

// NewMeta builds pagination metadata for a total row count.
func NewMeta(p Params, total int) Meta {
	n := p.Normalize(DefaultPageSize)
	pageCount := 0
	if total > 0 {
		pageCount = (total + n.PageSize - 1) / n.PageSize
	}
	return Meta{
		Page:      n.Page,
		PageSize:  n.PageSize,
		PageCount: pageCount,
		Total:     total,
	}
}
