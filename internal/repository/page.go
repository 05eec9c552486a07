package repository

// Page bounds, used by every list endpoint.
const (
	DefaultPageSize = 100
	MaxPageSize     = 100
)

// Page is an offset window over an ordered result.  A zero Limit means
// "no limit" and is only produced internally (tag and stats scans), never
// from client input.
type Page struct {
	Offset int
	Limit  int
}

// Unbounded reports whether the page carries no limit.
func (p Page) Unbounded() bool { return p.Limit <= 0 }

// ClampPage turns client-supplied skip/limit into a valid page: a missing
// limit (nil) becomes DefaultPageSize, limits are clamped into
// [1, MaxPageSize] and a negative skip becomes zero.
func ClampPage(skip int, limit *int) Page {
	ps := DefaultPageSize
	if limit != nil {
		ps = *limit
	}
	if ps > MaxPageSize {
		ps = MaxPageSize
	}
	if ps < 1 {
		ps = 1
	}
	if skip < 0 {
		skip = 0
	}
	return Page{Offset: skip, Limit: ps}
}

// Slice applies the page window to an already ordered slice.
func Slice[T any](items []T, p Page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if !p.Unbounded() && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}
