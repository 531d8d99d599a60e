// Package pagination derives page counts and visible slices for a list shown
// pageSize items at a time. Pages are 1-based.
package pagination

// DefaultPageSize is the number of entries shown per section page.
const DefaultPageSize = 3

// TotalPages is never less than 1, so an empty list still has one (empty) page.
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

// Clamp forces page into [1, totalPages].
func Clamp(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// VisibleSlice returns items[(page-1)*pageSize : page*pageSize], bounded to the list.
// The result aliases items.
func VisibleSlice[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page = Clamp(page, TotalPages(len(items), pageSize))
	start := (page - 1) * pageSize
	if start >= len(items) {
		return items[:0]
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// PageAfterInsert jumps to the last page so an appended item is visible.
func PageAfterInsert(n, pageSize int) int {
	return TotalPages(n, pageSize)
}

func PageAfterDelete(currentPage, totalPages int) int {
	return Clamp(currentPage, totalPages)
}

// Pager tracks the current page of one section.
type Pager struct {
	pageSize int
	current  int
}

func NewPager(pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{pageSize: pageSize, current: 1}
}

func (p *Pager) PageSize() int { return p.pageSize }

func (p *Pager) Current() int { return p.current }

// Go moves to page n, clamped against a list of size count. It returns the page shown.
func (p *Pager) Go(n, count int) int {
	p.current = Clamp(n, TotalPages(count, p.pageSize))
	return p.current
}

func (p *Pager) AfterInsert(count int) {
	p.current = PageAfterInsert(count, p.pageSize)
}

func (p *Pager) AfterDelete(count int) {
	p.current = PageAfterDelete(p.current, TotalPages(count, p.pageSize))
}

// Sync re-clamps the current page after the list was replaced wholesale.
func (p *Pager) Sync(count int) {
	p.current = Clamp(p.current, TotalPages(count, p.pageSize))
}

func (p *Pager) Reset() {
	p.current = 1
}
