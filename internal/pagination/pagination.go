package pagination

import "github.com/gofiber/fiber/v2"

// MaxPageSize caps how many rows one listing request can pull
const MaxPageSize = 200

// Page is the window of a listing a client asked for, 1-based
type Page struct {
	Number int
	Size   int
}

// Metadata is sent next to the rows of a paginated listing
type Metadata struct {
	TotalCount  int64 `json:"totalCount"`
	PageSize    int   `json:"pageSize"`
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	HasPrevious bool  `json:"hasPrevious"`
	HasNext     bool  `json:"hasNext"`
}

// FromQuery reads ?page=&pageSize=. Missing or non-positive values fall back
// to the first page of defaultSize rows; oversized pages are capped.
func FromQuery(c *fiber.Ctx, defaultSize int) Page {
	p := Page{
		Number: c.QueryInt("page", 1),
		Size:   c.QueryInt("pageSize", defaultSize),
	}
	return p.normalize(defaultSize)
}

func (p Page) normalize(defaultSize int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Limit is the row count to fetch
func (p Page) Limit() int {
	return p.Size
}

// Offset is the number of rows before the page
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Describe builds the metadata of the page within a listing of total rows.
// A page past the end reports the last page.
func (p Page) Describe(total int64) Metadata {
	meta := Metadata{
		TotalCount:  total,
		PageSize:    p.Size,
		CurrentPage: p.Number,
	}
	if total <= 0 || p.Size <= 0 {
		return meta
	}

	meta.TotalPages = int((total + int64(p.Size) - 1) / int64(p.Size))
	if meta.CurrentPage > meta.TotalPages {
		meta.CurrentPage = meta.TotalPages
	}
	meta.HasPrevious = meta.CurrentPage > 1
	meta.HasNext = meta.CurrentPage < meta.TotalPages
	return meta
}
