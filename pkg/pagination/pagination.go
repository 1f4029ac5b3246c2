package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds pagination inputs from controllers or services.
// Pages are 1-based; lists are paged client-side over the mirrored snapshot.
type Params struct {
	Page  int
	Limit int
}

// Result wraps one page of items plus enough metadata to render pagers.
type Result[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage floors the page number at 1.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// Paginate slices one page out of the full in-memory list. The input slice is
// never mutated; a page past the end yields an empty items list.
func Paginate[T any](items []T, params Params) Result[T] {
	limit := NormalizeLimit(params.Limit)
	page := NormalizePage(params.Page)

	total := len(items)
	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	pageItems := make([]T, end-start)
	copy(pageItems, items[start:end])

	return Result[T]{
		Items:      pageItems,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
