package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("zero limit should default, got %d", got)
	}
	if got := NormalizeLimit(-3); got != DefaultLimit {
		t.Fatalf("negative limit should default, got %d", got)
	}
	if got := NormalizeLimit(1000); got != MaxLimit {
		t.Fatalf("oversized limit should cap, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("valid limit should pass through, got %d", got)
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 0, 7)
	for i := 1; i <= 7; i++ {
		items = append(items, i)
	}

	page := Paginate(items, Params{Page: 2, Limit: 3})
	if page.Total != 7 || page.TotalPages != 3 {
		t.Fatalf("unexpected totals: %+v", page)
	}
	if len(page.Items) != 3 || page.Items[0] != 4 {
		t.Fatalf("unexpected second page: %+v", page.Items)
	}

	last := Paginate(items, Params{Page: 3, Limit: 3})
	if len(last.Items) != 1 || last.Items[0] != 7 {
		t.Fatalf("unexpected last page: %+v", last.Items)
	}

	past := Paginate(items, Params{Page: 9, Limit: 3})
	if len(past.Items) != 0 {
		t.Fatalf("page past the end should be empty, got %+v", past.Items)
	}
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate([]string{}, Params{})
	if page.Total != 0 || page.TotalPages != 1 || len(page.Items) != 0 {
		t.Fatalf("unexpected empty result: %+v", page)
	}
}
