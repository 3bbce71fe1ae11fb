package repository

import (
	"sort"
	"strings"
)

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// window applies limit/offset to a slice length and returns the [lo, hi)
// bounds. A zero limit means no limit.
func window(n, limit, offset int) (int, int) {
	lo := offset
	if lo < 0 {
		lo = 0
	}
	if lo > n {
		lo = n
	}

	hi := n
	if limit > 0 && lo+limit < hi {
		hi = lo + limit
	}

	return lo, hi
}

// sortStable sorts using less, honoring a desc sort order.
func sortStable(n int, order string, swap func(i, j int), less func(i, j int) bool) {
	cmp := less
	if strings.EqualFold(order, "desc") {
		cmp = func(i, j int) bool { return less(j, i) }
	}
	sort.Stable(sortable{n: n, swap: swap, less: cmp})
}

type sortable struct {
	n    int
	swap func(i, j int)
	less func(i, j int) bool
}

func (s sortable) Len() int           { return s.n }
func (s sortable) Swap(i, j int)      { s.swap(i, j) }
func (s sortable) Less(i, j int) bool { return s.less(i, j) }
