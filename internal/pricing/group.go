package pricing

import "sort"

// Group is a run of items sharing the same predicate result.
type Group[T any] struct {
	Key   bool
	Items []T
}

// PartitionBy splits items into at most two groups keyed by pred. Items are stably
// sorted by key before grouping so each key yields exactly one group no matter how
// the input is ordered. The input slice is not modified.
func PartitionBy[T any](items []T, pred func(T) bool) []Group[T] {
	if len(items) == 0 {
		return nil
	}
	type keyed struct {
		key  bool
		item T
	}
	sorted := make([]keyed, len(items))
	for i, it := range items {
		sorted[i] = keyed{key: pred(it), item: it}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return !sorted[i].key && sorted[j].key
	})

	groups := make([]Group[T], 0, 2)
	for _, k := range sorted {
		if n := len(groups); n > 0 && groups[n-1].Key == k.key {
			groups[n-1].Items = append(groups[n-1].Items, k.item)
			continue
		}
		groups = append(groups, Group[T]{Key: k.key, Items: []T{k.item}})
	}
	return groups
}

// Matching returns the items of the true group, or nil when no item matched.
func Matching[T any](groups []Group[T]) []T {
	for _, g := range groups {
		if g.Key {
			return g.Items
		}
	}
	return nil
}
