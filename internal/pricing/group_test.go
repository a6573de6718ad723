package pricing

import (
	"sort"
	"testing"
)

func TestPartitionByOneGroupPerKey(t *testing.T) {
	input := []string{"GR1", "SR1", "GR1", "CF1", "GR1"}
	groups := PartitionBy(input, func(s string) bool { return s == "GR1" })
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Key || !groups[1].Key {
		t.Fatalf("expected false group before true group, got %+v", groups)
	}
	if got := Matching(groups); len(got) != 3 {
		t.Fatalf("expected 3 matching items, got %v", got)
	}
	if got := groups[0].Items; len(got) != 2 || got[0] != "SR1" || got[1] != "CF1" {
		t.Fatalf("expected stable order SR1,CF1 got %v", got)
	}
}

func TestPartitionBySingleKey(t *testing.T) {
	groups := PartitionBy([]int{2, 4, 6}, func(n int) bool { return n%2 == 0 })
	if len(groups) != 1 || !groups[0].Key || len(groups[0].Items) != 3 {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if Matching(PartitionBy([]int{1, 3}, func(n int) bool { return n%2 == 0 })) != nil {
		t.Fatal("expected no matching group")
	}
	if PartitionBy[int](nil, func(int) bool { return true }) != nil {
		t.Fatal("expected nil groups for empty input")
	}
}

func TestPartitionByPermutationInvariant(t *testing.T) {
	base := []Item{greenTea, strawberries, greenTea, coffee, greenTea, strawberries}
	isTea := func(it Item) bool { return it.Code == "GR1" }
	want := membership(PartitionBy(base, isTea))
	permute(base, func(items []Item) {
		got := membership(PartitionBy(items, isTea))
		if len(got) != len(want) {
			t.Fatalf("group count changed for %s", codes(items))
		}
		for key, members := range want {
			if got[key] != members {
				t.Fatalf("group %v changed: %s vs %s", key, got[key], members)
			}
		}
	})
}

func TestPartitionByDoesNotMutateInput(t *testing.T) {
	input := []string{"b", "a", "b", "a"}
	PartitionBy(input, func(s string) bool { return s == "a" })
	if input[0] != "b" || input[1] != "a" || input[2] != "b" || input[3] != "a" {
		t.Fatalf("input reordered: %v", input)
	}
}

func membership(groups []Group[Item]) map[bool]string {
	out := make(map[bool]string, len(groups))
	for _, g := range groups {
		sorted := make([]Item, len(g.Items))
		copy(sorted, g.Items)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
		out[g.Key] = codes(sorted)
	}
	return out
}
