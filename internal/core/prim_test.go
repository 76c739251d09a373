package core

import "testing"

func buildTestMatrix(t *testing.T, profiles []Profile) *Matrix {
	t.Helper()
	m, err := BuildMatrix(NewKernel(4), profiles, false, t.TempDir())
	if err != nil {
		t.Fatalf("BuildMatrix: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestPrimOrderSingleton(t *testing.T) {
	ids := []string{"1"}
	m := buildTestMatrix(t, []Profile{{1, 1, 1, 1}})
	order := PrimOrder(ids, m)
	if len(order) != 1 || order[0] != "1" {
		t.Fatalf("order = %v, want [1]", order)
	}
}

func TestPrimOrderNearestNeighborExtension(t *testing.T) {
	ids := []string{"1", "2", "3"}
	profiles := []Profile{
		{1, 1, 1, 1}, // 1
		{1, 1, 1, 2}, // 2, distance 25 from 1
		{2, 2, 2, 2}, // 3, distance 100 from 1, 75 from 2
	}
	m := buildTestMatrix(t, profiles)
	order := PrimOrder(ids, m)
	if len(order) != 3 {
		t.Fatalf("order length = %d, want 3", len(order))
	}
	// The globally smallest pair (1,2) must be emitted first, in some
	// order, and 3 (farthest from both) must come last.
	if order[2] != "3" {
		t.Fatalf("order = %v, want profile 3 emitted last", order)
	}
	seenFirstTwo := map[string]bool{order[0]: true, order[1]: true}
	if !seenFirstTwo["1"] || !seenFirstTwo["2"] {
		t.Fatalf("order = %v, want profiles 1 and 2 emitted first", order)
	}
}

func TestPrimOrderDeterministicTieBreak(t *testing.T) {
	ids := []string{"1", "2", "3", "4"}
	// Running PrimOrder twice over the same matrix values must yield the
	// same order; the tie-break on equal cells is deterministic rather
	// than map-iteration-order dependent.
	profiles := []Profile{
		{1, 1, 1, 1},
		{2, 1, 1, 1},
		{1, 2, 1, 1},
		{1, 1, 2, 1},
	}
	m1 := buildTestMatrix(t, profiles)
	order1 := PrimOrder(ids, m1)
	m2 := buildTestMatrix(t, profiles)
	order2 := PrimOrder(ids, m2)
	if len(order1) != len(order2) {
		t.Fatalf("order lengths differ")
	}
	for i := range order1 {
		if order1[i] != order2[i] {
			t.Fatalf("PrimOrder is not deterministic: %v vs %v", order1, order2)
		}
	}
}
