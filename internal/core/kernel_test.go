package core

import "testing"

func TestKernelCompareBasic(t *testing.T) {
	k := NewKernel(4)
	diffs, distance, denomZero := k.Compare(Profile{1, 1, 1, 1}, Profile{1, 1, 1, 2})
	if denomZero {
		t.Fatalf("expected denomZero false")
	}
	if diffs != 1 {
		t.Fatalf("diffs = %d, want 1", diffs)
	}
	if distance != 25.0 {
		t.Fatalf("distance = %v, want 25.0", distance)
	}
}

func TestKernelCompareIdentical(t *testing.T) {
	k := NewKernel(4)
	diffs, distance, denomZero := k.Compare(Profile{1, 1, 1, 1}, Profile{1, 1, 1, 1})
	if diffs != 0 || distance != 0.0 || denomZero {
		t.Fatalf("unexpected result: diffs=%d distance=%v denomZero=%v", diffs, distance, denomZero)
	}
}

func TestKernelCompareMissingIgnoredInDiffs(t *testing.T) {
	k := NewKernel(4)
	diffs, distance, denomZero := k.Compare(Profile{1, 1, 1, 1}, Profile{1, 1, 1, Missing})
	if diffs != 0 {
		t.Fatalf("diffs = %d, want 0 (missing positions never count as differing)", diffs)
	}
	if distance != 0.0 {
		t.Fatalf("distance = %v, want 0.0", distance)
	}
	if denomZero {
		t.Fatalf("expected denomZero false")
	}
}

func TestKernelCompareFullyDisjointMissing(t *testing.T) {
	k := NewKernel(4)
	diffs, distance, denomZero := k.Compare(Profile{Missing, Missing, Missing, Missing}, Profile{1, 1, 1, 1})
	if !denomZero {
		t.Fatalf("expected denomZero true when every locus has a missing allele on one side")
	}
	if distance != 100.0 {
		t.Fatalf("distance = %v, want 100.0 even though denom is zero", distance)
	}
	_ = diffs
}

func TestKernelDistanceCollapsesDenomZero(t *testing.T) {
	k := NewKernel(4)
	d := k.Distance(Profile{Missing, Missing, Missing, Missing}, Profile{Missing, Missing, Missing, Missing})
	if d != 100.0 {
		t.Fatalf("Distance() = %v, want 100.0", d)
	}
}

func TestKernelCompareMaximallyDistant(t *testing.T) {
	k := NewKernel(4)
	diffs, distance, denomZero := k.Compare(Profile{1, 1, 1, 1}, Profile{2, 2, 2, 2})
	if denomZero {
		t.Fatalf("expected denomZero false")
	}
	if diffs != 4 || distance != 100.0 {
		t.Fatalf("diffs=%d distance=%v, want 4 and 100.0", diffs, distance)
	}
}
