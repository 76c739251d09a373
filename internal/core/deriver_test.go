package core

import "testing"

// All scenarios use L=4, T=[1,2] so K=2 and I=[75.0, 50.0].
func testDeriver(t *testing.T) Deriver {
	t.Helper()
	th, err := ParseThresholds("1;2", 4)
	if err != nil {
		t.Fatalf("ParseThresholds: %v", err)
	}
	return NewDeriver(NewKernel(4), th)
}

func TestDeriveS1ColdStartIdenticalProfiles(t *testing.T) {
	d := testDeriver(t)
	var labeled []LabeledProfile

	c1 := d.Derive(labeled, Profile{1, 1, 1, 1})
	if c1.String() != "0_0" {
		t.Fatalf("profile 1 code = %s, want 0_0", c1.String())
	}
	labeled = append(labeled, LabeledProfile{ID: "1", Profile: Profile{1, 1, 1, 1}, Code: c1})

	c2 := d.Derive(labeled, Profile{1, 1, 1, 1})
	if c2.String() != "0_0" {
		t.Fatalf("profile 2 code = %s, want 0_0 (diffs-zero reuse)", c2.String())
	}
}

func TestDeriveS2OneAlleleDifference(t *testing.T) {
	d := testDeriver(t)
	labeled := []LabeledProfile{{ID: "1", Profile: Profile{1, 1, 1, 1}, Code: LINCode{0, 0}}}
	c2 := d.Derive(labeled, Profile{1, 1, 1, 2})
	if c2.String() != "0_1" {
		t.Fatalf("profile 2 code = %s, want 0_1", c2.String())
	}
}

func TestDeriveS3DistantProfile(t *testing.T) {
	d := testDeriver(t)
	labeled := []LabeledProfile{{ID: "1", Profile: Profile{1, 1, 1, 1}, Code: LINCode{0, 0}}}
	c2 := d.Derive(labeled, Profile{2, 2, 2, 2})
	if c2.String() != "1_0" {
		t.Fatalf("profile 2 code = %s, want 1_0", c2.String())
	}
}

func TestDeriveS4ThreeWayBranching(t *testing.T) {
	d := testDeriver(t)
	var labeled []LabeledProfile

	c1 := d.Derive(labeled, Profile{1, 1, 1, 1})
	labeled = append(labeled, LabeledProfile{ID: "1", Profile: Profile{1, 1, 1, 1}, Code: c1})

	c2 := d.Derive(labeled, Profile{1, 1, 1, 2})
	if c2.String() != "0_1" {
		t.Fatalf("profile 2 code = %s, want 0_1", c2.String())
	}
	labeled = append(labeled, LabeledProfile{ID: "2", Profile: Profile{1, 1, 1, 2}, Code: c2})

	c3 := d.Derive(labeled, Profile{1, 1, 2, 2})
	if c3.String() != "0_2" {
		t.Fatalf("profile 3 code = %s, want 0_2", c3.String())
	}
}

func TestDeriveS5MissingDataReuse(t *testing.T) {
	d := testDeriver(t)
	labeled := []LabeledProfile{{ID: "1", Profile: Profile{1, 1, 1, 1}, Code: LINCode{0, 0}}}
	c2 := d.Derive(labeled, Profile{1, 1, 1, Missing})
	if c2.String() != "0_0" {
		t.Fatalf("profile 2 code = %s, want 0_0 (inherits via diffs-zero reuse)", c2.String())
	}
}

func TestDeriveS6Resume(t *testing.T) {
	d := testDeriver(t)
	labeled := []LabeledProfile{
		{ID: "1", Profile: Profile{1, 1, 1, 1}, Code: LINCode{0, 0}},
		{ID: "2", Profile: Profile{1, 1, 1, 2}, Code: LINCode{0, 1}},
		{ID: "3", Profile: Profile{1, 1, 2, 2}, Code: LINCode{0, 2}},
	}
	c4 := d.Derive(labeled, Profile{2, 2, 2, 2})
	if c4.String() != "1_0" {
		t.Fatalf("profile 4 code = %s, want 1_0", c4.String())
	}
}

func TestDeriveCodeLengthAlwaysK(t *testing.T) {
	d := testDeriver(t)
	labeled := []LabeledProfile{{ID: "1", Profile: Profile{1, 1, 1, 1}, Code: LINCode{0, 0}}}
	for _, p := range []Profile{{1, 1, 1, 2}, {2, 2, 2, 2}, {1, 1, 1, 1}} {
		c := d.Derive(labeled, p)
		if len(c) != 2 {
			t.Fatalf("code length = %d, want K=2 for profile %v", len(c), p)
		}
	}
}

func TestDeriveFullyMissingProfileGetsFreshTopLevelCode(t *testing.T) {
	d := testDeriver(t)
	labeled := []LabeledProfile{{ID: "1", Profile: Profile{1, 1, 1, 1}, Code: LINCode{0, 0}}}
	c := d.Derive(labeled, Profile{Missing, Missing, Missing, Missing})
	if c.String() != "1_0" {
		t.Fatalf("fully missing profile code = %s, want 1_0 (treated as maximally distant)", c.String())
	}
}
