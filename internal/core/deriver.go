package core

// Deriver computes a new LINcode for an incoming profile given the
// in-memory labeled set, per spec §4.7.
type Deriver struct {
	Kernel     Kernel
	Thresholds Thresholds
}

// NewDeriver constructs a deriver bound to a scheme's kernel and thresholds.
func NewDeriver(kernel Kernel, thresholds Thresholds) Deriver {
	return Deriver{Kernel: kernel, Thresholds: thresholds}
}

// Derive returns the LINcode for profile p given the current labeled set.
// An empty labeled set naturally falls through to the k=0 branch (nothing
// is closer than the infDistance sentinel), minting the first top-level
// lineage [0, 0, ..., 0] for the very first profile ever assigned.
func (d Deriver) Derive(labeled []LabeledProfile, p Profile) LINCode {
	closest := -1
	minDistance := infDistance
	for i, lp := range labeled {
		diffs, distance, denomZero := d.Kernel.Compare(p, lp.Profile)
		if denomZero {
			// Nothing known overlaps between the two profiles: diffs is
			// trivially 0 but that's not meaningful equality. Treat as
			// maximally distant instead of reusing (spec §9 boundary
			// behavior for an entirely-missing profile).
			distance = 100.0
		} else if diffs == 0 {
			// Exact kernel match (ignoring missing positions): reuse
			// verbatim, first index wins.
			return lp.Code.Clone()
		}
		if distance < minDistance {
			minDistance = distance
			closest = i
		}
	}

	identity := 100 - minDistance
	k := d.Thresholds.Level(identity)
	K := d.Thresholds.K()

	code := make(LINCode, K)
	if k == 0 {
		maxFirst := -1
		for _, lp := range labeled {
			if lp.Code[0] > maxFirst {
				maxFirst = lp.Code[0]
			}
		}
		code[0] = maxFirst + 1
		return code
	}

	prefixLen := k
	if prefixLen > K {
		prefixLen = K
	}
	copy(code, labeled[closest].Code[:prefixLen])

	if k >= K {
		// Prefix consumes the whole code; the increment lands on the last
		// position (spec §4.7 step 3, S2).
		pos := K - 1
		maxAt := -1
		for _, lp := range labeled {
			if sharesPrefix(lp.Code, code, pos) && lp.Code[pos] > maxAt {
				maxAt = lp.Code[pos]
			}
		}
		code[pos] = maxAt + 1
		return code
	}

	pos := k
	maxAt := -1
	for _, lp := range labeled {
		if sharesPrefix(lp.Code, code, pos) && lp.Code[pos] > maxAt {
			maxAt = lp.Code[pos]
		}
	}
	code[pos] = maxAt + 1
	return code
}

// sharesPrefix reports whether code shares prefix[0:pos] with prefix.
func sharesPrefix(code, prefix LINCode, pos int) bool {
	for i := 0; i < pos; i++ {
		if code[i] != prefix[i] {
			return false
		}
	}
	return true
}
