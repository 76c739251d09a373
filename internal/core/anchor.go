package core

// AnchorAdjust rotates a Prim-ordered batch so it begins with the member
// closest to the already-labeled set, per spec §4.6. The labeled profiles
// are looked up by id in profilesByID. When labeled is empty the order is
// returned unchanged (callers should skip the call entirely in that case,
// matching spec §4.8's loop structure, but AnchorAdjust is itself a no-op
// for safety).
func AnchorAdjust(kernel Kernel, labeled []LabeledProfile, order []string, profilesByID map[string]Profile) []string {
	if len(labeled) == 0 || len(order) == 0 {
		out := make([]string, len(order))
		copy(out, order)
		return out
	}

	bestIdx := 0
	bestDist := infDistance
	for idx, id := range order {
		p := profilesByID[id]
		min := infDistance
		for _, lp := range labeled {
			d := kernel.Distance(p, lp.Profile)
			if d < min {
				min = d
			}
		}
		if min < bestDist {
			bestDist = min
			bestIdx = idx
		}
	}

	rotated := make([]string, 0, len(order))
	rotated = append(rotated, order[bestIdx:]...)
	for i := bestIdx - 1; i >= 0; i-- {
		rotated = append(rotated, order[i])
	}
	return rotated
}
