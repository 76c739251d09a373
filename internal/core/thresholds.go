package core

import (
	"strconv"
	"strings"
)

// Thresholds is the parsed, cached threshold configuration for a scheme:
// a strictly increasing list of allelic-difference cut-offs and the
// identity percentage each one implies given the scheme's locus count.
type Thresholds struct {
	Diffs    []int
	Identity []float64
}

// K returns the number of threshold levels (the LINcode length).
func (t Thresholds) K() int { return len(t.Diffs) }

// ParseThresholds parses the semicolon-separated threshold line from
// scheme_<S>_thresholds.txt and derives the identity percentage for each
// level given the scheme's locus count L. Fails on an empty, non-monotonic,
// or non-integer threshold list.
func ParseThresholds(raw string, locusCount int) (Thresholds, error) {
	fields := strings.Split(raw, ";")
	diffs := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return Thresholds{}, &ConfigError{Reason: "non-integer threshold value " + strconv.Quote(f)}
		}
		diffs = append(diffs, v)
	}
	if len(diffs) == 0 {
		return Thresholds{}, &ConfigError{Reason: "threshold list is empty"}
	}
	for i := 1; i < len(diffs); i++ {
		if diffs[i] <= diffs[i-1] {
			return Thresholds{}, &ConfigError{Reason: "threshold list is not strictly increasing"}
		}
	}
	if locusCount <= 0 {
		return Thresholds{}, &ConfigError{Reason: "locus count must be positive to derive identity percentages"}
	}

	identity := make([]float64, len(diffs))
	for i, t := range diffs {
		identity[i] = 100 * float64(locusCount-t) / float64(locusCount)
	}
	return Thresholds{Diffs: diffs, Identity: identity}, nil
}

// Level returns the count of leading thresholds whose identity cut-off the
// given identity percentage meets or exceeds (§4.7 step 2).
func (t Thresholds) Level(identity float64) int {
	k := 0
	for _, cut := range t.Identity {
		if identity >= cut {
			k++
		} else {
			break
		}
	}
	return k
}
