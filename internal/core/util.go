package core

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

func bytesToFloat64(b []byte, idx int) float64 {
	off := idx * 8
	bits := binary.LittleEndian.Uint64(b[off : off+8])
	return math.Float64frombits(bits)
}

func float64ToBytes(b []byte, idx int, v float64) {
	off := idx * 8
	binary.LittleEndian.PutUint64(b[off:off+8], math.Float64bits(v))
}

func joinInts(vals []int, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
