package core

// PrimOrder produces a nearest-neighbor traversal order over a batch using
// the matrix built by BuildMatrix, per spec §4.5. ids must be in the same
// order as the rows/columns of m. A singleton batch is returned unchanged.
//
// Tie-breaks always favor the smallest flat row-major index, which makes
// the order deterministic given the input.
func PrimOrder(ids []string, m *Matrix) []string {
	n := m.N()
	if n <= 1 {
		out := make([]string, len(ids))
		copy(out, ids)
		return out
	}

	visited := make([]bool, n)
	order := make([]string, 0, n)

	x, y := minCell(m, n)
	order = append(order, ids[x], ids[y])
	visited[x] = true
	visited[y] = true
	m.Invalidate(x, y)

	for len(order) < n {
		bestRow, bestCol, bestVal := -1, -1, infDistance
		for i := 0; i < n; i++ {
			if !visited[i] {
				continue
			}
			for j := 0; j < n; j++ {
				if visited[j] {
					continue
				}
				v := m.At(i, j)
				if v < bestVal || (v == bestVal && flatIndex(i, j, n) < flatIndex(bestRow, bestCol, n)) {
					bestRow, bestCol, bestVal = i, j, v
				}
			}
		}
		if bestCol < 0 {
			break
		}
		order = append(order, ids[bestCol])
		visited[bestCol] = true
		for i := 0; i < n; i++ {
			if visited[i] {
				m.Invalidate(i, bestCol)
			}
		}
	}
	return order
}

// minCell scans the whole matrix for the globally smallest cell, breaking
// ties by smallest row-major flat index.
func minCell(m *Matrix, n int) (x, y int) {
	x, y = 0, 1
	best := m.At(0, 1)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			v := m.At(i, j)
			if v < best || (v == best && flatIndex(i, j, n) < flatIndex(x, y, n)) {
				x, y, best = i, j, v
			}
		}
	}
	return x, y
}

func flatIndex(i, j, n int) int {
	if i < 0 || j < 0 {
		return int(^uint(0) >> 1) // max int: never wins a tie-break
	}
	return i*n + j
}
