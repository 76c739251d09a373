package core

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Matrix is a symmetric n×n distance matrix over a batch of profiles. The
// diagonal is set to infDistance when the matrix is built, and consumed
// cells are set to it during Prim traversal (C5). Backing storage is either a dense in-memory slice or a
// memory-mapped file under a secure temp directory; the choice only affects
// memory footprint, never the values produced.
type Matrix struct {
	n      int
	data   []float64 // n*n row-major
	mapped *mappedFile
}

type mappedFile struct {
	f    *os.File
	data []byte
}

// BuildMatrix computes the full symmetric distance matrix for a batch of
// profiles, filling only the upper triangle (i<j) and mirroring it, per
// spec §4.4. When useMmap is true the backing storage is a memory-mapped
// file under tmpDir instead of a RAM-resident slice; tmpDir must already
// exist. The matrix must be released with Close when no longer needed so
// any transient file is unlinked.
func BuildMatrix(kernel Kernel, profiles []Profile, useMmap bool, tmpDir string) (*Matrix, error) {
	n := len(profiles)
	m := &Matrix{n: n}
	if useMmap && n > 0 {
		mf, err := newMappedFile(tmpDir, n)
		if err != nil {
			return nil, err
		}
		m.mapped = mf
	} else {
		m.data = make([]float64, n*n)
	}

	g := new(errgroup.Group)
	workers := n
	if workers > 8 {
		workers = 8
	}
	if workers < 1 {
		workers = 1
	}
	rowsPerWorker := (n + workers - 1) / max1(workers)
	for start := 0; start < n; start += rowsPerWorker {
		start := start
		end := start + rowsPerWorker
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				for j := i + 1; j < n; j++ {
					d := kernel.Distance(profiles[i], profiles[j])
					m.set(i, j, d)
					m.set(j, i, d)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.Close()
		return nil, err
	}
	for i := 0; i < n; i++ {
		m.set(i, i, infDistance)
	}
	return m, nil
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func newMappedFile(tmpDir string, n int) (*mappedFile, error) {
	f, err := os.CreateTemp(tmpDir, "dismat*.dismat")
	if err != nil {
		return nil, fmt.Errorf("create distance matrix file: %w", err)
	}
	size := int64(n) * int64(n) * 8
	if size == 0 {
		size = 8
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("size distance matrix file: %w", err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("mmap distance matrix file: %w", err)
	}
	return &mappedFile{f: f, data: data}, nil
}

func (m *Matrix) at(i, j int) float64 {
	if m.mapped != nil {
		return bytesToFloat64(m.mapped.data, i*m.n+j)
	}
	return m.data[i*m.n+j]
}

func (m *Matrix) set(i, j int, v float64) {
	if m.mapped != nil {
		float64ToBytes(m.mapped.data, i*m.n+j, v)
		return
	}
	m.data[i*m.n+j] = v
}

// N returns the matrix dimension.
func (m *Matrix) N() int { return m.n }

// At returns the distance between batch members i and j.
func (m *Matrix) At(i, j int) float64 { return m.at(i, j) }

// Invalidate sets both (i,j) and (j,i) to infDistance, marking the pair as
// consumed for the purposes of the Prim frontier search.
func (m *Matrix) Invalidate(i, j int) {
	m.set(i, j, infDistance)
	m.set(j, i, infDistance)
}

// Close releases the matrix's backing storage, unlinking any transient
// mmap file.
func (m *Matrix) Close() error {
	if m.mapped == nil {
		return nil
	}
	name := m.mapped.f.Name()
	err := unix.Munmap(m.mapped.data)
	closeErr := m.mapped.f.Close()
	removeErr := os.Remove(name)
	m.mapped = nil
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}
	return removeErr
}
