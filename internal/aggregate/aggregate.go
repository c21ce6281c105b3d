// Package aggregate sums per-cell genomic signal into per-cluster profiles.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/multivec-tiles/builder/internal/bins"
)

// Matrix is a dense cell-by-bin count matrix, rows in barcode order and
// columns in bin-label order. It is treated as immutable for the duration of
// a build, which is what makes per-sequence aggregation safe to parallelize.
type Matrix struct {
	Rows int
	Cols int
	data []float64
}

// NewMatrix allocates a zero-filled Rows x Cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, data: make([]float64, rows*cols)}
}

// At returns the value at (row, col).
func (m *Matrix) At(row, col int) float64 { return m.data[row*m.Cols+col] }

// Set stores a value at (row, col).
func (m *Matrix) Set(row, col int, v float64) { m.data[row*m.Cols+col] = v }

// Add accumulates a value at (row, col).
func (m *Matrix) Add(row, col int, v float64) { m.data[row*m.Cols+col] += v }

// Sum returns the total of all entries.
func (m *Matrix) Sum() float64 {
	var s float64
	for _, v := range m.data {
		s += v
	}
	return s
}

// Assignment maps cluster labels to the matrix rows of their member cells.
// Labels are ordered by integer value so the cluster row order of the output
// store is deterministic regardless of input iteration order.
type Assignment struct {
	labels []string
	rows   map[string][]int
}

// NewAssignment resolves a per-cell cluster table against the barcode order
// of the matrix. Barcodes with no cluster entry belong to no cluster and
// contribute to no profile; cluster membership of cells absent from the
// barcode list is ignored.
func NewAssignment(barcodes []string, clusterByCell map[string]string) *Assignment {
	// Every cluster label in the table gets an output row, even when none
	// of its cells appears in the barcode list; such clusters simply keep
	// an all-zero profile.
	seen := make(map[string]bool, len(clusterByCell))
	labels := make([]string, 0, len(clusterByCell))
	for _, label := range clusterByCell {
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	sortClusterLabels(labels)

	rows := make(map[string][]int)
	for i, bc := range barcodes {
		label, ok := clusterByCell[bc]
		if !ok {
			continue
		}
		rows[label] = append(rows[label], i)
	}

	return &Assignment{labels: labels, rows: rows}
}

// Labels returns the cluster labels in output row order.
func (a *Assignment) Labels() []string { return a.labels }

// NumClusters returns the number of clusters.
func (a *Assignment) NumClusters() int { return len(a.labels) }

// Rows returns the matrix row indices of a cluster's member cells.
func (a *Assignment) Rows(label string) []int { return a.rows[label] }

// sortClusterLabels orders labels by their integer value when every label
// parses as an integer, and lexicographically otherwise. Either way the
// order is total and deterministic.
func sortClusterLabels(labels []string) {
	ints := make(map[string]int64, len(labels))
	allInts := true
	for _, l := range labels {
		v, err := strconv.ParseInt(l, 10, 64)
		if err != nil {
			allInts = false
			break
		}
		ints[l] = v
	}
	if allInts {
		sort.Slice(labels, func(i, j int) bool { return ints[labels[i]] < ints[labels[j]] })
		return
	}
	sort.Strings(labels)
}

// Profile sums the given matrix rows across the reconciled slots of one
// sequence, producing the base-resolution signal vector for one cluster.
// Slots with no source column count as observed zero.
func Profile(m *Matrix, rows []int, slots []int) []float64 {
	out := make([]float64, len(slots))
	for i, col := range slots {
		if col == bins.NoColumn {
			continue
		}
		var s float64
		for _, r := range rows {
			s += m.At(r, col)
		}
		out[i] = s
	}
	return out
}

// BySequence builds the [clusters x slots] base-resolution matrix for one
// sequence, rows in Assignment label order. Clusters with no member cells
// yield all-zero profiles.
func BySequence(m *Matrix, a *Assignment, slots []int) ([][]float64, error) {
	for _, col := range slots {
		if col != bins.NoColumn && (col < 0 || col >= m.Cols) {
			return nil, fmt.Errorf("aggregate: slot column %d out of range for %d-column matrix", col, m.Cols)
		}
	}

	out := make([][]float64, a.NumClusters())
	for i, label := range a.Labels() {
		out[i] = Profile(m, a.Rows(label), slots)
	}
	return out, nil
}
