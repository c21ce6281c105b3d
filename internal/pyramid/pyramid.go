// Package pyramid builds power-of-two downsampled resolution levels from
// base-resolution cluster profiles.
//
// Every level k holds the same signal at resolution base*2^k, with run-sums
// of 2^k adjacent base bins. Two paddings keep level lengths exact: the base
// vector is right-padded with zeros to a multiple of 2^k before grouping, and
// the grouped vector is right-padded again when rounding at the sequence
// boundary leaves it short of ceil(seqLen/resolution). A sequence that had no
// observed bins at all produces a NoData pyramid instead: its arrays stay in
// the store's uninitialized state rather than zero, so consumers can tell
// "no data available" from "measured zero".
package pyramid

import "fmt"

// State tags whether a sequence's pyramid carries computed signal.
type State int

const (
	// NoData marks a sequence with no retained input bins. Its arrays are
	// never written and remain fill-value initialized.
	NoData State = iota
	// Computed marks a sequence with aggregated signal at every level.
	Computed
)

// Level is one resolution level of one sequence.
type Level struct {
	Resolution int64
	// Width is ceil(seqLen / Resolution), the exact column count of the
	// persisted array at this level.
	Width int
	// Rows is the [clusters x Width] signal, nil for NoData pyramids.
	Rows [][]float64
}

// Pyramid is the full resolution stack for one sequence.
type Pyramid struct {
	State  State
	Levels []Level
}

// Resolutions returns base*2^k for k in [0, levels).
func Resolutions(base int64, levels int) []int64 {
	out := make([]int64, levels)
	r := base
	for i := 0; i < levels; i++ {
		out[i] = r
		r *= 2
	}
	return out
}

// LevelWidth returns ceil(seqLen / resolution).
func LevelWidth(seqLen, resolution int64) int {
	return int((seqLen + resolution - 1) / resolution)
}

// Build constructs all levels from the base-resolution profile matrix
// (rows = clusters, columns = base bins of one sequence). Each level is
// downsampled from the base vectors directly, which keeps the zero-padding
// policy identical at every level.
func Build(base [][]float64, seqLen, baseWidth int64, levels int) (*Pyramid, error) {
	if levels <= 0 {
		return nil, fmt.Errorf("pyramid: level count must be positive, got %d", levels)
	}
	if baseWidth <= 0 {
		return nil, fmt.Errorf("pyramid: base width must be positive, got %d", baseWidth)
	}
	baseLen := LevelWidth(seqLen, baseWidth)
	for i, row := range base {
		if len(row) != baseLen {
			return nil, fmt.Errorf("pyramid: cluster %d has %d base bins, want %d", i, len(row), baseLen)
		}
	}

	p := &Pyramid{State: Computed, Levels: make([]Level, levels)}
	factor := 1
	for k, res := range Resolutions(baseWidth, levels) {
		width := LevelWidth(seqLen, res)
		rows := make([][]float64, len(base))
		for c, row := range base {
			rows[c] = downsample(row, factor, width)
		}
		p.Levels[k] = Level{Resolution: res, Width: width, Rows: rows}
		factor *= 2
	}
	return p, nil
}

// Empty returns a NoData pyramid whose level widths match what Build would
// produce for the sequence.
func Empty(seqLen, baseWidth int64, levels int) (*Pyramid, error) {
	if levels <= 0 {
		return nil, fmt.Errorf("pyramid: level count must be positive, got %d", levels)
	}
	if baseWidth <= 0 {
		return nil, fmt.Errorf("pyramid: base width must be positive, got %d", baseWidth)
	}

	p := &Pyramid{State: NoData, Levels: make([]Level, levels)}
	for k, res := range Resolutions(baseWidth, levels) {
		p.Levels[k] = Level{Resolution: res, Width: LevelWidth(seqLen, res)}
	}
	return p, nil
}

// downsample sums consecutive runs of factor elements, zero-padding the
// input to a run boundary and the output to the target width.
func downsample(values []float64, factor, width int) []float64 {
	out := make([]float64, width)
	for i, v := range values {
		g := i / factor
		if g >= width {
			break
		}
		out[g] += v
	}
	return out
}
