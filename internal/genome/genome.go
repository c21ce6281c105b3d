// Package genome provides reference genome coordinate systems.
//
// A coordinate system is an ordered list of reference sequences with fixed
// lengths and cumulative genome-wide offsets. It is a pure function of the
// assembly name and never derived from input data, so the offsets written to
// output stores are reference-relative rather than data-relative.
package genome

import (
	"errors"
	"fmt"
)

// ErrUnknownAssembly indicates a reference assembly this package has no
// sequence table for.
var ErrUnknownAssembly = errors.New("unknown reference assembly")

// Sequence is one reference sequence (chromosome).
type Sequence struct {
	Name   string
	Length int64
	// Offset is the position of the sequence's first base in a single
	// linear coordinate spanning all sequences in canonical order.
	Offset int64
}

// CoordinateSystem is an ordered, fixed set of reference sequences.
type CoordinateSystem struct {
	assembly  string
	sequences []Sequence
	byName    map[string]int
}

// ForAssembly returns the canonical coordinate system for a named assembly.
// Only the primary sequences are included (for hg38: chr1-chr22, chrX, chrY
// and chrM), matching the subset genome browsers index.
func ForAssembly(assembly string) (*CoordinateSystem, error) {
	switch assembly {
	case "hg38", "GRCh38":
		return New("hg38", hg38Sequences()), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAssembly, assembly)
}

// New builds a coordinate system from an ordered (name, length) list.
// Cumulative offsets are computed here; any Offset values on the input are
// ignored. Callers outside tests normally go through ForAssembly.
func New(assembly string, seqs []Sequence) *CoordinateSystem {
	cs := &CoordinateSystem{
		assembly:  assembly,
		sequences: make([]Sequence, len(seqs)),
		byName:    make(map[string]int, len(seqs)),
	}
	var offset int64
	for i, s := range seqs {
		cs.sequences[i] = Sequence{Name: s.Name, Length: s.Length, Offset: offset}
		cs.byName[s.Name] = i
		offset += s.Length
	}
	return cs
}

// Assembly returns the assembly name the coordinate system was built for.
func (cs *CoordinateSystem) Assembly() string { return cs.assembly }

// Len returns the number of sequences.
func (cs *CoordinateSystem) Len() int { return len(cs.sequences) }

// Sequences returns the sequences in canonical order.
func (cs *CoordinateSystem) Sequences() []Sequence { return cs.sequences }

// Lookup returns the sequence with the given name.
func (cs *CoordinateSystem) Lookup(name string) (Sequence, bool) {
	i, ok := cs.byName[name]
	if !ok {
		return Sequence{}, false
	}
	return cs.sequences[i], true
}

// TotalLength returns the length of the linear genome coordinate.
func (cs *CoordinateSystem) TotalLength() int64 {
	if len(cs.sequences) == 0 {
		return 0
	}
	last := cs.sequences[len(cs.sequences)-1]
	return last.Offset + last.Length
}
