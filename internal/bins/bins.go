// Package bins reconciles an incomplete list of observed genomic bin labels
// against a reference coordinate system.
//
// Input bin lists are positional: label i describes column i of the count
// matrix. They are also frequently incomplete — bins with no signal anywhere
// are simply missing. Reconciliation rebuilds a gap-free per-sequence bin
// index at the base width and maps each synthetic slot back to its source
// matrix column, distinguishing "bin absent from input" from "bin observed
// with zero counts".
package bins

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/multivec-tiles/builder/internal/genome"
)

// Bin is a genomic interval parsed from a "<seq>:<start>-<end>" label.
// Start is 1-based inclusive, matching the label convention.
type Bin struct {
	Sequence string
	Start    int64
	End      int64
}

// Label returns the canonical label for the bin.
func (b Bin) Label() string {
	return fmt.Sprintf("%s:%d-%d", b.Sequence, b.Start, b.End)
}

// ParseLabel parses a "<seq>:<start>-<end>" bin label. ok is false for
// malformed labels (missing separators, non-numeric or non-positive bounds,
// end not after start).
func ParseLabel(label string) (Bin, bool) {
	colon := strings.IndexByte(label, ':')
	if colon <= 0 {
		return Bin{}, false
	}
	dash := strings.IndexByte(label[colon+1:], '-')
	if dash <= 0 {
		return Bin{}, false
	}
	dash += colon + 1

	start, err := strconv.ParseInt(label[colon+1:dash], 10, 64)
	if err != nil || start <= 0 {
		return Bin{}, false
	}
	end, err := strconv.ParseInt(label[dash+1:], 10, 64)
	if err != nil || end <= start {
		return Bin{}, false
	}

	return Bin{Sequence: label[:colon], Start: start, End: end}, true
}

// NoColumn marks a synthetic slot with no observed counterpart in the input.
const NoColumn = -1

// SequenceBins is the reconciled bin index for one reference sequence.
type SequenceBins struct {
	Sequence genome.Sequence

	// Slots maps each synthetic slot (slot i covers bases
	// [i*width, (i+1)*width) in 0-based coordinates) to its source matrix
	// column, or NoColumn when the bin was absent from the input.
	Slots []int

	// HasData reports whether any observed bin mapped onto this sequence.
	// A sequence without data is excluded from aggregation entirely and
	// surfaces downstream as uninitialized arrays, not zeros.
	HasData bool
}

// Index is the reconciled bin index for every sequence of a coordinate
// system, in canonical order.
type Index struct {
	BaseWidth int64
	Sequences []SequenceBins

	// Dropped counts labels excluded because they failed to parse or named
	// a sequence outside the coordinate system. Dropped bins are absent
	// from all outputs; they never abort a run.
	Dropped int
}

// Options controls reconciliation.
type Options struct {
	// BaseWidth is the bin width the input matrix was quantified at.
	BaseWidth int64

	// AddChrPrefix prepends "chr" to each raw label before parsing. Some
	// quantification pipelines emit bare sequence names ("1:1-5000") that
	// are otherwise incompatible with the reference naming.
	AddChrPrefix bool
}

// Reconcile parses raw bin labels, validates them against the coordinate
// system and joins the observed bins onto a synthetic complete index per
// sequence. Labels whose interval does not sit exactly on the base-width
// grid cannot match any synthetic slot and are left unmapped, the same
// outcome as an exact-label join against the synthetic index.
func Reconcile(labels []string, cs *genome.CoordinateSystem, opts Options) (*Index, error) {
	if opts.BaseWidth <= 0 {
		return nil, errors.New("bins: base width must be positive")
	}

	idx := &Index{
		BaseWidth: opts.BaseWidth,
		Sequences: make([]SequenceBins, cs.Len()),
	}

	for i, seq := range cs.Sequences() {
		idx.Sequences[i] = SequenceBins{
			Sequence: seq,
			Slots:    newSlots(slotCount(seq.Length, opts.BaseWidth)),
		}
	}

	order := make(map[string]int, cs.Len())
	for i, seq := range cs.Sequences() {
		order[seq.Name] = i
	}

	for col, raw := range labels {
		label := raw
		if opts.AddChrPrefix {
			label = "chr" + raw
		}

		bin, ok := ParseLabel(label)
		if !ok {
			idx.Dropped++
			continue
		}
		si, ok := order[bin.Sequence]
		if !ok {
			idx.Dropped++
			continue
		}

		sb := &idx.Sequences[si]
		sb.HasData = true

		// Exact-keyed join: the observed label must equal the synthetic
		// label of its candidate slot.
		slot := (bin.Start - 1) / opts.BaseWidth
		if slot < 0 || slot >= int64(len(sb.Slots)) {
			continue
		}
		if bin.Start != slot*opts.BaseWidth+1 || bin.End != (slot+1)*opts.BaseWidth {
			continue
		}
		sb.Slots[slot] = col
	}

	return idx, nil
}

// SyntheticLabel returns the label of synthetic slot i at the given width.
func SyntheticLabel(seq string, slot int, width int64) string {
	start := int64(slot)*width + 1
	return fmt.Sprintf("%s:%d-%d", seq, start, start+width-1)
}

func slotCount(seqLen, width int64) int {
	return int((seqLen + width - 1) / width)
}

func newSlots(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = NoColumn
	}
	return s
}
