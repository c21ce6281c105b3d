package genome

import (
	"errors"
	"testing"
)

func TestForAssemblyHg38(t *testing.T) {
	cs, err := ForAssembly("hg38")
	if err != nil {
		t.Fatalf("ForAssembly(hg38) failed: %v", err)
	}

	if cs.Len() != 25 {
		t.Errorf("expected 25 sequences, got %d", cs.Len())
	}

	seqs := cs.Sequences()
	if seqs[0].Name != "chr1" || seqs[0].Length != 248956422 {
		t.Errorf("unexpected first sequence: %+v", seqs[0])
	}
	if seqs[24].Name != "chrM" || seqs[24].Length != 16569 {
		t.Errorf("unexpected last sequence: %+v", seqs[24])
	}

	// chr1 starts the linear coordinate; chr2 starts right after chr1.
	if seqs[0].Offset != 0 {
		t.Errorf("chr1 offset should be 0, got %d", seqs[0].Offset)
	}
	if seqs[1].Offset != 248956422 {
		t.Errorf("chr2 offset should be 248956422, got %d", seqs[1].Offset)
	}

	// Offsets must be strictly increasing.
	for i := 1; i < len(seqs); i++ {
		if seqs[i].Offset <= seqs[i-1].Offset {
			t.Errorf("offset not increasing at %s: %d <= %d", seqs[i].Name, seqs[i].Offset, seqs[i-1].Offset)
		}
	}

	if cs.TotalLength() != seqs[24].Offset+seqs[24].Length {
		t.Errorf("unexpected total length: %d", cs.TotalLength())
	}
}

func TestForAssemblyGRCh38Alias(t *testing.T) {
	a, err := ForAssembly("hg38")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ForAssembly("GRCh38")
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != b.Len() || a.Assembly() != b.Assembly() {
		t.Errorf("GRCh38 should alias hg38")
	}
}

func TestForAssemblyUnknown(t *testing.T) {
	_, err := ForAssembly("mm10")
	if err == nil {
		t.Fatal("expected error for unknown assembly")
	}
	if !errors.Is(err, ErrUnknownAssembly) {
		t.Errorf("expected ErrUnknownAssembly, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	cs, err := ForAssembly("hg38")
	if err != nil {
		t.Fatal(err)
	}

	seq, ok := cs.Lookup("chrX")
	if !ok {
		t.Fatal("chrX should be present")
	}
	if seq.Length != 156040895 {
		t.Errorf("unexpected chrX length: %d", seq.Length)
	}

	if _, ok := cs.Lookup("chr1_KI270706v1_random"); ok {
		t.Error("non-primary sequences should not be present")
	}
}

func TestNewComputesOffsets(t *testing.T) {
	cs := New("toy", []Sequence{
		{Name: "s1", Length: 10},
		{Name: "s2", Length: 7},
		{Name: "s3", Length: 3},
	})

	want := []int64{0, 10, 17}
	for i, s := range cs.Sequences() {
		if s.Offset != want[i] {
			t.Errorf("sequence %s: offset %d, want %d", s.Name, s.Offset, want[i])
		}
	}
	if cs.TotalLength() != 20 {
		t.Errorf("total length %d, want 20", cs.TotalLength())
	}
}
