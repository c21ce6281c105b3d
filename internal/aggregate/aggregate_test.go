package aggregate

import (
	"testing"

	"github.com/multivec-tiles/builder/internal/bins"
)

func TestAssignmentOrdering(t *testing.T) {
	barcodes := []string{"A", "B", "C", "D"}
	clusters := map[string]string{
		"A": "10",
		"B": "2",
		"C": "2",
		"D": "1",
	}

	a := NewAssignment(barcodes, clusters)

	want := []string{"1", "2", "10"}
	got := a.Labels()
	if len(got) != len(want) {
		t.Fatalf("labels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("labels = %v, want %v (integer order, not lexicographic)", got, want)
		}
	}

	if rows := a.Rows("2"); len(rows) != 2 || rows[0] != 1 || rows[1] != 2 {
		t.Errorf("cluster 2 rows = %v, want [1 2]", rows)
	}
}

func TestAssignmentNonNumericLabels(t *testing.T) {
	barcodes := []string{"A", "B"}
	clusters := map[string]string{"A": "beta", "B": "alpha"}

	a := NewAssignment(barcodes, clusters)
	got := a.Labels()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Errorf("labels = %v, want [alpha beta]", got)
	}
}

func TestAssignmentSkipsUnlistedCells(t *testing.T) {
	barcodes := []string{"A", "B"}
	clusters := map[string]string{"A": "1", "Z": "1"}

	a := NewAssignment(barcodes, clusters)
	if rows := a.Rows("1"); len(rows) != 1 || rows[0] != 0 {
		t.Errorf("cluster 1 rows = %v, want [0]", rows)
	}
}

func TestProfileSumsMemberRows(t *testing.T) {
	// 3 cells x 2 bins.
	m := NewMatrix(3, 2)
	m.Set(0, 0, 1) // cell A
	m.Set(1, 0, 2) // cell B
	m.Set(2, 1, 3) // cell C

	slots := []int{0, bins.NoColumn, 1}

	got := Profile(m, []int{0, 1}, slots)
	want := []float64{3, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("profile[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBySequenceMatchesSpecExample(t *testing.T) {
	// Two clusters {c1: A,B} {c2: C}; bin 0 has A=1,B=2,C=0; bin 1 absent;
	// bin 2 has C=3 (stored as matrix column 1).
	m := NewMatrix(3, 2)
	m.Set(0, 0, 1)
	m.Set(1, 0, 2)
	m.Set(2, 1, 3)

	a := NewAssignment([]string{"A", "B", "C"}, map[string]string{"A": "1", "B": "1", "C": "2"})
	slots := []int{0, bins.NoColumn, 1}

	got, err := BySequence(m, a, slots)
	if err != nil {
		t.Fatal(err)
	}

	want := [][]float64{
		{3, 0, 0},
		{0, 0, 3},
	}
	for r := range want {
		for c := range want[r] {
			if got[r][c] != want[r][c] {
				t.Errorf("got[%d][%d] = %v, want %v", r, c, got[r][c], want[r][c])
			}
		}
	}
}

func TestBySequenceOrderInvariance(t *testing.T) {
	m := NewMatrix(4, 3)
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	for r := 0; r < 4; r++ {
		for c := 0; c < 3; c++ {
			m.Set(r, c, vals[r*3+c])
		}
	}
	slots := []int{0, 1, 2}

	a1 := NewAssignment([]string{"w", "x", "y", "z"}, map[string]string{"w": "1", "x": "2", "y": "1", "z": "2"})
	// Same membership, different map construction order.
	a2 := NewAssignment([]string{"w", "x", "y", "z"}, map[string]string{"z": "2", "y": "1", "x": "2", "w": "1"})

	p1, err := BySequence(m, a1, slots)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := BySequence(m, a2, slots)
	if err != nil {
		t.Fatal(err)
	}

	for r := range p1 {
		for c := range p1[r] {
			if p1[r][c] != p2[r][c] {
				t.Errorf("profiles differ at [%d][%d]: %v != %v", r, c, p1[r][c], p2[r][c])
			}
		}
	}
}

func TestBySequenceEmptyCluster(t *testing.T) {
	m := NewMatrix(1, 1)
	m.Set(0, 0, 5)

	// Cell B is in the cluster table but not in the barcode list, so
	// cluster 2 keeps no rows and its profile stays all zero.
	a := NewAssignment([]string{"A"}, map[string]string{"A": "1", "B": "2"})
	if a.NumClusters() != 2 {
		t.Fatalf("expected 2 clusters, got %d", a.NumClusters())
	}

	got, err := BySequence(m, a, []int{0})
	if err != nil {
		t.Fatal(err)
	}
	if got[0][0] != 5 {
		t.Errorf("cluster 1 profile = %v, want 5", got[0][0])
	}
	if got[1][0] != 0 {
		t.Errorf("cluster 2 profile = %v, want 0", got[1][0])
	}
}

func TestBySequenceRejectsBadSlot(t *testing.T) {
	m := NewMatrix(1, 1)
	a := NewAssignment([]string{"A"}, map[string]string{"A": "1"})
	if _, err := BySequence(m, a, []int{7}); err == nil {
		t.Error("expected error for out-of-range slot column")
	}
}
