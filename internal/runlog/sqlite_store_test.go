package runlog

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginFinishGet(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Begin("hg38", 5000, "/data/out.multivec.zarr")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	run, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run == nil {
		t.Fatal("Get returned nil for existing run")
	}
	if run.Status != RunStatusRunning {
		t.Errorf("status = %q, want %q", run.Status, RunStatusRunning)
	}
	if run.Assembly != "hg38" || run.BaseResolution != 5000 {
		t.Errorf("run = %+v, want hg38/5000", run)
	}
	if run.FinishedAt != nil {
		t.Error("FinishedAt set before Finish")
	}

	counts := RunCounts{
		NumCells:          1200,
		NumClusters:       8,
		NumBins:           617669,
		DroppedLabels:     42,
		SequencesWithData: 24,
	}
	if err := s.Finish(id, RunStatusCompleted, counts, ""); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	run, err = s.Get(id)
	if err != nil {
		t.Fatalf("Get after Finish: %v", err)
	}
	if run.Status != RunStatusCompleted {
		t.Errorf("status = %q, want %q", run.Status, RunStatusCompleted)
	}
	if run.NumCells != 1200 || run.NumClusters != 8 || run.NumBins != 617669 {
		t.Errorf("counts = %+v, want %+v", run, counts)
	}
	if run.DroppedLabels != 42 || run.SequencesWithData != 24 {
		t.Errorf("counts = %+v, want %+v", run, counts)
	}
	if run.FinishedAt == nil {
		t.Error("FinishedAt not set after Finish")
	}
}

func TestFinishFailedRecordsError(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Begin("hg38", 5000, "/data/out.multivec.zarr")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.Finish(id, RunStatusFailed, RunCounts{}, "matrix shape mismatch"); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	run, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.Status != RunStatusFailed {
		t.Errorf("status = %q, want %q", run.Status, RunStatusFailed)
	}
	if run.Error != "matrix shape mismatch" {
		t.Errorf("error = %q, want %q", run.Error, "matrix shape mismatch")
	}
}

func TestGetMissingRun(t *testing.T) {
	s := newTestStore(t)

	run, err := s.Get(999)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run != nil {
		t.Errorf("Get(999) = %+v, want nil", run)
	}
}

func TestRecentOrdering(t *testing.T) {
	s := newTestStore(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.Begin("hg38", 5000, "/data/out.multivec.zarr")
		if err != nil {
			t.Fatalf("Begin: %v", err)
		}
		ids = append(ids, id)
	}

	runs, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("run order = [%d %d], want [%d %d]", runs[0].ID, runs[1].ID, ids[2], ids[1])
	}
}

func TestMarkRunningAsFailed(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Begin("hg38", 5000, "/data/out.multivec.zarr")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.MarkRunningAsFailed("interrupted by restart"); err != nil {
		t.Fatalf("MarkRunningAsFailed: %v", err)
	}

	run, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.Status != RunStatusFailed {
		t.Errorf("status = %q, want %q", run.Status, RunStatusFailed)
	}
	if run.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
}
