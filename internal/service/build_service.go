// Package service provides the conversion pipeline turning cell-by-bin
// count matrices into persisted multi-resolution signal stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/multivec-tiles/builder/internal/aggregate"
	"github.com/multivec-tiles/builder/internal/bins"
	"github.com/multivec-tiles/builder/internal/data/zarr"
	"github.com/multivec-tiles/builder/internal/genome"
	"github.com/multivec-tiles/builder/internal/pyramid"
)

// BuildConfig contains build pipeline configuration.
type BuildConfig struct {
	Coords         *genome.CoordinateSystem
	BaseResolution int64
	Levels         int
	AddChrPrefix   bool
	ChunkColumns   int
	ZlibLevel      int
	TileSize       int
	Name           string
	Workers        int
}

// BuildInputs are the collaborator-supplied inputs: the dense count matrix
// (rows = cells in barcode order, columns = bins in label order), the
// barcode and bin-label lists, and the per-cell cluster table. All inputs
// are treated as immutable for the duration of a build.
type BuildInputs struct {
	Matrix        *aggregate.Matrix
	Barcodes      []string
	BinLabels     []string
	ClusterByCell map[string]string
}

// BuildResult summarizes a completed build.
type BuildResult struct {
	Sequences         int
	SequencesWithData int
	Clusters          int
	DroppedLabels     int
	Resolutions       []int64 // descending, as written to the store
}

// BuildService converts inputs into a multivec store.
type BuildService struct {
	cfg BuildConfig
}

// NewBuildService creates a build service, applying defaults for unset
// tuning fields.
func NewBuildService(cfg BuildConfig) *BuildService {
	if cfg.Levels <= 0 {
		cfg.Levels = 16
	}
	if cfg.TileSize <= 0 {
		cfg.TileSize = 256
	}
	if cfg.ZlibLevel == 0 {
		cfg.ZlibLevel = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Name == "" {
		cfg.Name = "multivec"
	}
	return &BuildService{cfg: cfg}
}

// Build runs the full pipeline and publishes the store at outPath. The
// store is assembled in a staging directory next to the output and renamed
// into place only after every sequence has been written; on failure the
// staging directory is removed and any previous store at outPath is left
// untouched.
func (s *BuildService) Build(ctx context.Context, in BuildInputs, outPath string) (*BuildResult, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	idx, err := bins.Reconcile(in.BinLabels, s.cfg.Coords, bins.Options{
		BaseWidth:    s.cfg.BaseResolution,
		AddChrPrefix: s.cfg.AddChrPrefix,
	})
	if err != nil {
		return nil, err
	}

	asg := aggregate.NewAssignment(in.Barcodes, in.ClusterByCell)
	if asg.NumClusters() == 0 {
		return nil, errors.New("build: cluster table assigns no clusters")
	}

	staging := outPath + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("failed to clear staging directory: %w", err)
	}

	result, err := s.writeStore(ctx, staging, in, idx, asg)
	if err != nil {
		os.RemoveAll(staging)
		return nil, err
	}

	// Publish atomically: readers only ever see a complete store.
	if err := os.RemoveAll(outPath); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("failed to replace existing store: %w", err)
	}
	if err := os.Rename(staging, outPath); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("failed to publish store: %w", err)
	}

	return result, nil
}

func (s *BuildService) validate(in BuildInputs) error {
	if s.cfg.Coords == nil {
		return errors.New("build: no coordinate system")
	}
	if s.cfg.BaseResolution <= 0 {
		return fmt.Errorf("build: base resolution must be positive, got %d", s.cfg.BaseResolution)
	}
	if in.Matrix == nil {
		return errors.New("build: no count matrix")
	}
	if in.Matrix.Rows != len(in.Barcodes) {
		return fmt.Errorf("build: matrix has %d rows but %d barcodes", in.Matrix.Rows, len(in.Barcodes))
	}
	if in.Matrix.Cols != len(in.BinLabels) {
		return fmt.Errorf("build: matrix has %d columns but %d bin labels", in.Matrix.Cols, len(in.BinLabels))
	}
	return nil
}

func (s *BuildService) writeStore(ctx context.Context, staging string, in BuildInputs, idx *bins.Index, asg *aggregate.Assignment) (*BuildResult, error) {
	store, err := zarr.Create(staging)
	if err != nil {
		return nil, err
	}
	if err := store.CreateGroup("chromosomes"); err != nil {
		return nil, err
	}

	withData := 0

	// Sequence builds are independent: each worker reads the shared
	// immutable inputs and writes only its own sequence's arrays. The
	// root attributes are written after the join below.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range idx.Sequences {
		sb := &idx.Sequences[i]
		if sb.HasData {
			withData++
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.writeSequence(store, sb, in.Matrix, asg)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolutions := descending(pyramid.Resolutions(s.cfg.BaseResolution, s.cfg.Levels))
	if err := store.WriteAttrs("", s.storeAttrs(asg, resolutions)); err != nil {
		return nil, err
	}

	return &BuildResult{
		Sequences:         s.cfg.Coords.Len(),
		SequencesWithData: withData,
		Clusters:          asg.NumClusters(),
		DroppedLabels:     idx.Dropped,
		Resolutions:       resolutions,
	}, nil
}

// writeSequence builds and persists the full resolution stack of one
// sequence. Sequences without retained bins get metadata-only arrays that
// read back as the uninitialized marker at every resolution.
func (s *BuildService) writeSequence(store *zarr.Store, sb *bins.SequenceBins, m *aggregate.Matrix, asg *aggregate.Assignment) error {
	seq := sb.Sequence
	if err := store.CreateGroup("chromosomes/" + seq.Name); err != nil {
		return err
	}

	opt := zarr.ArrayOptions{ChunkCols: s.cfg.ChunkColumns, ZlibLevel: s.cfg.ZlibLevel}

	if !sb.HasData {
		p, err := pyramid.Empty(seq.Length, s.cfg.BaseResolution, s.cfg.Levels)
		if err != nil {
			return err
		}
		for _, level := range p.Levels {
			path := zarr.ArrayPath(seq.Name, level.Resolution)
			if err := store.CreateArray(path, asg.NumClusters(), level.Width, opt); err != nil {
				return err
			}
		}
		return nil
	}

	profiles, err := aggregate.BySequence(m, asg, sb.Slots)
	if err != nil {
		return fmt.Errorf("sequence %s: %w", seq.Name, err)
	}
	p, err := pyramid.Build(profiles, seq.Length, s.cfg.BaseResolution, s.cfg.Levels)
	if err != nil {
		return fmt.Errorf("sequence %s: %w", seq.Name, err)
	}

	for _, level := range p.Levels {
		path := zarr.ArrayPath(seq.Name, level.Resolution)
		if err := store.WriteArray(path, level.Rows, level.Width, opt); err != nil {
			return err
		}
	}
	return nil
}

func (s *BuildService) storeAttrs(asg *aggregate.Assignment, resolutions []int64) *zarr.StoreAttrs {
	labels := asg.Labels()
	rowInfos := make([]zarr.RowInfo, len(labels))
	for i, l := range labels {
		rowInfos[i] = zarr.RowInfo{Cluster: l}
	}

	seqs := s.cfg.Coords.Sequences()
	multiscales := make([]zarr.Multiscale, len(seqs))
	for i, seq := range seqs {
		datasets := make([]zarr.MultiscaleDataset, len(resolutions))
		for j, res := range resolutions {
			datasets[j] = zarr.MultiscaleDataset{Path: zarr.ArrayPath(seq.Name, res)}
		}
		multiscales[i] = zarr.Multiscale{
			Version:  zarr.MultiscaleVersion,
			Name:     seq.Name,
			Datasets: datasets,
			Type:     zarr.MultiscaleType,
			Metadata: zarr.MultiscaleMetadata{Chromoffset: seq.Offset, Chromsize: seq.Length},
		}
	}

	return &zarr.StoreAttrs{
		RowInfos:    rowInfos,
		Resolutions: resolutions,
		Shape:       []int{len(labels), s.cfg.TileSize},
		Name:        s.cfg.Name,
		CoordSystem: s.cfg.Coords.Assembly(),
		Multiscales: multiscales,
	}
}

func descending(resolutions []int64) []int64 {
	out := make([]int64, len(resolutions))
	for i, r := range resolutions {
		out[len(resolutions)-1-i] = r
	}
	return out
}
