// Package main is the entry point for the multivec store builder.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/multivec-tiles/builder/internal/config"
	"github.com/multivec-tiles/builder/internal/genome"
	"github.com/multivec-tiles/builder/internal/input"
	"github.com/multivec-tiles/builder/internal/runlog"
	"github.com/multivec-tiles/builder/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/builder.yaml", "Path to configuration file")
	matrixPath := flag.String("matrix", "", "Path to MatrixMarket cell-by-bin count matrix")
	barcodesPath := flag.String("barcodes", "", "Path to barcode list (one per line)")
	binsPath := flag.String("bins", "", "Path to bin label list (one per line)")
	clustersPath := flag.String("clusters", "", "Path to per-cell cluster CSV")
	outPath := flag.String("out", "", "Output store path")
	flag.Parse()

	if *matrixPath == "" || *barcodesPath == "" || *binsPath == "" || *clustersPath == "" || *outPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	coords, err := genome.ForAssembly(cfg.Genome.Assembly)
	if err != nil {
		log.Fatalf("Failed to resolve assembly %q: %v", cfg.Genome.Assembly, err)
	}

	log.Printf("Loading inputs: matrix=%s barcodes=%s bins=%s clusters=%s",
		*matrixPath, *barcodesPath, *binsPath, *clustersPath)

	matrix, err := input.ReadMatrixMarket(*matrixPath)
	if err != nil {
		log.Fatalf("Failed to load matrix: %v", err)
	}
	barcodes, err := input.ReadLines(*barcodesPath)
	if err != nil {
		log.Fatalf("Failed to load barcodes: %v", err)
	}
	binLabels, err := input.ReadLines(*binsPath)
	if err != nil {
		log.Fatalf("Failed to load bin labels: %v", err)
	}
	clusters, err := input.ReadClusters(*clustersPath)
	if err != nil {
		log.Fatalf("Failed to load cluster table: %v", err)
	}

	log.Printf("Inputs: %d cells x %d bins, %d barcodes, %d clustered cells",
		matrix.Rows, matrix.Cols, len(barcodes), len(clusters))

	// Optional run log (SQLite persistence)
	var runs *runlog.Store
	var runID int64
	if cfg.Runlog.Path != "" {
		runs, err = runlog.NewStore(cfg.Runlog.Path)
		if err != nil {
			log.Fatalf("Failed to open run log: %v", err)
		}
		defer runs.Close()

		runID, err = runs.Begin(cfg.Genome.Assembly, cfg.Genome.BaseResolution, *outPath)
		if err != nil {
			log.Fatalf("Failed to record run: %v", err)
		}
	}

	svc := service.NewBuildService(service.BuildConfig{
		Coords:         coords,
		BaseResolution: cfg.Genome.BaseResolution,
		Levels:         cfg.Genome.Levels,
		AddChrPrefix:   cfg.Genome.AddChrPrefix == nil || *cfg.Genome.AddChrPrefix,
		ChunkColumns:   cfg.Store.ChunkColumns,
		ZlibLevel:      cfg.Store.ZlibLevel,
		TileSize:       cfg.Store.TileSize,
		Name:           cfg.Store.Name,
		Workers:        cfg.Build.Workers,
	})

	// Cancel the build on interrupt so a half-written staging dir is cleaned up.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := svc.Build(ctx, service.BuildInputs{
		Matrix:        matrix,
		Barcodes:      barcodes,
		BinLabels:     binLabels,
		ClusterByCell: clusters,
	}, *outPath)
	if err != nil {
		if runs != nil {
			if logErr := runs.Finish(runID, runlog.RunStatusFailed, runlog.RunCounts{}, err.Error()); logErr != nil {
				log.Printf("Failed to record run failure: %v", logErr)
			}
		}
		log.Fatalf("Build failed: %v", err)
	}

	if runs != nil {
		counts := runlog.RunCounts{
			NumCells:          matrix.Rows,
			NumClusters:       result.Clusters,
			NumBins:           matrix.Cols,
			DroppedLabels:     result.DroppedLabels,
			SequencesWithData: result.SequencesWithData,
		}
		if err := runs.Finish(runID, runlog.RunStatusCompleted, counts, ""); err != nil {
			log.Printf("Failed to record run completion: %v", err)
		}
	}

	log.Printf("Build complete: %s", *outPath)
	log.Printf("  Sequences: %d (%d with data), clusters: %d, dropped labels: %d",
		result.Sequences, result.SequencesWithData, result.Clusters, result.DroppedLabels)
	log.Printf("  Resolutions: %v", result.Resolutions)
}
