// Package main prints a summary of a multivec store: root attributes and the
// per-sequence array shapes at every resolution.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/multivec-tiles/builder/internal/cache"
	"github.com/multivec-tiles/builder/internal/data/zarr"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <store-path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	storePath := flag.Arg(0)

	cacheManager, err := cache.NewManager(cache.Config{
		ChunkCacheSizeMB: 16,
		ChunkTTL:         time.Minute,
		MetaCacheSize:    256,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	reader, err := zarr.NewReader(storePath, cacheManager)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	attrs := reader.Attrs()
	fmt.Printf("Store:        %s\n", storePath)
	fmt.Printf("Name:         %s\n", attrs.Name)
	fmt.Printf("Coord system: %s\n", attrs.CoordSystem)
	fmt.Printf("Shape:        %v\n", attrs.Shape)
	fmt.Printf("Resolutions:  %v\n", attrs.Resolutions)
	fmt.Printf("Clusters:     %d\n", len(attrs.RowInfos))
	for _, ri := range attrs.RowInfos {
		fmt.Printf("  cluster %s\n", ri.Cluster)
	}

	if len(attrs.Multiscales) == 0 {
		log.Fatalf("Store has no multiscale metadata")
	}

	fmt.Printf("Sequences:    %d\n", len(attrs.Multiscales))
	for _, ms := range attrs.Multiscales {
		fmt.Printf("  %s (offset=%d size=%d)\n", ms.Name, ms.Metadata.Chromoffset, ms.Metadata.Chromsize)
		for _, res := range attrs.Resolutions {
			arrayPath := zarr.ArrayPath(ms.Name, res)
			meta, err := reader.ArrayMeta(arrayPath)
			if err != nil {
				log.Fatalf("Failed to read %s: %v", arrayPath, err)
			}
			fmt.Printf("    %-12d shape=%v chunks=%v\n", res, meta.Shape, meta.Chunks)
		}
	}
}
