// Package zarr implements a Zarr v2 directory store for multi-resolution
// genomic signal arrays, plus a reader for the same layout.
//
// The on-disk contract is what genome-browser tile servers consume: a group
// hierarchy chromosomes/<sequence>/<resolution> of 2-D float32 arrays
// (clusters x bins), C-order little-endian chunks compressed with zlib, and
// root attributes describing cluster row order, the resolution list and
// per-sequence genome offsets. Arrays for sequences without input data carry
// metadata only; their missing chunks materialize as the NaN fill value,
// which is how "no data" stays distinct from "measured zero".
package zarr

import "encoding/json"

const (
	// Format is the Zarr storage specification version written and read.
	Format = 2

	arrayMetaKey = ".zarray"
	groupMetaKey = ".zgroup"
	attrsKey     = ".zattrs"

	// dtypeF4 is little-endian float32 in NumPy typestr notation.
	dtypeF4 = "<f4"

	// fillNaN is the JSON encoding of an IEEE NaN fill value.
	fillNaN = "NaN"
)

// GroupMeta is the Zarr v2 .zgroup document.
type GroupMeta struct {
	ZarrFormat int `json:"zarr_format"`
}

// CompressorMeta identifies the chunk compression codec.
type CompressorMeta struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

// ArrayMeta is the Zarr v2 .zarray document.
type ArrayMeta struct {
	ZarrFormat int             `json:"zarr_format"`
	Shape      []int           `json:"shape"`
	Chunks     []int           `json:"chunks"`
	Dtype      string          `json:"dtype"`
	Compressor *CompressorMeta `json:"compressor"`
	FillValue  interface{}     `json:"fill_value"`
	Order      string          `json:"order"`
	Filters    json.RawMessage `json:"filters"`
}

// RowInfo labels one cluster row of every array.
type RowInfo struct {
	Cluster string `json:"cluster"`
}

// MultiscaleDataset points at one resolution array of a sequence.
type MultiscaleDataset struct {
	Path string `json:"path"`
}

// MultiscaleMetadata carries the genome placement of a sequence.
type MultiscaleMetadata struct {
	// Chromoffset is the sequence's cumulative offset in the linear
	// genome coordinate, taken from the reference table.
	Chromoffset int64 `json:"chromoffset"`
	Chromsize   int64 `json:"chromsize"`
}

// Multiscale describes the resolution stack of one sequence, resolution
// paths in descending order.
type Multiscale struct {
	Version  string              `json:"version"`
	Name     string              `json:"name"`
	Datasets []MultiscaleDataset `json:"datasets"`
	Type     string              `json:"type"`
	Metadata MultiscaleMetadata  `json:"metadata"`
}

// StoreAttrs is the root attribute document, the contract a tile server
// uses to map genome-coordinate queries to array slices. It is marshaled
// from this struct (never a map) so attribute bytes are identical across
// runs on identical inputs.
type StoreAttrs struct {
	RowInfos    []RowInfo    `json:"row_infos"`
	Resolutions []int64      `json:"resolutions"`
	Shape       []int        `json:"shape"`
	Name        string       `json:"name"`
	CoordSystem string       `json:"coordSystem"`
	Multiscales []Multiscale `json:"multiscales"`
}

// MultiscaleVersion and MultiscaleType identify the multivec flavor of the
// multiscales attribute.
const (
	MultiscaleVersion = "0.1"
	MultiscaleType    = "zarr-multivec"
)
