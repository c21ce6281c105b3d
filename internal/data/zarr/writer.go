package zarr

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"
)

// nanBits is the chunk encoding of the uninitialized marker.
var nanBits = math.Float32bits(float32(math.NaN()))

// ArrayOptions controls array chunking and compression.
type ArrayOptions struct {
	// ChunkRows and ChunkCols bound the chunk shape; zero or negative
	// values mean "one chunk covers the whole axis".
	ChunkRows int
	ChunkCols int
	// ZlibLevel is the zlib compression level for chunk data.
	ZlibLevel int
}

// Store is a Zarr v2 directory store being written.
type Store struct {
	base string
}

// Create initializes a store directory with a root group. The directory is
// created if missing; existing keys are overwritten.
func Create(path string) (*Store, error) {
	s := &Store{base: path}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := s.writeJSON(groupMetaKey, GroupMeta{ZarrFormat: Format}); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the store's base directory.
func (s *Store) Path() string { return s.base }

// CreateGroup writes a group marker at the given logical path.
func (s *Store) CreateGroup(path string) error {
	if err := os.MkdirAll(filepath.Join(s.base, filepath.FromSlash(path)), 0755); err != nil {
		return fmt.Errorf("failed to create group %s: %w", path, err)
	}
	return s.writeJSON(path+"/"+groupMetaKey, GroupMeta{ZarrFormat: Format})
}

// WriteAttrs writes an attribute document at the given logical path. An
// empty path targets the store root.
func (s *Store) WriteAttrs(path string, v interface{}) error {
	key := attrsKey
	if path != "" {
		key = path + "/" + attrsKey
	}
	return s.writeJSON(key, v)
}

// CreateArray writes array metadata for a [rows x cols] float32 array with
// NaN fill value and no chunk data. Until chunks are written the array reads
// back fully uninitialized, which is exactly the persisted state of a
// sequence with no input data.
func (s *Store) CreateArray(path string, rows, cols int, opt ArrayOptions) error {
	meta, err := newArrayMeta(rows, cols, opt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.base, filepath.FromSlash(path)), 0755); err != nil {
		return fmt.Errorf("failed to create array %s: %w", path, err)
	}
	return s.writeJSON(path+"/"+arrayMetaKey, meta)
}

// WriteArray writes array metadata and every chunk for a dense
// [clusters x bins] matrix. Chunk overhang past the array shape is padded
// with the fill value so chunk bytes depend only on the data.
func (s *Store) WriteArray(path string, data [][]float64, cols int, opt ArrayOptions) error {
	rows := len(data)
	for i, row := range data {
		if len(row) != cols {
			return fmt.Errorf("array %s: row %d has %d columns, want %d", path, i, len(row), cols)
		}
	}

	if err := s.CreateArray(path, rows, cols, opt); err != nil {
		return err
	}

	meta, err := newArrayMeta(rows, cols, opt)
	if err != nil {
		return err
	}
	chunkRows, chunkCols := meta.Chunks[0], meta.Chunks[1]
	nRowChunks := ceilDiv(rows, chunkRows)
	nColChunks := ceilDiv(cols, chunkCols)

	buf := make([]byte, chunkRows*chunkCols*4)
	for rc := 0; rc < nRowChunks; rc++ {
		for cc := 0; cc < nColChunks; cc++ {
			encodeChunk(buf, data, rows, cols, rc*chunkRows, cc*chunkCols, chunkRows, chunkCols)
			key := fmt.Sprintf("%s/%d.%d", path, rc, cc)
			if err := s.writeCompressed(key, buf, opt.ZlibLevel); err != nil {
				return fmt.Errorf("failed to write chunk %d.%d of %s: %w", rc, cc, path, err)
			}
		}
	}
	return nil
}

func newArrayMeta(rows, cols int, opt ArrayOptions) (*ArrayMeta, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid array shape [%d, %d]", rows, cols)
	}
	chunkRows := opt.ChunkRows
	if chunkRows <= 0 || chunkRows > rows {
		chunkRows = rows
	}
	chunkCols := opt.ChunkCols
	if chunkCols <= 0 || chunkCols > cols {
		chunkCols = cols
	}

	return &ArrayMeta{
		ZarrFormat: Format,
		Shape:      []int{rows, cols},
		Chunks:     []int{chunkRows, chunkCols},
		Dtype:      dtypeF4,
		Compressor: &CompressorMeta{ID: "zlib", Level: opt.ZlibLevel},
		FillValue:  fillNaN,
		Order:      "C",
		Filters:    json.RawMessage("null"),
	}, nil
}

// encodeChunk fills buf with the little-endian float32 C-order encoding of
// one chunk, padding cells outside the array shape with NaN.
func encodeChunk(buf []byte, data [][]float64, rows, cols, rowStart, colStart, chunkRows, chunkCols int) {
	for i := 0; i < chunkRows; i++ {
		r := rowStart + i
		for j := 0; j < chunkCols; j++ {
			c := colStart + j
			bits := nanBits
			if r < rows && c < cols {
				bits = math.Float32bits(float32(data[r][c]))
			}
			off := (i*chunkCols + j) * 4
			buf[off] = byte(bits)
			buf[off+1] = byte(bits >> 8)
			buf[off+2] = byte(bits >> 16)
			buf[off+3] = byte(bits >> 24)
		}
	}
}

func (s *Store) writeJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.writeFile(key, data)
}

func (s *Store) writeCompressed(key string, data []byte, level int) error {
	path := filepath.Join(s.base, filepath.FromSlash(key))
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	zw, err := zlib.NewWriterLevel(f, level)
	if err != nil {
		f.Close()
		return err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) writeFile(key string, data []byte) error {
	path := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
