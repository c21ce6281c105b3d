package zarr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"

	"github.com/multivec-tiles/builder/internal/cache"
)

// Reader provides access to a written multivec store.
type Reader struct {
	basePath string
	attrs    *StoreAttrs
	cache    *cache.Manager // optional
}

// NewReader opens a store directory and loads the root attributes. The cache
// manager is optional; pass nil for uncached reads.
func NewReader(basePath string, c *cache.Manager) (*Reader, error) {
	r := &Reader{basePath: basePath, cache: c}

	groupData, err := os.ReadFile(filepath.Join(basePath, groupMetaKey))
	if err != nil {
		return nil, fmt.Errorf("failed to read store group metadata: %w", err)
	}
	var group GroupMeta
	if err := json.Unmarshal(groupData, &group); err != nil {
		return nil, fmt.Errorf("failed to parse store group metadata: %w", err)
	}
	if group.ZarrFormat != Format {
		return nil, fmt.Errorf("unsupported zarr format: %d", group.ZarrFormat)
	}

	attrsData, err := os.ReadFile(filepath.Join(basePath, attrsKey))
	if err != nil {
		return nil, fmt.Errorf("failed to read store attributes: %w", err)
	}
	var attrs StoreAttrs
	if err := json.Unmarshal(attrsData, &attrs); err != nil {
		return nil, fmt.Errorf("failed to parse store attributes: %w", err)
	}
	r.attrs = &attrs

	return r, nil
}

// Attrs returns the root attribute document.
func (r *Reader) Attrs() *StoreAttrs { return r.attrs }

// ArrayPath returns the logical path of one (sequence, resolution) array.
func ArrayPath(sequence string, resolution int64) string {
	return fmt.Sprintf("chromosomes/%s/%d", sequence, resolution)
}

// ArrayMeta loads the metadata document of an array.
func (r *Reader) ArrayMeta(arrayPath string) (*ArrayMeta, error) {
	var data []byte
	metaKey := cache.MetaKey(r.basePath, arrayPath)
	if r.cache != nil {
		if cached, ok := r.cache.GetMeta(metaKey); ok {
			data = cached
		}
	}
	if data == nil {
		var err error
		data, err = os.ReadFile(filepath.Join(r.basePath, filepath.FromSlash(arrayPath), arrayMetaKey))
		if err != nil {
			return nil, fmt.Errorf("failed to read array metadata for %s: %w", arrayPath, err)
		}
		if r.cache != nil {
			r.cache.SetMeta(metaKey, data)
		}
	}

	var meta ArrayMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse array metadata for %s: %w", arrayPath, err)
	}
	if len(meta.Shape) != 2 || len(meta.Chunks) != 2 {
		return nil, fmt.Errorf("unexpected array dimensionality for %s: shape %v chunks %v", arrayPath, meta.Shape, meta.Chunks)
	}
	if meta.Dtype != dtypeF4 {
		return nil, fmt.Errorf("unsupported dtype for %s: %s", arrayPath, meta.Dtype)
	}
	if meta.Chunks[0] <= 0 || meta.Chunks[1] <= 0 {
		return nil, fmt.Errorf("invalid chunk shape for %s: %v", arrayPath, meta.Chunks)
	}
	return &meta, nil
}

// ReadMatrix reads an entire array as float64 rows. Uninitialized regions
// come back NaN.
func (r *Reader) ReadMatrix(arrayPath string) ([][]float64, error) {
	meta, err := r.ArrayMeta(arrayPath)
	if err != nil {
		return nil, err
	}

	rows, cols := meta.Shape[0], meta.Shape[1]
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}

	chunkRows, chunkCols := meta.Chunks[0], meta.Chunks[1]
	nRowChunks := ceilDiv(rows, chunkRows)
	nColChunks := ceilDiv(cols, chunkCols)

	for rc := 0; rc < nRowChunks; rc++ {
		for cc := 0; cc < nColChunks; cc++ {
			chunk, err := r.readChunkAt(arrayPath, meta, rc, cc)
			if err != nil {
				return nil, err
			}
			rowStart := rc * chunkRows
			colStart := cc * chunkCols
			for i := 0; i < chunkRows && rowStart+i < rows; i++ {
				for j := 0; j < chunkCols && colStart+j < cols; j++ {
					off := (i*chunkCols + j) * 4
					bits := uint32(chunk[off]) |
						uint32(chunk[off+1])<<8 |
						uint32(chunk[off+2])<<16 |
						uint32(chunk[off+3])<<24
					out[rowStart+i][colStart+j] = float64(math.Float32frombits(bits))
				}
			}
		}
	}
	return out, nil
}

// ReadRow reads one cluster row of an array.
func (r *Reader) ReadRow(arrayPath string, row int) ([]float64, error) {
	meta, err := r.ArrayMeta(arrayPath)
	if err != nil {
		return nil, err
	}
	rows, cols := meta.Shape[0], meta.Shape[1]
	if row < 0 || row >= rows {
		return nil, fmt.Errorf("row %d out of range for %s (rows=%d)", row, arrayPath, rows)
	}

	chunkRows, chunkCols := meta.Chunks[0], meta.Chunks[1]
	rc := row / chunkRows
	i := row % chunkRows
	nColChunks := ceilDiv(cols, chunkCols)

	out := make([]float64, cols)
	for cc := 0; cc < nColChunks; cc++ {
		chunk, err := r.readChunkAt(arrayPath, meta, rc, cc)
		if err != nil {
			return nil, err
		}
		colStart := cc * chunkCols
		for j := 0; j < chunkCols && colStart+j < cols; j++ {
			off := (i*chunkCols + j) * 4
			bits := uint32(chunk[off]) |
				uint32(chunk[off+1])<<8 |
				uint32(chunk[off+2])<<16 |
				uint32(chunk[off+3])<<24
			out[colStart+j] = float64(math.Float32frombits(bits))
		}
	}
	return out, nil
}

// readChunkAt returns the decompressed bytes of one chunk. A chunk missing
// from disk is an all-fill-value chunk and materializes as NaN.
func (r *Reader) readChunkAt(arrayPath string, meta *ArrayMeta, rc, cc int) ([]byte, error) {
	key := fmt.Sprintf("%d.%d", rc, cc)
	cacheKey := cache.ChunkKey(r.basePath, arrayPath, key)
	if r.cache != nil {
		if data, ok := r.cache.GetChunk(cacheKey); ok {
			return data, nil
		}
	}

	elements := meta.Chunks[0] * meta.Chunks[1]
	chunkPath := filepath.Join(r.basePath, filepath.FromSlash(arrayPath), key)

	compressed, err := os.ReadFile(chunkPath)
	if os.IsNotExist(err) {
		return fillChunk(elements), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %s of %s: %w", key, arrayPath, err)
	}

	data, err := decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress chunk %s of %s: %w", key, arrayPath, err)
	}
	if len(data) < elements*4 {
		return nil, fmt.Errorf("chunk %s of %s too short: got %d bytes, expected %d", key, arrayPath, len(data), elements*4)
	}

	if r.cache != nil {
		r.cache.SetChunk(cacheKey, data)
	}
	return data, nil
}

func decompress(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// fillChunk returns the encoding of an all-NaN chunk.
func fillChunk(elements int) []byte {
	buf := make([]byte, elements*4)
	for i := 0; i < elements; i++ {
		off := i * 4
		buf[off] = byte(nanBits)
		buf[off+1] = byte(nanBits >> 8)
		buf[off+2] = byte(nanBits >> 16)
		buf[off+3] = byte(nanBits >> 24)
	}
	return buf
}
