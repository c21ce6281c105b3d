// Package input reads the collaborator-supplied build inputs from disk: a
// MatrixMarket cell-by-bin count matrix, barcode and bin-label lists, and a
// per-cell cluster table.
package input

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/multivec-tiles/builder/internal/aggregate"
)

// maxLineBytes bounds a single input line; bin label and barcode lines are
// short, but MatrixMarket comment lines can carry long provenance strings.
const maxLineBytes = 1 << 20

// ReadMatrixMarket reads a MatrixMarket coordinate-format matrix into a
// dense matrix. Duplicate entries for one coordinate accumulate, matching
// sparse-matrix conversion semantics.
func ReadMatrixMarket(path string) (*aggregate.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open matrix: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !sc.Scan() {
		return nil, fmt.Errorf("matrix %s: empty file", path)
	}
	header := sc.Text()
	if !strings.HasPrefix(header, "%%MatrixMarket") {
		return nil, fmt.Errorf("matrix %s: not a MatrixMarket file", path)
	}
	fields := strings.Fields(header)
	if len(fields) < 5 || fields[1] != "matrix" || fields[2] != "coordinate" {
		return nil, fmt.Errorf("matrix %s: unsupported MatrixMarket header %q", path, header)
	}
	if fields[4] != "general" {
		return nil, fmt.Errorf("matrix %s: unsupported symmetry %q", path, fields[4])
	}

	// Skip comment lines up to the size line.
	var sizeLine string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		sizeLine = line
		break
	}
	if sizeLine == "" {
		return nil, fmt.Errorf("matrix %s: missing size line", path)
	}

	sz := strings.Fields(sizeLine)
	if len(sz) != 3 {
		return nil, fmt.Errorf("matrix %s: malformed size line %q", path, sizeLine)
	}
	rows, err := strconv.Atoi(sz[0])
	if err != nil || rows <= 0 {
		return nil, fmt.Errorf("matrix %s: invalid row count %q", path, sz[0])
	}
	cols, err := strconv.Atoi(sz[1])
	if err != nil || cols <= 0 {
		return nil, fmt.Errorf("matrix %s: invalid column count %q", path, sz[1])
	}
	nnz, err := strconv.Atoi(sz[2])
	if err != nil || nnz < 0 {
		return nil, fmt.Errorf("matrix %s: invalid entry count %q", path, sz[2])
	}

	m := aggregate.NewMatrix(rows, cols)
	entries := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 3 {
			return nil, fmt.Errorf("matrix %s: malformed entry %q", path, line)
		}
		r, err := strconv.Atoi(parts[0])
		if err != nil || r < 1 || r > rows {
			return nil, fmt.Errorf("matrix %s: row index %q out of range", path, parts[0])
		}
		c, err := strconv.Atoi(parts[1])
		if err != nil || c < 1 || c > cols {
			return nil, fmt.Errorf("matrix %s: column index %q out of range", path, parts[1])
		}
		v, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("matrix %s: invalid value %q", path, parts[2])
		}
		m.Add(r-1, c-1, v)
		entries++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("matrix %s: %w", path, err)
	}
	if entries != nnz {
		return nil, fmt.Errorf("matrix %s: %d entries, header declared %d", path, entries, nnz)
	}

	return m, nil
}

// ReadLines reads a one-item-per-line list (barcodes, bin labels). Only the
// first whitespace-separated field of each line is kept; blank lines are
// skipped.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields[0])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}

// ReadClusters reads a per-cell cluster table from a CSV file with a header
// row. The first column is the cell identifier; the cluster label comes from
// the column named "cluster" (case-insensitive). Extra columns, such as
// embedding coordinates, are ignored.
func ReadClusters(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cluster table: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("cluster table %s: failed to read header: %w", path, err)
	}
	clusterCol := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "cluster") {
			clusterCol = i
			break
		}
	}
	if clusterCol <= 0 {
		return nil, fmt.Errorf("cluster table %s: no cluster column in header %v", path, header)
	}

	out := make(map[string]string)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cluster table %s: %w", path, err)
		}
		if len(record) <= clusterCol {
			return nil, fmt.Errorf("cluster table %s: short record %v", path, record)
		}
		cell := strings.TrimSpace(record[0])
		label := strings.TrimSpace(record[clusterCol])
		if cell == "" || label == "" {
			continue
		}
		out[cell] = label
	}
	return out, nil
}
