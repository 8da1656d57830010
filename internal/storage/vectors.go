package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// Vector artifact format constants.
const (
	vectorMagic   = "CQVX"
	vectorVersion = uint32(1)
)

// Flat-store errors
var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrBadArtifact       = errors.New("malformed vector artifact")
)

// Hit is one nearest-neighbor result: the vector's sequence id and its
// squared L2 distance from the query.
type Hit struct {
	ID       int64
	Distance float64
}

// FlatIndex is an exact nearest-neighbor store. Vectors are held in one
// contiguous slice; a vector's id is its insertion position. The zero count
// index is usable immediately after NewFlatIndex.
//
// FlatIndex is not safe for concurrent mutation. The indexer's single
// writer appends; published snapshots are read-only, so concurrent searches
// need no locking.
type FlatIndex struct {
	dim  int
	data []float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dim)
	}
	return &FlatIndex{dim: dim}, nil
}

// Add appends a vector and returns its sequence id: ids start at 0 and
// increase by one per append, never reused.
func (f *FlatIndex) Add(vec []float32) (int64, error) {
	if len(vec) != f.dim {
		return 0, fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, f.dim, len(vec))
	}
	id := int64(f.Count())
	f.data = append(f.data, vec...)
	return id, nil
}

// Count returns the number of stored vectors.
func (f *FlatIndex) Count() int {
	return len(f.data) / f.dim
}

// Dimension returns the vector dimension.
func (f *FlatIndex) Dimension() int {
	return f.dim
}

// Search returns the k nearest vectors by squared L2 distance, ascending.
// Ties break by insertion order. A k larger than the store returns every
// entry exactly once; an empty store returns an empty list.
func (f *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, f.dim, len(query))
	}
	count := f.Count()
	if k <= 0 || count == 0 {
		return []Hit{}, nil
	}
	if k > count {
		k = count
	}

	hits := make([]Hit, count)
	for i := 0; i < count; i++ {
		row := f.data[i*f.dim : (i+1)*f.dim]
		var dist float64
		for j, q := range query {
			d := float64(q) - float64(row[j])
			dist += d * d
		}
		hits[i] = Hit{ID: int64(i), Distance: dist}
	}

	// Stable sort keeps insertion order among equal distances.
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})
	return hits[:k], nil
}

// WriteFile serializes the full vector set as one artifact.
func (f *FlatIndex) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector artifact: %w", err)
	}
	defer func() { _ = file.Close() }()

	w := bufio.NewWriter(file)
	if _, err := w.WriteString(vectorMagic); err != nil {
		return err
	}
	header := []uint32{vectorVersion, uint32(f.dim)}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(f.Count())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, f.data); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// ReadFlatIndex deserializes a vector artifact written by WriteFile.
func ReadFlatIndex(path string) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	r := bufio.NewReader(file)
	magic := make([]byte, len(vectorMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrBadArtifact)
	}
	if string(magic) != vectorMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadArtifact, magic)
	}

	var version, dim uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	if version != vectorVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadArtifact, version)
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}

	idx, err := NewFlatIndex(int(dim))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	idx.data = make([]float32, int(count)*int(dim))
	if err := binary.Read(r, binary.LittleEndian, idx.data); err != nil {
		return nil, fmt.Errorf("%w: truncated vector data: %v", ErrBadArtifact, err)
	}
	return idx, nil
}
