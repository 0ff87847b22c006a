// Package snapshotio exports book.Snapshot values to disk as
// zstd-compressed, newline-delimited JSON, for offline inspection of a
// running engine. This is a point-in-time dump of the read-only
// snapshot view, not an order-state persistence/recovery mechanism
// (the latter is an explicit Non-goal).
package snapshotio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/cedrichaddad/flash-lob/internal/book"
)

// Writer appends zstd-compressed JSON snapshot records to an
// underlying file, one record per call to Write.
type Writer struct {
	file *os.File
	enc  *zstd.Encoder
}

// Create opens (or truncates) path and returns a Writer ready to
// accept snapshots.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("snapshotio: creating %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("snapshotio: building zstd encoder: %w", err)
	}
	return &Writer{file: f, enc: enc}, nil
}

// Write appends one snapshot record, JSON-encoded and newline-terminated,
// through the zstd stream.
func (w *Writer) Write(snap book.Snapshot) error {
	line, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshotio: marshalling snapshot: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.enc.Write(line); err != nil {
		return fmt.Errorf("snapshotio: writing snapshot: %w", err)
	}
	return nil
}

// Close flushes the zstd stream and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("snapshotio: closing zstd encoder: %w", err)
	}
	return w.file.Close()
}

// Reader decodes the newline-delimited JSON snapshot stream Writer
// produces, for tooling that wants to inspect a captured session.
type Reader struct {
	dec *zstd.Decoder
	src io.ReadCloser
}

// Open opens path for reading a previously-written snapshot stream.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshotio: opening %s: %w", path, err)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("snapshotio: building zstd decoder: %w", err)
	}
	return &Reader{dec: dec, src: f}, nil
}

// All decodes every snapshot record in the stream.
func (r *Reader) All() ([]book.Snapshot, error) {
	var out []book.Snapshot
	jd := json.NewDecoder(r.dec)
	for {
		var snap book.Snapshot
		if err := jd.Decode(&snap); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("snapshotio: decoding snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// Close releases the zstd decoder and underlying file.
func (r *Reader) Close() error {
	r.dec.Close()
	return r.src.Close()
}
