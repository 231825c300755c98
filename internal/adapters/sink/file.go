package sink

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/okian/vitalgen/internal/domain/datapoint"
)

const defaultFileBufferSize = 64 * 1024

// FileWriter writes one JSON record per line to a buffered file. The file is
// truncated on open and flushed after every batch.
type FileWriter struct {
	path string
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
}

// FileOption applies a configuration option to the FileWriter.
type FileOption func(*fileSettings)

type fileSettings struct {
	bufferSize int
}

// WithBufferSize sets the write buffer size in bytes.
func WithBufferSize(size int) FileOption {
	return func(s *fileSettings) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

// NewFileWriter creates or truncates path and returns a writer for it.
func NewFileWriter(path string, opts ...FileOption) (*FileWriter, error) {
	s := fileSettings{bufferSize: defaultFileBufferSize}
	for _, opt := range opts {
		opt(&s)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrConnect, path, err)
	}
	return &FileWriter{path: path, f: f, w: bufio.NewWriterSize(f, s.bufferSize)}, nil
}

// Path returns the output path.
func (fw *FileWriter) Path() string { return fw.path }

// WriteDataPoints encodes the batch and appends it under a single lock.
func (fw *FileWriter) WriteDataPoints(_ context.Context, points []datapoint.DataPoint) (int64, error) {
	var batch bytes.Buffer
	for _, p := range points {
		raw, err := Encode(p)
		if err != nil {
			return 0, err
		}
		batch.Write(raw)
		batch.WriteByte('\n')
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.w == nil {
		return 0, ErrClosed
	}
	if _, err := fw.w.Write(batch.Bytes()); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrWrite, fw.path, err)
	}
	if err := fw.w.Flush(); err != nil {
		return 0, fmt.Errorf("%w: flushing %s: %w", ErrWrite, fw.path, err)
	}
	return int64(len(points)), nil
}

// Close flushes remaining data and closes the file. It is safe to call twice.
func (fw *FileWriter) Close(_ context.Context) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.w == nil {
		return nil
	}
	flushErr := fw.w.Flush()
	closeErr := fw.f.Close()
	fw.w, fw.f = nil, nil

	if flushErr != nil {
		return fmt.Errorf("%w: flushing %s: %w", ErrWrite, fw.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrWrite, fw.path, closeErr)
	}
	return nil
}
