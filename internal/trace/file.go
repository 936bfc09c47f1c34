package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/waycore/internal/logger"
)

// File is a trace file being written.
type File struct {
	f  *os.File
	bw *BatchWriter
}

// CreateFile creates (or truncates) a trace file at path.
func CreateFile(path string, flushInterval time.Duration, bufferSize int) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	logger.Debugf("Writing trace to %s", path)
	return &File{f: f, bw: NewBatchWriter(f, flushInterval, bufferSize)}, nil
}

// Write implements io.Writer.
func (t *File) Write(p []byte) (int, error) {
	return t.bw.Write(p)
}

// Close flushes pending records and closes the file.
func (t *File) Close() error {
	flushErr := t.bw.Close()
	closeErr := t.f.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush trace: %w", flushErr)
	}
	return closeErr
}

// ReadFile reads every record of a trace file.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()

	return ReadAll(f)
}
