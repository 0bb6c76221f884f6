package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Writer interface {
	WriteRecord(ctx context.Context, record Record) (string, error)
}

type WriterOption func(*writer)

func WriteToDir(pth string) WriterOption {
	return func(w *writer) {
		w.pth = pth
	}
}

func WriteRecordTo(writers ...io.Writer) WriterOption {
	return func(w *writer) {
		w.recordWriters = append(w.recordWriters, writers...)
	}
}

func NewWriter(opts ...WriterOption) Writer {
	w := writer{recordWriters: []io.Writer{io.Discard}}
	for _, o := range opts {
		o(&w)
	}

	return &w
}

type writer struct {
	pth           string
	recordWriters []io.Writer
}

// WriteRecord encodes the record to the configured writers and, if a directory is
// set, to <invocation>-summary.json inside it. The file path is returned, or an
// empty string when no directory is set.
func (o *writer) WriteRecord(ctx context.Context, record Record) (_ string, err error) {
	// Check if the context is done to return early.
	if err = ctx.Err(); err != nil {
		return "", err
	}

	writers := make([]io.Writer, len(o.recordWriters))
	copy(writers, o.recordWriters)

	var pth string
	if o.pth != "" {
		if err = mkdir(o.pth); err != nil {
			return "", err
		}

		pth = filepath.Join(o.pth, fmt.Sprintf("%s-summary.json", record.Invocation))
		file, openErr := os.OpenFile(pth, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if openErr != nil {
			return "", fmt.Errorf("os.OpenFile: %w", openErr)
		}

		defer func() {
			if syncErr := file.Sync(); syncErr != nil && err == nil {
				err = fmt.Errorf("file Sync: %w", syncErr)
			}

			_ = file.Close()
		}()

		writers = append(writers, file)
	}

	enc := json.NewEncoder(io.MultiWriter(writers...))
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(record); encErr != nil {
		return "", fmt.Errorf("json.NewEncoder.Encode: %w", encErr)
	}

	return pth, nil
}
