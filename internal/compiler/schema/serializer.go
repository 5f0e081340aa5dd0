package schema

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Format selects how a document is written
type Format struct {
	// Compact writes single-line JSON instead of indented JSON
	Compact bool
	// Gzip compresses the serialized document
	Gzip bool
}

// Serialize converts a document to JSON.
// The output is deterministic - same input will always produce the same output.
// This is important for caching and change detection.
func Serialize(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document cannot be nil")
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return data, nil
}

// SerializeCompact converts a document to single-line JSON
func SerializeCompact(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document cannot be nil")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return data, nil
}

// Encode serializes a document in the given format
func Encode(doc *Document, f Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if f.Compact {
		data, err = SerializeCompact(doc)
	} else {
		data, err = Serialize(doc)
	}
	if err != nil {
		return nil, err
	}
	if !f.Compact {
		data = append(data, '\n')
	}
	if f.Gzip {
		return Compress(data)
	}
	return data, nil
}

// Compress compresses data using gzip compression.
// Uses best compression level since compression happens at build time.
func Compress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}

	if len(data) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer

	writer, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close() // Ignore close error when write failed
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses gzip-compressed data.
func Decompress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}

	if len(data) == 0 {
		return []byte{}, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() {
		_ = reader.Close() // Ignore close error - we already have the data
	}()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress data: %w", err)
	}

	return decompressed, nil
}

// WriteToFile writes a document to outputPath, creating parent directories.
func WriteToFile(doc *Document, outputPath string, f Format) error {
	if doc == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if outputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	data, err := Encode(doc, f)
	if err != nil {
		return err
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write schema to %s: %w", outputPath, err)
	}

	return nil
}
