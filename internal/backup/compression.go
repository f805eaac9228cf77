package backup

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"mysql-drift-guard/internal/errors"
)

// CompressionType identifies the algorithm applied to a backup file
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionLZ4  CompressionType = "lz4"
	CompressionZstd CompressionType = "zstd"
)

// ParseCompressionType validates a user-supplied algorithm name
func ParseCompressionType(name string) (CompressionType, error) {
	switch CompressionType(name) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip, CompressionLZ4, CompressionZstd:
		return CompressionType(name), nil
	default:
		return CompressionNone, errors.NewValidationError(
			fmt.Sprintf("unsupported compression algorithm: %s (supported: gzip, lz4, zstd, none)", name), nil)
	}
}

// Extension returns the file suffix for the algorithm, empty for none
func (c CompressionType) Extension() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionLZ4:
		return ".lz4"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// Compress applies the algorithm to data. CompressionNone passes data through
// untouched.
func Compress(data []byte, algorithm CompressionType) ([]byte, error) {
	switch algorithm {
	case CompressionNone:
		return data, nil

	case CompressionGzip:
		var buf bytes.Buffer
		writer := gzip.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			writer.Close()
			return nil, errors.NewBackupIOError("failed to gzip backup data", err)
		}
		if err := writer.Close(); err != nil {
			return nil, errors.NewBackupIOError("failed to finalize gzip stream", err)
		}
		return buf.Bytes(), nil

	case CompressionLZ4:
		var buf bytes.Buffer
		writer := lz4.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			writer.Close()
			return nil, errors.NewBackupIOError("failed to lz4-compress backup data", err)
		}
		if err := writer.Close(); err != nil {
			return nil, errors.NewBackupIOError("failed to finalize lz4 stream", err)
		}
		return buf.Bytes(), nil

	case CompressionZstd:
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, errors.NewBackupIOError("failed to create zstd encoder", err)
		}
		defer encoder.Close()
		return encoder.EncodeAll(data, make([]byte, 0, len(data))), nil

	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
}

// Decompress reverses Compress for the given algorithm
func Decompress(data []byte, algorithm CompressionType) ([]byte, error) {
	switch algorithm {
	case CompressionNone:
		return data, nil

	case CompressionGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.NewBackupIOError("failed to open gzip stream", err)
		}
		defer reader.Close()
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, errors.NewBackupIOError("failed to decompress gzip data", err)
		}
		return decompressed, nil

	case CompressionLZ4:
		decompressed, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, errors.NewBackupIOError("failed to decompress lz4 data", err)
		}
		return decompressed, nil

	case CompressionZstd:
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.NewBackupIOError("failed to create zstd decoder", err)
		}
		defer decoder.Close()
		decompressed, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.NewBackupIOError("failed to decompress zstd data", err)
		}
		return decompressed, nil

	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
}
