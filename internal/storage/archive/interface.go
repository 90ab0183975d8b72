// Package archive stores opaque blobs such as cached price history and
// full backtest results on a local disk or an S3-compatible bucket.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Read when no blob exists at the path
var ErrNotFound = errors.New("archive: not found")

// Storage defines the interface for cold/archive storage backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error
	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)
	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error
	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a storage backend
type Config struct {
	Type string // "localfs" or "s3"
	Path string // base directory for localfs
	S3   S3Config
}

// New builds the backend named by cfg.Type
func New(cfg Config) (Storage, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "localfs", "local":
		if cfg.Path == "" {
			return nil, fmt.Errorf("archive: localfs requires a path")
		}
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("archive: unknown storage type %q", cfg.Type)
	}
}

// WriteJSON encodes v and stores it at path
func WriteJSON(ctx context.Context, s Storage, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return s.Write(ctx, path, data)
}

// ReadJSON loads path and decodes it into v
func ReadJSON(ctx context.Context, s Storage, path string, v any) error {
	data, err := s.Read(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// ResultPath is where a finished run is archived
func ResultPath(symbol, strategy, id string) string {
	return fmt.Sprintf("results/%s/%s/%s.json", safeSegment(symbol), safeSegment(strategy), safeSegment(id))
}

// BarsPath is where a provider's history for a date range is cached
func BarsPath(provider, symbol string, start, end time.Time) string {
	return fmt.Sprintf("bars/%s/%s/%s_%s.json",
		safeSegment(provider), safeSegment(symbol), start.Format("20060102"), end.Format("20060102"))
}

func safeSegment(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
	if s == "" {
		return "_"
	}
	return s
}
