package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalFS implements Storage for local filesystem
type LocalFS struct {
	basePath string
}

// NewLocalFS creates a new LocalFS storage rooted at basePath
func NewLocalFS(basePath string) (*LocalFS, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{basePath: basePath}, nil
}

// fullPath resolves path under the base directory, rejecting escapes
func (l *LocalFS) fullPath(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	full := filepath.Join(l.basePath, clean)
	if !strings.HasPrefix(full, filepath.Clean(l.basePath)) {
		return "", fmt.Errorf("path %q escapes archive root", path)
	}
	return full, nil
}

func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	// write-then-rename so readers never see a partial blob
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp, full)
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return data, err
}

func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	searchPath, err := l.fullPath(prefix)
	if err != nil {
		return nil, err
	}

	paths := []string{}
	err = filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && !strings.HasSuffix(path, ".tmp") {
			rel, err := filepath.Rel(l.basePath, path)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	sort.Strings(paths)
	return paths, err
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	full, err := l.fullPath(path)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return err
}

func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
