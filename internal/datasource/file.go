package datasource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/debug"
	"github.com/vanderheijden86/clusterview/pkg/metrics"
	"github.com/vanderheijden86/clusterview/pkg/query"
)

// FileSource reads bundles from disk. A file path serves the same bundle for
// every key. A directory path holds one file per key, named by KeyFileName.
type FileSource struct {
	path string
	dir  bool
}

// NewFileSource stats path to decide between file and directory mode. A
// path that does not exist yet is treated as a file.
func NewFileSource(path string, _ Options) (*FileSource, error) {
	path = expandHome(path)
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return &FileSource{path: path, dir: info.IsDir()}, nil
	case errors.Is(err, fs.ErrNotExist):
		return &FileSource{path: path}, nil
	default:
		return nil, fmt.Errorf("stat source %s: %w", path, err)
	}
}

// KeyFileName is the file a directory source reads for key, e.g.
// "Acme_Corp_Acme_Inc.json". Each field is query-escaped.
func KeyFileName(key query.Key) string {
	parts := []string{key.Base1, key.Base2, key.Target1, key.Target2}
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return strings.Join(parts, "_") + ".json"
}

// PathFor returns the file read for key.
func (s *FileSource) PathFor(key query.Key) string {
	if s.dir {
		return filepath.Join(s.path, KeyFileName(key))
	}
	return s.path
}

// Fetch reads and decodes the bundle for key. A missing file is no match.
func (s *FileSource) Fetch(ctx context.Context, key query.Key) (bundle.Bundle, error) {
	defer metrics.Timer(metrics.BundleFetch)()
	if err := ctx.Err(); err != nil {
		return bundle.Bundle{}, err
	}

	p := s.PathFor(key)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		debug.Log("no bundle file %s", p)
		return bundle.Bundle{}, nil
	}
	if err != nil {
		return bundle.Bundle{}, fmt.Errorf("read %s: %w", p, err)
	}
	if err := ctx.Err(); err != nil {
		return bundle.Bundle{}, err
	}

	b, err := bundle.Decode(data)
	if err != nil {
		return bundle.Bundle{}, fmt.Errorf("%s: %w", p, err)
	}
	return b, nil
}

// Describe returns the path.
func (s *FileSource) Describe() string { return s.path }

// WatchPath returns the watched file or directory.
func (s *FileSource) WatchPath() string { return s.path }

// Close is a no-op.
func (s *FileSource) Close() error { return nil }

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
