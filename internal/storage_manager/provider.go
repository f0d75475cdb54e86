// Package storage_manager provides the file backends used to load and persist
// the knowledge corpus: local disk, S3, or a git working tree.
package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Read when the file does not exist.
var ErrNotFound = errors.New("file not found")

// FileProvider is a flat, path-addressed file store.
type FileProvider interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// LocalFileProvider stores files under a base directory.
type LocalFileProvider struct {
	baseDir string
}

// NewLocalFileProvider roots a provider at baseDir.
func NewLocalFileProvider(baseDir string) *LocalFileProvider {
	return &LocalFileProvider{baseDir: baseDir}
}

func (p *LocalFileProvider) Read(_ context.Context, path string) ([]byte, error) {
	return readFile(filepath.Join(p.baseDir, path))
}

// Write replaces the file atomically through a temp file in the same directory.
func (p *LocalFileProvider) Write(_ context.Context, path string, data []byte) error {
	return writeFileAtomic(filepath.Join(p.baseDir, path), data)
}

func (p *LocalFileProvider) Exists(_ context.Context, path string) (bool, error) {
	return fileExists(filepath.Join(p.baseDir, path))
}

// Delete is a no-op for missing files.
func (p *LocalFileProvider) Delete(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(p.baseDir, path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (p *LocalFileProvider) List(_ context.Context, prefix string) ([]string, error) {
	return walkFiles(p.baseDir, prefix)
}

func readFile(full string) ([]byte, error) {
	data, err := os.ReadFile(full) //nolint:gosec // G304: path is rooted at a configured directory
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", full, ErrNotFound)
	}
	return data, err
}

func writeFileAtomic(full string, data []byte) error {
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", full, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("failed to replace %s: %w", full, err)
	}
	return nil
}

func fileExists(full string) (bool, error) {
	_, err := os.Stat(full)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// walkFiles lists regular files under root/prefix as slash-separated paths
// relative to root. Dot-directories such as .git are skipped.
func walkFiles(root, prefix string) ([]string, error) {
	result := []string{}
	start := filepath.Join(root, prefix)
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != start {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		result = append(result, filepath.ToSlash(rel))
		return nil
	})
	return result, err
}

// PrefixedFileProvider scopes another provider to a namespace directory.
type PrefixedFileProvider struct {
	provider FileProvider
	prefix   string
}

// NewPrefixedFileProvider scopes provider under prefix.
func NewPrefixedFileProvider(provider FileProvider, prefix string) *PrefixedFileProvider {
	return &PrefixedFileProvider{provider: provider, prefix: strings.Trim(prefix, "/")}
}

func (p *PrefixedFileProvider) full(path string) string {
	if p.prefix == "" {
		return path
	}
	return p.prefix + "/" + path
}

func (p *PrefixedFileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	return p.provider.Read(ctx, p.full(path))
}

func (p *PrefixedFileProvider) Write(ctx context.Context, path string, data []byte) error {
	return p.provider.Write(ctx, p.full(path), data)
}

func (p *PrefixedFileProvider) Exists(ctx context.Context, path string) (bool, error) {
	return p.provider.Exists(ctx, p.full(path))
}

func (p *PrefixedFileProvider) Delete(ctx context.Context, path string) error {
	return p.provider.Delete(ctx, p.full(path))
}

// List strips the namespace from returned paths.
func (p *PrefixedFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	files, err := p.provider.List(ctx, p.full(prefix))
	if err != nil {
		return nil, err
	}
	ns := p.full("")
	out := make([]string, 0, len(files))
	for _, f := range files {
		if rest, ok := strings.CutPrefix(f, ns); ok {
			out = append(out, rest)
		}
	}
	return out, nil
}
