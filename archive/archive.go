// Package archive persists the finished recording artifact.
//
// The engine dumps its artifact inside the scratch directory, which is
// removed unconditionally when the session ends. Archiving moves the
// artifact out before that happens, either to a local directory or to
// an S3 bucket.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store persists one named artifact and returns its final location.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}

// FSStore archives artifacts into a local directory.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at root, creating the
// directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("archive root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Put copies the artifact into the archive directory.
func (s *FSStore) Put(_ context.Context, name string, r io.Reader) (string, error) {
	dstPath := filepath.Join(s.root, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive file: %w", err)
	}
	return dstPath, nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(path string) (bucket, prefix string) {
	parts := strings.SplitN(path, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}
