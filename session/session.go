// Package session manages the scratch working directory for one
// recording invocation. Exactly one session owns a scratch directory;
// the key embeds a timestamp, a hash of the normalized input path, and
// the process id so concurrent invocations never collide.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Session is a uniquely named, short-lived working directory for one
// recording invocation.
type Session struct {
	// Dir is the absolute scratch directory path.
	Dir string
	// ID is the directory basename, used as the engine's correlation
	// token.
	ID string
}

// Begin allocates the scratch directory for inputPath under baseDir.
// An empty baseDir uses the system temporary directory. Parent
// directories are created idempotently. The caller must arrange for
// End to run on every exit path.
func Begin(baseDir, inputPath string) (*Session, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}

	id, err := scratchKey(inputPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(baseDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	return &Session{Dir: dir, ID: id}, nil
}

// End removes the scratch directory recursively. Removal tolerates a
// partially or fully absent tree; End is safe to call more than once.
func (s *Session) End() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("failed to remove scratch directory: %w", err)
	}
	return nil
}

// Path returns the path of name inside the scratch directory.
func (s *Session) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// scratchKey derives the session directory name:
// wd-<unixTimestamp>-<hash(normalizedInputPath)>-<pid>.
func scratchKey(inputPath string) (string, error) {
	normalized, err := filepath.Abs(filepath.Clean(inputPath))
	if err != nil {
		return "", fmt.Errorf("failed to normalize input path: %w", err)
	}

	sum := sha256.Sum256([]byte(normalized))
	hash := hex.EncodeToString(sum[:4])

	return fmt.Sprintf("wd-%d-%s-%d", time.Now().Unix(), hash, os.Getpid()), nil
}
