// Embedded default engine settings.
//
// The settings profile forces silent frame and audio dumping so a
// stock engine install records without manual configuration. It is
// embedded at build time and extracted to a temporary directory on
// first use, keeping the framecap binary self-contained.
package engine

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/slipstream-io/framecap/types"
)

//go:embed bundle/playback.ini
var embeddedSettings []byte

// extractOnce ensures extraction happens only once per process.
var extractOnce sync.Once
var extractedPath string
var extractErr error

// EmbeddedSettingsChecksum returns the SHA256 checksum of the embedded
// settings profile.
func EmbeddedSettingsChecksum() string {
	hash := sha256.Sum256(embeddedSettings)
	return hex.EncodeToString(hash[:])
}

// SettingsPath returns the path to the extracted settings profile.
// Extracts on first call; subsequent calls return the cached path.
func SettingsPath() (string, error) {
	extractOnce.Do(func() {
		extractedPath, extractErr = extractSettings()
	})
	return extractedPath, extractErr
}

// extractSettings writes the embedded settings to a temp directory.
// The directory name embeds the version and checksum so multiple
// framecap versions can coexist.
func extractSettings() (string, error) {
	checksum := EmbeddedSettingsChecksum()[:16]
	dirName := fmt.Sprintf("framecap-engine-%s-%s", types.Version, checksum)
	tempDir := filepath.Join(os.TempDir(), dirName)

	settingsPath := filepath.Join(tempDir, "playback.ini")

	// Already extracted (idempotent).
	if info, err := os.Stat(settingsPath); err == nil && info.Size() == int64(len(embeddedSettings)) {
		return settingsPath, nil
	}

	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	if err := os.WriteFile(settingsPath, embeddedSettings, 0o644); err != nil {
		return "", fmt.Errorf("failed to write settings: %w", err)
	}

	return settingsPath, nil
}

// CleanupSettings removes the extracted settings directory.
// Safe to call multiple times or if extraction never happened.
func CleanupSettings() error {
	if extractedPath == "" {
		return nil
	}

	dir := filepath.Dir(extractedPath)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to cleanup settings: %w", err)
	}

	return nil
}
