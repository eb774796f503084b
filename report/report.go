// Package report defines the recording report sidecar and its codec.
//
// A report is the durable record of one recording: the outcome, the
// replay's structural summary, and the final metrics. It is written
// next to the archived artifact as a msgpack document so later
// tooling can inspect a recording without re-decoding the replay.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/slipstream-io/framecap/replay"
	"github.com/slipstream-io/framecap/runtime"
	"github.com/slipstream-io/framecap/types"
)

// FormatVersion is bumped on incompatible report layout changes.
const FormatVersion = 1

// SidecarSuffix is appended to the artifact name to form the report
// file name.
const SidecarSuffix = ".report"

// Report is the durable record of one recording.
type Report struct {
	// Version is the report format version.
	Version int `msgpack:"version" json:"version"`
	// SessionID identifies the recording session.
	SessionID string `msgpack:"session_id" json:"sessionId"`
	// ReplayPath is the source replay file.
	ReplayPath string `msgpack:"replay_path" json:"replayPath"`
	// Outcome is the recording outcome.
	Outcome types.RecordingOutcome `msgpack:"outcome" json:"outcome"`
	// Summary is the replay's structural summary, when decoding got
	// that far.
	Summary *replay.Summary `msgpack:"summary,omitempty" json:"summary,omitempty"`
	// ArchiveLocation is where the artifact was persisted, when
	// archiving ran.
	ArchiveLocation string `msgpack:"archive_location,omitempty" json:"archiveLocation,omitempty"`
	// DurationMillis is the total recording duration.
	DurationMillis int64 `msgpack:"duration_ms" json:"durationMs"`
	// RecordedAt is when the recording finished.
	RecordedAt time.Time `msgpack:"recorded_at" json:"recordedAt"`
	// FramesObserved is the count of distinct frames seen in the
	// engine's progress stream.
	FramesObserved int64 `msgpack:"frames_observed" json:"framesObserved"`
	// ProgressLinesIgnored counts engine output lines that carried no
	// parseable progress.
	ProgressLinesIgnored int64 `msgpack:"progress_lines_ignored" json:"progressLinesIgnored"`
}

// FromResult builds a report from a finished recording.
func FromResult(result *runtime.RecordResult) *Report {
	return &Report{
		Version:              FormatVersion,
		SessionID:            result.Meta.SessionID,
		ReplayPath:           result.Meta.ReplayPath,
		Outcome:              *result.Outcome,
		Summary:              result.Summary,
		ArchiveLocation:      result.ArchiveLocation,
		DurationMillis:       result.Duration.Milliseconds(),
		RecordedAt:           time.Now().UTC(),
		FramesObserved:       result.Metrics.FramesObserved,
		ProgressLinesIgnored: result.Metrics.ProgressLinesIgnored,
	}
}

// Encode serializes a report to msgpack.
func Encode(r *Report) ([]byte, error) {
	payload, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return payload, nil
}

// Decode deserializes a msgpack report, rejecting unknown format
// versions.
func Decode(payload []byte) (*Report, error) {
	var r Report
	if err := msgpack.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if r.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported report version %d (want %d)", r.Version, FormatVersion)
	}
	return &r, nil
}

// WriteFile encodes a report and writes it to path.
func WriteFile(path string, r *Report) error {
	payload, err := Encode(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadFile reads and decodes a report from path.
func ReadFile(path string) (*Report, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return Decode(payload)
}
