// Package notify defines the notification boundary for finished
// recordings.
//
// Notifiers publish recording completion events to downstream systems.
// The CLI owns notifier lifecycle; users provide configuration only.
package notify

import (
	"context"
	"time"

	"github.com/slipstream-io/framecap/runtime"
)

// EventType is the type discriminant carried by every event.
const EventType = "recording_completed"

// RecordingCompletedEvent is the payload published when a recording
// finishes, regardless of outcome.
type RecordingCompletedEvent struct {
	EventType       string `json:"event_type"` // always "recording_completed"
	SessionID       string `json:"session_id"`
	ReplayPath      string `json:"replay_path"`
	Status          string `json:"status"` // success, incomplete_recording, etc.
	Message         string `json:"message,omitempty"`
	LatestFrame     *int32 `json:"latest_frame,omitempty"`
	TargetFrame     int32  `json:"target_frame"`
	ArchiveLocation string `json:"archive_location,omitempty"`
	Timestamp       string `json:"timestamp"` // ISO 8601
	DurationMs      int64  `json:"duration_ms"`
	FramesObserved  int64  `json:"frames_observed"`
}

// EventFromResult builds the completion event for a finished
// recording.
func EventFromResult(result *runtime.RecordResult) *RecordingCompletedEvent {
	return &RecordingCompletedEvent{
		EventType:       EventType,
		SessionID:       result.Meta.SessionID,
		ReplayPath:      result.Meta.ReplayPath,
		Status:          string(result.Outcome.Status),
		Message:         result.Outcome.Message,
		LatestFrame:     result.Outcome.LatestFrame,
		TargetFrame:     result.Outcome.TargetFrame,
		ArchiveLocation: result.ArchiveLocation,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		DurationMs:      result.Duration.Milliseconds(),
		FramesObserved:  result.Metrics.FramesObserved,
	}
}

// Notifier publishes recording completion events to a downstream
// system. Implementations must be safe for single-use per recording.
type Notifier interface {
	// Publish sends a recording completion event to the downstream
	// system. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RecordingCompletedEvent) error

	// Close releases notifier resources.
	Close() error
}
