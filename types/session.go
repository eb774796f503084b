// Package types defines core domain types for the framecap runtime.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"

	"github.com/google/uuid"
)

// SessionMeta identifies a single recording invocation.
// One SessionMeta is constructed per `framecap record` and threaded
// through logging, the supervisor, and the final report.
type SessionMeta struct {
	// SessionID is the unique recording identifier.
	SessionID string
	// ReplayPath is the source replay file as given on the command line.
	ReplayPath string
	// ScratchID is the basename of the scratch directory, once allocated.
	// Doubles as the commandId handed to the playback engine.
	ScratchID string
}

// NewSessionMeta creates session metadata for a replay path.
func NewSessionMeta(replayPath string) *SessionMeta {
	return &SessionMeta{
		SessionID:  uuid.NewString(),
		ReplayPath: replayPath,
	}
}

// Validate checks that required session fields are present.
func (m *SessionMeta) Validate() error {
	if m == nil {
		return errors.New("session metadata is nil")
	}
	if m.SessionID == "" {
		return errors.New("session id is required")
	}
	if m.ReplayPath == "" {
		return errors.New("replay path is required")
	}
	return nil
}
