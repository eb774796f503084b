// Package comm compiles the playback instruction handed to the
// external engine. The engine consumes the instruction by path, not by
// inherited input, so the file must exist before the engine is spawned.
package comm

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FirstFrame is the first frame of a match under this game's frame
// numbering convention: the pre-match countdown starts at -123.
const FirstFrame int32 = -123

// InstructionFileName is the instruction file's name inside the
// scratch directory.
const InstructionFileName = "playback.json"

// ReplayFileName is the canonical name of the replay copy inside the
// scratch directory.
const ReplayFileName = "input.replay"

// PlaybackMode is the engine playback mode. Only queue-less normal
// playback is driven here.
const PlaybackMode = "normal"

// FrameWindow is the requested frame range for a recording.
// A nil StartFrame means the engine's own default start applies; a nil
// TotalFrames means record until the source data ends.
type FrameWindow struct {
	StartFrame  *int32
	TotalFrames *int32
}

// EndFrame computes the window's end frame: the effective start plus
// the requested frame count. Nil when no count was given.
func (w FrameWindow) EndFrame() *int32 {
	if w.TotalFrames == nil {
		return nil
	}
	start := FirstFrame
	if w.StartFrame != nil {
		start = *w.StartFrame
	}
	end := start + *w.TotalFrames
	return &end
}

// Instruction is the payload the playback engine reads from the
// scratch directory. Constructed once per invocation, serialized as a
// single newline-terminated record, never mutated after write.
type Instruction struct {
	// Mode is always "normal".
	Mode string `json:"mode"`
	// IsRealTimeMode is always false: playback runs as fast as the
	// engine renders, not at match speed.
	IsRealTimeMode bool `json:"isRealTimeMode"`
	// Replay is the path of the replay copy the engine plays back.
	Replay string `json:"replay"`
	// CommandID is the correlation token for this invocation, derived
	// from the scratch directory's basename so no second identifier
	// scheme is introduced.
	CommandID string `json:"commandId"`
	// StartFrame is present only when the caller overrode the start;
	// absent means the engine's own default applies.
	StartFrame *int32 `json:"startFrame,omitempty"`
	// EndFrame is present only when a frame-count limit was given;
	// absent means record until the source data ends.
	EndFrame *int32 `json:"endFrame,omitempty"`
}

// Compile copies the replay into the scratch directory and builds the
// instruction for it.
func Compile(scratchDir string, window FrameWindow, replayPath string) (*Instruction, error) {
	copied, err := copyReplay(scratchDir, replayPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stage replay: %w", err)
	}

	return &Instruction{
		Mode:           PlaybackMode,
		IsRealTimeMode: false,
		Replay:         copied,
		CommandID:      filepath.Base(scratchDir),
		StartFrame:     window.StartFrame,
		EndFrame:       window.EndFrame(),
	}, nil
}

// Write serializes the instruction into the scratch directory as a
// single newline-terminated JSON record and returns the file path.
func Write(scratchDir string, inst *Instruction) (string, error) {
	data, err := json.Marshal(inst)
	if err != nil {
		return "", fmt.Errorf("failed to encode instruction: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(scratchDir, InstructionFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write instruction: %w", err)
	}
	return path, nil
}

// copyReplay stages the source replay as the canonical input file for
// the engine and returns the copy's path.
func copyReplay(scratchDir, replayPath string) (string, error) {
	src, err := os.Open(replayPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	dstPath := filepath.Join(scratchDir, ReplayFileName)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return dstPath, nil
}
