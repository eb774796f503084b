// Package stats asks the external statistics engine about a replay.
//
// The decoder establishes that a replay is well-formed; it never
// computes the final frame number. That number comes from the
// statistics collaborator, which fully understands frame payloads.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Provider reports replay statistics.
type Provider interface {
	// LastFrame returns the replay's final frame number.
	LastFrame(ctx context.Context, replayPath string) (int32, error)
}

// replayStats is the JSON record the statistics binary prints.
type replayStats struct {
	LastFrame *int32 `json:"lastFrame"`
}

// CommandProvider shells out to a statistics binary that prints a
// one-line JSON object for the given replay path.
type CommandProvider struct {
	// BinPath is the statistics binary.
	BinPath string
	// Args are extra arguments placed before the replay path.
	Args []string
}

// NewCommandProvider creates a subprocess-backed statistics provider.
func NewCommandProvider(binPath string, args ...string) *CommandProvider {
	return &CommandProvider{BinPath: binPath, Args: args}
}

// LastFrame invokes the statistics binary and parses its report.
func (p *CommandProvider) LastFrame(ctx context.Context, replayPath string) (int32, error) {
	args := append(append([]string{}, p.Args...), replayPath)
	cmd := exec.CommandContext(ctx, p.BinPath, args...)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("statistics engine failed: %w", err)
	}

	var stats replayStats
	if err := json.Unmarshal(out, &stats); err != nil {
		return 0, fmt.Errorf("statistics engine output is not valid JSON: %w", err)
	}
	if stats.LastFrame == nil {
		return 0, fmt.Errorf("statistics engine reported no lastFrame")
	}

	return *stats.LastFrame, nil
}

// FixedProvider reports a constant last frame. Used when the caller
// already knows the frame count, and by tests.
type FixedProvider struct {
	Frame int32
}

// LastFrame returns the fixed frame.
func (p *FixedProvider) LastFrame(context.Context, string) (int32, error) {
	return p.Frame, nil
}
