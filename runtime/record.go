// Package runtime orchestrates a single recording: decode the replay,
// compile the playback instruction, supervise the engine to the
// completion condition, archive the artifact, and clean up.
package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/slipstream-io/framecap/archive"
	"github.com/slipstream-io/framecap/comm"
	"github.com/slipstream-io/framecap/engine"
	"github.com/slipstream-io/framecap/log"
	"github.com/slipstream-io/framecap/metrics"
	"github.com/slipstream-io/framecap/replay"
	"github.com/slipstream-io/framecap/session"
	"github.com/slipstream-io/framecap/stats"
	"github.com/slipstream-io/framecap/types"
)

// DefaultDumpName is the artifact file name the engine writes into the
// scratch directory.
const DefaultDumpName = "framedump0.avi"

// dumpAwaitTimeout bounds how long the orchestrator waits for the
// engine's dump artifact to appear after a successful recording.
const dumpAwaitTimeout = 15 * time.Second

// Engine abstracts engine process lifecycle for testing.
type Engine interface {
	Start(ctx context.Context) error
	Stdout() io.Reader
	Stderr() io.Reader
	Wait() (*engine.Result, error)
	Terminate() error
}

// EngineFactory creates an Engine. Used for test injection.
type EngineFactory func(config *engine.Config) Engine

// RecordConfig configures a single recording.
type RecordConfig struct {
	// ReplayPath is the source replay file.
	ReplayPath string
	// ScratchBase is the directory scratch sessions are created under.
	ScratchBase string
	// Window is the requested frame range.
	Window comm.FrameWindow
	// EnginePath is the playback engine binary.
	EnginePath string
	// ImagePath is the emulation image the engine boots.
	ImagePath string
	// SettingsPath optionally points the engine at a settings profile.
	SettingsPath string
	// Stats reports the replay's last frame.
	Stats stats.Provider
	// Archive persists the finished artifact before the scratch
	// directory is removed. Nil skips archiving.
	Archive archive.Store
	// DumpName overrides the engine's artifact file name.
	// Empty uses DefaultDumpName.
	DumpName string
	// EngineTimeout bounds the whole supervision as a failsafe.
	// Zero disables the bound; the completion condition alone decides.
	EngineTimeout time.Duration
	// EngineFactory overrides engine creation (for testing).
	// If nil, uses engine.NewManager.
	EngineFactory EngineFactory
	// Collector is the metrics collector for this recording.
	// Nil records nothing (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// OnFrame is an optional progress hook, called with each new
	// running-maximum frame.
	OnFrame func(latest, target int32)
}

// RecordResult is the result of one recording.
type RecordResult struct {
	// Meta is the session identity.
	Meta *types.SessionMeta
	// Outcome is the recording outcome.
	Outcome *types.RecordingOutcome
	// Summary is the replay's structural summary, when decoding got
	// that far.
	Summary *replay.Summary
	// ArchiveLocation is where the artifact was persisted, when
	// archiving ran.
	ArchiveLocation string
	// Duration is the total recording duration.
	Duration time.Duration
	// Metrics is the final counter snapshot.
	Metrics metrics.Snapshot
	// StderrOutput is the captured engine stderr.
	StderrOutput string
}

// RecordOrchestrator orchestrates a single recording.
type RecordOrchestrator struct {
	config    *RecordConfig
	logger    *log.Logger
	meta      *types.SessionMeta
	startTime time.Time
}

// NewRecordOrchestrator creates an orchestrator for one recording.
func NewRecordOrchestrator(config *RecordConfig) (*RecordOrchestrator, error) {
	meta := types.NewSessionMeta(config.ReplayPath)
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session metadata: %w", err)
	}
	if config.Stats == nil {
		return nil, fmt.Errorf("a statistics provider is required")
	}

	return &RecordOrchestrator{
		config: config,
		logger: log.NewLogger(meta),
		meta:   meta,
	}, nil
}

// SessionID returns the recording's session identity.
func (r *RecordOrchestrator) SessionID() string {
	return r.meta.SessionID
}

// Execute runs the recording end-to-end.
//
// Execution flow:
//  1. Begin scratch session (removal deferred, unconditional)
//  2. Decode and validate the replay (fail fast, before any spawn)
//  3. Ask the statistics engine for the target last frame
//  4. Compile and write the playback instruction
//  5. Spawn the engine and watch its output stream
//  6. Terminate at the completion condition, reap the process
//  7. Archive the dump artifact
func (r *RecordOrchestrator) Execute(ctx context.Context) (*RecordResult, error) {
	r.startTime = time.Now()

	sess, err := session.Begin(r.config.ScratchBase, r.config.ReplayPath)
	if err != nil {
		return nil, fmt.Errorf("failed to begin scratch session: %w", err)
	}
	defer func() {
		if endErr := sess.End(); endErr != nil {
			r.logger.Warn("scratch cleanup failed", map[string]any{
				"error": endErr.Error(),
			})
		}
	}()

	r.meta.ScratchID = sess.ID
	r.logger = log.NewLogger(r.meta)
	r.logger.Info("starting recording", map[string]any{
		"engine":  r.config.EnginePath,
		"scratch": sess.Dir,
	})

	// Decode before anything external: malformed input must abort with
	// no engine side effects.
	buf, err := os.ReadFile(r.config.ReplayPath)
	if err != nil {
		return r.buildResult(&types.RecordingOutcome{
			Status:  types.OutcomeMalformedReplay,
			Message: fmt.Sprintf("failed to read replay: %v", err),
		}, nil, "", ""), nil
	}

	summary, err := replay.Summarize(buf)
	if err != nil {
		r.config.Collector.IncDecodeError()
		r.logger.Error("replay decoding failed", map[string]any{
			"error": err.Error(),
		})
		return r.buildResult(&types.RecordingOutcome{
			Status:  types.OutcomeMalformedReplay,
			Message: fmt.Sprintf("replay decoding failed: %v", err),
		}, nil, "", ""), nil
	}

	r.logger.Debug("replay validated", map[string]any{
		"layout": string(summary.Layout),
		"events": summary.EventCount,
	})

	target, err := r.config.Stats.LastFrame(ctx, r.config.ReplayPath)
	if err != nil {
		return r.buildResult(&types.RecordingOutcome{
			Status:  types.OutcomeEngineCrash,
			Message: fmt.Sprintf("statistics engine failed: %v", err),
		}, summary, "", ""), nil
	}

	inst, err := comm.Compile(sess.Dir, r.config.Window, r.config.ReplayPath)
	if err != nil {
		return r.buildResult(&types.RecordingOutcome{
			Status:  types.OutcomeEngineCrash,
			Message: fmt.Sprintf("instruction compilation failed: %v", err),
		}, summary, "", ""), nil
	}

	instPath, err := comm.Write(sess.Dir, inst)
	if err != nil {
		return r.buildResult(&types.RecordingOutcome{
			Status:  types.OutcomeEngineCrash,
			Message: fmt.Sprintf("instruction write failed: %v", err),
		}, summary, "", ""), nil
	}

	outcome, stderrOutput := r.supervise(ctx, instPath, target)

	archiveLocation := ""
	if outcome.Status == types.OutcomeSuccess && r.config.Archive != nil {
		archiveLocation, err = r.archiveArtifact(ctx, sess)
		if err != nil {
			// The recording itself succeeded; losing the artifact is
			// its own failure mode.
			outcome = &types.RecordingOutcome{
				Status:      types.OutcomeEngineCrash,
				Message:     fmt.Sprintf("artifact archiving failed: %v", err),
				LatestFrame: outcome.LatestFrame,
				TargetFrame: outcome.TargetFrame,
			}
		}
	}

	return r.buildResult(outcome, summary, archiveLocation, stderrOutput), nil
}

// supervise spawns the engine and drives it to the completion
// condition. Termination is attempted on every path before returning.
func (r *RecordOrchestrator) supervise(ctx context.Context, instPath string, target int32) (*types.RecordingOutcome, string) {
	engConfig := &engine.Config{
		EnginePath:      r.config.EnginePath,
		InstructionPath: instPath,
		ImagePath:       r.config.ImagePath,
		SettingsPath:    r.config.SettingsPath,
	}

	var eng Engine
	if r.config.EngineFactory != nil {
		eng = r.config.EngineFactory(engConfig)
	} else {
		eng = engine.NewManager(engConfig)
	}

	superviseCtx := ctx
	cancel := context.CancelFunc(func() {})
	if r.config.EngineTimeout > 0 {
		superviseCtx, cancel = context.WithTimeout(ctx, r.config.EngineTimeout)
	}
	defer cancel()

	if err := eng.Start(superviseCtx); err != nil {
		r.config.Collector.IncEngineLaunchFailure()
		r.logger.Error("failed to start engine", map[string]any{
			"error": err.Error(),
		})
		return &types.RecordingOutcome{
			Status:      types.OutcomeEngineCrash,
			Message:     fmt.Sprintf("failed to start engine: %v", err),
			TargetFrame: target,
		}, ""
	}
	r.config.Collector.IncEngineLaunchSuccess()

	watcher := NewFrameWatcher(eng.Stdout(), target, r.logger, r.config.Collector, r.config.OnFrame)

	var stderrBuf bytes.Buffer
	var watchErr error
	g, watchCtx := errgroup.WithContext(superviseCtx)
	g.Go(func() error {
		// Drain stderr alongside the watch so a chatty engine can
		// never fill the pipe buffer and stall mid-recording. EOF
		// arrives once the process is gone.
		_, _ = io.Copy(&stderrBuf, eng.Stderr())
		return nil
	})
	g.Go(func() error {
		watchErr = watcher.Watch(watchCtx)

		// Exactly one termination request, issued synchronously with
		// the watch ending: on success because the completion
		// condition holds, on failure as best effort. Termination
		// also closes the engine's streams, which ends the stderr
		// drain.
		r.config.Collector.IncTerminationIssued()
		if err := eng.Terminate(); err != nil {
			r.logger.Warn("engine termination failed", map[string]any{
				"error": err.Error(),
			})
		}
		return nil
	})
	_ = g.Wait()

	if result, err := eng.Wait(); err != nil {
		r.logger.Warn("engine wait failed", map[string]any{
			"error": err.Error(),
		})
	} else {
		r.logger.Debug("engine reaped", map[string]any{
			"exit_code": result.ExitCode,
		})
	}
	stderrOutput := stderrBuf.String()

	// A failsafe timeout surfaces as cancellation; report it as an
	// incomplete recording since the target was never reached.
	if IsCanceledError(watchErr) && superviseCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		watchErr = &WatchError{
			Kind: WatchErrorIncomplete,
			Err:  fmt.Errorf("engine timeout after %s before target %d", r.config.EngineTimeout, target),
		}
	}

	return determineOutcome(watchErr, watcher.LatestFrame(), target), stderrOutput
}

// archiveArtifact waits for the engine's dump file and persists it.
func (r *RecordOrchestrator) archiveArtifact(ctx context.Context, sess *session.Session) (string, error) {
	dumpName := r.config.DumpName
	if dumpName == "" {
		dumpName = DefaultDumpName
	}

	awaitCtx, cancel := context.WithTimeout(ctx, dumpAwaitTimeout)
	defer cancel()

	dumpPath, err := sess.AwaitFile(awaitCtx, dumpName)
	if err != nil {
		return "", fmt.Errorf("dump artifact never appeared: %w", err)
	}

	f, err := os.Open(dumpPath)
	if err != nil {
		return "", fmt.Errorf("failed to open dump artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	location, err := r.config.Archive.Put(ctx, r.meta.SessionID+".avi", f)
	if err != nil {
		return "", err
	}

	r.logger.Info("artifact archived", map[string]any{
		"location": location,
	})
	return location, nil
}

// buildResult constructs the final recording result.
func (r *RecordOrchestrator) buildResult(
	outcome *types.RecordingOutcome,
	summary *replay.Summary,
	archiveLocation string,
	stderrOutput string,
) *RecordResult {
	return &RecordResult{
		Meta:            r.meta,
		Outcome:         outcome,
		Summary:         summary,
		ArchiveLocation: archiveLocation,
		Duration:        time.Since(r.startTime),
		Metrics:         r.config.Collector.Snapshot(),
		StderrOutput:    stderrOutput,
	}
}
