package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slipstream-io/framecap/archive"
	"github.com/slipstream-io/framecap/engine"
	"github.com/slipstream-io/framecap/metrics"
	"github.com/slipstream-io/framecap/replay"
	"github.com/slipstream-io/framecap/stats"
	"github.com/slipstream-io/framecap/types"
)

// buildValidReplay writes a minimal enveloped replay file.
func buildValidReplay(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	env := make([]byte, 15)
	env[0] = '{'
	copy(env[1:], []byte("U\x03raw[$U#l"))
	buf.Write(env)

	// Message-sizes event: one entry, game start with an 8-byte payload.
	buf.Write([]byte{replay.EventMessageSizes, 4, replay.EventGameStart, 0x00, 0x08})
	buf.Write(append([]byte{replay.EventGameStart}, make([]byte, 8)...))

	path := filepath.Join(t.TempDir(), "match.replay")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write replay: %v", err)
	}
	return path
}

// fakeEngine scripts the engine's output stream and records lifecycle
// calls.
type fakeEngine struct {
	config     *engine.Config
	output     string
	errOutput  string
	startErr   error
	dumpOnDone bool

	started    int
	terminated int
	waited     int
}

func (f *fakeEngine) Start(context.Context) error {
	f.started++
	if f.startErr != nil {
		return f.startErr
	}
	// The instruction record must exist before the engine is spawned:
	// the engine consumes it by path.
	if f.config != nil {
		if _, err := os.Stat(f.config.InstructionPath); err != nil {
			return fmt.Errorf("instruction file not written before spawn: %w", err)
		}
	}
	if f.dumpOnDone && f.config != nil {
		dump := filepath.Join(filepath.Dir(f.config.InstructionPath), DefaultDumpName)
		if err := os.WriteFile(dump, []byte("frames"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeEngine) Stdout() io.Reader {
	return strings.NewReader(f.output)
}

func (f *fakeEngine) Stderr() io.Reader {
	return strings.NewReader(f.errOutput)
}

func (f *fakeEngine) Wait() (*engine.Result, error) {
	f.waited++
	return &engine.Result{ExitCode: -1}, nil
}

func (f *fakeEngine) Terminate() error {
	f.terminated++
	return nil
}

func newTestConfig(t *testing.T, replayPath string, eng *fakeEngine, target int32) *RecordConfig {
	t.Helper()
	return &RecordConfig{
		ReplayPath:  replayPath,
		ScratchBase: t.TempDir(),
		EnginePath:  "/opt/engine/playback",
		ImagePath:   "/opt/engine/game.iso",
		Stats:       &stats.FixedProvider{Frame: target},
		EngineFactory: func(config *engine.Config) Engine {
			eng.config = config
			return eng
		},
		Collector: metrics.NewCollector("sess-test", "/opt/engine/playback"),
	}
}

func scratchDirsUnder(t *testing.T, base string) []string {
	t.Helper()
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatalf("read scratch base: %v", err)
	}
	var dirs []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "wd-") {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}

func TestExecute_SuccessTerminatesExactlyOnce(t *testing.T) {
	replayPath := buildValidReplay(t)
	eng := &fakeEngine{output: "[CURRENT_FRAME] 10\n[CURRENT_FRAME] 5\n[CURRENT_FRAME] 12\n"}
	config := newTestConfig(t, replayPath, eng, 12)

	orchestrator, err := NewRecordOrchestrator(config)
	if err != nil {
		t.Fatalf("NewRecordOrchestrator failed: %v", err)
	}

	result, err := orchestrator.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Outcome.Status != types.OutcomeSuccess {
		t.Fatalf("Status = %q, want success (message: %s)", result.Outcome.Status, result.Outcome.Message)
	}
	if eng.started != 1 {
		t.Errorf("engine started %d times, want 1", eng.started)
	}
	if eng.terminated != 1 {
		t.Errorf("engine terminated %d times, want exactly 1", eng.terminated)
	}
	if result.Outcome.LatestFrame == nil || *result.Outcome.LatestFrame != 12 {
		t.Errorf("LatestFrame = %v, want 12", result.Outcome.LatestFrame)
	}
	if result.Outcome.TargetFrame != 12 {
		t.Errorf("TargetFrame = %d, want 12", result.Outcome.TargetFrame)
	}
	if got := scratchDirsUnder(t, config.ScratchBase); len(got) != 0 {
		t.Errorf("scratch dirs remain after success: %v", got)
	}
}

func TestExecute_IncompleteRecording(t *testing.T) {
	replayPath := buildValidReplay(t)
	eng := &fakeEngine{output: "[CURRENT_FRAME] 11\n"}
	config := newTestConfig(t, replayPath, eng, 12)

	orchestrator, err := NewRecordOrchestrator(config)
	if err != nil {
		t.Fatalf("NewRecordOrchestrator failed: %v", err)
	}

	result, err := orchestrator.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Outcome.Status != types.OutcomeIncomplete {
		t.Errorf("Status = %q, want incomplete_recording", result.Outcome.Status)
	}
	if result.Outcome.LatestFrame == nil || *result.Outcome.LatestFrame != 11 {
		t.Errorf("LatestFrame = %v, want 11", result.Outcome.LatestFrame)
	}
	if got := scratchDirsUnder(t, config.ScratchBase); len(got) != 0 {
		t.Errorf("scratch dirs remain after failure: %v", got)
	}
}

func TestExecute_MalformedReplayNeverSpawns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.replay")
	if err := os.WriteFile(path, []byte{0xFF, 0x00, 0x01}, 0o644); err != nil {
		t.Fatalf("write replay: %v", err)
	}

	eng := &fakeEngine{output: ""}
	config := newTestConfig(t, path, eng, 12)

	orchestrator, err := NewRecordOrchestrator(config)
	if err != nil {
		t.Fatalf("NewRecordOrchestrator failed: %v", err)
	}

	result, err := orchestrator.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Outcome.Status != types.OutcomeMalformedReplay {
		t.Errorf("Status = %q, want malformed_replay", result.Outcome.Status)
	}
	if eng.started != 0 {
		t.Errorf("engine spawned %d times for malformed input, want 0", eng.started)
	}
	if result.Metrics.DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", result.Metrics.DecodeErrors)
	}
	if got := scratchDirsUnder(t, config.ScratchBase); len(got) != 0 {
		t.Errorf("scratch dirs remain after malformed input: %v", got)
	}
}

func TestExecute_EngineLaunchFailure(t *testing.T) {
	replayPath := buildValidReplay(t)
	eng := &fakeEngine{startErr: fmt.Errorf("no such binary")}
	config := newTestConfig(t, replayPath, eng, 12)

	orchestrator, err := NewRecordOrchestrator(config)
	if err != nil {
		t.Fatalf("NewRecordOrchestrator failed: %v", err)
	}

	result, err := orchestrator.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Outcome.Status != types.OutcomeEngineCrash {
		t.Errorf("Status = %q, want engine_crash", result.Outcome.Status)
	}
	if result.Metrics.EngineLaunchFailure != 1 {
		t.Errorf("EngineLaunchFailure = %d, want 1", result.Metrics.EngineLaunchFailure)
	}
	if got := scratchDirsUnder(t, config.ScratchBase); len(got) != 0 {
		t.Errorf("scratch dirs remain after launch failure: %v", got)
	}
}

func TestExecute_ArchivesDumpArtifact(t *testing.T) {
	replayPath := buildValidReplay(t)
	eng := &fakeEngine{
		output:     "[CURRENT_FRAME] 12\n",
		dumpOnDone: true,
	}
	config := newTestConfig(t, replayPath, eng, 12)

	archiveRoot := filepath.Join(t.TempDir(), "recordings")
	store, err := archive.NewFSStore(archiveRoot)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	config.Archive = store

	orchestrator, err := NewRecordOrchestrator(config)
	if err != nil {
		t.Fatalf("NewRecordOrchestrator failed: %v", err)
	}

	result, err := orchestrator.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Outcome.Status != types.OutcomeSuccess {
		t.Fatalf("Status = %q, want success (message: %s)", result.Outcome.Status, result.Outcome.Message)
	}
	if result.ArchiveLocation == "" {
		t.Fatal("ArchiveLocation is empty")
	}
	data, err := os.ReadFile(result.ArchiveLocation)
	if err != nil {
		t.Fatalf("read archived artifact: %v", err)
	}
	if string(data) != "frames" {
		t.Errorf("archived content = %q, want frames", data)
	}
	// The scratch copy is gone; only the archive survives.
	if got := scratchDirsUnder(t, config.ScratchBase); len(got) != 0 {
		t.Errorf("scratch dirs remain: %v", got)
	}
}

func TestExecute_DrainsStderrDuringSupervision(t *testing.T) {
	replayPath := buildValidReplay(t)

	// The engine floods stderr before emitting its first progress
	// line. Unless stderr is consumed while the watch runs, the flood
	// never completes and no progress ever arrives.
	noise := bytes.Repeat([]byte("video backend warning\n"), 8192)
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	eng := &chattyEngine{
		stdoutR: outR, stdoutW: outW,
		stderrR: errR, stderrW: errW,
		noise: noise,
	}

	config := newTestConfig(t, replayPath, &fakeEngine{}, 12)
	config.EngineFactory = func(*engine.Config) Engine {
		return eng
	}

	orchestrator, err := NewRecordOrchestrator(config)
	if err != nil {
		t.Fatalf("NewRecordOrchestrator failed: %v", err)
	}

	done := make(chan *RecordResult, 1)
	go func() {
		result, execErr := orchestrator.Execute(context.Background())
		if execErr != nil {
			t.Errorf("Execute failed: %v", execErr)
		}
		done <- result
	}()

	select {
	case result := <-done:
		if result == nil {
			t.Fatal("no result")
		}
		if result.Outcome.Status != types.OutcomeSuccess {
			t.Fatalf("Status = %q, want success (message: %s)",
				result.Outcome.Status, result.Outcome.Message)
		}
		if len(result.StderrOutput) != len(noise) {
			t.Errorf("captured %d stderr bytes, want %d", len(result.StderrOutput), len(noise))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("recording stalled on an unread stderr stream")
	}
}

// chattyEngine writes its full stderr output before the first progress
// line, over unbuffered pipes, so the recording only completes when
// stderr is drained concurrently with the watch.
type chattyEngine struct {
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter
	noise   []byte
}

func (c *chattyEngine) Start(ctx context.Context) error {
	go func() {
		_, _ = c.stderrW.Write(c.noise)
		_ = c.stderrW.Close()
		_, _ = c.stdoutW.Write([]byte("[CURRENT_FRAME] 12\n"))
	}()
	go func() {
		<-ctx.Done()
		_ = c.stdoutW.CloseWithError(ctx.Err())
	}()
	return nil
}

func (c *chattyEngine) Stdout() io.Reader { return c.stdoutR }

func (c *chattyEngine) Stderr() io.Reader { return c.stderrR }

func (c *chattyEngine) Wait() (*engine.Result, error) {
	return &engine.Result{ExitCode: -1}, nil
}

func (c *chattyEngine) Terminate() error {
	_ = c.stdoutW.Close()
	_ = c.stderrW.Close()
	return nil
}

func TestExecute_FailsafeTimeoutReportsIncomplete(t *testing.T) {
	replayPath := buildValidReplay(t)
	// An engine that emits a frame and then stalls until killed.
	pr, pw := io.Pipe()
	eng := &stallingEngine{stdout: pr, stdin: pw}
	go func() {
		_, _ = pw.Write([]byte("[CURRENT_FRAME] 3\n"))
	}()

	config := newTestConfig(t, replayPath, &fakeEngine{}, 100)
	config.EngineFactory = func(c *engine.Config) Engine {
		return eng
	}
	config.EngineTimeout = 200 * time.Millisecond

	orchestrator, err := NewRecordOrchestrator(config)
	if err != nil {
		t.Fatalf("NewRecordOrchestrator failed: %v", err)
	}

	done := make(chan *RecordResult, 1)
	go func() {
		result, execErr := orchestrator.Execute(context.Background())
		if execErr != nil {
			t.Errorf("Execute failed: %v", execErr)
		}
		done <- result
	}()

	select {
	case result := <-done:
		if result == nil {
			t.Fatal("no result")
		}
		if result.Outcome.Status != types.OutcomeIncomplete {
			t.Errorf("Status = %q, want incomplete_recording (message: %s)",
				result.Outcome.Status, result.Outcome.Message)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not honor the failsafe timeout")
	}
	_ = pw.Close()
}

// stallingEngine keeps its stdout open until killed. Like a real
// process started with exec.CommandContext, its output pipe closes
// when the launch context expires.
type stallingEngine struct {
	stdout     *io.PipeReader
	stdin      *io.PipeWriter
	terminated int
}

func (s *stallingEngine) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.stdin.CloseWithError(ctx.Err())
	}()
	return nil
}

func (s *stallingEngine) Stdout() io.Reader { return s.stdout }

func (s *stallingEngine) Stderr() io.Reader { return strings.NewReader("") }

func (s *stallingEngine) Wait() (*engine.Result, error) {
	return &engine.Result{ExitCode: -1}, nil
}

func (s *stallingEngine) Terminate() error {
	s.terminated++
	_ = s.stdout.Close()
	return nil
}
