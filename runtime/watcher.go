package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/slipstream-io/framecap/log"
	"github.com/slipstream-io/framecap/metrics"
)

// ProgressPrefix marks engine output lines that carry a just-rendered
// frame number. All other engine chatter is ignored.
const ProgressPrefix = "[CURRENT_FRAME]"

// WatchErrorKind classifies supervisor watch errors.
type WatchErrorKind int

const (
	// WatchErrorIncomplete indicates the engine's output stream ended
	// before the target last frame was observed.
	WatchErrorIncomplete WatchErrorKind = iota
	// WatchErrorStream indicates a read failure on the engine's
	// output stream.
	WatchErrorStream
	// WatchErrorCanceled indicates context cancellation.
	WatchErrorCanceled
)

// WatchError represents a supervisor watch failure.
type WatchError struct {
	Kind WatchErrorKind
	Err  error
}

func (e *WatchError) Error() string {
	return e.Err.Error()
}

func (e *WatchError) Unwrap() error {
	return e.Err
}

// IsIncompleteError returns true if the error reports an incomplete
// recording.
func IsIncompleteError(err error) bool {
	var watchErr *WatchError
	if errors.As(err, &watchErr) {
		return watchErr.Kind == WatchErrorIncomplete
	}
	return false
}

// IsCanceledError returns true if the error is due to context
// cancellation.
func IsCanceledError(err error) bool {
	var watchErr *WatchError
	if errors.As(err, &watchErr) {
		return watchErr.Kind == WatchErrorCanceled
	}
	return false
}

// ParseProgressLine extracts the frame number from an engine output
// line. Returns false for lines without the progress prefix and for
// prefixed lines whose trailing value is not a valid integer; neither
// is fatal.
func ParseProgressLine(line string) (int32, bool) {
	if !strings.HasPrefix(line, ProgressPrefix) {
		return 0, false
	}
	value := strings.TrimSpace(line[len(ProgressPrefix):])
	frame, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(frame), true
}

// FrameWatcher consumes the engine's output stream one line at a time
// and decides when the recording is complete.
//
// Progress state is owned solely by the watcher, mutated only as lines
// arrive, and discarded when the watcher returns. Lines are observed
// in the exact order the engine emits them; latestFrame is
// monotonically non-decreasing because it is a running maximum, not
// because lines are assumed ordered.
type FrameWatcher struct {
	scanner   *bufio.Scanner
	target    int32
	logger    *log.Logger
	collector *metrics.Collector
	onFrame   func(latest, target int32)

	seenFrames  map[int32]struct{}
	latestFrame *int32
}

// NewFrameWatcher creates a watcher driving toward target on the given
// output stream. onFrame, when non-nil, is called with each new
// running-maximum frame (progress display hook).
func NewFrameWatcher(
	r io.Reader,
	target int32,
	logger *log.Logger,
	collector *metrics.Collector,
	onFrame func(latest, target int32),
) *FrameWatcher {
	return &FrameWatcher{
		scanner:    bufio.NewScanner(r),
		target:     target,
		logger:     logger,
		collector:  collector,
		onFrame:    onFrame,
		seenFrames: make(map[int32]struct{}),
	}
}

// Watch consumes lines until the completion condition holds.
// Returns:
//   - nil: latestFrame reached the target; the caller must now issue
//     exactly one termination request and stop consuming.
//   - *WatchError with Kind=WatchErrorIncomplete: stream ended first
//   - *WatchError with Kind=WatchErrorStream: read failure
//   - *WatchError with Kind=WatchErrorCanceled: context canceled
func (w *FrameWatcher) Watch(ctx context.Context) error {
	for w.scanner.Scan() {
		select {
		case <-ctx.Done():
			return &WatchError{
				Kind: WatchErrorCanceled,
				Err:  ctx.Err(),
			}
		default:
		}

		frame, ok := ParseProgressLine(w.scanner.Text())
		if !ok {
			w.collector.IncProgressLineIgnored()
			continue
		}
		w.collector.IncProgressLineParsed()

		if _, seen := w.seenFrames[frame]; !seen {
			w.seenFrames[frame] = struct{}{}
			w.collector.AddFramesObserved(1)
		}

		if w.latestFrame == nil || frame > *w.latestFrame {
			latest := frame
			w.latestFrame = &latest
			if w.onFrame != nil {
				w.onFrame(latest, w.target)
			}
		}

		if *w.latestFrame >= w.target {
			w.logger.Debug("completion condition reached", map[string]any{
				"latest_frame": *w.latestFrame,
				"target_frame": w.target,
			})
			return nil
		}
	}

	if err := w.scanner.Err(); err != nil {
		// A canceled context kills the engine, which surfaces here as
		// a pipe read failure. Report the cancellation, not the pipe.
		if ctx.Err() != nil {
			return &WatchError{
				Kind: WatchErrorCanceled,
				Err:  ctx.Err(),
			}
		}
		return &WatchError{
			Kind: WatchErrorStream,
			Err:  fmt.Errorf("engine output read failed: %w", err),
		}
	}

	if ctx.Err() != nil {
		return &WatchError{
			Kind: WatchErrorCanceled,
			Err:  ctx.Err(),
		}
	}

	return &WatchError{
		Kind: WatchErrorIncomplete,
		Err: fmt.Errorf("engine output ended at frame %s before target %d",
			w.latestFrameString(), w.target),
	}
}

// LatestFrame returns the highest frame observed so far, nil when no
// progress line has parsed.
func (w *FrameWatcher) LatestFrame() *int32 {
	if w.latestFrame == nil {
		return nil
	}
	latest := *w.latestFrame
	return &latest
}

// SeenCount returns the number of distinct frames observed.
func (w *FrameWatcher) SeenCount() int {
	return len(w.seenFrames)
}

func (w *FrameWatcher) latestFrameString() string {
	if w.latestFrame == nil {
		return "<none>"
	}
	return strconv.FormatInt(int64(*w.latestFrame), 10)
}
