// Package metrics provides per-recording metrics collection.
//
// The Collector accumulates counters during a single recording. It is
// a leaf package with no internal dependencies. All increment methods
// are nil-receiver safe so callers never need to guard on an absent
// collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of recording metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	// Decoder
	DecodeErrors int64

	// Engine lifecycle
	EngineLaunchSuccess int64
	EngineLaunchFailure int64
	TerminationsIssued  int64

	// Supervisor stream
	ProgressLinesParsed  int64
	ProgressLinesIgnored int64
	FramesObserved       int64

	// Dimensions (informational, set at construction)
	SessionID  string
	EnginePath string
}

// Collector accumulates metrics during a single recording.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	decodeErrors int64

	engineLaunchSuccess int64
	engineLaunchFailure int64
	terminationsIssued  int64

	progressLinesParsed  int64
	progressLinesIgnored int64
	framesObserved       int64

	sessionID  string
	enginePath string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(sessionID, enginePath string) *Collector {
	return &Collector{
		sessionID:  sessionID,
		enginePath: enginePath,
	}
}

// IncDecodeError records a replay decoding failure.
func (c *Collector) IncDecodeError() {
	if c == nil {
		return
	}
	c.inc(&c.decodeErrors)
}

// IncEngineLaunchSuccess records a successful engine spawn.
func (c *Collector) IncEngineLaunchSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.engineLaunchSuccess)
}

// IncEngineLaunchFailure records a failed engine spawn.
func (c *Collector) IncEngineLaunchFailure() {
	if c == nil {
		return
	}
	c.inc(&c.engineLaunchFailure)
}

// IncTerminationIssued records a termination request sent to the engine.
func (c *Collector) IncTerminationIssued() {
	if c == nil {
		return
	}
	c.inc(&c.terminationsIssued)
}

// IncProgressLineParsed records a progress line that carried a valid
// frame number.
func (c *Collector) IncProgressLineParsed() {
	if c == nil {
		return
	}
	c.inc(&c.progressLinesParsed)
}

// IncProgressLineIgnored records an engine output line that was
// skipped: no progress prefix, or a garbled frame value.
func (c *Collector) IncProgressLineIgnored() {
	if c == nil {
		return
	}
	c.inc(&c.progressLinesIgnored)
}

// AddFramesObserved records newly observed frames.
func (c *Collector) AddFramesObserved(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.framesObserved += n
	c.mu.Unlock()
}

func (c *Collector) inc(counter *int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*counter++
	c.mu.Unlock()
}

// Snapshot returns an immutable view of the current counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		DecodeErrors:         c.decodeErrors,
		EngineLaunchSuccess:  c.engineLaunchSuccess,
		EngineLaunchFailure:  c.engineLaunchFailure,
		TerminationsIssued:   c.terminationsIssued,
		ProgressLinesParsed:  c.progressLinesParsed,
		ProgressLinesIgnored: c.progressLinesIgnored,
		FramesObserved:       c.framesObserved,
		SessionID:            c.sessionID,
		EnginePath:           c.enginePath,
	}
}
