package types

// OutcomeStatus classifies how a recording ended.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the engine was driven through the full
	// frame window and terminated at the completion condition.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeIncomplete indicates the engine's output stream ended
	// before the target last frame was observed. The replay itself
	// was valid.
	OutcomeIncomplete OutcomeStatus = "incomplete_recording"
	// OutcomeMalformedReplay indicates the replay file failed
	// structural decoding. The engine was never spawned.
	OutcomeMalformedReplay OutcomeStatus = "malformed_replay"
	// OutcomeEngineCrash indicates the engine failed to launch or
	// the supervisor failed for a reason unrelated to the replay.
	OutcomeEngineCrash OutcomeStatus = "engine_crash"
)

// RecordingOutcome describes the final state of one recording.
type RecordingOutcome struct {
	// Status is the outcome classification.
	Status OutcomeStatus `msgpack:"status" json:"status"`
	// Message is a human-readable description.
	Message string `msgpack:"message" json:"message"`
	// LatestFrame is the highest frame number observed, when any
	// progress line parsed. Nil when the engine emitted none.
	LatestFrame *int32 `msgpack:"latest_frame,omitempty" json:"latestFrame,omitempty"`
	// TargetFrame is the last frame the supervisor was driving toward.
	TargetFrame int32 `msgpack:"target_frame" json:"targetFrame"`
}
