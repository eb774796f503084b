package runtime

import (
	"fmt"

	"github.com/slipstream-io/framecap/types"
)

// determineOutcome maps a finished watch to a recording outcome.
//
// Unlike a process that is allowed to exit on its own, the engine is
// terminated by the supervisor at the completion condition, so its
// exit code carries no outcome information. A nil watch error is the
// only success; everything else classifies by watch error kind.
func determineOutcome(watchErr error, latest *int32, target int32) *types.RecordingOutcome {
	switch {
	case watchErr == nil:
		return &types.RecordingOutcome{
			Status:      types.OutcomeSuccess,
			Message:     fmt.Sprintf("recorded through frame %d", target),
			LatestFrame: latest,
			TargetFrame: target,
		}

	case IsIncompleteError(watchErr):
		return &types.RecordingOutcome{
			Status:      types.OutcomeIncomplete,
			Message:     watchErr.Error(),
			LatestFrame: latest,
			TargetFrame: target,
		}

	case IsCanceledError(watchErr):
		return &types.RecordingOutcome{
			Status:      types.OutcomeEngineCrash,
			Message:     fmt.Sprintf("recording canceled: %v", watchErr),
			LatestFrame: latest,
			TargetFrame: target,
		}

	default:
		return &types.RecordingOutcome{
			Status:      types.OutcomeEngineCrash,
			Message:     fmt.Sprintf("engine stream failure: %v", watchErr),
			LatestFrame: latest,
			TargetFrame: target,
		}
	}
}
