package pipeline

import (
	"fmt"

	"github.com/solo-energia/bill-clarifier/constants"
)

// legalTransitions encodes the run state machine. Error is reachable from any
// non-terminal step; terminal steps have no exits. A restart is a new run
// starting at idle, never a transition out of a terminal step.
var legalTransitions = map[constants.PipelineStep][]constants.PipelineStep{
	constants.StepIdle:        {constants.StepUploading},
	constants.StepUploading:   {constants.StepExtracting},
	constants.StepExtracting:  {constants.StepCalculating, constants.StepAnalyzing},
	constants.StepCalculating: {constants.StepCompleted},
	constants.StepAnalyzing:   {constants.StepCompleted},
	constants.StepCompleted:   {},
	constants.StepError:       {},
}

// CanTransition reports whether from → to is a legal step change.
func CanTransition(from, to constants.PipelineStep) bool {
	if to == constants.StepError {
		return !from.Terminal()
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// run tracks the step of a single pipeline execution. Not safe for concurrent
// use; each execution owns its run.
type run struct {
	step constants.PipelineStep
}

func newRun() *run {
	return &run{step: constants.StepIdle}
}

func (r *run) advance(to constants.PipelineStep) error {
	if !CanTransition(r.step, to) {
		return fmt.Errorf("illegal step transition %s -> %s", r.step, to)
	}
	r.step = to
	return nil
}

func (r *run) fail() {
	if !r.step.Terminal() {
		r.step = constants.StepError
	}
}
