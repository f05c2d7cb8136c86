package constants

// AnalysisStatus is the canonical status for rows in bill_analyses.
type AnalysisStatus string

// Stable values (store these exact strings in DB).
const (
	AnalysisProcessing AnalysisStatus = "processing" // pipeline running
	AnalysisCompleted  AnalysisStatus = "completed"  // terminal success
	AnalysisError      AnalysisStatus = "error"      // terminal failure
)

// PipelineStep tracks where a single analysis run currently is.
// Steps advance strictly forward; StepError is reachable from any
// non-terminal step and a restart goes all the way back to StepIdle.
type PipelineStep string

const (
	StepIdle        PipelineStep = "idle"
	StepUploading   PipelineStep = "uploading"
	StepExtracting  PipelineStep = "extracting"
	StepCalculating PipelineStep = "calculating" // quick mode
	StepAnalyzing   PipelineStep = "analyzing"   // full mode
	StepCompleted   PipelineStep = "completed"
	StepError       PipelineStep = "error"
)

// Terminal reports whether no further transition is allowed from s.
func (s PipelineStep) Terminal() bool {
	return s == StepCompleted || s == StepError
}
