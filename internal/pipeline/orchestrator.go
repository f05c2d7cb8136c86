// Package pipeline sequences the analysis stages for one submitted bill:
// validation, extraction, derivation, optional narrative, and exactly one
// terminal store write. It also owns the soft-timeout hand-off: a slow run is
// finished in the background while the caller is told to poll.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solo-energia/bill-clarifier/constants"
	"github.com/solo-energia/bill-clarifier/internal/common"
	"github.com/solo-energia/bill-clarifier/internal/entity"
	"github.com/solo-energia/bill-clarifier/internal/extract"
	"github.com/solo-energia/bill-clarifier/internal/metrics"
	"github.com/solo-energia/bill-clarifier/internal/narrative"
)

// Mode selects how far the pipeline goes after extraction.
type Mode string

const (
	// ModeQuick stops at derived metrics plus rule-based alerts.
	ModeQuick Mode = "quick"
	// ModeFull adds the specialist narrative call.
	ModeFull Mode = "full"
)

// Outcome is the tri-state result of a run as seen by the submitter.
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeFailed     Outcome = "failed"
	OutcomeProcessing Outcome = "processing" // handed off, poll the record
)

// Extractor is the OCR stage dependency.
type Extractor interface {
	Extract(ctx context.Context, img extract.ImageInput) (*entity.BillRecord, error)
}

// Narrator is the specialist stage dependency.
type Narrator interface {
	Narrate(ctx context.Context, rec *entity.BillRecord, derived entity.ClarifierResult) (*entity.NarrativeResult, error)
}

// AnalysisStore is the persistence the pipeline writes through. Complete and
// MarkError are the only terminal writes; SaveRawExtraction failures are
// logged and never fail a run.
type AnalysisStore interface {
	Create(ctx context.Context, analysis *entity.BillAnalysis) (uuid.UUID, error)
	SaveRawExtraction(ctx context.Context, analysisID uuid.UUID, raw json.RawMessage) error
	Complete(ctx context.Context, analysis *entity.BillAnalysis) error
	MarkError(ctx context.Context, analysisID uuid.UUID, message string) error
}

// PropertyStore resolves the configured generation baseline.
type PropertyStore interface {
	ExpectedGeneration(ctx context.Context, propertyID uuid.UUID) (float64, error)
}

// AnalyzeRequest is one bill submission.
type AnalyzeRequest struct {
	AnalysisID uuid.UUID // assigned by Run
	PropertyID uuid.UUID
	Image      extract.ImageInput
	FileURL    string

	MonitoredGenerationKwh float64
	ExpectedGenerationKwh  float64 // 0 means look up the property baseline

	Mode           Mode
	ReferenceMonth int
	ReferenceYear  int
}

// AnalyzeResult is what the submitter gets back. On OutcomeProcessing only
// AnalysisID is set; the rest lands in the store when the background run
// finishes.
type AnalyzeResult struct {
	AnalysisID uuid.UUID
	Outcome    Outcome
	Step       constants.PipelineStep

	Record    *entity.BillRecord
	Metrics   *entity.ClarifierResult
	Narrative *entity.NarrativeResult
	Err       error
}

// Pipeline wires the stages together.
type Pipeline struct {
	extractor  Extractor
	narrator   Narrator
	store      AnalysisStore
	properties PropertyStore
	sizing     metrics.Sizing

	softTimeout time.Duration
	log         *slog.Logger
	wg          sync.WaitGroup
}

// DefaultSoftTimeout is how long a submitter waits synchronously before the
// run is handed off to the background.
const DefaultSoftTimeout = 2 * time.Minute

func New(extractor Extractor, narrator Narrator, store AnalysisStore, properties PropertyStore, sizing metrics.Sizing, softTimeout time.Duration, logger *slog.Logger) *Pipeline {
	if softTimeout <= 0 {
		softTimeout = DefaultSoftTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor:   extractor,
		narrator:    narrator,
		store:       store,
		properties:  properties,
		sizing:      sizing,
		softTimeout: softTimeout,
		log:         logger,
	}
}

// Wait blocks until every handed-off run has finished. Used on shutdown.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Run executes the pipeline for one submission. Invalid input is rejected
// before any stage runs or any row is written. When the run outlives the soft
// timeout, Run returns OutcomeProcessing and the run continues on a detached
// context until it writes its terminal state.
func (p *Pipeline) Run(ctx context.Context, req AnalyzeRequest) AnalyzeResult {
	if err := validate(req); err != nil {
		return AnalyzeResult{Outcome: OutcomeFailed, Step: constants.StepIdle, Err: err}
	}
	if req.Mode == "" {
		req.Mode = ModeFull
	}

	id, err := p.store.Create(ctx, &entity.BillAnalysis{
		PropertyID:             req.PropertyID,
		ReferenceMonth:         req.ReferenceMonth,
		ReferenceYear:          req.ReferenceYear,
		BillFileURL:            strOrNil(req.FileURL),
		MonitoredGenerationKwh: req.MonitoredGenerationKwh,
		Status:                 constants.AnalysisProcessing,
	})
	if err != nil {
		return AnalyzeResult{
			Outcome: OutcomeFailed,
			Step:    constants.StepError,
			Err:     common.WrapError(err, "create analysis row"),
		}
	}
	req.AnalysisID = id

	// The run must survive the submitter's context: a canceled upload request
	// must not abort a run that already cost a model call.
	bgCtx := context.WithoutCancel(ctx)

	done := make(chan AnalyzeResult, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		done <- p.execute(bgCtx, req)
	}()

	select {
	case result := <-done:
		return result
	case <-time.After(p.softTimeout):
		p.log.Info("pipeline.handed_off",
			"analysis_id", id,
			"soft_timeout", p.softTimeout,
		)
		return AnalyzeResult{
			AnalysisID: id,
			Outcome:    OutcomeProcessing,
			Step:       constants.StepExtracting,
		}
	}
}

func validate(req AnalyzeRequest) error {
	if req.PropertyID == uuid.Nil {
		return common.InvalidInputError("property id is required")
	}
	if len(req.Image.Bytes) == 0 {
		return common.InvalidInputError("bill image is required")
	}
	if _, ok := constants.AllowedMimeTypes[req.Image.MimeType]; !ok {
		return common.InvalidInputErrorf("unsupported file type %q", req.Image.MimeType)
	}
	if req.MonitoredGenerationKwh <= 0 {
		return common.InvalidInputError("monitored generation is required")
	}
	if req.Mode != "" && req.Mode != ModeQuick && req.Mode != ModeFull {
		return common.InvalidInputErrorf("unknown mode %q", req.Mode)
	}
	return nil
}

// execute runs the staged work and writes exactly one terminal state.
func (p *Pipeline) execute(ctx context.Context, req AnalyzeRequest) AnalyzeResult {
	start := time.Now()
	r := newRun()
	_ = r.advance(constants.StepUploading)
	_ = r.advance(constants.StepExtracting)

	p.log.Info("pipeline.start",
		"req_id", common.RequestIDFromContext(ctx),
		"analysis_id", req.AnalysisID,
		"property_id", req.PropertyID,
		"mode", req.Mode,
	)

	rec, err := p.extractor.Extract(ctx, req.Image)
	if err != nil {
		return p.terminate(ctx, r, req.AnalysisID, fmt.Errorf("extraction: %w", err))
	}

	if raw, merr := json.Marshal(rec); merr == nil {
		if serr := p.store.SaveRawExtraction(ctx, req.AnalysisID, raw); serr != nil {
			p.log.Warn("pipeline.raw_save_failed", "analysis_id", req.AnalysisID, "error", serr)
		}
	}

	expected := req.ExpectedGenerationKwh
	if expected <= 0 && p.properties != nil {
		if baseline, perr := p.properties.ExpectedGeneration(ctx, req.PropertyID); perr != nil {
			p.log.Warn("pipeline.baseline_lookup_failed", "property_id", req.PropertyID, "error", perr)
		} else {
			expected = baseline
		}
	}
	req.ExpectedGenerationKwh = expected

	derived := metrics.Derive(rec, req.MonitoredGenerationKwh, expected, p.sizing)

	var result *entity.NarrativeResult
	if req.Mode == ModeFull {
		_ = r.advance(constants.StepAnalyzing)
		result, err = p.narrator.Narrate(ctx, rec, derived)
		if err != nil {
			return p.terminate(ctx, r, req.AnalysisID, fmt.Errorf("narrative: %w", err))
		}
	} else {
		_ = r.advance(constants.StepCalculating)
	}

	var quickAlerts []string
	if req.Mode == ModeQuick {
		quickAlerts = alertStrings(narrative.QuickAlerts(rec, derived))
	}

	row := flatten(req, rec, derived, result, quickAlerts)
	row.Status = constants.AnalysisCompleted
	if err := p.store.Complete(ctx, row); err != nil {
		return p.terminate(ctx, r, req.AnalysisID, common.WrapError(err, "persist analysis"))
	}

	_ = r.advance(constants.StepCompleted)
	p.log.Info("pipeline.completed",
		"analysis_id", req.AnalysisID,
		"mode", req.Mode,
		"confidence", rec.Confidence(),
		"status", derived.SystemStatus,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return AnalyzeResult{
		AnalysisID: req.AnalysisID,
		Outcome:    OutcomeCompleted,
		Step:       r.step,
		Record:     rec,
		Metrics:    &derived,
		Narrative:  result,
	}
}

// terminate marks the run failed in the store and reports the failure.
func (p *Pipeline) terminate(ctx context.Context, r *run, id uuid.UUID, cause error) AnalyzeResult {
	r.fail()
	p.log.Error("pipeline.failed", "analysis_id", id, "error", cause)
	if err := p.store.MarkError(ctx, id, cause.Error()); err != nil {
		p.log.Error("pipeline.mark_error_failed", "analysis_id", id, "error", err)
	}
	return AnalyzeResult{
		AnalysisID: id,
		Outcome:    OutcomeFailed,
		Step:       r.step,
		Err:        cause,
	}
}

func alertStrings(alerts []entity.Alert) []string {
	n := entity.NarrativeResult{Alerts: alerts}
	return n.AlertStrings()
}
