package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solo-energia/bill-clarifier/constants"
	"github.com/solo-energia/bill-clarifier/internal/entity"
	"github.com/solo-energia/bill-clarifier/internal/extract"
	"github.com/solo-energia/bill-clarifier/internal/metrics"
)

func f(v float64) *float64 { return &v }

type fakeExtractor struct {
	record  *entity.BillRecord
	err     error
	release chan struct{} // when set, Extract blocks until closed
}

func (e *fakeExtractor) Extract(context.Context, extract.ImageInput) (*entity.BillRecord, error) {
	if e.release != nil {
		<-e.release
	}
	return e.record, e.err
}

type fakeNarrator struct {
	result *entity.NarrativeResult
	err    error
	called bool
}

func (n *fakeNarrator) Narrate(context.Context, *entity.BillRecord, entity.ClarifierResult) (*entity.NarrativeResult, error) {
	n.called = true
	return n.result, n.err
}

type fakeStore struct {
	mu sync.Mutex

	createErr error
	created   *entity.BillAnalysis

	raw       json.RawMessage
	rawErr    error
	completed *entity.BillAnalysis
	errorMsg  string
}

func (s *fakeStore) Create(_ context.Context, a *entity.BillAnalysis) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return uuid.Nil, s.createErr
	}
	s.created = a
	return uuid.New(), nil
}

func (s *fakeStore) SaveRawExtraction(_ context.Context, _ uuid.UUID, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
	return s.rawErr
}

func (s *fakeStore) Complete(_ context.Context, a *entity.BillAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = a
	return nil
}

func (s *fakeStore) MarkError(_ context.Context, _ uuid.UUID, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorMsg = msg
	return nil
}

func (s *fakeStore) snapshot() (completed *entity.BillAnalysis, errorMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed, s.errorMsg
}

type fakeProperties struct {
	baseline float64
	err      error
	asked    bool
}

func (p *fakeProperties) ExpectedGeneration(context.Context, uuid.UUID) (float64, error) {
	p.asked = true
	return p.baseline, p.err
}

func sampleRecord() *entity.BillRecord {
	return &entity.BillRecord{
		AvailabilityCost:       f(45.20),
		PublicLightingCost:     f(12.30),
		TotalAmount:            f(98.50),
		MeasuredConsumptionKwh: f(450),
		CompensatedEnergyKwh:   f(380),
		PISCost:                f(1.10),
		COFINSCost:             f(5.40),
		TariffFlagValueKwh:     f(0.04),
	}
}

func validRequest(mode Mode) AnalyzeRequest {
	return AnalyzeRequest{
		PropertyID:             uuid.New(),
		Image:                  extract.ImageInput{Bytes: []byte("img"), MimeType: "image/jpeg"},
		MonitoredGenerationKwh: 400,
		Mode:                   mode,
		ReferenceMonth:         3,
		ReferenceYear:          2024,
	}
}

func TestRunRejectsInvalidInputBeforeAnyStage(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p := New(&fakeExtractor{}, &fakeNarrator{}, store, nil, metrics.Sizing{}, time.Second, nil)

	tests := []struct {
		name   string
		mutate func(*AnalyzeRequest)
	}{
		{"missing property", func(r *AnalyzeRequest) { r.PropertyID = uuid.Nil }},
		{"missing image", func(r *AnalyzeRequest) { r.Image.Bytes = nil }},
		{"bad mime", func(r *AnalyzeRequest) { r.Image.MimeType = "text/plain" }},
		{"missing generation", func(r *AnalyzeRequest) { r.MonitoredGenerationKwh = 0 }},
		{"unknown mode", func(r *AnalyzeRequest) { r.Mode = "turbo" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(ModeQuick)
			tt.mutate(&req)

			result := p.Run(context.Background(), req)

			assert.Equal(t, OutcomeFailed, result.Outcome)
			assert.Equal(t, constants.StepIdle, result.Step)
			require.Error(t, result.Err)
			assert.Nil(t, store.created, "no row may be written for rejected input")
		})
	}
}

func TestRunQuickMode(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	narrator := &fakeNarrator{}
	p := New(&fakeExtractor{record: sampleRecord()}, narrator, store, nil, metrics.Sizing{}, time.Minute, nil)

	result := p.Run(context.Background(), validRequest(ModeQuick))

	require.NoError(t, result.Err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, constants.StepCompleted, result.Step)
	assert.False(t, narrator.called, "quick mode must not call the specialist")

	require.NotNil(t, result.Metrics)
	assert.InDelta(t, 57.50, result.Metrics.MinimumPossible, 1e-9)
	assert.InDelta(t, 41.00, result.Metrics.UncompensatedCost, 1e-9)

	completed, _ := store.snapshot()
	require.NotNil(t, completed)
	assert.Equal(t, constants.AnalysisCompleted, completed.Status)
	assert.Equal(t, 3, completed.ReferenceMonth)

	require.NotNil(t, completed.PISCOFINSCost)
	assert.InDelta(t, 6.50, *completed.PISCOFINSCost, 1e-9)
	require.NotNil(t, completed.TariffFlagCost)
	assert.InDelta(t, 18, *completed.TariffFlagCost, 1e-9)
	require.NotNil(t, completed.EstimatedSavings)
	assert.InDelta(t, 380*0.75, *completed.EstimatedSavings, 1e-9)
	assert.Nil(t, completed.AIAnalysis)

	assert.NotNil(t, store.raw, "raw extraction must be saved")
}

func TestRunFullModePersistsNarrative(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	narrator := &fakeNarrator{result: &entity.NarrativeResult{
		ExecutiveSummary: "Conta sob controle.",
		Alerts: []entity.Alert{
			{Icon: "✅", Title: "Compensação total", Description: "Créditos cobriram o consumo."},
		},
		Metrics:   entity.NarrativeMetrics{SavingsThisMonth: f(312.5)},
		BillScore: entity.BillScore{Value: 88, Label: "Muito Bom"},
	}}
	p := New(&fakeExtractor{record: sampleRecord()}, narrator, store, nil, metrics.Sizing{}, time.Minute, nil)

	result := p.Run(context.Background(), validRequest(ModeFull))

	require.NoError(t, result.Err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.True(t, narrator.called)
	require.NotNil(t, result.Narrative)

	completed, _ := store.snapshot()
	require.NotNil(t, completed)
	require.NotNil(t, completed.AIAnalysis)
	assert.Equal(t, "Conta sob controle.", *completed.AIAnalysis)
	require.NotNil(t, completed.BillScore)
	assert.InDelta(t, 88, *completed.BillScore, 1e-9)
	require.NotNil(t, completed.EstimatedSavings)
	assert.InDelta(t, 312.5, *completed.EstimatedSavings, 1e-9)
	assert.Equal(t, []string{"✅ Compensação total: Créditos cobriram o consumo."}, completed.Alerts)
}

func TestRunExtractionFailureIsTerminal(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p := New(&fakeExtractor{err: errors.New("llm status 503")}, &fakeNarrator{}, store, nil, metrics.Sizing{}, time.Minute, nil)

	result := p.Run(context.Background(), validRequest(ModeQuick))

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, constants.StepError, result.Step)
	require.Error(t, result.Err)

	completed, errorMsg := store.snapshot()
	assert.Nil(t, completed)
	assert.Contains(t, errorMsg, "503")
}

func TestRunNarrativeTransportFailureIsTerminal(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	p := New(&fakeExtractor{record: sampleRecord()}, &fakeNarrator{err: errors.New("llm status 500")}, store, nil, metrics.Sizing{}, time.Minute, nil)

	result := p.Run(context.Background(), validRequest(ModeFull))

	assert.Equal(t, OutcomeFailed, result.Outcome)
	_, errorMsg := store.snapshot()
	assert.Contains(t, errorMsg, "500")
}

func TestRunResolvesBaselineFromProperty(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	props := &fakeProperties{baseline: 500}
	p := New(&fakeExtractor{record: sampleRecord()}, &fakeNarrator{}, store, props, metrics.Sizing{}, time.Minute, nil)

	req := validRequest(ModeQuick)
	req.ExpectedGenerationKwh = 0
	result := p.Run(context.Background(), req)

	require.NoError(t, result.Err)
	assert.True(t, props.asked)
	assert.InDelta(t, 500, result.Metrics.ExpectedGeneration, 1e-9)
	assert.InDelta(t, 80, result.Metrics.GenerationEfficiency, 1e-9)
}

func TestRunCallerBaselineWins(t *testing.T) {
	t.Parallel()

	props := &fakeProperties{baseline: 999}
	p := New(&fakeExtractor{record: sampleRecord()}, &fakeNarrator{}, &fakeStore{}, props, metrics.Sizing{}, time.Minute, nil)

	req := validRequest(ModeQuick)
	req.ExpectedGenerationKwh = 450
	result := p.Run(context.Background(), req)

	require.NoError(t, result.Err)
	assert.False(t, props.asked)
	assert.InDelta(t, 450, result.Metrics.ExpectedGeneration, 1e-9)
}

func TestRunSoftTimeoutHandsOff(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	store := &fakeStore{}
	p := New(&fakeExtractor{record: sampleRecord(), release: release}, &fakeNarrator{}, store, nil, metrics.Sizing{}, 20*time.Millisecond, nil)

	result := p.Run(context.Background(), validRequest(ModeQuick))

	assert.Equal(t, OutcomeProcessing, result.Outcome)
	assert.NotEqual(t, uuid.Nil, result.AnalysisID)
	assert.Nil(t, result.Record)

	completed, _ := store.snapshot()
	assert.Nil(t, completed, "terminal write must not have happened yet")

	close(release)
	p.Wait()

	completed, _ = store.snapshot()
	require.NotNil(t, completed, "background run must still persist terminally")
	assert.Equal(t, constants.AnalysisCompleted, completed.Status)
}

func TestRunSurvivesRawSaveFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{rawErr: errors.New("disk full")}
	p := New(&fakeExtractor{record: sampleRecord()}, &fakeNarrator{}, store, nil, metrics.Sizing{}, time.Minute, nil)

	result := p.Run(context.Background(), validRequest(ModeQuick))

	require.NoError(t, result.Err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	legal := []struct{ from, to constants.PipelineStep }{
		{constants.StepIdle, constants.StepUploading},
		{constants.StepUploading, constants.StepExtracting},
		{constants.StepExtracting, constants.StepCalculating},
		{constants.StepExtracting, constants.StepAnalyzing},
		{constants.StepCalculating, constants.StepCompleted},
		{constants.StepAnalyzing, constants.StepCompleted},
		{constants.StepExtracting, constants.StepError},
		{constants.StepIdle, constants.StepError},
	}
	for _, tr := range legal {
		assert.True(t, CanTransition(tr.from, tr.to), "%s -> %s should be legal", tr.from, tr.to)
	}

	illegal := []struct{ from, to constants.PipelineStep }{
		{constants.StepIdle, constants.StepExtracting},
		{constants.StepExtracting, constants.StepCompleted},
		{constants.StepCompleted, constants.StepError},
		{constants.StepError, constants.StepUploading},
		{constants.StepCompleted, constants.StepIdle},
		{constants.StepCalculating, constants.StepAnalyzing},
	}
	for _, tr := range illegal {
		assert.False(t, CanTransition(tr.from, tr.to), "%s -> %s should be illegal", tr.from, tr.to)
	}
}
