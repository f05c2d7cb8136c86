package narrative

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solo-energia/bill-clarifier/internal/entity"
	"github.com/solo-energia/bill-clarifier/internal/llm"
)

type fakeChat struct {
	content string
	err     error
	gotReq  llm.CompletionRequest
}

func (f *fakeChat) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.gotReq = req
	return f.content, f.err
}

func (f *fakeChat) Stream(context.Context, llm.CompletionRequest) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func f64(v float64) *float64 { return &v }

const narrativeReply = `{
	"executive_summary": "Sua conta está sob controle e o sistema solar cobriu a maior parte do consumo.",
	"explanations": {
		"consumption": {"title": "Seu Consumo de Energia", "description": "Você consumiu 450 kWh."},
		"icms": {"what_is": "Imposto estadual sobre energia.", "your_value": "R$ 0,00 graças à compensação."}
	},
	"alerts": [
		{"type": "success", "icon": "✅", "title": "Compensação total", "description": "Seus créditos zeraram a energia."}
	],
	"metrics": {"savings_this_month": 312.5, "solar_efficiency": 95.2},
	"recommendations": [
		{"priority": "baixa", "title": "Limpeza dos painéis", "description": "Agende limpeza semestral."}
	],
	"bill_score": {"value": 88, "label": "Muito Bom", "factors": ["compensação total", "sem multas"]}
}`

func TestNarrateParsesReply(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{content: narrativeReply}
	n := NewNarrator(chat, "gpt-4o", 0.7, 4000, nil)

	record := &entity.BillRecord{CompensatedEnergyKwh: f64(380)}
	derived := entity.ClarifierResult{Generated: 400, ExpectedGeneration: 420}

	result, err := n.Narrate(context.Background(), record, derived)
	require.NoError(t, err)

	assert.Contains(t, result.ExecutiveSummary, "sob controle")
	require.NotNil(t, result.Explanations.Consumption)
	assert.Equal(t, "Seu Consumo de Energia", result.Explanations.Consumption.Title)
	require.NotNil(t, result.Explanations.ICMS)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, entity.AlertSuccess, result.Alerts[0].Type)
	require.NotNil(t, result.Metrics.SavingsThisMonth)
	assert.InDelta(t, 312.5, *result.Metrics.SavingsThisMonth, 1e-9)
	assert.InDelta(t, 88, result.BillScore.Value, 1e-9)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "baixa", result.Recommendations[0].Priority)
}

func TestNarrateRequestShape(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{content: "{}"}
	n := NewNarrator(chat, "gpt-4o", 0.7, 4000, nil)

	derived := entity.ClarifierResult{
		Generated:            400,
		ExpectedGeneration:   450,
		GenerationEfficiency: 88.9,
	}
	_, err := n.Narrate(context.Background(), &entity.BillRecord{}, derived)
	require.NoError(t, err)

	req := chat.gotReq
	assert.Equal(t, "gpt-4o", req.Model)
	assert.InDelta(t, 0.7, float64(req.Temperature), 1e-6)
	require.Len(t, req.Messages, 2)

	system, ok := req.Messages[0].Content.(string)
	require.True(t, ok)
	assert.Contains(t, system, "DADOS EXTRAÍDOS DA CONTA")
	assert.Contains(t, system, "Geração monitorada no período: 400.0 kWh")
	assert.Contains(t, system, "executive_summary")
}

func TestNarrateFallsBackOnUnparseableReply(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{content: "Desculpe, não consegui gerar o relatório."}
	n := NewNarrator(chat, "gpt-4o", 0.7, 4000, nil)

	record := &entity.BillRecord{CompensatedEnergyKwh: f64(380)}
	derived := entity.ClarifierResult{GenerationEfficiency: 91.5, SelfConsumptionRate: 40}

	result, err := n.Narrate(context.Background(), record, derived)
	require.NoError(t, err)

	assert.Contains(t, result.ExecutiveSummary, "Não foi possível")
	assert.Empty(t, result.Alerts)
	assert.Empty(t, result.Recommendations)
	assert.InDelta(t, 50, result.BillScore.Value, 1e-9)
	assert.Equal(t, "Indisponível", result.BillScore.Label)

	require.NotNil(t, result.Metrics.SavingsThisMonth)
	assert.InDelta(t, 380*0.75, *result.Metrics.SavingsThisMonth, 1e-9)
	require.NotNil(t, result.Metrics.SolarEfficiency)
	assert.InDelta(t, 91.5, *result.Metrics.SolarEfficiency, 1e-9)
}

func TestNarratePropagatesTransportError(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: errors.New("llm status 500")}
	n := NewNarrator(chat, "gpt-4o", 0.7, 4000, nil)

	_, err := n.Narrate(context.Background(), &entity.BillRecord{}, entity.ClarifierResult{})
	require.Error(t, err)
}

func TestQuickAlerts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		record     *entity.BillRecord
		derived    entity.ClarifierResult
		wantTitles []string
	}{
		{
			name:    "clean bill",
			record:  &entity.BillRecord{},
			derived: entity.ClarifierResult{GenerationEfficiency: 95},
		},
		{
			name:       "low efficiency",
			record:     &entity.BillRecord{},
			derived:    entity.ClarifierResult{GenerationEfficiency: 72},
			wantTitles: []string{"Geração abaixo do esperado"},
		},
		{
			name:       "fines present",
			record:     &entity.BillRecord{FinesAmount: f64(12.50), InterestAmount: f64(3.10)},
			wantTitles: []string{"Multas ou juros na conta"},
		},
		{
			name:       "red flag spelled by the distributor",
			record:     &entity.BillRecord{TariffFlag: strPtr("Bandeira Vermelha - Patamar 2")},
			wantTitles: []string{"Bandeira vermelha em vigor"},
		},
		{
			name:   "green flag raises nothing",
			record: &entity.BillRecord{TariffFlag: strPtr("verde")},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			alerts := QuickAlerts(tt.record, tt.derived)
			require.Len(t, alerts, len(tt.wantTitles))
			for i, want := range tt.wantTitles {
				assert.Equal(t, want, alerts[i].Title)
			}
		})
	}
}

func TestAlertStrings(t *testing.T) {
	t.Parallel()

	n := entity.NarrativeResult{Alerts: []entity.Alert{
		{Icon: "⚠️", Title: "Geração baixa", Description: "Sistema gerou 70% do esperado."},
		{Title: "Sem multas", Description: "Conta em dia."},
	}}

	assert.Equal(t, []string{
		"⚠️ Geração baixa: Sistema gerou 70% do esperado.",
		"Sem multas: Conta em dia.",
	}, n.AlertStrings())
}

func strPtr(s string) *string { return &s }
