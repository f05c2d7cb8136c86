// Package narrative runs the specialist stage: a prose reading of the bill
// for the account holder. It is best-effort by design; the numeric result is
// the load-bearing output and a failed narrative never fails the pipeline.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/solo-energia/bill-clarifier/constants"
	"github.com/solo-energia/bill-clarifier/internal/entity"
	"github.com/solo-energia/bill-clarifier/internal/extract"
	"github.com/solo-energia/bill-clarifier/internal/llm"
)

// savingsTariffEstimate approximates the R$/kWh value of compensated energy
// when the model gives no savings figure of its own.
const savingsTariffEstimate = 0.75

// Narrator produces the specialist narrative for one analyzed bill.
type Narrator struct {
	client      llm.ChatClient
	model       string
	temperature float32
	maxTokens   int
	log         *slog.Logger
}

func NewNarrator(client llm.ChatClient, model string, temperature float32, maxTokens int, logger *slog.Logger) *Narrator {
	if logger == nil {
		logger = slog.Default()
	}
	if temperature <= 0 {
		temperature = 0.7
	}
	return &Narrator{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		log:         logger,
	}
}

// Narrate generates the full specialist report. Transport errors propagate so
// the caller can decide what a missing narrative means for its mode; a reply
// that cannot be parsed degrades to Fallback instead.
func (n *Narrator) Narrate(ctx context.Context, record *entity.BillRecord, derived entity.ClarifierResult) (*entity.NarrativeResult, error) {
	prompt, err := buildPrompt(record, derived)
	if err != nil {
		return nil, err
	}

	content, err := n.client.Complete(ctx, llm.CompletionRequest{
		Model:       n.model,
		Temperature: n.temperature,
		MaxTokens:   n.maxTokens,
		Messages: []llm.Message{
			llm.TextMessage(llm.RoleSystem, prompt),
			llm.TextMessage(llm.RoleUser, analystCaption),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("narrative call: %w", err)
	}

	cleaned := extract.StripCodeFences(content)

	var result entity.NarrativeResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		n.log.Warn("narrative.parse_failed",
			"error", err,
			"content_bytes", len(content),
		)
		return Fallback(record, derived), nil
	}
	return &result, nil
}

// buildPrompt appends the extracted record and the monitoring figures to the
// fixed instruction set.
func buildPrompt(record *entity.BillRecord, derived entity.ClarifierResult) (string, error) {
	recordJSON, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record for prompt: %w", err)
	}

	return fmt.Sprintf(`%s

DADOS EXTRAÍDOS DA CONTA:
%s

DADOS DO MONITORAMENTO SOLAR:
- Geração monitorada no período: %.1f kWh
- Geração esperada (projeto): %.1f kWh
- Eficiência calculada: %.1f%%
- Taxa de autoconsumo: %.1f%%
- Consumo real estimado: %.1f kWh

%s`,
		analystPromptHeader,
		recordJSON,
		derived.Generated,
		derived.ExpectedGeneration,
		derived.GenerationEfficiency,
		derived.SelfConsumptionRate,
		derived.RealConsumptionKwh,
		analystPromptContract,
	), nil
}

// Fallback is the minimal narrative used when the model reply cannot be
// parsed: generic summary, neutral score, and the locally computed metrics so
// the result page still shows real numbers.
func Fallback(record *entity.BillRecord, derived entity.ClarifierResult) *entity.NarrativeResult {
	savings := entity.Num(record.CompensatedEnergyKwh, 0) * savingsTariffEstimate
	efficiency := derived.GenerationEfficiency
	selfRate := derived.SelfConsumptionRate

	return &entity.NarrativeResult{
		ExecutiveSummary: "Não foi possível gerar a análise completa. Por favor, tente novamente.",
		Explanations:     entity.Explanations{},
		Alerts:           []entity.Alert{},
		Metrics: entity.NarrativeMetrics{
			SolarEfficiency:     &efficiency,
			SelfConsumptionRate: &selfRate,
			SavingsThisMonth:    &savings,
		},
		Recommendations: []entity.Recommendation{},
		BillScore: entity.BillScore{
			Value:   50,
			Label:   "Indisponível",
			Factors: []string{"Análise não pôde ser concluída"},
		},
	}
}

// QuickAlerts builds the rule-based alert list used in quick mode, where no
// specialist call runs: low generation efficiency, late-payment charges, and
// a red tariff flag.
func QuickAlerts(record *entity.BillRecord, derived entity.ClarifierResult) []entity.Alert {
	var alerts []entity.Alert

	if derived.GenerationEfficiency > 0 && derived.GenerationEfficiency < 80 {
		alerts = append(alerts, entity.Alert{
			Type:        entity.AlertWarning,
			Icon:        "⚠️",
			Title:       "Geração abaixo do esperado",
			Description: fmt.Sprintf("Seu sistema gerou %.0f%% do esperado neste período.", derived.GenerationEfficiency),
			Action:      "Verifique se há sujeira ou sombreamento nos painéis.",
		})
	}

	fines := entity.Num(record.FinesAmount, 0) + entity.Num(record.InterestAmount, 0)
	if fines > 0 {
		alerts = append(alerts, entity.Alert{
			Type:        entity.AlertError,
			Icon:        "🚨",
			Title:       "Multas ou juros na conta",
			Description: fmt.Sprintf("Foram cobrados R$ %.2f em multas e juros por atraso.", fines),
			Action:      "Pague em dia para evitar cobranças extras.",
		})
	}

	if record.TariffFlag != nil && constants.IsRedFlag(*record.TariffFlag) {
		alerts = append(alerts, entity.Alert{
			Type:        entity.AlertWarning,
			Icon:        "🚩",
			Title:       "Bandeira vermelha em vigor",
			Description: "A bandeira tarifária vermelha encarece cada kWh consumido da rede.",
			Action:      "Priorize o consumo durante a geração solar.",
		})
	}

	return alerts
}
