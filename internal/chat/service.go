// Package chat answers free-text questions about one stored bill analysis.
// It is a side entry into the same data the pipeline produced: the stored row
// plus the raw extraction, with the minimum-possible and uncompensated
// figures recomputed rather than trusted from storage.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/solo-energia/bill-clarifier/internal/common"
	"github.com/solo-energia/bill-clarifier/internal/entity"
	"github.com/solo-energia/bill-clarifier/internal/llm"
	"github.com/solo-energia/bill-clarifier/internal/repository"
)

// Message is one turn of the conversation, client-supplied.
type Message struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}

// Service streams consultant answers grounded in a stored analysis.
type Service struct {
	analyses    repository.AnalysisRepository
	client      llm.ChatClient
	model       string
	temperature float32
	maxTokens   int
	log         *slog.Logger
}

func NewService(analyses repository.AnalysisRepository, client llm.ChatClient, model string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		analyses:    analyses,
		client:      client,
		model:       model,
		temperature: 0.7,
		maxTokens:   2000,
		log:         logger,
	}
}

// Stream loads the analysis, builds the grounded system prompt, and returns
// the raw SSE body from the model for passthrough. The caller owns closing
// the stream.
func (s *Service) Stream(ctx context.Context, analysisID uuid.UUID, history []Message) (io.ReadCloser, error) {
	if analysisID == uuid.Nil {
		return nil, common.InvalidInputError("analysis id is required")
	}
	if len(history) == 0 {
		return nil, common.InvalidInputError("at least one message is required")
	}

	analysis, err := s.analyses.GetByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	// Raw extraction is extra grounding, not a requirement.
	raw, err := s.analyses.GetRawExtraction(ctx, analysisID)
	if err != nil {
		s.log.Debug("chat.raw_unavailable", "analysis_id", analysisID, "error", err)
		raw = nil
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.TextMessage(llm.RoleSystem, SystemPrompt(analysis, raw)))
	for _, m := range history {
		role := m.Role
		if role != llm.RoleAssistant {
			role = llm.RoleUser
		}
		messages = append(messages, llm.TextMessage(role, m.Content))
	}

	s.log.Info("chat.stream", "analysis_id", analysisID, "turns", len(history))
	return s.client.Stream(ctx, llm.CompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		Messages:    messages,
	})
}

// SystemPrompt grounds the consultant in the stored bill. The two derived
// money figures are recomputed here so the chat never repeats a stale or
// manually edited stored value.
func SystemPrompt(a *entity.BillAnalysis, raw json.RawMessage) string {
	minimumPossible := entity.Num(a.AvailabilityCost, 0) + entity.Num(a.PublicLightingCost, 0)
	uncompensated := entity.Num(a.TotalAmount, 0) - minimumPossible
	if uncompensated < 0 {
		uncompensated = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Você é um consultor de energia solar especializado em contas de luz brasileiras.
O cliente enviou uma conta de energia e você tem acesso a todos os dados extraídos dela.

DADOS DA CONTA DO CLIENTE:
- Distribuidora: %s
- Mês de referência: %d/%d
- Titular: %s
- Número UC: %s

VALORES DA CONTA:
- Valor Total Pago: R$ %.2f
- Valor Mínimo Possível: R$ %.2f (Disponibilidade + CIP)
- Custo não compensado: R$ %.2f
- Custo de Disponibilidade: R$ %.2f
- Iluminação Pública (CIP): R$ %.2f
- Custo de Energia: R$ %.2f
- ICMS: R$ %.2f
- PIS/COFINS: R$ %.2f
- Bandeira Tarifária: %s

DADOS SOLARES:
- Geração Monitorada: %.0f kWh
- Energia Injetada na Rede: %.0f kWh
- Energia Compensada: %.0f kWh
- Consumo Faturado: %.0f kWh
- Saldo de Créditos: %.0f kWh
`,
		strOr(a.Distributor, "Não identificada"),
		a.ReferenceMonth, a.ReferenceYear,
		strOr(a.AccountHolder, "Não identificado"),
		strOr(a.AccountNumber, "—"),
		entity.Num(a.TotalAmount, 0),
		minimumPossible,
		uncompensated,
		entity.Num(a.AvailabilityCost, 0),
		entity.Num(a.PublicLightingCost, 0),
		entity.Num(a.EnergyCost, 0),
		entity.Num(a.ICMSCost, 0),
		entity.Num(a.PISCOFINSCost, 0),
		strOr(a.TariffFlag, "Não identificada"),
		a.MonitoredGenerationKwh,
		entity.Num(a.InjectedEnergyKwh, 0),
		entity.Num(a.CompensatedEnergyKwh, 0),
		entity.Num(a.BilledConsumptionKwh, 0),
		entity.Num(a.CurrentCreditsKwh, 0),
	)

	if len(raw) > 0 {
		fmt.Fprintf(&b, "\nDADOS BRUTOS EXTRAÍDOS:\n%s\n", raw)
	}

	b.WriteString(`
REGRAS IMPORTANTES:
1. Seja didático e use linguagem simples, acessível para leigos
2. SEMPRE relacione suas respostas aos dados reais da conta do cliente (cite valores específicos)
3. Se não souber algo ou não encontrar na conta, diga claramente
4. Sugira ações práticas quando apropriado
5. Use emojis ocasionalmente para tornar a conversa mais amigável
6. Mantenha respostas concisas (máximo 3 parágrafos) a menos que o cliente peça detalhes
7. Quando falar de valores, sempre use R$ e formate corretamente
8. Lembre-se: energia solar NÃO zera a conta, ela reduz o consumo cobrado

CONCEITOS IMPORTANTES QUE VOCÊ DEVE EXPLICAR CORRETAMENTE:
- Custo de Disponibilidade: Taxa mínima que a distribuidora cobra para manter a conexão ativa
- CIP/COSIP: Contribuição de Iluminação Pública, cobrada pelo município
- Energia Injetada: Energia que o sistema solar enviou para a rede
- Energia Compensada: Energia da rede que foi "descontada" graças aos créditos solares
- Créditos de Energia: Saldo de energia injetada que pode ser usado nos próximos 60 meses
- Bandeira Tarifária: Adicional cobrado quando há escassez de energia (verde=sem adicional, amarela/vermelha=adicional)`)

	return b.String()
}

func strOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
