package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/solo-energia/bill-clarifier/constants"
	"github.com/solo-energia/bill-clarifier/internal/common"
	"github.com/solo-energia/bill-clarifier/internal/entity"
	"github.com/solo-energia/bill-clarifier/internal/extract"
	"github.com/solo-energia/bill-clarifier/internal/history"
	"github.com/solo-energia/bill-clarifier/internal/llm"
	"github.com/solo-energia/bill-clarifier/internal/metrics"
	"github.com/solo-energia/bill-clarifier/internal/narrative"
)

var (
	flagGeneration float64
	flagExpected   float64
	flagQuick      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <arquivo>",
	Short: "Analisa uma conta de energia a partir de uma imagem ou PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagGeneration <= 0 {
			return fmt.Errorf("--generation é obrigatório (leitura do aplicativo do inversor, em kWh)")
		}

		path := args[0]
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("ler arquivo: %w", err)
		}

		cfg := common.LoadConfig()
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY não configurada")
		}

		client := llm.NewClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}, logger)
		extractor := extract.NewExtractor(client, cfg.LLM.ExtractionModel, cfg.LLM.MaxTokens, logger)

		ctx := cmd.Context()
		rec, err := extractor.Extract(ctx, extract.ImageInput{
			Bytes:    raw,
			MimeType: constants.MimeFromExtension(filepath.Ext(path)),
		})
		if err != nil {
			return fmt.Errorf("extração: %w", err)
		}

		sizing := metrics.Sizing{
			MonthlyYieldPerKwp: cfg.Solar.MonthlyYieldPerKwp,
			ModuleWatts:        cfg.Solar.ModuleWatts,
		}
		derived := metrics.Derive(rec, flagGeneration, flagExpected, sizing)

		var result *entity.NarrativeResult
		if !flagQuick {
			narrator := narrative.NewNarrator(client, cfg.LLM.NarrativeModel, cfg.LLM.NarrativeTemperature, cfg.LLM.MaxTokens, logger)
			result, err = narrator.Narrate(ctx, rec, derived)
			if err != nil {
				return fmt.Errorf("análise especialista: %w", err)
			}
		}

		printSummary(cmd, rec, derived, result)
		recordHistory(cmd, path, rec, derived, result)
		return nil
	},
}

func printSummary(cmd *cobra.Command, rec *entity.BillRecord, d entity.ClarifierResult, n *entity.NarrativeResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Confiança da extração: %.0f%%\n", rec.Confidence())
	if len(rec.FieldsNotFound) > 0 {
		fmt.Fprintf(out, "Campos não encontrados: %d\n", len(rec.FieldsNotFound))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Valor total pago:        R$ %.2f\n", d.TotalPaid)
	fmt.Fprintf(out, "Mínimo possível:         R$ %.2f\n", d.MinimumPossible)
	fmt.Fprintf(out, "Custo não compensado:    R$ %.2f\n", d.UncompensatedCost)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Geração monitorada:      %.0f kWh\n", d.Generated)
	fmt.Fprintf(out, "Energia compensada:      %.0f kWh\n", d.Compensated)
	fmt.Fprintf(out, "Saldo de créditos:       %.0f kWh\n", d.CreditsBalance)
	fmt.Fprintf(out, "Eficiência de geração:   %.1f%%\n", d.GenerationEfficiency)
	fmt.Fprintf(out, "Situação do sistema:     %s\n", statusLabel(d.SystemStatus))

	if d.ExpansionKwp != nil && d.ExpansionModules != nil {
		fmt.Fprintf(out, "Expansão sugerida:       %.2f kWp (%d módulo(s))\n",
			*d.ExpansionKwp, *d.ExpansionModules)
	}

	if n != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Nota da conta: %.0f (%s)\n", n.BillScore.Value, n.BillScore.Label)
		fmt.Fprintln(out, n.ExecutiveSummary)
		for _, a := range n.Alerts {
			fmt.Fprintf(out, "  %s %s: %s\n", a.Icon, a.Title, a.Description)
		}
	}
}

func statusLabel(s entity.SystemStatus) string {
	switch s {
	case entity.StatusAdequate:
		return "adequado"
	case entity.StatusSlightlyBelow:
		return "pouco abaixo do necessário"
	default:
		return "abaixo do necessário"
	}
}

func recordHistory(cmd *cobra.Command, path string, rec *entity.BillRecord, d entity.ClarifierResult, n *entity.NarrativeResult) {
	if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
		logger.Warn("history dir unavailable", "error", err)
		return
	}
	store, err := history.Open(historyPath)
	if err != nil {
		logger.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()

	entry := history.Entry{
		FilePath:             path,
		ReferenceMonth:       intVal(rec.ReferenceMonth),
		ReferenceYear:        intVal(rec.ReferenceYear),
		TotalAmount:          d.TotalPaid,
		MinimumPossible:      d.MinimumPossible,
		UncompensatedCost:    d.UncompensatedCost,
		MonitoredGeneration:  d.Generated,
		GenerationEfficiency: d.GenerationEfficiency,
		SystemStatus:         string(d.SystemStatus),
	}
	if n != nil {
		entry.BillScore = n.BillScore.Value
	}
	if err := store.Record(cmd.Context(), entry); err != nil {
		logger.Warn("history record failed", "error", err)
	}
}

func intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func init() {
	analyzeCmd.Flags().Float64Var(&flagGeneration, "generation", 0, "geração monitorada no período, em kWh (obrigatório)")
	analyzeCmd.Flags().Float64Var(&flagExpected, "expected", 0, "geração esperada do projeto, em kWh")
	analyzeCmd.Flags().BoolVar(&flagQuick, "quick", false, "pula a análise especialista")
	rootCmd.AddCommand(analyzeCmd)
}
