package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/solo-energia/bill-clarifier/internal/history"
)

var flagOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exporta o histórico local para uma planilha XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(historyPath)
		if err != nil {
			return fmt.Errorf("abrir histórico: %w", err)
		}
		defer store.Close()

		entries, err := store.List(cmd.Context(), 0)
		if err != nil {
			return err
		}

		f := excelize.NewFile()
		const sheet = "Histórico"
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}

		headers := []string{
			"Data", "Referência", "Total (R$)", "Mínimo Possível (R$)",
			"Não Compensado (R$)", "Geração (kWh)", "Eficiência (%)",
			"Situação", "Nota", "Arquivo",
		}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			_ = f.SetCellValue(sheet, cell, h)
		}

		for row, e := range entries {
			values := []any{
				e.AnalyzedAt.Format("2006-01-02"),
				fmt.Sprintf("%02d/%d", e.ReferenceMonth, e.ReferenceYear),
				e.TotalAmount, e.MinimumPossible, e.UncompensatedCost,
				e.MonitoredGeneration, e.GenerationEfficiency,
				e.SystemStatus, e.BillScore, e.FilePath,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				_ = f.SetCellValue(sheet, cell, v)
			}
		}

		if err := f.SaveAs(flagOut); err != nil {
			return fmt.Errorf("salvar planilha: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exportado %d registro(s) para %s\n", len(entries), flagOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&flagOut, "out", "clarifier-historico.xlsx", "arquivo de saída")
	rootCmd.AddCommand(exportCmd)
}
