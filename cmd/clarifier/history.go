package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solo-energia/bill-clarifier/internal/history"
)

var flagLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lista as análises feitas nesta máquina",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(historyPath)
		if err != nil {
			return fmt.Errorf("abrir histórico: %w", err)
		}
		defer store.Close()

		entries, err := store.List(cmd.Context(), flagLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nenhuma análise registrada.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATA\tREFERÊNCIA\tTOTAL\tMÍNIMO\tEFICIÊNCIA\tSITUAÇÃO\tARQUIVO")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%02d/%d\tR$ %.2f\tR$ %.2f\t%.0f%%\t%s\t%s\n",
				e.AnalyzedAt.Format("2006-01-02"),
				e.ReferenceMonth, e.ReferenceYear,
				e.TotalAmount, e.MinimumPossible,
				e.GenerationEfficiency, e.SystemStatus, e.FilePath,
			)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "quantidade máxima de registros")
	rootCmd.AddCommand(historyCmd)
}
