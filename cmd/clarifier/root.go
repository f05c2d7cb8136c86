package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	logger      *slog.Logger
	historyPath string
)

var rootCmd = &cobra.Command{
	Use:   "clarifier",
	Short: "Analisa contas de energia de unidades com geração solar",
	Long:  "Extrai os dados de uma conta de luz brasileira com um modelo de visão, calcula as métricas derivadas (mínimo possível, custo não compensado, adequação do sistema) e mantém um histórico local das análises.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "clarifier-history.db"
	}
	return filepath.Join(home, ".bill-clarifier", "history.db")
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "log de depuração")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history-db", defaultHistoryPath(), "caminho do histórico local")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
