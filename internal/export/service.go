package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/solo-energia/bill-clarifier/internal/entity"
	"github.com/solo-energia/bill-clarifier/internal/repository"
)

// Service produces XLSX bytes for a property's analysis history.
type Service struct {
	analyses repository.AnalysisRepository
	logger   *slog.Logger
}

func NewService(analyses repository.AnalysisRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{analyses: analyses, logger: logger}
}

var headers = []string{
	"Referência",
	"Status",
	"Titular",
	"Distribuidora",
	"Valor Total (R$)",
	"Mínimo Possível (R$)",
	"Consumo Faturado (kWh)",
	"Geração Monitorada (kWh)",
	"Energia Compensada (kWh)",
	"Saldo de Créditos (kWh)",
	"Eficiência (%)",
	"Economia Estimada (R$)",
	"Nota",
	"Alertas",
}

// PropertyAnalysesXLSX returns a workbook with one row per analyzed bill of
// the property, newest first (the repository's list order).
func (s *Service) PropertyAnalysesXLSX(ctx context.Context, propertyID uuid.UUID) ([]byte, error) {
	start := time.Now()

	analyses, err := s.analyses.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Análises"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, a := range analyses {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		minimum := entity.Num(a.AvailabilityCost, 0) + entity.Num(a.PublicLightingCost, 0)

		write(1, fmt.Sprintf("%02d/%d", a.ReferenceMonth, a.ReferenceYear))
		write(2, string(a.Status))
		write(3, strOr(a.AccountHolder))
		write(4, strOr(a.Distributor))
		write(5, entity.Num(a.TotalAmount, 0))
		write(6, minimum)
		write(7, entity.Num(a.BilledConsumptionKwh, 0))
		write(8, a.MonitoredGenerationKwh)
		write(9, entity.Num(a.CompensatedEnergyKwh, 0))
		write(10, entity.Num(a.CurrentCreditsKwh, 0))
		write(11, entity.Num(a.GenerationEfficiency, 0))
		write(12, entity.Num(a.EstimatedSavings, 0))
		write(13, entity.Num(a.BillScore, 0))
		write(14, truncate(strings.Join(a.Alerts, " | "), 140))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "B", 12)
	_ = f.SetColWidth(sheet, "C", "D", 26)
	_ = f.SetColWidth(sheet, "E", "M", 16)
	_ = f.SetColWidth(sheet, "N", "N", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"property_id", propertyID.String(),
		"rows", len(analyses),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func strOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
