package pipeline

import (
	"encoding/json"

	"github.com/solo-energia/bill-clarifier/internal/entity"
)

// flatten maps the pipeline outputs onto the persisted analysis row. The row
// is a superset of the extracted record plus the derived columns; narrative
// columns stay empty in quick mode.
func flatten(req AnalyzeRequest, rec *entity.BillRecord, derived entity.ClarifierResult, narrative *entity.NarrativeResult, quickAlerts []string) *entity.BillAnalysis {
	row := &entity.BillAnalysis{
		ID:                     req.AnalysisID,
		PropertyID:             req.PropertyID,
		ReferenceMonth:         intOr(rec.ReferenceMonth, req.ReferenceMonth),
		ReferenceYear:          intOr(rec.ReferenceYear, req.ReferenceYear),
		BillFileURL:            strOrNil(req.FileURL),
		MonitoredGenerationKwh: req.MonitoredGenerationKwh,

		AccountHolder:        rec.AccountHolder,
		AccountNumber:        rec.AccountNumber,
		Distributor:          rec.Distributor,
		ConsumerClass:        rec.ConsumerClass,
		TariffModality:       rec.TariffModality,
		BillingDays:          rec.BillingDays,
		MeterReadingCurrent:  rec.MeterReadingCurrent,
		MeterReadingPrevious: rec.MeterReadingPrevious,

		BilledConsumptionKwh: firstNum(rec.BilledConsumptionKwh, rec.MeasuredConsumptionKwh),
		InjectedEnergyKwh:    rec.InjectedEnergyKwh,
		CompensatedEnergyKwh: rec.CompensatedEnergyKwh,
		PreviousCreditsKwh:   rec.PreviousCreditsKwh,
		CurrentCreditsKwh:    rec.CurrentCreditsKwh,

		TotalAmount:        rec.TotalAmount,
		EnergyCost:         rec.EnergyCost,
		AvailabilityCost:   rec.AvailabilityCost,
		PublicLightingCost: rec.PublicLightingCost,
		ICMSCost:           rec.ICMSCost,
		PISCost:            rec.PISCost,
		COFINSCost:         rec.COFINSCost,
		PISCOFINSCost:      sumNums(rec.PISCost, rec.COFINSCost),
		SectoralCharges:    rec.SectoralCharges,
		FineAmount:         rec.FinesAmount,
		InterestAmount:     rec.InterestAmount,
		TariffFlag:         rec.TariffFlag,
		TariffFlagCost:     mulNums(rec.TariffFlagValueKwh, rec.MeasuredConsumptionKwh),
		TariffTEValue:      rec.TariffTEKwh,
		TariffTUSDValue:    rec.TariffTUSDKwh,

		DemandContractedKw: rec.DemandContractedKw,
		DemandMeasuredKw:   rec.DemandMeasuredKw,

		RealConsumptionKwh:   ptr(derived.RealConsumptionKwh),
		GenerationEfficiency: ptr(derived.GenerationEfficiency),

		Alerts: quickAlerts,
	}

	if req.ExpectedGenerationKwh > 0 {
		row.ExpectedGenerationKwh = ptr(req.ExpectedGenerationKwh)
	}

	// Savings estimate: the specialist figure when present, otherwise the
	// compensated-energy approximation.
	savings := entity.Num(rec.CompensatedEnergyKwh, 0) * 0.75
	row.EstimatedSavings = &savings

	if narrative != nil {
		if narrative.Metrics.SavingsThisMonth != nil {
			row.EstimatedSavings = narrative.Metrics.SavingsThisMonth
		}
		row.BillScore = ptr(narrative.BillScore.Value)
		row.Alerts = narrative.AlertStrings()
		row.AIAnalysis = strOrNil(narrative.ExecutiveSummary)
		if raw, err := json.Marshal(narrative.Explanations); err == nil {
			row.AIExplanations = raw
		}
		if raw, err := json.Marshal(narrative.Recommendations); err == nil {
			row.AIRecommendations = raw
		}
	}

	if row.Alerts == nil {
		row.Alerts = []string{}
	}
	return row
}

func ptr(v float64) *float64 { return &v }

func intOr(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNum(ps ...*float64) *float64 {
	for _, p := range ps {
		if p != nil {
			return p
		}
	}
	return nil
}

func sumNums(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	v := entity.Num(a, 0) + entity.Num(b, 0)
	return &v
}

func mulNums(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a * *b
	return &v
}
