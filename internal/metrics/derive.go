// Package metrics is the single home of the derivation math. Every entry
// point (pipeline, chat context, exports) calls Derive; nothing recomputes
// these figures on its own.
package metrics

import (
	"math"

	"github.com/solo-energia/bill-clarifier/internal/entity"
)

// Solar sizing constants for expansion estimates.
const (
	// DefaultMonthlyYieldPerKwp is the assumed regional yield in kWh per
	// installed kWp per month.
	DefaultMonthlyYieldPerKwp = 150.0
	// DefaultModuleWatts is the assumed nominal panel size.
	DefaultModuleWatts = 400.0
)

// Sizing carries the expansion-estimate assumptions. Zero values fall back to
// the package defaults.
type Sizing struct {
	MonthlyYieldPerKwp float64
	ModuleWatts        float64
}

func (s Sizing) yield() float64 {
	if s.MonthlyYieldPerKwp > 0 {
		return s.MonthlyYieldPerKwp
	}
	return DefaultMonthlyYieldPerKwp
}

func (s Sizing) moduleKwp() float64 {
	if s.ModuleWatts > 0 {
		return s.ModuleWatts / 1000
	}
	return DefaultModuleWatts / 1000
}

// Derive computes the ClarifierResult for one bill. Pure and synchronous.
//
// monitoredGeneration is the user's inverter-app reading and is authoritative;
// the bill rarely states generation directly and OCR output is never trusted
// for it. expectedGeneration is the project baseline; when absent or zero the
// monitored value stands in, so a system with no configured baseline is never
// reported as underperforming against nothing.
//
// Every subtraction is clamped at zero before later steps, and divisions only
// run on strictly positive numerators, so no negative or non-finite value
// ever reaches a displayed figure.
func Derive(record *entity.BillRecord, monitoredGeneration, expectedGeneration float64, sizing Sizing) entity.ClarifierResult {
	availability := entity.Num(record.AvailabilityCost, 0)
	publicLighting := entity.Num(record.PublicLightingCost, 0)
	minimumPossible := availability + publicLighting

	totalPaid := entity.Num(record.TotalAmount, 0)
	uncompensated := math.Max(0, totalPaid-minimumPossible)

	generated := monitoredGeneration
	injected := entity.Num(record.InjectedEnergyKwh, 0)
	compensated := entity.Num(record.CompensatedEnergyKwh, 0)
	creditsBalance := entity.Num(record.CurrentCreditsKwh, 0)

	expected := expectedGeneration
	if expected <= 0 {
		expected = generated
	}

	billedConsumption := entity.Num(record.BilledConsumptionKwh, entity.Num(record.MeasuredConsumptionKwh, 0))

	energyStillNeeded := math.Max(0, billedConsumption-compensated)

	var status entity.SystemStatus
	switch {
	case generated >= energyStillNeeded:
		status = entity.StatusAdequate
	case generated >= 0.8*energyStillNeeded:
		status = entity.StatusSlightlyBelow
	default:
		status = entity.StatusBelowNeeded
	}

	extraNeeded := math.Max(0, energyStillNeeded-generated)

	result := entity.ClarifierResult{
		TotalPaid:         totalPaid,
		MinimumPossible:   minimumPossible,
		UncompensatedCost: uncompensated,

		Generated:      generated,
		Injected:       injected,
		Compensated:    compensated,
		CreditsBalance: creditsBalance,

		ExpectedGeneration: expected,
		ActualGeneration:   generated,
		GenerationGap:      math.Max(0, expected-generated),

		SystemStatus:          status,
		ExtraGenerationNeeded: extraNeeded,

		RealConsumptionKwh:   billedConsumption + compensated,
		GenerationEfficiency: efficiency(generated, expected),
		SelfConsumptionRate:  selfConsumption(generated, injected),
	}

	if extraNeeded > 0 {
		kwp := extraNeeded / sizing.yield()
		modules := int(math.Ceil(kwp / sizing.moduleKwp()))
		result.ExpansionKwp = &kwp
		result.ExpansionModules = &modules
	}

	return result
}

// efficiency is generated over expected as a percentage. Zero expected means
// no baseline to measure against, reported as zero rather than infinity.
func efficiency(generated, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	return generated / expected * 100
}

// selfConsumption is the share of generation used on-site instead of injected
// into the grid, clamped to [0, 100] because meter timing can make injected
// readings exceed the monitored generation for the same period.
func selfConsumption(generated, injected float64) float64 {
	if generated <= 0 {
		return 0
	}
	rate := (generated - injected) / generated * 100
	return math.Min(100, math.Max(0, rate))
}
