package entity

// SystemStatus classifies whether the solar system covers the billed need.
// It is recomputed on every derivation, never stored.
type SystemStatus string

const (
	StatusAdequate      SystemStatus = "adequate"
	StatusSlightlyBelow SystemStatus = "slightly_below"
	StatusBelowNeeded   SystemStatus = "below_needed"
)

// ClarifierResult is the derived view of one bill plus the caller-supplied
// generation figures. Immutable once computed; all monetary and energy fields
// are clamped non-negative.
type ClarifierResult struct {
	// Money
	TotalPaid         float64 `json:"total_paid"`
	MinimumPossible   float64 `json:"minimum_possible"`
	UncompensatedCost float64 `json:"uncompensated_cost"`

	// Energy (kWh). Generated comes from the user's inverter app reading,
	// not from the bill.
	Generated      float64 `json:"generated"`
	Injected       float64 `json:"injected"`
	Compensated    float64 `json:"compensated"`
	CreditsBalance float64 `json:"credits_balance"`

	// Performance vs the project baseline
	ExpectedGeneration float64 `json:"expected_generation"`
	ActualGeneration   float64 `json:"actual_generation"`
	GenerationGap      float64 `json:"generation_gap"`

	SystemStatus SystemStatus `json:"system_status"`

	// Expansion sizing, present only when extra generation is needed
	ExtraGenerationNeeded float64  `json:"extra_generation_needed"`
	ExpansionKwp          *float64 `json:"expansion_kwp,omitempty"`
	ExpansionModules      *int     `json:"expansion_modules,omitempty"`

	// Supporting figures persisted alongside the analysis row
	RealConsumptionKwh   float64 `json:"real_consumption_kwh"`
	GenerationEfficiency float64 `json:"generation_efficiency"`
	SelfConsumptionRate  float64 `json:"self_consumption_rate"`
}
