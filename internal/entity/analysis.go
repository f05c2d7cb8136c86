package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/solo-energia/bill-clarifier/constants"
)

// Property is the consumer unit that owns bill analyses. The expected monthly
// generation configured here is the project baseline the derivation compares
// against when the caller does not supply one.
type Property struct {
	ID                        uuid.UUID `json:"id"`
	UserID                    uuid.UUID `json:"user_id"`
	Name                      string    `json:"name"`
	ExpectedMonthlyGeneration *float64  `json:"expected_monthly_generation,omitempty"`
	CreatedAt                 time.Time `json:"created_at"`
}

// BillAnalysis is one persisted bill submission. Created in processing state
// at upload time; the pipeline writes exactly one terminal transition
// (completed or error) per run.
type BillAnalysis struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`

	ReferenceMonth int     `json:"reference_month"`
	ReferenceYear  int     `json:"reference_year"`
	BillFileURL    *string `json:"bill_file_url,omitempty"`

	MonitoredGenerationKwh float64  `json:"monitored_generation_kwh"`
	ExpectedGenerationKwh  *float64 `json:"expected_generation_kwh,omitempty"`

	Status       constants.AnalysisStatus `json:"status"`
	ErrorMessage *string                  `json:"error_message,omitempty"`

	// Flattened extraction superset (nil until completed)
	AccountHolder        *string  `json:"account_holder,omitempty"`
	AccountNumber        *string  `json:"account_number,omitempty"`
	Distributor          *string  `json:"distributor,omitempty"`
	ConsumerClass        *string  `json:"consumer_class,omitempty"`
	TariffModality       *string  `json:"tariff_modality,omitempty"`
	BillingDays          *int     `json:"billing_days,omitempty"`
	MeterReadingCurrent  *float64 `json:"meter_reading_current,omitempty"`
	MeterReadingPrevious *float64 `json:"meter_reading_previous,omitempty"`

	BilledConsumptionKwh *float64 `json:"billed_consumption_kwh,omitempty"`
	InjectedEnergyKwh    *float64 `json:"injected_energy_kwh,omitempty"`
	CompensatedEnergyKwh *float64 `json:"compensated_energy_kwh,omitempty"`
	PreviousCreditsKwh   *float64 `json:"previous_credits_kwh,omitempty"`
	CurrentCreditsKwh    *float64 `json:"current_credits_kwh,omitempty"`

	TotalAmount        *float64 `json:"total_amount,omitempty"`
	EnergyCost         *float64 `json:"energy_cost,omitempty"`
	AvailabilityCost   *float64 `json:"availability_cost,omitempty"`
	PublicLightingCost *float64 `json:"public_lighting_cost,omitempty"`
	ICMSCost           *float64 `json:"icms_cost,omitempty"`
	PISCost            *float64 `json:"pis_cost,omitempty"`
	COFINSCost         *float64 `json:"cofins_cost,omitempty"`
	PISCOFINSCost      *float64 `json:"pis_cofins_cost,omitempty"`
	SectoralCharges    *float64 `json:"sectoral_charges,omitempty"`
	FineAmount         *float64 `json:"fine_amount,omitempty"`
	InterestAmount     *float64 `json:"interest_amount,omitempty"`
	TariffFlag         *string  `json:"tariff_flag,omitempty"`
	TariffFlagCost     *float64 `json:"tariff_flag_cost,omitempty"`
	TariffTEValue      *float64 `json:"tariff_te_value,omitempty"`
	TariffTUSDValue    *float64 `json:"tariff_tusd_value,omitempty"`

	DemandContractedKw *float64 `json:"demand_contracted_kw,omitempty"`
	DemandMeasuredKw   *float64 `json:"demand_measured_kw,omitempty"`

	// Derived columns
	RealConsumptionKwh   *float64 `json:"real_consumption_kwh,omitempty"`
	GenerationEfficiency *float64 `json:"generation_efficiency,omitempty"`
	EstimatedSavings     *float64 `json:"estimated_savings,omitempty"`
	BillScore            *float64 `json:"bill_score,omitempty"`

	// Narrative columns (full mode only)
	Alerts            []string        `json:"alerts"`
	AIAnalysis        *string         `json:"ai_analysis,omitempty"`
	AIExplanations    json.RawMessage `json:"ai_explanations,omitempty"`
	AIRecommendations json.RawMessage `json:"ai_recommendations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
