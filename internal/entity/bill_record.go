package entity

// ConsumptionItem is one row of the bill's itemized billing table
// ("DESCRIÇÃO DO FATURAMENTO"). Bills that zero a line through solar credits
// still print the gross amounts here, which is why the table is extracted
// separately from the summary totals.
type ConsumptionItem struct {
	Item        string   `json:"item"`
	QuantityKwh *float64 `json:"quantity_kwh,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	TotalValue  *float64 `json:"total_value,omitempty"`
	ICMS        *float64 `json:"icms,omitempty"`
}

// BillRecord is the normalized output of the extraction stage: one flat record
// of optional fields. Every numeric field is either a finite number or nil,
// never NaN and never a unit-suffixed string. Nil means "not found on the bill",
// which is distinct from zero; only the derivation stage substitutes defaults,
// and only where its formulas say so.
type BillRecord struct {
	// Identification
	AccountHolder  *string `json:"account_holder,omitempty"`
	AccountNumber  *string `json:"account_number,omitempty"`
	CPFCNPJ        *string `json:"cpf_cnpj,omitempty"`
	Distributor    *string `json:"distributor,omitempty"`
	ConsumerClass  *string `json:"consumer_class,omitempty"`
	Subclass       *string `json:"subclass,omitempty"`
	TariffModality *string `json:"tariff_modality,omitempty"`

	// Period
	ReferenceMonth      *int    `json:"reference_month,omitempty"`
	ReferenceYear       *int    `json:"reference_year,omitempty"`
	ReadingDateCurrent  *string `json:"reading_date_current,omitempty"`
	ReadingDatePrevious *string `json:"reading_date_previous,omitempty"`
	DueDate             *string `json:"due_date,omitempty"`
	BillingDays         *int    `json:"billing_days,omitempty"`

	// Metering
	MeterNumber            *string  `json:"meter_number,omitempty"`
	MeterReadingPrevious   *float64 `json:"meter_reading_previous,omitempty"`
	MeterReadingCurrent    *float64 `json:"meter_reading_current,omitempty"`
	MeasuredConsumptionKwh *float64 `json:"measured_consumption_kwh,omitempty"`
	BilledConsumptionKwh   *float64 `json:"billed_consumption_kwh,omitempty"`

	// Solar
	InjectedEnergyKwh    *float64 `json:"injected_energy_kwh,omitempty"`
	CompensatedEnergyKwh *float64 `json:"compensated_energy_kwh,omitempty"`
	PreviousCreditsKwh   *float64 `json:"previous_credits_kwh,omitempty"`
	CurrentCreditsKwh    *float64 `json:"current_credits_kwh,omitempty"`
	CreditExpiryDate     *string  `json:"credit_expiry_date,omitempty"`

	// Tariffs
	TariffTEKwh        *float64 `json:"tariff_te_kwh,omitempty"`
	TariffTUSDKwh      *float64 `json:"tariff_tusd_kwh,omitempty"`
	TariffFlag         *string  `json:"tariff_flag,omitempty"`
	TariffFlagValueKwh *float64 `json:"tariff_flag_value_kwh,omitempty"`

	// Itemized costs
	EnergyCostTE       *float64 `json:"energy_cost_te,omitempty"`
	EnergyCostTUSD     *float64 `json:"energy_cost_tusd,omitempty"`
	EnergyCost         *float64 `json:"energy_cost,omitempty"`
	EnergyCostGross    *float64 `json:"energy_cost_gross,omitempty"`
	AvailabilityCost   *float64 `json:"availability_cost,omitempty"`
	PublicLightingCost *float64 `json:"public_lighting_cost,omitempty"`

	// Taxes
	ICMSBase        *float64 `json:"icms_base,omitempty"`
	ICMSRate        *float64 `json:"icms_rate,omitempty"`
	ICMSCost        *float64 `json:"icms_cost,omitempty"`
	ICMSCostGross   *float64 `json:"icms_cost_gross,omitempty"`
	PISBase         *float64 `json:"pis_base,omitempty"`
	PISRate         *float64 `json:"pis_rate,omitempty"`
	PISCost         *float64 `json:"pis_cost,omitempty"`
	PISCostGross    *float64 `json:"pis_cost_gross,omitempty"`
	COFINSBase      *float64 `json:"cofins_base,omitempty"`
	COFINSRate      *float64 `json:"cofins_rate,omitempty"`
	COFINSCost      *float64 `json:"cofins_cost,omitempty"`
	COFINSCostGross *float64 `json:"cofins_cost_gross,omitempty"`

	// Charges and adjustments
	SectoralCharges *float64 `json:"sectoral_charges,omitempty"`
	FinesAmount     *float64 `json:"fines_amount,omitempty"`
	InterestAmount  *float64 `json:"interest_amount,omitempty"`
	OtherCharges    *float64 `json:"other_charges,omitempty"`
	OtherCredits    *float64 `json:"other_credits,omitempty"`

	// Demand (Group A commercial bills only)
	DemandContractedKw *float64 `json:"demand_contracted_kw,omitempty"`
	DemandMeasuredKw   *float64 `json:"demand_measured_kw,omitempty"`
	DemandBilledKw     *float64 `json:"demand_billed_kw,omitempty"`
	DemandExcessCost   *float64 `json:"demand_excess_cost,omitempty"`

	// Totals
	SubtotalBeforeTaxes *float64 `json:"subtotal_before_taxes,omitempty"`
	SubtotalGross       *float64 `json:"subtotal_gross,omitempty"`
	CreditDiscount      *float64 `json:"credit_discount,omitempty"`
	TotalAmount         *float64 `json:"total_amount,omitempty"`

	// Free text the extractor surfaces verbatim
	ConsumptionItems []ConsumptionItem `json:"consumption_by_type,omitempty"`
	LegalNotices     []string          `json:"legal_notices"`
	TariffNotes      []string          `json:"tariff_notes"`

	// Extraction metadata
	ExtractionConfidence *float64 `json:"extraction_confidence,omitempty"`
	FieldsNotFound       []string `json:"fields_not_found"`
}

// Confidence returns the extraction confidence, zero when absent.
func (r *BillRecord) Confidence() float64 {
	if r.ExtractionConfidence == nil {
		return 0
	}
	return *r.ExtractionConfidence
}

// Num returns *p, or def when the field is absent.
func Num(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
