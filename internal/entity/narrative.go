package entity

// Explanation is one didactic block of the specialist narrative.
type Explanation struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Comparison  string `json:"comparison,omitempty"`
	Assessment  string `json:"efficiency_assessment,omitempty"`
}

// TaxExplanation explains a single tax line in plain language.
type TaxExplanation struct {
	WhatIs    string `json:"what_is,omitempty"`
	YourValue string `json:"your_value,omitempty"`
	Tip       string `json:"tip,omitempty"`
}

// TariffFlagExplanation covers the scarcity surcharge on this bill.
type TariffFlagExplanation struct {
	Current   string `json:"current,omitempty"`
	WhatMeans string `json:"what_means,omitempty"`
	Impact    string `json:"impact,omitempty"`
}

// CreditsExplanation covers the net-metering credit balance.
type CreditsExplanation struct {
	Status          string `json:"status,omitempty"`
	ExpiryWarning   string `json:"expiry_warning,omitempty"`
	OptimizationTip string `json:"optimization_tip,omitempty"`
}

// Explanations groups every narrated topic. All blocks are optional; the
// model fills what the bill supports.
type Explanations struct {
	Consumption      *Explanation           `json:"consumption,omitempty"`
	SolarPerformance *Explanation           `json:"solar_performance,omitempty"`
	ICMS             *TaxExplanation        `json:"icms,omitempty"`
	PISCOFINS        *TaxExplanation        `json:"pis_cofins,omitempty"`
	CIP              *TaxExplanation        `json:"cip,omitempty"`
	TariffFlag       *TariffFlagExplanation `json:"tariff_flag,omitempty"`
	Credits          *CreditsExplanation    `json:"credits,omitempty"`
	Availability     *TaxExplanation        `json:"availability,omitempty"`
}

// AlertType tags a narrative alert.
type AlertType string

const (
	AlertError   AlertType = "error"
	AlertWarning AlertType = "warning"
	AlertInfo    AlertType = "info"
	AlertSuccess AlertType = "success"
)

// Alert is one anomaly or highlight the narrative stage surfaced.
type Alert struct {
	Type        AlertType `json:"type"`
	Icon        string    `json:"icon,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Action      string    `json:"action,omitempty"`
}

// NarrativeMetrics carries the model's financial reading of the bill.
type NarrativeMetrics struct {
	CostPerKwhReal         *float64 `json:"cost_per_kwh_real,omitempty"`
	CostPerKwhWithoutSolar *float64 `json:"cost_per_kwh_without_solar,omitempty"`
	SavingsThisMonth       *float64 `json:"savings_this_month,omitempty"`
	SavingsPercentage      *float64 `json:"savings_percentage,omitempty"`
	SolarEfficiency        *float64 `json:"solar_efficiency,omitempty"`
	SelfConsumptionRate    *float64 `json:"self_consumption_rate,omitempty"`
}

// Recommendation is one prioritized action item.
type Recommendation struct {
	Priority         string `json:"priority"` // alta | media | baixa
	Title            string `json:"title"`
	Description      string `json:"description"`
	EstimatedSavings string `json:"estimated_savings,omitempty"`
}

// BillScore grades the bill 0-100 with the factors behind the grade.
type BillScore struct {
	Value   float64  `json:"value"`
	Label   string   `json:"label"`
	Factors []string `json:"factors"`
}

// NarrativeResult is the specialist stage's output. Best-effort: when the
// model response cannot be parsed, a minimal fallback takes its place and the
// pipeline carries on.
type NarrativeResult struct {
	ExecutiveSummary string           `json:"executive_summary"`
	Explanations     Explanations     `json:"explanations"`
	Alerts           []Alert          `json:"alerts"`
	Metrics          NarrativeMetrics `json:"metrics"`
	Recommendations  []Recommendation `json:"recommendations"`
	BillScore        BillScore        `json:"bill_score"`
}

// AlertStrings flattens alerts to the display format stored on the analysis
// row ("icon title: description").
func (n *NarrativeResult) AlertStrings() []string {
	out := make([]string, 0, len(n.Alerts))
	for _, a := range n.Alerts {
		s := a.Title + ": " + a.Description
		if a.Icon != "" {
			s = a.Icon + " " + s
		}
		out = append(out, s)
	}
	return out
}
