package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// numericFieldNames lists every numeric field of the extraction contract, in
// the order the prompt presents them. Used both for schema construction and
// to fill fields_not_found when a payload cannot be parsed at all.
var numericFieldNames = []string{
	"reference_month", "reference_year", "billing_days",
	"meter_reading_previous", "meter_reading_current",
	"measured_consumption_kwh", "billed_consumption_kwh",
	"injected_energy_kwh", "compensated_energy_kwh",
	"previous_credits_kwh", "current_credits_kwh",
	"tariff_te_kwh", "tariff_tusd_kwh", "tariff_flag_value_kwh",
	"energy_cost_te", "energy_cost_tusd", "energy_cost", "energy_cost_gross",
	"availability_cost", "public_lighting_cost",
	"icms_base", "icms_rate", "icms_cost", "icms_cost_gross",
	"pis_base", "pis_rate", "pis_cost", "pis_cost_gross",
	"cofins_base", "cofins_rate", "cofins_cost", "cofins_cost_gross",
	"sectoral_charges", "fines_amount", "interest_amount",
	"other_charges", "other_credits",
	"demand_contracted_kw", "demand_measured_kw", "demand_billed_kw",
	"demand_excess_cost",
	"subtotal_before_taxes", "subtotal_gross", "credit_discount",
	"total_amount", "extraction_confidence",
}

var stringFieldNames = []string{
	"account_holder", "account_number", "cpf_cnpj", "distributor",
	"consumer_class", "subclass", "tariff_modality",
	"reading_date_current", "reading_date_previous", "due_date",
	"meter_number", "credit_expiry_date", "tariff_flag",
}

// AllFieldNames is the complete extraction contract field list.
func AllFieldNames() []string {
	names := make([]string, 0, len(stringFieldNames)+len(numericFieldNames)+4)
	names = append(names, stringFieldNames...)
	names = append(names, numericFieldNames...)
	names = append(names, "consumption_by_type", "legal_notices", "tariff_notes", "fields_not_found")
	return names
}

var billSchema = compileBillSchema()

// compileBillSchema builds the validation schema for raw extraction payloads.
// The schema is deliberately lenient: every field is optional and may be null
// (the model is told to use null for anything it cannot read), and numeric
// slots also admit strings because the normalizer copes with locale-formatted
// values. Validation flags shape violations, not missing data.
func compileBillSchema() *jsonschema.Schema {
	loose := map[string]any{"type": []string{"number", "string", "integer", "null"}}
	str := map[string]any{"type": []string{"string", "null"}}
	strList := map[string]any{
		"type":  []string{"array", "null"},
		"items": map[string]any{"type": "string"},
	}

	props := map[string]any{}
	for _, name := range stringFieldNames {
		props[name] = str
	}
	for _, name := range numericFieldNames {
		props[name] = loose
	}
	props["consumption_by_type"] = map[string]any{
		"type": []string{"array", "null"},
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item":         str,
				"quantity_kwh": loose,
				"unit_price":   loose,
				"total_value":  loose,
				"icms":         loose,
			},
		},
	}
	props["legal_notices"] = strList
	props["tariff_notes"] = strList
	props["fields_not_found"] = strList

	schema := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshal bill schema: %v", err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("bill.schema.json", bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("add bill schema resource: %v", err))
	}
	compiled, err := compiler.Compile("bill.schema.json")
	if err != nil {
		panic(fmt.Sprintf("compile bill schema: %v", err))
	}
	return compiled
}

// ValidateExtraction checks a parsed payload against the extraction contract.
// A non-nil error is advisory: the caller logs it and normalizes whatever is
// usable rather than failing the stage.
func ValidateExtraction(payload map[string]any) error {
	if err := billSchema.Validate(any(payload)); err != nil {
		return fmt.Errorf("extraction payload out of contract: %w", err)
	}
	return nil
}
