package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/solo-energia/bill-clarifier/constants"
	"github.com/solo-energia/bill-clarifier/internal/entity"
	"github.com/solo-energia/bill-clarifier/internal/llm"
	"github.com/solo-energia/bill-clarifier/internal/numeric"
)

// ImageInput is one bill image handed to the extraction stage.
type ImageInput struct {
	Bytes    []byte
	MimeType string
}

// Extractor runs the vision OCR stage: one deterministic completion per bill
// image, normalized into a BillRecord. Temperature is pinned to zero; this
// stage is a measurement, not a conversation.
type Extractor struct {
	client    llm.ChatClient
	model     string
	maxTokens int
	log       *slog.Logger
}

func NewExtractor(client llm.ChatClient, model string, maxTokens int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		log:       logger,
	}
}

// Extract sends the bill image to the vision model and normalizes the reply.
// Transport and API errors are returned as stage failures. A reply that is
// not parseable JSON is NOT a failure: the stage degrades to an all-absent
// record with zero confidence, and the pipeline continues so the user still
// gets whatever the derivation stage can do with defaults.
func (e *Extractor) Extract(ctx context.Context, img ImageInput) (*entity.BillRecord, error) {
	if len(img.Bytes) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	mime := img.MimeType
	if _, ok := constants.AllowedMimeTypes[mime]; !ok {
		return nil, fmt.Errorf("unsupported image type %q", mime)
	}

	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Bytes)

	content, err := e.client.Complete(ctx, llm.CompletionRequest{
		Model:       e.model,
		Temperature: 0,
		MaxTokens:   e.maxTokens,
		Messages: []llm.Message{
			llm.TextMessage(llm.RoleSystem, extractionPrompt),
			llm.VisionMessage(extractionCaption, dataURL),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	return e.parse(content), nil
}

// parse turns the model reply into a BillRecord, degrading instead of failing.
func (e *Extractor) parse(content string) *entity.BillRecord {
	cleaned := StripCodeFences(content)

	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		e.log.Warn("extract.parse_failed",
			"error", err,
			"content_bytes", len(content),
		)
		return emptyRecord()
	}

	if err := ValidateExtraction(payload); err != nil {
		e.log.Warn("extract.schema_violation", "error", err)
	}

	return Normalize(payload)
}

// emptyRecord is the degraded result for an unparseable reply: every field
// absent, confidence zero, and fields_not_found listing the whole contract.
func emptyRecord() *entity.BillRecord {
	zero := 0.0
	return &entity.BillRecord{
		LegalNotices:         []string{},
		TariffNotes:          []string{},
		ExtractionConfidence: &zero,
		FieldsNotFound:       AllFieldNames(),
	}
}

// Normalize maps a parsed payload onto a BillRecord, pushing every value
// through the locale-aware converters. Unparseable values become absent,
// never zero.
func Normalize(payload map[string]any) *entity.BillRecord {
	rec := &entity.BillRecord{
		AccountHolder:  numeric.StringPtr(payload["account_holder"]),
		AccountNumber:  numeric.StringPtr(payload["account_number"]),
		CPFCNPJ:        numeric.StringPtr(payload["cpf_cnpj"]),
		Distributor:    numeric.StringPtr(payload["distributor"]),
		ConsumerClass:  numeric.StringPtr(payload["consumer_class"]),
		Subclass:       numeric.StringPtr(payload["subclass"]),
		TariffModality: numeric.StringPtr(payload["tariff_modality"]),

		ReferenceMonth:      numeric.IntPtr(payload["reference_month"]),
		ReferenceYear:       numeric.IntPtr(payload["reference_year"]),
		ReadingDateCurrent:  numeric.StringPtr(payload["reading_date_current"]),
		ReadingDatePrevious: numeric.StringPtr(payload["reading_date_previous"]),
		DueDate:             numeric.StringPtr(payload["due_date"]),
		BillingDays:         numeric.IntPtr(payload["billing_days"]),

		MeterNumber:            numeric.StringPtr(payload["meter_number"]),
		MeterReadingPrevious:   numeric.NumberPtr(payload["meter_reading_previous"]),
		MeterReadingCurrent:    numeric.NumberPtr(payload["meter_reading_current"]),
		MeasuredConsumptionKwh: numeric.NumberPtr(payload["measured_consumption_kwh"]),
		BilledConsumptionKwh:   numeric.NumberPtr(payload["billed_consumption_kwh"]),

		InjectedEnergyKwh:    numeric.NumberPtr(payload["injected_energy_kwh"]),
		CompensatedEnergyKwh: numeric.NumberPtr(payload["compensated_energy_kwh"]),
		PreviousCreditsKwh:   numeric.NumberPtr(payload["previous_credits_kwh"]),
		CurrentCreditsKwh:    numeric.NumberPtr(payload["current_credits_kwh"]),
		CreditExpiryDate:     numeric.StringPtr(payload["credit_expiry_date"]),

		TariffTEKwh:        numeric.NumberPtr(payload["tariff_te_kwh"]),
		TariffTUSDKwh:      numeric.NumberPtr(payload["tariff_tusd_kwh"]),
		TariffFlag:         normalizeFlag(payload["tariff_flag"]),
		TariffFlagValueKwh: numeric.NumberPtr(payload["tariff_flag_value_kwh"]),

		EnergyCostTE:       numeric.NumberPtr(payload["energy_cost_te"]),
		EnergyCostTUSD:     numeric.NumberPtr(payload["energy_cost_tusd"]),
		EnergyCost:         numeric.NumberPtr(payload["energy_cost"]),
		EnergyCostGross:    numeric.NumberPtr(payload["energy_cost_gross"]),
		AvailabilityCost:   numeric.NumberPtr(payload["availability_cost"]),
		PublicLightingCost: numeric.NumberPtr(payload["public_lighting_cost"]),

		ICMSBase:        numeric.NumberPtr(payload["icms_base"]),
		ICMSRate:        numeric.NumberPtr(payload["icms_rate"]),
		ICMSCost:        numeric.NumberPtr(payload["icms_cost"]),
		ICMSCostGross:   numeric.NumberPtr(payload["icms_cost_gross"]),
		PISBase:         numeric.NumberPtr(payload["pis_base"]),
		PISRate:         numeric.NumberPtr(payload["pis_rate"]),
		PISCost:         numeric.NumberPtr(payload["pis_cost"]),
		PISCostGross:    numeric.NumberPtr(payload["pis_cost_gross"]),
		COFINSBase:      numeric.NumberPtr(payload["cofins_base"]),
		COFINSRate:      numeric.NumberPtr(payload["cofins_rate"]),
		COFINSCost:      numeric.NumberPtr(payload["cofins_cost"]),
		COFINSCostGross: numeric.NumberPtr(payload["cofins_cost_gross"]),

		SectoralCharges: numeric.NumberPtr(payload["sectoral_charges"]),
		FinesAmount:     numeric.NumberPtr(payload["fines_amount"]),
		InterestAmount:  numeric.NumberPtr(payload["interest_amount"]),
		OtherCharges:    numeric.NumberPtr(payload["other_charges"]),
		OtherCredits:    numeric.NumberPtr(payload["other_credits"]),

		DemandContractedKw: numeric.NumberPtr(payload["demand_contracted_kw"]),
		DemandMeasuredKw:   numeric.NumberPtr(payload["demand_measured_kw"]),
		DemandBilledKw:     numeric.NumberPtr(payload["demand_billed_kw"]),
		DemandExcessCost:   numeric.NumberPtr(payload["demand_excess_cost"]),

		SubtotalBeforeTaxes: numeric.NumberPtr(payload["subtotal_before_taxes"]),
		SubtotalGross:       numeric.NumberPtr(payload["subtotal_gross"]),
		CreditDiscount:      numeric.NumberPtr(payload["credit_discount"]),
		TotalAmount:         numeric.NumberPtr(payload["total_amount"]),

		ConsumptionItems: normalizeItems(payload["consumption_by_type"]),
		LegalNotices:     stringList(payload["legal_notices"]),
		TariffNotes:      stringList(payload["tariff_notes"]),

		ExtractionConfidence: numeric.NumberPtr(payload["extraction_confidence"]),
		FieldsNotFound:       stringList(payload["fields_not_found"]),
	}
	return rec
}

func normalizeFlag(value any) *string {
	s, ok := numeric.ToNonEmptyString(value)
	if !ok {
		return nil
	}
	if flag, ok := constants.CanonicalizeFlag(s); ok {
		canonical := string(flag)
		return &canonical
	}
	return &s
}

func normalizeItems(value any) []entity.ConsumptionItem {
	rows, ok := value.([]any)
	if !ok {
		return nil
	}
	items := make([]entity.ConsumptionItem, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		name, _ := numeric.ToNonEmptyString(m["item"])
		items = append(items, entity.ConsumptionItem{
			Item:        name,
			QuantityKwh: numeric.NumberPtr(m["quantity_kwh"]),
			UnitPrice:   numeric.NumberPtr(m["unit_price"]),
			TotalValue:  numeric.NumberPtr(m["total_value"]),
			ICMS:        numeric.NumberPtr(m["icms"]),
		})
	}
	return items
}

func stringList(value any) []string {
	rows, ok := value.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if s, ok := numeric.ToNonEmptyString(row); ok {
			out = append(out, s)
		}
	}
	return out
}
