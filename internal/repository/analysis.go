package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/solo-energia/bill-clarifier/constants"
	"github.com/solo-energia/bill-clarifier/internal/common"
	"github.com/solo-energia/bill-clarifier/internal/entity"
)

type AnalysisRepository interface {
	Create(ctx context.Context, analysis *entity.BillAnalysis) (uuid.UUID, error)
	SaveRawExtraction(ctx context.Context, analysisID uuid.UUID, raw json.RawMessage) error
	Complete(ctx context.Context, analysis *entity.BillAnalysis) error
	MarkError(ctx context.Context, analysisID uuid.UUID, message string) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.BillAnalysis, error)
	GetRawExtraction(ctx context.Context, analysisID uuid.UUID) (json.RawMessage, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*entity.BillAnalysis, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type analysisRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewAnalysisRepository(db Querier, logger *slog.Logger) AnalysisRepository {
	return &analysisRepository{db: db, logger: logger}
}

// Create inserts the processing row for a new submission. Re-submitting the
// same property and reference period reuses the existing row (last write
// wins), so a user retrying a failed upload does not stack duplicates.
func (r *analysisRepository) Create(ctx context.Context, a *entity.BillAnalysis) (uuid.UUID, error) {
	id := uuid.New()
	row := r.db.QueryRow(ctx, `
		INSERT INTO bill_analyses (
			id, property_id, reference_month, reference_year,
			bill_file_url, monitored_generation_kwh, expected_generation_kwh, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (property_id, reference_month, reference_year)
		DO UPDATE SET
			bill_file_url            = EXCLUDED.bill_file_url,
			monitored_generation_kwh = EXCLUDED.monitored_generation_kwh,
			expected_generation_kwh  = EXCLUDED.expected_generation_kwh,
			status                   = EXCLUDED.status,
			error_message            = NULL,
			updated_at               = now()
		RETURNING id`,
		id, a.PropertyID, a.ReferenceMonth, a.ReferenceYear,
		a.BillFileURL, a.MonitoredGenerationKwh, a.ExpectedGenerationKwh,
		string(constants.AnalysisProcessing),
	)

	var got uuid.UUID
	if err := row.Scan(&got); err != nil {
		r.logger.Error("failed to create analysis", "property_id", a.PropertyID, "error", err)
		return uuid.Nil, err
	}
	return got, nil
}

// SaveRawExtraction stores the full normalized record JSON in the side table.
// Callers treat a failure here as log-only.
func (r *analysisRepository) SaveRawExtraction(ctx context.Context, analysisID uuid.UUID, raw json.RawMessage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bill_raw_data (analysis_id, raw_data, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (analysis_id)
		DO UPDATE SET raw_data = EXCLUDED.raw_data, created_at = now()`,
		analysisID, []byte(raw),
	)
	if err != nil {
		r.logger.Error("failed to save raw extraction", "analysis_id", analysisID, "error", err)
	}
	return err
}

// Complete writes the single terminal success update: the flattened record
// superset, the derived columns, and the narrative columns (NULL in quick
// mode).
func (r *analysisRepository) Complete(ctx context.Context, a *entity.BillAnalysis) error {
	explanations := nullableJSON(a.AIExplanations)
	recommendations := nullableJSON(a.AIRecommendations)

	_, err := r.db.Exec(ctx, `
		UPDATE bill_analyses SET
			status                   = $2,
			reference_month          = $3,
			reference_year           = $4,
			expected_generation_kwh  = $5,
			account_holder           = $6,
			account_number           = $7,
			distributor              = $8,
			consumer_class           = $9,
			tariff_modality          = $10,
			billing_days             = $11,
			meter_reading_current    = $12,
			meter_reading_previous   = $13,
			billed_consumption_kwh   = $14,
			injected_energy_kwh      = $15,
			compensated_energy_kwh   = $16,
			previous_credits_kwh     = $17,
			current_credits_kwh      = $18,
			total_amount             = $19,
			energy_cost              = $20,
			availability_cost        = $21,
			public_lighting_cost     = $22,
			icms_cost                = $23,
			pis_cost                 = $24,
			cofins_cost              = $25,
			pis_cofins_cost          = $26,
			sectoral_charges         = $27,
			fine_amount              = $28,
			interest_amount          = $29,
			tariff_flag              = $30,
			tariff_flag_cost         = $31,
			tariff_te_value          = $32,
			tariff_tusd_value        = $33,
			demand_contracted_kw     = $34,
			demand_measured_kw       = $35,
			real_consumption_kwh     = $36,
			generation_efficiency    = $37,
			estimated_savings        = $38,
			bill_score               = $39,
			alerts                   = $40,
			ai_analysis              = $41,
			ai_explanations          = $42,
			ai_recommendations       = $43,
			error_message            = NULL,
			updated_at               = now()
		WHERE id = $1`,
		a.ID, string(constants.AnalysisCompleted),
		a.ReferenceMonth, a.ReferenceYear, a.ExpectedGenerationKwh,
		a.AccountHolder, a.AccountNumber, a.Distributor, a.ConsumerClass,
		a.TariffModality, a.BillingDays, a.MeterReadingCurrent, a.MeterReadingPrevious,
		a.BilledConsumptionKwh, a.InjectedEnergyKwh, a.CompensatedEnergyKwh,
		a.PreviousCreditsKwh, a.CurrentCreditsKwh,
		a.TotalAmount, a.EnergyCost, a.AvailabilityCost, a.PublicLightingCost,
		a.ICMSCost, a.PISCost, a.COFINSCost, a.PISCOFINSCost,
		a.SectoralCharges, a.FineAmount, a.InterestAmount,
		a.TariffFlag, a.TariffFlagCost, a.TariffTEValue, a.TariffTUSDValue,
		a.DemandContractedKw, a.DemandMeasuredKw,
		a.RealConsumptionKwh, a.GenerationEfficiency, a.EstimatedSavings, a.BillScore,
		a.Alerts, a.AIAnalysis, explanations, recommendations,
	)
	if err != nil {
		r.logger.Error("failed to complete analysis", "analysis_id", a.ID, "error", err)
	}
	return err
}

func (r *analysisRepository) MarkError(ctx context.Context, analysisID uuid.UUID, message string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE bill_analyses
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1`,
		analysisID, string(constants.AnalysisError), message,
	)
	if err != nil {
		r.logger.Error("failed to mark analysis errored", "analysis_id", analysisID, "error", err)
	}
	return err
}

const analysisColumns = `
	id, property_id, reference_month, reference_year, bill_file_url,
	monitored_generation_kwh, expected_generation_kwh, status, error_message,
	account_holder, account_number, distributor, consumer_class, tariff_modality,
	billing_days, meter_reading_current, meter_reading_previous,
	billed_consumption_kwh, injected_energy_kwh, compensated_energy_kwh,
	previous_credits_kwh, current_credits_kwh,
	total_amount, energy_cost, availability_cost, public_lighting_cost,
	icms_cost, pis_cost, cofins_cost, pis_cofins_cost, sectoral_charges,
	fine_amount, interest_amount, tariff_flag, tariff_flag_cost,
	tariff_te_value, tariff_tusd_value, demand_contracted_kw, demand_measured_kw,
	real_consumption_kwh, generation_efficiency, estimated_savings, bill_score,
	alerts, ai_analysis, ai_explanations, ai_recommendations,
	created_at, updated_at`

func scanAnalysis(row pgx.Row) (*entity.BillAnalysis, error) {
	var a entity.BillAnalysis
	err := row.Scan(
		&a.ID, &a.PropertyID, &a.ReferenceMonth, &a.ReferenceYear, &a.BillFileURL,
		&a.MonitoredGenerationKwh, &a.ExpectedGenerationKwh, &a.Status, &a.ErrorMessage,
		&a.AccountHolder, &a.AccountNumber, &a.Distributor, &a.ConsumerClass, &a.TariffModality,
		&a.BillingDays, &a.MeterReadingCurrent, &a.MeterReadingPrevious,
		&a.BilledConsumptionKwh, &a.InjectedEnergyKwh, &a.CompensatedEnergyKwh,
		&a.PreviousCreditsKwh, &a.CurrentCreditsKwh,
		&a.TotalAmount, &a.EnergyCost, &a.AvailabilityCost, &a.PublicLightingCost,
		&a.ICMSCost, &a.PISCost, &a.COFINSCost, &a.PISCOFINSCost, &a.SectoralCharges,
		&a.FineAmount, &a.InterestAmount, &a.TariffFlag, &a.TariffFlagCost,
		&a.TariffTEValue, &a.TariffTUSDValue, &a.DemandContractedKw, &a.DemandMeasuredKw,
		&a.RealConsumptionKwh, &a.GenerationEfficiency, &a.EstimatedSavings, &a.BillScore,
		&a.Alerts, &a.AIAnalysis, &a.AIExplanations, &a.AIRecommendations,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *analysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.BillAnalysis, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM bill_analyses WHERE id = $1`, id)

	a, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundError("analysis not found")
	}
	if err != nil {
		r.logger.Error("failed to load analysis", "analysis_id", id, "error", err)
		return nil, err
	}
	return a, nil
}

func (r *analysisRepository) GetRawExtraction(ctx context.Context, analysisID uuid.UUID) (json.RawMessage, error) {
	row := r.db.QueryRow(ctx,
		`SELECT raw_data FROM bill_raw_data WHERE analysis_id = $1`, analysisID)

	var raw []byte
	err := row.Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundError("raw extraction not found")
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (r *analysisRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*entity.BillAnalysis, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+analysisColumns+`
		 FROM bill_analyses
		 WHERE property_id = $1
		 ORDER BY reference_year DESC, reference_month DESC`, propertyID)
	if err != nil {
		r.logger.Error("failed to list analyses", "property_id", propertyID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var result []*entity.BillAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *analysisRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bill_analyses WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete analysis", "analysis_id", id, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundError("analysis not found")
	}
	return nil
}

// nullableJSON keeps empty narrative columns as SQL NULL instead of the
// string "null".
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
