package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solo-energia/bill-clarifier/constants"
	"github.com/solo-energia/bill-clarifier/internal/common"
	"github.com/solo-energia/bill-clarifier/internal/entity"
)

func testLogger() *slog.Logger { return slog.Default() }

func TestAnalysisCreateUpserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalysisRepository(mock, testLogger())
	propertyID := uuid.New()
	returned := uuid.New()

	mock.ExpectQuery(`INSERT INTO bill_analyses`).
		WithArgs(pgxmock.AnyArg(), propertyID, 3, 2024, pgxmock.AnyArg(), 400.0, pgxmock.AnyArg(), "processing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(returned))

	id, err := repo.Create(context.Background(), &entity.BillAnalysis{
		PropertyID:             propertyID,
		ReferenceMonth:         3,
		ReferenceYear:          2024,
		MonitoredGenerationKwh: 400,
		Status:                 constants.AnalysisProcessing,
	})

	require.NoError(t, err)
	assert.Equal(t, returned, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisSaveRawExtraction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalysisRepository(mock, testLogger())
	id := uuid.New()
	raw := json.RawMessage(`{"total_amount": 98.5}`)

	mock.ExpectExec(`INSERT INTO bill_raw_data`).
		WithArgs(id, []byte(raw)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.SaveRawExtraction(context.Background(), id, raw))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisComplete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalysisRepository(mock, testLogger())
	id := uuid.New()
	holder := "Maria da Silva"
	savings := 285.0

	anyArgs := make([]interface{}, 43)
	for i := range anyArgs {
		anyArgs[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec(`UPDATE bill_analyses SET`).
		WithArgs(anyArgs...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.Complete(context.Background(), &entity.BillAnalysis{
		ID:               id,
		ReferenceMonth:   3,
		ReferenceYear:    2024,
		AccountHolder:    &holder,
		EstimatedSavings: &savings,
		Alerts:           []string{},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisMarkError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalysisRepository(mock, testLogger())
	id := uuid.New()

	mock.ExpectExec(`UPDATE bill_analyses`).
		WithArgs(id, "error", "extraction: llm status 503").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkError(context.Background(), id, "extraction: llm status 503"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func analysisRow(id, propertyID uuid.UUID) *pgxmock.Rows {
	now := time.Now()
	cols := []string{
		"id", "property_id", "reference_month", "reference_year", "bill_file_url",
		"monitored_generation_kwh", "expected_generation_kwh", "status", "error_message",
		"account_holder", "account_number", "distributor", "consumer_class", "tariff_modality",
		"billing_days", "meter_reading_current", "meter_reading_previous",
		"billed_consumption_kwh", "injected_energy_kwh", "compensated_energy_kwh",
		"previous_credits_kwh", "current_credits_kwh",
		"total_amount", "energy_cost", "availability_cost", "public_lighting_cost",
		"icms_cost", "pis_cost", "cofins_cost", "pis_cofins_cost", "sectoral_charges",
		"fine_amount", "interest_amount", "tariff_flag", "tariff_flag_cost",
		"tariff_te_value", "tariff_tusd_value", "demand_contracted_kw", "demand_measured_kw",
		"real_consumption_kwh", "generation_efficiency", "estimated_savings", "bill_score",
		"alerts", "ai_analysis", "ai_explanations", "ai_recommendations",
		"created_at", "updated_at",
	}
	holder := "Maria da Silva"
	total := 98.50
	return pgxmock.NewRows(cols).AddRow(
		id, propertyID, 3, 2024, nil,
		400.0, nil, constants.AnalysisCompleted, nil,
		&holder, nil, nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil,
		nil, nil,
		&total, nil, nil, nil,
		nil, nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		[]string{"⚠️ Geração baixa: 70%"}, nil, nil, nil,
		now, now,
	)
}

func TestAnalysisGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalysisRepository(mock, testLogger())
	id := uuid.New()
	propertyID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM bill_analyses WHERE id`).
		WithArgs(id).
		WillReturnRows(analysisRow(id, propertyID))

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, propertyID, got.PropertyID)
	assert.Equal(t, constants.AnalysisCompleted, got.Status)
	require.NotNil(t, got.AccountHolder)
	assert.Equal(t, "Maria da Silva", *got.AccountHolder)
	require.NotNil(t, got.TotalAmount)
	assert.InDelta(t, 98.50, *got.TotalAmount, 1e-9)
	assert.Equal(t, []string{"⚠️ Geração baixa: 70%"}, got.Alerts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalysisRepository(mock, testLogger())
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM bill_analyses WHERE id`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err = repo.GetByID(context.Background(), id)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAnalysisListByProperty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalysisRepository(mock, testLogger())
	propertyID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM bill_analyses(.+)WHERE property_id`).
		WithArgs(propertyID).
		WillReturnRows(analysisRow(uuid.New(), propertyID))

	list, err := repo.ListByProperty(context.Background(), propertyID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, propertyID, list[0].PropertyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalysisRepository(mock, testLogger())
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM bill_analyses`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisDeleteMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAnalysisRepository(mock, testLogger())
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM bill_analyses`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPropertyExpectedGeneration(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPropertyRepository(mock, testLogger())
	id := uuid.New()
	userID := uuid.New()
	expected := 500.0

	mock.ExpectQuery(`SELECT (.+) FROM properties WHERE id`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "name", "expected_monthly_generation", "created_at",
		}).AddRow(id, userID, "Casa da Praia", &expected, time.Now()))

	got, err := repo.ExpectedGeneration(context.Background(), id)
	require.NoError(t, err)
	assert.InDelta(t, 500, got, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}
