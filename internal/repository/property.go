package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/solo-energia/bill-clarifier/internal/common"
	"github.com/solo-energia/bill-clarifier/internal/entity"
)

type PropertyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Property, error)
	ExpectedGeneration(ctx context.Context, id uuid.UUID) (float64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Property, error)
}

type propertyRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPropertyRepository(db Querier, logger *slog.Logger) PropertyRepository {
	return &propertyRepository{db: db, logger: logger}
}

func (r *propertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Property, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, expected_monthly_generation, created_at
		FROM properties
		WHERE id = $1`, id)

	var p entity.Property
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.ExpectedMonthlyGeneration, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundError("property not found")
	}
	if err != nil {
		r.logger.Error("failed to load property", "property_id", id, "error", err)
		return nil, err
	}
	return &p, nil
}

// ExpectedGeneration returns the configured project baseline, zero when the
// property has none.
func (r *propertyRepository) ExpectedGeneration(ctx context.Context, id uuid.UUID) (float64, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if p.ExpectedMonthlyGeneration == nil {
		return 0, nil
	}
	return *p.ExpectedMonthlyGeneration, nil
}

func (r *propertyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Property, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, expected_monthly_generation, created_at
		FROM properties
		WHERE user_id = $1
		ORDER BY created_at`, userID)
	if err != nil {
		r.logger.Error("failed to list properties", "user_id", userID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var result []*entity.Property
	for rows.Next() {
		var p entity.Property
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.ExpectedMonthlyGeneration, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}
