package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"apteka/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrConsultationNotFound = errors.New("consultation not found")
)

// ConsultationRepository defines the interface for consultation data access
type ConsultationRepository interface {
	Create(ctx context.Context, consultation *domain.Consultation) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Consultation, error)
	ListPending(ctx context.Context) ([]*domain.Consultation, error)
	Assign(ctx context.Context, id, pharmacistID uuid.UUID) error
	Respond(ctx context.Context, id, pharmacistID uuid.UUID, response string) error
}

type consultationRepository struct {
	db *sql.DB
}

// NewConsultationRepository creates a new instance of ConsultationRepository
func NewConsultationRepository(db *sql.DB) ConsultationRepository {
	return &consultationRepository{db: db}
}

const consultationColumns = `id, user_id, pharmacist_id, subject, message, response, status, created_at, updated_at`

func scanConsultation(scan func(dest ...interface{}) error) (*domain.Consultation, error) {
	c := &domain.Consultation{}
	err := scan(
		&c.ID,
		&c.UserID,
		&c.PharmacistID,
		&c.Subject,
		&c.Message,
		&c.Response,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// Create inserts a new consultation with status pending and no pharmacist
func (r *consultationRepository) Create(ctx context.Context, consultation *domain.Consultation) error {
	query := `
		INSERT INTO consultations (id, user_id, subject, message, response, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		consultation.ID,
		consultation.UserID,
		consultation.Subject,
		consultation.Message,
		consultation.Response,
		consultation.Status,
		consultation.CreatedAt,
		consultation.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}

	return nil
}

// ListByUser retrieves all consultations opened by a user, newest first
func (r *consultationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Consultation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM consultations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, consultationColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	defer rows.Close()

	return collectConsultations(rows)
}

// ListPending retrieves all unassigned consultations, oldest first
func (r *consultationRepository) ListPending(ctx context.Context) ([]*domain.Consultation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM consultations
		WHERE status = $1
		ORDER BY created_at ASC
	`, consultationColumns)

	rows, err := r.db.QueryContext(ctx, query, domain.ConsultationStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending consultations: %w", err)
	}
	defer rows.Close()

	return collectConsultations(rows)
}

// Assign sets the pharmacist and moves the consultation to in_progress
func (r *consultationRepository) Assign(ctx context.Context, id, pharmacistID uuid.UUID) error {
	query := `
		UPDATE consultations
		SET pharmacist_id = $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, pharmacistID, domain.ConsultationStatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to assign consultation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrConsultationNotFound
	}

	return nil
}

// Respond records the response and completes the consultation. The update is
// gated on the assigned pharmacist: a row assigned to someone else matches
// nothing and reports not found, indistinguishable from an absent row.
func (r *consultationRepository) Respond(ctx context.Context, id, pharmacistID uuid.UUID, response string) error {
	query := `
		UPDATE consultations
		SET response = $3, status = $4, updated_at = NOW()
		WHERE id = $1 AND pharmacist_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, pharmacistID, response, domain.ConsultationStatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to respond to consultation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrConsultationNotFound
	}

	return nil
}

func collectConsultations(rows *sql.Rows) ([]*domain.Consultation, error) {
	consultations := []*domain.Consultation{}
	for rows.Next() {
		c, err := scanConsultation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consultation: %w", err)
		}
		consultations = append(consultations, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating consultations: %w", err)
	}

	return consultations, nil
}
