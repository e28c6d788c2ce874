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
	ErrPrescriptionNotFound = errors.New("prescription not found")
)

// PrescriptionRepository defines the interface for prescription data access
type PrescriptionRepository interface {
	Create(ctx context.Context, prescription *domain.Prescription) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Prescription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Prescription, error)
	ListPending(ctx context.Context) ([]*domain.Prescription, error)
	SetVerification(ctx context.Context, id, verifierID uuid.UUID, status, notes string) error
}

type prescriptionRepository struct {
	db *sql.DB
}

// NewPrescriptionRepository creates a new instance of PrescriptionRepository
func NewPrescriptionRepository(db *sql.DB) PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

const prescriptionColumns = `id, user_id, doctor_name, doctor_license, prescription_date, image_url, status, verified_by, verification_notes, created_at, updated_at`

func scanPrescription(scan func(dest ...interface{}) error) (*domain.Prescription, error) {
	p := &domain.Prescription{}
	err := scan(
		&p.ID,
		&p.UserID,
		&p.DoctorName,
		&p.DoctorLicense,
		&p.PrescriptionDate,
		&p.ImageURL,
		&p.Status,
		&p.VerifiedBy,
		&p.VerificationNotes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// Create inserts a new prescription with status pending
func (r *prescriptionRepository) Create(ctx context.Context, prescription *domain.Prescription) error {
	query := `
		INSERT INTO prescriptions (id, user_id, doctor_name, doctor_license, prescription_date, image_url, status, verification_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		prescription.ID,
		prescription.UserID,
		prescription.DoctorName,
		prescription.DoctorLicense,
		prescription.PrescriptionDate,
		prescription.ImageURL,
		prescription.Status,
		prescription.VerificationNotes,
		prescription.CreatedAt,
		prescription.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}

	return nil
}

// FindByID retrieves a prescription by ID
func (r *prescriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Prescription, error) {
	query := fmt.Sprintf(`SELECT %s FROM prescriptions WHERE id = $1`, prescriptionColumns)

	p, err := scanPrescription(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPrescriptionNotFound
		}
		return nil, fmt.Errorf("failed to find prescription by ID: %w", err)
	}

	return p, nil
}

// ListByUser retrieves all prescriptions owned by a user, newest first
func (r *prescriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Prescription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM prescriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, prescriptionColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	defer rows.Close()

	return collectPrescriptions(rows)
}

// ListPending retrieves all prescriptions awaiting review, oldest first
func (r *prescriptionRepository) ListPending(ctx context.Context) ([]*domain.Prescription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM prescriptions
		WHERE status = $1
		ORDER BY created_at ASC
	`, prescriptionColumns)

	rows, err := r.db.QueryContext(ctx, query, domain.PrescriptionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending prescriptions: %w", err)
	}
	defer rows.Close()

	return collectPrescriptions(rows)
}

// SetVerification overwrites status, verifier and notes on the target row.
// No guard against re-verifying an already reviewed prescription: the review
// is an idempotent overwrite.
func (r *prescriptionRepository) SetVerification(ctx context.Context, id, verifierID uuid.UUID, status, notes string) error {
	query := `
		UPDATE prescriptions
		SET status = $2, verified_by = $3, verification_notes = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, verifierID, notes)
	if err != nil {
		return fmt.Errorf("failed to set prescription verification: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrPrescriptionNotFound
	}

	return nil
}

func collectPrescriptions(rows *sql.Rows) ([]*domain.Prescription, error) {
	prescriptions := []*domain.Prescription{}
	for rows.Next() {
		p, err := scanPrescription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prescription: %w", err)
		}
		prescriptions = append(prescriptions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prescriptions: %w", err)
	}

	return prescriptions, nil
}
