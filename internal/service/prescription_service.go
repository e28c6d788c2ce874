package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apteka/internal/domain"
	"apteka/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidVerificationStatus = errors.New("verification status must be verified or rejected")
)

// UploadPrescriptionInput holds the fields of a prescription upload
type UploadPrescriptionInput struct {
	UserID           uuid.UUID
	DoctorName       string
	DoctorLicense    string
	PrescriptionDate time.Time
	ImageURL         string
}

// PrescriptionService defines the business logic for prescriptions
type PrescriptionService interface {
	Upload(ctx context.Context, input UploadPrescriptionInput) (*domain.Prescription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Prescription, error)
	ListPending(ctx context.Context) ([]*domain.Prescription, error)
	Verify(ctx context.Context, id, verifierID uuid.UUID, status, notes string) (*domain.Prescription, error)
}

type prescriptionService struct {
	prescriptionRepo repository.PrescriptionRepository
}

// NewPrescriptionService creates a new instance of PrescriptionService
func NewPrescriptionService(prescriptionRepo repository.PrescriptionRepository) PrescriptionService {
	return &prescriptionService{prescriptionRepo: prescriptionRepo}
}

// Upload creates a prescription with status pending, owned by the uploader
func (s *prescriptionService) Upload(ctx context.Context, input UploadPrescriptionInput) (*domain.Prescription, error) {
	prescription := &domain.Prescription{
		ID:               uuid.New(),
		UserID:           input.UserID,
		DoctorName:       input.DoctorName,
		DoctorLicense:    input.DoctorLicense,
		PrescriptionDate: input.PrescriptionDate,
		ImageURL:         input.ImageURL,
		Status:           domain.PrescriptionStatusPending,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := s.prescriptionRepo.Create(ctx, prescription); err != nil {
		return nil, fmt.Errorf("failed to upload prescription: %w", err)
	}

	return prescription, nil
}

// ListByUser returns the prescriptions owned by a user
func (s *prescriptionService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Prescription, error) {
	return s.prescriptionRepo.ListByUser(ctx, userID)
}

// ListPending returns the prescriptions awaiting review
func (s *prescriptionService) ListPending(ctx context.Context) ([]*domain.Prescription, error) {
	return s.prescriptionRepo.ListPending(ctx)
}

// Verify records a staff review. The write is an unconditional overwrite: an
// already reviewed prescription can be reviewed again and the later review
// wins.
func (s *prescriptionService) Verify(ctx context.Context, id, verifierID uuid.UUID, status, notes string) (*domain.Prescription, error) {
	if status != domain.PrescriptionStatusVerified && status != domain.PrescriptionStatusRejected {
		return nil, ErrInvalidVerificationStatus
	}

	if err := s.prescriptionRepo.SetVerification(ctx, id, verifierID, status, notes); err != nil {
		return nil, err
	}

	return s.prescriptionRepo.FindByID(ctx, id)
}
