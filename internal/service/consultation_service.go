package service

import (
	"context"
	"fmt"
	"time"

	"apteka/internal/domain"
	"apteka/internal/repository"

	"github.com/google/uuid"
)

// ConsultationService defines the business logic for pharmacist consultations
type ConsultationService interface {
	Create(ctx context.Context, userID uuid.UUID, subject, message string) (*domain.Consultation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Consultation, error)
	ListPending(ctx context.Context) ([]*domain.Consultation, error)
	Assign(ctx context.Context, id, pharmacistID uuid.UUID) error
	Respond(ctx context.Context, id, pharmacistID uuid.UUID, response string) error
}

type consultationService struct {
	consultationRepo repository.ConsultationRepository
}

// NewConsultationService creates a new instance of ConsultationService
func NewConsultationService(consultationRepo repository.ConsultationRepository) ConsultationService {
	return &consultationService{consultationRepo: consultationRepo}
}

// Create opens a consultation with status pending and no pharmacist
func (s *consultationService) Create(ctx context.Context, userID uuid.UUID, subject, message string) (*domain.Consultation, error) {
	consultation := &domain.Consultation{
		ID:        uuid.New(),
		UserID:    userID,
		Subject:   subject,
		Message:   message,
		Status:    domain.ConsultationStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.consultationRepo.Create(ctx, consultation); err != nil {
		return nil, fmt.Errorf("failed to create consultation: %w", err)
	}

	return consultation, nil
}

// ListByUser returns the consultations opened by a user
func (s *consultationService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Consultation, error) {
	return s.consultationRepo.ListByUser(ctx, userID)
}

// ListPending returns consultations awaiting assignment
func (s *consultationService) ListPending(ctx context.Context) ([]*domain.Consultation, error) {
	return s.consultationRepo.ListPending(ctx)
}

// Assign takes a consultation for a pharmacist and moves it to in_progress
func (s *consultationService) Assign(ctx context.Context, id, pharmacistID uuid.UUID) error {
	return s.consultationRepo.Assign(ctx, id, pharmacistID)
}

// Respond records the answer and completes the consultation. Only the
// assigned pharmacist may respond; anyone else gets not found, even when the
// consultation exists.
func (s *consultationService) Respond(ctx context.Context, id, pharmacistID uuid.UUID, response string) error {
	return s.consultationRepo.Respond(ctx, id, pharmacistID, response)
}
