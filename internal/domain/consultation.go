package domain

import (
	"time"

	"github.com/google/uuid"
)

// Consultation statuses. pending → in_progress on assignment → completed on
// response; no reverse transitions.
const (
	ConsultationStatusPending    = "pending"
	ConsultationStatusInProgress = "in_progress"
	ConsultationStatusCompleted  = "completed"
)

// Consultation represents a Q&A ticket between a customer and a pharmacist
type Consultation struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	PharmacistID *uuid.UUID `json:"pharmacist_id,omitempty" db:"pharmacist_id"`
	Subject      string     `json:"subject" db:"subject"`
	Message      string     `json:"message" db:"message"`
	Response     string     `json:"response,omitempty" db:"response"`
	Status       string     `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
