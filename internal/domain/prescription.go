package domain

import (
	"time"

	"github.com/google/uuid"
)

// Prescription statuses. A prescription is uploaded as pending and moved to
// verified or rejected by staff review; it never returns to pending.
const (
	PrescriptionStatusPending  = "pending"
	PrescriptionStatusVerified = "verified"
	PrescriptionStatusRejected = "rejected"
)

// Prescription represents an uploaded doctor's prescription
type Prescription struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	DoctorName        string     `json:"doctor_name" db:"doctor_name"`
	DoctorLicense     string     `json:"doctor_license" db:"doctor_license"`
	PrescriptionDate  time.Time  `json:"prescription_date" db:"prescription_date"`
	ImageURL          string     `json:"image_url" db:"image_url"`
	Status            string     `json:"status" db:"status"`
	VerifiedBy        *uuid.UUID `json:"verified_by,omitempty" db:"verified_by"`
	VerificationNotes string     `json:"verification_notes,omitempty" db:"verification_notes"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
