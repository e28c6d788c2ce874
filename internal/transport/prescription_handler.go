package transport

import (
	"net/http"
	"time"

	"apteka/internal/domain"
	"apteka/internal/middleware"
	"apteka/internal/repository"
	"apteka/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UploadPrescriptionRequest represents the prescription upload payload
type UploadPrescriptionRequest struct {
	DoctorName       string `json:"doctor_name" validate:"required"`
	DoctorLicense    string `json:"doctor_license" validate:"required"`
	PrescriptionDate string `json:"prescription_date" validate:"required"`
	ImageURL         string `json:"image_url" validate:"required,url"`
}

// VerifyPrescriptionRequest represents a pharmacist's verification decision
type VerifyPrescriptionRequest struct {
	Status string `json:"status" validate:"required,oneof=verified rejected"`
	Notes  string `json:"notes"`
}

// PrescriptionResponse represents prescription data
type PrescriptionResponse struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	DoctorName        string  `json:"doctor_name"`
	DoctorLicense     string  `json:"doctor_license"`
	PrescriptionDate  string  `json:"prescription_date"`
	ImageURL          string  `json:"image_url"`
	Status            string  `json:"status"`
	VerifiedBy        *string `json:"verified_by,omitempty"`
	VerificationNotes string  `json:"verification_notes,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func toPrescriptionResponse(p *domain.Prescription) PrescriptionResponse {
	resp := PrescriptionResponse{
		ID:                p.ID.String(),
		UserID:            p.UserID.String(),
		DoctorName:        p.DoctorName,
		DoctorLicense:     p.DoctorLicense,
		PrescriptionDate:  p.PrescriptionDate.Format("2006-01-02"),
		ImageURL:          p.ImageURL,
		Status:            p.Status,
		VerificationNotes: p.VerificationNotes,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
	if p.VerifiedBy != nil {
		verifier := p.VerifiedBy.String()
		resp.VerifiedBy = &verifier
	}
	return resp
}

func toPrescriptionResponses(prescriptions []*domain.Prescription) []PrescriptionResponse {
	responses := make([]PrescriptionResponse, 0, len(prescriptions))
	for _, p := range prescriptions {
		responses = append(responses, toPrescriptionResponse(p))
	}
	return responses
}

// PrescriptionHandler handles HTTP requests for prescriptions
type PrescriptionHandler struct {
	prescriptionService service.PrescriptionService
	logger              *zap.Logger
}

// NewPrescriptionHandler creates a new PrescriptionHandler
func NewPrescriptionHandler(prescriptionService service.PrescriptionService, logger *zap.Logger) *PrescriptionHandler {
	return &PrescriptionHandler{
		prescriptionService: prescriptionService,
		logger:              logger,
	}
}

// RegisterRoutes registers all prescription routes
func (h *PrescriptionHandler) RegisterRoutes(r chi.Router, authMiddleware, staffMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/prescriptions", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", h.Upload)
		r.Get("/", h.ListMine)

		r.Group(func(r chi.Router) {
			r.Use(staffMiddleware)
			r.Get("/pending", h.ListPending)
			r.Post("/{id}/verify", h.Verify)
		})
	})
}

// Upload records a new prescription pending verification
func (h *PrescriptionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UploadPrescriptionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prescriptionDate, err := time.Parse("2006-01-02", req.PrescriptionDate)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "prescription_date must be YYYY-MM-DD")
		return
	}

	prescription, err := h.prescriptionService.Upload(r.Context(), service.UploadPrescriptionInput{
		UserID:           userID,
		DoctorName:       req.DoctorName,
		DoctorLicense:    req.DoctorLicense,
		PrescriptionDate: prescriptionDate,
		ImageURL:         req.ImageURL,
	})
	if err != nil {
		h.logger.Error("Failed to upload prescription", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to upload prescription")
		return
	}

	h.logger.Info("Prescription uploaded",
		zap.String("prescription_id", prescription.ID.String()),
		zap.String("user_id", userID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, toPrescriptionResponse(prescription))
}

// ListMine returns the caller's prescriptions, newest first
func (h *PrescriptionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prescriptions, err := h.prescriptionService.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list prescriptions", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list prescriptions")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toPrescriptionResponses(prescriptions))
}

// ListPending returns all prescriptions awaiting verification
func (h *PrescriptionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	prescriptions, err := h.prescriptionService.ListPending(r.Context())
	if err != nil {
		h.logger.Error("Failed to list pending prescriptions", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list pending prescriptions")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toPrescriptionResponses(prescriptions))
}

// Verify records a verification decision, overwriting any previous one
func (h *PrescriptionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	verifierID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid prescription ID")
		return
	}

	var req VerifyPrescriptionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prescription, err := h.prescriptionService.Verify(r.Context(), id, verifierID, req.Status, req.Notes)
	if err != nil {
		switch err {
		case repository.ErrPrescriptionNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "prescription not found")
		case service.ErrInvalidVerificationStatus:
			middleware.RespondWithError(w, http.StatusBadRequest, "status must be verified or rejected")
		default:
			h.logger.Error("Failed to verify prescription", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to verify prescription")
		}
		return
	}

	h.logger.Info("Prescription verified",
		zap.String("prescription_id", id.String()),
		zap.String("status", req.Status),
		zap.String("verified_by", verifierID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, toPrescriptionResponse(prescription))
}
