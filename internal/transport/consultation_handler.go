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

// CreateConsultationRequest represents a customer's question to a pharmacist
type CreateConsultationRequest struct {
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// RespondConsultationRequest represents a pharmacist's answer
type RespondConsultationRequest struct {
	Response string `json:"response" validate:"required"`
}

// ConsultationResponse represents consultation data
type ConsultationResponse struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	PharmacistID *string `json:"pharmacist_id,omitempty"`
	Subject      string  `json:"subject"`
	Message      string  `json:"message"`
	Response     string  `json:"response,omitempty"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toConsultationResponse(c *domain.Consultation) ConsultationResponse {
	resp := ConsultationResponse{
		ID:        c.ID.String(),
		UserID:    c.UserID.String(),
		Subject:   c.Subject,
		Message:   c.Message,
		Response:  c.Response,
		Status:    c.Status,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
	if c.PharmacistID != nil {
		pharmacistID := c.PharmacistID.String()
		resp.PharmacistID = &pharmacistID
	}
	return resp
}

func toConsultationResponses(consultations []*domain.Consultation) []ConsultationResponse {
	responses := make([]ConsultationResponse, 0, len(consultations))
	for _, c := range consultations {
		responses = append(responses, toConsultationResponse(c))
	}
	return responses
}

// ConsultationHandler handles HTTP requests for pharmacist consultations
type ConsultationHandler struct {
	consultationService service.ConsultationService
	logger              *zap.Logger
}

// NewConsultationHandler creates a new ConsultationHandler
func NewConsultationHandler(consultationService service.ConsultationService, logger *zap.Logger) *ConsultationHandler {
	return &ConsultationHandler{
		consultationService: consultationService,
		logger:              logger,
	}
}

// RegisterRoutes registers all consultation routes
func (h *ConsultationHandler) RegisterRoutes(r chi.Router, authMiddleware, staffMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/consultations", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", h.Create)
		r.Get("/", h.ListMine)

		r.Group(func(r chi.Router) {
			r.Use(staffMiddleware)
			r.Get("/pending", h.ListPending)
			r.Post("/{id}/assign", h.Assign)
			r.Post("/{id}/respond", h.Respond)
		})
	})
}

// Create opens a new pending consultation
func (h *ConsultationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateConsultationRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	consultation, err := h.consultationService.Create(r.Context(), userID, req.Subject, req.Message)
	if err != nil {
		h.logger.Error("Failed to create consultation", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create consultation")
		return
	}

	h.logger.Info("Consultation created",
		zap.String("consultation_id", consultation.ID.String()),
		zap.String("user_id", userID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, toConsultationResponse(consultation))
}

// ListMine returns the caller's consultations, newest first
func (h *ConsultationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	consultations, err := h.consultationService.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list consultations", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list consultations")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toConsultationResponses(consultations))
}

// ListPending returns all unassigned consultations
func (h *ConsultationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	consultations, err := h.consultationService.ListPending(r.Context())
	if err != nil {
		h.logger.Error("Failed to list pending consultations", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list pending consultations")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toConsultationResponses(consultations))
}

// Assign claims a consultation for the calling pharmacist
func (h *ConsultationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	pharmacistID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid consultation ID")
		return
	}

	if err := h.consultationService.Assign(r.Context(), id, pharmacistID); err != nil {
		if err == repository.ErrConsultationNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "consultation not found")
			return
		}
		h.logger.Error("Failed to assign consultation", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to assign consultation")
		return
	}

	h.logger.Info("Consultation assigned",
		zap.String("consultation_id", id.String()),
		zap.String("pharmacist_id", pharmacistID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "consultation assigned"})
}

// Respond records the calling pharmacist's answer. A consultation assigned to
// someone else is reported as not found.
func (h *ConsultationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	pharmacistID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid consultation ID")
		return
	}

	var req RespondConsultationRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.consultationService.Respond(r.Context(), id, pharmacistID, req.Response); err != nil {
		if err == repository.ErrConsultationNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "consultation not found")
			return
		}
		h.logger.Error("Failed to respond to consultation", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to respond to consultation")
		return
	}

	h.logger.Info("Consultation answered",
		zap.String("consultation_id", id.String()),
		zap.String("pharmacist_id", pharmacistID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "response recorded"})
}
