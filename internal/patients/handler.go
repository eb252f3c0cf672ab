package patients

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// Handler serves the booking-token endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the token handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// SubmitMedicalFormRequest is the intake payload.
type SubmitMedicalFormRequest struct {
	UserID         string          `json:"userId"`
	PatientName    string          `json:"patientName"`
	PatientEmail   string          `json:"patientEmail"`
	MedicalForm    json.RawMessage `json:"medicalForm"`
	SessionPackage SessionPackage  `json:"sessionPackage"`
}

// SubmitMedicalForm handles POST /api/medical-form.
func (h *Handler) SubmitMedicalForm(w http.ResponseWriter, r *http.Request) {
	var req SubmitMedicalFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientEmail == "" || req.PatientName == "" {
		http.Error(w, "patientName and patientEmail are required", http.StatusBadRequest)
		return
	}

	rec, err := h.service.CreateToken(CreateTokenInput{
		UserID:         req.UserID,
		PatientName:    req.PatientName,
		PatientEmail:   req.PatientEmail,
		MedicalForm:    string(req.MedicalForm),
		SessionPackage: req.SessionPackage,
	})
	if err != nil {
		h.logger.Error("failed to create booking token", "error", err)
		http.Error(w, "failed to create booking token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// ValidateToken handles GET /api/booking-tokens/{token}.
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	summary, err := h.service.Validate(token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			http.Error(w, "booking token not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to validate token", "error", err, "token", token)
		http.Error(w, "failed to validate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// ListTokens handles GET /admin/booking-tokens.
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List()
	if err != nil {
		h.logger.Error("failed to list tokens", "error", err)
		http.Error(w, "failed to list tokens", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"tokens": records,
		"count":  len(records),
	})
}

// OverrideSessionsRequest is the admin session-count override payload.
type OverrideSessionsRequest struct {
	SessionsUsed int `json:"sessionsUsed"`
}

// OverrideSessions handles PATCH /admin/booking-tokens/{token}/sessions.
func (h *Handler) OverrideSessions(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req OverrideSessionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	summary, err := h.service.SetSessionsUsed(token, req.SessionsUsed)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			http.Error(w, "booking token not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to override sessions", "error", err, "token", token)
		http.Error(w, "failed to override sessions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
