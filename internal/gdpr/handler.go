package gdpr

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// Handler serves the admin GDPR endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates the GDPR handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type emailRequest struct {
	Email string `json:"email"`
}

func decodeEmail(r *http.Request) (string, bool) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", false
	}
	email := strings.TrimSpace(req.Email)
	return email, email != ""
}

// Export handles POST /admin/gdpr/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(r)
	if !ok {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	bundle, err := h.svc.Export(email)
	if err != nil {
		h.logger.Error("gdpr export failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bundle)
}

// AuditEntry is one recorded data-subject request.
type AuditEntry struct {
	RequestID    string `json:"requestId"`
	Timestamp    string `json:"timestamp"`
	RequestType  string `json:"requestType"`
	PatientEmail string `json:"patientEmail"`
	Status       string `json:"status"`
	Details      string `json:"details,omitempty"`
}

// AuditLog handles GET /admin/gdpr/audit-log.
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.AuditLog()
	if err != nil {
		h.logger.Error("gdpr audit log read failed", "error", err)
		http.Error(w, "failed to read audit log", http.StatusInternalServerError)
		return
	}
	entries := make([]AuditEntry, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(auditHeader) {
			continue
		}
		entries = append(entries, AuditEntry{
			RequestID:    row[0],
			Timestamp:    row[1],
			RequestType:  row[2],
			PatientEmail: row[3],
			Status:       row[4],
			Details:      row[5],
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"requests": entries, "count": len(entries)})
}

// Erase handles POST /admin/gdpr/erase.
func (h *Handler) Erase(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(r)
	if !ok {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	result, err := h.svc.Erase(email)
	if err != nil {
		h.logger.Error("gdpr erasure failed", "error", err)
		http.Error(w, "erasure failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
