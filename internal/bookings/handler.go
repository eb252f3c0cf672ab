package bookings

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/patients"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/pendingcache"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// Handler serves the booking endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the booking handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// CreateRequest is the booking creation payload.
type CreateRequest struct {
	Token       string `json:"token"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	SessionType string `json:"sessionType,omitempty"`
	Online      bool   `json:"online"`
}

// Create handles POST /api/bookings and POST /admin/bookings.
func (h *Handler) Create(fromAdmin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		booking, err := h.service.Create(r.Context(), CreateInput{
			Token:       req.Token,
			Date:        req.Date,
			Time:        req.Time,
			SessionType: req.SessionType,
			Online:      req.Online,
			FromAdmin:   fromAdmin,
		})
		if err != nil {
			h.writeError(w, "create booking", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(booking)
	}
}

// ListForToken handles GET /api/bookings. Patients see the occurrences
// drawing down their token.
func (h *Handler) ListForToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}
	all, err := h.service.ListForToken(token)
	if err != nil {
		h.writeError(w, "list bookings", err)
		return
	}
	if all == nil {
		all = []Booking{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"bookings": all, "count": len(all)})
}

// CancelRequest identifies the booking a patient wants to cancel.
type CancelRequest struct {
	Token string `json:"token"`
	Date  string `json:"date"`
}

// Cancel handles DELETE /api/bookings.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" || req.Date == "" {
		http.Error(w, "token and date are required", http.StatusBadRequest)
		return
	}

	if err := h.service.Cancel(r.Context(), req.Token, req.Date); err != nil {
		h.writeError(w, "cancel booking", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
}

// CancelByID handles DELETE /admin/bookings/{bookingID}.
func (h *Handler) CancelByID(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	if err := h.service.CancelByID(r.Context(), bookingID); err != nil {
		h.writeError(w, "cancel booking", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
}

// RescheduleRequest is the admin reschedule payload.
type RescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Reschedule handles PATCH /admin/bookings/{bookingID}.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	booking, err := h.service.Reschedule(r.Context(), bookingID, req.Date, req.Time)
	if err != nil {
		h.writeError(w, "reschedule booking", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

// RecurringRequest is the admin recurring-series payload.
type RecurringRequest struct {
	CreateRequest
	Occurrences int `json:"occurrences"`
}

// CreateRecurring handles POST /admin/bookings/recurring.
func (h *Handler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req RecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.CreateRecurring(r.Context(), CreateInput{
		Token:       req.Token,
		Date:        req.Date,
		Time:        req.Time,
		SessionType: req.SessionType,
		Online:      req.Online,
	}, req.Occurrences)
	if err != nil {
		h.writeError(w, "create recurring series", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// AdminListResponse merges ledgered bookings with pending cache entries.
type AdminListResponse struct {
	Bookings []Booking            `json:"bookings"`
	Pending  []pendingcache.Entry `json:"pending,omitempty"`
	Count    int                  `json:"count"`
}

// AdminList handles GET /admin/bookings.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from, to := now.AddDate(0, 0, -7), now.AddDate(0, 3, 0)
	if s := r.URL.Query().Get("start"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			from = parsed
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			to = parsed.AddDate(0, 0, 1)
		}
	}

	all, pending, err := h.service.AdminList(r.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AdminListResponse{
		Bookings: all,
		Pending:  pending,
		Count:    len(all) + len(pending),
	})
}

// writeError maps service errors onto the HTTP taxonomy: validation 400,
// not found 404, conflict 409, upstream 500 with the provider's message.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrSlotTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, patients.ErrTokenNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, patients.ErrNoSessionsLeft):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("booking operation failed", "operation", op, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
