package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/notify"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/observability/metrics"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// Handler serves the waitlist endpoints.
type Handler struct {
	store   *Store
	emails  notify.EmailSender
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewHandler creates the waitlist handler.
func NewHandler(store *Store, emails notify.EmailSender, m *metrics.BookingMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, emails: emails, metrics: m, logger: logger}
}

// Join handles POST /api/waitlist.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var e Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	added, err := h.store.Add(e)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Acknowledgment email is best effort.
	if h.emails != nil {
		msg := notify.WaitlistAcknowledgment(added.PatientName)
		msg.To = added.PatientEmail
		msg.ToName = added.PatientName
		if err := h.emails.Send(context.WithoutCancel(r.Context()), msg); err != nil {
			h.logger.Warn("waitlist acknowledgment email failed", "error", err, "waitlistId", added.WaitlistID)
			h.metrics.ObserveEmail("waitlist_ack", "error")
		} else {
			h.metrics.ObserveEmail("waitlist_ack", "sent")
		}
	}

	h.logger.Info("waitlist entry added", "waitlistId", added.WaitlistID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(added)
}

// List handles GET /admin/waitlist.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.List()
	if err != nil {
		h.logger.Error("failed to list waitlist", "error", err)
		http.Error(w, "failed to list waitlist", http.StatusInternalServerError)
		return
	}
	if all == nil {
		all = []Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"waitlist": all})
}

// UpdateStatus handles PATCH /admin/waitlist/{waitlistID}.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "waitlistID")
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case StatusWaiting, StatusContacted, StatusBooked, StatusRemoved:
	default:
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}
	updated, err := h.store.SetStatus(id, req.Status)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "waitlist entry not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update waitlist entry", "error", err, "waitlistId", id)
		http.Error(w, "failed to update waitlist entry", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// Delete handles DELETE /admin/waitlist/{waitlistID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "waitlistID")
	if err := h.store.Remove(id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "waitlist entry not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete waitlist entry", "error", err, "waitlistId", id)
		http.Error(w, "failed to delete waitlist entry", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}
