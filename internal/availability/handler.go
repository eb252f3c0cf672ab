package availability

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/patients"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// Handler serves the availability endpoints.
type Handler struct {
	engine    *Engine
	overrides *OverrideStore
	tokens    *patients.Service
	logger    *logging.Logger
}

// NewHandler creates the availability handler.
func NewHandler(engine *Engine, overrides *OverrideStore, tokens *patients.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, overrides: overrides, tokens: tokens, logger: logger}
}

// Slots handles GET /api/availability and GET /admin/availability/slots.
func (h *Handler) Slots(adminMode bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := Query{
			Start:       r.URL.Query().Get("start"),
			End:         r.URL.Query().Get("end"),
			SessionType: r.URL.Query().Get("sessionType"),
			AdminMode:   adminMode,
		}
		if q.Start == "" {
			q.Start = time.Now().Format("2006-01-02")
		}
		if q.End == "" {
			q.End = time.Now().AddDate(0, 0, 28).Format("2006-01-02")
		}

		// A booking token resolves the session type when none was given.
		if q.SessionType == "" {
			if token := r.URL.Query().Get("token"); token != "" && h.tokens != nil {
				if rec, err := h.tokens.Get(token); err == nil {
					if total, _ := rec.SessionPackage.TotalSessionCount(); total == 1 {
						q.SessionType = "consultation"
					} else {
						q.SessionType = "therapy"
					}
				}
			}
		}

		days, err := h.engine.Slots(r.Context(), q)
		if err != nil {
			if errors.Is(err, ErrInvalidQuery) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			// Upstream calendar failure: surface the provider's message.
			h.logger.Error("availability query failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if days == nil {
			days = []DaySlots{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"days": days})
	}
}

// ListOverrides handles GET /admin/availability.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	all, err := h.overrides.List()
	if err != nil {
		h.logger.Error("failed to list overrides", "error", err)
		http.Error(w, "failed to list overrides", http.StatusInternalServerError)
		return
	}
	if all == nil {
		all = []Override{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"overrides": all})
}

// AddOverride handles POST /admin/availability.
func (h *Handler) AddOverride(w http.ResponseWriter, r *http.Request) {
	var o Override
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.overrides.Add(o); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(o)
}

// RemoveOverrideRequest identifies an override to drop.
type RemoveOverrideRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// RemoveOverride handles DELETE /admin/availability.
func (h *Handler) RemoveOverride(w http.ResponseWriter, r *http.Request) {
	var req RemoveOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Date == "" || req.Time == "" {
		http.Error(w, "date and time are required", http.StatusBadRequest)
		return
	}
	if err := h.overrides.Remove(req.Date, req.Time); err != nil {
		h.logger.Error("failed to remove override", "error", err)
		http.Error(w, "failed to remove override", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "removed"})
}
