package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/notify"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/observability/metrics"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/patients"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// Handler serves the payment endpoints. Successful capture of a package
// mints the patient's booking token and mails them their booking link.
type Handler struct {
	client        OrderClient
	tokens        *patients.Service
	emails        notify.EmailSender
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
	publicBaseURL string

	mu     sync.Mutex
	orders map[string]Package // orderID -> purchased package
}

// NewHandler creates the payments handler.
func NewHandler(client OrderClient, tokens *patients.Service, emails notify.EmailSender, m *metrics.BookingMetrics, publicBaseURL string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		client:        client,
		tokens:        tokens,
		emails:        emails,
		metrics:       m,
		logger:        logger,
		publicBaseURL: publicBaseURL,
		orders:        make(map[string]Package),
	}
}

// CreateOrderRequest selects a catalog package.
type CreateOrderRequest struct {
	PackageID string `json:"packageId"`
}

// CreateOrder handles POST /api/payments/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	pkg, ok := PackageByID(req.PackageID)
	if !ok {
		http.Error(w, "unknown package", http.StatusBadRequest)
		return
	}

	order, err := h.client.CreateOrder(r.Context(), pkg.Price, pkg.Currency, pkg.Name)
	if err != nil {
		h.logger.Error("paypal order create failed", "error", err, "package", pkg.ID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.orders[order.OrderID] = pkg
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(order)
}

// CaptureResponse is returned after a successful capture.
type CaptureResponse struct {
	Capture
	BookingToken string `json:"bookingToken,omitempty"`
	BookingURL   string `json:"bookingUrl,omitempty"`
}

// CaptureOrder handles POST /api/payments/orders/{orderID}/capture.
func (h *Handler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	h.mu.Lock()
	pkg, known := h.orders[orderID]
	h.mu.Unlock()
	if !known {
		http.Error(w, "unknown order", http.StatusNotFound)
		return
	}

	capture, err := h.client.CaptureOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("paypal capture failed", "error", err, "orderId", orderID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	price, _ := strconv.ParseFloat(pkg.Price, 64)
	rec, err := h.tokens.CreateToken(patients.CreateTokenInput{
		PatientName:  capture.PayerName,
		PatientEmail: capture.PayerEmail,
		SessionPackage: patients.SessionPackage{
			Name:          pkg.Name,
			Price:         price,
			TotalSessions: pkg.TotalSessions,
		},
	})
	if err != nil {
		h.logger.Error("token mint after capture failed", "error", err, "orderId", orderID)
		http.Error(w, "payment captured but token creation failed", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	delete(h.orders, orderID)
	h.mu.Unlock()

	resp := CaptureResponse{
		Capture:      capture,
		BookingToken: rec.Token,
		BookingURL:   h.publicBaseURL + "/book?token=" + rec.Token,
	}

	// Purchase email is best effort.
	if h.emails != nil && capture.PayerEmail != "" {
		msg := notify.PackagePurchase(capture.PayerName, pkg.Name, resp.BookingURL)
		msg.To = capture.PayerEmail
		msg.ToName = capture.PayerName
		if err := h.emails.Send(context.WithoutCancel(r.Context()), msg); err != nil {
			h.logger.Warn("purchase email failed", "error", err, "orderId", orderID)
			h.metrics.ObserveEmail("package_purchase", "error")
		} else {
			h.metrics.ObserveEmail("package_purchase", "sent")
		}
	}

	h.logger.Info("package purchased", "orderId", orderID, "package", pkg.ID, "token", rec.Token)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListPackages handles GET /api/payments/packages.
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"packages": Catalog})
}
