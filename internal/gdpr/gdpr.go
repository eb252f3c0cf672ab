// Package gdpr implements data-subject export and erasure over the flat-file
// ledgers, with an append-only audit log of every request.
package gdpr

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/bookings"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/ledger"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/patients"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/waitlist"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// Request statuses recorded in the audit log.
const (
	StatusCompleted   = "COMPLETED"
	StatusPartial     = "PARTIAL"
	StatusRejected    = "REJECTED"
	StatusNoDataFound = "NO_DATA_FOUND"
	StatusError       = "ERROR"
)

// Medical records stay on file ten years from first contact.
const retentionYears = 10

var auditHeader = []string{"requestId", "timestamp", "requestType", "patientEmail", "status", "details"}

// ExportedToken is a token record with its medical form decrypted.
type ExportedToken struct {
	patients.TokenRecord
	MedicalForm string `json:"medicalForm,omitempty"`
}

// ExportBundle is everything stored about one patient.
type ExportBundle struct {
	RequestID string             `json:"requestId"`
	Email     string             `json:"email"`
	Status    string             `json:"status"`
	Tokens    []ExportedToken    `json:"tokens"`
	Bookings  []bookings.Booking `json:"bookings"`
	Waitlist  []waitlist.Entry   `json:"waitlist"`
}

// EraseResult reports the outcome of an erasure request.
type EraseResult struct {
	RequestID       string     `json:"requestId"`
	Email           string     `json:"email"`
	Status          string     `json:"status"`
	TokensRemoved   int        `json:"tokensRemoved"`
	BookingsRemoved int        `json:"bookingsRemoved"`
	WaitlistRemoved int        `json:"waitlistRemoved"`
	RetentionUntil  *time.Time `json:"retentionUntil,omitempty"`
	Details         string     `json:"details,omitempty"`
}

// Service handles export and erasure requests.
type Service struct {
	tokens   *patients.Service
	bookings *bookings.Store
	waitlist *waitlist.Store
	audit    *ledger.File
	logger   *logging.Logger
	now      func() time.Time
}

// NewService wires the GDPR service. auditPath is the deletion-log ledger.
func NewService(tokens *patients.Service, bookingStore *bookings.Store, waitlistStore *waitlist.Store, auditPath string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		tokens:   tokens,
		bookings: bookingStore,
		waitlist: waitlistStore,
		audit:    ledger.NewFile(auditPath, auditHeader),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) logRequest(requestID, requestType, email, status, details string) {
	row := []string{requestID, s.now().UTC().Format(time.RFC3339), requestType, email, status, details}
	if err := s.audit.Append(row); err != nil {
		s.logger.Error("gdpr audit append failed", "error", err, "requestId", requestID)
	}
}

// Export collects every record held for the email. Medical forms are returned
// decrypted.
func (s *Service) Export(email string) (ExportBundle, error) {
	bundle := ExportBundle{RequestID: uuid.NewString(), Email: email}

	records, err := s.tokens.FindByEmail(email)
	if err != nil {
		s.logRequest(bundle.RequestID, "export", email, StatusError, err.Error())
		return ExportBundle{}, err
	}
	for _, rec := range records {
		exported := ExportedToken{TokenRecord: rec}
		if rec.EncryptedMedicalForm != "" {
			form, err := s.tokens.DecryptMedicalForm(rec)
			if err != nil {
				s.logger.Warn("medical form undecryptable during export", "error", err, "token", rec.Token)
			} else {
				exported.MedicalForm = form
			}
		}
		bundle.Tokens = append(bundle.Tokens, exported)
	}

	matched := s.matchedBookings(email, records)
	bundle.Bookings = matched

	entries, err := s.waitlist.FindByEmail(email)
	if err != nil {
		s.logRequest(bundle.RequestID, "export", email, StatusError, err.Error())
		return ExportBundle{}, err
	}
	bundle.Waitlist = entries

	if len(bundle.Tokens) == 0 && len(bundle.Bookings) == 0 && len(bundle.Waitlist) == 0 {
		bundle.Status = StatusNoDataFound
	} else {
		bundle.Status = StatusCompleted
	}
	s.logRequest(bundle.RequestID, "export", email, bundle.Status,
		fmt.Sprintf("tokens=%d bookings=%d waitlist=%d", len(bundle.Tokens), len(bundle.Bookings), len(bundle.Waitlist)))
	return bundle, nil
}

// matchedBookings returns the bookings tied to the email directly or through a
// matching token. Errors reading the ledger degrade to an empty list only in
// export; erasure checks them explicitly.
func (s *Service) matchedBookings(email string, records []patients.TokenRecord) []bookings.Booking {
	tokenSet := make(map[string]bool, len(records))
	for _, rec := range records {
		tokenSet[rec.Token] = true
	}
	all, err := s.bookings.List()
	if err != nil {
		s.logger.Warn("booking ledger unreadable during export", "error", err)
		return nil
	}
	var out []bookings.Booking
	for _, b := range all {
		if tokenSet[b.BookingToken] || strings.EqualFold(b.PatientEmail, email) {
			out = append(out, b)
		}
	}
	return out
}

// Erase removes the patient's records, unless any of them is still inside the
// ten-year retention window. A rejected request carries the date erasure
// becomes possible and leaves every ledger untouched.
func (s *Service) Erase(email string) (EraseResult, error) {
	result := EraseResult{RequestID: uuid.NewString(), Email: email}

	records, err := s.tokens.FindByEmail(email)
	if err != nil {
		s.logRequest(result.RequestID, "erase", email, StatusError, err.Error())
		return EraseResult{}, err
	}
	entries, err := s.waitlist.FindByEmail(email)
	if err != nil {
		s.logRequest(result.RequestID, "erase", email, StatusError, err.Error())
		return EraseResult{}, err
	}
	matched := s.matchedBookings(email, records)

	if len(records) == 0 && len(entries) == 0 && len(matched) == 0 {
		result.Status = StatusNoDataFound
		s.logRequest(result.RequestID, "erase", email, result.Status, "")
		return result, nil
	}

	if earliest, ok := earliestCreatedAt(records, entries); ok {
		retentionUntil := earliest.AddDate(retentionYears, 0, 0)
		if s.now().Before(retentionUntil) {
			result.Status = StatusRejected
			result.RetentionUntil = &retentionUntil
			result.Details = "records are inside the medical retention period"
			s.logRequest(result.RequestID, "erase", email, result.Status, "retention until "+retentionUntil.Format("2006-01-02"))
			return result, nil
		}
	}

	var failures []string

	tokenSet := make(map[string]bool, len(records))
	for _, rec := range records {
		tokenSet[rec.Token] = true
	}
	removedBookings, err := s.bookings.RemoveForTokens(tokenSet)
	if err != nil {
		failures = append(failures, "bookings: "+err.Error())
	}
	result.BookingsRemoved = len(removedBookings)

	removedTokens, err := s.tokens.Remove(tokenSet)
	if err != nil {
		failures = append(failures, "tokens: "+err.Error())
	}
	result.TokensRemoved = removedTokens

	removedWaitlist, err := s.waitlist.RemoveByEmail(email)
	if err != nil {
		failures = append(failures, "waitlist: "+err.Error())
	}
	result.WaitlistRemoved = removedWaitlist

	totalRemoved := result.TokensRemoved + result.BookingsRemoved + result.WaitlistRemoved
	switch {
	case len(failures) == 0:
		result.Status = StatusCompleted
	case totalRemoved > 0:
		result.Status = StatusPartial
		result.Details = strings.Join(failures, "; ")
	default:
		result.Status = StatusError
		result.Details = strings.Join(failures, "; ")
	}
	s.logRequest(result.RequestID, "erase", email, result.Status,
		fmt.Sprintf("tokens=%d bookings=%d waitlist=%d %s", result.TokensRemoved, result.BookingsRemoved, result.WaitlistRemoved, result.Details))

	s.logger.Info("gdpr erasure processed", "requestId", result.RequestID, "status", result.Status)
	return result, nil
}

func earliestCreatedAt(records []patients.TokenRecord, entries []waitlist.Entry) (time.Time, bool) {
	var earliest time.Time
	found := false
	consider := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	for _, rec := range records {
		consider(rec.CreatedAt)
	}
	for _, e := range entries {
		consider(e.CreatedAt)
	}
	return earliest, found
}

// AuditLog returns the recorded requests, newest last.
func (s *Service) AuditLog() ([][]string, error) {
	return s.audit.ReadAll()
}
