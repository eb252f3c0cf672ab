package patients

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/medcrypt"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// ErrNoSessionsLeft reports a debit against an exhausted or expired token.
var ErrNoSessionsLeft = errors.New("patients: no bookable sessions on token")

// Service owns the token ledger and the session accounting rules.
type Service struct {
	store     *Store
	encrypter *medcrypt.Encrypter
	logger    *logging.Logger
	now       func() time.Time
}

// NewService wires the token service.
func NewService(store *Store, encrypter *medcrypt.Encrypter, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, encrypter: encrypter, logger: logger, now: time.Now}
}

// CreateTokenInput carries a new intake record.
type CreateTokenInput struct {
	UserID       string
	PatientName  string
	PatientEmail string
	// MedicalForm is the raw intake form JSON; it is encrypted before it
	// reaches the ledger.
	MedicalForm    string
	SessionPackage SessionPackage
}

// CreateToken encrypts the medical form and appends a fresh token record.
func (s *Service) CreateToken(in CreateTokenInput) (TokenRecord, error) {
	if in.PatientEmail == "" {
		return TokenRecord{}, fmt.Errorf("patients: patient email required")
	}
	encrypted := ""
	if in.MedicalForm != "" {
		var err error
		encrypted, err = s.encrypter.Encrypt(in.MedicalForm)
		if err != nil {
			return TokenRecord{}, err
		}
	}
	if _, heuristic := in.SessionPackage.TotalSessionCount(); heuristic {
		s.logger.Warn("unrecognized session package name, defaulting to 4 sessions",
			"package", in.SessionPackage.Name)
	}

	now := s.now().UTC()
	rec := TokenRecord{
		Token:                uuid.NewString(),
		UserID:               in.UserID,
		PatientName:          in.PatientName,
		PatientEmail:         in.PatientEmail,
		EncryptedMedicalForm: encrypted,
		SessionPackage:       in.SessionPackage,
		SessionsUsed:         0,
		CreatedAt:            now,
		ExpiresAt:            NewExpiry(now),
	}
	if err := s.store.Append(rec); err != nil {
		return TokenRecord{}, err
	}
	s.logger.Info("booking token created",
		"token", rec.Token, "package", rec.SessionPackage.Name, "expires_at", rec.ExpiresAt)
	return rec, nil
}

// Get returns the raw record for a token.
func (s *Service) Get(token string) (TokenRecord, error) {
	return s.store.Get(token)
}

// List returns every token record.
func (s *Service) List() ([]TokenRecord, error) {
	return s.store.List()
}

// Validate returns the session summary for a token.
func (s *Service) Validate(token string) (SessionSummary, error) {
	rec, err := s.store.Get(token)
	if err != nil {
		return SessionSummary{}, err
	}
	return rec.Summarize(s.now()), nil
}

// DebitSession consumes one session. It refuses when the token is expired or
// exhausted, so a booking can never overdraw a package.
func (s *Service) DebitSession(token string) (SessionSummary, error) {
	rec, err := s.store.Mutate(token, func(rec TokenRecord) (TokenRecord, error) {
		summary := rec.Summarize(s.now())
		if !summary.CanBook {
			return TokenRecord{}, fmt.Errorf("%w: %s", ErrNoSessionsLeft, summary.Reason)
		}
		rec.SessionsUsed = summary.SessionsUsed + 1
		return rec, nil
	})
	if err != nil {
		return SessionSummary{}, err
	}
	return rec.Summarize(s.now()), nil
}

// CreditSession returns one session to the token, clamped at zero used.
func (s *Service) CreditSession(token string) (SessionSummary, error) {
	rec, err := s.store.Mutate(token, func(rec TokenRecord) (TokenRecord, error) {
		if rec.SessionsUsed > 0 {
			rec.SessionsUsed--
		}
		return rec, nil
	})
	if err != nil {
		return SessionSummary{}, err
	}
	return rec.Summarize(s.now()), nil
}

// SetSessionsUsed applies an admin override, clamped to [0, total].
func (s *Service) SetSessionsUsed(token string, used int) (SessionSummary, error) {
	rec, err := s.store.Mutate(token, func(rec TokenRecord) (TokenRecord, error) {
		total, _ := rec.SessionPackage.TotalSessionCount()
		if used < 0 {
			used = 0
		}
		if used > total {
			used = total
		}
		rec.SessionsUsed = used
		return rec, nil
	})
	if err != nil {
		return SessionSummary{}, err
	}
	s.logger.Info("sessions override applied", "token", token, "sessions_used", rec.SessionsUsed)
	return rec.Summarize(s.now()), nil
}

// FindByEmail returns the records belonging to a patient email. When the
// plain email column is empty the encrypted medical form is opened and its
// email field compared instead.
func (s *Service) FindByEmail(email string) ([]TokenRecord, error) {
	records, err := s.store.List()
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	var matched []TokenRecord
	for _, rec := range records {
		if strings.EqualFold(rec.PatientEmail, email) {
			matched = append(matched, rec)
			continue
		}
		if rec.PatientEmail == "" && rec.EncryptedMedicalForm != "" {
			if formEmail, ok := s.emailFromForm(rec.EncryptedMedicalForm); ok && formEmail == email {
				matched = append(matched, rec)
			}
		}
	}
	return matched, nil
}

// DecryptMedicalForm opens a record's medical form for export.
func (s *Service) DecryptMedicalForm(rec TokenRecord) (string, error) {
	if rec.EncryptedMedicalForm == "" {
		return "", nil
	}
	return s.encrypter.Decrypt(rec.EncryptedMedicalForm)
}

// Remove deletes token records outright. GDPR erasure is the only caller.
func (s *Service) Remove(tokens map[string]bool) (int, error) {
	return s.store.Remove(tokens)
}

func (s *Service) emailFromForm(encrypted string) (string, bool) {
	plaintext, err := s.encrypter.Decrypt(encrypted)
	if err != nil {
		s.logger.Warn("could not decrypt medical form for email match", "error", err)
		return "", false
	}
	var form struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal([]byte(plaintext), &form); err != nil {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(form.Email)), true
}
