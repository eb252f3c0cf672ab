package patients

import (
	"strings"
	"time"
)

// SessionPackage is a purchased bundle of therapy sessions.
type SessionPackage struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	TotalSessions int     `json:"totalSessions,omitempty"`
}

// TotalSessionCount resolves the package size. An explicit totalSessions wins;
// otherwise the package name is matched against the known bundle names. The
// fallback is 4, the practice's standard package.
func (p SessionPackage) TotalSessionCount() (count int, fromHeuristic bool) {
	if p.TotalSessions > 0 {
		return p.TotalSessions, false
	}
	name := strings.ToLower(p.Name)
	switch {
	case strings.Contains(name, "1 session"):
		return 1, false
	case strings.Contains(name, "4 session"):
		return 4, false
	case strings.Contains(name, "6 session"):
		return 6, false
	case strings.Contains(name, "8 session"):
		return 8, false
	}
	return 4, true
}

// TokenRecord ties a patient's intake record to a session package. One record
// per purchase; a recurring series draws down a single record.
type TokenRecord struct {
	Token                string         `json:"token"`
	UserID               string         `json:"userId"`
	PatientName          string         `json:"patientName"`
	PatientEmail         string         `json:"patientEmail"`
	EncryptedMedicalForm string         `json:"-"`
	SessionPackage       SessionPackage `json:"sessionPackage"`
	SessionsUsed         int            `json:"sessionsUsed"`
	CreatedAt            time.Time      `json:"createdAt"`
	ExpiresAt            time.Time      `json:"expiresAt"`
}

// Expiry is three calendar months after purchase.
const expiryMonths = 3

// NewExpiry computes the token expiry from its creation time.
func NewExpiry(createdAt time.Time) time.Time {
	return createdAt.AddDate(0, expiryMonths, 0)
}

// SessionSummary is the validation view of a token.
type SessionSummary struct {
	Token             string    `json:"token"`
	SessionsTotal     int       `json:"sessionsTotal"`
	SessionsUsed      int       `json:"sessionsUsed"`
	SessionsRemaining int       `json:"sessionsRemaining"`
	CreatedAt         time.Time `json:"createdAt"`
	ExpiresAt         time.Time `json:"expiresAt"`
	IsExpired         bool      `json:"isExpired"`
	CanBook           bool      `json:"canBook"`
	Reason            string    `json:"reason,omitempty"`
}

// Summarize derives the session accounting for a record at the given instant.
func (r TokenRecord) Summarize(now time.Time) SessionSummary {
	total, _ := r.SessionPackage.TotalSessionCount()
	used := r.SessionsUsed
	if used > total {
		used = total
	}
	if used < 0 {
		used = 0
	}
	s := SessionSummary{
		Token:             r.Token,
		SessionsTotal:     total,
		SessionsUsed:      used,
		SessionsRemaining: total - used,
		CreatedAt:         r.CreatedAt,
		ExpiresAt:         r.ExpiresAt,
		IsExpired:         now.After(r.ExpiresAt),
	}
	switch {
	case s.IsExpired:
		s.Reason = "token expired"
	case s.SessionsRemaining <= 0:
		s.Reason = "no sessions remaining"
	default:
		s.CanBook = true
	}
	return s
}
