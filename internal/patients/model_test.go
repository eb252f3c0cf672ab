package patients

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTotalSessionCount(t *testing.T) {
	tests := []struct {
		name      string
		pkg       SessionPackage
		want      int
		heuristic bool
	}{
		{"explicit wins", SessionPackage{Name: "whatever", TotalSessions: 6}, 6, false},
		{"single session", SessionPackage{Name: "1 Session Consultation"}, 1, false},
		{"four sessions", SessionPackage{Name: "4 Sessions Package"}, 4, false},
		{"six sessions", SessionPackage{Name: "6 Sessions Package"}, 6, false},
		{"eight sessions", SessionPackage{Name: "8 Sessions Package"}, 8, false},
		{"case insensitive", SessionPackage{Name: "8 SESSION BUNDLE"}, 8, false},
		{"unknown name defaults", SessionPackage{Name: "Couples Intensive"}, 4, true},
		{"empty name defaults", SessionPackage{}, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, heuristic := tt.pkg.TotalSessionCount()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.heuristic, heuristic)
		})
	}
}

func TestNewExpiry(t *testing.T) {
	created := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC), NewExpiry(created))
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	rec := TokenRecord{
		Token:          "t1",
		SessionPackage: SessionPackage{Name: "4 Sessions Package"},
		SessionsUsed:   2,
		CreatedAt:      now.AddDate(0, -1, 0),
		ExpiresAt:      now.AddDate(0, 2, 0),
	}

	s := rec.Summarize(now)
	assert.Equal(t, 4, s.SessionsTotal)
	assert.Equal(t, 2, s.SessionsUsed)
	assert.Equal(t, 2, s.SessionsRemaining)
	assert.False(t, s.IsExpired)
	assert.True(t, s.CanBook)
}

func TestSummarizeExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := TokenRecord{
		SessionPackage: SessionPackage{Name: "4 Sessions Package"},
		CreatedAt:      now.AddDate(0, -4, 0),
		ExpiresAt:      now.AddDate(0, -1, 0),
	}

	s := rec.Summarize(now)
	assert.True(t, s.IsExpired)
	assert.False(t, s.CanBook)
	assert.Equal(t, "token expired", s.Reason)
}

func TestSummarizeExhausted(t *testing.T) {
	now := time.Now()
	rec := TokenRecord{
		SessionPackage: SessionPackage{Name: "1 Session Consultation"},
		SessionsUsed:   1,
		ExpiresAt:      now.AddDate(0, 1, 0),
	}

	s := rec.Summarize(now)
	assert.False(t, s.CanBook)
	assert.Equal(t, 0, s.SessionsRemaining)
	assert.Equal(t, "no sessions remaining", s.Reason)
}

func TestSummarizeClampsOverdrawnRecord(t *testing.T) {
	now := time.Now()
	rec := TokenRecord{
		SessionPackage: SessionPackage{Name: "4 Sessions Package"},
		SessionsUsed:   9,
		ExpiresAt:      now.AddDate(0, 1, 0),
	}

	s := rec.Summarize(now)
	assert.Equal(t, 4, s.SessionsUsed)
	assert.Equal(t, 0, s.SessionsRemaining, "remaining must never go negative")
}
