package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingConfirmation(t *testing.T) {
	msg := BookingConfirmation("Ana", "2026-09-15", "18:00", "https://meet.google.com/abc")
	assert.Contains(t, msg.Body, "Ana")
	assert.Contains(t, msg.Body, "2026-09-15")
	assert.Contains(t, msg.Body, "18:00")
	assert.Contains(t, msg.Body, "https://meet.google.com/abc")
	assert.Contains(t, msg.Subject, "2026-09-15")
}

func TestBookingConfirmationInPerson(t *testing.T) {
	msg := BookingConfirmation("Ana", "2026-09-15", "18:00", "")
	assert.NotContains(t, msg.Body, "Join online")
}

func TestBookingConfirmationMissingName(t *testing.T) {
	msg := BookingConfirmation("", "2026-09-15", "18:00", "")
	assert.True(t, strings.Contains(msg.Body, "Hi there"))
}

func TestBookingCancellation(t *testing.T) {
	msg := BookingCancellation("Ana", "2026-09-15", "18:00", 3)
	assert.Contains(t, msg.Body, "3 session(s) remaining")
	assert.Contains(t, msg.Body, "returned to your package")
}

func TestPackagePurchase(t *testing.T) {
	msg := PackagePurchase("Ana", "4 Sessions Package", "https://example.com/book?token=x")
	assert.Contains(t, msg.Body, "4 Sessions Package")
	assert.Contains(t, msg.Body, "https://example.com/book?token=x")
}
