package bookings

import "time"

// Session types and their durations.
const (
	SessionTypeConsultation = "consultation"
	SessionTypeTherapy      = "therapy"

	ConsultationDuration = 30 * time.Minute
	TherapyDuration      = 60 * time.Minute
)

// Duration returns the block length for a session type. Unknown types get the
// full therapy block so a malformed request can never under-reserve.
func Duration(sessionType string) time.Duration {
	if sessionType == SessionTypeConsultation {
		return ConsultationDuration
	}
	return TherapyDuration
}

// Booking is one scheduled occurrence. A recurring series shares one booking
// token across many rows.
type Booking struct {
	BookingID       string    `json:"bookingId"`
	BookingToken    string    `json:"bookingToken"`
	Date            string    `json:"date"` // YYYY-MM-DD
	Time            string    `json:"time"` // HH:MM
	SessionType     string    `json:"sessionType"`
	PatientName     string    `json:"patientName"`
	PatientEmail    string    `json:"patientEmail"`
	CreatedAt       time.Time `json:"createdAt"`
	MeetLink        string    `json:"meetLink,omitempty"`
	CalendarEventID string    `json:"calendarEventId,omitempty"`
}

// StartEnd resolves the booking's occurrence window in the practice timezone.
func (b Booking) StartEnd(loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.Time, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(Duration(b.SessionType)), nil
}
