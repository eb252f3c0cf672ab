package notify

import "fmt"

// BookingConfirmation builds the confirmation email for a scheduled session.
func BookingConfirmation(patientName, date, timeOfDay, meetLink string) EmailMessage {
	name := patientName
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour therapy session is confirmed for %s at %s (Lisbon time).\n",
		name, date, timeOfDay,
	)
	if meetLink != "" {
		body += fmt.Sprintf("\nJoin online: %s\n", meetLink)
	}
	body += "\nIf you need to reschedule, reply to this email at least 24 hours in advance.\n\nWarm regards,\nDoctor K Therapy"
	return EmailMessage{
		Subject: fmt.Sprintf("Session confirmed — %s at %s", date, timeOfDay),
		ToName:  patientName,
		Body:    body,
	}
}

// BookingCancellation builds the cancellation notice.
func BookingCancellation(patientName, date, timeOfDay string, sessionsRemaining int) EmailMessage {
	name := patientName
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour session on %s at %s has been cancelled and the session was returned to your package. You now have %d session(s) remaining.\n\nWarm regards,\nDoctor K Therapy",
		name, date, timeOfDay, sessionsRemaining,
	)
	return EmailMessage{
		Subject: "Session cancelled",
		ToName:  patientName,
		Body:    body,
	}
}

// PackagePurchase builds the post-payment email carrying the booking link.
func PackagePurchase(patientName, packageName, bookingURL string) EmailMessage {
	name := patientName
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nThank you for purchasing %s. Use the link below to complete your intake form and book your sessions:\n\n%s\n\nWarm regards,\nDoctor K Therapy",
		name, packageName, bookingURL,
	)
	return EmailMessage{
		Subject: "Your session package is ready",
		ToName:  patientName,
		Body:    body,
	}
}

// WaitlistAcknowledgment confirms a waitlist signup.
func WaitlistAcknowledgment(patientName string) EmailMessage {
	name := patientName
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYou're on the waitlist. We'll reach out as soon as a matching slot opens up.\n\nWarm regards,\nDoctor K Therapy",
		name,
	)
	return EmailMessage{
		Subject: "You're on the waitlist",
		ToName:  patientName,
		Body:    body,
	}
}
