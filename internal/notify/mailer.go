package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// Booking carries the details the mailer needs to write to a customer.
type Booking struct {
	CustomerName  string
	CustomerEmail string
	HairstyleName string
	Start         time.Time
	Duration      time.Duration
	CancelURL     string
	SalonName     string
}

// BookingMailer composes and sends booking lifecycle emails through an
// EmailSender. All methods are best effort from the caller's point of view;
// a failed send must never fail a booking.
type BookingMailer struct {
	sender EmailSender
	// salonEmail gets a heads-up copy of booking activity; empty
	// disables the copy.
	salonEmail string
	logger     *logging.Logger
}

// NewBookingMailer creates a mailer. A nil sender yields a mailer whose
// methods are no-ops, so callers don't need to branch on email being enabled.
func NewBookingMailer(sender EmailSender, logger *logging.Logger) *BookingMailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingMailer{sender: sender, logger: logger}
}

// WithSalonCopy sends the salon inbox a short note for every booking and
// cancellation.
func (m *BookingMailer) WithSalonCopy(email string) *BookingMailer {
	if m != nil {
		m.salonEmail = email
	}
	return m
}

// SendConfirmation emails the customer their booking details and cancel link.
func (m *BookingMailer) SendConfirmation(ctx context.Context, b Booking) error {
	if m == nil || m.sender == nil {
		return nil
	}
	salon := b.SalonName
	if salon == "" {
		salon = "Salon Aurelie"
	}
	when := b.Start.Format("Monday, January 2 at 3:04 PM")
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment is confirmed.\n\nService: %s\nWhen: %s\nDuration: %d minutes\n",
		b.CustomerName, b.HairstyleName, when, int(b.Duration.Minutes()),
	)
	if b.CancelURL != "" {
		body += fmt.Sprintf("\nNeed to cancel? Use this link:\n%s\n", b.CancelURL)
	}
	body += fmt.Sprintf("\nSee you soon,\n%s", salon)

	err := m.sender.Send(ctx, EmailMessage{
		To:      b.CustomerEmail,
		ToName:  b.CustomerName,
		Subject: fmt.Sprintf("Appointment confirmed: %s on %s", b.HairstyleName, b.Start.Format("Jan 2")),
		Body:    body,
	})
	if err != nil {
		m.logger.Error("confirmation email failed", "error", err, "to", b.CustomerEmail)
		return fmt.Errorf("notify: send confirmation: %w", err)
	}
	m.sendSalonCopy(ctx, b, "New booking")
	return nil
}

// SendCancellation emails the customer that their booking was cancelled.
func (m *BookingMailer) SendCancellation(ctx context.Context, b Booking) error {
	if m == nil || m.sender == nil {
		return nil
	}
	salon := b.SalonName
	if salon == "" {
		salon = "Salon Aurelie"
	}
	when := b.Start.Format("Monday, January 2 at 3:04 PM")
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %s appointment on %s has been cancelled.\n\nYou can book a new time whenever suits you.\n\n%s",
		b.CustomerName, b.HairstyleName, when, salon,
	)

	err := m.sender.Send(ctx, EmailMessage{
		To:      b.CustomerEmail,
		ToName:  b.CustomerName,
		Subject: fmt.Sprintf("Appointment cancelled: %s on %s", b.HairstyleName, b.Start.Format("Jan 2")),
		Body:    body,
	})
	if err != nil {
		m.logger.Error("cancellation email failed", "error", err, "to", b.CustomerEmail)
		return fmt.Errorf("notify: send cancellation: %w", err)
	}
	m.sendSalonCopy(ctx, b, "Cancellation")
	return nil
}

// sendSalonCopy is strictly best effort: a failed copy is logged and never
// surfaced, the customer email already went out.
func (m *BookingMailer) sendSalonCopy(ctx context.Context, b Booking, kind string) {
	if m.salonEmail == "" {
		return
	}
	when := b.Start.Format("Mon Jan 2 15:04")
	err := m.sender.Send(ctx, EmailMessage{
		To:      m.salonEmail,
		Subject: fmt.Sprintf("%s: %s, %s", kind, b.HairstyleName, when),
		Body: fmt.Sprintf("%s\n\nCustomer: %s <%s>\nService: %s\nWhen: %s\nDuration: %d minutes\n",
			kind, b.CustomerName, b.CustomerEmail, b.HairstyleName, when, int(b.Duration.Minutes())),
	})
	if err != nil {
		m.logger.Warn("salon copy email failed", "error", err, "to", m.salonEmail)
	}
}
