package notifications

import (
	"context"
	"fmt"
	"time"

	"moviebooking/pkg/logger"
)

// Service turns domain events into emails
type Service interface {
	HandleBookingEvent(ctx context.Context, event *BookingEvent) error
	SendPasswordReset(ctx context.Context, to, name, token string, ttl time.Duration) error
}

type service struct {
	mailer Mailer
	logger *logger.Logger
}

func NewService(mailer Mailer) Service {
	return &service{
		mailer: mailer,
		logger: logger.GetDefault(),
	}
}

func (s *service) HandleBookingEvent(ctx context.Context, event *BookingEvent) error {
	if event.OwnerEmail == "" {
		s.logger.Debug("booking event has no recipient, skipping", "reference", event.Reference)
		return nil
	}

	var email *Email
	switch event.Type {
	case EventBookingConfirmed:
		body, err := renderTemplate("booking_confirmed", event)
		if err != nil {
			return err
		}
		email = &Email{
			To:       event.OwnerEmail,
			Subject:  fmt.Sprintf("Booking confirmed: %s (%s)", event.MovieName, event.Reference),
			HTMLBody: body,
		}
		qr, err := TicketQRCode(event.Reference, DefaultQRCodeSize)
		if err != nil {
			s.logger.Warn("failed to attach ticket qr code", "reference", event.Reference, "error", err)
		} else {
			email.Attachments = append(email.Attachments, Attachment{
				Filename: fmt.Sprintf("ticket_%s.png", event.Reference),
				Data:     qr,
			})
		}

	case EventBookingCancelled:
		body, err := renderTemplate("booking_cancelled", event)
		if err != nil {
			return err
		}
		email = &Email{
			To:       event.OwnerEmail,
			Subject:  fmt.Sprintf("Booking cancelled: %s (%s)", event.MovieName, event.Reference),
			HTMLBody: body,
		}

	default:
		s.logger.Warn("unknown booking event type", "type", event.Type, "id", event.ID)
		return nil
	}

	return s.mailer.Send(ctx, email)
}

func (s *service) SendPasswordReset(ctx context.Context, to, name, token string, ttl time.Duration) error {
	body, err := renderTemplate("password_reset", map[string]interface{}{
		"Name":      name,
		"Token":     token,
		"ExpiresIn": ttl.String(),
	})
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, &Email{
		To:       to,
		Subject:  "Password reset request",
		HTMLBody: body,
	})
}
