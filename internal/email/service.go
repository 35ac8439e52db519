package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/aproko/clinic-api/internal/config"
)

type Service interface {
	SendBookingConfirmation(ctx context.Context, to, patientName, doctorName, date, timeSlot string) error
	SendCancellationNotice(ctx context.Context, to, patientName, doctorName, date, timeSlot string) error
	SendDoctorWelcome(ctx context.Context, to, name, tempPassword string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendBookingConfirmation(ctx context.Context, to, patientName, doctorName, date, timeSlot string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment with Dr. %s on %s at %s has been booked.\n\nAproko Clinic",
		patientName, doctorName, date, timeSlot,
	)
	return s.send(ctx, to, "Appointment confirmed", body)
}

func (s *smtpService) SendCancellationNotice(ctx context.Context, to, patientName, doctorName, date, timeSlot string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment with Dr. %s on %s at %s has been cancelled.\n\nAproko Clinic",
		patientName, doctorName, date, timeSlot,
	)
	return s.send(ctx, to, "Appointment cancelled", body)
}

func (s *smtpService) SendDoctorWelcome(ctx context.Context, to, name, tempPassword string) error {
	body := fmt.Sprintf(
		"Dear Dr. %s,\n\nYour account has been created. Your temporary password is: %s\nPlease change it after your first login.\n\nAproko Clinic",
		name, tempPassword,
	)
	return s.send(ctx, to, "Your clinic account", body)
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
