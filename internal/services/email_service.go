package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailService is the outbound mail contract the verification flow depends
// on. Transport mechanics do not matter to the core; any failure surfaces as
// EmailSendFailedError.
type EmailService interface {
	SendVerificationCode(email, code string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendVerificationCode(email, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your Rulevault verification code")

	body := fmt.Sprintf(`
		<h3>Confirm your email</h3>
		<p>Your verification code is: <strong>%s</strong></p>
		<p>It expires in 10 minutes. If you did not request this code, you can ignore this email.</p>
	`, code)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}
