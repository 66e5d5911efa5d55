// utils/mailer.go
package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/gomail.v2"
)

// Mailer sends verification-code emails over SMTP. When SMTP settings
// are absent (local dev, tests) sending degrades to a no-op so the rest
// of the flow stays exercisable.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewMailerFromEnv() *Mailer {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	return &Mailer{
		host: os.Getenv("SMTP_HOST"),
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		from: os.Getenv("FROM_EMAIL"),
	}
}

func (m *Mailer) Configured() bool {
	return m.host != "" && m.user != "" && m.from != ""
}

// SendVerificationCode emails the 6-digit code.
func (m *Mailer) SendVerificationCode(toEmail, code string) error {
	if !m.Configured() {
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", "Verify Your Email - Early Badge")

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff;">
    <div style="background-color: #000000; color: #ffffff; padding: 40px; text-align: center;">
      <h1 style="margin: 0; font-size: 32px;">Early Badge</h1>
      <p style="margin: 10px 0 0 0; font-size: 16px;">Email Verification</p>
    </div>
    <div style="padding: 40px; text-align: center;">
      <h2 style="color: #333;">Verify Your Email Address</h2>
      <p style="color: #666; font-size: 16px;">Enter the verification code below to continue earning your Early Badge.</p>
      <div style="background-color: #f8f8f8; border: 2px solid #e0e0e0; border-radius: 8px; padding: 30px; margin: 30px 0; font-size: 36px; letter-spacing: 10px; font-weight: bold; color: #333333;">%s</div>
      <p style="color: #999; font-size: 14px;">This code will expire in 10 minutes.</p>
    </div>
    <div style="padding: 20px; text-align: center; color: #666666; font-size: 14px;">
      <p>If you didn't request this verification, please ignore this email.</p>
    </div>
  </div>
</body>
</html>`, code)
	msg.SetBody("text/html", body)

	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
