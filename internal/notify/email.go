package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Dan9191/daybal/internal/config"
	"github.com/Dan9191/daybal/internal/models"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SendFunc delivers a composed message
type SendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Sender handles sending the daily digest via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   SendFunc
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendDigest mails today's balance next to the historical statistics
func (s *Sender) SendDigest(_ context.Context, d *models.ComparisonData) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.DigestRecipient}
	e.Subject = fmt.Sprintf("Balance on day %d: %s %s", d.DayOfMonth, d.CurrentBalance.StringFixed(2), d.Currency)
	e.Text = []byte(DigestBody(d))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send digest to %s: %v", s.cfg.DigestRecipient, err)
		return fmt.Errorf("failed to send digest: %w", err)
	}

	s.logger.Infof("Digest sent to %s", s.cfg.DigestRecipient)
	return nil
}

// DigestBody renders the plain text digest
func DigestBody(d *models.ComparisonData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current balance: %s %s\n", d.CurrentBalance.StringFixed(2), d.Currency)
	if !d.HistoricalDataAvailable {
		b.WriteString("\nNo history recorded yet for this day of the month.\n")
		return b.String()
	}
	writeStat(&b, fmt.Sprintf("Median of last %d months", d.MedianWindowMonths), d.Median, d)
	writeStat(&b, fmt.Sprintf("Average of last %d months", d.AverageWindowMonths), d.Average, d)
	return b.String()
}

func writeStat(b *strings.Builder, label string, v *decimal.Decimal, d *models.ComparisonData) {
	if v == nil {
		fmt.Fprintf(b, "%s: not enough history\n", label)
		return
	}
	diff := d.CurrentBalance.Sub(*v)
	sign := "+"
	if diff.IsNegative() {
		sign = ""
	}
	fmt.Fprintf(b, "%s: %s %s (%s%s)\n", label, v.StringFixed(2), d.Currency, sign, diff.StringFixed(2))
}
