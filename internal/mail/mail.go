// Package mail sends outreach email and probes SMTP configurations.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/pkg/metrics"
)

func dialer(cfg model.SMTPConfig) *gomail.Dialer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.SSL = cfg.Secure && cfg.Port == 465
	if cfg.Secure {
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return d
}

func fromAddress(cfg model.SMTPConfig) string {
	from := cfg.FromEmail
	if from == "" {
		from = cfg.User
	}
	if cfg.FromName != "" {
		return fmt.Sprintf("%s <%s>", cfg.FromName, from)
	}
	return from
}

// Sender delivers outreach messages with a per-call SMTP configuration.
// The service-level From identity fills in when the caller's configuration
// leaves it blank.
type Sender struct {
	fromName  string
	fromEmail string
}

// NewSender creates a sender with default From identity.
func NewSender(fromName, fromEmail string) *Sender {
	return &Sender{fromName: fromName, fromEmail: fromEmail}
}

// withDefaults fills the From identity from the sender when the caller's
// configuration leaves it blank.
func (s *Sender) withDefaults(cfg model.SMTPConfig) model.SMTPConfig {
	if cfg.FromName == "" {
		cfg.FromName = s.fromName
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = s.fromEmail
	}
	return cfg
}

// Send delivers one message. The body is sent as plain text.
func (s *Sender) Send(ctx context.Context, cfg model.SMTPConfig, to, subject, body string) error {
	cfg = s.withDefaults(cfg)

	m := gomail.NewMessage()
	m.SetHeader("From", fromAddress(cfg))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() { done <- dialer(cfg).DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tester verifies an SMTP configuration by connecting, authenticating and
// sending a test message, producing a timestamped session log either way.
type Tester struct{}

// NewTester creates a tester.
func NewTester() *Tester { return &Tester{} }

// Test probes the configuration. The returned result is always populated;
// a failed probe is a valid outcome, not an error.
func (t *Tester) Test(ctx context.Context, cfg model.SMTPConfig, to string) *model.SMTPTestResult {
	var log strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&log, "[%s] %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	}

	line("Connecting to %s:%d (secure=%t)...", cfg.Host, cfg.Port, cfg.Secure)

	type dialResult struct {
		closer gomail.SendCloser
		err    error
	}
	dialed := make(chan dialResult, 1)
	go func() {
		sc, err := dialer(cfg).Dial()
		dialed <- dialResult{sc, err}
	}()

	var sc gomail.SendCloser
	select {
	case res := <-dialed:
		if res.err != nil {
			line("Connection failed: %v", res.err)
			metrics.SMTPTestsTotal.WithLabelValues("failure").Inc()
			return &model.SMTPTestResult{Success: false, Log: log.String()}
		}
		sc = res.closer
	case <-ctx.Done():
		line("Connection timed out: %v", ctx.Err())
		metrics.SMTPTestsTotal.WithLabelValues("failure").Inc()
		return &model.SMTPTestResult{Success: false, Log: log.String()}
	}
	defer sc.Close()

	line("Connected and authenticated as %s", cfg.User)

	m := gomail.NewMessage()
	m.SetHeader("From", fromAddress(cfg))
	m.SetHeader("To", to)
	m.SetHeader("Subject", "SMTP configuration test")
	m.SetBody("text/plain", "This is a test message confirming your SMTP settings work.")

	line("Sending test message to %s...", to)
	if err := gomail.Send(sc, m); err != nil {
		line("Send failed: %v", err)
		metrics.SMTPTestsTotal.WithLabelValues("failure").Inc()
		return &model.SMTPTestResult{Success: false, Log: log.String()}
	}

	line("Test message delivered to the server")
	metrics.SMTPTestsTotal.WithLabelValues("success").Inc()
	return &model.SMTPTestResult{Success: true, Log: log.String()}
}
