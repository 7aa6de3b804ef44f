package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecletika/leadscope/internal/model"
)

func TestFromAddress(t *testing.T) {
	assert.Equal(t, "LeadScope <no-reply@leadscope.io>", fromAddress(model.SMTPConfig{
		FromName:  "LeadScope",
		FromEmail: "no-reply@leadscope.io",
	}))
	assert.Equal(t, "no-reply@leadscope.io", fromAddress(model.SMTPConfig{
		FromEmail: "no-reply@leadscope.io",
	}))
	// Falls back to the auth user when no from address is configured.
	assert.Equal(t, "mailer@leadscope.io", fromAddress(model.SMTPConfig{
		User: "mailer@leadscope.io",
	}))
}

func TestSenderDefaultFromIdentity(t *testing.T) {
	s := NewSender("LeadScope", "no-reply@leadscope.io")

	t.Run("Blank Identity Uses Defaults", func(t *testing.T) {
		cfg := s.withDefaults(model.SMTPConfig{Host: "smtp.example.com", Port: 587, User: "mailer"})
		assert.Equal(t, "LeadScope", cfg.FromName)
		assert.Equal(t, "no-reply@leadscope.io", cfg.FromEmail)
		assert.Equal(t, "LeadScope <no-reply@leadscope.io>", fromAddress(cfg))
	})

	t.Run("Caller Identity Wins", func(t *testing.T) {
		cfg := s.withDefaults(model.SMTPConfig{
			FromName:  "Ana",
			FromEmail: "ana@agency.pt",
		})
		assert.Equal(t, "Ana", cfg.FromName)
		assert.Equal(t, "ana@agency.pt", cfg.FromEmail)
	})
}

func TestDialerSSLSelection(t *testing.T) {
	// Implicit TLS only on the SMTPS port; 587 uses STARTTLS.
	assert.True(t, dialer(model.SMTPConfig{Host: "smtp.example.com", Port: 465, Secure: true}).SSL)
	assert.False(t, dialer(model.SMTPConfig{Host: "smtp.example.com", Port: 587, Secure: true}).SSL)
	assert.False(t, dialer(model.SMTPConfig{Host: "smtp.example.com", Port: 25, Secure: false}).SSL)
}

func TestTestReportsConnectionFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Nothing listens on this port; the probe must fail gracefully with a
	// readable log instead of returning an error.
	result := NewTester().Test(ctx, model.SMTPConfig{
		Host: "127.0.0.1",
		Port: 1, // reserved, never an SMTP server
		User: "mailer",
	}, "dest@example.com")

	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Contains(t, result.Log, "Connecting to 127.0.0.1:1")

	for _, line := range strings.Split(strings.TrimSpace(result.Log), "\n") {
		assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] `, line, "log lines are timestamped")
	}
}
