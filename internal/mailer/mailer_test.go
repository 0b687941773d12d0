package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func testSettings() Settings {
	return Settings{
		Host:      "smtp.example.com",
		Port:      587,
		From:      "site@example.com",
		Recipient: "owner@example.com",
	}
}

func testSubmission() Submission {
	return Submission{
		Name:      "Jane Doe",
		Email:     "jane@example.com",
		Message:   "I'd like to talk about <b>a project</b>.",
		IPAddress: "203.0.113.7",
		SentAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func capture(m *Mailer) *[]*mail.Msg {
	var sent []*mail.Msg
	m.send = func(_ context.Context, msg *mail.Msg) error {
		sent = append(sent, msg)
		return nil
	}
	return &sent
}

func TestSendNotification(t *testing.T) {
	m := New(testSettings())
	sent := capture(m)

	require.NoError(t, m.SendNotification(context.Background(), testSubmission()))
	require.Len(t, *sent, 1)

	msg := (*sent)[0]
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@example.com"}, rcpts)
	assert.Equal(t, []string{"New contact form submission from Jane Doe"}, msg.GetGenHeader(mail.HeaderSubject))
	assert.Contains(t, strings.Join(msg.GetGenHeader(mail.HeaderReplyTo), ","), "jane@example.com")
}

func TestSendConfirmation(t *testing.T) {
	m := New(testSettings())
	sent := capture(m)

	require.NoError(t, m.SendConfirmation(context.Background(), testSubmission()))
	require.Len(t, *sent, 1)

	rcpts, err := (*sent)[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.com"}, rcpts)
}

func TestSend_TransportError(t *testing.T) {
	m := New(testSettings())
	m.send = func(context.Context, *mail.Msg) error { return errors.New("connection refused") }

	assert.Error(t, m.SendNotification(context.Background(), testSubmission()))
	assert.Error(t, m.SendConfirmation(context.Background(), testSubmission()))
}

func TestSend_NotConfigured(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"No host", func(s *Settings) { s.Host = "" }},
		{"No sender", func(s *Settings) { s.From = "" }},
		{"No recipient", func(s *Settings) { s.Recipient = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			tt.modify(&settings)
			m := New(settings)
			sent := capture(m)

			assert.ErrorIs(t, m.SendNotification(context.Background(), testSubmission()), ErrNotConfigured)
			assert.ErrorIs(t, m.SendConfirmation(context.Background(), testSubmission()), ErrNotConfigured)
			assert.Empty(t, *sent)
		})
	}
}

func TestSend_InvalidReplyTo(t *testing.T) {
	m := New(testSettings())
	sent := capture(m)

	sub := testSubmission()
	sub.Email = "not an address"
	assert.Error(t, m.SendNotification(context.Background(), sub))
	assert.Empty(t, *sent)
}

func TestRenderNotification(t *testing.T) {
	text, html, err := renderNotification(testSubmission())
	require.NoError(t, err)

	assert.Contains(t, text, "Name:    Jane Doe")
	assert.Contains(t, text, "I'd like to talk about <b>a project</b>.")
	assert.Contains(t, text, "Wed, 01 May 2024 12:00:00 UTC")

	assert.Contains(t, html, "mailto:jane@example.com")
	assert.Contains(t, html, "&lt;b&gt;a project&lt;/b&gt;")
	assert.NotContains(t, html, "<b>a project</b>")
}

func TestRenderConfirmation(t *testing.T) {
	text, html, err := renderConfirmation(testSubmission())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Hi Jane Doe,"))
	assert.Contains(t, html, "<p>Hi Jane Doe,</p>")
}
