// Package service implements the contact, like and weather use cases.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio/internal/captcha"
	"portfolio/internal/mailer"
	"portfolio/internal/models"
	"portfolio/internal/observability"
	"portfolio/internal/repository"
	"portfolio/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/blake2b"
)

// MessageSent is the acknowledgement returned for an accepted submission.
const MessageSent = "Message sent successfully"

// RateLimiter consumes one action for an actor.
type RateLimiter interface {
	Allow(ctx context.Context, id string) (bool, error)
}

// CaptchaVerifier checks a CAPTCHA token for a client address.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// MailSender delivers the owner notification and the submitter confirmation.
type MailSender interface {
	SendNotification(ctx context.Context, sub mailer.Submission) error
	SendConfirmation(ctx context.Context, sub mailer.Submission) error
}

// Locator resolves the location recorded with a submission. It never fails.
type Locator interface {
	Resolve(ctx context.Context, clientValue *string, ip string) string
}

type ContactService struct {
	limiter  RateLimiter
	verifier CaptchaVerifier
	mail     MailSender
	locator  Locator
	log      repository.SubmissionLog
	logger   *observability.ServiceLogger
	now      func() time.Time
}

// ContactInput is a decoded contact request plus the request context the
// handler extracted.
type ContactInput struct {
	Request   models.ContactRequest
	ClientIP  string
	UserAgent string
}

func NewContactService(
	limiter RateLimiter,
	verifier CaptchaVerifier,
	mail MailSender,
	locator Locator,
	log repository.SubmissionLog,
) *ContactService {
	return &ContactService{
		limiter:  limiter,
		verifier: verifier,
		mail:     mail,
		locator:  locator,
		log:      log,
		logger:   observability.NewServiceLogger("contact"),
		now:      time.Now,
	}
}

// HashIP derives the rate-limit actor for a client address. Raw IPs never
// appear in KV keys or service logs; only the submission log stores them.
func HashIP(ip string) string {
	sum := blake2b.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

// Submit runs the contact pipeline. The notification email and the log append
// are critical; the confirmation email and geolocation are best-effort. A
// submission is logged only after the notification was sent.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (resp *models.ContactResponse, err error) {
	span, ctx := observability.StartSpan(ctx, "contact", "submit")
	defer span.End()
	defer func() {
		span.SetError(err)
		observability.ContactSubmissions.WithLabelValues(contactOutcome(err)).Inc()
	}()

	ip := in.ClientIP
	if ip == "" {
		ip = validation.UnknownIP
	}
	actor := HashIP(ip)
	s.logger.LogCall(ctx, "Submit", map[string]interface{}{"ip_hash": actor})

	allowed, err := s.limiter.Allow(ctx, actor)
	if err != nil {
		s.logger.LogCriticalFailure(ctx, "rate_limit", err)
		return nil, models.NewInternalError(fmt.Errorf("rate limit: %w", err))
	}
	if !allowed {
		s.logger.LogRejected(ctx, "rate_limited", map[string]interface{}{"ip_hash": actor})
		return nil, models.NewRateLimitError()
	}

	token := strings.TrimSpace(in.Request.TurnstileToken)
	if token == "" {
		return nil, models.NewValidationError("CAPTCHA token is required")
	}

	if err := s.verifier.Verify(ctx, token, ip); err != nil {
		if errors.Is(err, captcha.ErrNotConfigured) {
			s.logger.LogCriticalFailure(ctx, "captcha", err)
			return nil, models.NewInternalError(err)
		}
		s.logger.LogRejected(ctx, "captcha", map[string]interface{}{"ip_hash": actor, "error": err.Error()})
		return nil, models.NewCaptchaError(err)
	}

	contact, err := validation.ValidateContact(in.Request.Name, in.Request.Email, in.Request.Message)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sub := mailer.Submission{
		Name:      contact.Name,
		Email:     contact.Email,
		Message:   contact.Message,
		IPAddress: ip,
		UserAgent: validation.UserAgent(in.UserAgent),
		SentAt:    now,
	}

	if err := s.mail.SendNotification(ctx, sub); err != nil {
		s.logger.LogCriticalFailure(ctx, "notification_email", err)
		return nil, models.NewInternalError(fmt.Errorf("send notification: %w", err))
	}

	confirmationSent := true
	if err := s.mail.SendConfirmation(ctx, sub); err != nil {
		confirmationSent = false
		s.logger.LogBestEffortFailure(ctx, "confirmation_email", err, nil)
	}

	location := s.locator.Resolve(ctx, in.Request.Geolocation, ip)
	span.AddAttributes(
		attribute.Bool("contact.confirmation_sent", confirmationSent),
		attribute.String("contact.geolocation", location),
	)

	record := &models.ContactSubmission{
		Name:             sub.Name,
		Email:            sub.Email,
		Message:          sub.Message,
		IPAddress:        ip,
		Geolocation:      location,
		UserAgent:        sub.UserAgent,
		ConfirmationSent: confirmationSent,
		Timestamp:        now.Format(time.RFC3339),
	}
	if err := s.log.Append(ctx, record); err != nil {
		s.logger.LogCriticalFailure(ctx, "submission_log", err)
		return nil, models.NewInternalError(fmt.Errorf("log submission: %w", err))
	}

	return &models.ContactResponse{Success: true, Message: MessageSent}, nil
}

func contactOutcome(err error) string {
	if err == nil {
		return "accepted"
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeValidation:
			return "invalid"
		case models.CodeCaptcha:
			return "captcha_rejected"
		case models.CodeRateLimited:
			return "rate_limited"
		}
	}
	return "failed"
}
