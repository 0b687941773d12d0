// Package captcha verifies Cloudflare Turnstile tokens.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio/internal/observability"
	"portfolio/internal/validation"
)

const defaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// ErrNotConfigured is returned when no secret key is set.
var ErrNotConfigured = errors.New("captcha: TURNSTILE_SECRET_KEY is not configured")

// RejectedError is a verifier answer of success=false. The codes are for logs only.
type RejectedError struct {
	Codes []string
}

func (e *RejectedError) Error() string {
	if len(e.Codes) == 0 {
		return "captcha: token rejected"
	}
	return "captcha: token rejected: " + strings.Join(e.Codes, ",")
}

// TurnstileVerifier calls the siteverify endpoint.
type TurnstileVerifier struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
}

// NewTurnstileVerifier creates a verifier. An empty verifyURL uses Cloudflare's endpoint.
func NewTurnstileVerifier(secret, verifyURL string) *TurnstileVerifier {
	if verifyURL == "" {
		verifyURL = defaultVerifyURL
	}
	return &TurnstileVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
}

// Verify checks token, passing remoteIP as context when it is known. Any
// non-success outcome is an error: transport failure, non-2xx status, an
// undecodable body or success=false (*RejectedError).
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (err error) {
	if v.secret == "" {
		return ErrNotConfigured
	}

	span, ctx := observability.StartClientSpan(ctx, "turnstile", "siteverify")
	defer span.End()
	defer observability.TrackUpstream("turnstile", &err)()
	defer func() { span.SetError(err) }()

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" && remoteIP != validation.UnknownIP {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("captcha: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("captcha: siteverify: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("captcha: siteverify status %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("captcha: decode siteverify: %w", err)
	}
	if !out.Success {
		return &RejectedError{Codes: out.ErrorCodes}
	}
	return nil
}
