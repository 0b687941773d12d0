// Package geo resolves a human-readable location for a client IP.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio/internal/cache"
	"portfolio/internal/observability"
	"portfolio/internal/validation"
)

// Unavailable is recorded when no location could be determined.
const Unavailable = "N/A"

const defaultLookupURL = "http://ip-api.com/json"

// ErrLookupFailed is returned when the provider answers with a non-success status.
var ErrLookupFailed = errors.New("geo: lookup failed")

// Resolver looks up IP locations through an ip-api compatible endpoint and
// caches successful answers.
type Resolver struct {
	lookupURL  string
	httpClient *http.Client
	cache      cache.JSONStore
	logger     *observability.ServiceLogger
}

// NewResolver creates a Resolver. store may be nil to disable caching.
func NewResolver(lookupURL string, store cache.JSONStore) *Resolver {
	if lookupURL == "" {
		lookupURL = defaultLookupURL
	}
	return &Resolver{
		lookupURL: strings.TrimRight(lookupURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:  store,
		logger: observability.NewServiceLogger("geo"),
	}
}

type lookupResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

func (r lookupResponse) label() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.City, r.RegionName, r.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Resolve returns the location to record for a submission. A valid
// client-supplied value wins; otherwise the IP is looked up. It never fails:
// every error path ends in Unavailable.
func (r *Resolver) Resolve(ctx context.Context, clientValue *string, ip string) string {
	if loc, ok := validation.Geolocation(clientValue); ok {
		return loc
	}
	if !validation.IsPublicIP(ip) {
		return Unavailable
	}

	loc, err := r.Lookup(ctx, ip)
	if err != nil {
		r.logger.LogBestEffortFailure(ctx, "geolocation", err, map[string]interface{}{"ip": ip})
		return Unavailable
	}
	if loc == "" {
		return Unavailable
	}
	return loc
}

// Lookup returns the "City, Region, Country" label for a public ip, consulting
// the cache first.
func (r *Resolver) Lookup(ctx context.Context, ip string) (string, error) {
	key := cache.GeolocationKey(ip)
	if r.cache != nil {
		var cached string
		found, err := cache.GetJSON(ctx, r.cache, key, &cached)
		if err == nil && found {
			return cached, nil
		}
	}

	loc, err := r.fetch(ctx, ip)
	if err != nil {
		return "", err
	}

	if r.cache != nil && loc != "" {
		if err := cache.SetJSON(ctx, r.cache, key, loc, cache.GeolocationTTL); err != nil {
			r.logger.LogBestEffortFailure(ctx, "geolocation_cache", err, nil)
		}
	}
	return loc, nil
}

func (r *Resolver) fetch(ctx context.Context, ip string) (loc string, err error) {
	span, ctx := observability.StartClientSpan(ctx, "ip-api", "lookup")
	defer span.End()
	defer observability.TrackUpstream("ip-api", &err)()
	defer func() { span.SetError(err) }()

	endpoint := fmt.Sprintf("%s/%s?fields=status,message,city,regionName,country", r.lookupURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("geo: build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geo: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo: unexpected status %d", resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("geo: decode response: %w", err)
	}
	if out.Status != "success" {
		return "", fmt.Errorf("%w: %s", ErrLookupFailed, out.Message)
	}
	return out.label(), nil
}
