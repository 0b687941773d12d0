package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"portfolio/internal/cache"
	"portfolio/internal/models"
	"portfolio/internal/observability"
)

const defaultWeatherURL = "https://api.open-meteo.com/v1/forecast"

type WeatherService struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.JSONStore
	logger     *observability.ServiceLogger
}

// NewWeatherService creates a WeatherService backed by an Open-Meteo
// compatible forecast endpoint. store may be nil to disable caching.
func NewWeatherService(baseURL string, store cache.JSONStore) *WeatherService {
	if baseURL == "" {
		baseURL = defaultWeatherURL
	}
	return &WeatherService{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:  store,
		logger: observability.NewServiceLogger("weather"),
	}
}

type openMeteoResponse struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
		Time        string  `json:"time"`
	} `json:"current_weather"`
}

func roundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}

// Current returns current conditions near lat/lon. Coordinates are rounded
// to two decimals so nearby visitors share a cache entry.
func (s *WeatherService) Current(ctx context.Context, lat, lon float64) (*models.WeatherReport, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, models.NewValidationError("Invalid coordinates")
	}
	lat, lon = roundCoord(lat), roundCoord(lon)
	key := cache.WeatherKey(lat, lon)

	if s.cache != nil {
		var cached models.WeatherReport
		found, err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err != nil {
			s.logger.LogBestEffortFailure(ctx, "weather_cache_read", err, nil)
		} else if found {
			return &cached, nil
		}
	}

	report, err := s.fetch(ctx, lat, lon)
	if err != nil {
		s.logger.LogBestEffortFailure(ctx, "weather_fetch", err, nil)
		return nil, models.NewUpstreamError("Weather service unavailable", err)
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, report, cache.WeatherTTL); err != nil {
			s.logger.LogBestEffortFailure(ctx, "weather_cache_write", err, nil)
		}
	}
	return report, nil
}

func (s *WeatherService) fetch(ctx context.Context, lat, lon float64) (report *models.WeatherReport, err error) {
	span, ctx := observability.StartClientSpan(ctx, "open-meteo", "current_weather")
	defer span.End()
	defer observability.TrackUpstream("open-meteo", &err)()
	defer func() { span.SetError(err) }()

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 2, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 2, 64))
	q.Set("current_weather", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.CurrentWeather == nil {
		return nil, errors.New("response has no current_weather")
	}

	return &models.WeatherReport{
		Latitude:    lat,
		Longitude:   lon,
		Temperature: out.CurrentWeather.Temperature,
		WindSpeed:   out.CurrentWeather.WindSpeed,
		WeatherCode: out.CurrentWeather.WeatherCode,
		ObservedAt:  out.CurrentWeather.Time,
	}, nil
}
