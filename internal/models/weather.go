package models

// WeatherReport is the payload of the weather widget endpoint.
type WeatherReport struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"wind_speed"`
	WeatherCode int     `json:"weather_code"`
	ObservedAt  string  `json:"observed_at"`
}
