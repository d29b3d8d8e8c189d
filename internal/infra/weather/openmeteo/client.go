package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/drunkod/crayon-chat/internal/domain/weather"
)

const (
	defaultGeocodingBaseURL = "https://geocoding-api.open-meteo.com"
	defaultForecastBaseURL  = "https://api.open-meteo.com"
)

// Client fetches weather data from the Open-Meteo APIs: a geocoding lookup
// followed by a forecast call.
type Client struct {
	geocodingBaseURL string
	forecastBaseURL  string
	httpClient       *http.Client
}

// NewClient builds an API client.
func NewClient(geocodingBaseURL, forecastBaseURL string) *Client {
	geo := strings.TrimSpace(geocodingBaseURL)
	if geo == "" {
		geo = defaultGeocodingBaseURL
	}
	forecast := strings.TrimSpace(forecastBaseURL)
	if forecast == "" {
		forecast = defaultForecastBaseURL
	}
	return &Client{
		geocodingBaseURL: strings.TrimRight(geo, "/"),
		forecastBaseURL:  strings.TrimRight(forecast, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Fetch resolves the location to coordinates and returns current conditions.
func (c *Client) Fetch(ctx context.Context, location string) (weather.Record, error) {
	place, err := c.geocode(ctx, location)
	if err != nil {
		return weather.Record{}, err
	}

	forecast, err := c.forecast(ctx, place.Latitude, place.Longitude)
	if err != nil {
		return weather.Record{}, err
	}

	if len(forecast.Daily.TemperatureMax) == 0 || len(forecast.Daily.TemperatureMin) == 0 {
		return weather.Record{}, fmt.Errorf("forecast for %q missing daily data", location)
	}

	return weather.Record{
		Location:      place.Name,
		Country:       place.Country,
		Temperature:   roundInt(forecast.Current.Temperature),
		FeelsLike:     roundInt(forecast.Current.ApparentTemperature),
		Humidity:      forecast.Current.RelativeHumidity,
		WindSpeed:     roundInt(forecast.Current.WindSpeed),
		Precipitation: forecast.Current.Precipitation,
		Condition:     conditionForCode(forecast.Current.WeatherCode),
		Icon:          iconForCode(forecast.Current.WeatherCode),
		High:          roundInt(forecast.Daily.TemperatureMax[0]),
		Low:           roundInt(forecast.Daily.TemperatureMin[0]),
		Timestamp:     forecast.Current.Time,
	}, nil
}

type geocodeResult struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
}

func (c *Client) geocode(ctx context.Context, location string) (geocodeResult, error) {
	endpoint := fmt.Sprintf("%s/v1/search?name=%s&count=1", c.geocodingBaseURL, url.QueryEscape(location))

	var resp geocodeResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return geocodeResult{}, fmt.Errorf("geocode %q: %w", location, err)
	}
	if len(resp.Results) == 0 {
		return geocodeResult{}, fmt.Errorf("location %q not found", location)
	}
	return resp.Results[0], nil
}

type forecastResponse struct {
	Current struct {
		Time                string  `json:"time"`
		Temperature         float64 `json:"temperature_2m"`
		RelativeHumidity    int     `json:"relative_humidity_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		Precipitation       float64 `json:"precipitation"`
		WeatherCode         int     `json:"weather_code"`
		WindSpeed           float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

func (c *Client) forecast(ctx context.Context, latitude, longitude float64) (forecastResponse, error) {
	endpoint := fmt.Sprintf(
		"%s/v1/forecast?latitude=%f&longitude=%f&current=temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m&daily=weather_code,temperature_2m_max,temperature_2m_min&timezone=auto",
		c.forecastBaseURL, latitude, longitude,
	)

	var resp forecastResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return forecastResponse{}, fmt.Errorf("forecast: %w", err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("request error: status=%d body=%s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// WMO weather interpretation codes.
var conditions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	95: "Thunderstorm",
	96: "Thunderstorm with hail",
}

func conditionForCode(code int) string {
	if condition, ok := conditions[code]; ok {
		return condition
	}
	return "Unknown"
}

func iconForCode(code int) string {
	switch {
	case code == 0 || code == 1:
		return "☀️"
	case code == 2 || code == 3:
		return "⛅"
	case code >= 45 && code <= 48:
		return "🌫️"
	case code >= 51 && code <= 57:
		return "🌦️"
	case code >= 61 && code <= 67:
		return "🌧️"
	case code >= 71 && code <= 77:
		return "🌨️"
	case code >= 95:
		return "⛈️"
	default:
		return "🌡️"
	}
}

func roundInt(value float64) int {
	return int(math.Round(value))
}
