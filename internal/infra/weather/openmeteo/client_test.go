package openmeteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	geocoding := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/search", r.URL.Path)
		require.Equal(t, "Paris", r.URL.Query().Get("name"))
		require.Equal(t, "1", r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"name":"Paris","country":"France","latitude":48.85,"longitude":2.35}]}`))
	}))
	defer geocoding.Close()

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/forecast", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("latitude"))
		require.Contains(t, r.URL.Query().Get("current"), "temperature_2m")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"current": {
				"time": "2026-03-14T12:00",
				"temperature_2m": 13.6,
				"relative_humidity_2m": 81,
				"apparent_temperature": 12.4,
				"precipitation": 0.1,
				"weather_code": 61,
				"wind_speed_10m": 6.4
			},
			"daily": {
				"temperature_2m_max": [15.2],
				"temperature_2m_min": [11.8]
			}
		}`))
	}))
	defer forecast.Close()

	client := NewClient(geocoding.URL, forecast.URL)

	record, err := client.Fetch(context.Background(), "Paris")
	require.NoError(t, err)

	require.Equal(t, "Paris", record.Location)
	require.Equal(t, "France", record.Country)
	require.Equal(t, 14, record.Temperature)
	require.Equal(t, 12, record.FeelsLike)
	require.Equal(t, 81, record.Humidity)
	require.Equal(t, 6, record.WindSpeed)
	require.Equal(t, 0.1, record.Precipitation)
	require.Equal(t, "Slight rain", record.Condition)
	require.Equal(t, "🌧️", record.Icon)
	require.Equal(t, 15, record.High)
	require.Equal(t, 12, record.Low)
	require.Equal(t, "2026-03-14T12:00", record.Timestamp)
}

func TestFetchLocationNotFound(t *testing.T) {
	geocoding := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer geocoding.Close()

	client := NewClient(geocoding.URL, "http://unused.invalid")

	_, err := client.Fetch(context.Background(), "nowhere")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestFetchGeocodeServerError(t *testing.T) {
	geocoding := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer geocoding.Close()

	client := NewClient(geocoding.URL, "http://unused.invalid")

	_, err := client.Fetch(context.Background(), "paris")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=502")
}

func TestFetchMissingDailyData(t *testing.T) {
	geocoding := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"name":"Paris","country":"France","latitude":48.85,"longitude":2.35}]}`))
	}))
	defer geocoding.Close()

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"time":"2026-03-14T12:00","temperature_2m":13.6}}`))
	}))
	defer forecast.Close()

	client := NewClient(geocoding.URL, forecast.URL)

	_, err := client.Fetch(context.Background(), "Paris")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing daily data")
}

func TestConditionAndIconMapping(t *testing.T) {
	cases := []struct {
		code      int
		condition string
		icon      string
	}{
		{code: 0, condition: "Clear sky", icon: "☀️"},
		{code: 2, condition: "Partly cloudy", icon: "⛅"},
		{code: 45, condition: "Foggy", icon: "🌫️"},
		{code: 53, condition: "Moderate drizzle", icon: "🌦️"},
		{code: 65, condition: "Heavy rain", icon: "🌧️"},
		{code: 73, condition: "Moderate snow", icon: "🌨️"},
		{code: 95, condition: "Thunderstorm", icon: "⛈️"},
		{code: 42, condition: "Unknown", icon: "🌡️"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.condition, conditionForCode(tc.code), "code %d", tc.code)
		require.Equal(t, tc.icon, iconForCode(tc.code), "code %d", tc.code)
	}
}
