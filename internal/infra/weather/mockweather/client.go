package mockweather

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/drunkod/crayon-chat/internal/domain/weather"
	"github.com/drunkod/crayon-chat/pkg/util"
)

// DefaultDelay emulates the latency of a real lookup so timing-dependent
// callers behave the same offline.
const DefaultDelay = 300 * time.Millisecond

// Static records for well-known cities, keyed lower-case.
var cityTable = map[string]weather.Record{
	"paris": {
		Location: "Paris", Country: "France",
		Temperature: 14, FeelsLike: 13, Humidity: 81, WindSpeed: 6,
		Precipitation: 0.1, Condition: "Slight rain", Icon: "🌧️", High: 15, Low: 12,
	},
	"tokyo": {
		Location: "Tokyo", Country: "Japan",
		Temperature: 22, FeelsLike: 21, Humidity: 65, WindSpeed: 12,
		Precipitation: 0, Condition: "Partly cloudy", Icon: "⛅", High: 24, Low: 18,
	},
	"london": {
		Location: "London", Country: "United Kingdom",
		Temperature: 11, FeelsLike: 9, Humidity: 78, WindSpeed: 15,
		Precipitation: 0, Condition: "Overcast", Icon: "⛅", High: 13, Low: 8,
	},
	"new york": {
		Location: "New York", Country: "United States",
		Temperature: 18, FeelsLike: 17, Humidity: 70, WindSpeed: 10,
		Precipitation: 0, Condition: "Clear sky", Icon: "☀️", High: 21, Low: 15,
	},
	"sydney": {
		Location: "Sydney", Country: "Australia",
		Temperature: 25, FeelsLike: 24, Humidity: 60, WindSpeed: 8,
		Precipitation: 0, Condition: "Mainly clear", Icon: "☀️", High: 27, Low: 20,
	},
}

var randomConditions = []struct {
	condition string
	icon      string
}{
	{"Clear sky", "☀️"},
	{"Partly cloudy", "⛅"},
	{"Overcast", "⛅"},
	{"Light rain", "🌧️"},
	{"Mainly clear", "☀️"},
}

// Client synthesizes weather records without network access.
type Client struct {
	delay time.Duration
	rng   *rand.Rand
	now   func() time.Time
}

// NewClient constructs an offline weather source.
func NewClient() *Client {
	return &Client{
		delay: DefaultDelay,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   util.NowUTC,
	}
}

// Fetch implements weather.Client. Known cities get their static record with
// a fresh timestamp; unknown cities get a bounded pseudo-random one.
func (c *Client) Fetch(ctx context.Context, location string) (weather.Record, error) {
	if err := sleepContext(ctx, c.delay); err != nil {
		return weather.Record{}, err
	}

	key := strings.ToLower(strings.TrimSpace(location))
	if record, ok := cityTable[key]; ok {
		record.Timestamp = c.now().Format(time.RFC3339)
		return record, nil
	}

	pick := randomConditions[c.rng.Intn(len(randomConditions))]
	temp := c.rng.Intn(30) + 5

	var precipitation float64
	if c.rng.Float64() > 0.7 {
		precipitation = math.Round(c.rng.Float64()*20) / 10
	}

	return weather.Record{
		Location:      capitalize(key),
		Country:       "Mock Country",
		Temperature:   temp,
		FeelsLike:     temp - 1,
		Humidity:      c.rng.Intn(40) + 50,
		WindSpeed:     c.rng.Intn(20) + 5,
		Precipitation: precipitation,
		Condition:     pick.condition,
		Icon:          pick.icon,
		High:          temp + 3,
		Low:           temp - 5,
		Timestamp:     c.now().Format(time.RFC3339),
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
