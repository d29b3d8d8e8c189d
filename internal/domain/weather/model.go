package weather

import "context"

// Record is one weather lookup result. It is produced fresh per lookup and
// never cached across calls.
type Record struct {
	Location      string  `json:"location"`
	Country       string  `json:"country"`
	Temperature   int     `json:"temperature"`
	FeelsLike     int     `json:"feelsLike"`
	Humidity      int     `json:"humidity"`
	WindSpeed     int     `json:"windSpeed"`
	Precipitation float64 `json:"precipitation"`
	Condition     string  `json:"condition"`
	Icon          string  `json:"icon"`
	High          int     `json:"high"`
	Low           int     `json:"low"`
	Timestamp     string  `json:"timestamp"`
}

// Client resolves a free-text location into a weather record.
type Client interface {
	Fetch(ctx context.Context, location string) (Record, error)
}
