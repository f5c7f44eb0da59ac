package weather

import (
	"context"
	"time"
)

// ProviderReading represents a single provider's normalized reading.
type ProviderReading struct {
	ProviderName string
	Timestamp    time.Time
	TemperatureC float64
	Description  string
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (ProviderReading, error)
}

// Reader is the capability consumed by the record builder.
type Reader interface {
	Current(ctx context.Context, loc Location) (Reading, error)
}
