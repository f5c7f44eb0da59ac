package weather

import (
	"strings"
	"time"
)

// AggregateReadings combines provider readings into a single Reading.
// Temperatures are averaged; the description is picked by majority, ties going
// to the provider listed first.
func AggregateReadings(loc Location, readings []ProviderReading) Reading {
	if len(readings) == 0 {
		return Reading{
			Location:  loc,
			Timestamp: time.Now().UTC(),
		}
	}

	var sumTemp float64
	counts := make(map[string]int)
	order := make([]string, 0, len(readings))
	providers := make([]ProviderContribution, 0, len(readings))
	var newestTS time.Time

	for _, r := range readings {
		sumTemp += r.TemperatureC

		desc := strings.ToLower(strings.TrimSpace(r.Description))
		if desc != "" {
			if counts[desc] == 0 {
				order = append(order, desc)
			}
			counts[desc]++
		}

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
		})
	}

	best, bestCount := "", 0
	for _, desc := range order {
		if counts[desc] > bestCount {
			best, bestCount = desc, counts[desc]
		}
	}

	if newestTS.IsZero() {
		newestTS = time.Now().UTC()
	}

	return Reading{
		Location:     loc,
		Timestamp:    newestTS,
		TemperatureC: sumTemp / float64(len(readings)),
		Description:  best,
		Providers:    providers,
	}
}
