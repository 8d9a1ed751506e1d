package weather

import (
	"encoding/json"
)

// Units selects the measurement system requested from the provider.
type Units string

const (
	UnitsStandard Units = "standard"
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

const (
	DefaultUnits        = UnitsMetric
	DefaultForecastDays = 5
	MaxForecastDays     = 7
)

// Query identifies a logical weather request. Days is only meaningful for forecasts.
type Query struct {
	City  string
	Units Units
	Days  int
}

// RawForecastSample is one upstream 3-hour forecast measurement.
type RawForecastSample struct {
	Timestamp   int64 // unix seconds, UTC
	Temp        float64
	TempMin     float64
	TempMax     float64
	Humidity    int
	Description string
	Icon        string
	WindSpeed   float64
}

// HourlySlice is a single time-of-day entry within a DaySummary.
type HourlySlice struct {
	Time        string  `json:"time"` // HH:MM, UTC
	Temp        float64 `json:"temp"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	WindSpeed   float64 `json:"wind_speed"`
}

// DaySummary aggregates all samples that fall on one UTC calendar day.
// Humidity, Description and Icon come from the first sample of the day.
type DaySummary struct {
	Date        string        `json:"date"` // YYYY-MM-DD
	Day         string        `json:"day"`  // weekday name
	MinTemp     float64       `json:"min_temp"`
	MaxTemp     float64       `json:"max_temp"`
	Humidity    int           `json:"humidity"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Hourly      []HourlySlice `json:"hourly"`
}

// ForecastPayload is what a provider returns for a forecast request.
type ForecastPayload struct {
	City    json.RawMessage
	Samples []RawForecastSample
}

// ForecastResult is the response body of the forecast endpoint.
type ForecastResult struct {
	City json.RawMessage `json:"city"`
	Days []DaySummary    `json:"days"`
}

// IsEmptyPayload reports whether raw carries no usable data: blank, malformed,
// null, false, zero, "", "0", {} or [].
func IsEmptyPayload(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == "" || t == "0"
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}
