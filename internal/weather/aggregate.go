package weather

import (
	"encoding/json"
	"time"
)

// maxHourlySlices bounds DaySummary.Hourly; 8 three-hour samples cover a day.
const maxHourlySlices = 8

var emptyCity = json.RawMessage(`{}`)

// Aggregate groups time-ordered forecast samples by UTC calendar day.
//
// Days appear in order of first occurrence. Each day's min/max fold over every
// sample for that date, while humidity, description and icon stay those of the
// first sample. Only the first 8 samples of a day are kept as hourly slices.
// The result is truncated to the first days entries; days <= 0 keeps them all.
// A missing city is returned as an empty object.
func Aggregate(city json.RawMessage, samples []RawForecastSample, days int) ForecastResult {
	if len(city) == 0 || string(city) == "null" {
		city = emptyCity
	}

	result := make([]DaySummary, 0, MaxForecastDays)
	index := make(map[string]int)

	for _, s := range samples {
		ts := time.Unix(s.Timestamp, 0).UTC()
		date := ts.Format(time.DateOnly)

		i, ok := index[date]
		if !ok {
			result = append(result, DaySummary{
				Date:        date,
				Day:         ts.Weekday().String(),
				MinTemp:     s.TempMin,
				MaxTemp:     s.TempMax,
				Humidity:    s.Humidity,
				Description: s.Description,
				Icon:        s.Icon,
				Hourly:      make([]HourlySlice, 0, maxHourlySlices),
			})
			i = len(result) - 1
			index[date] = i
		}

		day := &result[i]
		day.MinTemp = min(day.MinTemp, s.TempMin)
		day.MaxTemp = max(day.MaxTemp, s.TempMax)

		if len(day.Hourly) < maxHourlySlices {
			day.Hourly = append(day.Hourly, HourlySlice{
				Time:        ts.Format("15:04"),
				Temp:        s.Temp,
				Humidity:    s.Humidity,
				Description: s.Description,
				Icon:        s.Icon,
				WindSpeed:   s.WindSpeed,
			})
		}
	}

	if days > 0 && len(result) > days {
		result = result[:days]
	}

	return ForecastResult{
		City: city,
		Days: result,
	}
}
