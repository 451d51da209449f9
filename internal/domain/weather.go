package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Unit systems accepted by the weather provider.
const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"
	UnitsStandard = "standard"
)

// baselineRainMM is the precipitation proxy synthesized when a snapshot has
// no rain reading and a rain multiplier must be applied.
const baselineRainMM = 1.0

// WeatherSnapshot is the current-conditions payload for one coordinate.
// Treat it as immutable once returned; use Clone before modifying.
type WeatherSnapshot struct {
	Coordinates Coordinates `json:"coord"`
	DisplayName string      `json:"displayName,omitempty"`
	Temperature float64     `json:"temperature"`
	FeelsLike   float64     `json:"feelsLike"`
	Humidity    int         `json:"humidity"`
	WindSpeed   float64     `json:"windSpeed"`
	WindGust    *float64    `json:"windGust,omitempty"`
	RainOneHour *float64    `json:"rain1h,omitempty"` // mm over the last hour
	Condition   string      `json:"condition"`
	ObservedAt  time.Time   `json:"observedAt"`
	Lang        string      `json:"lang"`
	Units       string      `json:"units"`
	Simulated   bool        `json:"simulated,omitempty"`

	Raw json.RawMessage `json:"raw,omitempty"`
}

// WeatherCacheKey derives the cache key from the rounded coordinate,
// language and unit system.
func WeatherCacheKey(c Coordinates, lang, units string) string {
	return fmt.Sprintf("%.4f,%.4f,%s,%s", round4(c.Lat), round4(c.Lon), lang, units)
}

// round4 rounds to four decimals and folds negative zero into zero, so
// -0.00001 and 0.00001 share a key.
func round4(v float64) float64 {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		return 0
	}
	return r
}

// Clone returns a deep copy.
func (w WeatherSnapshot) Clone() WeatherSnapshot {
	out := w
	out.WindGust = copyFloat(w.WindGust)
	out.RainOneHour = copyFloat(w.RainOneHour)
	if w.Raw != nil {
		out.Raw = append(json.RawMessage(nil), w.Raw...)
	}
	return out
}

// ApplyKnobs returns a modified copy of the snapshot with wind and rain
// scaled by the knob multipliers. The receiver is left untouched. A rain
// multiplier on a snapshot without a rain reading scales a 1mm baseline.
// The provider payload is dropped from the copy since it no longer matches.
func (w WeatherSnapshot) ApplyKnobs(k Knobs) WeatherSnapshot {
	out := w.Clone()
	if k.WindMultiplier != nil {
		m := *k.WindMultiplier
		out.WindSpeed *= m
		if out.WindGust != nil {
			*out.WindGust *= m
		}
		out.Simulated = true
	}
	if k.RainMultiplier != nil {
		rain := baselineRainMM
		if out.RainOneHour != nil {
			rain = *out.RainOneHour
		}
		rain *= *k.RainMultiplier
		out.RainOneHour = &rain
		out.Simulated = true
	}
	if out.Simulated {
		out.Raw = nil
	}
	return out
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
