package openweather

import (
	"encoding/json"
	"time"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

// OpenWeather API response types.

type currentResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64  `json:"speed"`
		Gust  *float64 `json:"gust"`
	} `json:"wind"`
	Rain *struct {
		OneHour *float64 `json:"1h"`
	} `json:"rain"`
	Dt   int64  `json:"dt"`
	Name string `json:"name"`
}

type geoCandidate struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// snapshot maps the provider payload onto the domain shape. The coordinate
// is the one requested, not the station's.
func (r currentResponse) snapshot(coords domain.Coordinates, lang, units string, raw []byte) domain.WeatherSnapshot {
	snap := domain.WeatherSnapshot{
		Coordinates: coords,
		DisplayName: r.Name,
		Temperature: r.Main.Temp,
		FeelsLike:   r.Main.FeelsLike,
		Humidity:    r.Main.Humidity,
		WindSpeed:   r.Wind.Speed,
		WindGust:    r.Wind.Gust,
		Lang:        lang,
		Units:       units,
		Raw:         json.RawMessage(raw),
	}
	if r.Rain != nil {
		snap.RainOneHour = r.Rain.OneHour
	}
	if len(r.Weather) > 0 {
		snap.Condition = r.Weather[0].Description
		if snap.Condition == "" {
			snap.Condition = r.Weather[0].Main
		}
	}
	if r.Dt > 0 {
		snap.ObservedAt = time.Unix(r.Dt, 0).UTC()
	} else {
		snap.ObservedAt = domain.Now()
	}
	return snap
}
