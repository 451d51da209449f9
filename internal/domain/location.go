package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// coordPairRe matches a "lat,lon" query such as "12.2388, 109.1967".
var coordPairRe = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects non-finite or out-of-range coordinates.
func (c Coordinates) Validate() error {
	if !isFinite(c.Lat) || !isFinite(c.Lon) {
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidInput)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: lat %g out of range [-90,90]", ErrInvalidInput, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: lon %g out of range [-180,180]", ErrInvalidInput, c.Lon)
	}
	return nil
}

// String renders the pair as "lat,lon".
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// LocationQuery is either a coordinate pair or a free-text place name.
// Exactly one of Coordinates and Text is set.
type LocationQuery struct {
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Text        string       `json:"text,omitempty"`
}

// QueryAt builds a pre-resolved coordinate query.
func QueryAt(lat, lon float64) LocationQuery {
	return LocationQuery{Coordinates: &Coordinates{Lat: lat, Lon: lon}}
}

// Validate requires exactly one of Coordinates and a non-blank Text.
func (q LocationQuery) Validate() error {
	text := strings.TrimSpace(q.Text)
	switch {
	case q.Coordinates != nil && text != "":
		return fmt.Errorf("%w: location has both coordinates and text", ErrInvalidInput)
	case q.Coordinates != nil:
		return q.Coordinates.Validate()
	case text == "":
		return fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	return nil
}

// String returns the query as the user would have typed it.
func (q LocationQuery) String() string {
	if q.Coordinates != nil {
		return q.Coordinates.String()
	}
	return q.Text
}

// ParseLocationQuery accepts "lat,lon" or free text. Blank input is rejected.
func ParseLocationQuery(s string) (LocationQuery, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LocationQuery{}, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	m := coordPairRe.FindStringSubmatch(s)
	if m == nil {
		return LocationQuery{Text: s}, nil
	}
	lat, errLat := strconv.ParseFloat(m[1], 64)
	lon, errLon := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLon != nil {
		return LocationQuery{}, fmt.Errorf("%w: cannot parse coordinates %q", ErrInvalidInput, s)
	}
	c := Coordinates{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return LocationQuery{}, err
	}
	return LocationQuery{Coordinates: &c}, nil
}

// Place is a geocoded location: coordinates plus a composed display name
// ("name, state, country" with empty parts omitted).
type Place struct {
	Coordinates
	DisplayName string `json:"displayName,omitempty"`
}

// ComposeDisplayName joins non-empty parts with ", ".
func ComposeDisplayName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
