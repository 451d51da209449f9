package domain

// degreesPerKM approximates one kilometre in degrees of latitude.
const degreesPerKM = 0.009

// zoneRadiusKM is the half-extent of a synthesized zone by risk level.
var zoneRadiusKM = map[RiskLevel]float64{
	RiskExtreme: 30,
	RiskHigh:    20,
	RiskMedium:  12,
	RiskLow:     6,
}

// Polygon is a GeoJSON polygon. Coordinates hold rings of [lon, lat] points.
type Polygon struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// ImpactZone is a polygon tagged with a severity level.
type ImpactZone struct {
	Level    ImpactLevel `json:"level"`
	Geometry Polygon     `json:"geometry"`
}

// SquareZone builds a closed counter-clockwise square ring centered on c
// with the given half-size in degrees.
func SquareZone(c Coordinates, halfDeg float64, level ImpactLevel) ImpactZone {
	minLon, maxLon := c.Lon-halfDeg, c.Lon+halfDeg
	minLat, maxLat := c.Lat-halfDeg, c.Lat+halfDeg
	ring := [][2]float64{
		{minLon, minLat},
		{maxLon, minLat},
		{maxLon, maxLat},
		{minLon, maxLat},
		{minLon, minLat},
	}
	return ImpactZone{
		Level:    level,
		Geometry: Polygon{Type: "Polygon", Coordinates: [][][2]float64{ring}},
	}
}

// SynthesizeZones produces a single rectangular zone around anchor sized by
// the risk level. A nil anchor yields an empty list, never an error.
func SynthesizeZones(anchor *Coordinates, level RiskLevel) []ImpactZone {
	if anchor == nil {
		return []ImpactZone{}
	}
	km, ok := zoneRadiusKM[level]
	if !ok {
		km = zoneRadiusKM[RiskLow]
	}
	return []ImpactZone{SquareZone(*anchor, km*degreesPerKM, ImpactFor(level))}
}

// RingClosed reports whether every ring has at least four points and ends
// where it starts.
func (p Polygon) RingClosed() bool {
	if len(p.Coordinates) == 0 {
		return false
	}
	for _, ring := range p.Coordinates {
		if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
			return false
		}
	}
	return true
}

// CloseRings appends the first point to any ring that does not already end
// with it. Model-supplied geometry goes through this before use.
func (p Polygon) CloseRings() Polygon {
	out := Polygon{Type: "Polygon", Coordinates: make([][][2]float64, 0, len(p.Coordinates))}
	for _, ring := range p.Coordinates {
		r := append([][2]float64(nil), ring...)
		if len(r) > 0 && r[0] != r[len(r)-1] {
			r = append(r, r[0])
		}
		out.Coordinates = append(out.Coordinates, r)
	}
	return out
}
