// Package domain models short-term natural-disaster scenarios.
//
// # Locations
//
// A location arrives either as a coordinate pair ("12.2388,109.1967") or as
// free text ("Nha Trang"). Free text is geocoded by the weather gateway; a
// coordinate pair skips geocoding entirely. Coordinates are WGS-84 with
// lat in [-90, 90] and lon in [-180, 180].
//
// # Risk levels
//
// Four ordered levels, LOW < MEDIUM < HIGH < EXTREME, drive zone extents,
// resource estimates and response-plan phasing. Impact zones use a coarser
// three-level scale (LOW, MEDIUM, HIGH) for map rendering.
//
// # Assessments
//
// The model is asked for one of two JSON contracts:
//
//	simple: {riskLevel, possibleDisasters, explanation, recommendedActions}
//	full:   {riskLevel, possibleDisasters, map, kpis, topActions, plan}
//
// [Assessment] is a tagged union over both. Anything the model returns is
// validated at the inference boundary before it lands here; when validation
// fails the deterministic fallback (see [Severity] and [FallbackKPIs])
// produces a value of the same shape.
//
// # Geometry
//
// Polygons follow GeoJSON: coordinates are [lon, lat], rings are closed
// (first point equals last point) and wound counter-clockwise.
//
// # Fallback numerics
//
//	severity           = driver * duration
//	householdsAffected = max(50,  round(200 + severity*4))
//	roadBlockages      = max(1,   round(5 + severity*0.15))
//	sheltersNeeded     = max(100, round(300 + severity*6))
//	polygon half-size  = min(0.05, max(0.01, severity/20000)) degrees
//
// The driver is rainfall intensity for floods, wind speed for storms, fire
// spread rate for wildfires and magnitude*10 for earthquakes.
package domain
