// Package domain models the weather dashboard: locations, National Weather
// Service (NWS) forecast periods and alerts, and the rules that classify
// alerts for presentation and notification.
//
// # Data Sources
//
// Forecasts and alerts come from the NWS API at https://api.weather.gov.
// A coordinate is first resolved to a grid point:
//
//	GET /points/{lat},{lon}
//	  → properties.forecast                       (absolute forecast URL)
//	  → properties.relativeLocation.properties    ({city, state})
//
// The forecast URL returns properties.periods[], an ordered list of
// half-day periods. Element 0 is treated as current conditions; the
// dashboard shows up to six of the periods that follow it.
//
// Active alerts are fetched independently:
//
//	GET /alerts/active?point={lat},{lon}
//	  → features[].properties
//
// Free-text and postal-code searches go to an OpenStreetMap Nominatim
// instance. Nominatim returns coordinates as decimal strings and a verbose
// display_name such as "Austin, Travis County, Texas, United States"; only
// the first two comma-separated parts are kept (see [ShortDisplayName]).
//
// # Coordinate Conventions
//
// NWS redirects point lookups with more than four decimal places, so
// [Coordinate.String] rounds to four places before building a URL.
//
// # Alert Classification
//
// Alert events are free text ("Tornado Warning", "Severe Thunderstorm
// Watch"). A tornado warning is any event containing both "tornado" and
// "warning", case-insensitively; a tornado watch likewise. A warning
// suppresses the watch banner. Severity is one of the CAP levels Extreme,
// Severe, Moderate, Minor, Unknown; unrecognized text decodes as Unknown.
//
//	Presentation tier: Extreme, Severe → destructive | everything else → default
//	Notification:      Extreme, Severe, or any tornado warning
package domain
