package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Validate rejects non-finite and out-of-range coordinates.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return fmt.Errorf("coordinate must be finite: %w", ErrInvalidInput)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]: %w", c.Lat, ErrInvalidInput)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]: %w", c.Lon, ErrInvalidInput)
	}
	return nil
}

// String renders "lat,lon" rounded to four decimal places, the precision
// NWS accepts without redirecting.
func (c Coordinate) String() string {
	return formatDegrees(c.Lat) + "," + formatDegrees(c.Lon)
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}

// ResolvedLocation is a coordinate paired with a short human-readable name.
type ResolvedLocation struct {
	Coordinate  Coordinate `json:"coordinate"`
	DisplayName string     `json:"displayName"`
}

var postalCodePattern = regexp.MustCompile(`^[0-9]{5}$`)

// IsPostalCode reports whether query is exactly five ASCII digits.
func IsPostalCode(query string) bool {
	return postalCodePattern.MatchString(query)
}

// ShortDisplayName keeps the first two comma-separated components of a
// verbose geocoder name, trimmed and joined with ", ". Empty components keep
// their slot.
func ShortDisplayName(verbose string) string {
	parts := strings.Split(verbose, ",")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// CityRegion formats a point lookup's relative location as "city, region".
// It returns "" when either part is missing.
func CityRegion(city, region string) string {
	city, region = strings.TrimSpace(city), strings.TrimSpace(region)
	if city == "" || region == "" {
		return ""
	}
	return city + ", " + region
}
