package domain

import (
	"strings"
	"time"
)

// ForecastPeriod is one NWS forecast period. JSON names match the NWS wire
// format.
type ForecastPeriod struct {
	Number           int       `json:"number"`
	Name             string    `json:"name"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	IsDaytime        bool      `json:"isDaytime"`
	Temperature      int       `json:"temperature"`
	TemperatureUnit  string    `json:"temperatureUnit"`
	WindSpeed        string    `json:"windSpeed"`
	WindDirection    string    `json:"windDirection"`
	Icon             string    `json:"icon"`
	ShortForecast    string    `json:"shortForecast"`
	DetailedForecast string    `json:"detailedForecast"`
}

// Severity is the CAP severity level of an alert.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityMinor
	SeverityModerate
	SeveritySevere
	SeverityExtreme
)

var severityNames = [...]string{
	SeverityUnknown:  "Unknown",
	SeverityMinor:    "Minor",
	SeverityModerate: "Moderate",
	SeveritySevere:   "Severe",
	SeverityExtreme:  "Extreme",
}

// ParseSeverity maps upstream text to a Severity with an exact,
// case-insensitive match. Anything else yields SeverityUnknown.
func ParseSeverity(s string) Severity {
	for i, name := range severityNames {
		if strings.EqualFold(s, name) {
			return Severity(i)
		}
	}
	return SeverityUnknown
}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return severityNames[SeverityUnknown]
	}
	return severityNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It never fails.
func (s *Severity) UnmarshalText(text []byte) error {
	*s = ParseSeverity(string(text))
	return nil
}

// AlertRecord is one active NWS alert. IDs are unique within a snapshot.
type AlertRecord struct {
	ID          string    `json:"id"`
	AreaDesc    string    `json:"areaDesc"`
	Headline    string    `json:"headline"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Urgency     string    `json:"urgency"`
	Event       string    `json:"event"`
	Onset       time.Time `json:"onset,omitzero"`
	Ends        time.Time `json:"ends,omitzero"`
}

// WeatherSnapshot is the aggregated weather for one location at one moment.
// Forecast holds at most MaxForecastPeriods entries and never repeats the
// current period.
type WeatherSnapshot struct {
	Location          ResolvedLocation `json:"location"`
	CurrentConditions ForecastPeriod   `json:"currentConditions"`
	Forecast          []ForecastPeriod `json:"forecast"`
	Alerts            []AlertRecord    `json:"alerts"`
	FetchedAt         time.Time        `json:"fetchedAt"`
}

// MaxForecastPeriods caps WeatherSnapshot.Forecast.
const MaxForecastPeriods = 6

// UpcomingPeriods returns up to MaxForecastPeriods periods following the
// first, skipping any whose number equals the first period's. It returns an
// empty, non-nil slice when fewer than two periods are given.
func UpcomingPeriods(periods []ForecastPeriod) []ForecastPeriod {
	out := make([]ForecastPeriod, 0, MaxForecastPeriods)
	if len(periods) < 2 {
		return out
	}
	current := periods[0].Number
	for _, p := range periods[1:] {
		if len(out) == MaxForecastPeriods {
			break
		}
		if p.Number == current {
			continue
		}
		out = append(out, p)
	}
	return out
}
