package domain

import (
	"sort"
	"strings"
)

// ClassifiedAlerts splits a snapshot's alerts for presentation. At most one
// of TornadoWarning and TornadoWatch is set; Others never holds a tornado
// warning or watch.
type ClassifiedAlerts struct {
	TornadoWarning *AlertRecord  `json:"tornadoWarning,omitempty"`
	TornadoWatch   *AlertRecord  `json:"tornadoWatch,omitempty"`
	Others         []AlertRecord `json:"others"`
}

// Tier is the presentation style for an alert.
type Tier string

const (
	TierDestructive Tier = "destructive"
	TierDefault     Tier = "default"
)

// IsTornadoWarning reports whether the alert's event names a tornado warning.
func IsTornadoWarning(a AlertRecord) bool {
	return eventContains(a.Event, "tornado", "warning")
}

// IsTornadoWatch reports whether the alert's event names a tornado watch.
func IsTornadoWatch(a AlertRecord) bool {
	return eventContains(a.Event, "tornado", "watch")
}

func eventContains(event string, words ...string) bool {
	e := strings.ToLower(event)
	for _, w := range words {
		if !strings.Contains(e, w) {
			return false
		}
	}
	return true
}

// Classify picks the first tornado warning, or failing that the first tornado
// watch, and collects every remaining non-tornado alert in input order.
func Classify(alerts []AlertRecord) ClassifiedAlerts {
	out := ClassifiedAlerts{Others: make([]AlertRecord, 0, len(alerts))}
	var watch *AlertRecord
	for i := range alerts {
		a := alerts[i]
		switch {
		case IsTornadoWarning(a):
			if out.TornadoWarning == nil {
				out.TornadoWarning = &a
			}
		case IsTornadoWatch(a):
			if watch == nil {
				watch = &a
			}
		default:
			out.Others = append(out.Others, a)
		}
	}
	if out.TornadoWarning == nil {
		out.TornadoWatch = watch
	}
	return out
}

// SeverityTier maps Extreme and Severe to TierDestructive and everything
// else to TierDefault.
func SeverityTier(s Severity) Tier {
	if s == SeveritySevere || s == SeverityExtreme {
		return TierDestructive
	}
	return TierDefault
}

// NotifiableAlerts returns, in input order, alerts that are Severe or
// Extreme plus every tornado warning regardless of severity.
func NotifiableAlerts(alerts []AlertRecord) []AlertRecord {
	out := make([]AlertRecord, 0, len(alerts))
	for _, a := range alerts {
		if SeverityTier(a.Severity) == TierDestructive || IsTornadoWarning(a) {
			out = append(out, a)
		}
	}
	return out
}

// TornadoWarningIDs returns the sorted IDs of every tornado warning.
func TornadoWarningIDs(alerts []AlertRecord) []string {
	var ids []string
	for _, a := range alerts {
		if IsTornadoWarning(a) {
			ids = append(ids, a.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
