package notify

import (
	"context"
	"sync"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
)

// Notifier e-mails notifiable alerts, sending each alert at most once per
// scope (a user or a watched location) while it stays active.
type Notifier struct {
	dispatcher *Dispatcher

	mu   sync.Mutex
	sent map[string]map[string]struct{} // scope → alert IDs already handled
}

// NewNotifier creates a Notifier around d.
func NewNotifier(d *Dispatcher) *Notifier {
	return &Notifier{dispatcher: d, sent: make(map[string]map[string]struct{})}
}

// NotifyUser e-mails the user's notifiable alerts if they opted in, and
// returns how many were published.
func (n *Notifier) NotifyUser(ctx context.Context, prefs domain.Preferences, alerts []domain.AlertRecord) int {
	if !prefs.EmailAlerts {
		return 0
	}
	return n.Notify(ctx, "user:"+prefs.UserID, prefs.AlertRecipient(), alerts)
}

// Notify dispatches each notifiable alert not yet handled in scope and
// returns how many were published. Alerts no longer active are forgotten so
// a reissued alert is sent again. Pending alerts are reserved before
// dispatch, so concurrent calls for one scope send each alert once.
func (n *Notifier) Notify(ctx context.Context, scope, recipient string, alerts []domain.AlertRecord) int {
	notifiable := domain.NotifiableAlerts(alerts)

	n.mu.Lock()
	prev := n.sent[scope]
	next := make(map[string]struct{}, len(notifiable))
	var pending []domain.AlertRecord
	for _, a := range notifiable {
		if _, done := prev[a.ID]; !done {
			pending = append(pending, a)
		}
		next[a.ID] = struct{}{}
	}
	n.sent[scope] = next
	n.mu.Unlock()

	published := 0
	for _, a := range pending {
		switch n.dispatcher.Dispatch(ctx, a.ID, domain.AlertEmail{Event: a.Event, Description: a.Description}, recipient) {
		case OutcomeSent:
			published++
		case OutcomeSkipped, OutcomeFailed:
			n.release(scope, a.ID)
		}
	}
	return published
}

func (n *Notifier) release(scope, alertID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.sent[scope], alertID)
}
