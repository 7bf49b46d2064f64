package domain

import "time"

// Preferences is a user's stored profile and alert settings.
type Preferences struct {
	UserID       string `json:"userId"`
	Email        string `json:"email,omitempty"`
	FullName     string `json:"fullName,omitempty"`
	Location     string `json:"location"`
	EmailAlerts  bool   `json:"emailAlerts"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Subscribed   bool   `json:"subscribed"`
}

// AlertRecipient returns the address alert e-mails go to, preferring the
// dedicated alert address over the sign-in e-mail.
func (p Preferences) AlertRecipient() string {
	if p.EmailAddress != "" {
		return p.EmailAddress
	}
	return p.Email
}

// ProfileUpdate carries optional profile fields; nil fields are left as is.
type ProfileUpdate struct {
	Location     *string `json:"location,omitempty"`
	FullName     *string `json:"fullName,omitempty"`
	EmailAlerts  *bool   `json:"emailAlerts,omitempty"`
	EmailAddress *string `json:"emailAddress,omitempty"`
}

// Apply merges the present fields into p.
func (u ProfileUpdate) Apply(p Preferences) Preferences {
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.EmailAlerts != nil {
		p.EmailAlerts = *u.EmailAlerts
	}
	if u.EmailAddress != nil {
		p.EmailAddress = *u.EmailAddress
	}
	return p
}

// AlertEmail is the content of an alert e-mail before addressing.
type AlertEmail struct {
	Event       string `json:"event"`
	Description string `json:"description"`
}

// Notification is an addressed alert e-mail, published for delivery.
type Notification struct {
	ID          string    `json:"id"`
	AlertID     string    `json:"alertId,omitempty"`
	Event       string    `json:"event"`
	Description string    `json:"description"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AlertSubject is the e-mail subject line for an alert event.
func AlertSubject(event string) string {
	return "WEATHER ALERT: " + event
}
