// Package notify delivers license alerts to agents and operators. Delivery
// is best effort: callers log a failed notification and move on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind names the event an Alert reports.
type Kind string

const (
	KindVerified     Kind = "verified"
	KindLapsed       Kind = "lapsed"
	KindSweepSummary Kind = "sweep_summary"
)

// Alert is one notification. Phone is empty when the agent gave none; sinks
// that need a phone number skip the alert.
type Alert struct {
	Kind         Kind      `json:"kind"`
	AgentID      string    `json:"agent_id,omitempty"`
	Name         string    `json:"name,omitempty"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Message      string    `json:"message"`
	At           time.Time `json:"at"`
}

// Text renders the human message for the alert. Message, when set, is
// appended as detail.
func (a Alert) Text() string {
	var body string
	switch a.Kind {
	case KindVerified:
		body = fmt.Sprintf("%s, your %s insurance license has been verified. You're all set.", a.Name, a.Jurisdiction)
	case KindLapsed:
		body = fmt.Sprintf("License alert: %s, we could not confirm an active %s insurance license for you. "+
			"Please renew or re-verify your details.", a.Name, a.Jurisdiction)
	case KindSweepSummary:
		body = "License check complete."
	default:
		body = fmt.Sprintf("License update for %s (%s).", a.Name, a.Jurisdiction)
	}
	if a.Message != "" {
		body += " " + a.Message
	}
	return strings.TrimSpace(body)
}

// Notifier delivers one alert.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Multi fans an alert out to every notifier in order. All are attempted; the
// errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
