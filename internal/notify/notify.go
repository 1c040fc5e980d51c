// Package notify carries announcements from the API to mail delivery through
// the work queue.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"portal/internal/metrics"
	"portal/internal/queue"
)

// MessageType tags notification messages on the queue.
const MessageType = "notification"

// Recipient is one mail address.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Notification is a single mail sent to many recipients.
type Notification struct {
	Recipients []Recipient `json:"recipients"`
	Subject    string      `json:"subject"`
	HTML       string      `json:"html"`
	Text       string      `json:"text"`
}

// Dispatcher publishes notifications to the queue.
type Dispatcher struct {
	q queue.Queue
}

// NewDispatcher wraps q.
func NewDispatcher(q queue.Queue) *Dispatcher {
	return &Dispatcher{q: q}
}

// Notify enqueues n. Empty recipient lists are ignored.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) error {
	if len(n.Recipients) == 0 {
		return nil
	}
	msg, err := queue.NewMessage(MessageType, n)
	if err != nil {
		return err
	}
	if err := d.q.Publish(ctx, msg); err != nil {
		return fmt.Errorf("notify: publish: %w", err)
	}
	metrics.Notifications.WithLabelValues("queued").Inc()
	return nil
}

func decode(msg queue.Message) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		return Notification{}, fmt.Errorf("notify: decode %s: %w", msg.ID, err)
	}
	return n, nil
}
