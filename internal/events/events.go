// Package events publishes domain events to out-of-process workers (welcome
// email, push delivery). Publishing is always off the request's critical path.
package events

import (
	"context"
	"encoding/json"
	"time"

	"bookameal/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event types
const (
	TypeMenuPublished  = "menu.published"
	TypeUserRegistered = "user.registered"
	TypePasswordReset  = "user.password_reset"
)

// DefaultPublishTimeout bounds one fire-and-forget publish
const DefaultPublishTimeout = 5 * time.Second

// Event is the envelope placed on the wire
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// New wraps payload in an Event with a fresh id
func New(eventType string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

// MenuPublished is the payload of TypeMenuPublished
type MenuPublished struct {
	MenuID   int64   `json:"menuId"`
	Date     string  `json:"date"`
	MealIDs  []int64 `json:"mealIds"`
	Notified int     `json:"notified"`
}

// UserRegistered is the payload of TypeUserRegistered
type UserRegistered struct {
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// PasswordReset is the payload of TypePasswordReset. Token is the raw
// single-use reset token for the mail worker; only its hash is stored.
type PasswordReset struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Publisher delivers events to the outside world
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct {
	log logrus.FieldLogger
}

func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.WithFields(logrus.Fields{
		"event_id":   ev.ID,
		"event_type": ev.Type,
	}).Info("event published")
	return nil
}

// Fire publishes ev in the background. A failure is logged and counted,
// never returned: the operation that raised the event has already committed.
// The returned channel is closed once the attempt finishes.
func Fire(p Publisher, log logrus.FieldLogger, eventType string, payload any) <-chan struct{} {
	done := make(chan struct{})

	ev, err := New(eventType, payload)
	if err != nil {
		log.WithError(err).WithField("event_type", eventType).Error("failed to encode event")
		metrics.RecordEventPublished(eventType, false)
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), DefaultPublishTimeout)
		defer cancel()

		if err := p.Publish(ctx, ev); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"event_id":   ev.ID,
				"event_type": ev.Type,
			}).Warn("failed to publish event")
			metrics.RecordEventPublished(ev.Type, false)
			return
		}
		metrics.RecordEventPublished(ev.Type, true)
	}()
	return done
}
