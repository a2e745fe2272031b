// Package websub implements the WebSub Subscriber: subscription
// lifecycle (discovery handoff from the Fetch node, hub verification,
// HMAC-authenticated push reception) and fan-out to interested nodes.
package websub

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Subscription is one row of the persisted (topic, hub) subscription
// table.
type Subscription struct {
	UUID       uuid.UUID
	Topic      string
	Hub        string
	Secret     string // base64-encoded
	Subscribed bool
	LeaseEnd   time.Time
}

// ErrNotFound is returned by a SubscriptionRepository when no row
// matches the lookup.
var ErrNotFound = errors.New("websub: subscription not found")

// SubscriptionRepository is the persistence boundary for Subscription
// rows, implemented by internal/websub/postgres.
type SubscriptionRepository interface {
	FindByTopicHub(ctx context.Context, topic, hub string) (*Subscription, error)
	FindByUUID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	Create(ctx context.Context, sub *Subscription) error
	MarkSubscribed(ctx context.Context, id uuid.UUID, leaseEnd time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Subscription, error)
}
