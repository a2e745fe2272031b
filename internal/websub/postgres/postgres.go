// Package postgres implements the WebSub Subscriber's
// SubscriptionRepository over jackc/pgx/v5 via database/sql: one file
// per repository, a thin struct wrapping *sql.DB, $N-placeholder
// queries.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rssflow/internal/resilience/circuitbreaker"
	"rssflow/internal/websub"
)

// dbExecer is the subset of *sql.DB this repository calls, satisfied
// both by *sql.DB directly and by *circuitbreaker.DBCircuitBreaker.
type dbExecer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SubscriptionRepo implements websub.SubscriptionRepository.
type SubscriptionRepo struct{ db dbExecer }

// NewSubscriptionRepo wraps db as a websub.SubscriptionRepository,
// routing every query through a circuit breaker so a failing Postgres
// instance fails subscription lookups fast instead of piling up
// blocked connections.
func NewSubscriptionRepo(db *sql.DB) websub.SubscriptionRepository {
	return &SubscriptionRepo{db: circuitbreaker.NewDBCircuitBreaker(db)}
}

func scanSubscription(row interface{ Scan(...any) error }) (*websub.Subscription, error) {
	var s websub.Subscription
	var id string
	var leaseEnd sql.NullTime
	if err := row.Scan(&id, &s.Topic, &s.Hub, &s.Secret, &s.Subscribed, &leaseEnd); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse subscription uuid: %w", err)
	}
	s.UUID = parsed
	if leaseEnd.Valid {
		s.LeaseEnd = leaseEnd.Time
	}
	return &s, nil
}

func (r *SubscriptionRepo) FindByTopicHub(ctx context.Context, topic, hub string) (*websub.Subscription, error) {
	const query = `
SELECT uuid, topic, hub, secret, subscribed, lease_end
FROM websub_subscriptions
WHERE topic = $1 AND hub = $2`
	row := r.db.QueryRowContext(ctx, query, topic, hub)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, websub.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByTopicHub: %w", err)
	}
	return sub, nil
}

func (r *SubscriptionRepo) FindByUUID(ctx context.Context, id uuid.UUID) (*websub.Subscription, error) {
	const query = `
SELECT uuid, topic, hub, secret, subscribed, lease_end
FROM websub_subscriptions
WHERE uuid = $1`
	row := r.db.QueryRowContext(ctx, query, id.String())
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, websub.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByUUID: %w", err)
	}
	return sub, nil
}

func (r *SubscriptionRepo) Create(ctx context.Context, sub *websub.Subscription) error {
	const query = `
INSERT INTO websub_subscriptions (uuid, topic, hub, secret, subscribed, lease_end)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		sub.UUID.String(), sub.Topic, sub.Hub, sub.Secret, sub.Subscribed, nullTime(sub.LeaseEnd))
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) MarkSubscribed(ctx context.Context, id uuid.UUID, leaseEnd time.Time) error {
	const query = `UPDATE websub_subscriptions SET subscribed = TRUE, lease_end = $1 WHERE uuid = $2`
	res, err := r.db.ExecContext(ctx, query, leaseEnd, id.String())
	if err != nil {
		return fmt.Errorf("MarkSubscribed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return websub.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM websub_subscriptions WHERE uuid = $1`
	_, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) List(ctx context.Context) ([]*websub.Subscription, error) {
	const query = `SELECT uuid, topic, hub, secret, subscribed, lease_end FROM websub_subscriptions`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subs := make([]*websub.Subscription, 0, 16)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
