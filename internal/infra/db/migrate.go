package db

import (
	"database/sql"
)

// MigrateUp creates the WebSub subscription store schema.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS websub_subscriptions (
    uuid         UUID PRIMARY KEY,
    topic        TEXT NOT NULL,
    hub          TEXT NOT NULL,
    secret       TEXT NOT NULL,
    subscribed   BOOLEAN NOT NULL DEFAULT FALSE,
    lease_end    TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(topic, hub)
)`); err != nil {
		return err
	}

	// Fan-out targets: the set of nodes a subscription's pushed entries are
	// forwarded to once verified.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS websub_subscription_nodes (
    subscription_uuid UUID NOT NULL REFERENCES websub_subscriptions(uuid) ON DELETE CASCADE,
    node_name         TEXT NOT NULL,
    address           TEXT NOT NULL,
    PRIMARY KEY (subscription_uuid, node_name)
)`); err != nil {
		return err
	}

	indexes := []string{
		// lease renewal sweep: find subscriptions nearing expiry
		`CREATE INDEX IF NOT EXISTS idx_websub_subscriptions_lease_end ON websub_subscriptions(lease_end)`,
		// active-subscription filtering
		`CREATE INDEX IF NOT EXISTS idx_websub_subscriptions_subscribed ON websub_subscriptions(subscribed) WHERE subscribed = TRUE`,
		// fan-out lookup by subscription
		`CREATE INDEX IF NOT EXISTS idx_websub_subscription_nodes_subscription ON websub_subscription_nodes(subscription_uuid)`,
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown rolls back the WebSub subscription store schema.
// Use with caution: this deletes all stored subscriptions.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_websub_subscription_nodes_subscription`,
		`DROP INDEX IF EXISTS idx_websub_subscriptions_subscribed`,
		`DROP INDEX IF EXISTS idx_websub_subscriptions_lease_end`,
		`DROP TABLE IF EXISTS websub_subscription_nodes CASCADE`,
		`DROP TABLE IF EXISTS websub_subscriptions CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
