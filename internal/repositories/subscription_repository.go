package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/query"
)

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for
// channel subscriptions. The unique (subscriber_id, channel_id) constraint
// makes the toggle atomic under races.
type PostgresSubscriptionRepository struct {
	pool db.Pool
	exec *query.Executor

	// NowFunc returns the current time and exists for test injection.
	NowFunc func() time.Time
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{
		pool:    pool,
		exec:    query.NewExecutor(pool),
		NowFunc: time.Now,
	}
}

// Toggle flips the subscriber's subscription to the channel. It reports true
// when the subscription now exists and false when it was removed. Callers
// reject subscriber == channel before reaching the store.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (subscriber_id, channel_id) DO NOTHING
    `, uuid.NewString(), subscriberID, channelID, r.NowFunc().UTC())
	if err != nil {
		return false, fmt.Errorf("insert subscription: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return true, nil
	}

	_, err = conn.Exec(ctx, `
        DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}

	return false, nil
}

// Subscribers returns the public details of everyone subscribed to the channel.
func (r *PostgresSubscriptionRepository) Subscribers(ctx context.Context, channelID string) ([]query.Document, error) {
	p := query.New(Schema, "subscriptions").
		MatchEq("channelId", channelID).
		LookupFields("users", "subscriberId", "id", "username", "fullName", "avatarUrl").
		Reshape("id", "username", "fullName", "avatarUrl")

	docs, err := r.exec.Find(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return docs, nil
}

// SubscribedChannels returns the public details of every channel the user
// subscribes to.
func (r *PostgresSubscriptionRepository) SubscribedChannels(ctx context.Context, subscriberID string) ([]query.Document, error) {
	p := query.New(Schema, "subscriptions").
		MatchEq("subscriberId", subscriberID).
		LookupFields("users", "channelId", "id", "username", "fullName", "avatarUrl").
		Reshape("id", "username", "fullName", "avatarUrl")

	docs, err := r.exec.Find(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list subscribed channels: %w", err)
	}
	return docs, nil
}
