package repositories

import (
	"context"
	"fmt"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresDashboardRepository aggregates channel-level statistics.
type PostgresDashboardRepository struct {
	pool db.Pool
}

// NewPostgresDashboardRepository constructs a dashboard repository backed by PostgreSQL.
func NewPostgresDashboardRepository(pool db.Pool) *PostgresDashboardRepository {
	return &PostgresDashboardRepository{pool: pool}
}

// ChannelStats computes the owner's totals in a single statement. A channel
// with no videos yields all zeros rather than an error.
func (r *PostgresDashboardRepository) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT
            COALESCE((SELECT SUM(views) FROM videos WHERE owner_id = $1), 0),
            (SELECT count(*) FROM videos WHERE owner_id = $1),
            (SELECT count(*) FROM likes l JOIN videos v ON l.video_id = v.id WHERE v.owner_id = $1),
            (SELECT count(*) FROM subscriptions WHERE channel_id = $1)
    `, ownerID)

	var stats models.ChannelStats
	if err := row.Scan(&stats.TotalViews, &stats.TotalVideos, &stats.TotalLikes, &stats.TotalSubscribers); err != nil {
		return models.ChannelStats{}, fmt.Errorf("aggregate channel stats: %w", err)
	}

	return stats, nil
}
