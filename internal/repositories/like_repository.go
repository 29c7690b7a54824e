package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/query"
)

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
// Toggle semantics live here rather than in the handlers: each toggle is an
// atomic conditional insert followed, only when the row already existed, by
// a delete. Two racing toggles can never produce a duplicate like because
// the partial unique indexes arbitrate.
type PostgresLikeRepository struct {
	pool db.Pool
	exec *query.Executor

	// NowFunc returns the current time and exists for test injection.
	NowFunc func() time.Time
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{
		pool:    pool,
		exec:    query.NewExecutor(pool),
		NowFunc: time.Now,
	}
}

// ToggleVideo flips the user's like on a video. It reports true when the
// like now exists and false when it was removed.
func (r *PostgresLikeRepository) ToggleVideo(ctx context.Context, userID, videoID string) (bool, error) {
	return r.toggle(ctx, "video_id", userID, videoID)
}

// ToggleComment flips the user's like on a comment.
func (r *PostgresLikeRepository) ToggleComment(ctx context.Context, userID, commentID string) (bool, error) {
	return r.toggle(ctx, "comment_id", userID, commentID)
}

// ToggleTweet flips the user's like on a tweet.
func (r *PostgresLikeRepository) ToggleTweet(ctx context.Context, userID, tweetID string) (bool, error) {
	return r.toggle(ctx, "tweet_id", userID, tweetID)
}

func (r *PostgresLikeRepository) toggle(ctx context.Context, column, userID, targetID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is one of the three fixed target columns, never caller input.
	tag, err := conn.Exec(ctx, fmt.Sprintf(`
        INSERT INTO likes (id, liked_by, %s, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (liked_by, %s) WHERE %s IS NOT NULL DO NOTHING
    `, column, column, column), uuid.NewString(), userID, targetID, r.NowFunc().UTC())
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return true, nil
	}

	_, err = conn.Exec(ctx, fmt.Sprintf(`
        DELETE FROM likes WHERE liked_by = $1 AND %s = $2
    `, column), userID, targetID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}

	return false, nil
}

// LikedVideos returns the videos the user has liked, each promoted to the
// document root with its owner attached. Likes whose video has since been
// deleted are dropped rather than surfaced as nulls.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, userID string) ([]query.Document, error) {
	p := query.New(Schema, "likes").
		MatchEq("likedBy", userID).
		MatchNotNull("videoId").
		LookupDoc("videoDetails", "videos", "videoId", "id",
			"id", "title", "description", "videoFileUrl", "thumbnailUrl",
			"duration", "views", "createdAt").
		LookupDoc("videoDetails.owner", "users", "videoDetails.ownerId", "id",
			"username", "fullName", "avatarUrl").
		ReplaceRoot("videoDetails")

	docs, err := r.exec.Find(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list liked videos: %w", err)
	}
	return docs, nil
}
