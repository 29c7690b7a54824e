package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/query"
)

// ListVideosOptions narrows and orders the public video listing.
type ListVideosOptions struct {
	Search  string
	OwnerID string
	SortBy  string
	SortAsc bool
	Page    int
	Limit   int
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
	exec *query.Executor
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool, exec: query.NewExecutor(pool)}
}

// Create persists a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_file_url, thumbnail_url, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoFileURL,
		video.ThumbnailURL, video.Duration, video.Views, video.IsPublished,
		video.CreatedAt, video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a video row by id, including unpublished ones. Visibility
// decisions belong to the caller, which knows who is asking.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, title, description, video_file_url, thumbnail_url, duration, views, is_published, created_at, updated_at
        FROM videos
        WHERE id = $1
    `, id)

	var video models.Video
	err = row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoFileURL, &video.ThumbnailURL, &video.Duration, &video.Views,
		&video.IsPublished, &video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video by id: %w", err)
	}

	return video, nil
}

// Update modifies the mutable fields of an existing video.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail_url = $4, is_published = $5, updated_at = $6
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.ThumbnailURL,
		video.IsPublished, video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a video. Comments and likes pointing at it are left in
// place and simply stop resolving.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// IncrementViews bumps the view counter by one.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment video views: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns a page of published videos matching the options. An unknown
// sort field surfaces as query.ErrUnknownField.
func (r *PostgresVideoRepository) List(ctx context.Context, opts ListVideosOptions) (*query.Page, error) {
	p := query.New(Schema, "videos").
		MatchEq("isPublished", true).
		MatchText(opts.Search, "title", "description")

	if opts.OwnerID != "" {
		p.MatchEq("ownerId", opts.OwnerID)
	}
	if opts.SortBy != "" {
		dir := query.Descending
		if opts.SortAsc {
			dir = query.Ascending
		}
		p.Sort(opts.SortBy, dir)
	}
	p.Paginate(opts.Page, opts.Limit)

	page, err := r.exec.FindPage(ctx, p)
	if err != nil {
		if errors.Is(err, query.ErrUnknownField) {
			return nil, err
		}
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return page, nil
}

// DocByID composes a single video document with its owner attached.
func (r *PostgresVideoRepository) DocByID(ctx context.Context, id string) (query.Document, error) {
	p := query.New(Schema, "videos").
		MatchEq("id", id).
		LookupDoc("owner", "users", "ownerId", "id",
			"id", "username", "fullName", "avatarUrl")

	docs, err := r.exec.Find(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("compose video: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// ChannelVideos returns every video owned by the channel, published or not,
// newest first. Used by the owner's dashboard.
func (r *PostgresVideoRepository) ChannelVideos(ctx context.Context, ownerID string) ([]query.Document, error) {
	p := query.New(Schema, "videos").
		MatchEq("ownerId", ownerID).
		LookupCount("likesCount", "likes", "id", "videoId")

	docs, err := r.exec.Find(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list channel videos: %w", err)
	}
	return docs, nil
}

// Exists reports whether a video with the given id is present.
func (r *PostgresVideoRepository) Exists(ctx context.Context, id string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check video exists: %w", err)
	}
	return exists, nil
}
