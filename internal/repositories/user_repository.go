package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/query"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
	exec *query.Executor
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool, exec: query.NewExecutor(pool)}
}

const userColumns = `id, username, email, full_name, avatar_url, cover_image_url, password_hash, COALESCE(refresh_token_hash, ''), created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.AvatarURL, &user.CoverImageURL, &user.PasswordHash,
		&user.RefreshTokenHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// Create persists a new user record. A duplicate username or email surfaces
// as ErrConflict from the unique indexes, never from a pre-read.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar_url, cover_image_url, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.AvatarURL,
		user.CoverImageURL, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id = $1
    `, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}
	return user, err
}

// FindByIdentifier fetches a user whose username or email matches the given
// identifier. Both are stored lowercased so the match folds case.
func (r *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE username = lower($1) OR email = lower($1)
    `, identifier))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.User{}, fmt.Errorf("select user by identifier: %w", err)
	}
	return user, err
}

// UpdateAccount modifies a user's full name and email.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET full_name = $2, email = $3, updated_at = $4
        WHERE id = $1
    `, user.ID, user.FullName, user.Email, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user account: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.setColumn(ctx, id, "password_hash", passwordHash)
}

// UpdateAvatar replaces the stored avatar URL.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, url string) error {
	return r.setColumn(ctx, id, "avatar_url", url)
}

// UpdateCoverImage replaces the stored cover image URL.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, url string) error {
	return r.setColumn(ctx, id, "cover_image_url", url)
}

// UpdateRefreshTokenHash stores the hash of the currently valid refresh token.
// An empty hash clears it, invalidating every outstanding refresh token.
func (r *PostgresUserRepository) UpdateRefreshTokenHash(ctx context.Context, id, hash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token_hash = NULLIF($2, ''), updated_at = now()
        WHERE id = $1
    `, id, hash)
	if err != nil {
		return fmt.Errorf("update refresh token hash: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresUserRepository) setColumn(ctx context.Context, id, column, value string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is one of the fixed names above, never caller input.
	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET `+column+` = $2, updated_at = now()
        WHERE id = $1
    `, id, value)
	if err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ChannelProfile composes the public channel page for a username as seen by
// viewerID: subscriber counts plus whether the viewer is subscribed. An empty
// viewerID yields isSubscribed=false.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (query.Document, error) {
	p := query.New(Schema, "users").
		MatchEq("username", username).
		LookupCount("subscribersCount", "subscriptions", "id", "channelId").
		LookupCount("channelsSubscribedToCount", "subscriptions", "id", "subscriberId").
		LookupExists("isSubscribed", "subscriptions", "id", "channelId",
			query.Eq{Field: "subscriberId", Value: viewerID}).
		Reshape("id", "username", "email", "fullName", "avatarUrl", "coverImageUrl",
			"subscribersCount", "channelsSubscribedToCount", "isSubscribed")

	docs, err := r.exec.Find(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("compose channel profile: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// WatchHistory returns the user's watched videos, most recent last, each with
// its owner attached. Entries whose video has since been deleted are dropped.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string) ([]query.Document, error) {
	p := query.New(Schema, "watchHistory").
		MatchEq("userId", userID).
		LookupDoc("video", "videos", "videoId", "id",
			"id", "title", "description", "videoFileUrl", "thumbnailUrl",
			"duration", "views", "createdAt").
		LookupDoc("video.owner", "users", "video.ownerId", "id",
			"username", "fullName", "avatarUrl").
		Sort("seq", query.Ascending).
		ReplaceRoot("video")

	docs, err := r.exec.Find(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("compose watch history: %w", err)
	}
	return docs, nil
}

// AppendWatchHistory records that the user watched the video.
func (r *PostgresUserRepository) AppendWatchHistory(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id)
        VALUES ($1, $2)
    `, userID, videoID)
	if err != nil {
		return fmt.Errorf("insert watch history entry: %w", err)
	}

	return nil
}

// Exists reports whether a user with the given id is present.
func (r *PostgresUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}
