package handlers

import (
	"context"
	"io"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/query"
	"github.com/vidtube/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	UpdateAccount(ctx context.Context, user models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, url string) error
	UpdateCoverImage(ctx context.Context, id, url string) error
	UpdateRefreshTokenHash(ctx context.Context, id, hash string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (query.Document, error)
	WatchHistory(ctx context.Context, userID string) ([]query.Document, error)
	AppendWatchHistory(ctx context.Context, userID, videoID string) error
	Exists(ctx context.Context, id string) (bool, error)
}

// TokenManager issues and verifies session token pairs.
type TokenManager interface {
	Issue(user models.User) (auth.TokenPair, error)
	VerifyAccess(token string) (auth.AccessClaims, error)
	VerifyRefresh(token string) (string, error)
}

// VideoStore captures persistence for video workflows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	List(ctx context.Context, opts repositories.ListVideosOptions) (*query.Page, error)
	DocByID(ctx context.Context, id string) (query.Document, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// CommentStore captures persistence for comment workflows.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	ListForVideo(ctx context.Context, videoID string, page, limit int) (*query.Page, error)
}

// TweetStore captures persistence for tweet workflows.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	ListForUser(ctx context.Context, ownerID string) ([]query.Document, error)
}

// LikeStore captures the atomic like toggles and the liked-video listing.
type LikeStore interface {
	ToggleVideo(ctx context.Context, userID, videoID string) (bool, error)
	ToggleComment(ctx context.Context, userID, commentID string) (bool, error)
	ToggleTweet(ctx context.Context, userID, tweetID string) (bool, error)
	LikedVideos(ctx context.Context, userID string) ([]query.Document, error)
}

// SubscriptionStore captures the subscription toggle and listings.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	Subscribers(ctx context.Context, channelID string) ([]query.Document, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]query.Document, error)
}

// PlaylistStore captures persistence for playlist workflows.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	Update(ctx context.Context, playlist models.Playlist) error
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
	ListForUser(ctx context.Context, ownerID string) ([]query.Document, error)
	Videos(ctx context.Context, playlistID string) ([]query.Document, error)
}

// StatsProvider resolves a channel's aggregated dashboard numbers.
type StatsProvider interface {
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// ChannelVideoLister returns every video a channel owns, including
// unpublished ones.
type ChannelVideoLister interface {
	ChannelVideos(ctx context.Context, ownerID string) ([]query.Document, error)
}

// FileStorage persists uploaded media and returns its public location.
type FileStorage interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}
