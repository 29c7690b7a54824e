package repositories

import "github.com/vidtube/backend/internal/query"

// Schema declares every queryable collection for the pipeline compiler.
// Credential columns (password_hash, refresh_token_hash) are deliberately
// unregistered so no composed read can ever project them.
var Schema = buildSchema()

func buildSchema() *query.Schema {
	s := query.NewSchema()

	s.Collection("users", "users").
		Field("id", "id").
		Field("username", "username").
		Field("email", "email").
		Field("fullName", "full_name").
		Field("avatarUrl", "avatar_url").
		Field("coverImageUrl", "cover_image_url").
		Field("createdAt", "created_at").
		Field("updatedAt", "updated_at")

	s.Collection("videos", "videos").
		Field("id", "id").
		Field("ownerId", "owner_id").
		Field("title", "title").
		Field("description", "description").
		Field("videoFileUrl", "video_file_url").
		Field("thumbnailUrl", "thumbnail_url").
		Field("duration", "duration").
		Field("views", "views").
		Field("isPublished", "is_published").
		Field("createdAt", "created_at").
		Field("updatedAt", "updated_at")

	s.Collection("comments", "comments").
		Field("id", "id").
		Field("videoId", "video_id").
		Field("ownerId", "owner_id").
		Field("content", "content").
		Field("createdAt", "created_at").
		Field("updatedAt", "updated_at")

	s.Collection("tweets", "tweets").
		Field("id", "id").
		Field("ownerId", "owner_id").
		Field("content", "content").
		Field("createdAt", "created_at").
		Field("updatedAt", "updated_at")

	s.Collection("likes", "likes").
		Field("id", "id").
		Field("likedBy", "liked_by").
		Field("videoId", "video_id").
		Field("commentId", "comment_id").
		Field("tweetId", "tweet_id").
		Field("createdAt", "created_at")

	s.Collection("subscriptions", "subscriptions").
		Field("id", "id").
		Field("subscriberId", "subscriber_id").
		Field("channelId", "channel_id").
		Field("createdAt", "created_at")

	s.Collection("playlists", "playlists").
		Field("id", "id").
		Field("ownerId", "owner_id").
		Field("name", "name").
		Field("description", "description").
		Field("createdAt", "created_at").
		Field("updatedAt", "updated_at")

	s.Collection("playlistVideos", "playlist_videos").
		Field("playlistId", "playlist_id").
		Field("videoId", "video_id").
		Field("addedAt", "added_at")

	s.Collection("watchHistory", "watch_history").
		Field("userId", "user_id").
		Field("videoId", "video_id").
		Field("seq", "seq").
		Field("watchedAt", "watched_at")

	return s
}
