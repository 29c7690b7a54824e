package handlers

import (
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by the HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Tokens        TokenManager
	Videos        VideoStore
	Comments      CommentStore
	Tweets        TweetStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore
	Stats         StatsProvider
	ChannelVideos ChannelVideoLister
	Storage       FileStorage

	// AuthLimiter throttles credential endpoints per client address.
	AuthLimiter RateLimiter

	MaxUploadBytes int64
	SecureCookies  bool
	NowFunc        func() time.Time
}

// RegisterRoutes wires every endpoint into the provided ServeMux using
// method-qualified patterns.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	users := UserHandler{
		Users:          deps.Users,
		Tokens:         deps.Tokens,
		Storage:        deps.Storage,
		MaxUploadBytes: deps.MaxUploadBytes,
		SecureCookies:  deps.SecureCookies,
		NowFunc:        deps.NowFunc,
	}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Users:          deps.Users,
		Storage:        deps.Storage,
		MaxUploadBytes: deps.MaxUploadBytes,
		NowFunc:        deps.NowFunc,
	}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, NowFunc: deps.NowFunc}
	tweets := TweetHandler{Tweets: deps.Tweets, Users: deps.Users, NowFunc: deps.NowFunc}
	likes := LikeHandler{Likes: deps.Likes, Videos: deps.Videos, Comments: deps.Comments, Tweets: deps.Tweets}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos, Users: deps.Users, NowFunc: deps.NowFunc}
	dashboard := DashboardHandler{Stats: deps.Stats, Videos: deps.ChannelVideos}
	health := HealthHandler{}

	unauthorized := func(w http.ResponseWriter, r *http.Request) {
		respondError(r.Context(), w, http.StatusUnauthorized, "authentication required")
	}
	protect := middleware.RequireAuth(deps.Tokens, unauthorized)
	optional := middleware.OptionalAuth(deps.Tokens)

	authed := func(h http.HandlerFunc) http.Handler { return protect(h) }
	public := func(h http.HandlerFunc) http.Handler { return optional(h) }

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", rateLimited(deps.AuthLimiter, "register", users.Register))
	mux.HandleFunc("POST /api/v1/users/login", rateLimited(deps.AuthLimiter, "login", users.Login))
	mux.HandleFunc("POST /api/v1/users/refresh-token", rateLimited(deps.AuthLimiter, "refresh", users.RefreshToken))
	mux.Handle("POST /api/v1/users/logout", authed(users.Logout))
	mux.Handle("POST /api/v1/users/change-password", authed(users.ChangePassword))
	mux.Handle("GET /api/v1/users/current-user", authed(users.CurrentUser))
	mux.Handle("PATCH /api/v1/users/update-account", authed(users.UpdateAccount))
	mux.Handle("PATCH /api/v1/users/avatar", authed(users.UpdateAvatar))
	mux.Handle("PATCH /api/v1/users/cover-image", authed(users.UpdateCoverImage))
	mux.Handle("GET /api/v1/users/c/{username}", public(users.ChannelProfile))
	mux.Handle("GET /api/v1/users/history", authed(users.WatchHistory))

	mux.Handle("GET /api/v1/videos", public(videos.List))
	mux.Handle("POST /api/v1/videos", authed(videos.Create))
	mux.Handle("GET /api/v1/videos/{videoId}", public(videos.Get))
	mux.Handle("PATCH /api/v1/videos/{videoId}", authed(videos.Update))
	mux.Handle("DELETE /api/v1/videos/{videoId}", authed(videos.Delete))
	mux.Handle("PATCH /api/v1/videos/toggle/publish/{videoId}", authed(videos.TogglePublish))

	mux.Handle("GET /api/v1/comments/{videoId}", public(comments.List))
	mux.Handle("POST /api/v1/comments/{videoId}", authed(comments.Create))
	mux.Handle("PATCH /api/v1/comments/c/{commentId}", authed(comments.Update))
	mux.Handle("DELETE /api/v1/comments/c/{commentId}", authed(comments.Delete))

	mux.Handle("POST /api/v1/tweets", authed(tweets.Create))
	mux.Handle("GET /api/v1/tweets/user/{userId}", public(tweets.ListForUser))
	mux.Handle("PATCH /api/v1/tweets/{tweetId}", authed(tweets.Update))
	mux.Handle("DELETE /api/v1/tweets/{tweetId}", authed(tweets.Delete))

	mux.Handle("POST /api/v1/likes/toggle/v/{videoId}", authed(likes.ToggleVideo))
	mux.Handle("POST /api/v1/likes/toggle/c/{commentId}", authed(likes.ToggleComment))
	mux.Handle("POST /api/v1/likes/toggle/t/{tweetId}", authed(likes.ToggleTweet))
	mux.Handle("GET /api/v1/likes/videos", authed(likes.LikedVideos))

	mux.Handle("POST /api/v1/subscriptions/c/{channelId}", authed(subscriptions.Toggle))
	mux.Handle("GET /api/v1/subscriptions/u/{channelId}", public(subscriptions.Subscribers))
	mux.Handle("GET /api/v1/subscriptions/c/{subscriberId}", public(subscriptions.SubscribedChannels))

	mux.Handle("POST /api/v1/playlist", authed(playlists.Create))
	mux.Handle("GET /api/v1/playlist/user/{userId}", public(playlists.ListForUser))
	mux.Handle("GET /api/v1/playlist/{playlistId}", public(playlists.Get))
	mux.Handle("PATCH /api/v1/playlist/{playlistId}", authed(playlists.Update))
	mux.Handle("DELETE /api/v1/playlist/{playlistId}", authed(playlists.Delete))
	mux.Handle("PATCH /api/v1/playlist/add/{videoId}/{playlistId}", authed(playlists.AddVideo))
	mux.Handle("PATCH /api/v1/playlist/remove/{videoId}/{playlistId}", authed(playlists.RemoveVideo))

	mux.Handle("GET /api/v1/dashboard/stats", authed(dashboard.ChannelStats))
	mux.Handle("GET /api/v1/dashboard/videos", authed(dashboard.ChannelVideos))
}
