package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
)

// LikeHandler implements the like toggle and listing endpoints. Toggles are
// atomic in the store; the handler only validates the target and reports the
// resulting state.
type LikeHandler struct {
	Likes    LikeStore
	Videos   VideoStore
	Comments CommentStore
	Tweets   TweetStore
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "videoId", "video",
		func(ctx context.Context, id string) (bool, error) {
			return h.Videos.Exists(ctx, id)
		},
		h.Likes.ToggleVideo)
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "commentId", "comment",
		func(ctx context.Context, id string) (bool, error) {
			_, err := h.Comments.FindByID(ctx, id)
			return err == nil, ignoreNotFound(err)
		},
		h.Likes.ToggleComment)
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "tweetId", "tweet",
		func(ctx context.Context, id string) (bool, error) {
			_, err := h.Tweets.FindByID(ctx, id)
			return err == nil, ignoreNotFound(err)
		},
		h.Likes.ToggleTweet)
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.Likes.LikedVideos(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFromError(ctx, w, err, "unable to load liked videos")
		return
	}

	respondData(ctx, w, http.StatusOK, videos, "liked videos")
}

func (h LikeHandler) toggle(
	w http.ResponseWriter,
	r *http.Request,
	param, kind string,
	exists func(ctx context.Context, id string) (bool, error),
	flip func(ctx context.Context, userID, targetID string) (bool, error),
) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)
	targetID := r.PathValue(param)

	ok, err := exists(ctx, targetID)
	if err != nil {
		logger.Error("check like target", "kind", kind, "error", err, "targetId", targetID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle like")
		return
	}
	if !ok {
		respondError(ctx, w, http.StatusNotFound, kind+" not found")
		return
	}

	liked, err := flip(ctx, userID, targetID)
	if err != nil {
		logger.Error("toggle like", "kind", kind, "error", err, "targetId", targetID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle like")
		return
	}

	message := "like removed"
	if liked {
		message = "like added"
	}
	respondData(ctx, w, http.StatusOK, map[string]bool{"liked": liked}, message)
}

func ignoreNotFound(err error) error {
	if err == nil || errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	return err
}
