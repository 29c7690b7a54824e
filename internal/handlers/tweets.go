package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
)

// TweetHandler implements the short-post endpoints.
type TweetHandler struct {
	Tweets  TweetStore
	Users   UserStore
	NowFunc func() time.Time
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var req tweetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFromError(ctx, w, err, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	now := h.now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Tweets.Create(ctx, tweet); err != nil {
		logging.FromContext(ctx).Error("create tweet", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to create tweet")
		return
	}

	respondData(ctx, w, http.StatusCreated, tweet, "tweet created")
}

// ListForUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := r.PathValue("userId")

	exists, err := h.Users.Exists(ctx, ownerID)
	if err != nil {
		logging.FromContext(ctx).Error("check user exists", "error", err, "userId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load tweets")
		return
	}
	if !exists {
		respondError(ctx, w, http.StatusNotFound, "user not found")
		return
	}

	tweets, err := h.Tweets.ListForUser(ctx, ownerID)
	if err != nil {
		respondFromError(ctx, w, err, "unable to load tweets")
		return
	}

	respondData(ctx, w, http.StatusOK, tweets, "tweets")
}

// Update handles PATCH /api/v1/tweets/{tweetId}. Author only.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var req tweetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFromError(ctx, w, err, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	tweet, err := h.Tweets.FindByID(ctx, r.PathValue("tweetId"))
	if err != nil {
		respondFromError(ctx, w, err, "tweet not found")
		return
	}
	if tweet.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the author may edit this tweet")
		return
	}

	if err := h.Tweets.UpdateContent(ctx, tweet.ID, content); err != nil {
		respondFromError(ctx, w, err, "unable to update tweet")
		return
	}

	tweet.Content = content
	tweet.UpdatedAt = h.now()
	respondData(ctx, w, http.StatusOK, tweet, "tweet updated")
}

// Delete handles DELETE /api/v1/tweets/{tweetId}. Author only.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	tweet, err := h.Tweets.FindByID(ctx, r.PathValue("tweetId"))
	if err != nil {
		respondFromError(ctx, w, err, "tweet not found")
		return
	}
	if tweet.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the author may delete this tweet")
		return
	}

	if err := h.Tweets.Delete(ctx, tweet.ID); err != nil {
		respondFromError(ctx, w, err, "unable to delete tweet")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "tweet deleted")
}

func (h TweetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

type tweetRequest struct {
	Content string `json:"content" validate:"required,max=280"`
}
