package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// CommentHandler implements the per-video comment endpoints.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	NowFunc  func() time.Time
}

// List handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	videoID := r.PathValue("videoId")

	exists, err := h.Videos.Exists(ctx, videoID)
	if err != nil {
		logging.FromContext(ctx).Error("check video exists", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load comments")
		return
	}
	if !exists {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	page, err := h.Comments.ListForVideo(ctx, videoID,
		intQuery(q.Get("page"), 1), intQuery(q.Get("limit"), 10))
	if err != nil {
		respondFromError(ctx, w, err, "unable to load comments")
		return
	}

	respondData(ctx, w, http.StatusOK, page, "comments")
}

// Create handles POST /api/v1/comments/{videoId}. The target video must
// exist at write time; the reference is not enforced afterwards.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)
	videoID := r.PathValue("videoId")

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFromError(ctx, w, err, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	exists, err := h.Videos.Exists(ctx, videoID)
	if err != nil {
		logger.Error("check video exists", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to add comment")
		return
	}
	if !exists {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		logger.Error("create comment", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to add comment")
		return
	}

	respondData(ctx, w, http.StatusCreated, comment, "comment added")
}

// Update handles PATCH /api/v1/comments/c/{commentId}. Author only.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFromError(ctx, w, err, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	comment, err := h.Comments.FindByID(ctx, r.PathValue("commentId"))
	if err != nil {
		respondFromError(ctx, w, err, "comment not found")
		return
	}
	if comment.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the author may edit this comment")
		return
	}

	if err := h.Comments.UpdateContent(ctx, comment.ID, content); err != nil {
		respondFromError(ctx, w, err, "unable to update comment")
		return
	}

	comment.Content = content
	comment.UpdatedAt = h.now()
	respondData(ctx, w, http.StatusOK, comment, "comment updated")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}. The author may
// always delete; the owner of the target video may moderate. When the video
// no longer resolves only the author remains authorized.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	comment, err := h.Comments.FindByID(ctx, r.PathValue("commentId"))
	if err != nil {
		respondFromError(ctx, w, err, "comment not found")
		return
	}

	allowed := comment.OwnerID == userID
	if !allowed {
		video, err := h.Videos.FindByID(ctx, comment.VideoID)
		if err == nil {
			allowed = video.OwnerID == userID
		} else if !errors.Is(err, repositories.ErrNotFound) {
			respondFromError(ctx, w, err, "unable to delete comment")
			return
		}
	}
	if !allowed {
		respondError(ctx, w, http.StatusForbidden, "not allowed to delete this comment")
		return
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		respondFromError(ctx, w, err, "unable to delete comment")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "comment deleted")
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}
