package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// VideoHandler implements the video CRUD and listing endpoints.
type VideoHandler struct {
	Videos  VideoStore
	Users   UserStore
	Storage FileStorage

	MaxUploadBytes int64
	NowFunc        func() time.Time
}

// List handles GET /api/v1/videos. Supports query, owner filter, sorting,
// and pagination; only published videos appear.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	opts := repositories.ListVideosOptions{
		Search:  strings.TrimSpace(q.Get("query")),
		OwnerID: strings.TrimSpace(q.Get("userId")),
		SortBy:  strings.TrimSpace(q.Get("sortBy")),
		SortAsc: strings.EqualFold(q.Get("sortType"), "asc"),
		Page:    intQuery(q.Get("page"), 1),
		Limit:   intQuery(q.Get("limit"), 10),
	}

	page, err := h.Videos.List(ctx, opts)
	if err != nil {
		respondFromError(ctx, w, err, "invalid video listing parameters")
		return
	}

	respondData(ctx, w, http.StatusOK, page, "videos")
}

// Create handles POST /api/v1/videos. The body is multipart form data with
// the video file, a thumbnail, title, description, and an optional duration.
// New videos start unpublished.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload())
	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	duration := 0.0
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			respondError(ctx, w, http.StatusBadRequest, "duration must be a non-negative number")
			return
		}
		duration = parsed
	}

	videoFile, videoHeader, err := r.FormFile("videoFile")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}
	defer videoFile.Close()

	thumbFile, thumbHeader, err := r.FormFile("thumbnail")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "thumbnail is required")
		return
	}
	defer thumbFile.Close()

	videoID := uuid.NewString()

	videoURL, err := h.saveUpload(r, videoID, "videos", videoHeader, videoFile)
	if err != nil {
		logger.Error("upload video file", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video file")
		return
	}

	thumbURL, err := h.saveUpload(r, videoID, "thumbnails", thumbHeader, thumbFile)
	if err != nil {
		logger.Error("upload thumbnail", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
		return
	}

	now := h.now()
	video := models.Video{
		ID:           videoID,
		OwnerID:      userID,
		Title:        title,
		Description:  description,
		VideoFileURL: videoURL,
		ThumbnailURL: thumbURL,
		Duration:     duration,
		IsPublished:  false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("create video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create video")
		return
	}

	respondData(ctx, w, http.StatusOK, video, "video uploaded")
}

// Get handles GET /api/v1/videos/{videoId}. The composed document carries
// the owner. Authenticated views bump the counter and append watch history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	videoID := r.PathValue("videoId")

	doc, err := h.Videos.DocByID(ctx, videoID)
	if err != nil {
		respondFromError(ctx, w, err, "video not found")
		return
	}

	if viewerID := middleware.UserIDFromContext(ctx); viewerID != "" {
		if err := h.Videos.IncrementViews(ctx, videoID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("increment views", "error", err, "videoId", videoID)
		}
		if err := h.Users.AppendWatchHistory(ctx, viewerID, videoID); err != nil {
			logger.Warn("append watch history", "error", err, "videoId", videoID)
		}
	}

	respondData(ctx, w, http.StatusOK, doc, "video")
}

// Update handles PATCH /api/v1/videos/{videoId}. Accepts multipart form data
// with any of title, description, and a replacement thumbnail. Owner only.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		respondFromError(ctx, w, err, "video not found")
		return
	}
	if video.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may modify this video")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload())
	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		video.Title = title
	}
	if description := strings.TrimSpace(r.FormValue("description")); description != "" {
		video.Description = description
	}

	oldThumb := ""
	if thumbFile, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumbFile.Close()
		thumbURL, err := h.saveUpload(r, video.ID, "thumbnails", thumbHeader, thumbFile)
		if err != nil {
			logger.Error("upload thumbnail", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
			return
		}
		oldThumb = video.ThumbnailURL
		video.ThumbnailURL = thumbURL
	}

	video.UpdatedAt = h.now()

	if err := h.Videos.Update(ctx, video); err != nil {
		respondFromError(ctx, w, err, "unable to update video")
		return
	}

	if oldThumb != "" {
		if err := h.Storage.Delete(ctx, oldThumb); err != nil {
			logger.Warn("delete replaced thumbnail", "error", err, "location", oldThumb)
		}
	}

	respondData(ctx, w, http.StatusOK, video, "video updated")
}

// Delete handles DELETE /api/v1/videos/{videoId}. Owner only. Stored media
// is removed best-effort after the record; comments and likes referencing
// the video are intentionally left behind.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		respondFromError(ctx, w, err, "video not found")
		return
	}
	if video.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may delete this video")
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		respondFromError(ctx, w, err, "unable to delete video")
		return
	}

	for _, location := range []string{video.VideoFileURL, video.ThumbnailURL} {
		if location == "" {
			continue
		}
		if err := h.Storage.Delete(ctx, location); err != nil {
			logger.Warn("delete video asset", "error", err, "location", location)
		}
	}

	respondData(ctx, w, http.StatusOK, nil, "video deleted")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
// Owner only.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		respondFromError(ctx, w, err, "video not found")
		return
	}
	if video.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may publish this video")
		return
	}

	video.IsPublished = !video.IsPublished
	video.UpdatedAt = h.now()

	if err := h.Videos.Update(ctx, video); err != nil {
		respondFromError(ctx, w, err, "unable to toggle publish state")
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]bool{"isPublished": video.IsPublished}, "publish state toggled")
}

func (h VideoHandler) saveUpload(r *http.Request, videoID, prefix string, header *multipart.FileHeader, file multipart.File) (string, error) {
	name := fmt.Sprintf("%s/%s/%s%s", prefix, videoID, uuid.NewString(), path.Ext(header.Filename))
	return h.Storage.Save(r.Context(), name, header.Header.Get("Content-Type"), file)
}

func (h VideoHandler) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 256 << 20
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
