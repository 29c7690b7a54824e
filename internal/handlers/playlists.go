package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/query"
	"github.com/vidtube/backend/internal/repositories"
)

// PlaylistHandler implements the playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Videos    VideoStore
	Users     UserStore
	NowFunc   func() time.Time
}

// Create handles POST /api/v1/playlist. A playlist name is unique per owner;
// the store's constraint arbitrates, surfacing 409 on a duplicate.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFromError(ctx, w, err, "invalid request body")
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "a playlist with this name already exists")
			return
		}
		logging.FromContext(ctx).Error("create playlist", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to create playlist")
		return
	}

	respondData(ctx, w, http.StatusCreated, playlist, "playlist created")
}

// ListForUser handles GET /api/v1/playlist/user/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := r.PathValue("userId")

	exists, err := h.Users.Exists(ctx, ownerID)
	if err != nil {
		logging.FromContext(ctx).Error("check user exists", "error", err, "userId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load playlists")
		return
	}
	if !exists {
		respondError(ctx, w, http.StatusNotFound, "user not found")
		return
	}

	playlists, err := h.Playlists.ListForUser(ctx, ownerID)
	if err != nil {
		respondFromError(ctx, w, err, "unable to load playlists")
		return
	}

	respondData(ctx, w, http.StatusOK, playlists, "playlists")
}

// Get handles GET /api/v1/playlist/{playlistId}. The response bundles the
// playlist with its member videos in insertion order.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, err := h.Playlists.FindByID(ctx, r.PathValue("playlistId"))
	if err != nil {
		respondFromError(ctx, w, err, "playlist not found")
		return
	}

	videos, err := h.Playlists.Videos(ctx, playlist.ID)
	if err != nil {
		respondFromError(ctx, w, err, "unable to load playlist videos")
		return
	}

	respondData(ctx, w, http.StatusOK, playlistResponse{Playlist: playlist, Videos: videos}, "playlist")
}

// Update handles PATCH /api/v1/playlist/{playlistId}. Owner only.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFromError(ctx, w, err, "invalid request body")
		return
	}

	playlist, err := h.Playlists.FindByID(ctx, r.PathValue("playlistId"))
	if err != nil {
		respondFromError(ctx, w, err, "playlist not found")
		return
	}
	if playlist.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may modify this playlist")
		return
	}

	playlist.Name = strings.TrimSpace(req.Name)
	playlist.Description = strings.TrimSpace(req.Description)
	playlist.UpdatedAt = h.now()

	if err := h.Playlists.Update(ctx, playlist); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "a playlist with this name already exists")
			return
		}
		respondFromError(ctx, w, err, "unable to update playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, playlist, "playlist updated")
}

// Delete handles DELETE /api/v1/playlist/{playlistId}. Owner only.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	playlist, err := h.Playlists.FindByID(ctx, r.PathValue("playlistId"))
	if err != nil {
		respondFromError(ctx, w, err, "playlist not found")
		return
	}
	if playlist.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may delete this playlist")
		return
	}

	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		respondFromError(ctx, w, err, "unable to delete playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "playlist deleted")
}

// AddVideo handles PATCH /api/v1/playlist/add/{videoId}/{playlistId}.
// Owner only. The playlist and video existence checks run concurrently.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	h.changeMembership(w, r, h.Playlists.AddVideo, "video added to playlist")
}

// RemoveVideo handles PATCH /api/v1/playlist/remove/{videoId}/{playlistId}.
// Owner only. Removing a non-member video succeeds without effect.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	h.changeMembership(w, r, h.Playlists.RemoveVideo, "video removed from playlist")
}

func (h PlaylistHandler) changeMembership(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, playlistID, videoID string) (err error),
	message string,
) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)
	playlistID := r.PathValue("playlistId")
	videoID := r.PathValue("videoId")

	var playlist models.Playlist
	var videoExists bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		playlist, err = h.Playlists.FindByID(gctx, playlistID)
		return err
	})
	g.Go(func() error {
		var err error
		videoExists, err = h.Videos.Exists(gctx, videoID)
		return err
	})
	if err := g.Wait(); err != nil {
		respondFromError(ctx, w, err, "playlist not found")
		return
	}
	if !videoExists {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}
	if playlist.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may modify this playlist")
		return
	}

	if err := apply(ctx, playlistID, videoID); err != nil {
		respondFromError(ctx, w, err, "unable to modify playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, message)
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

type playlistRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type playlistResponse struct {
	Playlist models.Playlist  `json:"playlist"`
	Videos   []query.Document `json:"videos"`
}
