package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/middleware"
)

// DashboardHandler implements the channel owner's dashboard endpoints. Both
// operations act on the authenticated user's own channel.
type DashboardHandler struct {
	Stats  StatsProvider
	Videos ChannelVideoLister
}

// ChannelStats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) ChannelStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.Stats.ChannelStats(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFromError(ctx, w, err, "unable to load channel stats")
		return
	}

	respondData(ctx, w, http.StatusOK, stats, "channel stats")
}

// ChannelVideos handles GET /api/v1/dashboard/videos. Unpublished videos are
// included; this is the owner's view of their channel.
func (h DashboardHandler) ChannelVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.Videos.ChannelVideos(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respondFromError(ctx, w, err, "unable to load channel videos")
		return
	}

	respondData(ctx, w, http.StatusOK, videos, "channel videos")
}
