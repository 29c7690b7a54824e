package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/query"
)

type fakeStatsProvider struct {
	stats   models.ChannelStats
	err     error
	ownerID string
}

func (p *fakeStatsProvider) ChannelStats(_ context.Context, ownerID string) (models.ChannelStats, error) {
	p.ownerID = ownerID
	if p.err != nil {
		return models.ChannelStats{}, p.err
	}
	return p.stats, nil
}

type fakeChannelVideoLister struct {
	docs    []query.Document
	ownerID string
}

func (l *fakeChannelVideoLister) ChannelVideos(_ context.Context, ownerID string) ([]query.Document, error) {
	l.ownerID = ownerID
	return l.docs, nil
}

func TestDashboardHandlerChannelStats(t *testing.T) {
	stats := &fakeStatsProvider{stats: models.ChannelStats{
		TotalViews:       42,
		TotalVideos:      3,
		TotalLikes:       7,
		TotalSubscribers: 5,
	}}
	handler := DashboardHandler{Stats: stats, Videos: &fakeChannelVideoLister{}}

	req := authedRequest(http.MethodGet, "/api/v1/dashboard/stats", nil)
	rec := httptest.NewRecorder()

	asUser("owner-1", handler.ChannelStats).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	if stats.ownerID != "owner-1" {
		t.Fatalf("expected stats for owner-1, got %q", stats.ownerID)
	}
	env := decodeEnvelope(t, rec)
	payload := string(env.Data)
	if !strings.Contains(payload, `"totalViews":42`) || !strings.Contains(payload, `"totalSubscribers":5`) {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestDashboardHandlerChannelStatsError(t *testing.T) {
	handler := DashboardHandler{
		Stats:  &fakeStatsProvider{err: errors.New("db down")},
		Videos: &fakeChannelVideoLister{},
	}

	req := authedRequest(http.MethodGet, "/api/v1/dashboard/stats", nil)
	rec := httptest.NewRecorder()

	asUser("owner-1", handler.ChannelStats).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestDashboardHandlerChannelVideos(t *testing.T) {
	lister := &fakeChannelVideoLister{docs: []query.Document{
		{"id": "video-1", "isPublished": true},
		{"id": "video-2", "isPublished": false},
	}}
	handler := DashboardHandler{Stats: &fakeStatsProvider{}, Videos: lister}

	req := authedRequest(http.MethodGet, "/api/v1/dashboard/videos", nil)
	rec := httptest.NewRecorder()

	asUser("owner-1", handler.ChannelVideos).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	if lister.ownerID != "owner-1" {
		t.Fatalf("expected videos for owner-1, got %q", lister.ownerID)
	}
	env := decodeEnvelope(t, rec)
	payload := string(env.Data)
	if !strings.Contains(payload, "video-1") || !strings.Contains(payload, "video-2") {
		t.Fatalf("expected both channel videos in payload: %s", payload)
	}
}
