package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/query"
	"github.com/vidtube/backend/internal/repositories"
)

func TestVideoHandlerCreate(t *testing.T) {
	videos := newFakeVideoStore()
	storage := &fakeStorage{}
	handler := VideoHandler{Videos: videos, Users: newFakeUserStore(), Storage: storage, MaxUploadBytes: 1 << 20}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("title", "Pasta night"); err != nil {
		t.Fatalf("write title: %v", err)
	}
	if err := mw.WriteField("duration", "12.5"); err != nil {
		t.Fatalf("write duration: %v", err)
	}
	videoPart, err := mw.CreateFormFile("videoFile", "clip.mp4")
	if err != nil {
		t.Fatalf("create video part: %v", err)
	}
	videoPart.Write([]byte("video-bytes"))
	thumbPart, err := mw.CreateFormFile("thumbnail", "thumb.jpg")
	if err != nil {
		t.Fatalf("create thumbnail part: %v", err)
	}
	thumbPart.Write([]byte("thumb-bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()

	asUser("user-1", handler.Create).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	if len(videos.videos) != 1 {
		t.Fatalf("expected 1 stored video, got %d", len(videos.videos))
	}
	for _, video := range videos.videos {
		if video.OwnerID != "user-1" || video.Title != "Pasta night" {
			t.Fatalf("unexpected stored video: %+v", video)
		}
		if video.IsPublished {
			t.Fatal("expected new uploads to start unpublished")
		}
		if video.Duration != 12.5 {
			t.Fatalf("expected duration 12.5, got %v", video.Duration)
		}
		if video.VideoFileURL == "" || video.ThumbnailURL == "" {
			t.Fatalf("expected both asset URLs set: %+v", video)
		}
	}
	if len(storage.saved) != 2 {
		t.Fatalf("expected 2 uploaded assets, got %v", storage.saved)
	}
}

func TestVideoHandlerListParsesQuery(t *testing.T) {
	videos := newFakeVideoStore()
	handler := VideoHandler{Videos: videos, Users: newFakeUserStore()}

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/videos?query=cats&userId=user-1&sortBy=views&sortType=asc&page=2&limit=5", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	want := repositories.ListVideosOptions{
		Search: "cats", OwnerID: "user-1", SortBy: "views", SortAsc: true, Page: 2, Limit: 5,
	}
	if videos.lastOpts != want {
		t.Fatalf("unexpected options: got %+v want %+v", videos.lastOpts, want)
	}

	// Garbage numeric params fall back to the defaults.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/videos?page=abc&limit=", nil)
	rec = httptest.NewRecorder()
	handler.List(rec, req)

	if videos.lastOpts.Page != 1 || videos.lastOpts.Limit != 10 {
		t.Fatalf("expected defaults, got %+v", videos.lastOpts)
	}
}

func TestVideoHandlerListUnknownSortField(t *testing.T) {
	videos := newFakeVideoStore()
	videos.listErr = query.ErrUnknownField
	handler := VideoHandler{Videos: videos, Users: newFakeUserStore()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos?sortBy=bogus", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestVideoHandlerGetAnonymous(t *testing.T) {
	videos := newFakeVideoStore(models.Video{ID: "video-1", Title: "First"})
	users := newFakeUserStore()
	handler := VideoHandler{Videos: videos, Users: users}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/video-1", nil)
	req.SetPathValue("videoId", "video-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if len(videos.views) != 0 || len(users.history) != 0 {
		t.Fatal("anonymous views must not count or enter history")
	}
}

func TestVideoHandlerGetAuthenticatedCountsView(t *testing.T) {
	videos := newFakeVideoStore(models.Video{ID: "video-1", Title: "First"})
	users := newFakeUserStore(models.User{ID: "viewer-1", Username: "viewer"})
	handler := VideoHandler{Videos: videos, Users: users}

	req := authedRequest(http.MethodGet, "/api/v1/videos/video-1", nil)
	req.SetPathValue("videoId", "video-1")
	rec := httptest.NewRecorder()

	asUser("viewer-1", handler.Get).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if len(videos.views) != 1 || videos.views[0] != "video-1" {
		t.Fatalf("expected one view increment, got %v", videos.views)
	}
	if len(users.history) != 1 || users.history[0] != [2]string{"viewer-1", "video-1"} {
		t.Fatalf("expected watch history entry, got %v", users.history)
	}
}

func TestVideoHandlerGetMissing(t *testing.T) {
	handler := VideoHandler{Videos: newFakeVideoStore(), Users: newFakeUserStore()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/ghost", nil)
	req.SetPathValue("videoId", "ghost")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestVideoHandlerTogglePublish(t *testing.T) {
	videos := newFakeVideoStore(models.Video{ID: "video-1", OwnerID: "owner-1", IsPublished: false})
	handler := VideoHandler{Videos: videos, Users: newFakeUserStore()}

	req := authedRequest(http.MethodPatch, "/api/v1/videos/toggle/publish/video-1", nil)
	req.SetPathValue("videoId", "video-1")
	rec := httptest.NewRecorder()
	asUser("stranger", handler.TogglePublish).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}
	if videos.videos["video-1"].IsPublished {
		t.Fatal("expected publish state untouched after forbidden toggle")
	}

	req = authedRequest(http.MethodPatch, "/api/v1/videos/toggle/publish/video-1", nil)
	req.SetPathValue("videoId", "video-1")
	rec = httptest.NewRecorder()
	asUser("owner-1", handler.TogglePublish).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	env := decodeEnvelope(t, rec)
	if string(env.Data) != `{"isPublished":true}` || env.Message != "publish state toggled" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if !videos.videos["video-1"].IsPublished {
		t.Fatal("expected video to be published")
	}
}

func TestVideoHandlerDeleteOwnerOnly(t *testing.T) {
	video := models.Video{
		ID:           "video-1",
		OwnerID:      "owner-1",
		VideoFileURL: "https://cdn.test/videos/video-1/file.mp4",
		ThumbnailURL: "https://cdn.test/thumbnails/video-1/thumb.jpg",
	}
	videos := newFakeVideoStore(video)
	storage := &fakeStorage{}
	handler := VideoHandler{Videos: videos, Users: newFakeUserStore(), Storage: storage}

	req := authedRequest(http.MethodDelete, "/api/v1/videos/video-1", nil)
	req.SetPathValue("videoId", "video-1")
	rec := httptest.NewRecorder()
	asUser("stranger", handler.Delete).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}

	req = authedRequest(http.MethodDelete, "/api/v1/videos/video-1", nil)
	req.SetPathValue("videoId", "video-1")
	rec = httptest.NewRecorder()
	asUser("owner-1", handler.Delete).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	if _, ok := videos.videos["video-1"]; ok {
		t.Fatal("expected video record removed")
	}
	if len(storage.deleted) != 2 {
		t.Fatalf("expected both assets deleted, got %v", storage.deleted)
	}
}
