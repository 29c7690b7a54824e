package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/query"
	"github.com/vidtube/backend/internal/repositories"
)

// staticVerifier stands in for the token manager so handler tests can run
// behind the real auth middleware without minting JWTs.
type staticVerifier struct {
	userID string
}

func (v staticVerifier) VerifyAccess(string) (auth.AccessClaims, error) {
	if v.userID == "" {
		return auth.AccessClaims{}, auth.ErrInvalidToken
	}
	claims := auth.AccessClaims{Username: v.userID}
	claims.Subject = v.userID
	return claims, nil
}

// asUser wraps a handler in the auth middleware with a fixed identity. The
// request still needs a bearer header for the middleware to engage.
func asUser(userID string, handler http.HandlerFunc) http.Handler {
	unauthorized := func(w http.ResponseWriter, r *http.Request) {
		respondError(r.Context(), w, http.StatusUnauthorized, "authentication required")
	}
	return middleware.RequireAuth(staticVerifier{userID: userID}, unauthorized)(handler)
}

func authedRequest(method, target string, body *strings.Reader) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

type fakeUserStore struct {
	users   map[string]models.User
	history [][2]string
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == strings.ToLower(identifier) || strings.EqualFold(user.Email, identifier) {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) UpdateAccount(_ context.Context, user models.User) error {
	stored, ok := s.users[user.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	for id, other := range s.users {
		if id != user.ID && strings.EqualFold(other.Email, user.Email) {
			return repositories.ErrConflict
		}
	}
	stored.FullName = user.FullName
	stored.Email = user.Email
	stored.UpdatedAt = user.UpdatedAt
	s.users[user.ID] = stored
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return s.set(id, func(u *models.User) { u.PasswordHash = passwordHash })
}

func (s *fakeUserStore) UpdateAvatar(_ context.Context, id, url string) error {
	return s.set(id, func(u *models.User) { u.AvatarURL = url })
}

func (s *fakeUserStore) UpdateCoverImage(_ context.Context, id, url string) error {
	return s.set(id, func(u *models.User) { u.CoverImageURL = url })
}

func (s *fakeUserStore) UpdateRefreshTokenHash(_ context.Context, id, hash string) error {
	return s.set(id, func(u *models.User) { u.RefreshTokenHash = hash })
}

func (s *fakeUserStore) set(id string, apply func(*models.User)) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	apply(&user)
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) ChannelProfile(_ context.Context, username, viewerID string) (query.Document, error) {
	for _, user := range s.users {
		if user.Username == username {
			return query.Document{"id": user.ID, "username": user.Username, "viewerId": viewerID}, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *fakeUserStore) WatchHistory(context.Context, string) ([]query.Document, error) {
	return []query.Document{}, nil
}

func (s *fakeUserStore) AppendWatchHistory(_ context.Context, userID, videoID string) error {
	s.history = append(s.history, [2]string{userID, videoID})
	return nil
}

func (s *fakeUserStore) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s.users[id]
	return ok, nil
}

type fakeVideoStore struct {
	videos map[string]models.Video

	findErr  error
	listErr  error
	lastOpts repositories.ListVideosOptions
	views    []string
}

func newFakeVideoStore(videos ...models.Video) *fakeVideoStore {
	s := &fakeVideoStore{videos: make(map[string]models.Video)}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	if s.findErr != nil {
		return models.Video{}, s.findErr
	}
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *fakeVideoStore) Update(_ context.Context, video models.Video) error {
	if _, ok := s.videos[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) Delete(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *fakeVideoStore) IncrementViews(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	s.views = append(s.views, id)
	return nil
}

func (s *fakeVideoStore) List(_ context.Context, opts repositories.ListVideosOptions) (*query.Page, error) {
	s.lastOpts = opts
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &query.Page{Items: []query.Document{}, Page: opts.Page, Limit: opts.Limit}, nil
}

func (s *fakeVideoStore) DocByID(_ context.Context, id string) (query.Document, error) {
	video, ok := s.videos[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return query.Document{"id": video.ID, "title": video.Title}, nil
}

func (s *fakeVideoStore) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s.videos[id]
	return ok, nil
}

type fakeCommentStore struct {
	comments map[string]models.Comment
}

func newFakeCommentStore(comments ...models.Comment) *fakeCommentStore {
	s := &fakeCommentStore{comments: make(map[string]models.Comment)}
	for _, c := range comments {
		s.comments[c.ID] = c
	}
	return s
}

func (s *fakeCommentStore) Create(_ context.Context, comment models.Comment) error {
	s.comments[comment.ID] = comment
	return nil
}

func (s *fakeCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *fakeCommentStore) UpdateContent(_ context.Context, id, content string) error {
	comment, ok := s.comments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	comment.Content = content
	s.comments[id] = comment
	return nil
}

func (s *fakeCommentStore) Delete(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *fakeCommentStore) ListForVideo(_ context.Context, videoID string, page, limit int) (*query.Page, error) {
	items := []query.Document{}
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			items = append(items, query.Document{"id": comment.ID, "content": comment.Content})
		}
	}
	return &query.Page{Items: items, TotalItems: int64(len(items)), TotalPages: 1, Page: page, Limit: limit}, nil
}

type fakeTweetStore struct {
	tweets map[string]models.Tweet
}

func newFakeTweetStore(tweets ...models.Tweet) *fakeTweetStore {
	s := &fakeTweetStore{tweets: make(map[string]models.Tweet)}
	for _, tw := range tweets {
		s.tweets[tw.ID] = tw
	}
	return s
}

func (s *fakeTweetStore) Create(_ context.Context, tweet models.Tweet) error {
	s.tweets[tweet.ID] = tweet
	return nil
}

func (s *fakeTweetStore) FindByID(_ context.Context, id string) (models.Tweet, error) {
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return tweet, nil
}

func (s *fakeTweetStore) UpdateContent(_ context.Context, id, content string) error {
	tweet, ok := s.tweets[id]
	if !ok {
		return repositories.ErrNotFound
	}
	tweet.Content = content
	s.tweets[id] = tweet
	return nil
}

func (s *fakeTweetStore) Delete(_ context.Context, id string) error {
	if _, ok := s.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.tweets, id)
	return nil
}

func (s *fakeTweetStore) ListForUser(context.Context, string) ([]query.Document, error) {
	return []query.Document{}, nil
}

type fakeLikeStore struct {
	liked   map[string]bool
	toggles int
}

func newFakeLikeStore() *fakeLikeStore {
	return &fakeLikeStore{liked: make(map[string]bool)}
}

func (s *fakeLikeStore) flip(kind, userID, targetID string) (bool, error) {
	key := kind + ":" + userID + ":" + targetID
	s.toggles++
	s.liked[key] = !s.liked[key]
	return s.liked[key], nil
}

func (s *fakeLikeStore) ToggleVideo(_ context.Context, userID, videoID string) (bool, error) {
	return s.flip("video", userID, videoID)
}

func (s *fakeLikeStore) ToggleComment(_ context.Context, userID, commentID string) (bool, error) {
	return s.flip("comment", userID, commentID)
}

func (s *fakeLikeStore) ToggleTweet(_ context.Context, userID, tweetID string) (bool, error) {
	return s.flip("tweet", userID, tweetID)
}

func (s *fakeLikeStore) LikedVideos(context.Context, string) ([]query.Document, error) {
	return []query.Document{{"id": "video-1"}}, nil
}

type fakeSubscriptionStore struct {
	pairs   map[[2]string]bool
	toggles int
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{pairs: make(map[[2]string]bool)}
}

func (s *fakeSubscriptionStore) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	key := [2]string{subscriberID, channelID}
	s.toggles++
	s.pairs[key] = !s.pairs[key]
	return s.pairs[key], nil
}

func (s *fakeSubscriptionStore) Subscribers(_ context.Context, channelID string) ([]query.Document, error) {
	out := []query.Document{}
	for key, active := range s.pairs {
		if active && key[1] == channelID {
			out = append(out, query.Document{"id": key[0]})
		}
	}
	return out, nil
}

func (s *fakeSubscriptionStore) SubscribedChannels(_ context.Context, subscriberID string) ([]query.Document, error) {
	out := []query.Document{}
	for key, active := range s.pairs {
		if active && key[0] == subscriberID {
			out = append(out, query.Document{"id": key[1]})
		}
	}
	return out, nil
}

type fakePlaylistStore struct {
	playlists map[string]models.Playlist
	members   map[string][]string
	createErr error
}

func newFakePlaylistStore(playlists ...models.Playlist) *fakePlaylistStore {
	s := &fakePlaylistStore{
		playlists: make(map[string]models.Playlist),
		members:   make(map[string][]string),
	}
	for _, p := range playlists {
		s.playlists[p.ID] = p
	}
	return s
}

func (s *fakePlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *fakePlaylistStore) FindByID(_ context.Context, id string) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return playlist, nil
}

func (s *fakePlaylistStore) Update(_ context.Context, playlist models.Playlist) error {
	if _, ok := s.playlists[playlist.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *fakePlaylistStore) Delete(_ context.Context, id string) error {
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

func (s *fakePlaylistStore) AddVideo(_ context.Context, playlistID, videoID string) error {
	for _, member := range s.members[playlistID] {
		if member == videoID {
			return nil
		}
	}
	s.members[playlistID] = append(s.members[playlistID], videoID)
	return nil
}

func (s *fakePlaylistStore) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	kept := s.members[playlistID][:0]
	for _, member := range s.members[playlistID] {
		if member != videoID {
			kept = append(kept, member)
		}
	}
	s.members[playlistID] = kept
	return nil
}

func (s *fakePlaylistStore) ListForUser(_ context.Context, ownerID string) ([]query.Document, error) {
	out := []query.Document{}
	for _, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			out = append(out, query.Document{"id": playlist.ID, "name": playlist.Name})
		}
	}
	return out, nil
}

func (s *fakePlaylistStore) Videos(_ context.Context, playlistID string) ([]query.Document, error) {
	out := []query.Document{}
	for _, member := range s.members[playlistID] {
		out = append(out, query.Document{"id": member})
	}
	return out, nil
}

type fakeStorage struct {
	saved   []string
	deleted []string
}

func (s *fakeStorage) Save(_ context.Context, name, _ string, _ io.Reader) (string, error) {
	s.saved = append(s.saved, name)
	return "https://cdn.test/" + name, nil
}

func (s *fakeStorage) Delete(_ context.Context, location string) error {
	s.deleted = append(s.deleted, location)
	return nil
}
