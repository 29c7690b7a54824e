package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func testSchema() *Schema {
	s := NewSchema()

	s.Collection("comments", "comments").
		Field("id", "id").
		Field("videoId", "video_id").
		Field("ownerId", "owner_id").
		Field("content", "content").
		Field("createdAt", "created_at").
		Field("updatedAt", "updated_at")

	s.Collection("users", "users").
		Field("id", "id").
		Field("username", "username").
		Field("avatarUrl", "avatar_url")

	s.Collection("subscriptions", "subscriptions").
		Field("id", "id").
		Field("subscriberId", "subscriber_id").
		Field("channelId", "channel_id").
		Field("createdAt", "created_at")

	s.Collection("videos", "videos").
		Field("id", "id").
		Field("ownerId", "owner_id").
		Field("title", "title").
		Field("createdAt", "created_at")

	s.Collection("watchHistory", "watch_history").
		Field("userId", "user_id").
		Field("videoId", "video_id").
		Field("seq", "seq")

	return s
}

func TestCompileFlattenedLookupWithPagination(t *testing.T) {
	s := testSchema()

	p := New(s, "comments").
		MatchEq("videoId", "vid-1").
		LookupFields("users", "ownerId", "id", "username", "avatarUrl").
		Reshape("id", "content", "createdAt", "updatedAt", "username", "avatarUrl").
		Paginate(2, 10)

	c, err := p.compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	wantSQL := "SELECT b.id, b.content, b.created_at, b.updated_at, j1.username, j1.avatar_url" +
		" FROM comments b LEFT JOIN users j1 ON j1.id = b.owner_id" +
		" WHERE b.video_id = $1 ORDER BY b.created_at DESC LIMIT 10 OFFSET 10"
	if c.sql != wantSQL {
		t.Fatalf("unexpected sql:\n got: %s\nwant: %s", c.sql, wantSQL)
	}

	wantCount := "SELECT count(*) FROM comments b WHERE b.video_id = $1"
	if c.countSQL != wantCount {
		t.Fatalf("unexpected count sql:\n got: %s\nwant: %s", c.countSQL, wantCount)
	}

	if !reflect.DeepEqual(c.args, []any{"vid-1"}) || !reflect.DeepEqual(c.countArgs, []any{"vid-1"}) {
		t.Fatalf("unexpected args %v / count args %v", c.args, c.countArgs)
	}

	wantOutputs := []string{"id", "content", "createdAt", "updatedAt", "username", "avatarUrl"}
	if !reflect.DeepEqual(c.outputs, wantOutputs) {
		t.Fatalf("unexpected outputs %v", c.outputs)
	}
}

func TestCompileExistsArgumentsPrecedeMatchArguments(t *testing.T) {
	s := testSchema()

	p := New(s, "users").
		MatchEq("username", "alice").
		LookupCount("subscribersCount", "subscriptions", "id", "channelId").
		LookupExists("isSubscribed", "subscriptions", "id", "channelId",
			Eq{Field: "subscriberId", Value: "viewer-1"})

	c, err := p.compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	// The exists subquery binds its extra constraint first, so the match
	// placeholder shifts to $2.
	if !reflect.DeepEqual(c.args, []any{"viewer-1", "alice"}) {
		t.Fatalf("unexpected args %v", c.args)
	}

	wantCount := "(SELECT count(*) FROM subscriptions t WHERE t.channel_id = b.id)"
	wantExists := "EXISTS (SELECT 1 FROM subscriptions t WHERE t.channel_id = b.id AND t.subscriber_id = $1)"
	for _, fragment := range []string{wantCount, wantExists, "WHERE b.username = $2"} {
		if !strings.Contains(c.sql, fragment) {
			t.Fatalf("sql missing fragment %q:\n%s", fragment, c.sql)
		}
	}
}

func TestCompileNestedDocLookup(t *testing.T) {
	s := testSchema()

	p := New(s, "watchHistory").
		MatchEq("userId", "u1").
		LookupDoc("video", "videos", "videoId", "id", "id", "title").
		LookupDoc("video.owner", "users", "video.ownerId", "id", "username").
		Sort("seq", Ascending).
		ReplaceRoot("video")

	c, err := p.compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if !strings.Contains(c.sql, "LEFT JOIN videos j1 ON j1.id = b.video_id") {
		t.Fatalf("missing video join:\n%s", c.sql)
	}
	if !strings.Contains(c.sql, "LEFT JOIN users j2 ON j2.id = j1.owner_id") {
		t.Fatalf("missing nested owner join:\n%s", c.sql)
	}
	if !strings.Contains(c.sql, "'owner', CASE WHEN j2.id IS NULL THEN NULL ELSE jsonb_build_object('username', j2.username) END") {
		t.Fatalf("missing nested owner document:\n%s", c.sql)
	}
	if !strings.Contains(c.sql, "ORDER BY b.seq ASC") {
		t.Fatalf("missing ascending sort:\n%s", c.sql)
	}

	// The nested lookup nests under its parent and never becomes an output.
	for _, key := range c.outputs {
		if key == "video.owner" {
			t.Fatalf("nested lookup leaked into outputs: %v", c.outputs)
		}
	}
}

func TestCompileTextSearchEscapesPattern(t *testing.T) {
	s := testSchema()

	p := New(s, "videos").MatchText("50%_off", "title")

	c, err := p.compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if !strings.Contains(c.sql, "b.title ILIKE $1") {
		t.Fatalf("missing ilike predicate:\n%s", c.sql)
	}
	if want := `%50\%\_off%`; c.args[0] != want {
		t.Fatalf("expected escaped pattern %q got %q", want, c.args[0])
	}
}

func TestCompileRejectsUnknownNames(t *testing.T) {
	s := testSchema()

	cases := map[string]*Pipeline{
		"match field":       New(s, "videos").MatchEq("nope", 1),
		"sort field":        New(s, "videos").Sort("nope", Descending),
		"reshape field":     New(s, "videos").Reshape("nope"),
		"lookup field":      New(s, "videos").LookupDoc("owner", "users", "ownerId", "missing"),
		"replace root":      New(s, "videos").ReplaceRoot("owner"),
		"nested parentless": New(s, "videos").LookupDoc("a.b", "users", "ownerId", "id"),
	}

	for name, p := range cases {
		if _, err := p.compile(); !errors.Is(err, ErrUnknownField) {
			t.Errorf("%s: expected ErrUnknownField, got %v", name, err)
		}
	}

	if _, err := New(s, "ghosts").compile(); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestPaginateClampsInputs(t *testing.T) {
	s := testSchema()

	p := New(s, "videos").Paginate(-3, 1000)
	if p.page != 1 || p.limit != maxPageSize {
		t.Fatalf("expected page 1 limit %d, got page %d limit %d", maxPageSize, p.page, p.limit)
	}

	p = New(s, "videos").Paginate(4, 0)
	if p.page != 4 || p.limit != defaultPageSize {
		t.Fatalf("expected page 4 limit %d, got page %d limit %d", defaultPageSize, p.page, p.limit)
	}
}
