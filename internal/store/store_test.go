package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fiber-cms-pg/internal/config"
	"fiber-cms-pg/internal/content"
	"fiber-cms-pg/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.Config{}
	cfg.SQLite.Path = "file::memory:?_pragma=foreign_keys(1)"
	d, closeFn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(closeFn)
	if err := db.Migrate(context.Background(), d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(d)
}

func postSchema() content.Schema {
	return content.Schema{Fields: []content.Field{
		{ID: "f1", Name: "Title", Key: "title", Type: content.TypeString, Required: true},
		{ID: "f2", Name: "Views", Key: "views", Type: content.TypeNumber},
	}}
}

func TestCollection_SlugUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &Collection{Name: "Blog Post", Slug: "blog-post", Schema: postSchema()}
	if err := s.CreateCollection(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &Collection{Name: "Blog, Post!", Slug: "blog-post", Schema: postSchema()}
	err := s.CreateCollection(ctx, dup)
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(err) {
		t.Fatalf("not recognized as unique violation: %v", err)
	}

	// The first row must be unaffected.
	got, err := s.CollectionBySlug(ctx, "blog-post")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if got.ID != first.ID || got.Name != "Blog Post" {
		t.Fatalf("first collection changed: %+v", got)
	}
}

func TestCollection_SchemaRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	desc := "all the posts"
	c := &Collection{Name: "Post", Slug: "post", Description: &desc, Schema: postSchema()}
	if err := s.CreateCollection(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.CollectionByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Schema.Fields) != 2 || got.Schema.Fields[0].Key != "title" || !got.Schema.Fields[0].Required {
		t.Fatalf("schema did not round-trip: %+v", got.Schema)
	}
	if got.Description == nil || *got.Description != desc {
		t.Fatalf("description = %v", got.Description)
	}

	newSchema := content.Schema{Fields: []content.Field{
		{ID: "f1", Name: "Title", Key: "title", Type: content.TypeString},
	}}
	upd, err := s.UpdateCollection(ctx, c.ID, CollectionUpdate{Schema: &newSchema})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(upd.Schema.Fields) != 1 {
		t.Fatalf("updated schema fields = %d", len(upd.Schema.Fields))
	}
}

func TestCollection_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CollectionByID(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.DeleteCollection(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("delete err = %v", err)
	}
}

func seedCollection(t *testing.T, s *Store) *Collection {
	t.Helper()
	c := &Collection{Name: "Post", Slug: "post", Schema: postSchema()}
	if err := s.CreateCollection(context.Background(), c); err != nil {
		t.Fatalf("seed collection: %v", err)
	}
	return c
}

func TestEntries_PaginationTotal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCollection(t, s)

	for i := 0; i < 120; i++ {
		e := &Entry{CollectionID: c.ID, Data: map[string]any{"title": fmt.Sprintf("post %d", i)}}
		if err := s.CreateEntry(ctx, e); err != nil {
			t.Fatalf("create entry %d: %v", i, err)
		}
	}

	page, total, err := s.ListEntries(ctx, EntryListOpts{CollectionID: c.ID, Limit: 50, Offset: 100})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 120 {
		t.Fatalf("total = %d, want 120", total)
	}
	if len(page) != 20 {
		t.Fatalf("page size = %d, want 20", len(page))
	}
}

func TestEntries_FilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCollection(t, s)

	draft := &Entry{CollectionID: c.ID, Data: map[string]any{"title": "d"}}
	if err := s.CreateEntry(ctx, draft); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	time.Sleep(5 * time.Millisecond) // keep updated_at ordering deterministic
	published := &Entry{CollectionID: c.ID, Data: map[string]any{"title": "p"}, Status: StatusPublished}
	if err := s.CreateEntry(ctx, published); err != nil {
		t.Fatalf("create published: %v", err)
	}

	got, total, err := s.ListEntries(ctx, EntryListOpts{CollectionID: c.ID, Status: StatusPublished})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != published.ID {
		t.Fatalf("filtered list = %d rows, total %d", len(got), total)
	}

	asc, _, err := s.ListEntries(ctx, EntryListOpts{CollectionID: c.ID, OrderBy: "updatedAt", Order: "asc"})
	if err != nil {
		t.Fatalf("list asc: %v", err)
	}
	if len(asc) != 2 || asc[0].ID != draft.ID {
		t.Fatalf("asc order wrong: %+v", asc)
	}
}

func TestEntries_UpdatePublishedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCollection(t, s)

	e := &Entry{CollectionID: c.ID, Data: map[string]any{"title": "t"}}
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}

	ts := time.Now().UTC().Truncate(time.Millisecond)
	status := StatusPublished
	upd, err := s.UpdateEntry(ctx, e.ID, EntryUpdate{Status: &status, PublishedAt: &ts, SetPublishedAt: true})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if upd.PublishedAt == nil || !upd.PublishedAt.Equal(ts) {
		t.Fatalf("publishedAt = %v", upd.PublishedAt)
	}

	// A plain data update must not touch publishedAt.
	upd2, err := s.UpdateEntry(ctx, e.ID, EntryUpdate{Data: map[string]any{"title": "t2"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd2.PublishedAt == nil || !upd2.PublishedAt.Equal(ts) {
		t.Fatalf("publishedAt changed: %v", upd2.PublishedAt)
	}
	if upd2.Data["title"] != "t2" {
		t.Fatalf("data = %v", upd2.Data)
	}
}

func TestEntries_BulkDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCollection(t, s)

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		e := &Entry{CollectionID: c.ID, Data: map[string]any{"title": "x"}}
		if err := s.CreateEntry(ctx, e); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, e.ID)
	}

	n, err := s.BulkDeleteEntries(ctx, append(ids[:2], "missing-id"))
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted = %d, want 2", n)
	}
	if n, err := s.BulkDeleteEntries(ctx, nil); err != nil || n != 0 {
		t.Fatalf("empty bulk delete: n=%d err=%v", n, err)
	}
}

func TestSessions_TokenLookupAndExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &User{Name: "Ann", Email: "ann@example.com", Role: RoleAdmin}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	live := &Session{UserID: u.ID, Token: "tok-live", ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.CreateSession(ctx, live); err != nil {
		t.Fatalf("create session: %v", err)
	}
	sess, gotUser, err := s.SessionByToken(ctx, "tok-live")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if sess.UserID != u.ID || gotUser.Email != "ann@example.com" {
		t.Fatalf("session=%+v user=%+v", sess, gotUser)
	}

	expired := &Session{UserID: u.ID, Token: "tok-old", ExpiresAt: time.Now().Add(-time.Hour)}
	if err := s.CreateSession(ctx, expired); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if _, _, err := s.SessionByToken(ctx, "tok-old"); err != ErrNotFound {
		t.Fatalf("expired session err = %v", err)
	}
}

func TestUsers_SuperadminSingleton(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.HasSuperadmin(ctx)
	if err != nil || ok {
		t.Fatalf("empty db HasSuperadmin = %v, %v", ok, err)
	}

	root := &User{Name: "Root", Email: "root@example.com", Role: RoleSuperadmin}
	if err := s.CreateUser(ctx, root); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := &User{Name: "Other", Email: "other@example.com", Role: RoleSuperadmin}
	if err := s.CreateUser(ctx, second); !IsUniqueViolation(err) {
		t.Fatalf("second superadmin err = %v", err)
	}

	ok, err = s.HasSuperadmin(ctx)
	if err != nil || !ok {
		t.Fatalf("HasSuperadmin = %v, %v", ok, err)
	}
}

func TestMedia_ListAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		m := &Media{
			Filename:         fmt.Sprintf("f%d.png", i),
			OriginalFilename: fmt.Sprintf("f%d.png", i),
			MimeType:         "image/png",
			Size:             10,
			URL:              "https://cdn.example.com/f.png",
			BucketPath:       fmt.Sprintf("cms/f%d.png", i),
		}
		if err := s.CreateMedia(ctx, m); err != nil {
			t.Fatalf("create media: %v", err)
		}
	}

	page, total, err := s.ListMedia(ctx, MediaListOpts{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Fatalf("total=%d page=%d", total, len(page))
	}

	deleted, err := s.DeleteMedia(ctx, page[0].ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.BucketPath == "" {
		t.Fatal("deleted row missing bucket path")
	}
	if _, err := s.MediaByID(ctx, page[0].ID); err != ErrNotFound {
		t.Fatalf("after delete err = %v", err)
	}
}
