package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"news-reread/internal/model"
)

var sortTags = cmpopts.SortSlices(func(a, b model.Tag) bool { return a.ID < b.ID })

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleArticle(id int64, tags ...model.Tag) model.Article {
	next, _ := model.ParseDate("2024-05-10")
	read := ts("2024-05-03T08:00:00Z")
	return model.Article{
		ID:               id,
		URL:              "https://example.com/" + string(rune('a'+id)),
		Title:            model.Ptr("Title"),
		Status:           model.StatusUnread,
		IsFavorite:       id%2 == 0,
		Priority:         model.PriorityHigh,
		ReadCount:        2,
		UserMemo:         model.Ptr("memo"),
		SavedAt:          ts("2024-05-01T09:00:00Z").Add(time.Duration(id) * time.Hour),
		LastReadAt:       &read,
		RepetitionLevel:  1,
		NextReminderDate: &next,
		Tags:             tags,
		Questions: []model.Question{
			{ID: id * 10, ArticleID: id, Text: "why?", CreatedAt: ts("2024-05-01T10:00:00Z")},
		},
		Actions: []model.Action{
			{ID: id * 100, ArticleID: id, Text: "try", IsDone: true, CreatedAt: ts("2024-05-01T11:00:00Z")},
		},
	}
}

func TestUpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tests := []struct {
		name string
		tags []model.Tag
	}{
		{name: "ascending tags", tags: []model.Tag{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}},
		{name: "descending tags", tags: []model.Tag{{ID: 2, Name: "b"}, {ID: 1, Name: "a"}}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := sampleArticle(int64(i+1), tt.tags...)
			if err := s.UpsertArticles(ctx, []model.Article{want}); err != nil {
				t.Fatalf("upsert: %v", err)
			}

			got, err := s.GetArticle(ctx, want.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if diff := cmp.Diff(want, got, sortTags); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	shared := model.Tag{ID: 1, Name: "go"}
	batch := []model.Article{
		sampleArticle(1, shared, model.Tag{ID: 2, Name: "db"}),
		sampleArticle(2, shared),
	}

	if err := s.UpsertArticles(ctx, batch); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	first, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}

	if err := s.UpsertArticles(ctx, batch); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	second, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}

	want := Counts{Articles: 2, Tags: 2, ArticleTags: 3, Questions: 2, Actions: 2}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("counts after first upsert (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second upsert changed counts (-first +second):\n%s", diff)
	}
}

func TestUpsertReplacesFields(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	a := sampleArticle(1)
	if err := s.UpsertArticles(ctx, []model.Article{a}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	a.Title = nil
	a.IsFavorite = true
	a.UserMemo = model.Ptr("changed")
	a.Actions[0].IsDone = false
	if err := s.UpsertArticles(ctx, []model.Article{a}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetArticle(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(a, got, sortTags); diff != "" {
		t.Errorf("replaced article mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertDoesNotPruneLinks(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	a := sampleArticle(1, model.Tag{ID: 1, Name: "a"}, model.Tag{ID: 2, Name: "b"})
	if err := s.UpsertArticles(ctx, []model.Article{a}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	a.Tags = []model.Tag{{ID: 1, Name: "a"}}
	if err := s.UpsertArticles(ctx, []model.Article{a}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetArticle(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Tags) != 2 {
		t.Errorf("expected stale link to survive, got tags %v", got.Tags)
	}
}

func TestArticlesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	batch := []model.Article{sampleArticle(1), sampleArticle(3), sampleArticle(2)}
	if err := s.UpsertArticles(ctx, batch); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var ids []int64
	for a, err := range s.Articles(ctx) {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		if len(a.Questions) != 1 || a.Questions[0].ArticleID != a.ID {
			t.Errorf("article %d: questions not attached: %v", a.ID, a.Questions)
		}
		ids = append(ids, a.ID)
	}

	if diff := cmp.Diff([]int64{3, 2, 1}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestArticlesStopsEarly(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.UpsertArticles(ctx, []model.Article{sampleArticle(1), sampleArticle(2)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	n := 0
	for range s.Articles(ctx) {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected one article before break, got %d", n)
	}

	// The connection must be released after an early break.
	if _, err := s.ListTags(ctx); err != nil {
		t.Fatalf("list tags after break: %v", err)
	}
}

func TestGetArticleNotFound(t *testing.T) {
	s := newTestDB(t)
	if _, err := s.GetArticle(context.Background(), 42); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteArticleKeepsTags(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	shared := model.Tag{ID: 1, Name: "go"}
	if err := s.UpsertArticles(ctx, []model.Article{sampleArticle(1, shared), sampleArticle(2, shared)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.DeleteArticle(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	want := Counts{Articles: 1, Tags: 1, ArticleTags: 1, Questions: 1, Actions: 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("counts after delete (-want +got):\n%s", diff)
	}

	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if diff := cmp.Diff([]model.Tag{shared}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyCache(t *testing.T) {
	s := newTestDB(t)
	got, err := s.ListArticles(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty cache, got %d articles", len(got))
	}
}
