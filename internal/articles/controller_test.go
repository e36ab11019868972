package articles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"news-reread/internal/model"
	"news-reread/internal/repository"
)

// stubRepo records requests and answers from a fixed list. listHook, when
// set, runs before ListArticles returns.
type stubRepo struct {
	mu       sync.Mutex
	articles []model.Article
	queries  []model.ArticleQuery
	updates  map[int64][]model.UpdateArticleRequest
	created  []string
	listHook func(q model.ArticleQuery)
	err      error
}

func newStubRepo(articles ...model.Article) *stubRepo {
	return &stubRepo{articles: articles, updates: map[int64][]model.UpdateArticleRequest{}}
}

func (r *stubRepo) ListArticles(_ context.Context, q model.ArticleQuery) ([]model.Article, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	hook, err := r.listHook, r.err
	out := append([]model.Article(nil), r.articles...)
	r.mu.Unlock()

	if hook != nil {
		hook(q)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *stubRepo) GetArticle(_ context.Context, id int64) (model.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.articles {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Article{}, repository.ErrNotFound
}

func (r *stubRepo) CreateArticle(_ context.Context, req model.CreateArticleRequest) (model.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return model.Article{}, r.err
	}
	r.created = append(r.created, req.URL)
	a := model.Article{ID: int64(100 + len(r.created)), URL: req.URL}
	r.articles = append([]model.Article{a}, r.articles...)
	return a, nil
}

func (r *stubRepo) UpdateArticle(_ context.Context, id int64, req model.UpdateArticleRequest) (model.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return model.Article{}, r.err
	}
	r.updates[id] = append(r.updates[id], req)
	for i, a := range r.articles {
		if a.ID != id {
			continue
		}
		if req.IsFavorite != nil {
			a.IsFavorite = *req.IsFavorite
		}
		if req.UserMemo != nil {
			a.UserMemo = req.UserMemo
		}
		r.articles[i] = a
		return a, nil
	}
	return model.Article{}, repository.ErrNotFound
}

func (r *stubRepo) MarkAsRead(_ context.Context, id int64) (model.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.articles {
		if a.ID == id {
			a.ReadCount++
			r.articles[i] = a
			return a, nil
		}
	}
	return model.Article{}, repository.ErrNotFound
}

func (r *stubRepo) DeleteArticle(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for i, a := range r.articles {
		if a.ID == id {
			r.articles = append(r.articles[:i:i], r.articles[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubRepo) ListTags(context.Context) ([]model.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return []model.Tag{{ID: 1, Name: "go"}}, nil
}

func (r *stubRepo) lastQuery() model.ArticleQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queries[len(r.queries)-1]
}

func newController(t *testing.T, repo Repository) *Controller {
	t.Helper()
	c := NewController(repo, zap.NewNop())
	t.Cleanup(c.Close)
	return c
}

func sample() []model.Article {
	return []model.Article{
		{ID: 1, URL: "https://a.example"},
		{ID: 2, URL: "https://b.example"},
		{ID: 3, URL: "https://c.example", IsFavorite: true},
	}
}

func ids(articles []model.Article) []int64 {
	out := make([]int64, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.ID)
	}
	return out
}

func nextMessage(t *testing.T, c *Controller) Message {
	t.Helper()
	select {
	case m := <-c.Messages():
		return m
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func TestSetFilterIssuesExactQuery(t *testing.T) {
	status := model.StatusArchived
	tag := int64(7)
	fav := false

	tests := []struct {
		name   string
		filter Filter
	}{
		{name: "empty", filter: Filter{}},
		{name: "status only", filter: Filter{Status: &status}},
		{name: "all fields", filter: Filter{Status: &status, TagID: &tag, IsFavorite: &fav}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubRepo(sample()...)
			c := newController(t, repo)

			c.SetFilter(tt.filter)
			c.Wait()

			assert.Equal(t, tt.filter, c.Filter().Load())
			assert.Equal(t, model.ArticleQuery{Status: tt.filter.Status, TagID: tt.filter.TagID, IsFavorite: tt.filter.IsFavorite}, repo.lastQuery())
			assert.Equal(t, []int64{1, 2, 3}, ids(c.Articles().Load()))

			c.LoadArticles()
			c.Wait()
			assert.Equal(t, tt.filter.Query(), repo.lastQuery())
		})
	}
}

func TestToggleFavoriteReplacesInPlace(t *testing.T) {
	repo := newStubRepo(sample()...)
	c := newController(t, repo)
	c.LoadArticles()
	c.Wait()
	before := len(repo.queries)
	changed := c.Articles().Changed()

	c.ToggleFavorite(2)
	c.Wait()

	require.Len(t, repo.updates[2], 1)
	require.NotNil(t, repo.updates[2][0].IsFavorite)
	assert.True(t, *repo.updates[2][0].IsFavorite)
	assert.Nil(t, repo.updates[2][0].UserMemo)

	select {
	case <-changed:
	default:
		t.Fatal("list watchers were not woken")
	}

	list := c.Articles().Load()
	assert.Equal(t, []int64{1, 2, 3}, ids(list))
	assert.False(t, list[0].IsFavorite)
	assert.True(t, list[1].IsFavorite)
	assert.True(t, list[2].IsFavorite)
	assert.Equal(t, before, len(repo.queries), "toggle must not reload the list")
}

func TestToggleFavoriteFallsBackToCurrent(t *testing.T) {
	repo := newStubRepo(sample()...)
	c := newController(t, repo)
	c.LoadArticle(3)
	c.Wait()

	c.ToggleFavorite(3)
	c.Wait()

	require.Len(t, repo.updates[3], 1)
	assert.False(t, *repo.updates[3][0].IsFavorite)
	require.NotNil(t, c.Current().Load())
	assert.False(t, c.Current().Load().IsFavorite)
	assert.Empty(t, c.Articles().Load())
}

func TestToggleFavoriteUnknownArticle(t *testing.T) {
	repo := newStubRepo(sample()...)
	c := newController(t, repo)

	c.ToggleFavorite(9)
	c.Wait()

	assert.Empty(t, repo.updates)
}

func TestUpdateMemoUpdatesListAndCurrent(t *testing.T) {
	repo := newStubRepo(sample()...)
	c := newController(t, repo)
	c.LoadArticles()
	c.LoadArticle(1)
	c.Wait()

	c.UpdateMemo(1, "read again")
	c.Wait()

	assert.Equal(t, "read again", *c.Articles().Load()[0].UserMemo)
	assert.Equal(t, "read again", *c.Current().Load().UserMemo)
}

func TestCreateArticleReloadsAndAnnounces(t *testing.T) {
	repo := newStubRepo(sample()...)
	c := newController(t, repo)

	c.CreateArticle("https://new.example")
	c.Wait()

	assert.Equal(t, []string{"https://new.example"}, repo.created)
	assert.Equal(t, []int64{101, 1, 2, 3}, ids(c.Articles().Load()))
	assert.Equal(t, Message{Kind: MessageInfo, Text: "Article added"}, nextMessage(t, c))
}

func TestCreateArticleFailureIsReported(t *testing.T) {
	repo := newStubRepo()
	repo.err = repository.ErrUnsupportedInLocalMode
	c := newController(t, repo)

	c.CreateArticle("https://new.example")
	c.Wait()

	m := nextMessage(t, c)
	assert.Equal(t, MessageError, m.Kind)
	assert.Equal(t, "Failed to add article: not available in local mode", m.Text)
}

func TestLoadFailureIsReported(t *testing.T) {
	repo := newStubRepo(sample()...)
	c := newController(t, repo)
	c.LoadArticles()
	c.Wait()

	repo.mu.Lock()
	repo.err = errors.New("connection refused")
	repo.mu.Unlock()

	c.LoadArticles()
	c.Wait()

	m := nextMessage(t, c)
	assert.Equal(t, MessageError, m.Kind)
	assert.Contains(t, m.Text, "connection refused")
	assert.Len(t, c.Articles().Load(), 3, "a failed load keeps the previous list")
}

func TestStaleListIsDropped(t *testing.T) {
	repo := newStubRepo(sample()...)
	release := make(chan struct{})
	archived := model.StatusArchived
	repo.listHook = func(q model.ArticleQuery) {
		if q.Status != nil && *q.Status == archived {
			<-release
		}
	}
	c := newController(t, repo)

	c.SetFilter(Filter{Status: &archived})
	unread := model.StatusUnread
	c.SetFilter(Filter{Status: &unread})

	require.Eventually(t, func() bool {
		return len(c.Articles().Load()) == 3
	}, time.Second, 5*time.Millisecond)
	version := c.Articles().(interface{ Version() uint64 }).Version()

	close(release)
	c.Wait()

	assert.Len(t, c.Articles().Load(), 3)
	assert.Equal(t, version, c.Articles().(interface{ Version() uint64 }).Version())
}

// tagEchoRepo answers a list request with one article whose id is the
// requested tag id.
type tagEchoRepo struct {
	*stubRepo
}

func (r tagEchoRepo) ListArticles(_ context.Context, q model.ArticleQuery) ([]model.Article, error) {
	if q.TagID == nil {
		return nil, nil
	}
	return []model.Article{{ID: *q.TagID}}, nil
}

func TestConcurrentSetFilterListMatchesFilter(t *testing.T) {
	for round := 0; round < 20; round++ {
		c := newController(t, tagEchoRepo{newStubRepo()})

		var wg sync.WaitGroup
		for i := int64(1); i <= 8; i++ {
			wg.Add(1)
			go func(tag int64) {
				defer wg.Done()
				c.SetFilter(Filter{TagID: &tag})
			}(i)
		}
		wg.Wait()
		c.Wait()

		filter := c.Filter().Load()
		require.NotNil(t, filter.TagID)
		assert.Equal(t, []int64{*filter.TagID}, ids(c.Articles().Load()), "round %d", round)
	}
}

func TestRefreshLoadsBoth(t *testing.T) {
	repo := newStubRepo(sample()...)
	c := newController(t, repo)

	c.Refresh()
	c.Wait()

	assert.Len(t, c.Articles().Load(), 3)
	assert.Equal(t, []model.Tag{{ID: 1, Name: "go"}}, c.Tags().Load())
	assert.False(t, c.Refreshing().Load())
}

func TestMarkAsReadAndDelete(t *testing.T) {
	repo := newStubRepo(sample()...)
	c := newController(t, repo)
	c.LoadArticles()
	c.LoadArticle(2)
	c.Wait()

	c.MarkAsRead(2)
	c.Wait()
	assert.Equal(t, 1, c.Articles().Load()[1].ReadCount)
	assert.Equal(t, 1, c.Current().Load().ReadCount)

	c.DeleteArticle(2)
	c.Wait()
	assert.Equal(t, []int64{1, 3}, ids(c.Articles().Load()))
	assert.Nil(t, c.Current().Load())
	assert.Equal(t, "Article deleted", nextMessage(t, c).Text)
}

func TestCloseStopsNewWork(t *testing.T) {
	repo := newStubRepo(sample()...)
	c := NewController(repo, zap.NewNop())
	c.Close()

	c.LoadArticles()
	c.Wait()
	assert.Empty(t, repo.queries)
}
