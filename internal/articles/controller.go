// Package articles holds the session state a presentation layer binds to:
// the current list, the open article, the tag set and the active filter.
package articles

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"news-reread/internal/api"
	"news-reread/internal/model"
	"news-reread/internal/observe"
	"news-reread/internal/repository"
)

// Repository is the article source the controller drives.
type Repository interface {
	ListArticles(ctx context.Context, q model.ArticleQuery) ([]model.Article, error)
	GetArticle(ctx context.Context, id int64) (model.Article, error)
	CreateArticle(ctx context.Context, req model.CreateArticleRequest) (model.Article, error)
	UpdateArticle(ctx context.Context, id int64, req model.UpdateArticleRequest) (model.Article, error)
	MarkAsRead(ctx context.Context, id int64) (model.Article, error)
	DeleteArticle(ctx context.Context, id int64) error
	ListTags(ctx context.Context) ([]model.Tag, error)
}

// Filter narrows the article list. Nil fields are unconstrained.
type Filter struct {
	Status     *model.ArticleStatus
	TagID      *int64
	IsFavorite *bool
}

func (f Filter) Query() model.ArticleQuery {
	return model.ArticleQuery{Status: f.Status, TagID: f.TagID, IsFavorite: f.IsFavorite}
}

type MessageKind int

const (
	MessageInfo MessageKind = iota
	MessageError
)

// Message is a transient notification meant to be shown once.
type Message struct {
	Kind MessageKind
	Text string
}

const messageBacklog = 16

// Controller runs every operation on its own goroutine and reports results
// through observable cells. No method blocks on the network.
type Controller struct {
	repo   Repository
	logger *zap.Logger

	list       *observe.Value[[]model.Article]
	current    *observe.Value[*model.Article]
	tags       *observe.Value[[]model.Tag]
	filter     *observe.Value[Filter]
	refreshing *observe.Value[bool]
	messages   *observe.Queue[Message]

	// listMu guards filter writes, generation and the check-then-store step of
	// list reloads.
	listMu     sync.Mutex
	generation uint64

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewController(repo Repository, logger *zap.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		repo:       repo,
		logger:     logger,
		list:       observe.NewValue([]model.Article{}),
		current:    observe.NewValue[*model.Article](nil),
		tags:       observe.NewValue([]model.Tag{}),
		filter:     observe.NewValue(Filter{}),
		refreshing: observe.NewValue(false),
		messages:   observe.NewQueue[Message](messageBacklog),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (c *Controller) Articles() observe.View[[]model.Article] { return c.list }
func (c *Controller) Current() observe.View[*model.Article]   { return c.current }
func (c *Controller) Tags() observe.View[[]model.Tag]         { return c.tags }
func (c *Controller) Filter() observe.View[Filter]            { return c.filter }
func (c *Controller) Refreshing() observe.View[bool]          { return c.refreshing }

// Messages delivers each notification to one reader.
func (c *Controller) Messages() <-chan Message {
	return c.messages.C()
}

// Wait blocks until every operation started so far has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels outstanding work and waits for it. Later calls are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

// Refresh reloads the list and the tags together.
func (c *Controller) Refresh() {
	c.spawn("refresh", func(ctx context.Context) error {
		c.refreshing.Store(true)
		defer c.refreshing.Store(false)

		var g errgroup.Group
		gen, filter := c.nextReload()
		g.Go(func() error { return c.reportErr("load articles", c.reloadList(ctx, gen, filter)) })
		g.Go(func() error { return c.reportErr("load tags", c.reloadTags(ctx)) })
		_ = g.Wait()
		return nil
	})
}

// LoadArticles reloads the list with the current filter.
func (c *Controller) LoadArticles() {
	gen, filter := c.nextReload()
	c.spawn("load articles", func(ctx context.Context) error {
		return c.reloadList(ctx, gen, filter)
	})
}

func (c *Controller) LoadTags() {
	c.spawn("load tags", c.reloadTags)
}

// SetFilter replaces the filter and reloads the list with it.
func (c *Controller) SetFilter(f Filter) {
	c.listMu.Lock()
	c.filter.Store(f)
	c.generation++
	gen := c.generation
	c.listMu.Unlock()
	c.spawn("load articles", func(ctx context.Context) error {
		return c.reloadList(ctx, gen, f)
	})
}

// CreateArticle saves rawURL, then reloads the list and announces the result.
func (c *Controller) CreateArticle(rawURL string) {
	c.spawn("add article", func(ctx context.Context) error {
		if _, err := c.repo.CreateArticle(ctx, model.CreateArticleRequest{URL: rawURL}); err != nil {
			return err
		}
		c.messages.Publish(Message{Kind: MessageInfo, Text: "Article added"})
		gen, filter := c.nextReload()
		_ = c.reportErr("load articles", c.reloadList(ctx, gen, filter))
		return nil
	})
}

// LoadArticle opens id as the current article.
func (c *Controller) LoadArticle(id int64) {
	c.spawn("load article", func(ctx context.Context) error {
		a, err := c.repo.GetArticle(ctx, id)
		if err != nil {
			return err
		}
		c.current.Store(&a)
		return nil
	})
}

// ToggleFavorite flips the favorite flag of id as currently shown, looking in
// the list first and then at the open article.
func (c *Controller) ToggleFavorite(id int64) {
	c.spawn("update favorite", func(ctx context.Context) error {
		a, ok := c.find(id)
		if !ok {
			c.logger.Warn("Article not loaded, cannot toggle favorite", zap.Int64("article_id", id))
			return nil
		}
		fav := !a.IsFavorite
		return c.update(ctx, id, model.UpdateArticleRequest{IsFavorite: &fav})
	})
}

func (c *Controller) UpdateMemo(id int64, memo string) {
	c.spawn("update memo", func(ctx context.Context) error {
		return c.update(ctx, id, model.UpdateArticleRequest{UserMemo: &memo})
	})
}

func (c *Controller) MarkAsRead(id int64) {
	c.spawn("mark as read", func(ctx context.Context) error {
		a, err := c.repo.MarkAsRead(ctx, id)
		if err != nil {
			return err
		}
		c.replace(a)
		return nil
	})
}

// DeleteArticle removes id remotely and drops it from the shown state.
func (c *Controller) DeleteArticle(id int64) {
	c.spawn("delete article", func(ctx context.Context) error {
		if err := c.repo.DeleteArticle(ctx, id); err != nil {
			return err
		}
		c.list.Update(func(list []model.Article) []model.Article {
			return slices.DeleteFunc(slices.Clone(list), func(a model.Article) bool { return a.ID == id })
		})
		if cur := c.current.Load(); cur != nil && cur.ID == id {
			c.current.Store(nil)
		}
		c.messages.Publish(Message{Kind: MessageInfo, Text: "Article deleted"})
		return nil
	})
}

func (c *Controller) update(ctx context.Context, id int64, req model.UpdateArticleRequest) error {
	a, err := c.repo.UpdateArticle(ctx, id, req)
	if err != nil {
		return err
	}
	c.replace(a)
	return nil
}

// replace swaps updated into the list and the open article where its id is
// present. Order and other entries are left alone.
func (c *Controller) replace(updated model.Article) {
	c.list.Update(func(list []model.Article) []model.Article {
		out := slices.Clone(list)
		for i := range out {
			if out[i].ID == updated.ID {
				out[i] = updated
			}
		}
		return out
	})
	if cur := c.current.Load(); cur != nil && cur.ID == updated.ID {
		c.current.Store(&updated)
	}
}

func (c *Controller) find(id int64) (model.Article, bool) {
	for _, a := range c.list.Load() {
		if a.ID == id {
			return a, true
		}
	}
	if cur := c.current.Load(); cur != nil && cur.ID == id {
		return *cur, true
	}
	return model.Article{}, false
}

// nextReload stamps a list reload at the moment it is requested and pairs
// it with the filter in force at that moment.
func (c *Controller) nextReload() (uint64, Filter) {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	c.generation++
	return c.generation, c.filter.Load()
}

// reloadList fetches with f and stores the result unless a newer reload was
// requested in the meantime.
func (c *Controller) reloadList(ctx context.Context, gen uint64, f Filter) error {
	articles, err := c.repo.ListArticles(ctx, f.Query())
	if err != nil {
		return err
	}

	c.listMu.Lock()
	defer c.listMu.Unlock()
	if gen != c.generation {
		c.logger.Debug("Dropping superseded article list", zap.Uint64("generation", gen))
		return nil
	}
	c.list.Store(articles)
	return nil
}

func (c *Controller) reloadTags(ctx context.Context) error {
	tags, err := c.repo.ListTags(ctx)
	if err != nil {
		return err
	}
	c.tags.Store(tags)
	return nil
}

func (c *Controller) spawn(op string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.reportErr(op, fn(c.ctx))
	}()
}

// reportErr logs err and queues it for the user. Cancellation is silent.
func (c *Controller) reportErr(op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	c.logger.Warn("Operation failed", zap.String("op", op), zap.Error(err))
	c.messages.Publish(Message{Kind: MessageError, Text: fmt.Sprintf("Failed to %s: %s", op, describe(err))})
	return err
}

func describe(err error) string {
	var he *api.HTTPError
	switch {
	case errors.Is(err, repository.ErrUnsupportedInLocalMode):
		return "not available in local mode"
	case errors.Is(err, repository.ErrNotFound):
		return "article not found"
	case errors.As(err, &he) && he.Detail() != "":
		return he.Detail()
	}
	return err.Error()
}
