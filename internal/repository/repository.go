// Package repository chooses, per call, between the remote service and the
// local cache.
package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"news-reread/internal/metrics"
	"news-reread/internal/model"
)

var (
	// ErrUnsupportedInLocalMode is returned by operations that need the server.
	ErrUnsupportedInLocalMode = errors.New("operation requires a signed-in session")

	ErrNotFound = errors.New("article not found")
)

// Remote is the authenticated service API.
type Remote interface {
	ListArticles(ctx context.Context, q model.ArticleQuery) ([]model.Article, error)
	CreateArticle(ctx context.Context, req model.CreateArticleRequest) (model.Article, error)
	GetArticle(ctx context.Context, id int64) (model.Article, error)
	UpdateArticle(ctx context.Context, id int64, req model.UpdateArticleRequest) (model.Article, error)
	DeleteArticle(ctx context.Context, id int64) error
	MarkAsRead(ctx context.Context, id int64) (model.Article, error)
	Reminders(ctx context.Context) ([]model.Article, error)
	RandomArticle(ctx context.Context) (model.Article, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	CreateTag(ctx context.Context, name string) (model.Tag, error)
}

// Cache is the on-device replica.
type Cache interface {
	UpsertArticles(ctx context.Context, articles []model.Article) error
	ListArticles(ctx context.Context) ([]model.Article, error)
	GetArticle(ctx context.Context, id int64) (model.Article, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	DeleteArticle(ctx context.Context, id int64) error
}

// Credentials decides the mode of each call.
type Credentials interface {
	HasCredentials() bool
}

// source is the strategy picked for one call.
type source interface {
	listArticles(ctx context.Context, q model.ArticleQuery) ([]model.Article, error)
	getArticle(ctx context.Context, id int64) (model.Article, error)
	createArticle(ctx context.Context, req model.CreateArticleRequest) (model.Article, error)
	updateArticle(ctx context.Context, id int64, req model.UpdateArticleRequest) (model.Article, error)
	deleteArticle(ctx context.Context, id int64) error
	markAsRead(ctx context.Context, id int64) (model.Article, error)
	reminders(ctx context.Context) ([]model.Article, error)
	randomArticle(ctx context.Context) (model.Article, error)
	listTags(ctx context.Context) ([]model.Tag, error)
	createTag(ctx context.Context, name string) (model.Tag, error)
}

const writeThroughTimeout = 10 * time.Second

type Repository struct {
	remote Remote
	cache  Cache
	creds  Credentials
	logger *zap.Logger
	metric *metrics.Metrics

	wg sync.WaitGroup
}

func New(remote Remote, cache Cache, creds Credentials, logger *zap.Logger, m *metrics.Metrics) *Repository {
	return &Repository{
		remote: remote,
		cache:  cache,
		creds:  creds,
		logger: logger,
		metric: m,
	}
}

func (r *Repository) source() source {
	if r.creds.HasCredentials() {
		return remoteSource{r}
	}
	return localSource{r}
}

// ListArticles applies q at the remote boundary. The local cache ignores q.
func (r *Repository) ListArticles(ctx context.Context, q model.ArticleQuery) ([]model.Article, error) {
	return r.source().listArticles(ctx, q)
}

func (r *Repository) GetArticle(ctx context.Context, id int64) (model.Article, error) {
	return r.source().getArticle(ctx, id)
}

// CreateArticle saves rawURL with every other field left to the server.
func (r *Repository) CreateArticle(ctx context.Context, req model.CreateArticleRequest) (model.Article, error) {
	return r.source().createArticle(ctx, req)
}

func (r *Repository) UpdateArticle(ctx context.Context, id int64, req model.UpdateArticleRequest) (model.Article, error) {
	return r.source().updateArticle(ctx, id, req)
}

func (r *Repository) DeleteArticle(ctx context.Context, id int64) error {
	return r.source().deleteArticle(ctx, id)
}

func (r *Repository) MarkAsRead(ctx context.Context, id int64) (model.Article, error) {
	return r.source().markAsRead(ctx, id)
}

func (r *Repository) Reminders(ctx context.Context) ([]model.Article, error) {
	return r.source().reminders(ctx)
}

func (r *Repository) RandomArticle(ctx context.Context) (model.Article, error) {
	return r.source().randomArticle(ctx)
}

func (r *Repository) ListTags(ctx context.Context) ([]model.Tag, error) {
	return r.source().listTags(ctx)
}

func (r *Repository) CreateTag(ctx context.Context, name string) (model.Tag, error) {
	return r.source().createTag(ctx, name)
}

// Flush waits for pending cache write-throughs.
func (r *Repository) Flush() {
	r.wg.Wait()
}

// writeThrough stores articles in the cache without holding up the caller.
// The write outlives ctx's cancellation; its failure is only logged.
func (r *Repository) writeThrough(ctx context.Context, articles ...model.Article) {
	if len(articles) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, writeThroughTimeout)
		defer cancel()

		if err := r.cache.UpsertArticles(ctx, articles); err != nil {
			r.logger.Warn("Failed to cache articles", zap.Int("count", len(articles)), zap.Error(err))
			r.metric.CacheWrite(metrics.OutcomeFailure)
			return
		}
		r.metric.CacheWrite(metrics.OutcomeSuccess)
	}()
}

func (r *Repository) evict(ctx context.Context, id int64) {
	ctx = context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, writeThroughTimeout)
		defer cancel()

		if err := r.cache.DeleteArticle(ctx, id); err != nil {
			r.logger.Warn("Failed to evict article from cache", zap.Int64("article_id", id), zap.Error(err))
		}
	}()
}
