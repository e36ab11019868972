package worker

import (
	"context"
	"errors"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"news-reread/internal/model"
	"news-reread/internal/store"
)

const (
	scrapeTimeout = 30 * time.Second
	retryDelay    = time.Second
)

// Scraper downloads a page and extracts its readable parts.
type Scraper interface {
	Scrape(url string, timeout time.Duration) (*readability.Article, error)
}

// DefaultScraper fetches over the network.
type DefaultScraper struct{}

func (s *DefaultScraper) Scrape(url string, timeout time.Duration) (*readability.Article, error) {
	art, err := readability.FromURL(url, timeout)
	return &art, err
}

// Worker fills in the title and excerpt of pending shares so the prompt can
// show what is about to be saved.
type Worker struct {
	inbox   store.ShareInbox
	logger  *zap.Logger
	scraper Scraper
}

func NewWorker(inbox store.ShareInbox, logger *zap.Logger) *Worker {
	return &Worker{
		inbox:   inbox,
		logger:  logger,
		scraper: &DefaultScraper{},
	}
}

// Start consumes the preview queue until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Preview worker started")

	for {
		id, err := w.inbox.PopPreviewQueue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Preview worker shutting down")
				return
			}
			w.logger.Error("Queue error", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		w.processJob(ctx, id)
	}
}

func (w *Worker) processJob(ctx context.Context, id uuid.UUID) {
	logger := w.logger.With(zap.String("share_id", id.String()))

	sh, err := w.inbox.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		logger.Debug("Share already handled")
		return
	} else if err != nil {
		logger.Error("Failed to load share", zap.Error(err))
		return
	}
	if sh.Status != model.SharePending {
		return
	}

	logger.Info("Fetching preview", zap.String("url", sh.URL))
	parsed, err := w.scraper.Scrape(sh.URL, scrapeTimeout)
	if err != nil {
		logger.Warn("Preview failed", zap.Error(err))
		sh.Status = model.ShareFailed
		sh.ErrorMessage = err.Error()
	} else {
		sh.Title = parsed.Title
		sh.Excerpt = parsed.Excerpt
		sh.Status = model.SharePreviewed
	}

	// The user may have confirmed or discarded the share while it was fetched.
	if err := w.inbox.Update(ctx, sh); errors.Is(err, store.ErrNotFound) {
		logger.Debug("Share removed before preview was saved")
		return
	} else if err != nil {
		logger.Error("Failed to save preview", zap.Error(err))
		return
	}
	logger.Info("Preview ready", zap.String("title", sh.Title))
}
