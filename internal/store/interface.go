package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"news-reread/internal/model"
)

var (
	ErrNotFound = errors.New("pending share not found")
)

// TokenStore persists the credential pair. Storage failures are logged and
// reported as an absent pair, never returned.
type TokenStore interface {
	Get() (model.TokenPair, bool)
	Set(pair model.TokenPair)
	Clear()
}

// Preference keys.
const (
	PrefShowURL     = "show_url"
	PrefShowSummary = "show_summary"
	PrefShowMemo    = "show_memo"
	PrefLocalMode   = "local_mode"
)

// Preferences are the display flags read by the presentation side plus the
// persisted local-mode switch.
type Preferences struct {
	ShowURL     bool
	ShowSummary bool
	ShowMemo    bool
	LocalMode   bool
}

type ShareInbox interface {
	Save(ctx context.Context, share *model.PendingShare) error
	// Update overwrites a share only while it still exists, returning
	// ErrNotFound once it has been removed.
	Update(ctx context.Context, share *model.PendingShare) error
	Get(ctx context.Context, id uuid.UUID) (*model.PendingShare, error)
	List(ctx context.Context, limit int) ([]model.PendingShare, error)
	Remove(ctx context.Context, id uuid.UUID) error
	PopPreviewQueue(ctx context.Context) (uuid.UUID, error)
}
