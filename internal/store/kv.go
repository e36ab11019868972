package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"news-reread/internal/model"
)

const (
	keyAccessToken  = "auth:access_token"
	keyRefreshToken = "auth:refresh_token"
	prefPrefix      = "pref:"
)

var prefDefaults = map[string]bool{
	PrefShowURL:     true,
	PrefShowSummary: true,
	PrefShowMemo:    true,
	PrefLocalMode:   false,
}

// KVStore is the on-device key-value store for credentials and preferences.
type KVStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// OpenKVStore opens badger at path with synchronous writes.
// Pass path="" for an in-memory store.
func OpenKVStore(path string, logger *zap.Logger) (*KVStore, error) {
	opts := badger.DefaultOptions(path).WithSyncWrites(true)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Silence default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &KVStore{db: db, logger: logger}, nil
}

func (s *KVStore) Close() error {
	return s.db.Close()
}

// RunGC reclaims value-log space every interval until ctx is done. Only
// long-running processes need it.
func (s *KVStore) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// One call rewrites at most one file; repeat until nothing is left.
		for {
			err := s.db.RunValueLogGC(0.7)
			if err == nil {
				continue
			}
			if errors.Is(err, badger.ErrGCInMemoryMode) {
				return
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("Value log GC failed", zap.Error(err))
			}
			break
		}
	}
}

// Get returns the stored pair. A missing access token means no pair.
func (s *KVStore) Get() (model.TokenPair, bool) {
	var pair model.TokenPair
	err := s.db.View(func(txn *badger.Txn) error {
		access, err := getString(txn, keyAccessToken)
		if err != nil {
			return err
		}
		refresh, err := getString(txn, keyRefreshToken)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		pair = model.TokenPair{Access: access, Refresh: refresh}
		return nil
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.logger.Error("Failed to read tokens", zap.Error(err))
		}
		return model.TokenPair{}, false
	}
	return pair, pair.Access != ""
}

func (s *KVStore) Set(pair model.TokenPair) {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyAccessToken), []byte(pair.Access)); err != nil {
			return err
		}
		if pair.Refresh == "" {
			return deleteKey(txn, keyRefreshToken)
		}
		return txn.Set([]byte(keyRefreshToken), []byte(pair.Refresh))
	})
	if err != nil {
		s.logger.Error("Failed to persist tokens", zap.Error(err))
	}
}

func (s *KVStore) Clear() {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := deleteKey(txn, keyAccessToken); err != nil {
			return err
		}
		return deleteKey(txn, keyRefreshToken)
	})
	if err != nil {
		s.logger.Error("Failed to clear tokens", zap.Error(err))
	}
}

// Preferences loads every flag, falling back to defaults for unset or unreadable keys.
func (s *KVStore) Preferences() Preferences {
	return Preferences{
		ShowURL:     s.preference(PrefShowURL),
		ShowSummary: s.preference(PrefShowSummary),
		ShowMemo:    s.preference(PrefShowMemo),
		LocalMode:   s.preference(PrefLocalMode),
	}
}

func (s *KVStore) SetPreference(key string, value bool) error {
	if _, ok := prefDefaults[key]; !ok {
		return fmt.Errorf("unknown preference %q", key)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefPrefix+key), []byte(strconv.FormatBool(value)))
	})
}

func (s *KVStore) preference(key string) bool {
	def := prefDefaults[key]
	var raw string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		raw, err = getString(txn, prefPrefix+key)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.logger.Warn("Failed to read preference", zap.String("key", key), zap.Error(err))
		}
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func getString(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func deleteKey(txn *badger.Txn, key string) error {
	err := txn.Delete([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}
