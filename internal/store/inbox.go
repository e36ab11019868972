package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"news-reread/internal/model"
)

const (
	pendingListKey = "list:pending"
	previewQueue   = "queue:preview"
	maxPending     = 100
)

// RedisInbox keeps pending shares in Redis so that the share receiver, the
// preview worker and the CLI can run as separate processes.
type RedisInbox struct {
	rdb *redis.Client
}

func NewRedisInbox(redisAddr string) (*RedisInbox, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisInbox{rdb: rdb}, nil
}

func (s *RedisInbox) Close() error {
	return s.rdb.Close()
}

func shareKey(id uuid.UUID) string {
	return fmt.Sprintf("share:%s", id)
}

// Save writes the share. New pending shares are also queued for preview and
// listed in the inbox.
func (s *RedisInbox) Save(ctx context.Context, share *model.PendingShare) error {
	data, err := json.Marshal(share)
	if err != nil {
		return err
	}

	key := shareKey(share.ID)
	isNew, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	if isNew == 0 && share.Status == model.SharePending {
		pipe.LPush(ctx, previewQueue, share.ID.String())
		pipe.LPush(ctx, pendingListKey, share.ID.String())
		pipe.LTrim(ctx, pendingListKey, 0, maxPending-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisInbox) Update(ctx context.Context, share *model.PendingShare) error {
	data, err := json.Marshal(share)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, shareKey(share.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisInbox) Get(ctx context.Context, id uuid.UUID) (*model.PendingShare, error) {
	val, err := s.rdb.Get(ctx, shareKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var share model.PendingShare
	if err := json.Unmarshal(val, &share); err != nil {
		return nil, err
	}
	return &share, nil
}

// List returns the most recent pending shares, newest first.
func (s *RedisInbox) List(ctx context.Context, limit int) ([]model.PendingShare, error) {
	ids, err := s.rdb.LRange(ctx, pendingListKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	var shares []model.PendingShare
	for _, idStr := range ids {
		val, err := s.rdb.Get(ctx, "share:"+idStr).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		} else if err != nil {
			return nil, err
		}

		var sh model.PendingShare
		if err := json.Unmarshal(val, &sh); err == nil {
			shares = append(shares, sh)
		}
	}
	return shares, nil
}

func (s *RedisInbox) Remove(ctx context.Context, id uuid.UUID) error {
	pipe := s.rdb.TxPipeline()
	del := pipe.Del(ctx, shareKey(id))
	pipe.LRem(ctx, pendingListKey, 0, id.String())
	pipe.LRem(ctx, previewQueue, 0, id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// PopPreviewQueue blocks until a share needs a preview.
func (s *RedisInbox) PopPreviewQueue(ctx context.Context) (uuid.UUID, error) {
	// 0 means wait forever until an item arrives
	result, err := s.rdb.BRPop(ctx, 0, previewQueue).Result()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(result[1])
}
