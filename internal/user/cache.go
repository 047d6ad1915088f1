// AngelaMos | 2026
// cache.go

package user

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyByID    = "user:id:"
	cacheKeyByEmail = "user:email:"
)

// CachedStore is a read-through cache in front of another Store. Records are
// cached by id; the email key only holds the id, and a hit is discarded when
// the cached record no longer carries that email. Redis failures are logged
// and the inner store is used instead.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(
	inner Store,
	client *redis.Client,
	ttl time.Duration,
	logger *slog.Logger,
) *CachedStore {
	return &CachedStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedStore) FindAll(ctx context.Context) ([]User, error) {
	return c.inner.FindAll(ctx)
}

func (c *CachedStore) FindByID(ctx context.Context, id string) (*User, error) {
	if u := c.getCached(ctx, id); u != nil {
		return u, nil
	}

	u, err := c.inner.FindByID(ctx, id)
	if err != nil || u == nil {
		return u, err
	}

	c.set(ctx, u)
	return u, nil
}

func (c *CachedStore) FindByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	id, err := c.client.Get(ctx, cacheKeyByEmail+email).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("user cache read failed", "error", err)
	}

	if id != "" {
		if u := c.getCached(ctx, id); u != nil && u.Email == email {
			return u, nil
		}
	}

	u, err := c.inner.FindByEmail(ctx, email)
	if err != nil || u == nil {
		return u, err
	}

	c.set(ctx, u)
	return u, nil
}

func (c *CachedStore) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	return c.inner.ExistsByEmail(ctx, email)
}

func (c *CachedStore) Create(ctx context.Context, u *User) error {
	if err := c.inner.Create(ctx, u); err != nil {
		return err
	}
	c.invalidate(ctx, u.ID, u.Email)
	return nil
}

func (c *CachedStore) Update(
	ctx context.Context,
	id string,
	patch Patch,
) (*User, error) {
	u, err := c.inner.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if u == nil {
		c.invalidate(ctx, id)
		return nil, nil
	}

	c.invalidate(ctx, id, u.Email)
	return u, nil
}

func (c *CachedStore) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := c.inner.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	c.invalidate(ctx, id)
	return deleted, nil
}

func (c *CachedStore) getCached(ctx context.Context, id string) *User {
	data, err := c.client.Get(ctx, cacheKeyByID+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("user cache read failed", "error", err)
		}
		return nil
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		c.logger.Warn("user cache entry corrupt", "user_id", id, "error", err)
		return nil
	}

	return &u
}

func (c *CachedStore) set(ctx context.Context, u *User) {
	data, err := json.Marshal(u)
	if err != nil {
		c.logger.Warn("user cache encode failed", "error", err)
		return
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, cacheKeyByID+u.ID, data, c.ttl)
	pipe.Set(ctx, cacheKeyByEmail+u.Email, u.ID, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("user cache write failed", "error", err)
	}
}

// invalidate takes the id first and then any emails to drop.
func (c *CachedStore) invalidate(ctx context.Context, id string, emails ...string) {
	keys := []string{cacheKeyByID + id}
	for _, email := range emails {
		keys = append(keys, cacheKeyByEmail+email)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("user cache invalidate failed", "error", err)
	}
}

var _ Store = (*CachedStore)(nil)
