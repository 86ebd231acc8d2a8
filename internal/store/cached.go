package store

import (
	"context"
	"time"

	"Divelog/models"

	"github.com/patrickmn/go-cache"
)

const (
	ListTTL = 10 * time.Second
	LogTTL  = 5 * time.Second
)

const (
	keyDivers = "divers"
	keySites  = "sites"
	keyLog    = "log"
	keyUsers  = "users"
)

// Cached keeps recent reads of another Store for a few seconds. Any
// successful mutation flushes everything.
type Cached struct {
	next  Store
	cache *cache.Cache
}

func NewCached(next Store) *Cached {
	return &Cached{next: next, cache: cache.New(LogTTL, time.Minute)}
}

func cachedList[T any](c *Cached, key string, ttl time.Duration, load func() ([]T, error)) ([]T, error) {
	if v, ok := c.cache.Get(key); ok {
		return append([]T(nil), v.([]T)...), nil
	}
	list, err := load()
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, list, ttl)
	return append([]T(nil), list...), nil
}

func (c *Cached) Divers(ctx context.Context) ([]models.Diver, error) {
	return cachedList(c, keyDivers, ListTTL, func() ([]models.Diver, error) { return c.next.Divers(ctx) })
}

func (c *Cached) Sites(ctx context.Context) ([]models.DiveSite, error) {
	return cachedList(c, keySites, ListTTL, func() ([]models.DiveSite, error) { return c.next.Sites(ctx) })
}

func (c *Cached) LogEntries(ctx context.Context) ([]models.LogEntry, error) {
	return cachedList(c, keyLog, LogTTL, func() ([]models.LogEntry, error) { return c.next.LogEntries(ctx) })
}

func (c *Cached) Users(ctx context.Context) ([]models.User, error) {
	return cachedList(c, keyUsers, LogTTL, func() ([]models.User, error) { return c.next.Users(ctx) })
}

func (c *Cached) UserByUsername(ctx context.Context, username string) (models.User, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (c *Cached) AddDiver(ctx context.Context, name string) (models.Diver, error) {
	d, err := c.next.AddDiver(ctx, name)
	if err == nil {
		c.cache.Flush()
	}
	return d, err
}

func (c *Cached) AddSite(ctx context.Context, name string) (models.DiveSite, error) {
	site, err := c.next.AddSite(ctx, name)
	if err == nil {
		c.cache.Flush()
	}
	return site, err
}

func (c *Cached) AppendLogEntry(ctx context.Context, entry models.LogEntry) error {
	err := c.next.AppendLogEntry(ctx, entry)
	if err == nil {
		c.cache.Flush()
	}
	return err
}

func (c *Cached) CreateUser(ctx context.Context, user models.User) error {
	err := c.next.CreateUser(ctx, user)
	if err == nil {
		c.cache.Flush()
	}
	return err
}

func (c *Cached) UpdatePassword(ctx context.Context, username, salt, hash string) error {
	err := c.next.UpdatePassword(ctx, username, salt, hash)
	if err == nil {
		c.cache.Flush()
	}
	return err
}

func (c *Cached) Close() error {
	c.cache.Flush()
	return c.next.Close()
}
