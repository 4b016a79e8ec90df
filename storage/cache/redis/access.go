package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/entitlement"
)

const (
	keyPrefix   = "fightlab:access:"
	pingTimeout = 3 * time.Second
	defaultTTL  = 10 * time.Minute
)

// AccessCache keeps positive course access decisions; entries expire after ttl.
type AccessCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

var _ entitlement.AccessCache = (*AccessCache)(nil)

func Open(ctx context.Context, conf core.RedisConfig) (*AccessCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return New(rdb, conf.TTL), nil
}

func New(rdb *goredis.Client, ttl time.Duration) *AccessCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &AccessCache{rdb: rdb, ttl: ttl}
}

func accessKey(userID, courseID string) string {
	return keyPrefix + userID + ":" + courseID
}

func (c *AccessCache) HasAccess(ctx context.Context, userID, courseID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, accessKey(userID, courseID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "reading access cache")
	}
	return n > 0, nil
}

func (c *AccessCache) GrantAccess(ctx context.Context, userID, courseID string) error {
	return errors.Wrap(c.rdb.Set(ctx, accessKey(userID, courseID), 1, c.ttl).Err(), "writing access cache")
}

func (c *AccessCache) Close() error {
	return c.rdb.Close()
}
