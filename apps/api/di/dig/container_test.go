package dig_container

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/dig"

	"github.com/trezcool/fightlab/core"
	logsvc "github.com/trezcool/fightlab/services/logger"
	rediscache "github.com/trezcool/fightlab/storage/cache/redis"
)

func TestNewAccessCache(t *testing.T) {
	logger := logsvc.NewNopLogger()

	t.Run("disabled", func(t *testing.T) {
		res := newAccessCache(core.NewTestConfig(), logger)
		assert.Nil(t, res.Cache)
		assert.Equal(t, nopCloser{}, res.Closer)
		assert.NoError(t, res.Closer.Close())
	})

	t.Run("unreachable", func(t *testing.T) {
		conf := core.NewTestConfig()
		conf.Redis.Addr = "127.0.0.1:1"
		res := newAccessCache(conf, logger)
		assert.Nil(t, res.Cache)
		assert.Equal(t, nopCloser{}, res.Closer)
	})

	t.Run("connected", func(t *testing.T) {
		addr := os.Getenv("TEST_REDIS_ADDR")
		if addr == "" {
			t.Skip("TEST_REDIS_ADDR not set")
		}
		conf := core.NewTestConfig()
		conf.Redis.Addr = addr
		res := newAccessCache(conf, logger)
		cache, ok := res.Cache.(*rediscache.AccessCache)
		if assert.True(t, ok) {
			assert.Same(t, cache, res.Closer)
		}
		assert.NoError(t, res.Closer.Close())
	})
}

func TestAccessCacheCloser_provided(t *testing.T) {
	c := dig.New()
	must(c.Provide(core.NewTestConfig))
	must(c.Provide(func() core.Logger { return logsvc.NewNopLogger() }))
	must(c.Provide(newAccessCache))

	err := c.Invoke(func(p CacheCloserParam) {
		assert.NoError(t, p.Closer.Close())
	})
	assert.NoError(t, err)
}
