package cacheinfra

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	perr "github.com/jmgilman/go/errors"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-output-cache/cache"
	ilog "github.com/goliatone/go-output-cache/internal/log"
)

var _ cache.OutputCacheProvider = (*RedisProvider)(nil)

// scanBatch is the COUNT hint used while scanning for RemoveAll.
const scanBatch = 500

// RedisProvider stores items in Redis so several instances share one output
// cache. Item keys expire through Redis TTLs; the tag and route sets are
// only pruned by invalidation, so a tag set may name keys that were
// re-stored without that tag. Invalidating such a tag also purges them.
type RedisProvider struct {
	rdb    redis.UniversalClient
	prefix string
	lease  time.Duration
	retry  time.Duration
	logger ilog.Logger
	now    func() time.Time
}

// NewRedisProvider validates cfg and connects to cfg.Redis.Addr.
func NewRedisProvider(cfg Config, opts ...Option) (*RedisProvider, error) {
	if err := cfg.validateRedis(); err != nil {
		return nil, err
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	return NewRedisProviderWithClient(rdb, cfg, opts...)
}

// NewRedisProviderWithClient builds a provider on an existing client.
func NewRedisProviderWithClient(rdb redis.UniversalClient, cfg Config, opts ...Option) (*RedisProvider, error) {
	if rdb == nil {
		return nil, &ConfigError{Field: "Redis", Message: "client must not be nil"}
	}
	if err := cfg.validateRedis(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	retry := cfg.Redis.LockRetryInterval
	if retry == 0 {
		retry = DefaultConfig().Redis.LockRetryInterval
	}
	return &RedisProvider{
		rdb:    rdb,
		prefix: cfg.Redis.KeyPrefix,
		lease:  cfg.LockLease,
		retry:  retry,
		logger: o.logger,
		now:    o.now,
	}, nil
}

// Ping checks connectivity.
func (p *RedisProvider) Ping(ctx context.Context) error {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return perr.Wrap(err, perr.CodeNetwork, "redis ping")
	}
	return nil
}

// Close closes the underlying client.
func (p *RedisProvider) Close() error {
	return p.rdb.Close()
}

func (p *RedisProvider) itemKey(key string) string { return p.prefix + "item:" + key }
func (p *RedisProvider) tagKey(tag string) string { return p.prefix + "tag:" + tag }
func (p *RedisProvider) routeKey(route string) string { return p.prefix + "route:" + route }
func (p *RedisProvider) indexKey() string { return p.prefix + "index" }
func (p *RedisProvider) lockKey(key string) string { return p.prefix + "lock:" + key }

// Get implements cache.OutputCacheProvider.Get.
func (p *RedisProvider) Get(ctx context.Context, key string) (*cache.OutputCacheItem, error) {
	b, err := p.rdb.Get(ctx, p.itemKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeNetwork, "redis get %q", key)
	}

	item, err := decodeItem(b)
	if err != nil {
		return nil, err
	}
	if !item.IsValid(p.now()) {
		_ = p.Remove(ctx, key)
		return nil, nil
	}
	return item, nil
}

// Set implements cache.OutputCacheProvider.Set.
func (p *RedisProvider) Set(ctx context.Context, key string, item *cache.OutputCacheItem) error {
	if item == nil {
		return cache.ErrNilItem
	}
	ttl := item.ExpiresOnUTC().Sub(p.now())
	if ttl <= 0 {
		p.logger.Debug("outputcache.redis.set.skip_expired", "key", key)
		return nil
	}

	stored := item.Clone(true)
	stored.CacheKey = key
	b, err := encodeItem(stored)
	if err != nil {
		return err
	}

	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.itemKey(key), b, ttl)
		pipe.SAdd(ctx, p.indexKey(), key)
		pipe.SAdd(ctx, p.routeKey(stored.RouteKey), key)
		for _, tag := range stored.Tags {
			pipe.SAdd(ctx, p.tagKey(tag), key)
		}
		return nil
	})
	if err != nil {
		return perr.Wrapf(err, perr.CodeNetwork, "redis set %q", key)
	}

	p.logger.Debug("outputcache.redis.set", "key", key, "route", stored.RouteKey, "ttl", ttl)
	return nil
}

// Exists implements cache.OutputCacheProvider.Exists.
func (p *RedisProvider) Exists(ctx context.Context, key string) (bool, error) {
	item, err := p.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return item != nil, nil
}

// Remove implements cache.OutputCacheProvider.Remove.
func (p *RedisProvider) Remove(ctx context.Context, keys ...string) error {
	_, err := p.removeKeys(ctx, keys)
	return err
}

// RemoveAll implements cache.OutputCacheProvider.RemoveAll. Every key under
// the configured prefix is deleted, including locks.
func (p *RedisProvider) RemoveAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, p.prefix+"*", scanBatch).Result()
		if err != nil {
			return perr.Wrap(err, perr.CodeNetwork, "redis scan")
		}
		if len(keys) > 0 {
			if err := p.rdb.Del(ctx, keys...).Err(); err != nil {
				return perr.Wrap(err, perr.CodeNetwork, "redis del")
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	p.logger.Info("outputcache.redis.clear", "prefix", p.prefix)
	return nil
}

// Count implements cache.OutputCacheProvider.Count. Index members whose item
// expired are pruned along the way.
func (p *RedisProvider) Count(ctx context.Context) (int, error) {
	items, err := p.loadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// All implements cache.OutputCacheProvider.All.
func (p *RedisProvider) All(ctx context.Context, pageIndex, pageSize int, withContent bool) (cache.Page, error) {
	items, err := p.loadAll(ctx)
	if err != nil {
		return cache.Page{}, err
	}
	return paginate(items, pageIndex, pageSize, withContent), nil
}

// InvalidateByRoute implements cache.OutputCacheProvider.InvalidateByRoute.
func (p *RedisProvider) InvalidateByRoute(ctx context.Context, routes ...string) (int, error) {
	sets := make([]string, 0, len(routes))
	for _, r := range routes {
		sets = append(sets, p.routeKey(r))
	}
	n, err := p.invalidateSets(ctx, sets)
	if err != nil {
		return n, err
	}
	p.logger.Debug("outputcache.redis.invalidate.route", "routes", routes, "removed", n)
	return n, nil
}

// InvalidateByTag implements cache.OutputCacheProvider.InvalidateByTag.
func (p *RedisProvider) InvalidateByTag(ctx context.Context, tags ...string) (int, error) {
	sets := make([]string, 0, len(tags))
	for _, t := range tags {
		sets = append(sets, p.tagKey(t))
	}
	n, err := p.invalidateSets(ctx, sets)
	if err != nil {
		return n, err
	}
	p.logger.Debug("outputcache.redis.invalidate.tag", "tags", tags, "removed", n)
	return n, nil
}

// InvalidateByPrefix implements cache.OutputCacheProvider.InvalidateByPrefix.
func (p *RedisProvider) InvalidateByPrefix(ctx context.Context, prefix string) (int, error) {
	members, err := p.rdb.SMembers(ctx, p.indexKey()).Result()
	if err != nil {
		return 0, perr.Wrap(err, perr.CodeNetwork, "redis smembers index")
	}
	keys := members[:0]
	for _, k := range members {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	n, err := p.removeKeys(ctx, keys)
	if err != nil {
		return 0, err
	}
	p.logger.Debug("outputcache.redis.invalidate.prefix", "prefix", prefix, "removed", n)
	return n, nil
}

// GetLock implements cache.OutputCacheProvider.GetLock.
func (p *RedisProvider) GetLock(key string) cache.DistributedLock {
	return &redisLock{
		rdb:   p.rdb,
		name:  key,
		key:   p.lockKey(key),
		lease: p.lease,
		retry: p.retry,
	}
}

// invalidateSets deletes every item named in any of the index sets and
// removes exactly those members, so keys added concurrently survive.
func (p *RedisProvider) invalidateSets(ctx context.Context, sets []string) (int, error) {
	if len(sets) == 0 {
		return 0, nil
	}
	members, err := p.rdb.SUnion(ctx, sets...).Result()
	if err != nil {
		return 0, perr.Wrap(err, perr.CodeNetwork, "redis sunion")
	}
	if len(members) == 0 {
		return 0, nil
	}

	itemKeys := make([]string, len(members))
	anyMembers := make([]any, len(members))
	for i, m := range members {
		itemKeys[i] = p.itemKey(m)
		anyMembers[i] = m
	}

	var del *redis.IntCmd
	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, itemKeys...)
		pipe.SRem(ctx, p.indexKey(), anyMembers...)
		for _, set := range sets {
			pipe.SRem(ctx, set, anyMembers...)
		}
		return nil
	})
	if err != nil {
		return 0, perr.Wrap(err, perr.CodeNetwork, "redis invalidate")
	}
	return int(del.Val()), nil
}

func (p *RedisProvider) removeKeys(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	itemKeys := make([]string, len(keys))
	members := make([]any, len(keys))
	for i, k := range keys {
		itemKeys[i] = p.itemKey(k)
		members[i] = k
	}

	var del *redis.IntCmd
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, itemKeys...)
		pipe.SRem(ctx, p.indexKey(), members...)
		return nil
	})
	if err != nil {
		return 0, perr.Wrap(err, perr.CodeNetwork, "redis remove")
	}
	return int(del.Val()), nil
}

// loadAll returns every valid item ordered by key.
func (p *RedisProvider) loadAll(ctx context.Context) ([]*cache.OutputCacheItem, error) {
	members, err := p.rdb.SMembers(ctx, p.indexKey()).Result()
	if err != nil {
		return nil, perr.Wrap(err, perr.CodeNetwork, "redis smembers index")
	}
	if len(members) == 0 {
		return nil, nil
	}
	sort.Strings(members)

	itemKeys := make([]string, len(members))
	for i, m := range members {
		itemKeys[i] = p.itemKey(m)
	}
	values, err := p.rdb.MGet(ctx, itemKeys...).Result()
	if err != nil {
		return nil, perr.Wrap(err, perr.CodeNetwork, "redis mget")
	}

	now := p.now()
	items := make([]*cache.OutputCacheItem, 0, len(values))
	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, members[i])
			continue
		}
		item, err := decodeItem([]byte(s))
		if err != nil {
			p.logger.Error("outputcache.redis.decode", "key", members[i], "error", err)
			continue
		}
		if item.IsValid(now) {
			items = append(items, item)
		}
	}

	if len(stale) > 0 {
		if err := p.rdb.SRem(ctx, p.indexKey(), stale...).Err(); err != nil {
			p.logger.Error("outputcache.redis.prune_index", "error", err)
		}
	}
	return items, nil
}

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisLock is a SET NX PX lease. A holder that outlives the lease loses the
// lock silently; Release then becomes a no-op.
type redisLock struct {
	rdb   redis.UniversalClient
	name  string
	key   string
	lease time.Duration
	retry time.Duration
}

func (l *redisLock) Key() string { return l.name }

// Acquire polls until the lock is taken. A non-positive timeout waits until
// ctx is done.
func (l *redisLock) Acquire(ctx context.Context, timeout time.Duration) (cache.LockHandle, error) {
	token := uuid.NewString()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, l.key, token, l.lease).Result()
		if err != nil {
			return nil, perr.Wrapf(err, perr.CodeNetwork, "redis lock %q", l.name)
		}
		if ok {
			return &redisLockHandle{lock: l, token: token}, nil
		}

		select {
		case <-ticker.C:
		case <-expired:
			return nil, perr.Wrapf(cache.ErrLockTimeout, perr.CodeTimeout, "lock %q not acquired within %s", l.name, timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *redisLock) IsLocked(ctx context.Context) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.key).Result()
	if err != nil {
		return false, perr.Wrapf(err, perr.CodeNetwork, "redis lock state %q", l.name)
	}
	return n > 0, nil
}

type redisLockHandle struct {
	lock  *redisLock
	token string
	once  sync.Once
}

func (h *redisLockHandle) Release(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		err = releaseScript.Run(ctx, h.lock.rdb, []string{h.lock.key}, h.token).Err()
		if errors.Is(err, redis.Nil) {
			err = nil
		}
	})
	if err != nil {
		return perr.Wrapf(err, perr.CodeNetwork, "redis unlock %q", h.lock.name)
	}
	return nil
}
