package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/order/application"
	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/redis/go-redis/v9"
)

// CachedRepository is a read-through cache over another order store; the
// underlying store stays authoritative. Each order has a generation counter
// that every write bumps after it commits. Entries record the generation seen
// before the store read, so a fill racing a write is never served.
type CachedRepository struct {
	application.OrderRepository
	log    *slog.Logger
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

type entry struct {
	Gen   int64        `json:"gen"`
	Order domain.Order `json:"order"`
}

func NewCachedRepository(log *slog.Logger, next application.OrderRepository, rdb redis.Cmdable, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		OrderRepository: next,
		log:             log.With("component", "order-cache"),
		rdb:             rdb,
		ttl:             ttl,
		prefix:          "order:",
	}
}

func (c *CachedRepository) key(id int64) string {
	return fmt.Sprintf("%s%d", c.prefix, id)
}

func (c *CachedRepository) genKey(id int64) string {
	return fmt.Sprintf("%sgen:%d", c.prefix, id)
}

func (c *CachedRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	gen, cached, ok := c.lookup(ctx, id)
	if ok {
		return cached, nil
	}

	o, err := c.OrderRepository.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if gen < 0 {
		return o, nil
	}
	if payload, err := json.Marshal(entry{Gen: gen, Order: o}); err == nil {
		if err := c.rdb.Set(ctx, c.key(id), payload, c.ttl).Err(); err != nil {
			c.log.Warn("order cache write failed", "order_id", id, "err", err)
		}
	}
	return o, nil
}

// lookup returns the current generation and the cached order when its entry
// belongs to that generation. A negative generation means redis is unusable.
func (c *CachedRepository) lookup(ctx context.Context, id int64) (int64, domain.Order, bool) {
	vals, err := c.rdb.MGet(ctx, c.key(id), c.genKey(id)).Result()
	if err != nil || len(vals) != 2 {
		c.log.Warn("order cache read failed", "order_id", id, "err", err)
		return -1, domain.Order{}, false
	}

	var gen int64
	if raw, ok := vals[1].(string); ok {
		gen, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.log.Warn("discarding unreadable cache generation", "order_id", id)
			return -1, domain.Order{}, false
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return gen, domain.Order{}, false
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.log.Warn("discarding unreadable cache entry", "order_id", id)
		return gen, domain.Order{}, false
	}
	if e.Gen != gen {
		return gen, domain.Order{}, false
	}
	return gen, e.Order, true
}

func (c *CachedRepository) TransitionStatus(ctx context.Context, id int64, from []domain.OrderStatus, to domain.OrderStatus) (domain.OrderStatus, bool, error) {
	prev, moved, err := c.OrderRepository.TransitionStatus(ctx, id, from, to)
	if moved {
		c.invalidate(ctx, id)
	}
	return prev, moved, err
}

func (c *CachedRepository) SetTrackingNumber(ctx context.Context, id int64, tracking string) error {
	if err := c.OrderRepository.SetTrackingNumber(ctx, id, tracking); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// invalidate runs after the write committed. The generation outlives any
// entry filled before it was bumped.
func (c *CachedRepository) invalidate(ctx context.Context, id int64) {
	if err := c.rdb.Incr(ctx, c.genKey(id)).Err(); err != nil {
		c.log.Warn("order cache generation bump failed", "order_id", id, "err", err)
	} else if err := c.rdb.Expire(ctx, c.genKey(id), 2*c.ttl).Err(); err != nil {
		c.log.Warn("order cache generation expiry failed", "order_id", id, "err", err)
	}
	if err := c.rdb.Del(ctx, c.key(id)).Err(); err != nil {
		c.log.Warn("order cache evict failed", "order_id", id, "err", err)
	}
}
