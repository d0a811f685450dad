package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/WarehouseGo/internal/domain"
)

const (
	productKeyPrefix = "warehouse:product:"
	orderKeyPrefix   = "warehouse:order:"

	// Version keys hold the highest version seen for an id. They carry no TTL
	// so a tombstone outlives the document it replaced.
	productVersionPrefix = "warehouse:version:product:"
	orderVersionPrefix   = "warehouse:version:order:"
)

func productKey(id int64) string { return productKeyPrefix + strconv.FormatInt(id, 10) }
func orderKey(id int64) string   { return orderKeyPrefix + strconv.FormatInt(id, 10) }

func productVersionKey(id int64) string { return productVersionPrefix + strconv.FormatInt(id, 10) }
func orderVersionKey(id int64) string   { return orderVersionPrefix + strconv.FormatInt(id, 10) }

// putScript stores ARGV[1] at KEYS[1] unless KEYS[2] already holds a version
// above ARGV[2]. ARGV[3] is the TTL in milliseconds, 0 for none.
var putScript = redis.NewScript(`
local seen = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[2]) < seen then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// deleteScript removes KEYS[1] and records ARGV[1] at KEYS[2] unless a newer
// version is already recorded.
var deleteScript = redis.NewScript(`
local seen = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) < seen then
  return 0
end
redis.call('SET', KEYS[2], ARGV[1])
redis.call('DEL', KEYS[1])
return 1
`)

// Mirror keeps committed products and orders in Redis as JSON documents.
type Mirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMirror creates a Redis-backed mirror. Entries expire after ttl; zero
// keeps them until overwritten or deleted.
func NewMirror(client *redis.Client, ttl time.Duration) *Mirror {
	return &Mirror{client: client, ttl: ttl}
}

func (m *Mirror) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := m.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Product returns the mirrored product, if any.
func (m *Mirror) Product(ctx context.Context, id int64) (*domain.Product, bool, error) {
	var p domain.Product
	ok, err := m.get(ctx, productKey(id), &p)
	if !ok || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// PutProducts writes products in one pipeline. A product whose version is
// older than the one already recorded is skipped.
func (m *Mirror) PutProducts(ctx context.Context, products ...domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	_, err := m.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range products {
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("marshal product %d: %w", p.ID, err)
			}
			putScript.Eval(ctx, pipe,
				[]string{productKey(p.ID), productVersionKey(p.ID)},
				data, p.Version, m.ttl.Milliseconds())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put products: %w", err)
	}
	return nil
}

// DeleteProduct removes a product and records the removal version.
func (m *Mirror) DeleteProduct(ctx context.Context, id, version int64) error {
	err := deleteScript.Run(ctx, m.client, []string{productKey(id), productVersionKey(id)}, version).Err()
	if err != nil {
		return fmt.Errorf("redis del product: %w", err)
	}
	return nil
}

// Order returns the mirrored order, if any.
func (m *Mirror) Order(ctx context.Context, id int64) (*domain.Order, bool, error) {
	var o domain.Order
	ok, err := m.get(ctx, orderKey(id), &o)
	if !ok || err != nil {
		return nil, false, err
	}
	return &o, true, nil
}

// PutOrder writes an order with its items unless a newer version of it is
// already recorded.
func (m *Mirror) PutOrder(ctx context.Context, o *domain.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order %d: %w", o.ID, err)
	}
	err = putScript.Run(ctx, m.client,
		[]string{orderKey(o.ID), orderVersionKey(o.ID)},
		data, o.Version, m.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set order: %w", err)
	}
	return nil
}

// DeleteOrder removes an order and records the removal version.
func (m *Mirror) DeleteOrder(ctx context.Context, id, version int64) error {
	err := deleteScript.Run(ctx, m.client, []string{orderKey(id), orderVersionKey(id)}, version).Err()
	if err != nil {
		return fmt.Errorf("redis del order: %w", err)
	}
	return nil
}
