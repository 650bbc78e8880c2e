package infrastructure

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"shopgrid/internal/pkg/redis"
	"shopgrid/internal/service/inventory/domain"
)

const (
	reserveScriptName = "stock_reserve"
	releaseScriptName = "stock_release"
)

// Result codes shared by both scripts.
const (
	scriptOK           = 1
	scriptNoop         = 0
	scriptInsufficient = -1
	scriptUnknown      = -2
	scriptMismatch     = -3
)

// reserveScript decrements stock only when enough remains, in one atomic
// evaluation. A reservation already recorded for this (order, quantity) is
// answered as success without touching the counter, so a retried reserve
// cannot double-decrement; the same order asking for a different quantity is
// rejected. The stock counter is checked for existence before either branch:
// a surviving reservation hash never implies a live counter.
//
// KEYS[1] stock counter, KEYS[2] reservation hash; ARGV[1] quantity,
// ARGV[2] order id. Returns {code, quantity}.
const reserveScript = `
local stock = tonumber(redis.call('get', KEYS[1]))
if stock == nil then
    return {-2, 0}
end
local held = redis.call('hget', KEYS[2], ARGV[2])
if held then
    if tonumber(held) == tonumber(ARGV[1]) then
        return {1, stock}
    end
    return {-3, tonumber(held)}
end
local qty = tonumber(ARGV[1])
if stock < qty then
    return {-1, stock}
end
redis.call('decrby', KEYS[1], qty)
redis.call('hset', KEYS[2], ARGV[2], qty)
return {1, stock - qty}
`

// releaseScript credits back the quantity recorded for this order and drops
// the record. Without a record it is a no-op, which is what makes retried
// compensation safe.
//
// KEYS[1] stock counter, KEYS[2] reservation hash; ARGV[1] order id.
// Returns {code, quantity}.
const releaseScript = `
local qty = redis.call('hget', KEYS[2], ARGV[1])
if not qty then
    local stock = tonumber(redis.call('get', KEYS[1]))
    if stock == nil then
        return {-2, 0}
    end
    return {0, stock}
end
redis.call('hdel', KEYS[2], ARGV[1])
return {1, redis.call('incrby', KEYS[1], tonumber(qty))}
`

// RedisStockStore keeps the authoritative stock counters in Redis. Both
// mutation paths are single Lua evaluations, so the check and the write
// cannot interleave with a concurrent caller's.
type RedisStockStore struct {
	client *redis.Client
}

func NewRedisStockStore(client *redis.Client) *RedisStockStore {
	client.LoadScript(reserveScriptName, reserveScript)
	client.LoadScript(releaseScriptName, releaseScript)
	return &RedisStockStore{client: client}
}

// Hash tags keep both keys of one product in the same cluster slot.
func stockKey(productID string) string {
	return fmt.Sprintf("inventory:stock:{%s}", productID)
}

func reservationKey(productID string) string {
	return fmt.Sprintf("inventory:resv:{%s}", productID)
}

func (s *RedisStockStore) Set(ctx context.Context, productID string, quantity int) error {
	err := s.client.Raw().Set(ctx, stockKey(productID), quantity, 0).Err()
	return errors.Wrapf(err, "set stock for %s", productID)
}

func (s *RedisStockStore) Get(ctx context.Context, productID string) (int, error) {
	qty, err := s.client.Raw().Get(ctx, stockKey(productID)).Int()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, domain.ErrProductNotFound
		}
		return 0, errors.Wrapf(err, "get stock for %s", productID)
	}
	return qty, nil
}

func (s *RedisStockStore) Reserve(ctx context.Context, productID string, quantity int, orderID string) (int, error) {
	keys := []string{stockKey(productID), reservationKey(productID)}
	res, err := s.client.RunScript(ctx, reserveScriptName, keys, quantity, orderID)
	if err != nil {
		return 0, errors.Wrapf(err, "reserve %d of %s", quantity, productID)
	}

	code, qty, err := decodeScriptResult(res)
	if err != nil {
		return 0, err
	}
	switch code {
	case scriptOK:
		return qty, nil
	case scriptInsufficient:
		return 0, &domain.InsufficientStock{ProductID: productID, Requested: quantity, Available: qty}
	case scriptUnknown:
		return 0, domain.ErrProductNotFound
	case scriptMismatch:
		return 0, fmt.Errorf("%w: order %s already holds %d units of product %s",
			domain.ErrValidation, orderID, qty, productID)
	default:
		return 0, fmt.Errorf("unexpected reserve result code %d", code)
	}
}

func (s *RedisStockStore) Release(ctx context.Context, productID string, orderID string) (int, error) {
	keys := []string{stockKey(productID), reservationKey(productID)}
	res, err := s.client.RunScript(ctx, releaseScriptName, keys, orderID)
	if err != nil {
		return 0, errors.Wrapf(err, "release %s for order %s", productID, orderID)
	}

	code, qty, err := decodeScriptResult(res)
	if err != nil {
		return 0, err
	}
	switch code {
	case scriptOK, scriptNoop:
		return qty, nil
	case scriptUnknown:
		return 0, domain.ErrProductNotFound
	default:
		return 0, fmt.Errorf("unexpected release result code %d", code)
	}
}

func (s *RedisStockStore) Remove(ctx context.Context, productID string) error {
	err := s.client.Raw().Del(ctx, stockKey(productID), reservationKey(productID)).Err()
	return errors.Wrapf(err, "remove stock for %s", productID)
}

func decodeScriptResult(res any) (code int64, qty int, err error) {
	vals, ok := res.([]any)
	if !ok || len(vals) != 2 {
		return 0, 0, fmt.Errorf("unexpected script result %T", res)
	}
	code, ok = vals[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected script code %T", vals[0])
	}
	n, ok := vals[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected script quantity %T", vals[1])
	}
	return code, int(n), nil
}
