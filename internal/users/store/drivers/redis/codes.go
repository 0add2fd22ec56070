// Package redis keeps one-time codes in redis instead of the SQL store.
//
// Each code is a hash at {prefix}:code:{id} with two indexes beside it: a
// sorted set per digest scored by creation time and a set per user and kind.
// Every key carries the retention TTL so abandoned codes disappear on their own.
//
// A take touches the hash and both indexes in one script. Those keys hash to
// different cluster slots, so the driver runs against a single redis node or
// a sentinel-managed primary, not a cluster.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/store"
)

const (
	DefaultPrefix    = "quizverse"
	DefaultRetention = time.Hour
)

// takeCodeLua deletes a code and drops it from both indexes, but only when the
// hash still exists with the expected id and kind.
// KEYS[1] = code key
// KEYS[2] = digest index key
// KEYS[3] = user index key
// ARGV[1] = code id
// ARGV[2] = expected kind
//
// Returns 1 when this call removed the code, 0 otherwise.
var takeCodeLua = goredis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'id', 'kind')
if rec[1] ~= ARGV[1] or rec[2] ~= ARGV[2] then
  return 0
end

redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('SREM', KEYS[3], ARGV[1])
return 1
`)

// Codes implements store.Codes on redis.
type Codes struct {
	rdb       *goredis.Client
	prefix    string
	retention time.Duration
}

var _ store.Codes = (*Codes)(nil)

func NewCodes(rdb *goredis.Client, prefix string, retention time.Duration) *Codes {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Codes{rdb: rdb, prefix: prefix, retention: retention}
}

// Ping checks the redis connection.
func (c *Codes) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Codes) codeKey(id string) string {
	return c.prefix + ":code:" + id
}

func (c *Codes) digestKey(digest string) string {
	return c.prefix + ":digest:" + digest
}

func (c *Codes) userKey(userID string, kind domain.CodeKind) string {
	return c.prefix + ":user:" + userID + ":" + string(kind)
}

func (c *Codes) CreateCode(ctx context.Context, code domain.OneTimeCode) error {
	codeKey := c.codeKey(code.ID)

	exists, err := c.rdb.Exists(ctx, codeKey).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if exists > 0 {
		return &store.ConflictError{Field: "id"}
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, codeKey,
		"id", code.ID,
		"user_id", code.UserID,
		"kind", string(code.Kind),
		"digest", code.Digest,
		"created_at", code.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, codeKey, c.retention)

	digestKey := c.digestKey(code.Digest)
	pipe.ZAdd(ctx, digestKey, goredis.Z{Score: float64(code.CreatedAt.UnixMilli()), Member: code.ID})
	pipe.Expire(ctx, digestKey, c.retention)

	userKey := c.userKey(code.UserID, code.Kind)
	pipe.SAdd(ctx, userKey, code.ID)
	pipe.Expire(ctx, userKey, c.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis create code: %w", err)
	}
	return nil
}

func (c *Codes) DeleteCodes(ctx context.Context, userID string, kind domain.CodeKind) (int64, error) {
	userKey := c.userKey(userID, kind)
	ids, err := c.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers: %w", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	var n int64
	for _, id := range ids {
		_, found, err := c.TakeCode(ctx, id, kind)
		if err != nil {
			return n, err
		}
		if found {
			n++
		}
	}

	// Drop only the ids read above; a code added meanwhile keeps its entry.
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := c.rdb.SRem(ctx, userKey, members...).Err(); err != nil {
		return n, fmt.Errorf("redis srem: %w", err)
	}
	return n, nil
}

func (c *Codes) FindCode(ctx context.Context, userID, digest string, kind domain.CodeKind) (domain.OneTimeCode, bool, error) {
	digestKey := c.digestKey(digest)
	ids, err := c.rdb.ZRevRange(ctx, digestKey, 0, -1).Result()
	if err != nil {
		return domain.OneTimeCode{}, false, fmt.Errorf("redis zrevrange: %w", err)
	}

	// Newest of the wanted kind wins; otherwise the newest of any kind.
	var (
		other     domain.OneTimeCode
		haveOther bool
	)

	for _, id := range ids {
		fields, err := c.rdb.HGetAll(ctx, c.codeKey(id)).Result()
		if err != nil {
			return domain.OneTimeCode{}, false, fmt.Errorf("redis hgetall: %w", err)
		}
		if len(fields) == 0 {
			// The hash expired before its index entry.
			_ = c.rdb.ZRem(ctx, digestKey, id).Err()
			continue
		}

		code, err := decodeCode(fields)
		if err != nil {
			return domain.OneTimeCode{}, false, err
		}
		if userID != "" && code.UserID != userID {
			continue
		}
		if code.Kind == kind {
			return code, true, nil
		}
		if !haveOther {
			other, haveOther = code, true
		}
	}
	return other, haveOther, nil
}

// TakeCode reads the hash to learn its index keys, then removes all three in
// one script. The hash is never rewritten, so the read cannot go stale; the
// script still rechecks id and kind so only one caller wins.
func (c *Codes) TakeCode(ctx context.Context, id string, kind domain.CodeKind) (domain.OneTimeCode, bool, error) {
	fields, err := c.rdb.HGetAll(ctx, c.codeKey(id)).Result()
	if err != nil {
		return domain.OneTimeCode{}, false, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return domain.OneTimeCode{}, false, nil
	}

	code, err := decodeCode(fields)
	if err != nil {
		return domain.OneTimeCode{}, false, err
	}
	if code.Kind != kind {
		return domain.OneTimeCode{}, false, nil
	}
	return c.take(ctx, code)
}

func (c *Codes) take(ctx context.Context, code domain.OneTimeCode) (domain.OneTimeCode, bool, error) {
	keys := []string{
		c.codeKey(code.ID),
		c.digestKey(code.Digest),
		c.userKey(code.UserID, code.Kind),
	}
	removed, err := takeCodeLua.Run(ctx, c.rdb, keys, code.ID, string(code.Kind)).Int()
	if err != nil {
		return domain.OneTimeCode{}, false, fmt.Errorf("redis take code: %w", err)
	}
	if removed == 0 {
		return domain.OneTimeCode{}, false, nil
	}
	return code, true, nil
}

func (c *Codes) DeleteCodesBefore(ctx context.Context, kind domain.CodeKind, cutoff time.Time) (int64, error) {
	var n int64
	iter := c.rdb.Scan(ctx, 0, c.prefix+":code:*", 100).Iterator()
	for iter.Next(ctx) {
		fields, err := c.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return n, fmt.Errorf("redis hgetall: %w", err)
		}
		if len(fields) == 0 || fields["kind"] != string(kind) {
			continue
		}

		code, err := decodeCode(fields)
		if err != nil {
			return n, err
		}
		if !code.CreatedAt.Before(cutoff) {
			continue
		}

		if _, found, err := c.take(ctx, code); err != nil {
			return n, err
		} else if found {
			n++
		}
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

func decodeCode(fields map[string]string) (domain.OneTimeCode, error) {
	kind, err := domain.ParseCodeKind(fields["kind"])
	if err != nil {
		return domain.OneTimeCode{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return domain.OneTimeCode{}, fmt.Errorf("decode created_at: %w", err)
	}
	if strings.TrimSpace(fields["id"]) == "" {
		return domain.OneTimeCode{}, errors.New("decode code: missing id")
	}

	return domain.OneTimeCode{
		ID:        fields["id"],
		UserID:    fields["user_id"],
		Kind:      kind,
		Digest:    fields["digest"],
		CreatedAt: createdAt,
	}, nil
}
