package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
)

const keyAll = "matches:all"

func keyMatch(matchID string) string { return "matches:id:" + matchID }

// Cache decora uma fonte de partidas com cache Redis (JSON + TTL)
// Misses concorrentes da mesma chave são coalescidos com singleflight
type Cache struct {
	R   *redis.Client
	Src domain.MatchSource
	TTL time.Duration

	group singleflight.Group
}

func New(r *redis.Client, src domain.MatchSource, ttl time.Duration) *Cache {
	return &Cache{R: r, Src: src, TTL: ttl}
}

// GetMatch busca no cache e, em caso de miss ou falha do Redis, na fonte
func (c *Cache) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	var m domain.Match
	if ok, err := c.get(ctx, keyMatch(matchID), &m); err == nil && ok {
		return m, nil
	}
	v, err, _ := c.group.Do(keyMatch(matchID), func() (any, error) {
		m, err := c.Src.GetMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}
		_ = c.set(ctx, keyMatch(matchID), m)
		return m, nil
	})
	if err != nil {
		return domain.Match{}, err
	}
	return v.(domain.Match), nil
}

func (c *Cache) ListMatches(ctx context.Context) ([]domain.Match, error) {
	var ms []domain.Match
	if ok, err := c.get(ctx, keyAll, &ms); err == nil && ok {
		return ms, nil
	}
	v, err, _ := c.group.Do(keyAll, func() (any, error) {
		ms, err := c.Src.ListMatches(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.set(ctx, keyAll, ms)
		return ms, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Match), nil
}

// Invalidate remove a partida (e a listagem) do cache, ex.: quando a partida termina
func (c *Cache) Invalidate(ctx context.Context, matchID string) error {
	return c.R.Del(ctx, keyMatch(matchID), keyAll).Err()
}

func (c *Cache) get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, b, c.TTL).Err()
}
