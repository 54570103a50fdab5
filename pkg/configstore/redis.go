package configstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

const keyPrefix = "meshdash:config:"

// RedisConfig configures the connection pool.
type RedisConfig struct {
	URL      string
	User     string
	Password string
}

// NewRedisPool dials lazily; connections idle for over a minute are
// pinged before reuse.
func NewRedisPool(ctx context.Context, cfg RedisConfig) (*redis.Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis not configured")
	}

	log.Info(ctx, "redis config store configured", j.KV("address", cfg.URL))

	do := []redis.DialOption{
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
	if cfg.User != "" || cfg.Password != "" {
		if cfg.Password == "" {
			return nil, errors.New("redis password missing for user", j.KV("user", cfg.User))
		}
		if cfg.User != "" {
			do = append(do, redis.DialUsername(cfg.User))
		}
		do = append(do, redis.DialPassword(cfg.Password))
	}

	return &redis.Pool{
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialURLContext(ctx, cfg.URL, do...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
		MaxIdle:     3,
		MaxActive:   10,
		IdleTimeout: time.Minute,
		Wait:        true,
	}, nil
}

// RedisRepository stores each user's config as a JSON string under
// meshdash:config:<user>.
type RedisRepository struct {
	pool *redis.Pool
}

var _ Repository = (*RedisRepository)(nil)

func NewRedisRepository(pool *redis.Pool) *RedisRepository {
	return &RedisRepository{pool: pool}
}

type redisRecord struct {
	Dashboards        []json.RawMessage `json:"dashboards"`
	ActiveDashboardID json.RawMessage   `json:"active_dashboard_id"`
	UpdatedAt         float64           `json:"updated_at"`
}

func configKey(userID string) string {
	return keyPrefix + userID
}

func (r *RedisRepository) Get(ctx context.Context, userID string) (StoredConfig, bool, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return StoredConfig{}, false, errors.Wrap(err, "get redis conn")
	}
	defer conn.Close()

	raw, err := redis.Bytes(conn.Do("GET", configKey(userID)))
	if errors.Is(err, redis.ErrNil) {
		return StoredConfig{}, false, nil
	} else if err != nil {
		return StoredConfig{}, false, errors.Wrap(err, "redis get config", j.KV("user", userID))
	}
	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return StoredConfig{}, false, errors.Wrap(err, "decode stored config", j.KV("user", userID))
	}
	return StoredConfig{
		Dashboards:        rec.Dashboards,
		ActiveDashboardID: rec.ActiveDashboardID,
		UpdatedAt:         rec.UpdatedAt,
	}, true, nil
}

func (r *RedisRepository) Put(ctx context.Context, userID string, cfg StoredConfig) error {
	raw, err := json.Marshal(redisRecord{
		Dashboards:        cfg.Dashboards,
		ActiveDashboardID: cfg.ActiveDashboardID,
		UpdatedAt:         cfg.UpdatedAt,
	})
	if err != nil {
		return errors.Wrap(err, "encode config", j.KV("user", userID))
	}
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return errors.Wrap(err, "get redis conn")
	}
	defer conn.Close()

	if _, err := conn.Do("SET", configKey(userID), raw); err != nil {
		return errors.Wrap(err, "redis set config", j.KV("user", userID))
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, userID string) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return errors.Wrap(err, "get redis conn")
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", configKey(userID)); err != nil {
		return errors.Wrap(err, "redis delete config", j.KV("user", userID))
	}
	return nil
}
