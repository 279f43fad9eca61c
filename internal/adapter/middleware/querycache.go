package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	genKey      = "qc:gen"
	HeaderCache = "X-Cache"
	cacheOpTTL  = time.Second
)

// QueryCache keeps successful GET responses in redis for a short TTL. Entries
// are keyed by a generation counter; Invalidate bumps the counter so stale
// entries are never read again and expire on their own.
// A nil client disables both caching and invalidation.
type QueryCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewQueryCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *QueryCache {
	return &QueryCache{rdb: rdb, ttl: ttl, log: log}
}

func (q *QueryCache) generation(ctx context.Context) (string, error) {
	g, err := q.rdb.Get(ctx, genKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return g, err
}

func cacheKey(gen string, r *http.Request) string {
	return "qc:" + gen + ":" + r.URL.Path + "?" + r.URL.RawQuery
}

// Cache serves GET responses from redis. Redis failures fall through to the
// handler. Install it after the authorization check of the route.
func (q *QueryCache) Cache() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if q.rdb == nil || req.Method != http.MethodGet {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(req.Context(), cacheOpTTL)
			defer cancel()

			gen, err := q.generation(ctx)
			if err != nil {
				q.log.Warn("query cache generation", zap.Error(err))
				return next(c)
			}
			key := cacheKey(gen, req)
			if b, err := q.rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set(HeaderCache, "HIT")
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, b)
			} else if !errors.Is(err, redis.Nil) {
				q.log.Warn("query cache read", zap.String("key", key), zap.Error(err))
			}

			c.Response().Header().Set(HeaderCache, "MISS")
			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				return err
			}
			if rec.code == http.StatusOK && rec.buf.Len() > 0 {
				if err := q.rdb.Set(context.Background(), key, rec.buf.Bytes(), q.ttl).Err(); err != nil {
					q.log.Warn("query cache write", zap.String("key", key), zap.Error(err))
				}
			}
			return nil
		}
	}
}

// Invalidate bumps the cache generation after a successful mutation.
func (q *QueryCache) Invalidate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if q.rdb == nil || err != nil || c.Response().Status >= http.StatusMultipleChoices {
				return err
			}
			if e := q.Bump(c.Request().Context()); e != nil {
				q.log.Warn("query cache invalidate", zap.Error(e))
			}
			return nil
		}
	}
}

// Bump advances the generation counter.
func (q *QueryCache) Bump(ctx context.Context) error {
	if q.rdb == nil {
		return nil
	}
	return q.rdb.Incr(ctx, genKey).Err()
}
