package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/duo/internal/config"
)

// cachedResponse is what the cache stores per key.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// captureWriter tees the response body into buf until limit is exceeded.
type captureWriter struct {
	http.ResponseWriter
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *captureWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	return cacheKey(cfg, c.Request().URL.Path, c.Request().URL.Query())
}

func cacheKey(cfg config.CacheConfig, path string, query url.Values) string {
	tail := path
	if !strings.EqualFold(cfg.KeyStrategy, "route") {
		tail += "?" + query.Encode()
	}
	sum := sha1.Sum([]byte(tail))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisCache serves repeated public lookups from Redis for cfg.TTL.
// Only 200 responses within MaxBodyBytes are stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(hit.Status, hit.ContentType, hit.Body)
				}
			} else if err != redis.Nil {
				log.Warn("cache.get_failed", "err", err)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status != http.StatusOK || cw.overflow {
				return nil
			}

			raw, err := json.Marshal(cachedResponse{
				Status:      http.StatusOK,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        cw.buf.Bytes(),
			})
			if err == nil {
				err = rdb.Set(context.WithoutCancel(ctx), key, raw, cfg.TTL).Err()
			}
			if err != nil {
				log.Warn("cache.set_failed", "err", err)
			}
			return nil
		}
	}
}

// userCacheKeys are the keys under which base+"/:uid" and the tag search
// for fullTag are cached.
func userCacheKeys(cfg config.CacheConfig, base, uid, fullTag string) []string {
	keys := []string{cacheKey(cfg, base+"/"+uid, nil)}
	if fullTag != "" {
		keys = append(keys, cacheKey(cfg, base+"/search", url.Values{"tag": {fullTag}}))
	}
	return keys
}

// InvalidateUserCache drops the cached profile and tag search of the user
// at :uid once a write on that user succeeds. Routes using it must be
// self-only, since the tag comes from the authenticated user.
func InvalidateUserCache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger, base string) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if st := c.Response().Status; st < 200 || st > 299 {
				return nil
			}
			var tag string
			if u := CurrentUser(c); u != nil {
				tag = u.FullTag
			}
			keys := userCacheKeys(cfg, base, c.Param("uid"), tag)
			if err := rdb.Del(context.WithoutCancel(c.Request().Context()), keys...).Err(); err != nil {
				log.Warn("cache.invalidate_failed", "err", err)
			}
			return nil
		}
	}
}
