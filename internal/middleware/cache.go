package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/memos/internal/config"
)

// bodyRecorder copies the response body up to limit bytes while
// forwarding it to the client.
type bodyRecorder struct {
	http.ResponseWriter
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
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

// encodeEntry packs [4 bytes status][4 bytes header length][header JSON][body].
func encodeEntry(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, body...), nil
}

func decodeEntry(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	n := int(binary.BigEndian.Uint32(bs[4:8]))
	if 8+n > len(bs) {
		return 0, nil, nil, false
	}
	header := make(http.Header)
	if n > 0 {
		if err := json.Unmarshal(bs[8:8+n], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+n:], true
}

// Cache serves anonymous reads from redis.
//
// Only requests without an Authorization header are cached, so an entry
// can never hold data beyond what the anonymous principal may see.  Every
// successful write request bumps a generation counter that is part of
// each key, which retires all earlier entries at once.
type Cache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Second
	}
	return &Cache{cfg: cfg, rdb: rdb}
}

func (m *Cache) genKey() string { return m.cfg.Prefix + ":gen" }

func (m *Cache) entryKey(ctx context.Context, r *http.Request) (string, error) {
	gen, err := m.rdb.Get(ctx, m.genKey()).Result()
	if errors.Is(err, redis.Nil) {
		gen = "0"
	} else if err != nil {
		return "", err
	}
	sum := sha1.Sum([]byte(r.Method + " " + r.URL.RequestURI()))
	return fmt.Sprintf("%s:%s:%x", m.cfg.Prefix, gen, sum), nil
}

// Middleware returns the echo middleware.  A disabled cache passes
// requests through untouched.
func (m *Cache) Middleware() echo.MiddlewareFunc {
	if m == nil || !m.cfg.Enabled || m.rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			method := strings.ToUpper(req.Method)
			if !m.cfg.Methods[method] {
				err := next(c)
				if err == nil && !isSafe(method) && c.Response().Status < http.StatusBadRequest {
					m.invalidate(req.Context())
				}
				return err
			}
			if req.Header.Get(echo.HeaderAuthorization) != "" {
				return next(c)
			}

			ctx := req.Context()
			key, err := m.entryKey(ctx, req)
			if err != nil {
				slog.WarnContext(ctx, "cache unavailable", "err", err)
				return next(c)
			}
			if bs, err := m.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, header, body, ok := decodeEntry(bs); ok {
					out := c.Response().Header()
					for k, vs := range header {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vs {
							out.Add(k, v)
						}
					}
					out.Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, err := c.Response().Write(body)
					return err
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, limit: m.cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status != http.StatusOK || rec.overflow {
				return nil
			}
			header := c.Response().Header().Clone()
			header.Del("X-Cache")
			entry, err := encodeEntry(http.StatusOK, header, rec.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := m.rdb.Set(context.WithoutCancel(ctx), key, entry, m.cfg.TTL).Err(); err != nil {
				slog.WarnContext(ctx, "cache store", "err", err)
			}
			return nil
		}
	}
}

func (m *Cache) invalidate(ctx context.Context) {
	if err := m.rdb.Incr(context.WithoutCancel(ctx), m.genKey()).Err(); err != nil {
		slog.WarnContext(ctx, "cache invalidate", "err", err)
	}
}

func isSafe(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
