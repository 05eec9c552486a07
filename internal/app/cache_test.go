package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/memos/internal/config"
	"github.com/iliyamo/memos/internal/repository"
	"github.com/iliyamo/memos/internal/service"
)

type switchDB struct{ down atomic.Bool }

func (d *switchDB) PingContext(context.Context) error {
	if d.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestCacheLeavesProbesAndMetricsAlone(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	db := &switchDB{}

	e := NewServer(config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		BcryptCost:     bcrypt.MinCost,
		DataDir:        t.TempDir(),
		MaxUploadBytes: 1 << 20,
	}, service.MemoryStores(repository.NewMemory()), Options{
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Redis:  rdb,
		DB:     db,
	})
	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	db.down.Store(true)
	rec = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	get("/metrics")
	rec = get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	// the API group is still cached
	assert.Equal(t, "MISS", get("/v1/memos").Header().Get("X-Cache"))
	assert.Equal(t, "HIT", get("/v1/memos").Header().Get("X-Cache"))
}
