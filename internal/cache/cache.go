// Package cache stores processing results keyed by input digest and model.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ekisa-team/bgblast/internal/composite"
	"github.com/ekisa-team/bgblast/internal/config"
)

const (
	keyPrefix   = "bgblast:result:"
	pingTimeout = 3 * time.Second
)

// Entry is the cached part of a processing result.
type Entry struct {
	MaskFile      composite.File `json:"mask_file"`
	ProcessedFile composite.File `json:"processed_file"`
}

// Cache is a best-effort result cache. Failures are logged, never returned.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, entry *Entry)
	Close() error
}

// New returns a Redis cache when an address is configured, otherwise a no-op.
func New(cfg config.CacheConfig) Cache {
	if cfg.RedisAddr == "" {
		return Noop{}
	}
	return NewRedis(cfg)
}

// Connect is New followed by a ping. An unreachable Redis degrades to Noop so
// the service still starts.
func Connect(ctx context.Context, cfg config.CacheConfig) Cache {
	r, ok := New(cfg).(*Redis)
	if !ok {
		return Noop{}
	}
	return verify(ctx, r, cfg.RedisAddr)
}

func verify(ctx context.Context, r *Redis, addr string) Cache {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		slog.Warn("Redis unreachable, result cache disabled", "addr", addr, "error", err)
		_ = r.Close()
		return Noop{}
	}

	slog.Info("Result cache connected", "addr", addr)
	return r
}

// Fingerprint encodes everything in mc that changes the model output, for use
// as a Key part.
func Fingerprint(mc config.ModelConfig) []byte {
	data, err := json.Marshal(mc)
	if err != nil {
		return []byte(mc.ID)
	}
	return data
}

// Key builds the cache key for an input under modelID. parts are hashed in
// order, so request options that change the output belong in them.
func Key(modelID string, parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return keyPrefix + modelID + ":" + hex.EncodeToString(h.Sum(nil))
}

// Noop never stores anything.
type Noop struct{}

// Get implements Cache.
func (Noop) Get(context.Context, string) (*Entry, bool) { return nil, false }

// Set implements Cache.
func (Noop) Set(context.Context, string, *Entry) {}

// Close implements Cache.
func (Noop) Close() error { return nil }
