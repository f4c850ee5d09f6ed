package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/bgblast/internal/composite"
	"github.com/ekisa-team/bgblast/internal/config"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) *redis.StringCmd {
	return m.Called(ctx, key).Get(0).(*redis.StringCmd)
}

func (m *MockStore) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	return m.Called(ctx, key, value, expiration).Get(0).(*redis.StatusCmd)
}

func (m *MockStore) Ping(ctx context.Context) *redis.StatusCmd {
	return m.Called(ctx).Get(0).(*redis.StatusCmd)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func testEntry() *Entry {
	return &Entry{
		MaskFile:      composite.File{Name: "a-mask.png", ContentType: composite.ContentTypePNG, Data: []byte{1, 2}},
		ProcessedFile: composite.File{Name: "a-bg-blasted.png", ContentType: composite.ContentTypePNG, Data: []byte{3}},
	}
}

func TestKey(t *testing.T) {
	k1 := Key("briaai/RMBG-1.4", []byte("image"))
	k2 := Key("briaai/RMBG-1.4", []byte("image"))
	k3 := Key("Xenova/modnet", []byte("image"))
	k4 := Key("briaai/RMBG-1.4", []byte("image"), []byte("0,0,10,10"))

	assert.True(t, strings.HasPrefix(k1, "bgblast:result:briaai/RMBG-1.4:"))
	assert.Len(t, strings.TrimPrefix(k1, "bgblast:result:briaai/RMBG-1.4:"), 64)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k1, k4)
}

func TestNew(t *testing.T) {
	assert.IsType(t, Noop{}, New(config.CacheConfig{}))

	c := New(config.CacheConfig{RedisAddr: "127.0.0.1:0", TTL: time.Minute})
	assert.IsType(t, &Redis{}, c)
	require.NoError(t, c.Close())
}

func TestConnect_WithoutAddress(t *testing.T) {
	assert.IsType(t, Noop{}, Connect(context.Background(), config.CacheConfig{}))
}

func TestVerify(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		store := new(MockStore)
		store.On("Ping", mock.Anything).Return(redis.NewStatusResult("PONG", nil)).Once()

		r := &Redis{client: store}
		assert.Same(t, r, verify(context.Background(), r, "localhost:6379"))
		store.AssertNotCalled(t, "Close")
	})

	t.Run("unreachable", func(t *testing.T) {
		store := new(MockStore)
		store.On("Ping", mock.Anything).Return(redis.NewStatusResult("", errors.New("connection refused"))).Once()
		store.On("Close").Return(nil).Once()

		c := verify(context.Background(), &Redis{client: store}, "localhost:6379")
		assert.IsType(t, Noop{}, c)
		store.AssertExpectations(t)
	})
}

func TestFingerprint(t *testing.T) {
	base := config.Default().Models.Accelerated

	changed := base
	changed.File = "onnx/model_fp16.onnx"

	resized := base
	resized.Preprocess.ShortestEdge = 256

	assert.Equal(t, Fingerprint(base), Fingerprint(base))
	assert.NotEqual(t, Fingerprint(base), Fingerprint(changed))
	assert.NotEqual(t, Fingerprint(base), Fingerprint(resized))
	assert.NotEqual(t,
		Key(base.ID, Fingerprint(base), []byte("image")),
		Key(base.ID, Fingerprint(changed), []byte("image")),
	)
}

func TestNoop(t *testing.T) {
	var c Noop
	c.Set(context.Background(), "k", testEntry())
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}

func TestRedis_GetHit(t *testing.T) {
	data, err := json.Marshal(testEntry())
	require.NoError(t, err)

	store := new(MockStore)
	store.On("Get", mock.Anything, "k").Return(redis.NewStringResult(string(data), nil)).Once()

	r := &Redis{client: store, ttl: time.Hour}
	got, ok := r.Get(context.Background(), "k")
	require.True(t, ok)
	assert.Equal(t, testEntry(), got)
}

func TestRedis_GetMissAndErrors(t *testing.T) {
	store := new(MockStore)
	store.On("Get", mock.Anything, "miss").Return(redis.NewStringResult("", redis.Nil)).Once()
	store.On("Get", mock.Anything, "down").Return(redis.NewStringResult("", errors.New("connection refused"))).Once()
	store.On("Get", mock.Anything, "junk").Return(redis.NewStringResult("{not json", nil)).Once()

	r := &Redis{client: store}
	for _, key := range []string{"miss", "down", "junk"} {
		_, ok := r.Get(context.Background(), key)
		assert.False(t, ok, key)
	}
	store.AssertExpectations(t)
}

func TestRedis_Set(t *testing.T) {
	store := new(MockStore)
	store.On("Set", mock.Anything, "k", mock.AnythingOfType("[]uint8"), 24*time.Hour).
		Return(redis.NewStatusResult("OK", nil)).Once()
	store.On("Set", mock.Anything, "broken", mock.Anything, 24*time.Hour).
		Return(redis.NewStatusResult("", errors.New("READONLY"))).Once()

	r := &Redis{client: store, ttl: 24 * time.Hour}
	r.Set(context.Background(), "k", testEntry())
	r.Set(context.Background(), "broken", testEntry())

	store.AssertExpectations(t)
}
