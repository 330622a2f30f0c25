package store

import (
	"testing"

	"lightning-pos/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newTestKV spins up an in-process Redis and wraps it in the KV adapter
func newTestKV(t *testing.T) storage.KV {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return storage.NewRedisKVFromClient(client)
}
