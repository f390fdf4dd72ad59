package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"

	"pipeline-workers/domain"
)

func TestRedisKV_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	kv := &redisKV{client: db}
	ctx := context.TODO()

	// Success
	mock.ExpectGet("status:a.csv").SetVal(`{"status":"done"}`)
	val, err := kv.Get(ctx, "status:a.csv")
	assert.NoError(t, err)
	assert.Equal(t, `{"status":"done"}`, val)

	// Missing
	mock.ExpectGet("status:b.csv").RedisNil()
	_, err = kv.Get(ctx, "status:b.csv")
	assert.True(t, domain.IsNotFound(err))

	// Error
	mock.ExpectGet("status:c.csv").SetErr(errors.New("redis error"))
	_, err = kv.Get(ctx, "status:c.csv")
	assert.Error(t, err)
	assert.False(t, domain.IsNotFound(err))
	assert.Contains(t, err.Error(), "redis get failure")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRedisKV_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	kv := &redisKV{client: db}
	ctx := context.TODO()

	mock.ExpectSet("sync_status", "v", 0).SetVal("OK")
	assert.NoError(t, kv.Set(ctx, "sync_status", "v"))

	mock.ExpectSet("sync_status", "v", 0).SetErr(errors.New("redis error"))
	err := kv.Set(ctx, "sync_status", "v")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis set failure")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRedisKV_Scan(t *testing.T) {
	db, mock := redismock.NewClientMock()
	kv := &redisKV{client: db}
	ctx := context.TODO()

	mock.ExpectScan(0, "status:*", scanBatch).SetVal([]string{"status:a.csv"}, 7)
	mock.ExpectGet("status:a.csv").SetVal("A")
	mock.ExpectScan(7, "status:*", scanBatch).SetVal([]string{"status:b.csv", "status:gone.csv"}, 0)
	mock.ExpectGet("status:b.csv").SetVal("B")
	mock.ExpectGet("status:gone.csv").RedisNil()

	out, err := kv.Scan(ctx, "status:")
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"status:a.csv": "A", "status:b.csv": "B"}, out)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRedisKV_ScanError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	kv := &redisKV{client: db}

	mock.ExpectScan(0, "status:*", scanBatch).SetErr(errors.New("connection refused"))
	_, err := kv.Scan(context.TODO(), "status:")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis scan failure")
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	_, err := kv.Get(ctx, "k")
	assert.True(t, domain.IsNotFound(err))

	assert.NoError(t, kv.Set(ctx, "status:a", "1"))
	assert.NoError(t, kv.Set(ctx, "clean_status:a", "2"))
	v, err := kv.Get(ctx, "status:a")
	assert.NoError(t, err)
	assert.Equal(t, "1", v)

	out, err := kv.Scan(ctx, "status:")
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"status:a": "1"}, out)
	assert.Equal(t, []string{"clean_status:a", "status:a"}, kv.Keys())
}
