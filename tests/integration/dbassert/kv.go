//go:build integration

// Package dbassert reads the kv_store table/collection (or the Redis keyspace)
// directly so tests can assert what the application persisted without going
// through its storage layer.
package dbassert

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const table = "kv_store"

// PostgresKeys returns every key in kv_store starting with prefix, sorted.
func PostgresKeys(t *testing.T, ctx context.Context, pool *pgxpool.Pool, prefix string) []string {
	t.Helper()
	rows, err := pool.Query(ctx, `SELECT key FROM `+table+` ORDER BY key`)
	require.NoError(t, err)
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		require.NoError(t, rows.Scan(&key))
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	require.NoError(t, rows.Err())
	return keys
}

// PostgresValue returns the raw value stored under key.
func PostgresValue(t *testing.T, ctx context.Context, pool *pgxpool.Pool, key string) []byte {
	t.Helper()
	var value []byte
	err := pool.QueryRow(ctx, `SELECT value FROM `+table+` WHERE key = $1`, key).Scan(&value)
	require.NoError(t, err, "key %s", key)
	return value
}

// ClearPostgres empties kv_store.
func ClearPostgres(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(ctx, `DELETE FROM `+table)
	if err != nil && !strings.Contains(err.Error(), "does not exist") {
		require.NoError(t, err)
	}
}

// MongoKeys returns every document id in kv_store starting with prefix, sorted.
func MongoKeys(t *testing.T, ctx context.Context, db *mongo.Database, prefix string) []string {
	t.Helper()
	cursor, err := db.Collection(table).Find(ctx, bson.M{})
	require.NoError(t, err)
	defer func() { _ = cursor.Close(ctx) }()

	var keys []string
	for cursor.Next(ctx) {
		var doc struct {
			Key string `bson:"_id"`
		}
		require.NoError(t, cursor.Decode(&doc))
		if strings.HasPrefix(doc.Key, prefix) {
			keys = append(keys, doc.Key)
		}
	}
	require.NoError(t, cursor.Err())
	sort.Strings(keys)
	return keys
}

// MongoValue returns the raw value stored under key.
func MongoValue(t *testing.T, ctx context.Context, db *mongo.Database, key string) []byte {
	t.Helper()
	var doc struct {
		Value []byte `bson:"value"`
	}
	require.NoError(t, db.Collection(table).FindOne(ctx, bson.M{"_id": key}).Decode(&doc), "key %s", key)
	return doc.Value
}

// ClearMongo empties kv_store.
func ClearMongo(t *testing.T, ctx context.Context, db *mongo.Database) {
	t.Helper()
	_, err := db.Collection(table).DeleteMany(ctx, bson.M{})
	require.NoError(t, err)
}

// RedisKeys returns every key starting with prefix, sorted.
func RedisKeys(t *testing.T, ctx context.Context, client *redis.Client, prefix string) []string {
	t.Helper()
	var keys []string
	iter := client.Scan(ctx, 0, "*", 100).Iterator()
	for iter.Next(ctx) {
		if strings.HasPrefix(iter.Val(), prefix) {
			keys = append(keys, iter.Val())
		}
	}
	require.NoError(t, iter.Err())
	sort.Strings(keys)
	return keys
}

// RedisValue returns the raw value stored under key.
func RedisValue(t *testing.T, ctx context.Context, client *redis.Client, key string) []byte {
	t.Helper()
	value, err := client.Get(ctx, key).Bytes()
	require.NoError(t, err, "key %s", key)
	return value
}

// ClearRedis empties the current Redis database.
func ClearRedis(t *testing.T, ctx context.Context, client *redis.Client) {
	t.Helper()
	require.NoError(t, client.FlushDB(ctx).Err())
}
