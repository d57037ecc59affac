package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/0xYujan/Online-Code-IDE/internal/models"
)

// RedisGateway keeps project snapshots as hashes and version history as
// append-only lists:
//
//	project:{id}:snapshot  hash  markup/style/script -> content
//	project:{id}:versions  list  JSON-encoded VersionEntry
type RedisGateway struct {
	rdb *redis.Client
}

func NewRedisGateway(addr string) *RedisGateway {
	return &RedisGateway{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewRedisGatewayFromClient wraps an existing client (used in tests).
func NewRedisGatewayFromClient(rdb *redis.Client) *RedisGateway {
	return &RedisGateway{rdb: rdb}
}

func snapshotKey(roomID string) string { return "project:" + roomID + ":snapshot" }
func versionsKey(roomID string) string { return "project:" + roomID + ":versions" }

func (g *RedisGateway) LoadSnapshot(ctx context.Context, roomID string) (*models.Documents, error) {
	fields, err := g.rdb.HGetAll(ctx, snapshotKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", roomID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	docs := &models.Documents{}
	for _, s := range models.Surfaces() {
		docs.Set(s, fields[string(s)])
	}
	return docs, nil
}

func (g *RedisGateway) AppendVersion(ctx context.Context, roomID, userID string, surface models.Surface, content string) error {
	entry := models.VersionEntry{
		UserID:    userID,
		Surface:   surface,
		Content:   content,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal version entry: %w", err)
	}

	pipe := g.rdb.TxPipeline()
	pipe.RPush(ctx, versionsKey(roomID), data)
	pipe.HSet(ctx, snapshotKey(roomID), string(surface), content)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append version for %s: %w", roomID, err)
	}
	return nil
}

func (g *RedisGateway) Versions(ctx context.Context, roomID string) ([]models.VersionEntry, error) {
	raw, err := g.rdb.LRange(ctx, versionsKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read versions for %s: %w", roomID, err)
	}
	entries := make([]models.VersionEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.VersionEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decode version entry for %s: %w", roomID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (g *RedisGateway) Close() error { return g.rdb.Close() }
