package presence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"encantia/internal/storage"
)

type Store interface {
	Heartbeat(ctx context.Context, userID string, at time.Time) error
	Snapshot(ctx context.Context) (Snapshot, error)
}

// DocumentStore keeps the whole snapshot as one JSON object in blob storage.
//
// The blob store has no partial update, so a heartbeat downloads the document,
// sets one key and uploads it again. Two heartbeats racing within the same
// window can overwrite each other's keys; the last upload wins for the whole
// document. RedisStore does not have this problem.
type DocumentStore struct {
	blobs  storage.BlobStore
	bucket string
	object string
}

func NewDocumentStore(blobs storage.BlobStore, bucket, object string) *DocumentStore {
	return &DocumentStore{blobs: blobs, bucket: bucket, object: object}
}

func (s *DocumentStore) Heartbeat(ctx context.Context, userID string, at time.Time) error {
	doc, err := s.read(ctx)
	if err != nil {
		return err
	}
	doc[userID] = at.UnixMilli()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode presence document: %w", err)
	}
	err = s.blobs.Upload(ctx, s.bucket, s.object, bytes.NewReader(data), int64(len(data)), storage.UploadOptions{
		ContentType: "application/json",
		Upsert:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to write presence document: %w", err)
	}
	return nil
}

func (s *DocumentStore) Snapshot(ctx context.Context) (Snapshot, error) {
	data, err := s.blobs.Download(ctx, s.bucket, s.object)
	if err != nil {
		return nil, fmt.Errorf("failed to read presence document: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse presence document: %w", err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, nil
}

// read loads the document for a read-modify-write. A missing or corrupt
// document starts over empty; any other failure aborts the heartbeat.
func (s *DocumentStore) read(ctx context.Context) (Snapshot, error) {
	data, err := s.blobs.Download(ctx, s.bucket, s.object)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read presence document: %w", err)
	}

	var doc Snapshot
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		if err != nil {
			slog.Warn("Presence document is corrupt, starting over", "bucket", s.bucket, "object", s.object, "error", err)
		}
		return Snapshot{}, nil
	}
	return doc, nil
}

// RedisStore keeps one hash field per user, so heartbeats from different
// users never clobber each other.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) Heartbeat(ctx context.Context, userID string, at time.Time) error {
	if err := s.rdb.HSet(ctx, s.key, userID, at.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return nil
}

func (s *RedisStore) Snapshot(ctx context.Context) (Snapshot, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read presence hash: %w", err)
	}
	snap := make(Snapshot, len(fields))
	for userID, raw := range fields {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			slog.Debug("Skipping malformed presence entry", "user_id", userID, "value", raw)
			continue
		}
		snap[userID] = ts
	}
	return snap, nil
}
