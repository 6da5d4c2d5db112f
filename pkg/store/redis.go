package store

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/diagramflow/pkg/document"
	"github.com/matzehuels/diagramflow/pkg/errors"
)

// RedisStore is a Redis-backed Store for multi-instance deployments.
//
// Key layout, all prefixed per diagram id:
//
//	diagram:<id>:doc       current document JSON
//	diagram:<id>:mmd       current mermaid artifact
//	diagram:<id>:upload    hash {filename, data}
//	diagram:<id>:versions  hash version-key -> document JSON
//
// Version keys are fixed-width and sortable, so sorted hash fields yield
// creation order.
type RedisStore struct {
	client *redis.Client
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to redis at %s", opts.Addr)
	}
	return &RedisStore{client: client}, nil
}

func redisDocKey(id string) string      { return "diagram:" + id + ":doc" }
func redisArtifactKey(id string) string { return "diagram:" + id + ":mmd" }
func redisUploadKey(id string) string   { return "diagram:" + id + ":upload" }
func redisVersionsKey(id string) string { return "diagram:" + id + ":versions" }

// PutDocument overwrites the current document for id.
func (s *RedisStore) PutDocument(ctx context.Context, id string, doc document.Document) error {
	data, err := document.Encode(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "encode document %s", id)
	}
	if err := s.client.Set(ctx, redisDocKey(id), data, 0).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write document %s", id)
	}
	return nil
}

// GetDocument returns the current document for id.
func (s *RedisStore) GetDocument(ctx context.Context, id string) (document.Document, error) {
	data, err := s.client.Get(ctx, redisDocKey(id)).Bytes()
	if err == redis.Nil {
		return document.Document{}, errors.New(errors.ErrCodeNotFound, "diagram %s not found", id)
	}
	if err != nil {
		return document.Document{}, errors.Wrap(errors.ErrCodeStorage, err, "read document %s", id)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return document.Document{}, errors.Wrap(errors.ErrCodeStorage, err, "decode document %s", id)
	}
	return doc, nil
}

// PutArtifact overwrites the cached mermaid text for id.
func (s *RedisStore) PutArtifact(ctx context.Context, id, text string) error {
	if err := s.client.Set(ctx, redisArtifactKey(id), text, 0).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write artifact %s", id)
	}
	return nil
}

// GetArtifact returns the cached mermaid text for id.
func (s *RedisStore) GetArtifact(ctx context.Context, id string) (string, error) {
	text, err := s.client.Get(ctx, redisArtifactKey(id)).Result()
	if err == redis.Nil {
		return "", errors.New(errors.ErrCodeNotFound, "artifact for %s not found", id)
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "read artifact %s", id)
	}
	return text, nil
}

// SnapshotVersion appends an immutable version snapshot and returns its key.
// HSETNX keeps an already-written snapshot immutable even if keys collide.
func (s *RedisStore) SnapshotVersion(ctx context.Context, id string, doc document.Document) (string, error) {
	data, err := document.Encode(doc)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "encode version of %s", id)
	}
	key := NewVersionKey(time.Now())
	if err := s.client.HSetNX(ctx, redisVersionsKey(id), key, data).Err(); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "write version %s of %s", key, id)
	}
	return key, nil
}

func (s *RedisStore) versionKeys(ctx context.Context, id string) ([]string, error) {
	keys, err := s.client.HKeys(ctx, redisVersionsKey(id)).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list versions of %s", id)
	}
	sort.Strings(keys)
	return keys, nil
}

// LatestVersion returns the snapshot with the greatest key.
func (s *RedisStore) LatestVersion(ctx context.Context, id string) (document.Document, error) {
	keys, err := s.versionKeys(ctx, id)
	if err != nil {
		return document.Document{}, err
	}
	if len(keys) == 0 {
		return document.Document{}, errors.New(errors.ErrCodeNotFound, "no versions for %s", id)
	}
	data, err := s.client.HGet(ctx, redisVersionsKey(id), keys[len(keys)-1]).Bytes()
	if err != nil {
		return document.Document{}, errors.Wrap(errors.ErrCodeStorage, err, "read version of %s", id)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return document.Document{}, errors.Wrap(errors.ErrCodeStorage, err, "decode version of %s", id)
	}
	return doc, nil
}

// ListVersions returns all version keys for id, ascending.
func (s *RedisStore) ListVersions(ctx context.Context, id string) ([]string, error) {
	return s.versionKeys(ctx, id)
}

// RegisterUpload stores raw uploaded bytes under id.
func (s *RedisStore) RegisterUpload(ctx context.Context, id, filename string, data []byte) (Upload, error) {
	err := s.client.HSet(ctx, redisUploadKey(id), "filename", filename, "data", data).Err()
	if err != nil {
		return Upload{}, errors.Wrap(errors.ErrCodeStorage, err, "write upload %s", id)
	}
	return Upload{
		Filename: filename,
		Location: "redis://" + redisUploadKey(id) + "/" + id + "_" + filename,
		Data:     data,
	}, nil
}

// ResolveUpload finds the stored upload for id.
func (s *RedisStore) ResolveUpload(ctx context.Context, id string) (Upload, error) {
	fields, err := s.client.HGetAll(ctx, redisUploadKey(id)).Result()
	if err != nil {
		return Upload{}, errors.Wrap(errors.ErrCodeStorage, err, "resolve upload %s", id)
	}
	if len(fields) == 0 {
		return Upload{}, errors.New(errors.ErrCodeNotFound, "no upload for %s", id)
	}
	filename := fields["filename"]
	return Upload{
		Filename: filename,
		Location: "redis://" + redisUploadKey(id) + "/" + id + "_" + filename,
		Data:     []byte(fields["data"]),
	}, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
