package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/diagramflow/pkg/document"
	"github.com/matzehuels/diagramflow/pkg/errors"
)

// MongoStore is a MongoDB-backed Store. Each storage area lives in its own
// collection: documents and artifacts keyed by diagram id, uploads keyed by
// diagram id, and versions append-only with a compound (diagram_id, key)
// index.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// MongoOptions configures the MongoDB connection.
type MongoOptions struct {
	URI      string
	Database string
}

type mongoDocRecord struct {
	ID  string            `bson:"_id"`
	Doc document.Document `bson:"doc"`
}

type mongoArtifactRecord struct {
	ID   string `bson:"_id"`
	Text string `bson:"text"`
}

type mongoUploadRecord struct {
	ID       string `bson:"_id"`
	Filename string `bson:"filename"`
	Data     []byte `bson:"data"`
}

type mongoVersionRecord struct {
	DiagramID string            `bson:"diagram_id"`
	Key       string            `bson:"key"`
	Doc       document.Document `bson:"doc"`
}

// NewMongoStore connects to MongoDB, verifies the connection, and ensures
// the version index exists.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongodb at %s", opts.URI)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongodb at %s", opts.URI)
	}

	db := client.Database(opts.Database)
	_, err = db.Collection("versions").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "diagram_id", Value: 1}, {Key: "key", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create version index")
	}

	return &MongoStore{client: client, db: db}, nil
}

// PutDocument overwrites the current document for id.
func (s *MongoStore) PutDocument(ctx context.Context, id string, doc document.Document) error {
	_, err := s.db.Collection("documents").ReplaceOne(ctx,
		bson.M{"_id": id},
		mongoDocRecord{ID: id, Doc: doc},
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write document %s", id)
	}
	return nil
}

// GetDocument returns the current document for id.
func (s *MongoStore) GetDocument(ctx context.Context, id string) (document.Document, error) {
	var rec mongoDocRecord
	err := s.db.Collection("documents").FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return document.Document{}, errors.New(errors.ErrCodeNotFound, "diagram %s not found", id)
	}
	if err != nil {
		return document.Document{}, errors.Wrap(errors.ErrCodeStorage, err, "read document %s", id)
	}
	return rec.Doc, nil
}

// PutArtifact overwrites the cached mermaid text for id.
func (s *MongoStore) PutArtifact(ctx context.Context, id, text string) error {
	_, err := s.db.Collection("artifacts").ReplaceOne(ctx,
		bson.M{"_id": id},
		mongoArtifactRecord{ID: id, Text: text},
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write artifact %s", id)
	}
	return nil
}

// GetArtifact returns the cached mermaid text for id.
func (s *MongoStore) GetArtifact(ctx context.Context, id string) (string, error) {
	var rec mongoArtifactRecord
	err := s.db.Collection("artifacts").FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return "", errors.New(errors.ErrCodeNotFound, "artifact for %s not found", id)
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "read artifact %s", id)
	}
	return rec.Text, nil
}

// SnapshotVersion appends an immutable version snapshot and returns its key.
func (s *MongoStore) SnapshotVersion(ctx context.Context, id string, doc document.Document) (string, error) {
	key := NewVersionKey(time.Now())
	_, err := s.db.Collection("versions").InsertOne(ctx, mongoVersionRecord{
		DiagramID: id,
		Key:       key,
		Doc:       doc,
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "write version %s of %s", key, id)
	}
	return key, nil
}

// LatestVersion returns the snapshot with the greatest key.
func (s *MongoStore) LatestVersion(ctx context.Context, id string) (document.Document, error) {
	var rec mongoVersionRecord
	err := s.db.Collection("versions").FindOne(ctx,
		bson.M{"diagram_id": id},
		options.FindOne().SetSort(bson.D{{Key: "key", Value: -1}})).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return document.Document{}, errors.New(errors.ErrCodeNotFound, "no versions for %s", id)
	}
	if err != nil {
		return document.Document{}, errors.Wrap(errors.ErrCodeStorage, err, "read version of %s", id)
	}
	return rec.Doc, nil
}

// ListVersions returns all version keys for id, ascending.
func (s *MongoStore) ListVersions(ctx context.Context, id string) ([]string, error) {
	cur, err := s.db.Collection("versions").Find(ctx,
		bson.M{"diagram_id": id},
		options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list versions of %s", id)
	}
	defer cur.Close(ctx)

	var keys []string
	for cur.Next(ctx) {
		var rec mongoVersionRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode version of %s", id)
		}
		keys = append(keys, rec.Key)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list versions of %s", id)
	}
	return keys, nil
}

// RegisterUpload stores raw uploaded bytes under id.
func (s *MongoStore) RegisterUpload(ctx context.Context, id, filename string, data []byte) (Upload, error) {
	_, err := s.db.Collection("uploads").ReplaceOne(ctx,
		bson.M{"_id": id},
		mongoUploadRecord{ID: id, Filename: filename, Data: data},
		options.Replace().SetUpsert(true))
	if err != nil {
		return Upload{}, errors.Wrap(errors.ErrCodeStorage, err, "write upload %s", id)
	}
	return Upload{
		Filename: filename,
		Location: "mongo://uploads/" + id + "_" + filename,
		Data:     data,
	}, nil
}

// ResolveUpload finds the stored upload for id.
func (s *MongoStore) ResolveUpload(ctx context.Context, id string) (Upload, error) {
	var rec mongoUploadRecord
	err := s.db.Collection("uploads").FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return Upload{}, errors.New(errors.ErrCodeNotFound, "no upload for %s", id)
	}
	if err != nil {
		return Upload{}, errors.Wrap(errors.ErrCodeStorage, err, "resolve upload %s", id)
	}
	return Upload{
		Filename: rec.Filename,
		Location: "mongo://uploads/" + id + "_" + rec.Filename,
		Data:     rec.Data,
	}, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
