package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/newswire/internal/types"
)

// MongoStore keeps articles in a MongoDB collection with a unique index on url.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoStore connects to MongoDB and ensures the url index exists.
func NewMongoStore(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_storage"),
	}

	_, err = s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("url_unique"),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb create index: %w", err)
	}

	return s, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) ExistsByURL(ctx context.Context, url string) (bool, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{"url": url}, options.Count().SetLimit(1))
	if err != nil {
		return false, storageErr(s.Name(), "exists", err)
	}
	return n > 0, nil
}

func (s *MongoStore) UpsertByURL(ctx context.Context, rec *types.StoredArticle) (types.StoredArticle, bool, error) {
	if rec == nil || rec.URL == "" {
		return types.StoredArticle{}, false, storageErr(s.Name(), "upsert", fmt.Errorf("%w: empty url", types.ErrInvalidURL))
	}

	filter, update := mongoUpsertDoc(rec, time.Now().UTC())
	res, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return types.StoredArticle{}, false, storageErr(s.Name(), "upsert", err)
	}

	var saved types.StoredArticle
	if err := s.collection.FindOne(ctx, filter).Decode(&saved); err != nil {
		return types.StoredArticle{}, false, storageErr(s.Name(), "upsert", fmt.Errorf("read back: %w", err))
	}

	created := res.UpsertedCount > 0
	s.logger.Debug("article upserted", "url", rec.URL, "created", created)
	return saved, created, nil
}

// mongoUpsertDoc builds the filter and update for an upsert keyed by url.
// id and created_at are only written on insert.
func mongoUpsertDoc(rec *types.StoredArticle, now time.Time) (bson.M, bson.M) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	filter := bson.M{"url": rec.URL}
	update := bson.M{
		"$set": bson.M{
			"title":            rec.Title,
			"category":         rec.Category,
			"publication_date": rec.PublicationDate,
			"full_text":        rec.FullText,
			"summary":          rec.Summary,
			"updated_at":       now,
		},
		"$setOnInsert": bson.M{
			"_id":        id,
			"created_at": now,
		},
	}
	return filter, update
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]types.StoredArticle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storageErr(s.Name(), "list", err)
	}
	defer cur.Close(ctx)

	var out []types.StoredArticle
	if err := cur.All(ctx, &out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storageErr(s.Name(), "list", err)
	}
	return out, nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb storage closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
