// Package mongobackend provides a backend.Buffered implementation backed by
// a MongoDB collection.
package mongobackend

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/htcacheio/cachekit/backend"
	"github.com/htcacheio/cachekit/internal/logging"
)

// Config holds the configuration for creating a MongoDB backend.
type Config struct {
	// URI is the MongoDB connection URI (e.g., "mongodb://localhost:27017"). Required.
	URI string

	// Database is the name of the database to use for caching. Required.
	Database string

	// Collection is the name of the collection to use for caching.
	// Optional - defaults to "cachekit_entries".
	Collection string

	// KeyPrefix is a prefix added to all cache keys. Optional - defaults to "cache:".
	KeyPrefix string

	// Timeout bounds individual database operations. Optional - defaults to 5s.
	Timeout time.Duration

	// TTL is the time-to-live for cache entries. Optional - if set, creates
	// a TTL index on the createdAt field.
	TTL time.Duration

	// ClientOptions are additional options passed to mongo.Connect. Optional.
	ClientOptions *options.ClientOptions
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Collection: "cachekit_entries",
		KeyPrefix:  "cache:",
		Timeout:    5 * time.Second,
	}
}

type document struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	CreatedAt time.Time `bson:"createdAt"`
}

type store struct {
	client     *mongo.Client
	collection *mongo.Collection
	keyPrefix  string
	timeout    time.Duration
}

func (s *store) cacheKey(key string) string {
	return s.keyPrefix + key
}

func (s *store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": s.cacheKey(key)}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mongobackend: get %q: %w", key, err)
	}
	return doc.Data, true, nil
}

func (s *store) Set(ctx context.Context, key string, data []byte) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := document{Key: s.cacheKey(key), Data: data, CreatedAt: time.Now()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, opts); err != nil {
		logging.Get().WarnContext(ctx, "mongobackend: failed to write entry", "key", key, "error", err)
		return fmt.Errorf("mongobackend: set %q: %w", key, err)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": s.cacheKey(key)}); err != nil {
		logging.Get().WarnContext(ctx, "mongobackend: failed to delete entry", "key", key, "error", err)
		return fmt.Errorf("mongobackend: delete %q: %w", key, err)
	}
	return nil
}

func (s *store) createTTLIndex(ctx context.Context, ttl time.Duration) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().
			SetExpireAfterSeconds(int32(ttl.Seconds())).
			SetName("cachekit_ttl"),
	}

	indexCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.collection.Indexes().CreateOne(indexCtx, indexModel)
	return err
}

// clientCloser adapts mongo.Client.Disconnect to io.Closer.
type clientCloser struct {
	client *mongo.Client
}

func (c clientCloser) Close() error {
	return c.client.Disconnect(context.Background())
}

// New connects to MongoDB and returns a backend.Buffered over the
// configured database/collection. Call the returned Closer's Close to
// disconnect when done.
func New(ctx context.Context, config Config) (backend.Buffered, io.Closer, error) {
	if config.URI == "" {
		return nil, nil, fmt.Errorf("mongobackend: URI is required")
	}
	if config.Database == "" {
		return nil, nil, fmt.Errorf("mongobackend: database name is required")
	}

	defaults := DefaultConfig()
	if config.Collection == "" {
		config.Collection = defaults.Collection
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	clientOpts := options.Client().ApplyURI(config.URI)
	if config.ClientOptions != nil {
		clientOpts = config.ClientOptions.ApplyURI(config.URI)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongobackend: connect: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, config.Timeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		if disconnectErr := client.Disconnect(ctx); disconnectErr != nil {
			logging.Get().Warn("mongobackend: failed to disconnect after ping error", "error", disconnectErr)
		}
		return nil, nil, fmt.Errorf("mongobackend: ping: %w", err)
	}

	s := &store{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
		keyPrefix:  config.KeyPrefix,
		timeout:    config.Timeout,
	}

	if config.TTL > 0 {
		if err := s.createTTLIndex(ctx, config.TTL); err != nil {
			if disconnectErr := client.Disconnect(ctx); disconnectErr != nil {
				logging.Get().Warn("mongobackend: failed to disconnect after TTL index error", "error", disconnectErr)
			}
			return nil, nil, fmt.Errorf("mongobackend: create TTL index: %w", err)
		}
	}

	return backend.Adapt(s), clientCloser{client: client}, nil
}

// NewWithClient wraps an already-connected client; the caller owns its
// lifecycle (the returned backend.Buffered never disconnects it).
func NewWithClient(client *mongo.Client, database, collection string, config Config) (backend.Buffered, error) {
	if client == nil {
		return nil, fmt.Errorf("mongobackend: client is required")
	}
	if database == "" {
		return nil, fmt.Errorf("mongobackend: database name is required")
	}

	defaults := DefaultConfig()
	if collection == "" {
		collection = defaults.Collection
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	return backend.Adapt(&store{
		collection: client.Database(database).Collection(collection),
		keyPrefix:  config.KeyPrefix,
		timeout:    config.Timeout,
	}), nil
}
