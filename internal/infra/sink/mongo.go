package sink

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/John-Robertt/moviemeter/internal/domain"
)

const (
	DefaultMongoCollection = "movies"

	mongoConnectTimeout = 10 * time.Second
)

// inserter 是 *mongo.Collection 的最小子集（便于测试替换）。
type inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// Mongo 把每条记录写成一个 document。
//
// 驱动本身并发安全，这里仍在锁内写入，使 Mongo 与 CSV 的 Append 语义一致（一次只有一个写者）。
type Mongo struct {
	client   *mongo.Client
	coll     inserter
	location string
	now      func() time.Time

	mu     sync.Mutex
	closed bool
}

// NewMongo 连接 uri 并 ping 成功后返回 sink；collection 为空时使用 DefaultMongoCollection。
func NewMongo(ctx context.Context, uri, db, collection string) (*Mongo, error) {
	uri = strings.TrimSpace(uri)
	db = strings.TrimSpace(db)
	if uri == "" {
		return nil, errors.New("mongo sink 需要 MONGO_URI")
	}
	if db == "" {
		return nil, errors.New("mongo sink 需要 DB_NAME")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = DefaultMongoCollection
	}

	cctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Mongo{
		client:   client,
		coll:     client.Database(db).Collection(collection),
		location: db + "." + collection,
		now:      time.Now,
	}, nil
}

func (s *Mongo) Location() string { return s.location }

func (s *Mongo) Append(ctx context.Context, rec domain.MovieRecord) error {
	if err := checkComplete(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	_, err := s.coll.InsertOne(ctx, document(rec, s.now()))
	return err
}

func (s *Mongo) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func document(rec domain.MovieRecord, scrapedAt time.Time) bson.D {
	return bson.D{
		{Key: "position", Value: rec.Position},
		{Key: "title", Value: rec.Title},
		{Key: "release_date", Value: rec.ReleaseDate},
		{Key: "rating", Value: rec.Rating},
		{Key: "summary", Value: rec.Summary},
		{Key: "scraped_at", Value: scrapedAt.UTC()},
	}
}
