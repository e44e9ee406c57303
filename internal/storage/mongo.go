package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/news"
)

// codeIndexNotFound is returned by $text queries on a collection without a
// text index.
const codeIndexNotFound = 27

// MongoStore keeps one collection per category partition and one
// collection per week key holding that week's feature set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    *slog.Logger
	now    func() time.Time
}

var _ Store = (*MongoStore)(nil)

func NewMongoStore(ctx context.Context, uri, database string, log *slog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &MongoStore{
		client: client,
		db:     client.Database(database),
		log:    logger.OrDefault(log),
		now:    time.Now,
	}

	if err := s.ensureTitleIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	s.log.Info("✅ MongoDB store connected", "database", database)
	return s, nil
}

func (s *MongoStore) ensureTitleIndexes(ctx context.Context) error {
	for _, p := range news.Partitions() {
		_, err := s.db.Collection(p).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "title_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("title_key_unique"),
		})
		if err != nil {
			return fmt.Errorf("create title index on %s: %w", p, err)
		}
	}
	return nil
}

func (s *MongoStore) InsertBatch(ctx context.Context, records []news.Record) (InsertResult, error) {
	var res InsertResult

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !insertable(r) {
			res.Skipped++
			continue
		}

		coll := s.db.Collection(partitionOf(r))
		doc := encode(r, s.now())

		err := coll.FindOne(ctx, bson.D{{Key: "title_key", Value: doc.TitleKey}}).Err()
		if err == nil {
			res.Skipped++
			continue
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return res, fmt.Errorf("lookup %q: %w", doc.TitleKey, err)
		}

		if _, err := coll.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("insert %q: %w", doc.TitleKey, err)
		}
		res.Inserted++
	}
	return res, nil
}

func (s *MongoStore) RebuildIndex(ctx context.Context) error {
	for _, p := range news.Partitions() {
		_, err := s.db.Collection(p).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "long_summary", Value: "text"}},
			Options: options.Index().SetName("long_summary_text").SetDefaultLanguage("none"),
		})
		if err != nil {
			return fmt.Errorf("create text index on %s: %w", p, err)
		}
	}
	return nil
}

func (s *MongoStore) find(ctx context.Context, collection string, filter interface{}, opts ...*options.FindOptions) ([]document, error) {
	cur, err := s.db.Collection(collection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *MongoStore) GetByCategory(ctx context.Context, category string) ([]news.Record, error) {
	docs, err := s.find(ctx, category, bson.D{},
		options.Find().SetSort(bson.D{{Key: "date_published", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("get by category: %w", err)
	}
	return decodeAll(docs), nil
}

func (s *MongoStore) GetByID(ctx context.Context, category, id string) (news.Record, error) {
	partitions := []string{category}
	if category == "" {
		partitions = news.Partitions()
	}

	for _, p := range partitions {
		var d document
		err := s.db.Collection(p).FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&d)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get by id: %w", err)
		}
		return d.decode(), nil
	}
	return nil, ErrNotFound
}

func (s *MongoStore) TextSearch(ctx context.Context, query string) ([]news.Record, error) {
	filter := bson.D{
		{Key: "$text", Value: bson.D{{Key: "$search", Value: query}}},
		{Key: "long_summary", Value: bson.D{{Key: "$ne", Value: news.SummaryUnavailable}}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "textScore"}}}})

	var out []news.Record
	for _, p := range news.Partitions() {
		docs, err := s.find(ctx, p, filter, opts)
		if err != nil {
			var se mongo.ServerError
			if errors.As(err, &se) && se.HasErrorCode(codeIndexNotFound) {
				s.log.Warn("text index missing, partition skipped", "partition", p)
				continue
			}
			return nil, fmt.Errorf("text search %s: %w", p, err)
		}
		out = append(out, decodeAll(docs)...)
	}
	return dedupeByTitle(out), nil
}

func (s *MongoStore) GetRecent(ctx context.Context, limitPerPartition int) ([]news.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date_published", Value: -1}})
	if limitPerPartition > 0 {
		opts.SetLimit(int64(limitPerPartition))
	}

	var out []news.Record
	for _, p := range news.Partitions() {
		docs, err := s.find(ctx, p, bson.D{}, opts)
		if err != nil {
			return nil, fmt.Errorf("get recent %s: %w", p, err)
		}
		out = append(out, decodeAll(docs)...)
	}
	return out, nil
}

func (s *MongoStore) GetWeek(ctx context.Context, week string) (*WeekDigest, error) {
	digest := newWeekDigest(week)
	for _, p := range news.Partitions() {
		docs, err := s.find(ctx, p, bson.D{{Key: "week", Value: week}})
		if err != nil {
			return nil, fmt.Errorf("get week %s: %w", p, err)
		}
		for _, d := range docs {
			digest.add(d.decode())
		}
	}
	return digest, nil
}

func (s *MongoStore) Weeks(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, p := range news.Partitions() {
		values, err := s.db.Collection(p).Distinct(ctx, "week", bson.D{})
		if err != nil {
			return nil, fmt.Errorf("list weeks %s: %w", p, err)
		}
		for _, v := range values {
			if w, ok := v.(string); ok && w != "" {
				seen[w] = struct{}{}
			}
		}
	}

	weeks := make([]string, 0, len(seen))
	for w := range seen {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)
	return weeks, nil
}

func (s *MongoStore) ReplaceFeatureSet(ctx context.Context, set FeatureSet) error {
	if set.GeneratedAt.IsZero() {
		set.GeneratedAt = s.now().UTC()
	}
	if set.ImageURLs == nil {
		set.ImageURLs = []string{}
	}

	coll := s.db.Collection(set.Week)
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("delete feature set %s: %w", set.Week, err)
	}
	if _, err := coll.InsertOne(ctx, set); err != nil {
		return fmt.Errorf("insert feature set %s: %w", set.Week, err)
	}
	return nil
}

func (s *MongoStore) GetFeatureSet(ctx context.Context, week string) (*FeatureSet, error) {
	var set FeatureSet
	err := s.db.Collection(week).FindOne(ctx, bson.D{}).Decode(&set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feature set: %w", err)
	}
	return &set, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
