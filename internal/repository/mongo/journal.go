package mongo

import (
	"context"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrentstream/bridge/internal/domain"
)

// JournalRepository keeps one document per poll cycle.
type JournalRepository struct {
	collection *mongo.Collection
	retention  time.Duration
}

type cycleDoc struct {
	Seq        int64     `bson:"seq"`
	StartedAt  time.Time `bson:"startedAt"`
	DurationMs int64     `bson:"durationMs"`
	Torrents   int       `bson:"torrents"`
	Report     string    `bson:"report,omitempty"`
	Command    string    `bson:"command,omitempty"`
	Error      string    `bson:"error,omitempty"`
}

// NewJournalRepository: retention > 0 makes EnsureIndexes add a TTL index
// on startedAt.
func NewJournalRepository(client *mongo.Client, dbName, collectionName string, retention time.Duration) *JournalRepository {
	return &JournalRepository{
		collection: client.Database(dbName).Collection(collectionName),
		retention:  retention,
	}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *JournalRepository) Name() string { return "mongo" }

func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexModels(r.retention))
	return err
}

func indexModels(retention time.Duration) []mongo.IndexModel {
	startedAt := mongo.IndexModel{Keys: bson.D{{Key: "startedAt", Value: -1}}}
	if retention > 0 {
		startedAt.Options = options.Index().SetExpireAfterSeconds(expireAfterSeconds(retention))
	}
	return []mongo.IndexModel{
		startedAt,
		{Keys: bson.D{{Key: "error", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
}

// expireAfterSeconds rounds up to whole seconds; a zero TTL would expire
// documents immediately.
func expireAfterSeconds(retention time.Duration) int32 {
	secs := (retention + time.Second - 1) / time.Second
	if secs > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(secs)
}

func (r *JournalRepository) Record(ctx context.Context, cycle domain.Cycle) error {
	_, err := r.collection.InsertOne(ctx, toDoc(cycle))
	return err
}

// Recent returns up to limit cycles, newest first.
func (r *JournalRepository) Recent(ctx context.Context, limit int64) ([]domain.Cycle, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "startedAt", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []cycleDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Cycle, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDoc(d))
	}
	return out, nil
}

func toDoc(c domain.Cycle) cycleDoc {
	return cycleDoc{
		Seq:        c.Seq,
		StartedAt:  c.StartedAt.UTC(),
		DurationMs: c.Duration.Milliseconds(),
		Torrents:   c.Torrents,
		Report:     c.Report,
		Command:    c.Command,
		Error:      c.Error,
	}
}

func fromDoc(d cycleDoc) domain.Cycle {
	return domain.Cycle{
		Seq:       d.Seq,
		StartedAt: d.StartedAt,
		Duration:  time.Duration(d.DurationMs) * time.Millisecond,
		Torrents:  d.Torrents,
		Report:    d.Report,
		Command:   d.Command,
		Error:     d.Error,
	}
}
