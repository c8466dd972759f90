// This file implements a MongoDB-backed session repository.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// mongoSession is the stored document. Timestamps are kept as RFC 3339 text next
// to the BSON date, which only has millisecond precision.
type mongoSession struct {
	OID           primitive.ObjectID `bson:"_id,omitempty"`
	Seq           int64              `bson:"seq"`
	ID            string             `bson:"sessionId"`
	SessionType   string             `bson:"sessionType"`
	StartedAt     time.Time          `bson:"startedAt"`
	StartedAtText string             `bson:"startedAtText"`
	Responses     string             `bson:"responses"`
	StepsTaken    int                `bson:"stepsTaken"`
	TotalSteps    int                `bson:"totalSteps"`
	Completed     bool               `bson:"completed"`
	CompletedAt   string             `bson:"completedAt,omitempty"`
}

// MongoCountersCollection holds one sequence counter per session collection.
const MongoCountersCollection = "counters"

// MongoStore inserts one document per session. Each document takes the next
// value of a per-collection counter, and reads are ordered by it.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	counters   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, opts ...Option) (*MongoStore, error) {
	cfg := applyOpts(opts)
	slog.Debug("NewMongoStore invoked", "URI_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("MongoStore URI not set")
		return nil, fmt.Errorf("mongo URI not set")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		slog.Error("MongoDB ping failed", "error", err)
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	database, collection := cfg.MongoDatabase, cfg.MongoCollection
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	db := client.Database(database)
	st := &MongoStore{client: client, collection: db.Collection(collection), counters: db.Collection(MongoCountersCollection)}
	if _, err := st.collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "seq", Value: 1}}}); err != nil {
		slog.Error("Failed to create MongoDB sequence index", "error", err)
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create mongo index: %w", err)
	}
	slog.Debug("MongoDB connection established", "database", database, "collection", collection)
	return st, nil
}

func (s *MongoStore) Append(ctx context.Context, rec models.SessionRecord) error {
	responses, err := rec.ResponsesJSON()
	if err != nil {
		return fmt.Errorf("encode responses of %s: %w", rec.ID, err)
	}
	seq, err := s.nextSeq(ctx)
	if err != nil {
		slog.Error("MongoStore could not allocate sequence", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to allocate sequence for %s: %w", rec.ID, err)
	}
	doc := mongoSession{
		Seq:           seq,
		ID:            rec.ID,
		SessionType:   string(rec.SessionType),
		StartedAt:     rec.StartedAt,
		StartedAtText: formatTime(rec.StartedAt),
		Responses:     responses,
		StepsTaken:    rec.StepsTaken,
		TotalSteps:    rec.TotalSteps,
		Completed:     rec.Completed,
	}
	if rec.CompletedAt != nil {
		doc.CompletedAt = formatTime(*rec.CompletedAt)
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		slog.Error("MongoStore Append failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to insert session %s: %w", rec.ID, err)
	}
	slog.Debug("MongoStore Append succeeded", "id", rec.ID, "seq", seq)
	return nil
}

// nextSeq atomically increments and returns the collection's counter.
func (s *MongoStore) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": s.collection.Name()},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Seq, err
}

func (s *MongoStore) ListAll(ctx context.Context) ([]models.SessionRecord, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoStore) QueryByDateRange(ctx context.Context, from, to time.Time) ([]models.SessionRecord, error) {
	return s.find(ctx, bson.M{"startedAt": bson.M{"$gte": from, "$lt": to}})
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]models.SessionRecord, error) {
	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		slog.Error("MongoStore find failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoSession
	if err := cursor.All(ctx, &docs); err != nil {
		slog.Error("MongoStore decode failed", "error", err)
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	records := make([]models.SessionRecord, 0, len(docs))
	for _, d := range docs {
		rec, err := d.record()
		if err != nil {
			slog.Warn("MongoStore skipped unreadable record", "error", err, "id", d.ID)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (d mongoSession) record() (models.SessionRecord, error) {
	rec := models.SessionRecord{
		ID:          d.ID,
		SessionType: models.SessionType(d.SessionType),
		StartedAt:   d.StartedAt,
		StepsTaken:  d.StepsTaken,
		TotalSteps:  d.TotalSteps,
		Completed:   d.Completed,
	}
	if d.StartedAtText != "" {
		t, err := time.Parse(time.RFC3339Nano, d.StartedAtText)
		if err != nil {
			return rec, err
		}
		rec.StartedAt = t
	}
	if d.CompletedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, d.CompletedAt)
		if err != nil {
			return rec, err
		}
		rec.CompletedAt = &t
	}
	if err := rec.SetResponsesJSON(d.Responses); err != nil {
		return rec, err
	}
	return rec, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
