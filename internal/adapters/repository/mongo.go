package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/starboard/internal/domain/model"
)

const mongoBackend = "mongo"

// Collection names.
const (
	CoordinatorsCollection = "coordinators"
	BoardsCollection       = "boards"
	AuditCollection        = "audit_events"
	LeadsCollection        = "lead_logs"
)

const defaultMongoTimeout = 10 * time.Second

type coordinatorDoc struct {
	model.Coordinator `bson:",inline"`
	Position          int `bson:"position"`
}

// MongoStore persists to one MongoDB database.
type MongoStore struct {
	client  *mongo.Client
	coords  *mongo.Collection
	boards  *mongo.Collection
	audit   *mongo.Collection
	leads   *mongo.Collection
	timeout time.Duration
}

// NewMongoStore connects to uri, pings the server and ensures indexes.
func NewMongoStore(ctx context.Context, uri, database string, opts ...MongoOption) (*MongoStore, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("mongo store: uri and database are required")
	}
	s := &MongoStore{timeout: defaultMongoTimeout}
	for _, opt := range opts {
		opt(s)
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(database)
	s.client = client
	s.coords = db.Collection(CoordinatorsCollection)
	s.boards = db.Collection(BoardsCollection)
	s.audit = db.Collection(AuditCollection)
	s.leads = db.Collection(LeadsCollection)

	if err := s.EnsureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the unique keys the upserts rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := func(name string, keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
	}
	if _, err := s.coords.Indexes().CreateOne(ctx, unique("idx_coordinator_id", bson.D{{Key: "id", Value: 1}})); err != nil {
		return fmt.Errorf("creating coordinator index: %w", err)
	}
	if _, err := s.boards.Indexes().CreateOne(ctx, unique("idx_board_month", bson.D{{Key: "month", Value: 1}})); err != nil {
		return fmt.Errorf("creating board index: %w", err)
	}
	if _, err := s.leads.Indexes().CreateOne(ctx, unique("idx_lead_slot", bson.D{{Key: "date", Value: 1}, {Key: "type", Value: 1}})); err != nil {
		return fmt.Errorf("creating lead index: %w", err)
	}
	if _, err := s.audit.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("idx_audit_timestamp"),
	}); err != nil {
		return fmt.Errorf("creating audit index: %w", err)
	}
	return nil
}

// Name implements Store.
func (s *MongoStore) Name() string { return mongoBackend }

// LoadCoordinators implements Store.
func (s *MongoStore) LoadCoordinators(ctx context.Context) (out []model.Coordinator, err error) {
	defer func(start time.Time) { observe(mongoBackend, "load_coordinators", start, err) }(time.Now())
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.coords.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding coordinators: %w", err)
	}
	defer cur.Close(ctx)

	var docs []coordinatorDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding coordinators: %w", err)
	}
	out = make([]model.Coordinator, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Coordinator)
	}
	return out, nil
}

// SaveCoordinators implements Store.
func (s *MongoStore) SaveCoordinators(ctx context.Context, coords []model.Coordinator) (err error) {
	defer func(start time.Time) { observe(mongoBackend, "save_coordinators", start, err) }(time.Now())
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ids := make([]string, 0, len(coords))
	writes := make([]mongo.WriteModel, 0, len(coords))
	for i, c := range coords {
		ids = append(ids, c.ID)
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": c.ID}).
			SetReplacement(coordinatorDoc{Coordinator: c, Position: i}).
			SetUpsert(true))
	}
	return s.replaceAll(ctx, s.coords, "id", ids, writes)
}

// LoadBoards implements Store.
func (s *MongoStore) LoadBoards(ctx context.Context) (out []model.MonthlyBoard, err error) {
	defer func(start time.Time) { observe(mongoBackend, "load_boards", start, err) }(time.Now())
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.boards.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "month", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding boards: %w", err)
	}
	defer cur.Close(ctx)

	out = []model.MonthlyBoard{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decoding boards: %w", err)
	}
	return out, nil
}

// SaveBoards implements Store.
func (s *MongoStore) SaveBoards(ctx context.Context, boards []model.MonthlyBoard) (err error) {
	defer func(start time.Time) { observe(mongoBackend, "save_boards", start, err) }(time.Now())
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	months := make([]string, 0, len(boards))
	writes := make([]mongo.WriteModel, 0, len(boards))
	for _, b := range boards {
		if b.Assignments == nil {
			b.Assignments = []model.Assignment{}
		}
		months = append(months, b.Month)
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"month": b.Month}).
			SetReplacement(b).
			SetUpsert(true))
	}
	return s.replaceAll(ctx, s.boards, "month", months, writes)
}

// replaceAll upserts writes and deletes every document whose key is not in
// keys, giving whole-collection overwrite without an empty window.
func (s *MongoStore) replaceAll(ctx context.Context, c *mongo.Collection, key string, keys []string, writes []mongo.WriteModel) error {
	if len(writes) > 0 {
		if _, err := c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
			return fmt.Errorf("writing %s: %w", c.Name(), err)
		}
	}
	if _, err := c.DeleteMany(ctx, bson.M{key: bson.M{"$nin": keys}}); err != nil {
		return fmt.Errorf("pruning %s: %w", c.Name(), err)
	}
	return nil
}

// AppendAuditEvent implements Store.
func (s *MongoStore) AppendAuditEvent(ctx context.Context, ev model.AuditEvent) (err error) {
	defer func(start time.Time) { observe(mongoBackend, "append_audit", start, err) }(time.Now())
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.audit.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// ListAuditEvents implements Store.
func (s *MongoStore) ListAuditEvents(ctx context.Context, limit int) (out []model.AuditEvent, err error) {
	defer func(start time.Time) { observe(mongoBackend, "list_audit", start, err) }(time.Now())
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.audit.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("finding audit events: %w", err)
	}
	defer cur.Close(ctx)

	out = []model.AuditEvent{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decoding audit events: %w", err)
	}
	return out, nil
}

// UpsertLeadLogs implements Store.
func (s *MongoStore) UpsertLeadLogs(ctx context.Context, logs []model.LeadLog) (err error) {
	defer func(start time.Time) { observe(mongoBackend, "upsert_leads", start, err) }(time.Now())
	if len(logs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	writes := make([]mongo.WriteModel, 0, len(logs))
	for _, l := range logs {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"date": l.Date, "type": l.Type}).
			SetReplacement(l).
			SetUpsert(true))
	}
	if _, err := s.leads.BulkWrite(ctx, writes); err != nil {
		return fmt.Errorf("upserting lead logs: %w", err)
	}
	return nil
}

// ListLeadLogs implements Store.
func (s *MongoStore) ListLeadLogs(ctx context.Context) (out []model.LeadLog, err error) {
	defer func(start time.Time) { observe(mongoBackend, "list_leads", start, err) }(time.Now())
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.leads.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "type", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding lead logs: %w", err)
	}
	defer cur.Close(ctx)

	out = []model.LeadLog{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decoding lead logs: %w", err)
	}
	return out, nil
}

// Drop removes every collection. Tests use it to start clean.
func (s *MongoStore) Drop(ctx context.Context) error {
	var errs []error
	for _, c := range []*mongo.Collection{s.coords, s.boards, s.audit, s.leads} {
		if err := c.Drop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("dropping %s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close implements Store.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
