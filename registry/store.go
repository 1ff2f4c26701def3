// Package registry implements the ambient HTTP CRUD surface (§6A) over
// services, backtests, workers, and sessions — adapted from the source
// project's http/service.py, http/backtest.py, and http/worker.py views,
// and from the internal/api + internal/persist pairing.
package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Service is a registered backtest-runnable algorithm: a name plus the
// image/strategy it resolves to.
type Service struct {
	ID        string            `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string            `bson:"name" json:"name"`
	Strategy  string            `bson:"strategy" json:"strategy"`
	Params    map[string]string `bson:"params" json:"params"`
	CreatedAt time.Time         `bson:"created_at" json:"created_at"`
}

// Backtest is a requested or completed run of a Service over a date range.
type Backtest struct {
	ID          string    `bson:"_id,omitempty" json:"id,omitempty"`
	ServiceName string    `bson:"service_name" json:"service_name"`
	StartDate   string    `bson:"start_date" json:"start_date"`
	EndDate     string    `bson:"end_date" json:"end_date"`
	Status      string    `bson:"status" json:"status"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Worker is one worker's registration record: where to reach it and which
// pool it belongs to.
type Worker struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	PoolID    string    `bson:"pool_id" json:"pool_id"`
	Address   string    `bson:"address" json:"address"`
	State     string    `bson:"state" json:"state"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Session is one engine run's execution record.
type Session struct {
	ID         string    `bson:"_id,omitempty" json:"id,omitempty"`
	BacktestID string    `bson:"backtest_id" json:"backtest_id"`
	State      string    `bson:"state" json:"state"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Store wraps the MongoDB client and database backing the registry.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB and returns a Store, defaulting the
// database name to "backtestsim" when the URI omits one.
func NewStore(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	dbName := "backtestsim"
	if u, err := url.Parse(uri); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			dbName = name
		}
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) {
	s.client.Disconnect(ctx)
}

func (s *Store) services() *mongo.Collection  { return s.db.Collection("services") }
func (s *Store) backtests() *mongo.Collection { return s.db.Collection("backtests") }
func (s *Store) workers() *mongo.Collection   { return s.db.Collection("workers") }
func (s *Store) sessions() *mongo.Collection  { return s.db.Collection("sessions") }

// CreateService inserts svc and returns its generated ID.
func (s *Store) CreateService(ctx context.Context, svc Service) (string, error) {
	svc.CreatedAt = timeNow()
	res, err := s.services().InsertOne(ctx, svc)
	if err != nil {
		return "", err
	}
	return idString(res.InsertedID), nil
}

// GetService looks a service up by ID.
func (s *Store) GetService(ctx context.Context, id string) (Service, error) {
	var svc Service
	err := s.services().FindOne(ctx, bson.M{"_id": objID(id)}).Decode(&svc)
	return svc, err
}

// ListServices returns every registered service.
func (s *Store) ListServices(ctx context.Context) ([]Service, error) {
	cur, err := s.services().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Service
	err = cur.All(ctx, &out)
	return out, err
}

// DeleteService removes a service by ID.
func (s *Store) DeleteService(ctx context.Context, id string) error {
	_, err := s.services().DeleteOne(ctx, bson.M{"_id": objID(id)})
	return err
}

// CreateBacktest inserts bt and returns its generated ID.
func (s *Store) CreateBacktest(ctx context.Context, bt Backtest) (string, error) {
	bt.CreatedAt = timeNow()
	if bt.Status == "" {
		bt.Status = "pending"
	}
	res, err := s.backtests().InsertOne(ctx, bt)
	if err != nil {
		return "", err
	}
	return idString(res.InsertedID), nil
}

// GetBacktest looks a backtest up by ID.
func (s *Store) GetBacktest(ctx context.Context, id string) (Backtest, error) {
	var bt Backtest
	err := s.backtests().FindOne(ctx, bson.M{"_id": objID(id)}).Decode(&bt)
	return bt, err
}

// ListBacktests returns every backtest.
func (s *Store) ListBacktests(ctx context.Context) ([]Backtest, error) {
	cur, err := s.backtests().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Backtest
	err = cur.All(ctx, &out)
	return out, err
}

// UpdateBacktestStatus sets a backtest's status field.
func (s *Store) UpdateBacktestStatus(ctx context.Context, id, status string) error {
	_, err := s.backtests().UpdateOne(ctx, bson.M{"_id": objID(id)}, bson.M{"$set": bson.M{"status": status}})
	return err
}

// RegisterWorker inserts a worker registration record.
func (s *Store) RegisterWorker(ctx context.Context, w Worker) (string, error) {
	w.CreatedAt = timeNow()
	res, err := s.workers().InsertOne(ctx, w)
	if err != nil {
		return "", err
	}
	return idString(res.InsertedID), nil
}

// ListWorkers returns every worker, optionally filtered by pool ID.
func (s *Store) ListWorkers(ctx context.Context, poolID string) ([]Worker, error) {
	filter := bson.M{}
	if poolID != "" {
		filter["pool_id"] = poolID
	}
	cur, err := s.workers().Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Worker
	err = cur.All(ctx, &out)
	return out, err
}

// DeregisterWorker removes a worker registration by ID.
func (s *Store) DeregisterWorker(ctx context.Context, id string) error {
	_, err := s.workers().DeleteOne(ctx, bson.M{"_id": objID(id)})
	return err
}

// CreateSession inserts a session record tied to backtestID.
func (s *Store) CreateSession(ctx context.Context, sess Session) (string, error) {
	sess.CreatedAt = timeNow()
	if sess.State == "" {
		sess.State = "created"
	}
	res, err := s.sessions().InsertOne(ctx, sess)
	if err != nil {
		return "", err
	}
	return idString(res.InsertedID), nil
}

// GetSession looks a session up by ID.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.sessions().FindOne(ctx, bson.M{"_id": objID(id)}).Decode(&sess)
	return sess, err
}

// UpdateSessionState sets a session's state field.
func (s *Store) UpdateSessionState(ctx context.Context, id, state string) error {
	_, err := s.sessions().UpdateOne(ctx, bson.M{"_id": objID(id)}, bson.M{"$set": bson.M{"state": state}})
	return err
}

var timeNow = time.Now

func objID(id string) bson.ObjectID {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID
	}
	return oid
}

func idString(v any) string {
	if oid, ok := v.(bson.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprintf("%v", v)
}
