package worker

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/ndrandal/backtestsim/model"
)

// MongoHandle is the strategy.Database implementation backed by the
// bundle's bar history in MongoDB, with position data kept in memory
// (recorded through UpdatePosition) rather than queried from MongoDB.
//
// currentDate is the worker's current-date cursor: StockData never returns
// bars timestamped after it, so a strategy running on day N cannot see
// day N+1's bar before it has been delivered.
type MongoHandle struct {
	bars *mongo.Collection

	mu          sync.RWMutex
	positions   map[string]model.Position
	currentDate time.Time
}

// NewMongoHandle returns a handle reading bars from db's "bars"
// collection.
func NewMongoHandle(db *mongo.Database) *MongoHandle {
	return &MongoHandle{
		bars:      db.Collection("bars"),
		positions: make(map[string]model.Position),
	}
}

// SetCurrentDate advances the cursor StockData filters against. Called by
// the worker as each bar arrives, before the strategy runs.
func (h *MongoHandle) SetCurrentDate(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentDate = t
}

// StockData returns the historical bars for instrument up to and including
// the current-date cursor, oldest first.
func (h *MongoHandle) StockData(instrument string) ([]model.Bar, error) {
	h.mu.RLock()
	cursor := h.currentDate
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"instrument": instrument}
	if !cursor.IsZero() {
		filter["time"] = bson.M{"$lte": cursor}
	}
	cur, err := h.bars.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []model.Bar
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPosition returns the last position snapshot received for instrument.
func (h *MongoHandle) GetPosition(instrument string) (model.Position, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.positions[instrument]
	return p, ok
}

// UpdatePosition records a fresh position snapshot for GetPosition to
// return.
func (h *MongoHandle) UpdatePosition(p model.Position) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.positions[p.Instrument()] = p
}
