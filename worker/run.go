package worker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ndrandal/backtestsim/config"
	"github.com/ndrandal/backtestsim/model"
	"github.com/ndrandal/backtestsim/strategy"
	"github.com/ndrandal/backtestsim/wire"
)

// Run bootstraps and serves one worker: connects to MongoDB, dials the
// pool's surveyor/dispatch endpoints and the engine's broker, registers the
// reference strategies, signals readiness, then blocks until ctx is
// canceled. Shared by cmd/worker's process entrypoint and by
// SelectLauncher's ThreadLauncher path, so a pool-spawned in-process worker
// and a pool-spawned subprocess worker run identical bootstrap code.
func Run(ctx context.Context, cfg *config.WorkerConfig) error {
	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("worker: mongo connect: %w", err)
	}
	defer mongoClient.Disconnect(context.Background())

	db := NewMongoHandle(mongoClient.Database("backtestsim"))

	registry := strategy.NewRegistry()
	RegisterBuiltinStrategies(registry)

	brokerConn, err := wire.Dial(toWS(cfg.EngineBrokerAddr), wire.SocketDescriptor{})
	if err != nil {
		return fmt.Errorf("worker: dial engine broker: %w", err)
	}
	defer brokerConn.Close()

	w := New(registry, db, brokerConn)

	surveyorConn, err := wire.Dial(toWS(cfg.PoolSurveyorAddr), wire.SocketDescriptor{})
	if err != nil {
		return fmt.Errorf("worker: dial pool surveyor: %w", err)
	}
	defer surveyorConn.Close()
	go func() {
		if err := wire.Serve(surveyorConn, w.ControlRouter()); err != nil {
			log.Printf("worker: surveyor serve ended: %v", err)
		}
	}()

	dispatchConn, err := wire.Dial(toWS(cfg.PoolDispatchAddr), wire.SocketDescriptor{})
	if err != nil {
		return fmt.Errorf("worker: dial pool dispatch: %w", err)
	}
	defer dispatchConn.Close()
	go func() {
		if err := wire.Serve(dispatchConn, w.DispatchRouter()); err != nil {
			log.Printf("worker: dispatch serve ended: %v", err)
		}
	}()

	readyConn, err := wire.Dial(toWS(cfg.PoolReadyAddr), wire.SocketDescriptor{})
	if err != nil {
		return fmt.Errorf("worker: dial pool ready: %w", err)
	}
	readyReq, _ := wire.NewRequest("ready", nil)
	if err := readyConn.Send(readyReq); err != nil {
		readyConn.Close()
		return fmt.Errorf("worker: signal ready: %w", err)
	}
	readyConn.Close()

	log.Printf("worker ready, strategy=%s, threaded=%v", cfg.Strategy, cfg.ThreadedExecution)

	<-ctx.Done()
	time.Sleep(100 * time.Millisecond)
	return nil
}

func toWS(addr string) string {
	return "ws" + strings.TrimPrefix(addr, "http")
}

// RegisterBuiltinStrategies registers the reference strategies shipped with
// the worker binary; production deployments register their own.
func RegisterBuiltinStrategies(registry *strategy.Registry) {
	registry.Register("buy-and-hold", strategy.Func(func(bar model.Bar, db strategy.Database, params map[string]string) (*model.Order, error) {
		if _, held := db.GetPosition(bar.Instrument); held {
			return nil, nil
		}
		return &model.Order{Asset: model.Asset{Symbol: bar.Instrument}, Amount: 10}, nil
	}))
}
