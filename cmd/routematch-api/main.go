// README: Entry point; loads config, wires the dispatch pipeline and serves the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routematch/internal/config"
	"routematch/internal/events"
	httptransport "routematch/internal/http"
	"routematch/internal/infra"
	"routematch/internal/modules/demand"
	"routematch/internal/modules/driver"
	"routematch/internal/modules/features"
	"routematch/internal/modules/location"
	"routematch/internal/modules/matching"
	"routematch/internal/modules/order"
	"routematch/internal/modules/outcome"
	"routematch/internal/modules/pricing"
	"routematch/internal/modules/retrieval"
	"routematch/internal/modules/scoring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	var dispatchLog order.DispatchLog
	if dbPool != nil {
		defer dbPool.Close()
		orderStore := order.NewStore(dbPool)
		if err := orderStore.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate dispatch_log: %w", err)
		}
		dispatchLog = orderStore
	} else {
		log.Warn("ROUTEMATCH_DB_DSN not set; dispatch log disabled")
	}

	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}
	if verifier == nil {
		log.Warn("firebase project not set; API runs without authentication")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		publisher = kp
	}

	scorer, err := newScorer(cfg.Scoring, log)
	if err != nil {
		return err
	}
	responseWeights, err := scoring.LoadWeights(cfg.Outcome.WeightsFile, scoring.DefaultResponseWeights())
	if err != nil {
		return err
	}

	grid := location.NewGrid(cfg.Retrieval.Resolution)
	driverStore := driver.NewStore(redisClient)
	locationStore := location.NewStore(redisClient)

	driverSvc := driver.NewService(driverStore, log)
	locationSvc := location.NewService(grid, locationStore, log)
	retrievalSvc := retrieval.NewService(grid, locationStore, driverStore, cfg.Retrieval, log)
	tracker := demand.NewTracker(redisClient, grid, cfg.Demand)
	engine := matching.NewEngine(matching.NewStore(redisClient), cfg.Matching, log)
	outcomeSvc := outcome.NewService(outcome.NewStore(redisClient), cfg.Outcome, log)

	orderSvc := order.NewService(order.Deps{
		Grid:      grid,
		Demand:    tracker,
		Retriever: retrievalSvc,
		Scorer:    scorer,
		Assigner:  engine,
		Drivers:   driverStore,
		Responder: outcome.NewSimulatedResponder(responseWeights, cfg.Outcome.Seed),
		Outcomes:  outcomeSvc,
		Intake:    outcomeSvc,
		Log:       dispatchLog,
		Events:    publisher,
		Features:  features.Options{IncludePricePerKm: cfg.Scoring.IncludePricePerKm},
	}, log)

	gin.SetMode(cfg.HTTP.Mode)
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Orders:    orderSvc,
		Drivers:   driverSvc,
		Locations: locationSvc,
		Pricing:   pricing.NewService(nil),
		Verifier:  verifier,
		Log:       log,
	})

	log.Info("routematch api starting",
		zap.String("scoring_mode", cfg.Scoring.Mode),
		zap.Int("h3_resolution", cfg.Retrieval.Resolution),
		zap.Bool("release_on_reject", cfg.Matching.ReleaseOnReject))
	return httptransport.NewServer(cfg.HTTP.Addr, router, log).Run(ctx)
}

func newScorer(cfg config.ScoringConfig, log *zap.Logger) (scoring.Scorer, error) {
	if cfg.Mode == "local" {
		w, err := scoring.LoadWeights(cfg.WeightsFile, scoring.DefaultRankingWeights())
		if err != nil {
			return nil, err
		}
		return scoring.NewLogisticScorer(w), nil
	}
	return scoring.NewHTTPClient(cfg.URL, cfg.Timeout, log), nil
}
