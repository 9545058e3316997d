// Package app wires the secondary adapters and core services shared by the
// HTTP server and nodectl.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"ml-pipeline-nodes/internal/adapters/secondary/kserve"
	"ml-pipeline-nodes/internal/adapters/secondary/platform"
	"ml-pipeline-nodes/internal/adapters/secondary/postgres"
	"ml-pipeline-nodes/internal/config"
	ports "ml-pipeline-nodes/internal/core/ports/output"
	"ml-pipeline-nodes/internal/core/services"
)

type Services struct {
	CreateModel *services.CreateModelService
	DataSplit   *services.DataSplitService
	Compare     *services.ModelCompareService
	Prediction  *services.PredictionService
	Runs        *services.NodeRunService

	// Pool is nil when the node run journal is disabled.
	Pool *pgxpool.Pool
}

// Close releases the database pool, if any.
func (s *Services) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func InitLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// ============================================================================
// Hexagonal Architecture Wiring
// ============================================================================

func Wire(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Secondary Adapters (Output Ports - Platform REST)
	client := platform.NewClient(&cfg.Platform)
	modelRepo := platform.NewModelRepository(client)
	datasetRepo := platform.NewDatasetRepository(client)
	itemRepo := platform.NewItemRepository(client)
	annotationRepo := platform.NewAnnotationRepository(client)
	executionRepo := platform.NewExecutionRepository(client)
	pipelineRepo := platform.NewPipelineRepository(client)
	metricsSource := platform.NewMetricsSource(client)

	builder, err := adapterBuilder(cfg, client, annotationRepo)
	if err != nil {
		return nil, err
	}

	// Node run journal (Optional - based on config)
	var (
		pool    *pgxpool.Pool
		runRepo ports.NodeRunRepository
	)
	if cfg.Database.Enabled {
		pool, err = openPool(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		runRepo = postgres.NewNodeRunRepository(pool)
		log.Info("node run journal enabled")
	} else {
		log.Info("node run journal disabled")
	}

	// Core Services (Application Layer)
	runSvc := services.NewNodeRunService(runRepo)
	return &Services{
		CreateModel: services.NewCreateModelService(modelRepo, datasetRepo, pipelineRepo, runSvc, cfg.Nodes.CloneMaxAttempts),
		DataSplit:   services.NewDataSplitService(itemRepo, executionRepo, runSvc, cfg.Nodes.ClearModelMetadata),
		Compare:     services.NewModelCompareService(modelRepo, metricsSource, executionRepo, runSvc),
		Prediction:  services.NewPredictionService(modelRepo, itemRepo, builder, runSvc),
		Runs:        runSvc,
		Pool:        pool,
	}, nil
}

func adapterBuilder(cfg *config.Config, client *platform.Client, annotations ports.AnnotationRepository) (ports.AdapterBuilder, error) {
	switch cfg.Nodes.DefaultAdapter {
	case config.AdapterKServe:
		builder, err := kserve.NewAdapterBuilder(&cfg.Kubernetes, annotations)
		if err != nil {
			return nil, fmt.Errorf("init kserve adapter builder: %w", err)
		}
		if !builder.IsAvailable() {
			log.Warn("kserve adapter selected but kubernetes integration is disabled")
		}
		log.Info("prediction adapter: kserve")
		return builder, nil
	default:
		log.Info("prediction adapter: platform")
		return platform.NewAdapterBuilder(client), nil
	}
}

func openPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.DSN()); err != nil {
			return nil, err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	log.Info("database connection established")
	return pool, nil
}
