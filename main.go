package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/auth"
	"github.com/graphoni/graphoni-engine/pkg/config"
	"github.com/graphoni/graphoni-engine/pkg/database"
	"github.com/graphoni/graphoni-engine/pkg/graph"
	"github.com/graphoni/graphoni-engine/pkg/mcp"
	"github.com/graphoni/graphoni-engine/pkg/models"
	"github.com/graphoni/graphoni-engine/pkg/repositories"
	"github.com/graphoni/graphoni-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if _, err := database.Migrate(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	store, err := graph.NewNeo4jStore(ctx, &graph.Neo4jConfig{
		URI:      cfg.Graph.URI,
		User:     cfg.Graph.User,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to graph store", zap.Error(err))
	}

	proposalRepo := repositories.NewProposalRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	executor := services.NewMutationExecutor(&services.MutationExecutorDeps{
		DB:           db,
		ProposalRepo: proposalRepo,
		AuditRepo:    auditRepo,
		Store:        store,
		Timeout:      cfg.Executor.MutationTimeout(),
		Logger:       logger,
	})
	proposals := services.NewProposalService(&services.ProposalServiceDeps{
		DB:           db,
		ProposalRepo: proposalRepo,
		AuditRepo:    auditRepo,
		Store:        store,
		Executor:     executor,
		Logger:       logger,
	})
	directEdits := services.NewDirectEditService(&services.DirectEditServiceDeps{
		AuditRepo: auditRepo,
		Store:     store,
		Timeout:   cfg.Executor.MutationTimeout(),
		Logger:    logger,
	})
	audit := services.NewAuditService(auditRepo, logger)
	squash := services.NewSquashService(&services.SquashServiceDeps{
		DB:        db,
		AuditRepo: auditRepo,
		Logger:    logger,
	})
	reconciler := services.NewReconcileService(&services.ReconcileServiceDeps{
		DB:           db,
		ProposalRepo: proposalRepo,
		AuditRepo:    auditRepo,
		Store:        store,
		Executor:     executor,
		Logger:       logger,
	})

	// Resolve proposals a previous run left approved before taking traffic.
	resolved, err := reconciler.ReconcileStuckApprovals(ctx)
	if err != nil {
		logger.Fatal("Failed to reconcile stuck approvals", zap.Error(err))
	}
	if resolved > 0 {
		logger.Info("Resolved stuck approvals", zap.Int("count", resolved))
	}

	actor, err := resolveActor(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to resolve session actor", zap.Error(err))
	}

	server := mcp.NewServer(&mcp.ServerDeps{
		Actor:       actor,
		Proposals:   proposals,
		DirectEdits: directEdits,
		Audit:       audit,
		Squash:      squash,
		Store:       store,
		Logger:      logger,
		Version:     cfg.Version,
	})

	logger.Info("Starting graphoni-engine MCP server",
		zap.String("version", cfg.Version),
		zap.String("actor", actor.Name),
		zap.String("role", actor.Role.String()))
	if err := mcp.ServeStdio(server); err != nil {
		logger.Fatal("MCP server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// resolveActor builds the session actor from config. Credential resolution
// happens upstream; the engine trusts the configured (id, role) pair.
func resolveActor(cfg *config.Config, logger *zap.Logger) (auth.Actor, error) {
	role := models.Role(cfg.Actor.Role)
	if !models.IsValidRole(role) {
		return auth.Actor{}, &invalidRoleError{role: cfg.Actor.Role}
	}

	var actorID uuid.UUID
	if cfg.Actor.ID == "" {
		actorID = uuid.New()
		logger.Warn("No actor id configured, generated an ephemeral one",
			zap.String("actor_id", actorID.String()))
	} else {
		var err error
		actorID, err = uuid.Parse(cfg.Actor.ID)
		if err != nil {
			return auth.Actor{}, err
		}
	}

	return auth.Actor{ID: actorID, Name: cfg.Actor.Name, Role: role}, nil
}

type invalidRoleError struct {
	role string
}

func (e *invalidRoleError) Error() string {
	return "invalid actor role: " + e.role
}
