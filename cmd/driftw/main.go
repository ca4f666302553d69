// Package main is the entry point for driftw, the durable worker that
// executes quality-gate runs as Temporal workflows instead of inline
// synchronous calls. It is a reference adapter (§1): the core gate
// orchestrator in internal/gates works identically with or without it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/driftco/drift/internal/callgraph"
	"github.com/driftco/drift/internal/config"
	"github.com/driftco/drift/internal/facade"
	"github.com/driftco/drift/internal/gates"
	"github.com/driftco/drift/internal/httpapi"
	"github.com/driftco/drift/internal/legacystore"
	"github.com/driftco/drift/internal/patternadapter"
	"github.com/driftco/drift/internal/patterns"
	"github.com/driftco/drift/internal/scoring"
	"github.com/driftco/drift/internal/temporal"
	"github.com/driftco/drift/internal/workspace"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("starting driftw", "version", "0.1.0")

	root, err := os.Getwd()
	if err != nil {
		logger.Error("failed to resolve working directory", "error", err)
		os.Exit(1)
	}

	layout := workspace.NewLayout(filepath.Join(root, ".drift"))
	if err := layout.Init("driftw"); err != nil {
		logger.Error("failed to initialize workspace", "error", err)
		os.Exit(1)
	}

	store := patterns.NewStore(layout.PatternsDir(""), logger)
	repo := patterns.NewRepository(store, logger)
	if err := repo.Initialize(context.Background()); err != nil {
		logger.Error("failed to initialize pattern repository", "error", err)
		os.Exit(1)
	}

	graphStore := callgraph.NewStore(&callgraph.Graph{})

	registry := patterns.NewRegistry(logger)
	if err := patterns.RegisterBuiltins(registry); err != nil {
		logger.Error("failed to register builtin detectors", "error", err)
		os.Exit(1)
	}

	orchestrator := gates.NewOrchestrator([]gates.Gate{
		gates.NewPatternComplianceGate(),
		gates.NewRegressionDetectionGate(),
		gates.NewImpactSimulationGate(),
		gates.NewSecurityBoundaryGate(),
	})

	gates.RegisterActivityDeps(
		orchestrator,
		func(name string) (gates.PolicyConfig, error) {
			policy := gates.DefaultPolicyConfig()
			if name != "" {
				policy.Name = name
			}
			return policy, nil
		},
		func(changedFiles []string) gates.GateInput {
			return gates.GateInput{
				ChangedFiles: changedFiles,
				Patterns:     repo,
				Graph:        graphStore.Current(),
			}
		},
	)

	appCfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	clientCfg := temporal.DefaultClientConfig()
	clientCfg.HostPort = fmt.Sprintf("%s:%d", appCfg.Temporal.Host, appCfg.Temporal.Port)
	clientCfg.Namespace = appCfg.Temporal.Namespace
	clientCfg.TaskQueue = appCfg.Temporal.TaskQueue

	client, err := temporal.NewClient(logger, clientCfg)
	if err != nil {
		logger.Error("failed to connect to Temporal", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	w, err := temporal.StartGateWorker(logger, client, temporal.WorkerConfig{TaskQueue: clientCfg.TaskQueue})
	if err != nil {
		logger.Error("failed to start gate worker", "error", err)
		os.Exit(1)
	}

	var legacy *patternadapter.Adapter
	legacyStore, err := legacystore.New(appCfg.Database, logger)
	if err != nil {
		logger.Warn("legacy pattern store unavailable, running without it", "error", err)
	} else {
		defer legacyStore.Close()
		legacy = patternadapter.New(legacyStore, repo)
	}

	impact := scoring.NewImpactScorer(graphStore.Current())
	security := scoring.NewSecurityScorer(graphStore.Current())
	speculative := scoring.NewApproachGenerator(impact, security, repo, true)
	backups := workspace.NewManager(layout)

	svc := facade.NewService(facade.Deps{
		Registry:     registry,
		Patterns:     repo,
		Legacy:       legacy,
		Graph:        graphStore.Current(),
		Impact:       impact,
		Security:     security,
		Speculative:  speculative,
		Orchestrator: orchestrator,
		Layout:       layout,
		Backups:      backups,
		DriftVersion: "0.1.0",
	})

	httpServer := httpapi.NewServer(svc, logger)
	defer httpServer.Close()
	go func() {
		addr := fmt.Sprintf(":%d", appCfg.Server.HTTPPort)
		logger.Info("starting façade HTTP server", "addr", addr)
		if err := httpServer.Run(addr); err != nil {
			logger.Error("façade HTTP server exited", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	<-ctx.Done()
	w.Stop()
	logger.Info("driftw shutdown complete")
}
