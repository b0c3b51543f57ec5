package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"memhub/app/client/atomicstore"
	"memhub/app/client/graphstore"
	"memhub/app/config"
	"memhub/app/service/bridge"
	"memhub/app/service/memory"
	"memhub/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to resolve working directory: %v", err)
	}

	cfg, err := config.Load(wd)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, graphstore.NewClient)
	do.Provide(di, atomicstore.NewClient)
	do.Provide(di, memory.New)
	do.Provide(di, bridge.New)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	if err = run(appCtx, di); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

// run walks the adapter through its full operation set against the
// configured backend.
func run(ctx context.Context, di *do.Injector) error {
	adapter, err := do.Invoke[*memory.Adapter](di)
	if err != nil {
		return err
	}

	slog.Info("Memory adapter initialized",
		"backend", adapter.BackendKind(),
		"group_id", adapter.GroupID(),
	)

	for _, op := range adapter.Capabilities() {
		slog.Info("Operation available",
			"name", op.Name,
			"description", op.Description,
			"example", op.Example,
		)
	}

	memories, err := adapter.Query(ctx, "authentication", 5)
	if err != nil {
		return err
	}
	slog.Info("Query finished", "count", len(memories))

	id, err := adapter.Save(ctx, "Decision: Use JWT for authentication", map[string]any{
		memory.MetaTitle:      "Auth Decision",
		memory.MetaImportance: 9,
	})
	if err != nil {
		return err
	}
	slog.Info("Memory saved", "id", id)

	recent, err := adapter.ListRecent(ctx, 10)
	if err != nil {
		return err
	}
	slog.Info("Recent memories listed", "count", len(recent))

	graph, err := adapter.Explore(ctx, "authentication", 2)
	if err != nil {
		return err
	}
	slog.Info("Knowledge graph explored",
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
	)

	return nil
}
