package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/do"
	"github.com/samber/oops"

	"memhub/app/client/atomicstore"
	"memhub/app/client/graphstore"
	"memhub/app/config"
	"memhub/app/service/identity"
	"memhub/app/util/errcode"
)

// Adapter is the façade consumers call. Configuration, the scope identifier
// and the backend are resolved once at construction and never change; every
// method is a thin delegation that injects the scope identifier. The
// adapter performs no retries and no fallback between backends.
type Adapter struct {
	cfg     *config.Config
	groupID string
	backend Backend
}

func New(di *do.Injector) (*Adapter, error) {
	cfg := do.MustInvoke[*config.Config](di)

	wd, err := os.Getwd()
	if err != nil {
		return nil, oops.Code(errcode.ScopeDetection).Errorf("failed to resolve working directory: %w", err)
	}

	groupID := identity.Detect(cfg, wd)

	backend, err := selectBackend(di, cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("Memory adapter ready",
		"backend", cfg.Memory.Backend,
		"group_id", groupID,
	)

	return &Adapter{
		cfg:     cfg,
		groupID: groupID,
		backend: backend,
	}, nil
}

// NewWithBackend constructs an adapter around an already-built backend,
// skipping detection. Used by tests and by embedders that manage their own
// configuration.
func NewWithBackend(cfg *config.Config, groupID string, backend Backend) *Adapter {
	return &Adapter{
		cfg:     cfg,
		groupID: groupID,
		backend: backend,
	}
}

func selectBackend(di *do.Injector, cfg *config.Config) (Backend, error) {
	switch cfg.Memory.Backend {
	case config.BackendGraph:
		client, err := do.Invoke[*graphstore.Client](di)
		if err != nil {
			return nil, fmt.Errorf("failed to build graph store client: %w", err)
		}

		return NewGraphBackend(client), nil

	case config.BackendAtomic:
		client, err := do.Invoke[*atomicstore.Client](di)
		if err != nil {
			return nil, fmt.Errorf("failed to build atomic store client: %w", err)
		}

		return NewAtomicBackend(client), nil

	default:
		return nil, oops.Code(errcode.Configuration).Errorf("unknown memory backend: %s", cfg.Memory.Backend)
	}
}

// GroupID returns the scope identifier resolved at construction.
func (a *Adapter) GroupID() string {
	return a.groupID
}

// BackendKind returns the configured backend name.
func (a *Adapter) BackendKind() string {
	return a.cfg.Memory.Backend
}

func (a *Adapter) Query(ctx context.Context, query string, limit int) ([]Memory, error) {
	return a.backend.Query(ctx, a.groupID, query, limit)
}

func (a *Adapter) Save(ctx context.Context, content string, meta map[string]any) (string, error) {
	return a.backend.Save(ctx, a.groupID, content, meta)
}

func (a *Adapter) SearchRelationships(ctx context.Context, query string, limit int) ([]Relationship, error) {
	return a.backend.SearchRelationships(ctx, a.groupID, query, limit)
}

func (a *Adapter) Explore(ctx context.Context, start string, depth int) (*KnowledgeGraph, error) {
	return a.backend.Explore(ctx, a.groupID, start, depth)
}

func (a *Adapter) ListRecent(ctx context.Context, limit int) ([]Memory, error) {
	return a.backend.ListRecent(ctx, a.groupID, limit)
}

func (a *Adapter) Capabilities() []OperationInfo {
	return a.backend.Capabilities()
}

func (a *Adapter) Schema(operation string) (OperationSchema, error) {
	return a.backend.Schema(operation)
}

func (a *Adapter) Examples(operation string) ([]string, error) {
	return a.backend.Examples(operation)
}
