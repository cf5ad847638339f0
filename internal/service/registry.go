package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	apperrors "readinglist/backend/internal/errors"
	"readinglist/backend/internal/repository"
)

// Registry opens each owner's workspace on first use and keeps it for the
// life of the process. A workspace whose load failed is never kept.
type Registry struct {
	mu         sync.Mutex
	scope      func(ownerID string) repository.BlobStore
	opts       Options
	workspaces map[string]*Workspace
}

func NewRegistry(blobs *repository.BlobRepository, opts Options) *Registry {
	return newRegistry(func(ownerID string) repository.BlobStore {
		return blobs.Scoped(ownerID)
	}, opts)
}

func newRegistry(scope func(ownerID string) repository.BlobStore, opts Options) *Registry {
	return &Registry{
		scope:      scope,
		opts:       opts.withDefaults(),
		workspaces: make(map[string]*Workspace),
	}
}

// Workspace returns the owner's workspace, loading it on first use. The load
// outlives a canceled request. When it fails, nothing is cached and the
// error is returned, so the next call retries instead of saving an empty
// collection over the stored one.
func (r *Registry) Workspace(ctx context.Context, ownerID string) (*Workspace, *apperrors.APIError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.workspaces[ownerID]; ok {
		return ws, nil
	}
	opts := r.opts
	opts.Logger = r.opts.Logger.With(zap.String("owner", ownerID))
	ws, err := OpenWorkspace(context.WithoutCancel(ctx), r.scope(ownerID), opts)
	if err != nil {
		opts.Logger.Error("open workspace", zap.Error(err))
		return nil, apperrors.Storage("failed to load reading list")
	}
	r.workspaces[ownerID] = ws
	return ws, nil
}
