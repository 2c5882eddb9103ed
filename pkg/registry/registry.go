/*
Copyright 2025 The WARaft Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package registry owns the shard lookup table. The supervising runtime
// registers each shard's front end here, and clients resolve a ShardKey to
// its acceptor by explicit lookup rather than implicit global naming.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/go-logr/logr"

	"github.com/Laguna-Games/waraft/pkg/acceptor"
	"github.com/Laguna-Games/waraft/pkg/admission"
	"github.com/Laguna-Games/waraft/pkg/engine"
	"github.com/Laguna-Games/waraft/pkg/storage"
	"github.com/Laguna-Games/waraft/pkg/types"
	logutil "github.com/Laguna-Games/waraft/pkg/util/logging"
)

// ErrStopped indicates a registration attempted after Stop.
var ErrStopped = errors.New("registry is stopped")

// ShardConfig carries the per-shard construction parameters.
type ShardConfig struct {
	// Shard is the identity being registered.
	Shard types.ShardKey

	// Acceptor tunes the shard's front end; the zero value applies defaults.
	Acceptor acceptor.Config

	// ConfigureEngine, if set, runs against the shard's engine before it
	// starts, typically to register execute handlers. The basic kv handlers
	// are always installed.
	ConfigureEngine func(*engine.Engine)
}

// shardFront bundles everything started for one shard.
type shardFront struct {
	acceptor *acceptor.Acceptor
	engine   *engine.Engine
	cancel   context.CancelFunc
}

// Registry is the runtime-owned lookup table of shard front ends. Shards run
// as fully independent actors; the registry only wires and supervises them.
type Registry struct {
	logger logr.Logger
	queues *admission.Queues

	// parentCtx is the root of every shard's lifecycle, established at
	// construction.
	parentCtx context.Context

	// shards maps types.ShardKey to *shardFront.
	shards  sync.Map
	wg      sync.WaitGroup
	stopped bool
	mu      sync.Mutex
}

// New creates a registry whose shards live under ctx. The admission queue
// service is shared across shards; its limits apply per shard.
func New(ctx context.Context, admissionCfg admission.Config, logger logr.Logger) (*Registry, error) {
	queues, err := admission.New(admissionCfg)
	if err != nil {
		return nil, err
	}
	return &Registry{
		logger:    logger.WithName("shard-registry"),
		queues:    queues,
		parentCtx: ctx,
	}, nil
}

// Register wires storage, engine, and acceptor for one shard and starts
// them. Registering a shard that already exists returns the existing
// acceptor.
func (r *Registry) Register(cfg ShardConfig) (*acceptor.Acceptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil, ErrStopped
	}

	if existing, ok := r.shards.Load(cfg.Shard); ok {
		return existing.(*shardFront).acceptor, nil
	}

	store := storage.NewMemory()
	eng := engine.New(cfg.Shard, r.queues, store, r.logger)
	eng.RegisterKVHandlers()
	if cfg.ConfigureEngine != nil {
		cfg.ConfigureEngine(eng)
	}

	acc, err := acceptor.New(cfg.Shard, r.queues, eng, cfg.Acceptor, r.logger)
	if err != nil {
		return nil, err
	}

	shardCtx, cancel := context.WithCancel(r.parentCtx)
	r.shards.Store(cfg.Shard, &shardFront{acceptor: acc, engine: eng, cancel: cancel})

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		eng.Run(shardCtx)
	}()
	go func() {
		defer r.wg.Done()
		acc.Run(shardCtx)
	}()

	r.logger.V(logutil.DEFAULT).Info("Shard front end registered.",
		"shard", cfg.Shard.String(), "acceptor", cfg.Shard.AcceptorName(),
		"server", cfg.Shard.ServerName(), "storage", cfg.Shard.StorageName())
	return acc, nil
}

// Lookup resolves a shard to its acceptor.
func (r *Registry) Lookup(shard types.ShardKey) (*acceptor.Acceptor, bool) {
	front, ok := r.shards.Load(shard)
	if !ok {
		return nil, false
	}
	return front.(*shardFront).acceptor, true
}

// Healthy reports whether every registered front end is live.
func (r *Registry) Healthy() bool {
	healthy := true
	r.shards.Range(func(_, value any) bool {
		front := value.(*shardFront)
		if !front.acceptor.Running() || !front.engine.Running() {
			healthy = false
			return false
		}
		return true
	})
	return healthy
}

// Stop tears down every shard front end and waits for their goroutines to
// exit. It is idempotent.
func (r *Registry) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.logger.V(logutil.DEFAULT).Info("Stopping all shard front ends.")
	r.shards.Range(func(_, value any) bool {
		front := value.(*shardFront)
		front.acceptor.Stop()
		front.cancel()
		return true
	})
	r.wg.Wait()
	r.logger.V(logutil.DEFAULT).Info("All shard front ends stopped.")
}
