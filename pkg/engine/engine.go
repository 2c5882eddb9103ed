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

// Package engine provides a single-node consensus collaborator for one
// shard: it orders admitted work on a single apply loop, applies commands
// against storage, releases admission reservations as work completes, and
// owns reply delivery for everything handed to it.
//
// It honors the Engine contract the acceptor depends on but implements no
// replication; ordering and durability across replicas are out of scope for
// this module.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/Laguna-Games/waraft/pkg/contracts"
	"github.com/Laguna-Games/waraft/pkg/types"
	logutil "github.com/Laguna-Games/waraft/pkg/util/logging"
)

const (
	// defaultIntakeBufferSize decouples acceptor hand-offs from the apply
	// loop. A hand-off that finds the buffer full is dropped; the caller
	// observes its own timeout (see the Engine contract).
	defaultIntakeBufferSize = 256
)

var (
	// ErrUnknownHandler indicates an execute command naming a module/function
	// pair that was never registered.
	ErrUnknownHandler = errors.New("no handler registered")

	// ErrUnsupportedCommand indicates a command the apply loop cannot
	// interpret.
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// Handler applies one execute command against storage and returns the value
// to deliver to the caller.
type Handler func(store contracts.Storage, table, key string, args [][]byte) ([]byte, error)

// taskKind tags the shape of one unit of work on the apply loop.
type taskKind int

const (
	taskCommit taskKind = iota
	taskRead
)

type task struct {
	kind   taskKind
	op     types.Op
	read   types.ReadOp
	caller types.Replier
}

// Engine is the apply loop for one shard. Construction wires the fixed
// collaborators; handlers must be registered before Run.
type Engine struct {
	shard    types.ShardKey
	queue    contracts.AdmissionQueue
	store    contracts.Storage
	logger   logr.Logger
	handlers map[string]Handler

	// config holds the most recently applied shard configuration.
	config atomic.Value

	intake  chan task
	running atomic.Bool
}

var _ contracts.Engine = &Engine{}

// New creates the engine for one shard.
func New(
	shard types.ShardKey,
	queue contracts.AdmissionQueue,
	store contracts.Storage,
	logger logr.Logger,
) *Engine {
	return &Engine{
		shard:    shard,
		queue:    queue,
		store:    store,
		logger:   logger.WithName(shard.ServerName()).WithValues("shard", shard.String()),
		handlers: make(map[string]Handler),
		intake:   make(chan task, defaultIntakeBufferSize),
	}
}

// RegisterHandler binds a module/function name to an execute handler. It is
// not safe to call after Run has started.
func (e *Engine) RegisterHandler(module, function string, h Handler) {
	e.handlers[module+"."+function] = h
}

// RegisterKVHandlers installs the basic key/value handlers used by the demo
// binary and tests: kv.write (args[0] is the value), kv.read, kv.delete.
func (e *Engine) RegisterKVHandlers() {
	e.RegisterHandler("kv", "write", func(store contracts.Storage, table, key string, args [][]byte) ([]byte, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("kv.write expects 1 argument, got %d", len(args))
		}
		if err := store.Write(table, key, args[0]); err != nil {
			return nil, err
		}
		return args[0], nil
	})
	e.RegisterHandler("kv", "read", func(store contracts.Storage, table, key string, _ [][]byte) ([]byte, error) {
		return store.Read(table, key)
	})
	e.RegisterHandler("kv", "delete", func(store contracts.Storage, table, key string, _ [][]byte) ([]byte, error) {
		return nil, store.Delete(table, key)
	})
}

// SubmitCommit hands over an admitted commit. It never blocks the submitter:
// if the apply loop's buffer is full or the engine is down, the work is
// dropped and the caller is left to its timeout.
func (e *Engine) SubmitCommit(op types.Op, caller types.Replier) {
	select {
	case e.intake <- task{kind: taskCommit, op: op, caller: caller}:
	default:
		// The work never enters the pipeline, so its reservations must not
		// outlive the drop and its reference must stay admissible.
		e.queue.CancelCommit(e.shard, op.Ref)
		e.logger.V(logutil.DEBUG).Info("Apply loop backlogged, dropping commit hand-off.", "ref", op.Ref)
	}
}

// SubmitRead hands over an admitted strong read with the same fire-and-forget
// contract as SubmitCommit.
func (e *Engine) SubmitRead(read types.ReadOp) {
	select {
	case e.intake <- task{kind: taskRead, read: read}:
	default:
		e.queue.ReleaseRead(e.shard)
		e.logger.V(logutil.DEBUG).Info("Apply loop backlogged, dropping read hand-off.")
	}
}

// Running reports whether the apply loop is live.
func (e *Engine) Running() bool { return e.running.Load() }

// Config returns the most recently applied shard configuration, or nil if no
// config command has committed yet.
func (e *Engine) Config() []byte {
	if c, ok := e.config.Load().([]byte); ok {
		return c
	}
	return nil
}

// Run executes the apply loop until ctx is cancelled. It must be run as a
// goroutine. Work is applied strictly in hand-off order, which is what makes
// a read observe every commit submitted before it.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	e.logger.V(logutil.DEFAULT).Info("Apply loop starting.")
	defer e.logger.V(logutil.DEFAULT).Info("Apply loop stopped.")

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-e.intake:
			e.apply(t)
		}
	}
}

func (e *Engine) apply(t task) {
	switch t.kind {
	case taskCommit:
		res := e.applyCommand(t.op.Command)
		e.queue.ReleaseCommit(e.shard, t.op.Ref)
		e.queue.ReleaseApply(e.shard)
		e.logger.V(logutil.TRACE).Info("Commit applied.", "ref", t.op.Ref)
		if t.caller != nil {
			t.caller.Deliver(res)
		}
	case taskRead:
		res := e.serveRead(t.read.Command)
		e.queue.ReleaseRead(e.shard)
		e.logger.V(logutil.TRACE).Info("Read served.")
		if t.read.Caller != nil {
			t.read.Caller.Deliver(res)
		}
	default:
		e.logger.Error(nil, "Unknown task shape on apply loop, ignoring.", "kind", int(t.kind))
	}
}

func (e *Engine) applyCommand(cmd types.Command) types.Result {
	switch c := cmd.(type) {
	case types.NoopCommand:
		return types.Result{}
	case types.ConfigCommand:
		e.config.Store(c.Config)
		e.logger.V(logutil.VERBOSE).Info("Shard configuration applied.", "bytes", len(c.Config))
		return types.Result{}
	case types.ExecuteCommand:
		return e.execute(c)
	case types.PayloadCommand:
		// Opaque application payloads are acknowledged as applied; their
		// interpretation belongs to the application layer.
		return types.Result{Value: c.Data}
	default:
		return types.Result{Err: fmt.Errorf("%w: %T", ErrUnsupportedCommand, cmd)}
	}
}

// serveRead interprets a command as a query. Only execute and noop commands
// are meaningful reads; whether a dispatched handler actually mutates is the
// handler's own contract, not enforced here.
func (e *Engine) serveRead(cmd types.Command) types.Result {
	switch c := cmd.(type) {
	case types.NoopCommand:
		return types.Result{}
	case types.ExecuteCommand:
		return e.execute(c)
	default:
		return types.Result{Err: fmt.Errorf("%w: %T is not readable", ErrUnsupportedCommand, cmd)}
	}
}

func (e *Engine) execute(c types.ExecuteCommand) types.Result {
	h, ok := e.handlers[c.Module+"."+c.Function]
	if !ok {
		return types.Result{Err: fmt.Errorf("%w: %s.%s", ErrUnknownHandler, c.Module, c.Function)}
	}
	value, err := h(e.store, c.Table, c.Key, c.Args)
	return types.Result{Value: value, Err: err}
}
