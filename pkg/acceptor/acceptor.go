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

// Package acceptor implements the admission-control and request-routing
// front end for one shard of the replicated state machine.
//
// The Acceptor is a single-threaded, message-ordered actor: one goroutine
// drains a buffered intake channel in arrival order, so admission decisions
// for the same shard never race. For every submission it consults the
// admission queue exactly once and then either replies to the caller
// immediately (rejection) or hands the work to the consensus engine
// fire-and-forget (acceptance). On the accept path ownership of "who replies
// to the caller" transfers to the engine with the hand-off; the acceptor
// assigns no ordering, persists nothing, and retries nothing.
package acceptor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/Laguna-Games/waraft/pkg/contracts"
	"github.com/Laguna-Games/waraft/pkg/metrics"
	"github.com/Laguna-Games/waraft/pkg/types"
	logutil "github.com/Laguna-Games/waraft/pkg/util/logging"
)

// envelopeKind tags the shape of one intake submission.
type envelopeKind int

const (
	envelopeCommit envelopeKind = iota
	envelopeRead
)

// envelope is one unit of work on the intake channel. Exactly one of op/cmd
// is meaningful, selected by kind; caller is always the return address the
// reply must eventually reach.
type envelope struct {
	kind   envelopeKind
	op     types.Op
	cmd    types.Command
	caller types.Replier
}

// Acceptor is the front end of one shard. All fields are set at construction
// and never mutated afterwards; every request is processed statelessly
// against this fixed configuration.
type Acceptor struct {
	// --- Immutable dependencies (set at construction) ---

	shard  types.ShardKey
	queue  contracts.AdmissionQueue
	engine contracts.Engine
	config Config
	clock  clock.Clock
	logger logr.Logger

	// --- Lifecycle state ---

	intake   chan envelope
	stopCh   chan struct{}
	loopDone chan struct{}
	started  atomic.Bool
	running  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
}

// acceptorOption applies a construction-time override. Options are not
// exported; tests use them to substitute the clock.
type acceptorOption func(*Acceptor)

// New resolves the shard's fixed set of collaborators into a ready-to-run
// Acceptor. The returned actor is inert until Run is called.
func New(
	shard types.ShardKey,
	queue contracts.AdmissionQueue,
	engine contracts.Engine,
	config Config,
	logger logr.Logger,
	opts ...acceptorOption,
) (*Acceptor, error) {
	if queue == nil {
		return nil, errors.New("admission queue cannot be nil")
	}
	if engine == nil {
		return nil, errors.New("consensus engine cannot be nil")
	}
	if err := config.validateAndApplyDefaults(); err != nil {
		return nil, err
	}

	a := &Acceptor{
		shard:    shard,
		queue:    queue,
		engine:   engine,
		config:   config,
		clock:    clock.RealClock{},
		logger:   logger.WithName(shard.AcceptorName()).WithValues("shard", shard.String()),
		intake:   make(chan envelope, config.IntakeBufferSize),
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Shard returns the immutable identity this acceptor serves.
func (a *Acceptor) Shard() types.ShardKey { return a.shard }

// Running reports liveness for the supervising runtime: true between the
// start of the actor loop and its exit.
func (a *Acceptor) Running() bool { return a.running.Load() }

// Run executes the actor loop until ctx is cancelled or Stop is called. It
// must be run as a goroutine; calling it a second time is a logged no-op.
func (a *Acceptor) Run(ctx context.Context) {
	if !a.started.CompareAndSwap(false, true) {
		a.logger.Error(nil, "Acceptor loop started twice, ignoring.")
		return
	}
	a.running.Store(true)
	a.logger.V(logutil.DEFAULT).Info("Acceptor loop starting.")
	defer a.logger.V(logutil.DEFAULT).Info("Acceptor loop stopped.")
	defer close(a.loopDone)
	defer a.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			a.drainIntake()
			return
		case <-a.stopCh:
			a.drainIntake()
			return
		case env := <-a.intake:
			a.process(env)
		}
	}
}

// Stop signals the loop to exit and waits up to StopGracePeriod for it to
// finish draining. It is idempotent and does not block on completion of work
// already handed to the engine.
func (a *Acceptor) Stop() {
	a.stopOnce.Do(func() {
		a.stopped.Store(true)
		close(a.stopCh)
	})
	if !a.started.Load() {
		return
	}
	select {
	case <-a.loopDone:
	case <-a.clock.After(a.config.StopGracePeriod):
		a.logger.V(logutil.DEFAULT).Info("Stop grace period elapsed before the loop drained.")
	}
}

// Commit submits one state-mutating operation and blocks until this actor
// (for rejections) or the downstream engine (for accepted work) delivers a
// reply, subject to the configured submit timeout and ctx.
//
// On timeout the caller observes a timeout error while the pipeline may
// still complete the work with no one listening; the late reply is simply
// dropped. Delivery is at most once, not guaranteed.
func (a *Acceptor) Commit(ctx context.Context, op types.Op) (types.Result, error) {
	item := newReplyItem()
	ctx, cancel := context.WithTimeout(ctx, a.config.SubmitTimeout)
	defer cancel()

	if err := a.submitOrBlock(ctx, envelope{kind: envelopeCommit, op: op, caller: item}); err != nil {
		return types.Result{}, err
	}
	select {
	case <-item.Done():
		res := item.FinalResult()
		return res, res.Err
	case <-ctx.Done():
		return types.Result{}, ctx.Err()
	}
}

// CommitAsync is the fire-and-forget submission shape: the caller's return
// address was already captured upstream, and the submitter is never blocked.
// Admission still runs on the actor loop with semantics identical to Commit;
// rejections are delivered through caller, not returned here. The returned
// error only reports that the hand-off itself failed.
func (a *Acceptor) CommitAsync(caller types.Replier, op types.Op) error {
	if caller == nil {
		return errors.New("caller cannot be nil")
	}
	return a.submit(envelope{kind: envelopeCommit, op: op, caller: caller})
}

// Read submits one strong read and blocks for the reply the way Commit does.
// The served result reflects all commits applied up to the moment the engine
// serves the read.
func (a *Acceptor) Read(ctx context.Context, cmd types.Command) (types.Result, error) {
	item := newReplyItem()
	ctx, cancel := context.WithTimeout(ctx, a.config.SubmitTimeout)
	defer cancel()

	if err := a.submitOrBlock(ctx, envelope{kind: envelopeRead, cmd: cmd, caller: item}); err != nil {
		return types.Result{}, err
	}
	select {
	case <-item.Done():
		res := item.FinalResult()
		return res, res.Err
	case <-ctx.Done():
		return types.Result{}, ctx.Err()
	}
}

// submit places an envelope on the intake without ever blocking the
// submitter.
func (a *Acceptor) submit(env envelope) error {
	if !a.running.Load() || a.stopped.Load() {
		return types.ErrAcceptorNotRunning
	}
	select {
	case a.intake <- env:
		return nil
	default:
		return types.ErrAcceptorBusy
	}
}

// submitOrBlock places an envelope on the intake, blocking until there is
// space, the context expires, or the loop exits.
func (a *Acceptor) submitOrBlock(ctx context.Context, env envelope) error {
	if !a.running.Load() || a.stopped.Load() {
		return types.ErrAcceptorNotRunning
	}
	select {
	case a.intake <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-a.loopDone:
		return types.ErrAcceptorNotRunning
	}
}

// process dispatches one envelope. A submission shape the actor does not
// recognize is logged and dropped; the actor keeps serving.
func (a *Acceptor) process(env envelope) {
	switch env.kind {
	case envelopeCommit:
		a.routeCommit(env.caller, env.op)
	case envelopeRead:
		a.routeRead(env.caller, env.cmd)
	default:
		a.logger.Error(nil, "Unrecognized submission shape, ignoring.", "kind", int(env.kind))
	}
}

// routeCommit gates one commit against shard-wide capacity and either
// rejects it directly or forwards it. The reserve call is the only blocking
// collaborator call in the loop, and its latency is recorded on every
// branch. On DecisionOK the op and the caller's untouched return address are
// handed to the engine and this actor's responsibility ends.
func (a *Acceptor) routeCommit(caller types.Replier, op types.Op) {
	start := a.clock.Now()
	decision := a.queue.ReserveCommit(a.shard, op.Ref)
	metrics.ObserveAdmissionLatency(a.shard, metrics.KindCommit, a.clock.Since(start))

	switch decision {
	case types.DecisionOK:
		a.engine.SubmitCommit(op, caller)
	case types.DecisionDuplicate:
		a.rejectCommit(caller, op.Ref, decision, types.ErrDuplicateRequest)
	case types.DecisionCommitQueueFull:
		a.rejectCommit(caller, op.Ref, decision, types.ErrCommitQueueFull)
	case types.DecisionApplyQueueFull:
		a.rejectCommit(caller, op.Ref, decision, types.ErrApplyQueueFull)
	default:
		// Fail closed on a decision this layer does not understand.
		a.logger.Error(nil, "Unknown admission decision for commit, rejecting.",
			"decision", decision, "ref", op.Ref)
		caller.Deliver(types.Result{Err: &types.RejectionError{Ref: op.Ref, Reason: types.ErrCommitQueueFull}})
	}
}

func (a *Acceptor) rejectCommit(caller types.Replier, ref uint64, decision types.Decision, reason error) {
	metrics.IncRejected(a.shard, metrics.KindCommit, decision)
	a.logger.V(logutil.DEBUG).Info("Rejecting commit.", "ref", ref, "decision", decision)
	caller.Deliver(types.Result{Err: &types.RejectionError{Ref: ref, Reason: reason}})
}

// routeRead is the commit router's shape for strong reads: no duplicate
// branch (reads are idempotent) and no commit tier, only the read
// reservation tier and the shared apply tier.
func (a *Acceptor) routeRead(caller types.Replier, cmd types.Command) {
	start := a.clock.Now()
	decision := a.queue.ReserveRead(a.shard)
	metrics.ObserveAdmissionLatency(a.shard, metrics.KindRead, a.clock.Since(start))

	switch decision {
	case types.DecisionOK:
		a.engine.SubmitRead(types.ReadOp{Caller: caller, Command: cmd})
	case types.DecisionReadQueueFull:
		a.rejectRead(caller, decision, types.ErrReadQueueFull)
	case types.DecisionApplyQueueFull:
		a.rejectRead(caller, decision, types.ErrApplyQueueFull)
	default:
		a.logger.Error(nil, "Unknown admission decision for read, rejecting.", "decision", decision)
		caller.Deliver(types.Result{Err: types.ErrReadQueueFull})
	}
}

func (a *Acceptor) rejectRead(caller types.Replier, decision types.Decision, reason error) {
	metrics.IncRejected(a.shard, metrics.KindRead, decision)
	a.logger.V(logutil.DEBUG).Info("Rejecting read.", "decision", decision)
	caller.Deliver(types.Result{Err: reason})
}

// drainIntake rejects everything still buffered at shutdown so no blocked
// caller is left without an answer. A submitter that slips an envelope in
// after the drain observes its own timeout instead.
func (a *Acceptor) drainIntake() {
	for {
		select {
		case env := <-a.intake:
			if env.caller != nil {
				env.caller.Deliver(types.Result{Err: types.ErrAcceptorNotRunning})
			}
		default:
			return
		}
	}
}
