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

// Package admission implements the admission queue service: the sole arbiter
// of duplicate detection and shard-wide capacity for commits, applies, and
// reads. Acceptors reserve before work enters the replication pipeline; the
// engine releases as work completes.
package admission

import (
	"sync"

	"github.com/Laguna-Games/waraft/pkg/contracts"
	"github.com/Laguna-Games/waraft/pkg/metrics"
	"github.com/Laguna-Games/waraft/pkg/types"
)

// shardCounters is the reservation state of one shard. All access is
// serialized on the owning Queues mutex.
type shardCounters struct {
	pendingCommits int
	pendingApplies int
	pendingReads   int

	// inflight holds the references of commits reserved but not yet
	// released.
	inflight map[uint64]struct{}

	// completed remembers recently released references; completedOrder is
	// its FIFO eviction order.
	completed      map[uint64]struct{}
	completedOrder []uint64
}

// Stats is a point-in-time snapshot of one shard's reservation counts.
type Stats struct {
	PendingCommits int
	PendingApplies int
	PendingReads   int
}

// Queues tracks reservations for every shard it has seen. Decisions for one
// shard are serialized on a single mutex, which keeps the reserve path a
// short critical section; acceptors already serialize per-shard traffic, so
// the mutex only arbitrates between shards and the engine's release calls.
type Queues struct {
	config Config

	mu     sync.Mutex
	shards map[types.ShardKey]*shardCounters
}

var _ contracts.AdmissionQueue = &Queues{}

// New creates the queue service with the given per-shard limits.
func New(config Config) (*Queues, error) {
	if err := config.validateAndApplyDefaults(); err != nil {
		return nil, err
	}
	return &Queues{
		config: config,
		shards: make(map[types.ShardKey]*shardCounters),
	}, nil
}

// ReserveCommit gates one commit. Duplicate detection runs before capacity
// so a resubmitted reference is always reported as Duplicate, never masked
// by a full queue. On DecisionOK one commit slot and one apply slot are held
// and ref is recorded in flight.
func (q *Queues) ReserveCommit(shard types.ShardKey, ref uint64) types.Decision {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.shardLocked(shard)

	if _, ok := s.inflight[ref]; ok {
		return types.DecisionDuplicate
	}
	if _, ok := s.completed[ref]; ok {
		return types.DecisionDuplicate
	}
	if s.pendingCommits >= q.config.MaxPendingCommits {
		return types.DecisionCommitQueueFull
	}
	if s.pendingApplies >= q.config.MaxPendingApplies {
		return types.DecisionApplyQueueFull
	}

	s.pendingCommits++
	s.pendingApplies++
	s.inflight[ref] = struct{}{}
	q.reportLocked(shard, s)
	return types.DecisionOK
}

// ReserveRead gates one strong read. Reads are not deduplicated; on
// DecisionOK one read slot and one apply slot are held.
func (q *Queues) ReserveRead(shard types.ShardKey) types.Decision {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.shardLocked(shard)

	if s.pendingReads >= q.config.MaxPendingReads {
		return types.DecisionReadQueueFull
	}
	if s.pendingApplies >= q.config.MaxPendingApplies {
		return types.DecisionApplyQueueFull
	}

	s.pendingReads++
	s.pendingApplies++
	q.reportLocked(shard, s)
	return types.DecisionOK
}

// ReleaseCommit frees the commit slot held for ref and retires the reference
// into the recently-completed window, where it keeps answering Duplicate
// until evicted. Releasing an unknown reference is a no-op.
func (q *Queues) ReleaseCommit(shard types.ShardKey, ref uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.shardLocked(shard)

	if _, ok := s.inflight[ref]; !ok {
		return
	}
	delete(s.inflight, ref)
	s.pendingCommits--
	q.retireLocked(s, ref)
	q.reportLocked(shard, s)
}

// CancelCommit abandons the reservation held for ref: the commit and apply
// slots are freed and the reference is forgotten rather than retired, so it
// may be admitted again. This is the path for work that never entered the
// pipeline. Cancelling an unknown reference is a no-op.
func (q *Queues) CancelCommit(shard types.ShardKey, ref uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.shardLocked(shard)

	if _, ok := s.inflight[ref]; !ok {
		return
	}
	delete(s.inflight, ref)
	s.pendingCommits--
	if s.pendingApplies > 0 {
		s.pendingApplies--
	}
	q.reportLocked(shard, s)
}

// ReleaseApply frees one shared apply slot.
func (q *Queues) ReleaseApply(shard types.ShardKey) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.shardLocked(shard)

	if s.pendingApplies > 0 {
		s.pendingApplies--
	}
	q.reportLocked(shard, s)
}

// ReleaseRead frees one read slot and its paired apply slot.
func (q *Queues) ReleaseRead(shard types.ShardKey) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.shardLocked(shard)

	if s.pendingReads > 0 {
		s.pendingReads--
	}
	if s.pendingApplies > 0 {
		s.pendingApplies--
	}
	q.reportLocked(shard, s)
}

// ShardStats returns a snapshot of one shard's reservation counts.
func (q *Queues) ShardStats(shard types.ShardKey) Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.shardLocked(shard)
	return Stats{
		PendingCommits: s.pendingCommits,
		PendingApplies: s.pendingApplies,
		PendingReads:   s.pendingReads,
	}
}

// shardLocked lazily creates the counter state for a shard.
func (q *Queues) shardLocked(shard types.ShardKey) *shardCounters {
	s, ok := q.shards[shard]
	if !ok {
		s = &shardCounters{
			inflight:  make(map[uint64]struct{}),
			completed: make(map[uint64]struct{}),
		}
		q.shards[shard] = s
	}
	return s
}

// retireLocked moves ref into the completed window, evicting the oldest
// entry once the window is full.
func (q *Queues) retireLocked(s *shardCounters, ref uint64) {
	if _, ok := s.completed[ref]; ok {
		return
	}
	s.completed[ref] = struct{}{}
	s.completedOrder = append(s.completedOrder, ref)
	for len(s.completedOrder) > q.config.CompletedWindow {
		oldest := s.completedOrder[0]
		s.completedOrder = s.completedOrder[1:]
		delete(s.completed, oldest)
	}
}

func (q *Queues) reportLocked(shard types.ShardKey, s *shardCounters) {
	metrics.SetPendingReservations(shard, metrics.TierCommit, s.pendingCommits)
	metrics.SetPendingReservations(shard, metrics.TierApply, s.pendingApplies)
	metrics.SetPendingReservations(shard, metrics.TierRead, s.pendingReads)
}
