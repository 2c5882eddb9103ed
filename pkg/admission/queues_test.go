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

package admission

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laguna-Games/waraft/pkg/types"
)

var testShard = types.ShardKey{Table: "orders", Partition: 0}

func newTestQueues(t *testing.T, cfg Config) *Queues {
	t.Helper()
	q, err := New(cfg)
	require.NoError(t, err, "failed to construct queue service")
	return q
}

func TestCommitTierCapacity(t *testing.T) {
	t.Parallel()
	q := newTestQueues(t, Config{MaxPendingCommits: 2, MaxPendingApplies: 10, MaxPendingReads: 2})

	assert.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 1))
	assert.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 2))
	assert.Equal(t, types.DecisionCommitQueueFull, q.ReserveCommit(testShard, 3))

	// A rejected reservation must leave no state behind.
	assert.Equal(t, types.DecisionDuplicate, q.ReserveCommit(testShard, 1),
		"in-flight reference must still answer Duplicate")
	q.ReleaseCommit(testShard, 1)
	q.ReleaseApply(testShard)
	assert.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 3),
		"released capacity must admit new work")
}

func TestApplyTierSharedBetweenCommitsAndReads(t *testing.T) {
	t.Parallel()
	q := newTestQueues(t, Config{MaxPendingCommits: 5, MaxPendingApplies: 2, MaxPendingReads: 5})

	assert.Equal(t, types.DecisionOK, q.ReserveRead(testShard))
	assert.Equal(t, types.DecisionOK, q.ReserveRead(testShard))

	// The apply tier is exhausted by reads; both kinds now bounce off it.
	assert.Equal(t, types.DecisionApplyQueueFull, q.ReserveCommit(testShard, 1))
	assert.Equal(t, types.DecisionApplyQueueFull, q.ReserveRead(testShard))

	q.ReleaseRead(testShard)
	assert.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 1))
}

func TestReadTierCapacity(t *testing.T) {
	t.Parallel()
	q := newTestQueues(t, Config{MaxPendingCommits: 5, MaxPendingApplies: 10, MaxPendingReads: 1})

	assert.Equal(t, types.DecisionOK, q.ReserveRead(testShard))
	assert.Equal(t, types.DecisionReadQueueFull, q.ReserveRead(testShard),
		"reads are not deduplicated; only capacity gates them")
}

func TestDuplicateDetectionAcrossLifetime(t *testing.T) {
	t.Parallel()
	q := newTestQueues(t, Config{MaxPendingCommits: 8, MaxPendingApplies: 16, MaxPendingReads: 8, CompletedWindow: 2})

	require.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 7))
	assert.Equal(t, types.DecisionDuplicate, q.ReserveCommit(testShard, 7), "in flight")

	q.ReleaseCommit(testShard, 7)
	assert.Equal(t, types.DecisionDuplicate, q.ReserveCommit(testShard, 7), "recently completed")

	// Retiring two more references evicts 7 from the completed window.
	require.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 8))
	require.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 9))
	q.ReleaseCommit(testShard, 8)
	q.ReleaseCommit(testShard, 9)
	assert.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 7),
		"a reference evicted from the window is admissible again")
}

func TestShardsAreIndependent(t *testing.T) {
	t.Parallel()
	q := newTestQueues(t, Config{MaxPendingCommits: 1, MaxPendingApplies: 4, MaxPendingReads: 4})
	other := types.ShardKey{Table: "orders", Partition: 1}

	require.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 1))
	assert.Equal(t, types.DecisionCommitQueueFull, q.ReserveCommit(testShard, 2))
	assert.Equal(t, types.DecisionOK, q.ReserveCommit(other, 2),
		"one shard's exhaustion must not affect another")
}

func TestShardStats(t *testing.T) {
	t.Parallel()
	q := newTestQueues(t, Config{})

	require.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 1))
	require.Equal(t, types.DecisionOK, q.ReserveRead(testShard))

	want := Stats{PendingCommits: 1, PendingApplies: 2, PendingReads: 1}
	if diff := cmp.Diff(want, q.ShardStats(testShard)); diff != "" {
		t.Errorf("unexpected stats (-want +got):\n%s", diff)
	}

	q.ReleaseCommit(testShard, 1)
	q.ReleaseApply(testShard)
	q.ReleaseRead(testShard)
	if diff := cmp.Diff(Stats{}, q.ShardStats(testShard)); diff != "" {
		t.Errorf("unexpected stats after release (-want +got):\n%s", diff)
	}
}

func TestCancelledReservationIsAdmissibleAgain(t *testing.T) {
	t.Parallel()
	q := newTestQueues(t, Config{})

	require.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 5))
	q.CancelCommit(testShard, 5)

	if diff := cmp.Diff(Stats{}, q.ShardStats(testShard)); diff != "" {
		t.Errorf("cancel must free both slots (-want +got):\n%s", diff)
	}
	assert.Equal(t, types.DecisionOK, q.ReserveCommit(testShard, 5),
		"a cancelled reference was never applied and must not answer Duplicate")

	// Cancelling an unknown reference is a no-op.
	q.CancelCommit(testShard, 999)
}

func TestReleaseUnknownReferenceIsNoOp(t *testing.T) {
	t.Parallel()
	q := newTestQueues(t, Config{})

	q.ReleaseCommit(testShard, 12345)
	if diff := cmp.Diff(Stats{}, q.ShardStats(testShard)); diff != "" {
		t.Errorf("unknown release must not disturb counters (-want +got):\n%s", diff)
	}
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()
	_, err := New(Config{MaxPendingCommits: -1})
	assert.Error(t, err, "negative limits must be rejected")

	q, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, defaultMaxPendingCommits, q.config.MaxPendingCommits, "zero values take defaults")
}
