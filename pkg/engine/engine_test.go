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

package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laguna-Games/waraft/pkg/admission"
	"github.com/Laguna-Games/waraft/pkg/storage"
	"github.com/Laguna-Games/waraft/pkg/types"
)

// recordingQueue counts release calls; reserves are never consulted by the
// engine so they simply admit.
type recordingQueue struct {
	mu             sync.Mutex
	commitReleases []uint64
	commitCancels  []uint64
	applyReleases  int
	readReleases   int
}

func (q *recordingQueue) ReserveCommit(types.ShardKey, uint64) types.Decision {
	return types.DecisionOK
}
func (q *recordingQueue) ReserveRead(types.ShardKey) types.Decision { return types.DecisionOK }

func (q *recordingQueue) ReleaseCommit(_ types.ShardKey, ref uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.commitReleases = append(q.commitReleases, ref)
}

func (q *recordingQueue) CancelCommit(_ types.ShardKey, ref uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.commitCancels = append(q.commitCancels, ref)
}

func (q *recordingQueue) ReleaseApply(types.ShardKey) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.applyReleases++
}

func (q *recordingQueue) ReleaseRead(types.ShardKey) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.readReleases++
}

func (q *recordingQueue) snapshot() (commits []uint64, applies, reads int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]uint64(nil), q.commitReleases...), q.applyReleases, q.readReleases
}

type chanReplier struct {
	ch chan types.Result
}

func newChanReplier() *chanReplier {
	return &chanReplier{ch: make(chan types.Result, 1)}
}

func (c *chanReplier) Deliver(r types.Result) {
	select {
	case c.ch <- r:
	default:
	}
}

func (c *chanReplier) wait(t *testing.T) types.Result {
	t.Helper()
	select {
	case r := <-c.ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
		return types.Result{}
	}
}

func newTestEngine(t *testing.T) (*Engine, *recordingQueue) {
	t.Helper()
	queue := &recordingQueue{}
	eng := New(types.ShardKey{Table: "orders", Partition: 0}, queue, storage.NewMemory(), logr.Discard())
	eng.RegisterKVHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	t.Cleanup(cancel)
	require.Eventually(t, eng.Running, time.Second, time.Millisecond, "apply loop never became live")
	return eng, queue
}

func TestCommitAppliesAndReleasesSlots(t *testing.T) {
	t.Parallel()
	eng, queue := newTestEngine(t)

	caller := newChanReplier()
	eng.SubmitCommit(types.Op{Ref: 11, Command: types.ExecuteCommand{
		Table: "orders", Key: "k", Module: "kv", Function: "write", Args: [][]byte{[]byte("v")},
	}}, caller)

	res := caller.wait(t)
	require.NoError(t, res.Err)
	assert.Equal(t, []byte("v"), res.Value)

	commits, applies, _ := queue.snapshot()
	assert.Equal(t, []uint64{11}, commits, "the commit slot must be released with the reference")
	assert.Equal(t, 1, applies, "the apply slot must be released")
}

func TestReadObservesEveryPriorCommit(t *testing.T) {
	t.Parallel()
	eng, queue := newTestEngine(t)

	// Commit and read are handed off back to back; the apply loop serializes
	// them, so the read must see the write.
	eng.SubmitCommit(types.Op{Ref: 1, Command: types.ExecuteCommand{
		Table: "orders", Key: "k", Module: "kv", Function: "write", Args: [][]byte{[]byte("v1")},
	}}, newChanReplier())

	reader := newChanReplier()
	eng.SubmitRead(types.ReadOp{Caller: reader, Command: types.ExecuteCommand{
		Table: "orders", Key: "k", Module: "kv", Function: "read",
	}})

	res := reader.wait(t)
	require.NoError(t, res.Err)
	assert.Equal(t, []byte("v1"), res.Value)

	_, _, reads := queue.snapshot()
	assert.Equal(t, 1, reads, "the read reservation must be released")
}

func TestNoopAndConfigCommands(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t)

	caller := newChanReplier()
	eng.SubmitCommit(types.Op{Ref: 1, Command: types.NoopCommand{}}, caller)
	require.NoError(t, caller.wait(t).Err)

	caller = newChanReplier()
	eng.SubmitCommit(types.Op{Ref: 2, Command: types.ConfigCommand{Config: []byte("members=3")}}, caller)
	require.NoError(t, caller.wait(t).Err)
	assert.Equal(t, []byte("members=3"), eng.Config())
}

func TestUnknownHandlerIsReportedAndReleased(t *testing.T) {
	t.Parallel()
	eng, queue := newTestEngine(t)

	caller := newChanReplier()
	eng.SubmitCommit(types.Op{Ref: 3, Command: types.ExecuteCommand{
		Table: "orders", Key: "k", Module: "nope", Function: "missing",
	}}, caller)

	res := caller.wait(t)
	assert.ErrorIs(t, res.Err, ErrUnknownHandler)

	commits, applies, _ := queue.snapshot()
	assert.Equal(t, []uint64{3}, commits, "slots must be released even when apply fails")
	assert.Equal(t, 1, applies)
}

func TestBackloggedHandOffAbandonsReservations(t *testing.T) {
	t.Parallel()
	queue := &recordingQueue{}
	eng := New(types.ShardKey{Table: "orders", Partition: 0}, queue, storage.NewMemory(), logr.Discard())

	// The loop is not running, so the intake buffer fills and then drops.
	for i := uint64(1); i <= defaultIntakeBufferSize; i++ {
		eng.SubmitCommit(types.Op{Ref: i, Command: types.NoopCommand{}}, newChanReplier())
	}
	dropped := uint64(defaultIntakeBufferSize + 1)
	eng.SubmitCommit(types.Op{Ref: dropped, Command: types.NoopCommand{}}, newChanReplier())
	eng.SubmitRead(types.ReadOp{Caller: newChanReplier(), Command: types.NoopCommand{}})

	queue.mu.Lock()
	defer queue.mu.Unlock()
	assert.Equal(t, []uint64{dropped}, queue.commitCancels, "only the dropped commit may cancel its reservation")
	assert.Equal(t, 1, queue.readReleases, "a dropped read must free its reservation")
	assert.Empty(t, queue.commitReleases, "buffered work was never applied, so nothing retires")
}

func TestDroppedReferenceStaysAdmissible(t *testing.T) {
	t.Parallel()
	shard := types.ShardKey{Table: "orders", Partition: 0}
	queue, err := admission.New(admission.Config{
		MaxPendingCommits: 2 * defaultIntakeBufferSize,
		MaxPendingApplies: 4 * defaultIntakeBufferSize,
		MaxPendingReads:   2 * defaultIntakeBufferSize,
	})
	require.NoError(t, err)
	eng := New(shard, queue, storage.NewMemory(), logr.Discard())

	for i := uint64(1); i <= defaultIntakeBufferSize; i++ {
		require.Equal(t, types.DecisionOK, queue.ReserveCommit(shard, i))
		eng.SubmitCommit(types.Op{Ref: i, Command: types.NoopCommand{}}, newChanReplier())
	}
	dropped := uint64(defaultIntakeBufferSize + 1)
	require.Equal(t, types.DecisionOK, queue.ReserveCommit(shard, dropped))
	eng.SubmitCommit(types.Op{Ref: dropped, Command: types.NoopCommand{}}, newChanReplier())

	stats := queue.ShardStats(shard)
	assert.Equal(t, defaultIntakeBufferSize, stats.PendingCommits, "only buffered work may hold commit slots")
	assert.Equal(t, defaultIntakeBufferSize, stats.PendingApplies, "only buffered work may hold apply slots")
	assert.Equal(t, types.DecisionOK, queue.ReserveCommit(shard, dropped),
		"a dropped reference was never applied and must not answer Duplicate")
}

func TestUnsupportedReadCommand(t *testing.T) {
	t.Parallel()
	eng, queue := newTestEngine(t)

	reader := newChanReplier()
	eng.SubmitRead(types.ReadOp{Caller: reader, Command: types.PayloadCommand{Data: []byte("x")}})

	res := reader.wait(t)
	assert.ErrorIs(t, res.Err, ErrUnsupportedCommand)

	_, _, reads := queue.snapshot()
	assert.Equal(t, 1, reads)
}
