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

// Package contracts defines the interfaces of the collaborators the shard
// front end consumes but does not own. The interfaces are written from the
// consumer's point of view: they describe exactly what the acceptor needs,
// nothing more.
package contracts

import (
	"github.com/Laguna-Games/waraft/pkg/types"
)

// AdmissionQueue tracks in-flight commit/apply/read reservations for each
// shard and is the sole arbiter of duplicate detection and capacity. Its
// decisions are authoritative: the acceptor never second-guesses them.
//
// Reserve calls are synchronous and are the only point where the acceptor's
// processing loop may stall. Release calls are invoked by the engine as work
// completes; releasing a reservation that was never made is a no-op.
type AdmissionQueue interface {
	// ReserveCommit gates one commit. It returns DecisionOK, or
	// DecisionDuplicate if ref is in flight or recently completed, or
	// DecisionCommitQueueFull / DecisionApplyQueueFull on capacity
	// exhaustion. On DecisionOK one commit slot and one apply slot are held
	// and ref is recorded in flight.
	ReserveCommit(shard types.ShardKey, ref uint64) types.Decision

	// ReserveRead gates one strong read. Reads are not deduplicated; only
	// the read reservation tier and the shared apply tier are consulted. On
	// DecisionOK one read slot and one apply slot are held.
	ReserveRead(shard types.ShardKey) types.Decision

	// ReleaseCommit frees the commit slot held for ref and retires the
	// reference into the recently-completed dedup window.
	ReleaseCommit(shard types.ShardKey, ref uint64)

	// CancelCommit abandons the reservation held for ref without retiring it:
	// the commit and apply slots are freed and ref becomes admissible again.
	// It is for work that never applied, which must be neither in flight nor
	// completed. Cancelling an unknown reference is a no-op.
	CancelCommit(shard types.ShardKey, ref uint64)

	// ReleaseApply frees one shared apply slot.
	ReleaseApply(shard types.ShardKey)

	// ReleaseRead frees one read slot and its paired apply slot.
	ReleaseRead(shard types.ShardKey)
}

// Engine is the consensus collaborator: it is solely responsible for
// ordering, replicating, and applying admitted work, and for delivering the
// reply to the original caller.
//
// Both submissions are fire-and-forget and must never block the submitter.
// Ownership of the reply transfers with the call: after hand-off the
// acceptor holds nothing and has no further control over the request. If the
// engine fails after hand-off, no error is re-delivered upstream — a
// blocking caller observes its own timeout instead. Work the engine cannot
// accept is dropped, and the engine abandons its admission reservations so
// the drop leaks no capacity.
type Engine interface {
	// SubmitCommit hands over an admitted commit together with the original
	// caller's return address.
	SubmitCommit(op types.Op, caller types.Replier)

	// SubmitRead hands over an admitted strong read. The engine must serve a
	// result that reflects all commits applied up to the moment the read is
	// served.
	SubmitRead(read types.ReadOp)
}

// Storage is the shard's volatile table/key store, consumed by the engine
// when applying commands.
type Storage interface {
	// Read returns the value stored under table/key, or an error wrapping
	// ErrKeyNotFound.
	Read(table, key string) ([]byte, error)

	// Write stores value under table/key, replacing any previous value.
	Write(table, key string, value []byte) error

	// Delete removes table/key. Deleting an absent key is a no-op.
	Delete(table, key string) error
}
