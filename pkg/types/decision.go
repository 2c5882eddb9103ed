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

package types

import "strconv"

// Decision is the admission queue's verdict on one submission. It is
// designed to be a low-cardinality label ideal for metrics; the rejection
// errors in this package carry the fine-grained detail.
type Decision int

const (
	// DecisionOK admits the submission into the replication pipeline.
	DecisionOK Decision = iota

	// DecisionDuplicate rejects a commit whose reference was already seen
	// and is still in flight or recently completed.
	DecisionDuplicate

	// DecisionCommitQueueFull rejects a commit because the shard's commit
	// admission tier is exhausted.
	DecisionCommitQueueFull

	// DecisionApplyQueueFull rejects a commit or read because the shard's
	// shared apply tier is exhausted.
	DecisionApplyQueueFull

	// DecisionReadQueueFull rejects a read because the shard's read
	// reservation tier is exhausted.
	DecisionReadQueueFull
)

// String returns a human-readable representation of the Decision.
func (d Decision) String() string {
	switch d {
	case DecisionOK:
		return "OK"
	case DecisionDuplicate:
		return "Duplicate"
	case DecisionCommitQueueFull:
		return "CommitQueueFull"
	case DecisionApplyQueueFull:
		return "ApplyQueueFull"
	case DecisionReadQueueFull:
		return "ReadQueueFull"
	default:
		// Return the integer value for unknown decisions to aid in debugging.
		return "UnknownDecision(" + strconv.Itoa(int(d)) + ")"
	}
}
