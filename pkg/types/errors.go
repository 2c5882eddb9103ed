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

import (
	"errors"
	"fmt"
)

// --- Admission Rejection Errors ---

// All rejections are terminal at this layer: the front end reports them once
// and leaves retry policy to the caller. Callers should use
// `errors.Is(err, ...)` against these sentinels.
var (
	// ErrDuplicateRequest indicates a commit reference that was already seen
	// and is still in flight or recently completed.
	ErrDuplicateRequest = errors.New("duplicate request reference")

	// ErrCommitQueueFull indicates the shard's commit admission tier is
	// exhausted.
	ErrCommitQueueFull = errors.New("commit queue full")

	// ErrApplyQueueFull indicates the shard's shared apply tier is exhausted.
	ErrApplyQueueFull = errors.New("apply queue full")

	// ErrReadQueueFull indicates the shard's read reservation tier is
	// exhausted.
	ErrReadQueueFull = errors.New("read queue full")
)

// --- Submission Errors ---

var (
	// ErrAcceptorNotRunning indicates a submission arrived before the
	// acceptor's loop started or after it stopped.
	ErrAcceptorNotRunning = errors.New("acceptor is not running")

	// ErrAcceptorBusy indicates a fire-and-forget hand-off found the
	// acceptor's intake buffer full. The submitter is never blocked; it may
	// resubmit at its own pace.
	ErrAcceptorBusy = errors.New("acceptor intake buffer full")
)

// RejectionError reports a rejected commit together with the reference that
// was rejected, so a caller multiplexing many outstanding commits can tell
// which one failed. Reason is one of the admission rejection sentinels and
// is reachable through `errors.Is` via Unwrap.
type RejectionError struct {
	Ref    uint64
	Reason error
}

// Error returns a string version of the error.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("commit %d rejected: %v", e.Ref, e.Reason)
}

// Unwrap exposes the rejection sentinel for `errors.Is` checks.
func (e *RejectionError) Unwrap() error { return e.Reason }
