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

package acceptor

import (
	"sync"
	"sync/atomic"

	"github.com/Laguna-Games/waraft/pkg/types"
)

// replyItem turns a blocking submission into a deferred reply: the
// submitting goroutine waits on Done while the item itself travels with the
// request as its return address.
//
// # Concurrency
//
// Deliver is the only point of concurrency concern. It is made atomic and
// idempotent through `sync.Once`, so whichever component ends up owning the
// request (this acceptor on a rejection, the engine on the accept path) sets
// the result exactly once, even if a late deliverer races a timed-out
// caller. All other fields are set at creation and never modified.
type replyItem struct {
	// done is closed exactly once when the result is delivered.
	done chan struct{}
	// result stores the delivered types.Result. It is written exactly once,
	// protected by `onceDeliver`.
	result atomic.Value
	// onceDeliver ensures the delivery logic is idempotent.
	onceDeliver sync.Once
}

// ensure replyItem implements the return-address contract.
var _ types.Replier = &replyItem{}

func newReplyItem() *replyItem {
	return &replyItem{done: make(chan struct{})}
}

// Deliver records the result and closes the done channel. Later calls are
// dropped, which is what makes a reply to a caller that already timed out
// harmless: nobody is listening and nothing is overwritten.
func (ri *replyItem) Deliver(r types.Result) {
	ri.onceDeliver.Do(func() {
		ri.result.Store(r)
		close(ri.done)
	})
}

// Done returns a channel that is closed once the reply has been delivered.
// It is designed to be used in a `select` alongside context cancellation.
func (ri *replyItem) Done() <-chan struct{} {
	return ri.done
}

// FinalResult returns the delivered result.
//
// CRITICAL: it must only be called after the channel returned by Done has
// been closed; before that the result has not been written.
func (ri *replyItem) FinalResult() types.Result {
	if r, ok := ri.result.Load().(types.Result); ok {
		return r
	}
	return types.Result{}
}
