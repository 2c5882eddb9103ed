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

// Result is the terminal reply for a commit or read. A rejection or apply
// failure is carried in Err; a successful operation carries its value (which
// may be empty, e.g. for a noop commit).
type Result struct {
	Value []byte
	Err   error
}

// Replier is an opaque return address: "who is waiting for this result and
// how to reach them." It is passed by value between components; the holder
// never interprets it, only delivers through it.
//
// Conformance: Deliver MUST be safe to call from any goroutine and MUST be
// idempotent — only the first delivery is observed, later calls are dropped.
// This is what makes reply-ownership transfer safe: whichever component ends
// up owning the request delivers exactly once, and a racing late delivery is
// harmless.
type Replier interface {
	Deliver(Result)
}

// ReplierFunc adapts a function to the Replier interface. The function
// itself is responsible for honoring the idempotency contract.
type ReplierFunc func(Result)

// Deliver invokes the wrapped function.
func (f ReplierFunc) Deliver(r Result) { f(r) }
