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
	"fmt"
	"time"
)

const (
	// defaultIntakeBufferSize decouples submitters from the actor loop,
	// absorbing short bursts without blocking fire-and-forget hand-offs.
	defaultIntakeBufferSize = 128

	// defaultSubmitTimeout bounds blocking Commit/Read calls.
	defaultSubmitTimeout = 2 * time.Second

	// defaultStopGracePeriod bounds how long Stop waits for the loop to
	// finish draining before giving up.
	defaultStopGracePeriod = 5 * time.Second
)

// Config holds the tunables of one shard acceptor.
type Config struct {
	// IntakeBufferSize is the capacity of the buffered channel between
	// submitters and the actor loop. A fire-and-forget hand-off that finds
	// the buffer full fails fast with ErrAcceptorBusy.
	IntakeBufferSize int

	// SubmitTimeout is the fixed RPC timeout applied to blocking Commit and
	// Read calls. On expiry the caller observes a timeout error and any late
	// reply is dropped.
	SubmitTimeout time.Duration

	// StopGracePeriod is how long Stop waits for in-flight work to drain.
	// Stop never blocks on completion of work already handed to the engine.
	StopGracePeriod time.Duration
}

// validateAndApplyDefaults rejects negative values and fills in defaults for
// zero values.
func (c *Config) validateAndApplyDefaults() error {
	if c.IntakeBufferSize < 0 {
		return fmt.Errorf("IntakeBufferSize must not be negative, got %d", c.IntakeBufferSize)
	}
	if c.SubmitTimeout < 0 {
		return fmt.Errorf("SubmitTimeout must not be negative, got %v", c.SubmitTimeout)
	}
	if c.StopGracePeriod < 0 {
		return fmt.Errorf("StopGracePeriod must not be negative, got %v", c.StopGracePeriod)
	}
	if c.IntakeBufferSize == 0 {
		c.IntakeBufferSize = defaultIntakeBufferSize
	}
	if c.SubmitTimeout == 0 {
		c.SubmitTimeout = defaultSubmitTimeout
	}
	if c.StopGracePeriod == 0 {
		c.StopGracePeriod = defaultStopGracePeriod
	}
	return nil
}
