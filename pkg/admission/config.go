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

import "fmt"

const (
	defaultMaxPendingCommits = 64
	defaultMaxPendingApplies = 128
	defaultMaxPendingReads   = 64
	defaultCompletedWindow   = 512
)

// Config holds the per-shard capacity limits enforced by the queue service.
// The same limits apply independently to every shard.
type Config struct {
	// MaxPendingCommits caps the commit admission tier: commits reserved but
	// not yet released by the engine.
	MaxPendingCommits int

	// MaxPendingApplies caps the shared apply tier, consumed by both commits
	// and reads.
	MaxPendingApplies int

	// MaxPendingReads caps the read reservation tier.
	MaxPendingReads int

	// CompletedWindow is how many recently released commit references are
	// remembered and still answer Duplicate.
	CompletedWindow int
}

// validateAndApplyDefaults rejects negative values and fills in defaults for
// zero values.
func (c *Config) validateAndApplyDefaults() error {
	if c.MaxPendingCommits < 0 || c.MaxPendingApplies < 0 || c.MaxPendingReads < 0 {
		return fmt.Errorf("capacity limits must not be negative, got commits=%d applies=%d reads=%d",
			c.MaxPendingCommits, c.MaxPendingApplies, c.MaxPendingReads)
	}
	if c.CompletedWindow < 0 {
		return fmt.Errorf("CompletedWindow must not be negative, got %d", c.CompletedWindow)
	}
	if c.MaxPendingCommits == 0 {
		c.MaxPendingCommits = defaultMaxPendingCommits
	}
	if c.MaxPendingApplies == 0 {
		c.MaxPendingApplies = defaultMaxPendingApplies
	}
	if c.MaxPendingReads == 0 {
		c.MaxPendingReads = defaultMaxPendingReads
	}
	if c.CompletedWindow == 0 {
		c.CompletedWindow = defaultCompletedWindow
	}
	return nil
}
