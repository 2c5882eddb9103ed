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

package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	uberzap "go.uber.org/zap"
)

// Shared verbosity levels for logr.V() calls across the module.
const (
	// DEFAULT is for lifecycle events and expected-but-notable outcomes.
	DEFAULT = 1
	// VERBOSE is for per-operation detail useful when tracking a workload.
	VERBOSE = 2
	// DEBUG is for rejection paths and other branch-level detail.
	DEBUG = 3
	// TRACE is for the hottest per-item events.
	TRACE = 4
)

// NewTestLogger creates a new Zap logger using the dev mode.
func NewTestLogger() logr.Logger {
	zl, err := uberzap.NewDevelopment(uberzap.AddCaller())
	if err != nil {
		// NewDevelopment only fails on invalid options; none are passed here.
		panic(err)
	}
	return zapr.NewLogger(zl)
}
