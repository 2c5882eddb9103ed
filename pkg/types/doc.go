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

// Package types defines the core, dependency-free vocabulary of the shard
// front end: shard identity, the `Command` sum type, commit and read request
// shapes, admission decisions, the return-address abstraction, and the error
// taxonomy shared by every other package in this module.
//
// Everything in this package is an immutable value or a small interface.
// None of it carries request-scoped mutable state.
package types
