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

import "fmt"

// ShardKey is the immutable identity of one table/partition unit of the
// replicated state machine. It is set once at construction and is the key
// under which the supervising runtime registers a shard's front end.
//
// The key also derives the conventional names of the shard's collaborators
// (acceptor, consensus server, storage), replacing implicit global naming
// with values a registry can resolve explicitly.
type ShardKey struct {
	// Table is the name of the replicated table this shard belongs to.
	Table string
	// Partition is the partition number within the table.
	Partition uint32
}

// String renders the key in the canonical "table/partition" form used as a
// metric label and log field.
func (k ShardKey) String() string {
	return fmt.Sprintf("%s/%d", k.Table, k.Partition)
}

// AcceptorName derives the name of the shard's acceptor.
func (k ShardKey) AcceptorName() string {
	return fmt.Sprintf("raft_acceptor_%s_%d", k.Table, k.Partition)
}

// ServerName derives the name of the shard's consensus server.
func (k ShardKey) ServerName() string {
	return fmt.Sprintf("raft_server_%s_%d", k.Table, k.Partition)
}

// StorageName derives the name of the shard's storage collaborator.
func (k ShardKey) StorageName() string {
	return fmt.Sprintf("raft_storage_%s_%d", k.Table, k.Partition)
}
