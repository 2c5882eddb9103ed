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

// Command is the payload of a commit or strong read. It is a sealed sum
// type: the only implementations are `NoopCommand`, `ConfigCommand`,
// `ExecuteCommand`, and `PayloadCommand`, which lets consumers switch
// exhaustively over the concrete types.
//
// Commands are immutable values constructed by the client. The front end
// never inspects them beyond routing; interpretation belongs to the
// consensus engine and its registered handlers.
type Command interface {
	isCommand()
}

// NoopCommand commits an entry with no state-machine effect. It is used to
// establish ordering or probe liveness of the replication pipeline.
type NoopCommand struct{}

func (NoopCommand) isCommand() {}

// ConfigCommand carries a new shard configuration. The payload is opaque to
// the front end; wire format is the engine's concern.
type ConfigCommand struct {
	Config []byte
}

func (ConfigCommand) isCommand() {}

// ExecuteCommand invokes a named handler against a table/key when the entry
// is applied. Args are opaque, positional handler arguments.
type ExecuteCommand struct {
	Table    string
	Key      string
	Module   string
	Function string
	Args     [][]byte
}

func (ExecuteCommand) isCommand() {}

// PayloadCommand carries an opaque application-defined payload.
type PayloadCommand struct {
	Data []byte
}

func (PayloadCommand) isCommand() {}

// Op is one commit request: a caller-unique reference paired with a command.
// The reference is the idempotency key; the admission queue is the sole
// arbiter of whether it has been seen before.
type Op struct {
	Ref     uint64
	Command Command
}

// ReadOp is one strong-read request: a command paired with the return
// address needed to deliver its reply asynchronously.
type ReadOp struct {
	Caller  Replier
	Command Command
}
