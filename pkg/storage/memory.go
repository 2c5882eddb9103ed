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

// Package storage provides the volatile storage collaborator the engine
// applies commands against.
package storage

import (
	"fmt"
	"sync"

	"github.com/Laguna-Games/waraft/pkg/contracts"
)

// Memory is an in-memory table/key store. It is safe for concurrent use;
// in practice writes arrive serialized from a single apply loop and the
// RWMutex only arbitrates against out-of-band readers.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string][]byte
}

var _ contracts.Storage = &Memory{}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]map[string][]byte)}
}

// Read returns the value stored under table/key.
func (m *Memory) Read(table, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.tables[table][key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", contracts.ErrKeyNotFound, table, key)
}

// Write stores value under table/key, replacing any previous value.
func (m *Memory) Write(table, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		t = make(map[string][]byte)
		m.tables[table] = t
	}
	t[key] = value
	return nil
}

// Delete removes table/key. Deleting an absent key is a no-op.
func (m *Memory) Delete(table, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables[table], key)
	return nil
}
