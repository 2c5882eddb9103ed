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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laguna-Games/waraft/pkg/types"
)

func TestReplyItemDeliverIsIdempotent(t *testing.T) {
	t.Parallel()
	item := newReplyItem()

	select {
	case <-item.Done():
		t.Fatal("Done must not be closed before delivery")
	default:
	}

	item.Deliver(types.Result{Value: []byte("first")})
	item.Deliver(types.Result{Err: errors.New("late, must be dropped")})

	select {
	case <-item.Done():
	default:
		t.Fatal("Done must be closed after delivery")
	}
	res := item.FinalResult()
	require.NoError(t, res.Err, "only the first delivery may be observed")
	assert.Equal(t, []byte("first"), res.Value)
}

func TestReplyItemConcurrentDeliver(t *testing.T) {
	t.Parallel()
	item := newReplyItem()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item.Deliver(types.Result{Value: []byte{byte(i)}})
		}()
	}
	wg.Wait()

	<-item.Done()
	// Some single delivery won; the channel closed exactly once (a double
	// close would have panicked above) and the result is stable.
	assert.Equal(t, item.FinalResult(), item.FinalResult())
}
