// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMpscQueue(t *testing.T) {
	t.Run("With Push/Pop", func(t *testing.T) {
		q := NewMpscQueue[int]()
		require.True(t, q.IsEmpty())
		for j := 0; j < 100; j++ {
			require.Zero(t, q.Len())
			_, ok := q.Pop()
			require.False(t, ok)

			for i := 0; i < j; i++ {
				q.Push(i)
			}

			for i := 0; i < j; i++ {
				x, ok := q.Pop()
				require.True(t, ok)
				require.Equal(t, i, x)
			}
		}
		assert.True(t, q.IsEmpty())
	})
	t.Run("With concurrent producers", func(t *testing.T) {
		q := NewMpscQueue[int]()
		const (
			producers = 8
			perWorker = 500
		)

		var wg sync.WaitGroup
		for p := range producers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range perWorker {
					q.Push(p*perWorker + i)
				}
			}()
		}
		wg.Wait()

		require.EqualValues(t, producers*perWorker, q.Len())
		seen := make(map[int]struct{}, producers*perWorker)
		for {
			value, ok := q.Pop()
			if !ok {
				break
			}
			seen[value] = struct{}{}
		}
		assert.Len(t, seen, producers*perWorker)
		assert.True(t, q.IsEmpty())
	})
}
