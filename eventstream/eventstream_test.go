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

package eventstream

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(sub Subscriber) []any {
	var payloads []any
	for message := range sub.Iterator() {
		payloads = append(payloads, message.Payload())
	}
	return payloads
}

func TestStream(t *testing.T) {
	t.Run("Message accessors", func(t *testing.T) {
		msg := NewMessage("topic", "payload")
		require.Equal(t, "topic", msg.Topic())
		require.Equal(t, "payload", msg.Payload())
	})
	t.Run("With Subscriber lifecycle", func(t *testing.T) {
		sub := newSubscriber()
		require.NotEmpty(t, sub.ID())
		require.True(t, sub.Active())
		assert.Empty(t, drain(sub))

		sub.subscribe("a")
		sub.subscribe("b")
		assert.ElementsMatch(t, []string{"a", "b"}, sub.Topics())

		sub.signal(NewMessage("a", "one"))
		sub.signal(NewMessage("b", "two"))
		assert.Equal(t, []any{"one", "two"}, drain(sub))

		sub.unsubscribe("a")
		assert.Equal(t, []string{"b"}, sub.Topics())

		sub.Shutdown()
		require.False(t, sub.Active())
		sub.signal(NewMessage("b", "three"))
		assert.Empty(t, drain(sub))
	})
	t.Run("With publish and subscribe", func(t *testing.T) {
		stream := New()
		first := stream.AddSubscriber()
		second := stream.AddSubscriber()
		stream.Subscribe(first, "lifecycle")
		stream.Subscribe(second, "lifecycle")
		stream.Subscribe(second, "other")
		assert.Equal(t, 2, stream.SubscribersCount("lifecycle"))
		assert.Zero(t, stream.SubscribersCount("unknown"))

		for i := range 5 {
			stream.Publish("lifecycle", i)
		}
		stream.Publish("nobody", "dropped")

		assert.Equal(t, []any{0, 1, 2, 3, 4}, drain(first))
		assert.Equal(t, []any{0, 1, 2, 3, 4}, drain(second))

		stream.Unsubscribe(first, "lifecycle")
		stream.Publish("lifecycle", 5)
		assert.Empty(t, drain(first))
		assert.Equal(t, []any{5}, drain(second))

		stream.RemoveSubscriber(second)
		assert.False(t, second.Active())
		assert.Zero(t, stream.SubscribersCount("other"))

		// inactive subscribers cannot subscribe
		stream.Subscribe(second, "lifecycle")
		assert.Zero(t, stream.SubscribersCount("lifecycle"))

		stream.Close()
		assert.False(t, first.Active())
	})
	t.Run("With concurrent publishers", func(t *testing.T) {
		stream := New()
		sub := stream.AddSubscriber()
		stream.Subscribe(sub, "lifecycle")

		var wg sync.WaitGroup
		for publisher := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 100 {
					stream.Publish("lifecycle", fmt.Sprintf("%d-%d", publisher, i))
				}
			}()
		}
		wg.Wait()

		// each publisher's own order is kept
		last := make(map[string]int)
		count := 0
		for message := range sub.Iterator() {
			publisher, position, found := strings.Cut(message.Payload().(string), "-")
			require.True(t, found)
			index, err := strconv.Atoi(position)
			require.NoError(t, err)
			if previous, ok := last[publisher]; ok {
				assert.Greater(t, index, previous)
			}
			last[publisher] = index
			count++
		}
		assert.Equal(t, 400, count)
	})
}
