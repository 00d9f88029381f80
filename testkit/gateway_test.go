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

package testkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/sharder/gateway"
)

func next(t *testing.T, gw *Gateway) gateway.Event {
	t.Helper()
	select {
	case event := <-gw.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("no event emitted")
	}
	return gateway.Event{}
}

func TestGateway(t *testing.T) {
	t.Run("With manual lifecycle", func(t *testing.T) {
		ctx := context.TODO()
		gw := NewGateway(WithGuild("g1", 2), WithGuild("g2", 2), WithUser("u1", "alice"), WithVoiceConnections(3))
		defer gw.Close()

		_, _, ok := gw.Range()
		assert.False(t, ok)
		assert.Empty(t, gw.ShardIDs())

		gw.SetShardRange(2, 3)
		assert.Equal(t, []int{2, 3}, gw.ShardIDs())
		assert.Equal(t, gateway.StatusDisconnected, gw.ShardStatus(2))

		require.NoError(t, gw.Connect(ctx))
		assert.Equal(t, 1, gw.ConnectCalls())
		assert.Equal(t, gateway.StatusConnecting, gw.ShardStatus(3))

		gw.ReadyShard(2)
		assert.Equal(t, gateway.Event{Kind: gateway.ShardReady, ShardID: 2}, next(t, gw))
		gw.ReadyShard(3)
		assert.Equal(t, gateway.Event{Kind: gateway.ShardReady, ShardID: 3}, next(t, gw))
		assert.Equal(t, gateway.Ready, next(t, gw).Kind)

		cause := errors.New("reset by peer")
		gw.DropShard(3, cause)
		event := next(t, gw)
		assert.Equal(t, gateway.ShardDisconnect, event.Kind)
		assert.Equal(t, 3, event.ShardID)
		assert.ErrorIs(t, event.Err, cause)

		require.NoError(t, gw.ConnectShard(ctx, 3))
		assert.Equal(t, []int{3}, gw.Dispatched())

		assert.Equal(t, 2, gw.GuildCount())
		assert.Equal(t, 2, gw.ShardGuildCount(2))
		assert.Zero(t, gw.ShardGuildCount(3))
		assert.Equal(t, 1, gw.UserCount())
		assert.Equal(t, 3, gw.VoiceConnectionCount())

		user, ok := gw.User("u1")
		assert.True(t, ok)
		assert.Equal(t, "alice", user)
		_, ok = gw.Guild("g3")
		assert.False(t, ok)

		_, ok = gw.ShardLatency(2)
		assert.False(t, ok)
		gw.SetLatency(2, 42*time.Millisecond)
		latency, ok := gw.ShardLatency(2)
		assert.True(t, ok)
		assert.Equal(t, 42*time.Millisecond, latency)
	})
	t.Run("With auto readiness", func(t *testing.T) {
		gw := NewGateway(WithAutoReady(10 * time.Millisecond))
		defer gw.Close()

		gw.SetShardRange(0, 1)
		require.NoError(t, gw.Connect(context.TODO()))
		assert.Equal(t, gateway.ShardReady, next(t, gw).Kind)
		assert.Equal(t, gateway.ShardReady, next(t, gw).Kind)
		assert.Equal(t, gateway.Ready, next(t, gw).Kind)
	})
	t.Run("With connect failure", func(t *testing.T) {
		gw := NewGateway()
		gw.SetShardRange(0, 0)
		gw.SetConnectError(assert.AnError)
		assert.ErrorIs(t, gw.Connect(context.TODO()), assert.AnError)
		assert.ErrorIs(t, gw.ConnectShard(context.TODO(), 0), assert.AnError)
		assert.Zero(t, gw.ConnectCalls())
	})
}
