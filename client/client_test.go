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

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/sharder/broadcast"
	"github.com/tochemey/sharder/errors"
	"github.com/tochemey/sharder/eval"
	"github.com/tochemey/sharder/gateway"
	"github.com/tochemey/sharder/log"
	"github.com/tochemey/sharder/pubsub"
	"github.com/tochemey/sharder/stats"
)

const secret = "s3cr3t"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// responders starts the "fleet" clusters on the hub.
func responders(t *testing.T, hub *pubsub.Hub, clusters int, silent ...int) {
	t.Helper()
	respondersOn(t, hub, "fleet", clusters, silent...)
}

// respondersOn starts one bus per cluster of the fleet named key on the hub.
// Each cluster owns two shards, answers stats for its key, answers the
// lookups of the guild "g<index>" and evaluates the "cluster" query.
func respondersOn(t *testing.T, hub *pubsub.Hub, key string, clusters int, silent ...int) {
	t.Helper()
	ctx := context.TODO()
	quiet := make(map[int]bool, len(silent))
	for _, index := range silent {
		quiet[index] = true
	}

	buses := make([]*broadcast.Bus, 0, clusters)
	for i := range clusters {
		index := i
		bus := broadcast.New(pubsub.NewMemory(hub),
			broadcast.WithIdentity(fmt.Sprintf("%s-%d", key, index)),
			broadcast.WithNamespace(key),
			broadcast.WithLogger(log.DiscardLogger))

		require.NoError(t, bus.Handle(ctx, StatsKind, func(_ context.Context, request *broadcast.Request) (any, bool, error) {
			if quiet[index] || request.Key != key {
				return nil, false, nil
			}
			return &stats.ClusterSnapshot{
				ID: index,
				Shards: []stats.ShardStats{
					{ID: index * 2, Status: gateway.StatusReady, Guilds: 1},
					{ID: index*2 + 1, Status: gateway.StatusReady, Guilds: 2},
				},
				Guilds:      3,
				Users:       10,
				Voice:       1,
				MemoryUsage: stats.MemoryUsage{RSS: 100, HeapUsed: 50},
			}, true, nil
		}))

		require.NoError(t, bus.Handle(ctx, GuildKind, func(_ context.Context, request *broadcast.Request) (any, bool, error) {
			var in LookupRequest
			if err := json.Unmarshal(request.Payload, &in); err != nil {
				return nil, false, err
			}
			if in.ID != fmt.Sprintf("g%d", index) {
				return nil, false, nil
			}
			return map[string]any{"id": in.ID, "cluster": index}, true, nil
		}))

		registry := eval.NewRegistry()
		registry.Register("cluster", func(context.Context, []string) (any, error) {
			return index, nil
		})
		evaluator := eval.NewEvaluator(index, registry, eval.NewSigner(secret), log.DiscardLogger)
		require.NoError(t, bus.Handle(ctx, eval.Kind, evaluator.Handle))

		require.NoError(t, bus.Start(ctx))
		buses = append(buses, bus)
	}

	t.Cleanup(func() {
		for _, bus := range buses {
			assert.NoError(t, bus.Stop(context.TODO()))
		}
	})
}

func startClient(t *testing.T, hub *pubsub.Hub, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLockKey("fleet"), WithLogger(log.DiscardLogger)}, opts...)
	client, err := New(context.TODO(), pubsub.NewMemory(hub), 2, 6, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, client.Close(context.TODO()))
	})
	return client
}

func TestNew(t *testing.T) {
	t.Run("With invalid fleet", func(t *testing.T) {
		client, err := New(context.TODO(), pubsub.NewMemory(pubsub.NewHub()), 0, 6)
		require.Error(t, err)
		assert.True(t, errors.IsConfigurationError(err))
		assert.Nil(t, client)
	})
	t.Run("With fleet size", func(t *testing.T) {
		client := startClient(t, pubsub.NewHub())
		assert.Equal(t, 3, client.Clusters())
	})
}

func TestStats(t *testing.T) {
	t.Run("With every cluster answering", func(t *testing.T) {
		hub := pubsub.NewHub()
		responders(t, hub, 3)
		client := startClient(t, hub)

		out, err := client.Stats(context.TODO(), "", time.Second)
		require.NoError(t, err)
		assert.Len(t, out.Clusters, 3)
		assert.Len(t, out.Shards, 6)
		assert.EqualValues(t, 9, out.Guilds)
		assert.EqualValues(t, 30, out.Users)
		assert.EqualValues(t, 3, out.Voice)
		assert.EqualValues(t, 300, out.MemoryUsage.RSS)
		assert.EqualValues(t, 150, out.MemoryUsage.HeapUsed)
	})
	t.Run("With a silent cluster", func(t *testing.T) {
		hub := pubsub.NewHub()
		responders(t, hub, 3, 1)
		client := startClient(t, hub)

		start := time.Now()
		out, err := client.Stats(context.TODO(), "", 300*time.Millisecond)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
		assert.Len(t, out.Clusters, 2)
		assert.Len(t, out.Shards, 4)
		assert.EqualValues(t, 6, out.Guilds)
	})
	t.Run("With another fleet", func(t *testing.T) {
		hub := pubsub.NewHub()
		responders(t, hub, 3)
		respondersOn(t, hub, "beta", 4)
		client := startClient(t, hub)

		start := time.Now()
		out, err := client.Stats(context.TODO(), "beta", 300*time.Millisecond)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
		require.Len(t, out.Clusters, 4)
		assert.Len(t, out.Shards, 8)
		assert.EqualValues(t, 12, out.Guilds)

		ids := make([]int, 0, len(out.Clusters))
		for _, cluster := range out.Clusters {
			ids = append(ids, cluster.ID)
		}
		assert.ElementsMatch(t, []int{0, 1, 2, 3}, ids)

		// the own fleet is still reachable
		own, err := client.Stats(context.TODO(), "", time.Second)
		require.NoError(t, err)
		assert.Len(t, own.Clusters, 3)
	})
	t.Run("With an unknown key", func(t *testing.T) {
		hub := pubsub.NewHub()
		responders(t, hub, 3)
		client := startClient(t, hub)

		out, err := client.Stats(context.TODO(), "other", 200*time.Millisecond)
		require.NoError(t, err)
		assert.Empty(t, out.Clusters)
		assert.Empty(t, out.Shards)
	})
}

func TestLookups(t *testing.T) {
	hub := pubsub.NewHub()
	responders(t, hub, 3)
	client := startClient(t, hub, WithRequestTimeout(200*time.Millisecond))

	guild, ok, err := client.GuildByID(context.TODO(), "g2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"g2","cluster":2}`, string(guild))

	guild, ok, err = client.GuildByID(context.TODO(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, guild)

	// nobody handles users
	user, ok, err := client.UserByID(context.TODO(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, user)
}

func TestEvalAll(t *testing.T) {
	t.Run("Without a shared secret", func(t *testing.T) {
		hub := pubsub.NewHub()
		spy := pubsub.NewMemory(hub)
		require.NoError(t, spy.Subscribe(context.TODO(), "fleet:request:"+eval.Kind))
		t.Cleanup(func() { _ = spy.Close() })

		client := startClient(t, hub)
		results, err := client.EvalAll(context.TODO(), "cluster", nil, time.Second)
		require.Error(t, err)
		assert.True(t, errors.IsConfigurationError(err))
		assert.Nil(t, results)

		select {
		case message := <-spy.Messages():
			t.Fatalf("unexpected evaluation request on %s", message.Channel)
		case <-time.After(100 * time.Millisecond):
		}
	})
	t.Run("With a shared secret", func(t *testing.T) {
		hub := pubsub.NewHub()
		responders(t, hub, 3)
		client := startClient(t, hub, WithSharedSecret(secret))

		results, err := client.EvalAll(context.TODO(), "cluster", nil, time.Second)
		require.NoError(t, err)
		require.Len(t, results, 3)
		clusters := make([]int, 0, 3)
		for _, result := range results {
			assert.Empty(t, result.Error)
			clusters = append(clusters, result.Cluster)
		}
		assert.ElementsMatch(t, []int{0, 1, 2}, clusters)
	})
	t.Run("With a wrong shared secret", func(t *testing.T) {
		hub := pubsub.NewHub()
		responders(t, hub, 2)
		client := startClient(t, hub, WithSharedSecret("wrong"))

		results, err := client.EvalAll(context.TODO(), "cluster", nil, 200*time.Millisecond)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
	t.Run("With an unknown query", func(t *testing.T) {
		hub := pubsub.NewHub()
		responders(t, hub, 3)
		client := startClient(t, hub, WithSharedSecret(secret))

		results, err := client.EvalAll(context.TODO(), "heap", nil, time.Second)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for _, result := range results {
			assert.Contains(t, result.Error, "unknown query")
		}
	})
}

func TestEvents(t *testing.T) {
	hub := pubsub.NewHub()
	publisher := startClient(t, hub)
	subscriber := startClient(t, hub)

	received := make(chan string, 1)
	require.NoError(t, subscriber.SubscribeToEvent(context.TODO(), "deploy", func(_ context.Context, _ string, message json.RawMessage) {
		var version string
		_ = json.Unmarshal(message, &version)
		received <- version
	}))

	require.NoError(t, publisher.Publish(context.TODO(), "deploy", "v2"))
	select {
	case version := <-received:
		assert.Equal(t, "v2", version)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestAttach(t *testing.T) {
	hub := pubsub.NewHub()
	responders(t, hub, 3)

	bus := broadcast.New(pubsub.NewMemory(hub), broadcast.WithNamespace("fleet"), broadcast.WithLogger(log.DiscardLogger))
	require.NoError(t, bus.Start(context.TODO()))

	client, err := Attach(bus, 2, 6, WithLockKey("fleet"), WithLogger(log.DiscardLogger))
	require.NoError(t, err)

	out, err := client.Stats(context.TODO(), "", time.Second)
	require.NoError(t, err)
	assert.Len(t, out.Clusters, 3)

	// the bus outlives the client
	require.NoError(t, client.Close(context.TODO()))
	_, _, err = bus.RequestFirst(context.TODO(), GuildKind, &LookupRequest{ID: "g0"}, time.Second)
	require.NoError(t, err)
	require.NoError(t, bus.Stop(context.TODO()))
}
