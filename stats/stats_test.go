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

package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/sharder/gateway"
	"github.com/tochemey/sharder/testkit"
)

func snapshot(id int, shards ...int) *ClusterSnapshot {
	out := &ClusterSnapshot{
		ID:          id,
		Guilds:      10 * len(shards),
		Users:       100,
		Voice:       1,
		MemoryUsage: MemoryUsage{RSS: 1000, HeapUsed: 500},
		Uptime:      int64(id) * 1000,
	}
	for _, shard := range shards {
		out.Shards = append(out.Shards, ShardStats{ID: shard, Status: gateway.StatusReady, Guilds: 10})
	}
	return out
}

func TestAggregate(t *testing.T) {
	t.Run("With a full fleet", func(t *testing.T) {
		aggregate := Aggregate([]*ClusterSnapshot{snapshot(0, 0, 1), snapshot(1, 2, 3), snapshot(2, 4, 5)})
		assert.Equal(t, 60, aggregate.Guilds)
		assert.Equal(t, 300, aggregate.Users)
		assert.Equal(t, 3, aggregate.Voice)
		assert.Equal(t, MemoryUsage{RSS: 3000, HeapUsed: 1500}, aggregate.MemoryUsage)
		require.Len(t, aggregate.Clusters, 3)
		require.Len(t, aggregate.Shards, 6)

		for i, shard := range aggregate.Shards {
			assert.Equal(t, i, shard.ID)
		}
		assert.Equal(t, *snapshot(1, 2, 3), aggregate.Clusters[1])
		assert.Equal(t, []ShardStats{
			{ID: 2, Status: gateway.StatusReady, Guilds: 10},
			{ID: 3, Status: gateway.StatusReady, Guilds: 10},
		}, aggregate.Clusters[1].Shards)
		assert.EqualValues(t, 2000, aggregate.Clusters[2].Uptime)
	})
	t.Run("With a partial fleet", func(t *testing.T) {
		aggregate := Aggregate([]*ClusterSnapshot{snapshot(1, 2, 3), nil})
		assert.Equal(t, 20, aggregate.Guilds)
		assert.Len(t, aggregate.Clusters, 1)
		assert.Len(t, aggregate.Shards, 2)
	})
	t.Run("With nothing collected", func(t *testing.T) {
		aggregate := Aggregate(nil)
		assert.Zero(t, aggregate.Guilds)
		assert.NotNil(t, aggregate.Shards)
		assert.NotNil(t, aggregate.Clusters)

		bytea, err := json.Marshal(aggregate)
		require.NoError(t, err)
		assert.JSONEq(t, `{"guilds":0,"users":0,"voice":0,"shards":[],"memoryUsage":{"rss":0,"heapUsed":0},"clusters":[]}`, string(bytea))
	})
}

func TestDecode(t *testing.T) {
	valid, err := json.Marshal(snapshot(0, 0))
	require.NoError(t, err)

	snapshots, err := Decode([]json.RawMessage{valid, json.RawMessage(`"oops"`), valid})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot 1")
	assert.Len(t, snapshots, 2)

	snapshots, err = Decode([]json.RawMessage{valid})
	require.NoError(t, err)
	assert.Equal(t, snapshot(0, 0), snapshots[0])
}

func TestCollector(t *testing.T) {
	gw := testkit.NewGateway(testkit.WithGuild("g1", 4), testkit.WithUser("u1", "alice"), testkit.WithVoiceConnections(2))
	gw.SetShardRange(4, 5)
	gw.ReadyShard(4)
	gw.SetLatency(4, 35*time.Millisecond)

	collector := NewCollector(2, gw, func() MemoryUsage { return MemoryUsage{RSS: 64, HeapUsed: 32} })
	collector.clock = func() time.Time { return collector.startedAt.Add(90 * time.Second) }

	got := collector.Snapshot()
	assert.Equal(t, 2, got.ID)
	assert.Equal(t, 1, got.Guilds)
	assert.Equal(t, 1, got.Users)
	assert.Equal(t, 2, got.Voice)
	assert.Equal(t, MemoryUsage{RSS: 64, HeapUsed: 32}, got.MemoryUsage)
	assert.EqualValues(t, 90_000, got.Uptime)
	require.Len(t, got.Shards, 2)

	assert.Equal(t, gateway.StatusReady, got.Shards[0].Status)
	require.NotNil(t, got.Shards[0].Latency)
	assert.EqualValues(t, 35, *got.Shards[0].Latency)
	assert.Equal(t, 1, got.Shards[0].Guilds)

	assert.Equal(t, gateway.StatusDisconnected, got.Shards[1].Status)
	assert.Nil(t, got.Shards[1].Latency)

	bytea, err := json.Marshal(got.Shards[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5,"status":"disconnected","latency":null,"guilds":0}`, string(bytea))
}

func TestRuntimeMemory(t *testing.T) {
	usage := RuntimeMemory()
	assert.NotZero(t, usage.RSS)
	assert.NotZero(t, usage.HeapUsed)
	assert.GreaterOrEqual(t, usage.RSS, usage.HeapUsed)
}
