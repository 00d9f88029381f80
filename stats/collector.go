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
	"runtime"
	"time"

	"github.com/tochemey/sharder/gateway"
)

// MemoryReader samples the memory usage of the process
type MemoryReader func() MemoryUsage

// RuntimeMemory reads the memory usage from the Go runtime.
// RSS is approximated by the memory obtained from the OS.
func RuntimeMemory() MemoryUsage {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return MemoryUsage{
		RSS:      stats.Sys,
		HeapUsed: stats.HeapAlloc,
	}
}

// Collector builds the snapshot of the local cluster from its gateway client
type Collector struct {
	clusterID int
	gateway   gateway.Gateway
	memory    MemoryReader
	startedAt time.Time
	clock     func() time.Time
}

// NewCollector creates a Collector. Uptime is measured from this call.
func NewCollector(clusterID int, gw gateway.Gateway, memory MemoryReader) *Collector {
	if memory == nil {
		memory = RuntimeMemory
	}
	return &Collector{
		clusterID: clusterID,
		gateway:   gw,
		memory:    memory,
		startedAt: time.Now(),
		clock:     time.Now,
	}
}

// Snapshot reads the local counters. Nothing is cached between calls.
func (c *Collector) Snapshot() *ClusterSnapshot {
	shardIDs := c.gateway.ShardIDs()
	shards := make([]ShardStats, 0, len(shardIDs))
	for _, shardID := range shardIDs {
		shard := ShardStats{
			ID:     shardID,
			Status: c.gateway.ShardStatus(shardID),
			Guilds: c.gateway.ShardGuildCount(shardID),
		}
		if latency, ok := c.gateway.ShardLatency(shardID); ok {
			millis := latency.Milliseconds()
			shard.Latency = &millis
		}
		shards = append(shards, shard)
	}

	return &ClusterSnapshot{
		ID:          c.clusterID,
		Shards:      shards,
		Guilds:      c.gateway.GuildCount(),
		Users:       c.gateway.UserCount(),
		Voice:       c.gateway.VoiceConnectionCount(),
		MemoryUsage: c.memory(),
		Uptime:      c.Uptime().Milliseconds(),
	}
}

// Uptime returns the time elapsed since the collector was created
func (c *Collector) Uptime() time.Duration {
	return c.clock().Sub(c.startedAt)
}
