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

// Package stats builds the per-cluster telemetry snapshots answered over the
// broadcast bus and folds them into fleet-wide figures.
package stats

import (
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"

	"github.com/tochemey/sharder/gateway"
)

// MemoryUsage is the memory footprint of a cluster process, in bytes
type MemoryUsage struct {
	RSS      uint64 `json:"rss"`
	HeapUsed uint64 `json:"heapUsed"`
}

// ShardStats describes a single shard
type ShardStats struct {
	ID     int            `json:"id"`
	Status gateway.Status `json:"status"`
	// Latency is the heartbeat round trip in milliseconds, nil when unknown
	Latency *int64 `json:"latency"`
	Guilds  int    `json:"guilds"`
}

// ClusterSnapshot is what a cluster answers about itself
type ClusterSnapshot struct {
	ID          int          `json:"id"`
	Shards      []ShardStats `json:"shards"`
	Guilds      int          `json:"guilds"`
	Users       int          `json:"users"`
	Voice       int          `json:"voice"`
	MemoryUsage MemoryUsage  `json:"memoryUsage"`
	// Uptime is in milliseconds
	Uptime int64 `json:"uptime"`
}

// Stats is the fleet-wide aggregate of the snapshots collected for a query
type Stats struct {
	Guilds      int               `json:"guilds"`
	Users       int               `json:"users"`
	Voice       int               `json:"voice"`
	Shards      []ShardStats      `json:"shards"`
	MemoryUsage MemoryUsage       `json:"memoryUsage"`
	Clusters    []ClusterSnapshot `json:"clusters"`
}

// Aggregate folds the snapshots into Stats. Counters are summed while
// shards and clusters keep the order of the snapshots. Every snapshot is kept
// as answered in Clusters.
func Aggregate(snapshots []*ClusterSnapshot) *Stats {
	out := &Stats{
		Shards:   make([]ShardStats, 0),
		Clusters: make([]ClusterSnapshot, 0, len(snapshots)),
	}

	for _, snapshot := range snapshots {
		if snapshot == nil {
			continue
		}

		out.Guilds += snapshot.Guilds
		out.Users += snapshot.Users
		out.Voice += snapshot.Voice
		out.MemoryUsage.RSS += snapshot.MemoryUsage.RSS
		out.MemoryUsage.HeapUsed += snapshot.MemoryUsage.HeapUsed
		out.Shards = append(out.Shards, snapshot.Shards...)

		out.Clusters = append(out.Clusters, *snapshot)
	}
	return out
}

// Decode parses the raw snapshots received from the fleet.
// Malformed entries are skipped and reported in the returned error.
func Decode(responses []json.RawMessage) ([]*ClusterSnapshot, error) {
	var err error
	snapshots := make([]*ClusterSnapshot, 0, len(responses))
	for index, response := range responses {
		snapshot := new(ClusterSnapshot)
		if e := json.Unmarshal(response, snapshot); e != nil {
			err = multierr.Append(err, fmt.Errorf("snapshot %d: %w", index, e))
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, err
}
