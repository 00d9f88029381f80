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

// Package shardrange maps a cluster index onto the contiguous block of
// shards that cluster owns. Every cluster computes its own block from the
// same global constants, so the computation must stay pure.
package shardrange

import (
	"fmt"

	"github.com/tochemey/sharder/errors"
)

// Range is an inclusive, zero-indexed block of shard ids
type Range struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Compute returns the shard range owned by the cluster at clusterIndex.
// Blocks are shardsPerCluster wide. The block of the highest cluster is
// clamped to totalShards-1 and therefore absorbs whatever remains.
func Compute(clusterIndex, shardsPerCluster, totalShards int) (Range, error) {
	switch {
	case shardsPerCluster <= 0:
		return Range{}, errors.NewConfigurationError("shardsPerCluster", "must be greater than zero")
	case totalShards <= 0:
		return Range{}, errors.NewConfigurationError("totalShards", "must be greater than zero")
	case clusterIndex < 0:
		return Range{}, errors.NewConfigurationError("clusterIndex", "must not be negative")
	}

	first := clusterIndex * shardsPerCluster
	if first >= totalShards {
		return Range{}, errors.NewConfigurationError("clusterIndex",
			fmt.Sprintf("%d is beyond the fleet of %d clusters", clusterIndex, ClusterCount(shardsPerCluster, totalShards)))
	}

	last := min(first+shardsPerCluster-1, totalShards-1)
	return Range{First: first, Last: last}, nil
}

// ClusterCount returns the number of clusters needed to cover totalShards.
// It returns zero for invalid inputs.
func ClusterCount(shardsPerCluster, totalShards int) int {
	if shardsPerCluster <= 0 || totalShards <= 0 {
		return 0
	}
	return (totalShards + shardsPerCluster - 1) / shardsPerCluster
}

// Len returns the number of shards in the range
func (r Range) Len() int {
	return r.Last - r.First + 1
}

// Contains reports whether the shard id falls within the range
func (r Range) Contains(shardID int) bool {
	return shardID >= r.First && shardID <= r.Last
}

// Shards lists every shard id of the range in ascending order
func (r Range) Shards() []int {
	shards := make([]int, 0, r.Len())
	for id := r.First; id <= r.Last; id++ {
		shards = append(shards, id)
	}
	return shards
}

// String returns the range as [first,last]
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.First, r.Last)
}
