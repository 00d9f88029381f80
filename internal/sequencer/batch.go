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

package sequencer

import (
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/time/rate"
)

// admitter plans the batched admission of a cluster holding the lock.
// Shards fall into concurrency buckets by id. A window admits at most one
// shard per bucket and the limiter refills concurrency tokens per window.
// It is owned by the sequencer loop and is not safe for concurrent use.
type admitter struct {
	concurrency int
	window      time.Duration
	limiter     *rate.Limiter
	pending     []int
	inflight    mapset.Set[int]
}

func newAdmitter(concurrency int, window time.Duration) *admitter {
	return &admitter{
		concurrency: concurrency,
		window:      window,
		limiter:     rate.NewLimiter(rate.Every(window/time.Duration(concurrency)), concurrency),
		inflight:    mapset.NewThreadUnsafeSet[int](),
	}
}

// enqueue adds shards waiting for admission
func (a *admitter) enqueue(shardIDs ...int) {
	for _, shardID := range shardIDs {
		if a.inflight.Contains(shardID) {
			continue
		}
		if index, found := slices.BinarySearch(a.pending, shardID); !found {
			a.pending = slices.Insert(a.pending, index, shardID)
		}
	}
}

// settled marks an admitted shard as done. It reports whether the current
// window has no shard left in flight.
func (a *admitter) settled(shardID int) bool {
	a.inflight.Remove(shardID)
	return a.inflight.IsEmpty()
}

// expire forgets the shards of the window that elapsed
func (a *admitter) expire() {
	a.inflight.Clear()
}

// busy reports whether admitted shards are still in flight
func (a *admitter) busy() bool {
	return !a.inflight.IsEmpty()
}

// idle reports whether no shard waits for admission
func (a *admitter) idle() bool {
	return len(a.pending) == 0
}

// next selects the shards of the next window. When the limiter has no
// token left it selects nothing and returns how long to wait for one.
func (a *admitter) next(now time.Time) ([]int, time.Duration) {
	buckets := make(map[int]struct{}, a.concurrency)
	selected := make([]int, 0, a.concurrency)
	remaining := a.pending[:0:0]

	for _, shardID := range a.pending {
		bucket := shardID % a.concurrency
		if _, taken := buckets[bucket]; taken || !a.limiter.AllowN(now, 1) {
			remaining = append(remaining, shardID)
			continue
		}
		buckets[bucket] = struct{}{}
		selected = append(selected, shardID)
		a.inflight.Add(shardID)
	}
	a.pending = remaining

	if len(selected) > 0 || len(a.pending) == 0 {
		return selected, 0
	}

	reservation := a.limiter.ReserveN(now, 1)
	wait := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return nil, wait
}
