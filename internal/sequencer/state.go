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
	"fmt"
	"time"
)

// State is the admission state of a cluster
type State int32

const (
	// Idle means the cluster has not been queued
	Idle State = iota
	// AcquiringLock means the cluster waits for the admission lock
	AcquiringLock
	// Connecting means the cluster holds the lock and its shards are connecting
	Connecting
	// PartiallyReady means some of the shards of the cluster are ready
	PartiallyReady
	// FullyReady means every shard of the cluster is ready
	FullyReady
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AcquiringLock:
		return "AcquiringLock"
	case Connecting:
		return "Connecting"
	case PartiallyReady:
		return "PartiallyReady"
	case FullyReady:
		return "FullyReady"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// AcquiredLock is emitted when the cluster obtained the admission lock
type AcquiredLock struct{}

// ExtendedLock is emitted when the admission lock TTL was refreshed
type ExtendedLock struct {
	Duration time.Duration
}

// ReleasedLock is emitted when the cluster gave the admission lock up
type ReleasedLock struct{}

// Emitter receives the lifecycle events of the sequencer, including the
// gateway events it consumed, in the order they happened
type Emitter func(event any)
