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

// Package testkit provides an in-process gateway client that lets tests
// drive the shard lifecycle of a coordinator by hand.
package testkit

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tochemey/sharder/gateway"
)

// eventsBufferSize bounds the lifecycle events not yet consumed
const eventsBufferSize = 1024

// Gateway is a fake gateway client. Shards only change status when the
// test says so, unless auto readiness is enabled.
type Gateway struct {
	mu        sync.Mutex
	first     int
	last      int
	ranged    bool
	statuses  map[int]gateway.Status
	latencies map[int]time.Duration
	guilds    map[string]int
	users     map[string]any
	voice     int

	connectCalls int
	dispatched   []int
	connectErr   error

	readyAfter time.Duration
	timers     []*time.Timer
	closed     bool

	events chan gateway.Event
}

// enforce compilation error
var _ gateway.Gateway = (*Gateway)(nil)

// NewGateway creates a fake gateway client
func NewGateway(opts ...Option) *Gateway {
	gw := &Gateway{
		statuses:   make(map[int]gateway.Status),
		latencies:  make(map[int]time.Duration),
		guilds:     make(map[string]int),
		users:      make(map[string]any),
		readyAfter: -1,
		events:     make(chan gateway.Event, eventsBufferSize),
	}
	for _, opt := range opts {
		opt.Apply(gw)
	}
	return gw
}

// SetShardRange restricts the client to the inclusive shard range
func (x *Gateway) SetShardRange(first, last int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.first, x.last, x.ranged = first, last, true
	for shardID := first; shardID <= last; shardID++ {
		if _, ok := x.statuses[shardID]; !ok {
			x.statuses[shardID] = gateway.StatusDisconnected
		}
	}
}

// Connect marks every shard of the range as connecting
func (x *Gateway) Connect(context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.connectErr != nil {
		return x.connectErr
	}
	x.connectCalls++
	for _, shardID := range x.shardIDsLocked() {
		x.connectLocked(shardID)
	}
	return nil
}

// ConnectShard marks the shard as connecting
func (x *Gateway) ConnectShard(_ context.Context, shardID int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.connectErr != nil {
		return x.connectErr
	}
	x.dispatched = append(x.dispatched, shardID)
	x.connectLocked(shardID)
	return nil
}

// Disconnect marks the shard as disconnected without emitting any event
func (x *Gateway) Disconnect(shardID int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.statuses[shardID] = gateway.StatusDisconnected
	return nil
}

// ShardIDs lists the shards of the range
func (x *Gateway) ShardIDs() []int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.shardIDsLocked()
}

// ShardStatus returns the status of a shard
func (x *Gateway) ShardStatus(shardID int) gateway.Status {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.statuses[shardID]
}

// ShardLatency returns the latency set with SetLatency
func (x *Gateway) ShardLatency(shardID int) (time.Duration, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	latency, ok := x.latencies[shardID]
	return latency, ok
}

// ShardGuildCount returns the number of guilds registered on the shard
func (x *Gateway) ShardGuildCount(shardID int) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	count := 0
	for _, owner := range x.guilds {
		if owner == shardID {
			count++
		}
	}
	return count
}

// GuildCount returns the number of registered guilds
func (x *Gateway) GuildCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.guilds)
}

// UserCount returns the number of registered users
func (x *Gateway) UserCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.users)
}

// VoiceConnectionCount returns the number of voice connections set with WithVoiceConnections
func (x *Gateway) VoiceConnectionCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.voice
}

// Guild returns a registered guild
func (x *Gateway) Guild(id string) (any, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	shardID, ok := x.guilds[id]
	if !ok {
		return nil, false
	}
	return map[string]any{"id": id, "shard": shardID}, true
}

// User returns a registered user
func (x *Gateway) User(id string) (any, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	user, ok := x.users[id]
	return user, ok
}

// Events returns the lifecycle notifications
func (x *Gateway) Events() <-chan gateway.Event {
	return x.events
}

// ReadyShard completes the handshake of a shard. Ready follows once every
// shard of the range is ready.
func (x *Gateway) ReadyShard(shardID int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.readyLocked(shardID)
}

// DropShard loses the connection of a shard
func (x *Gateway) DropShard(shardID int, cause error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return
	}
	x.statuses[shardID] = gateway.StatusDisconnected
	x.events <- gateway.Event{Kind: gateway.ShardDisconnect, ShardID: shardID, Err: cause}
}

// SetLatency sets the heartbeat latency of a shard
func (x *Gateway) SetLatency(shardID int, latency time.Duration) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.latencies[shardID] = latency
}

// SetConnectError makes the following connect calls fail
func (x *Gateway) SetConnectError(err error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.connectErr = err
}

// ConnectCalls returns the number of Connect calls
func (x *Gateway) ConnectCalls() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.connectCalls
}

// Dispatched returns the shards passed to ConnectShard in call order
func (x *Gateway) Dispatched() []int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return slices.Clone(x.dispatched)
}

// Range returns the range set by the coordinator
func (x *Gateway) Range() (first, last int, ok bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.first, x.last, x.ranged
}

// Close stops the pending auto readiness timers
func (x *Gateway) Close() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	for _, timer := range x.timers {
		timer.Stop()
	}
	x.timers = nil
}

func (x *Gateway) shardIDsLocked() []int {
	if !x.ranged {
		return []int{}
	}
	shardIDs := make([]int, 0, x.last-x.first+1)
	for shardID := x.first; shardID <= x.last; shardID++ {
		shardIDs = append(shardIDs, shardID)
	}
	return shardIDs
}

func (x *Gateway) connectLocked(shardID int) {
	x.statuses[shardID] = gateway.StatusConnecting
	if x.readyAfter < 0 || x.closed {
		return
	}
	x.timers = append(x.timers, time.AfterFunc(x.readyAfter, func() {
		x.ReadyShard(shardID)
	}))
}

func (x *Gateway) readyLocked(shardID int) {
	if x.closed || x.statuses[shardID] == gateway.StatusReady {
		return
	}
	x.statuses[shardID] = gateway.StatusReady
	x.events <- gateway.Event{Kind: gateway.ShardReady, ShardID: shardID}

	for _, id := range x.shardIDsLocked() {
		if x.statuses[id] != gateway.StatusReady {
			return
		}
	}
	x.events <- gateway.Event{Kind: gateway.Ready}
}
