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

// Package gateway defines what the coordinator needs from the client of the
// external real-time gateway. The coordinator drives connection admission
// through this contract and observes the shard lifecycle through Events; it
// never reaches into the client internals.
package gateway

import (
	"context"
	"fmt"
	"time"
)

// Status is the connection status of a shard
type Status int

const (
	// StatusDisconnected means the shard holds no connection
	StatusDisconnected Status = iota
	// StatusConnecting means the shard is opening its connection
	StatusConnecting
	// StatusHandshaking means the shard is identifying with the gateway
	StatusHandshaking
	// StatusReady means the shard is connected and receiving events
	StatusReady
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusHandshaking:
		return "handshaking"
	case StatusReady:
		return "ready"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status as its name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "disconnected":
		*s = StatusDisconnected
	case "connecting":
		*s = StatusConnecting
	case "handshaking":
		*s = StatusHandshaking
	case "ready":
		*s = StatusReady
	default:
		return fmt.Errorf("unknown shard status %q", text)
	}
	return nil
}

// InFlight reports whether a connection attempt is underway or done.
// Dispatching a connect for such a shard would duplicate its handshake.
func (s Status) InFlight() bool {
	return s == StatusConnecting || s == StatusHandshaking || s == StatusReady
}

// EventKind identifies a lifecycle event
type EventKind int

const (
	// ShardReady is emitted when a shard finished its handshake
	ShardReady EventKind = iota
	// ShardDisconnect is emitted when a shard lost its connection
	ShardDisconnect
	// Ready is emitted once every shard of the client is ready
	Ready
)

// String returns the string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case ShardReady:
		return "shardReady"
	case ShardDisconnect:
		return "shardDisconnect"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a shard lifecycle notification
type Event struct {
	Kind    EventKind
	ShardID int
	// Err is the cause of a ShardDisconnect, when known
	Err error
}

// Gateway is the gateway client of a cluster
type Gateway interface {
	// SetShardRange restricts the client to the inclusive shard range
	SetShardRange(first, last int)
	// Connect opens the connections of every shard of the range
	Connect(ctx context.Context) error
	// ConnectShard opens the connection of a single shard
	ConnectShard(ctx context.Context, shardID int) error
	// Disconnect closes the connection of a shard
	Disconnect(shardID int) error
	// ShardIDs lists the shards of the range
	ShardIDs() []int
	// ShardStatus returns the status of a shard
	ShardStatus(shardID int) Status
	// ShardLatency returns the last heartbeat round trip of a shard.
	// It returns false when no heartbeat was acknowledged yet.
	ShardLatency(shardID int) (time.Duration, bool)
	// ShardGuildCount returns the number of guilds served by a shard
	ShardGuildCount(shardID int) int
	// GuildCount returns the number of guilds cached by the client
	GuildCount() int
	// UserCount returns the number of users cached by the client
	UserCount() int
	// VoiceConnectionCount returns the number of open voice connections
	VoiceConnectionCount() int
	// Guild returns the cached guild with the given id
	Guild(id string) (any, bool)
	// User returns the cached user with the given id
	User(id string) (any, bool)
	// Events returns the lifecycle notifications in emission order
	Events() <-chan Event
}
