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

// Package client queries a fleet of clusters over the broadcast medium:
// fleet-wide stats, guild and user lookups and signed evaluation. A Client
// owns no shard and takes no part in the admission.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/sharder/broadcast"
	"github.com/tochemey/sharder/errors"
	"github.com/tochemey/sharder/eval"
	imetric "github.com/tochemey/sharder/internal/metric"
	"github.com/tochemey/sharder/internal/validation"
	"github.com/tochemey/sharder/log"
	"github.com/tochemey/sharder/pubsub"
	"github.com/tochemey/sharder/shardrange"
	"github.com/tochemey/sharder/stats"
)

const (
	// StatsKind is the request kind of the cluster snapshots
	StatsKind = "stats"
	// GuildKind is the request kind of the guild lookups
	GuildKind = "guild"
	// UserKind is the request kind of the user lookups
	UserKind = "user"

	// DefaultLockKey is the lock key of a fleet when none is set
	DefaultLockKey = "sharder"
)

// LookupRequest is the payload of the guild and user lookups
type LookupRequest struct {
	ID string `json:"id"`
}

// Client issues the fleet-wide queries.
// An instance of the Client can be reused and it is thread safe.
type Client struct {
	bus      *broadcast.Bus
	ownsBus  bool
	clusters int
	signer   *eval.Signer

	lockKey        string
	secret         string
	identity       string
	requestTimeout time.Duration
	fanInTimeout   time.Duration
	logger         log.Logger
	meterProvider  metric.MeterProvider
}

// New creates a Client on its own broadcast bus and starts it.
// shardsPerCluster and totalShards describe the fleet: they give the number
// of answers a fan-in request waits for.
// Make sure to call Close to free up resources
func New(ctx context.Context, transport pubsub.Transport, shardsPerCluster, totalShards int, opts ...Option) (*Client, error) {
	client, err := newClient(shardsPerCluster, totalShards, opts...)
	if err != nil {
		return nil, err
	}

	busOpts := []broadcast.Option{
		broadcast.WithLogger(client.logger),
		broadcast.WithNamespace(client.lockKey),
	}
	if client.identity != "" {
		busOpts = append(busOpts, broadcast.WithIdentity(client.identity))
	}
	if client.meterProvider != nil {
		broadcastMetric, err := imetric.NewBroadcastMetric(imetric.NewProvider(client.meterProvider).Meter())
		if err != nil {
			return nil, err
		}
		busOpts = append(busOpts, broadcast.WithMetric(broadcastMetric))
	}

	client.bus = broadcast.New(transport, busOpts...)
	client.ownsBus = true
	if err := client.bus.Start(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// Attach creates a Client issuing its requests on a bus owned by the caller.
// Close leaves the bus running.
func Attach(bus *broadcast.Bus, shardsPerCluster, totalShards int, opts ...Option) (*Client, error) {
	client, err := newClient(shardsPerCluster, totalShards, opts...)
	if err != nil {
		return nil, err
	}
	client.bus = bus
	return client, nil
}

func newClient(shardsPerCluster, totalShards int, opts ...Option) (*Client, error) {
	client := &Client{
		lockKey:        DefaultLockKey,
		requestTimeout: broadcast.DefaultFirstTimeout,
		fanInTimeout:   broadcast.DefaultFanInTimeout,
		logger:         log.DefaultLogger,
	}

	for _, opt := range opts {
		opt.Apply(client)
	}

	if err := validation.New(validation.FailFast()).
		AddAssertion(shardsPerCluster > 0, "shardsPerCluster", "must be greater than zero").
		AddAssertion(totalShards > 0, "totalShards", "must be greater than zero").
		AddAssertion(client.lockKey != "", "lockKey", "is required").
		AddAssertion(client.requestTimeout > 0, "requestTimeout", "must be greater than zero").
		AddAssertion(client.fanInTimeout > 0, "fanInTimeout", "must be greater than zero").
		Validate(); err != nil {
		return nil, err
	}

	client.clusters = shardrange.ClusterCount(shardsPerCluster, totalShards)
	client.signer = eval.NewSigner(client.secret)
	return client, nil
}

// Close stops the bus of the client when the client owns it
func (x *Client) Close(ctx context.Context) error {
	if !x.ownsBus {
		return nil
	}
	return x.bus.Stop(ctx)
}

// Clusters returns the number of clusters of the fleet
func (x *Client) Clusters() int {
	return x.clusters
}

// Stats collects the snapshot of every cluster holding key and folds them.
// key is the lock key of the fleet to query; an empty key stands for the
// fleet of the client. A non-positive timeout stands for the default fan-in
// deadline. The size of another fleet is unknown, so querying it always
// lasts until the deadline. Clusters that did not answer in time are
// missing from the result.
func (x *Client) Stats(ctx context.Context, key string, timeout time.Duration) (*stats.Stats, error) {
	if key == "" {
		key = x.lockKey
	}
	if timeout <= 0 {
		timeout = x.fanInTimeout
	}

	expected := x.clusters
	if key != x.lockKey {
		expected = broadcast.UntilDeadline
	}

	responses, complete, err := x.bus.RequestAll(ctx, StatsKind, struct{}{}, expected, timeout,
		broadcast.WithKey(key),
		broadcast.ToNamespace(key))
	if err != nil {
		return nil, err
	}
	if !complete && expected != broadcast.UntilDeadline {
		x.logger.Warnf("stats resolved with %d/%d cluster snapshots", len(responses), x.clusters)
	}

	snapshots, err := stats.Decode(responses)
	if err != nil {
		x.logger.Warnf("dropping malformed cluster snapshots: %v", err)
	}
	return stats.Aggregate(snapshots), nil
}

// GuildByID returns the guild held by the first cluster claiming it.
// ok is false when no cluster answered in time.
func (x *Client) GuildByID(ctx context.Context, id string) (json.RawMessage, bool, error) {
	return x.lookup(ctx, GuildKind, id)
}

// UserByID returns the user held by the first cluster claiming it.
// ok is false when no cluster answered in time.
func (x *Client) UserByID(ctx context.Context, id string) (json.RawMessage, bool, error) {
	return x.lookup(ctx, UserKind, id)
}

func (x *Client) lookup(ctx context.Context, kind, id string) (json.RawMessage, bool, error) {
	return x.bus.RequestFirst(ctx, kind, &LookupRequest{ID: id}, x.requestTimeout)
}

// EvalAll runs the named query on every cluster of the fleet and returns
// their results in arrival order. It fails with a ConfigurationError,
// without publishing anything, when no shared secret is set.
func (x *Client) EvalAll(ctx context.Context, query string, args []string, timeout time.Duration) ([]*eval.Result, error) {
	if x.signer == nil {
		return nil, errors.NewConfigurationError("sharedSecret", "evaluation across clusters requires a shared secret")
	}
	if query == "" {
		return nil, errors.NewConfigurationError("query", "is required")
	}
	if timeout <= 0 {
		timeout = x.fanInTimeout
	}

	request := &eval.Request{Query: query, Args: args}
	responses, complete, err := x.bus.RequestAll(ctx, eval.Kind, request, x.clusters, timeout, broadcast.WithSigner(x.signer.Sign))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", query, err)
	}
	if !complete {
		x.logger.Warnf("evaluation of %s resolved with %d/%d results", query, len(responses), x.clusters)
	}
	return eval.DecodeResults(responses), nil
}

// Publish broadcasts an application event to every subscriber of name
func (x *Client) Publish(ctx context.Context, name string, message any) error {
	return x.bus.Publish(ctx, name, message)
}

// SubscribeToEvent registers the handler of the application event name
func (x *Client) SubscribeToEvent(ctx context.Context, name string, handler broadcast.EventHandler) error {
	return x.bus.Subscribe(ctx, name, handler)
}
