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

// Package coordinator is the entry point of a cluster of the fleet. A
// Coordinator serializes the shard handshakes of its cluster with the rest of
// the fleet through a distributed lock and answers, over the broadcast medium,
// the fleet-wide queries about the data its gateway holds.
package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/sharder/broadcast"
	"github.com/tochemey/sharder/client"
	"github.com/tochemey/sharder/config"
	"github.com/tochemey/sharder/errors"
	"github.com/tochemey/sharder/eval"
	"github.com/tochemey/sharder/eventstream"
	"github.com/tochemey/sharder/gateway"
	imetric "github.com/tochemey/sharder/internal/metric"
	"github.com/tochemey/sharder/internal/sequencer"
	"github.com/tochemey/sharder/lock"
	"github.com/tochemey/sharder/log"
	"github.com/tochemey/sharder/notify"
	"github.com/tochemey/sharder/pubsub"
	"github.com/tochemey/sharder/shardrange"
	"github.com/tochemey/sharder/stats"
)

// EventsTopic is the eventstream topic of the lifecycle events
const EventsTopic = "sharder.lifecycle"

type (
	// State is the admission state of the cluster
	State = sequencer.State
	// AcquiredLock is published when the cluster obtained the admission lock
	AcquiredLock = sequencer.AcquiredLock
	// ExtendedLock is published when the admission lock TTL was refreshed
	ExtendedLock = sequencer.ExtendedLock
	// ReleasedLock is published when the cluster gave the admission lock up
	ReleasedLock = sequencer.ReleasedLock
)

// Admission states
const (
	Idle           = sequencer.Idle
	AcquiringLock  = sequencer.AcquiringLock
	Connecting     = sequencer.Connecting
	PartiallyReady = sequencer.PartiallyReady
	FullyReady     = sequencer.FullyReady
)

// Coordinator drives one cluster of the fleet.
// Besides the lock events, subscribers receive the gateway.Event values
// consumed by the admission.
type Coordinator struct {
	config    *config.Config
	gateway   gateway.Gateway
	sequencer *sequencer.Sequencer
	bus       *broadcast.Bus
	client    *client.Client
	collector *stats.Collector
	registry  *eval.Registry
	evaluator *eval.Evaluator
	events    *eventstream.EventsStream

	logger        log.Logger
	notifier      notify.Notifier
	meterProvider metric.MeterProvider
	cleanups      []func() error

	started *atomic.Bool
	locker  sync.Mutex
}

// New creates a Coordinator of the cluster described by config.
// The coordinator takes ownership of the transport and of the notifier.
//
// The locker must be built with lock.WithTimeout(config.LockTTL()). Its
// timeout is the TTL every acquisition starts with, while the heartbeat and
// shard-ready extensions are sized from config. Dial builds a matching locker.
func New(config *config.Config, gw gateway.Gateway, locker lock.Locker, transport pubsub.Transport, opts ...Option) (*Coordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	x := &Coordinator{
		config:   config,
		gateway:  gw,
		logger:   config.Logger(),
		notifier: notify.NoOp{},
		started:  atomic.NewBool(false),
		events:   eventstream.New(),
		registry: eval.NewRegistry(),
	}

	for _, opt := range opts {
		opt.Apply(x)
	}

	lockMetric := imetric.NoopLockMetric()
	broadcastMetric := imetric.NoopBroadcastMetric()
	if x.meterProvider != nil {
		meter := imetric.NewProvider(x.meterProvider).Meter()
		var err error
		if lockMetric, err = imetric.NewLockMetric(meter); err != nil {
			return nil, err
		}
		if broadcastMetric, err = imetric.NewBroadcastMetric(meter); err != nil {
			return nil, err
		}
	}

	var err error
	x.sequencer, err = sequencer.New(sequencer.Config{
		Key:               config.LockKey,
		ClusterIndex:      config.ClusterIndex,
		ShardsPerCluster:  config.ShardsPerCluster,
		TotalShards:       config.TotalShards,
		HandshakeBudget:   config.HandshakeBudget,
		ExtendGrace:       config.ExtendGrace,
		HeartbeatInterval: config.HeartbeatInterval,
		RetryDelay:        config.RetryDelay,
		MaxConcurrency:    config.MaxConcurrency,
		BatchWindow:       config.BatchWindow,
	}, gw, locker,
		sequencer.WithLogger(x.logger),
		sequencer.WithNotifier(x.notifier),
		sequencer.WithMetric(lockMetric),
		sequencer.WithEmitter(x.emit))
	if err != nil {
		return nil, err
	}

	x.bus = broadcast.New(transport,
		broadcast.WithLogger(x.logger),
		broadcast.WithIdentity(config.ClusterIdentity()),
		broadcast.WithNamespace(config.LockKey),
		broadcast.WithMetric(broadcastMetric))

	x.client, err = client.Attach(x.bus, config.ShardsPerCluster, config.TotalShards,
		client.WithLogger(x.logger),
		client.WithLockKey(config.LockKey),
		client.WithSharedSecret(config.SharedSecret),
		client.WithRequestTimeout(config.RequestTimeout),
		client.WithFanInTimeout(config.FanInTimeout))
	if err != nil {
		return nil, err
	}

	x.collector = stats.NewCollector(config.ClusterIndex, gw, stats.RuntimeMemory)
	eval.RegisterBuiltins(x.registry, gw, x.collector)
	x.evaluator = eval.NewEvaluator(config.ClusterIndex, x.registry, eval.NewSigner(config.SharedSecret), x.logger)
	return x, nil
}

// Start registers the responders of the cluster on the broadcast medium and
// starts the admission loop. Queue starts the admission itself.
func (x *Coordinator) Start(ctx context.Context) error {
	if !x.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}

	err := multierr.Combine(
		x.bus.Handle(ctx, client.StatsKind, x.answerStats),
		x.bus.Handle(ctx, client.GuildKind, x.answerGuild),
		x.bus.Handle(ctx, client.UserKind, x.answerUser),
		x.bus.Handle(ctx, eval.Kind, x.evaluator.Handle),
	)
	if err != nil {
		x.started.Store(false)
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return x.bus.Start(egCtx) })
	eg.Go(func() error { return x.sequencer.Start(egCtx) })
	if err := eg.Wait(); err != nil {
		x.started.Store(false)
		return multierr.Combine(err, x.sequencer.Stop(ctx), x.bus.Stop(ctx))
	}

	x.logger.Infof("cluster %d of %s started with shards %s", x.config.ClusterIndex, x.config.LockKey, x.sequencer.Range())
	return nil
}

// Stop ends the admission, releasing the lock when held, stops answering the
// fleet and closes the transport
func (x *Coordinator) Stop(ctx context.Context) error {
	if !x.started.CompareAndSwap(true, false) {
		return nil
	}

	err := multierr.Combine(
		x.sequencer.Stop(ctx),
		x.bus.Stop(ctx),
		x.notifier.Close(),
	)

	x.events.Close()
	for _, cleanup := range x.cleanups {
		err = multierr.Append(err, cleanup())
	}

	x.logger.Infof("cluster %d of %s stopped", x.config.ClusterIndex, x.config.LockKey)
	return multierr.Append(err, x.logger.Flush())
}

// Queue starts the admission of the cluster. It returns once the cluster
// holds the admission lock and its gateway was asked to connect.
// Calling Queue again while queued is a no-op.
func (x *Coordinator) Queue(ctx context.Context) error {
	if !x.started.Load() {
		return errors.ErrCoordinatorNotStarted
	}
	return x.sequencer.Queue(ctx)
}

// State returns the admission state of the cluster
func (x *Coordinator) State() State {
	return x.sequencer.State()
}

// Range returns the shards owned by the cluster
func (x *Coordinator) Range() shardrange.Range {
	return x.sequencer.Range()
}

// Identity returns the identity of the cluster on the broadcast medium
func (x *Coordinator) Identity() string {
	return x.bus.Identity()
}

// Registry returns the allow-list of the queries the cluster evaluates.
// Queries registered here can be run fleet-wide with EvalAll.
func (x *Coordinator) Registry() *eval.Registry {
	return x.registry
}

// Stats collects and folds the snapshots of the clusters holding key.
// Clusters that did not answer before timeout are left out.
func (x *Coordinator) Stats(ctx context.Context, key string, timeout time.Duration) (*stats.Stats, error) {
	if !x.started.Load() {
		return nil, errors.ErrCoordinatorNotStarted
	}
	return x.client.Stats(ctx, key, timeout)
}

// GuildByID returns the guild from the first cluster holding it
func (x *Coordinator) GuildByID(ctx context.Context, id string) (json.RawMessage, bool, error) {
	if !x.started.Load() {
		return nil, false, errors.ErrCoordinatorNotStarted
	}
	return x.client.GuildByID(ctx, id)
}

// UserByID returns the user from the first cluster holding it
func (x *Coordinator) UserByID(ctx context.Context, id string) (json.RawMessage, bool, error) {
	if !x.started.Load() {
		return nil, false, errors.ErrCoordinatorNotStarted
	}
	return x.client.UserByID(ctx, id)
}

// EvalAll runs a registered query on every cluster of the fleet.
// It requires a shared secret.
func (x *Coordinator) EvalAll(ctx context.Context, query string, args []string, timeout time.Duration) ([]*eval.Result, error) {
	if !x.started.Load() {
		return nil, errors.ErrCoordinatorNotStarted
	}
	return x.client.EvalAll(ctx, query, args, timeout)
}

// SubscribeToEvent registers the handler of an application event
func (x *Coordinator) SubscribeToEvent(ctx context.Context, name string, handler broadcast.EventHandler) error {
	return x.client.SubscribeToEvent(ctx, name, handler)
}

// Publish broadcasts an application event to the fleet
func (x *Coordinator) Publish(ctx context.Context, name string, message any) error {
	if !x.started.Load() {
		return errors.ErrCoordinatorNotStarted
	}
	return x.client.Publish(ctx, name, message)
}

// Subscribe creates a subscriber of the lifecycle events
func (x *Coordinator) Subscribe() (eventstream.Subscriber, error) {
	if !x.started.Load() {
		return nil, errors.ErrCoordinatorNotStarted
	}
	x.locker.Lock()
	subscriber := x.events.AddSubscriber()
	x.events.Subscribe(subscriber, EventsTopic)
	x.locker.Unlock()
	return subscriber, nil
}

// Unsubscribe removes a subscriber of the lifecycle events
func (x *Coordinator) Unsubscribe(subscriber eventstream.Subscriber) error {
	if !x.started.Load() {
		return errors.ErrCoordinatorNotStarted
	}
	x.locker.Lock()
	x.events.Unsubscribe(subscriber, EventsTopic)
	x.events.RemoveSubscriber(subscriber)
	x.locker.Unlock()
	return nil
}

func (x *Coordinator) emit(event any) {
	x.events.Publish(EventsTopic, event)
}

func (x *Coordinator) answerStats(_ context.Context, request *broadcast.Request) (any, bool, error) {
	if request.Key != x.config.LockKey {
		return nil, false, nil
	}
	return x.collector.Snapshot(), true, nil
}

func (x *Coordinator) answerGuild(_ context.Context, request *broadcast.Request) (any, bool, error) {
	return x.lookup(request, x.gateway.Guild)
}

func (x *Coordinator) answerUser(_ context.Context, request *broadcast.Request) (any, bool, error) {
	return x.lookup(request, x.gateway.User)
}

func (x *Coordinator) lookup(request *broadcast.Request, find func(id string) (any, bool)) (any, bool, error) {
	var in client.LookupRequest
	if err := json.Unmarshal(request.Payload, &in); err != nil {
		return nil, false, err
	}
	value, ok := find(in.ID)
	return value, ok, nil
}
