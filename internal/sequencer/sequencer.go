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

// Package sequencer serializes the gateway handshakes of a cluster with the
// rest of the fleet. A single loop goroutine owns the admission state: gateway
// lifecycle events, lock acquisitions and heartbeats all reach it as messages
// and are handled in arrival order.
package sequencer

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"

	"github.com/tochemey/sharder/errors"
	"github.com/tochemey/sharder/gateway"
	"github.com/tochemey/sharder/internal/metric"
	"github.com/tochemey/sharder/internal/ticker"
	"github.com/tochemey/sharder/lock"
	"github.com/tochemey/sharder/log"
	"github.com/tochemey/sharder/notify"
	"github.com/tochemey/sharder/shardrange"
)

const (
	// DefaultHandshakeBudget is the lock time granted per shard
	DefaultHandshakeBudget = 5 * time.Second
	// DefaultExtendGrace is the lock extension granted on every ready shard
	DefaultExtendGrace = 8 * time.Second
	// DefaultRetryDelay is the delay before retrying a failed re-admission
	DefaultRetryDelay = time.Second
	// DefaultBatchWindow is the admission window of batched admission
	DefaultBatchWindow = 5 * time.Second
)

// Config holds the admission settings of a cluster
type Config struct {
	// Key is the fleet-wide admission lock key
	Key string
	// ClusterIndex is the index of the cluster in the fleet
	ClusterIndex int
	// ShardsPerCluster is the number of shards owned by a cluster
	ShardsPerCluster int
	// TotalShards is the number of shards of the fleet
	TotalShards int
	// HandshakeBudget is the lock time granted per owned shard
	HandshakeBudget time.Duration
	// ExtendGrace is the lock extension granted on every ready shard
	ExtendGrace time.Duration
	// HeartbeatInterval is the period of the lock refresh while held
	HeartbeatInterval time.Duration
	// RetryDelay is the delay before retrying a failed re-admission
	RetryDelay time.Duration
	// MaxConcurrency enables batched admission when greater than one
	MaxConcurrency int
	// BatchWindow is the admission window of batched admission
	BatchWindow time.Duration
}

// LockTTL returns the lock TTL: the handshake budget of every owned shard
func (c Config) LockTTL() time.Duration {
	return time.Duration(c.ShardsPerCluster) * c.HandshakeBudget
}

func (c Config) withDefaults() Config {
	if c.HandshakeBudget <= 0 {
		c.HandshakeBudget = DefaultHandshakeBudget
	}
	if c.ExtendGrace <= 0 {
		c.ExtendGrace = DefaultExtendGrace
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = max(c.LockTTL()/3, time.Millisecond)
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 1
	}
	if c.BatchWindow <= 0 {
		c.BatchWindow = DefaultBatchWindow
	}
	return c
}

type acquireResult struct {
	handle *lock.Handle
	err    error
}

// Sequencer drives the admission of a cluster
type Sequencer struct {
	config   Config
	shards   shardrange.Range
	gateway  gateway.Gateway
	locker   lock.Locker
	logger   log.Logger
	notifier notify.Notifier
	metric   *metric.LockMetric
	emit     Emitter

	state      *atomic.Int32
	started    *atomic.Bool
	queueCh    chan chan error
	acquiredCh chan acquireResult
	stopCh     chan struct{}
	loopDone   chan struct{}
	stopCtx    context.Context
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	// owned by the loop
	handle         *lock.Handle
	acquiring      bool
	acquireStarted time.Time
	queued         bool
	connected      bool
	waiters        []chan error
	awaiting       mapset.Set[int]
	retryC         <-chan time.Time
	windowC        <-chan time.Time
	heartbeat      *ticker.Ticker
	batch          *admitter
}

// New creates a Sequencer. It fails with a ConfigurationError when the
// shard range of the cluster cannot be computed.
func New(config Config, gw gateway.Gateway, locker lock.Locker, opts ...Option) (*Sequencer, error) {
	if config.Key == "" {
		return nil, errors.NewConfigurationError("key", "is required")
	}

	shards, err := shardrange.Compute(config.ClusterIndex, config.ShardsPerCluster, config.TotalShards)
	if err != nil {
		return nil, err
	}

	config = config.withDefaults()
	sequencer := &Sequencer{
		config:     config,
		shards:     shards,
		gateway:    gw,
		locker:     locker,
		logger:     log.DefaultLogger,
		notifier:   notify.NoOp{},
		metric:     metric.NoopLockMetric(),
		emit:       func(any) {},
		state:      atomic.NewInt32(int32(Idle)),
		started:    atomic.NewBool(false),
		queueCh:    make(chan chan error),
		acquiredCh: make(chan acquireResult),
		awaiting:   mapset.NewThreadUnsafeSet[int](),
		heartbeat:  ticker.New(config.HeartbeatInterval),
	}

	for _, opt := range opts {
		opt.Apply(sequencer)
	}

	if config.MaxConcurrency > 1 {
		sequencer.batch = newAdmitter(config.MaxConcurrency, config.BatchWindow)
	}
	return sequencer, nil
}

// Range returns the shard range owned by the cluster
func (s *Sequencer) Range() shardrange.Range {
	return s.shards
}

// State returns the current admission state
func (s *Sequencer) State() State {
	return State(s.state.Load())
}

// Start runs the sequencer loop
func (s *Sequencer) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	go s.run()
	return nil
}

// Stop ends the loop and releases the lock when held
func (s *Sequencer) Stop(ctx context.Context) error {
	if !s.started.CompareAndSwap(true, false) {
		return nil
	}
	s.stopCtx = ctx
	close(s.stopCh)
	<-s.loopDone
	s.cancel()
	s.wg.Wait()
	return nil
}

// Queue starts the admission of the cluster. It returns once the lock was
// acquired and the gateway asked to connect, with the error of either.
// It returns immediately when the cluster is already queued.
func (s *Sequencer) Queue(ctx context.Context) error {
	if !s.started.Load() {
		return errors.ErrCoordinatorNotStarted
	}

	reply := make(chan error, 1)
	select {
	case s.queueCh <- reply:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return errors.ErrCoordinatorNotStarted
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return errors.ErrCoordinatorNotStarted
	}
}

func (s *Sequencer) run() {
	defer close(s.loopDone)
	events := s.gateway.Events()
	for {
		select {
		case <-s.stopCh:
			s.shutdown()
			return
		case reply := <-s.queueCh:
			s.onQueue(reply)
		case result := <-s.acquiredCh:
			s.onAcquired(result)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.onGatewayEvent(event)
		case <-s.heartbeat.Ticks():
			if s.handle != nil {
				s.extend(s.config.LockTTL())
			}
		case <-s.retryC:
			s.retryC = nil
			s.requestLock()
		case <-s.windowC:
			s.windowC = nil
			s.batch.expire()
			s.openWindow()
		}
	}
}

func (s *Sequencer) setState(state State) {
	previous := State(s.state.Swap(int32(state)))
	if previous != state {
		s.logger.Debugf("cluster %d admission %s -> %s", s.config.ClusterIndex, previous, state)
	}
}

func (s *Sequencer) onQueue(reply chan error) {
	if s.queued {
		reply <- nil
		return
	}

	s.queued = true
	s.gateway.SetShardRange(s.shards.First, s.shards.Last)
	s.setState(AcquiringLock)
	s.waiters = append(s.waiters, reply)
	s.requestLock()
}

// requestLock starts an acquire attempt unless one is outstanding or the lock is held
func (s *Sequencer) requestLock() {
	if s.acquiring || s.handle != nil {
		return
	}

	s.acquiring = true
	s.acquireStarted = time.Now()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		handle, err := s.locker.Acquire(s.ctx, s.config.Key)
		select {
		case s.acquiredCh <- acquireResult{handle: handle, err: err}:
		case <-s.stopCh:
			if handle != nil {
				_ = s.locker.Release(context.WithoutCancel(s.ctx), handle)
			}
		}
	}()
}

func (s *Sequencer) onAcquired(result acquireResult) {
	s.acquiring = false
	if result.err != nil {
		if !s.connected {
			s.logger.Errorf("cluster %d failed to acquire admission lock %s: %v", s.config.ClusterIndex, s.config.Key, result.err)
			s.queued = false
			s.setState(Idle)
			s.resolveWaiters(result.err)
			return
		}
		s.logger.Warnf("cluster %d failed to reacquire admission lock %s, retrying in %s: %v", s.config.ClusterIndex, s.config.Key, s.config.RetryDelay, result.err)
		s.retryC = time.After(s.config.RetryDelay)
		return
	}

	s.handle = result.handle
	s.metric.RecordAcquired(s.ctx, time.Since(s.acquireStarted).Milliseconds())
	s.heartbeat.Start()
	s.setState(Connecting)
	s.emit(AcquiredLock{})

	if !s.connected {
		if err := s.admit(); err != nil {
			s.logger.Errorf("cluster %d failed to connect: %v", s.config.ClusterIndex, err)
			s.releaseLock()
			s.queued = false
			s.setState(Idle)
			s.resolveWaiters(err)
			return
		}
		s.connected = true
		s.resolveWaiters(nil)
	} else {
		s.awaiting.Clear()
		s.reconnectDisconnected()
		s.openWindow()
	}
	s.settle()
}

func (s *Sequencer) resolveWaiters(err error) {
	for _, waiter := range s.waiters {
		waiter <- err
	}
	s.waiters = nil
}

// admit connects every shard of the range, at once or in batches
func (s *Sequencer) admit() error {
	if s.batch == nil {
		return s.gateway.Connect(s.ctx)
	}
	s.batch.enqueue(s.shards.Shards()...)
	s.openWindow()
	return nil
}

func (s *Sequencer) onGatewayEvent(event gateway.Event) {
	s.emit(event)
	if !s.connected {
		return
	}

	switch event.Kind {
	case gateway.ShardReady:
		s.onShardReady(event.ShardID)
	case gateway.ShardDisconnect:
		s.onShardDisconnect(event.ShardID, event.Err)
	case gateway.Ready:
		s.settle()
	}
}

func (s *Sequencer) onShardReady(shardID int) {
	// the extension never shortens the lock below its TTL
	if s.handle != nil {
		s.extend(max(s.config.ExtendGrace, s.config.LockTTL()))
	}

	if s.State() == Connecting {
		s.setState(PartiallyReady)
	}

	if s.handle != nil {
		s.reconnectDisconnected()
	}

	if s.batch != nil && s.batch.settled(shardID) {
		s.openWindow()
	}
	s.settle()
}

func (s *Sequencer) onShardDisconnect(shardID int, cause error) {
	s.logger.Warnf("cluster %d lost shard %d: %v", s.config.ClusterIndex, shardID, cause)
	if s.batch != nil {
		s.batch.settled(shardID)
	}

	if s.handle != nil {
		// admission was granted for this burst already
		s.dispatch(shardID)
		return
	}

	s.awaiting.Add(shardID)
	s.setState(AcquiringLock)
	s.requestLock()
}

// reconnectDisconnected dispatches the owned shards reported disconnected
func (s *Sequencer) reconnectDisconnected() {
	for _, shardID := range s.shards.Shards() {
		if s.gateway.ShardStatus(shardID) == gateway.StatusDisconnected {
			s.dispatch(shardID)
		}
	}
}

// dispatch reconnects a shard while the lock is held
func (s *Sequencer) dispatch(shardID int) {
	if s.batch != nil {
		s.batch.enqueue(shardID)
		if !s.batch.busy() {
			s.openWindow()
		}
		return
	}
	s.connectShard(shardID)
}

// connectShard is a no-op for a shard already connecting or connected
func (s *Sequencer) connectShard(shardID int) {
	if status := s.gateway.ShardStatus(shardID); status.InFlight() {
		s.logger.Debugf("cluster %d skips reconnecting shard %d: %s", s.config.ClusterIndex, shardID, status)
		return
	}
	if err := s.gateway.ConnectShard(s.ctx, shardID); err != nil {
		s.logger.Errorf("cluster %d failed to reconnect shard %d: %v", s.config.ClusterIndex, shardID, err)
	}
}

// openWindow starts the next batched admission window when possible
func (s *Sequencer) openWindow() {
	if s.batch == nil || s.handle == nil || s.batch.busy() || s.batch.idle() {
		return
	}

	s.extend(s.config.LockTTL())
	if s.handle == nil {
		return
	}

	shards, wait := s.batch.next(time.Now())
	if len(shards) == 0 {
		s.windowC = time.After(wait)
		return
	}

	s.logger.Debugf("cluster %d admits shards %v", s.config.ClusterIndex, shards)
	for _, shardID := range shards {
		s.connectShard(shardID)
	}
	s.windowC = time.After(s.config.BatchWindow)
}

// settle releases the lock once every owned shard is ready
func (s *Sequencer) settle() {
	if !s.connected || !s.awaiting.IsEmpty() || (s.batch != nil && !s.batch.idle()) {
		return
	}

	for _, shardID := range s.shards.Shards() {
		if s.gateway.ShardStatus(shardID) != gateway.StatusReady {
			return
		}
	}

	if s.handle != nil {
		s.releaseLock()
	}
	s.setState(FullyReady)
}

func (s *Sequencer) extend(ttl time.Duration) {
	if err := s.locker.Extend(s.ctx, s.handle, ttl); err != nil {
		s.lost(err)
		return
	}
	s.metric.RecordExtended(s.ctx)
	s.emit(ExtendedLock{Duration: ttl})
}

func (s *Sequencer) releaseLock() {
	handle := s.handle
	s.handle = nil
	s.heartbeat.Stop()
	if err := s.locker.Release(s.ctx, handle); err != nil {
		if stderrors.Is(err, errors.ErrLockLost) {
			s.logger.Warnf("cluster %d admission lock %s expired before release", s.config.ClusterIndex, s.config.Key)
			s.metric.RecordLost(s.ctx)
			return
		}
		s.logger.Errorf("cluster %d failed to release admission lock %s: %v", s.config.ClusterIndex, s.config.Key, err)
		return
	}
	s.emit(ReleasedLock{})
}

// lost drops a lock that could not be refreshed. Another cluster may be
// connecting now, so the shards still down wait for a new admission.
func (s *Sequencer) lost(err error) {
	s.handle = nil
	s.heartbeat.Stop()
	s.metric.RecordLost(s.ctx)
	s.logger.Warnf("cluster %d lost admission lock %s: %v", s.config.ClusterIndex, s.config.Key, err)
	s.notifier.Notify(s.ctx, notify.Event{
		Title:       "Admission lock lost",
		Description: fmt.Sprintf("cluster %d lost lock %s: %v", s.config.ClusterIndex, s.config.Key, err),
		Severity:    notify.Warning,
	})

	for _, shardID := range s.shards.Shards() {
		if s.gateway.ShardStatus(shardID) == gateway.StatusDisconnected {
			s.awaiting.Add(shardID)
		}
	}

	if !s.awaiting.IsEmpty() || (s.batch != nil && !s.batch.idle()) {
		s.setState(AcquiringLock)
		s.requestLock()
	}
}

func (s *Sequencer) shutdown() {
	s.heartbeat.Stop()
	if s.handle != nil {
		ctx := s.stopCtx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := s.locker.Release(ctx, s.handle); err == nil {
			s.emit(ReleasedLock{})
		}
		s.handle = nil
	}
	s.resolveWaiters(errors.ErrCoordinatorNotStarted)
	s.setState(Idle)
}
