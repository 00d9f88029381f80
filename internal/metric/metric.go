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

package metric

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// LockMetric defines the admission lock instrumentation
type LockMetric struct {
	// Specifies the total number of lock acquisitions
	acquired metric.Int64Counter
	// Specifies the total number of lock extensions
	extended metric.Int64Counter
	// Specifies the total number of locks found expired on extend or release
	lost metric.Int64Counter
	// Specifies the time spent waiting for the lock in milliseconds
	waitDuration metric.Int64Histogram
}

// NewLockMetric creates an instance of LockMetric
func NewLockMetric(meter metric.Meter) (*LockMetric, error) {
	lockMetric := new(LockMetric)
	var err error
	if lockMetric.acquired, err = meter.Int64Counter(
		"sharder_lock_acquired_count",
		metric.WithDescription("Total number of admission lock acquisitions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create acquired instrument, %w", err)
	}

	if lockMetric.extended, err = meter.Int64Counter(
		"sharder_lock_extended_count",
		metric.WithDescription("Total number of admission lock extensions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create extended instrument, %w", err)
	}

	if lockMetric.lost, err = meter.Int64Counter(
		"sharder_lock_lost_count",
		metric.WithDescription("Total number of admission locks that expired while held"),
	); err != nil {
		return nil, fmt.Errorf("failed to create lost instrument, %w", err)
	}

	if lockMetric.waitDuration, err = meter.Int64Histogram(
		"sharder_lock_wait_duration",
		metric.WithDescription("The time spent waiting for the admission lock in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create waitDuration instrument, %w", err)
	}
	return lockMetric, nil
}

// NoopLockMetric returns a LockMetric recording nothing
func NoopLockMetric() *LockMetric {
	lockMetric, _ := NewLockMetric(noop.NewMeterProvider().Meter(instrumentationName))
	return lockMetric
}

// RecordAcquired records a lock acquisition and the time spent waiting for it
func (x *LockMetric) RecordAcquired(ctx context.Context, waitMillis int64) {
	x.acquired.Add(ctx, 1)
	x.waitDuration.Record(ctx, waitMillis)
}

// RecordExtended records a lock extension
func (x *LockMetric) RecordExtended(ctx context.Context) {
	x.extended.Add(ctx, 1)
}

// RecordLost records a lock found expired
func (x *LockMetric) RecordLost(ctx context.Context) {
	x.lost.Add(ctx, 1)
}

// BroadcastMetric defines the broadcast requests instrumentation
type BroadcastMetric struct {
	// Specifies the total number of requests issued
	requests metric.Int64Counter
	// Specifies the total number of requests resolved on their deadline
	timeouts metric.Int64Counter
	// Specifies the total number of requests answered locally
	answered metric.Int64Counter
}

// NewBroadcastMetric creates an instance of BroadcastMetric
func NewBroadcastMetric(meter metric.Meter) (*BroadcastMetric, error) {
	broadcastMetric := new(BroadcastMetric)
	var err error
	if broadcastMetric.requests, err = meter.Int64Counter(
		"sharder_broadcast_request_count",
		metric.WithDescription("Total number of broadcast requests issued"),
	); err != nil {
		return nil, fmt.Errorf("failed to create requests instrument, %w", err)
	}

	if broadcastMetric.timeouts, err = meter.Int64Counter(
		"sharder_broadcast_timeout_count",
		metric.WithDescription("Total number of broadcast requests resolved with partial responses"),
	); err != nil {
		return nil, fmt.Errorf("failed to create timeouts instrument, %w", err)
	}

	if broadcastMetric.answered, err = meter.Int64Counter(
		"sharder_broadcast_answered_count",
		metric.WithDescription("Total number of broadcast requests answered by this cluster"),
	); err != nil {
		return nil, fmt.Errorf("failed to create answered instrument, %w", err)
	}
	return broadcastMetric, nil
}

// NoopBroadcastMetric returns a BroadcastMetric recording nothing
func NoopBroadcastMetric() *BroadcastMetric {
	broadcastMetric, _ := NewBroadcastMetric(noop.NewMeterProvider().Meter(instrumentationName))
	return broadcastMetric
}

// RecordRequest records an issued request of the given kind
func (x *BroadcastMetric) RecordRequest(ctx context.Context, kind string) {
	x.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordTimeout records a request of the given kind resolved on its deadline
func (x *BroadcastMetric) RecordTimeout(ctx context.Context, kind string) {
	x.timeouts.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordAnswered records a request of the given kind answered locally
func (x *BroadcastMetric) RecordAnswered(ctx context.Context, kind string) {
	x.answered.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
