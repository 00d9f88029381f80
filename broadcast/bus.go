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

// Package broadcast implements request/response and request/fan-in over a
// publish/subscribe medium. Peers never learn each other's addresses: a
// request is published on <namespace>:request:<kind> and every answer comes
// back on <namespace>:response:<kind>, bound to its request by the
// correlation id.
//
// A request never fails because nobody answered. RequestFirst resolves on
// the first answer or on its deadline with nothing. RequestAll resolves when
// the expected number of answers arrived or on its deadline with the
// partial list.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/sharder/errors"
	"github.com/tochemey/sharder/internal/metric"
	"github.com/tochemey/sharder/internal/pending"
	"github.com/tochemey/sharder/internal/xsync"
	"github.com/tochemey/sharder/log"
	"github.com/tochemey/sharder/pubsub"
)

const (
	// DefaultFirstTimeout is the deadline of a first-response request
	DefaultFirstTimeout = 2 * time.Second
	// DefaultFanInTimeout is the deadline of a fan-in request
	DefaultFanInTimeout = 5 * time.Second
	// DefaultNamespace prefixes every channel when no namespace is set
	DefaultNamespace = "sharder"

	// UntilDeadline makes RequestAll collect every answer received before its deadline
	UntilDeadline = pending.All
)

// Request is an inbound request handed to a Handler
type Request struct {
	Kind          string
	CorrelationID string
	Origin        string
	Key           string
	Signature     string
	Payload       json.RawMessage
}

// Handler answers the requests of one kind. It returns ok=false when this
// cluster has nothing to say, in which case no response is published.
type Handler func(ctx context.Context, request *Request) (response any, ok bool, err error)

// EventHandler receives application messages published with Publish
type EventHandler func(ctx context.Context, origin string, message json.RawMessage)

// Bus is the broadcast RPC endpoint of a process
type Bus struct {
	transport pubsub.Transport
	identity  string
	namespace string
	logger    log.Logger
	metric    *metric.BroadcastMetric

	ids      *IDGenerator
	requests *pending.Table
	handlers *xsync.Map[string, Handler]
	events   *xsync.Map[string, EventHandler]
	channels *xsync.Map[string, struct{}]

	started *atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a Bus on the given transport. The bus takes ownership of the
// transport and closes it on Stop.
func New(transport pubsub.Transport, opts ...Option) *Bus {
	hostname, _ := os.Hostname()
	bus := &Bus{
		transport: transport,
		identity:  fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		namespace: DefaultNamespace,
		logger:    log.DefaultLogger,
		metric:    metric.NoopBroadcastMetric(),
		requests:  pending.NewTable(),
		handlers:  xsync.NewMap[string, Handler](),
		events:    xsync.NewMap[string, EventHandler](),
		channels:  xsync.NewMap[string, struct{}](),
		started:   atomic.NewBool(false),
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt.Apply(bus)
	}

	bus.ids = NewIDGenerator(bus.identity)
	return bus
}

// Identity returns the identity stamped on published envelopes
func (b *Bus) Identity() string {
	return b.identity
}

// Start subscribes to the channels of the registered handlers and starts
// consuming the transport
func (b *Bus) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}

	b.ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	if err := b.subscribe(ctx, b.channels.Keys()...); err != nil {
		b.started.Store(false)
		b.cancel()
		return err
	}

	b.wg.Add(1)
	go b.consume()
	b.logger.Debugf("broadcast bus %s started on namespace %s", b.identity, b.namespace)
	return nil
}

// Stop resolves the in-flight requests with their partial results, waits
// for the running handlers and closes the transport
func (b *Bus) Stop(context.Context) error {
	if !b.started.CompareAndSwap(true, false) {
		return nil
	}

	close(b.stopCh)
	b.cancel()
	b.requests.Close()
	err := b.transport.Close()
	b.wg.Wait()
	b.logger.Debugf("broadcast bus %s stopped", b.identity)
	return err
}

// Handle registers the responder of the given request kind.
// A kind has a single responder per process; the last registration wins.
func (b *Bus) Handle(ctx context.Context, kind string, handler Handler) error {
	b.handlers.Set(kind, handler)
	return b.ensureChannels(ctx, requestChannelName(b.namespace, kind), responseChannelName(b.namespace, kind))
}

// Subscribe registers the handler of the application event name
func (b *Bus) Subscribe(ctx context.Context, name string, handler EventHandler) error {
	b.events.Set(name, handler)
	return b.ensureChannels(ctx, eventChannelName(b.namespace, name))
}

// Publish broadcasts an application event to every subscriber of name
func (b *Bus) Publish(ctx context.Context, name string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", name, err)
	}
	return b.publish(ctx, &Envelope{
		Channel: eventChannelName(b.namespace, name),
		Origin:  b.identity,
		Payload: payload,
	})
}

// RequestFirst publishes a request and resolves with the first answer.
// It reports false when nobody answered before timeout.
func (b *Bus) RequestFirst(ctx context.Context, kind string, payload any, timeout time.Duration, opts ...RequestOption) (json.RawMessage, bool, error) {
	responses, _, err := b.request(ctx, kind, payload, pending.First, timeout, opts...)
	if err != nil || len(responses) == 0 {
		return nil, false, err
	}
	return responses[0], true, nil
}

// RequestAll publishes a request and collects up to expected answers.
// complete is false when the deadline elapsed first, in which case the
// answers received so far are returned. With UntilDeadline it always waits
// for the deadline.
func (b *Bus) RequestAll(ctx context.Context, kind string, payload any, expected int, timeout time.Duration, opts ...RequestOption) (responses []json.RawMessage, complete bool, err error) {
	return b.request(ctx, kind, payload, expected, timeout, opts...)
}

func (b *Bus) request(ctx context.Context, kind string, payload any, expected int, timeout time.Duration, opts ...RequestOption) ([]json.RawMessage, bool, error) {
	if !b.started.Load() {
		return nil, false, errors.ErrCoordinatorNotStarted
	}
	if timeout <= 0 {
		return nil, false, errors.ErrInvalidTimeout
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode %s request: %w", kind, err)
	}

	if err := b.ensureChannels(ctx, responseChannelName(b.namespace, kind)); err != nil {
		return nil, false, err
	}

	envelope := &Envelope{
		Channel:       requestChannelName(b.namespace, kind),
		CorrelationID: b.ids.Next(),
		Origin:        b.identity,
		ReplyTo:       responseChannelName(b.namespace, kind),
		Payload:       encoded,
		kind:          kind,
	}
	for _, opt := range opts {
		opt(envelope)
	}

	// register before publishing so that a fast answer is not missed
	request, err := b.requests.Insert(envelope.CorrelationID, expected, timeout)
	if err != nil {
		return nil, false, err
	}

	b.metric.RecordRequest(ctx, kind)
	if err := b.publish(ctx, envelope); err != nil {
		b.requests.Cancel(envelope.CorrelationID)
		<-request.Done()
		return nil, false, err
	}

	var result pending.Result
	select {
	case result = <-request.Done():
	case <-ctx.Done():
		b.requests.Cancel(envelope.CorrelationID)
		result = <-request.Done()
	}

	if !result.Complete && expected != UntilDeadline {
		b.metric.RecordTimeout(ctx, kind)
		b.logger.Debugf("%s request %s resolved with %d/%d responses", kind, envelope.CorrelationID, len(result.Responses), expected)
	}
	return result.Responses, result.Complete, nil
}

func (b *Bus) publish(ctx context.Context, envelope *Envelope) error {
	bytea, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := b.transport.Publish(ctx, envelope.Channel, bytea); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", envelope.Channel, err)
	}
	return nil
}

// ensureChannels records the channels and subscribes to the new ones when started
func (b *Bus) ensureChannels(ctx context.Context, channels ...string) error {
	fresh := make([]string, 0, len(channels))
	for _, channel := range channels {
		if b.channels.SetIfAbsent(channel, struct{}{}) {
			fresh = append(fresh, channel)
		}
	}
	if len(fresh) == 0 || !b.started.Load() {
		return nil
	}
	if err := b.subscribe(ctx, fresh...); err != nil {
		for _, channel := range fresh {
			b.channels.Delete(channel)
		}
		return err
	}
	return nil
}

func (b *Bus) subscribe(ctx context.Context, channels ...string) error {
	if len(channels) == 0 {
		return nil
	}
	if err := b.transport.Subscribe(ctx, channels...); err != nil {
		return fmt.Errorf("failed to subscribe to %v: %w", channels, err)
	}
	return nil
}

// consume dispatches the inbound messages until the transport is closed
func (b *Bus) consume() {
	defer b.wg.Done()
	for message := range b.transport.Messages() {
		var envelope Envelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			b.logger.Warnf("dropping malformed envelope on %s: %v", message.Channel, err)
			continue
		}

		kind, name := parseChannel(b.namespace, message.Channel)
		switch kind {
		case responseChannel:
			b.requests.Deliver(envelope.CorrelationID, envelope.Payload)
		case requestChannel:
			if handler, ok := b.handlers.Get(name); ok {
				b.wg.Add(1)
				go b.answer(name, handler, &envelope)
			}
		case eventChannel:
			if handler, ok := b.events.Get(name); ok {
				handler(b.ctx, envelope.Origin, envelope.Payload)
			}
		default:
			// not ours
		}
	}
}

func (b *Bus) answer(kind string, handler Handler, envelope *Envelope) {
	defer b.wg.Done()
	request := &Request{
		Kind:          kind,
		CorrelationID: envelope.CorrelationID,
		Origin:        envelope.Origin,
		Key:           envelope.Key,
		Signature:     envelope.Signature,
		Payload:       envelope.Payload,
	}

	response, ok, err := handler(b.ctx, request)
	if err != nil {
		b.logger.Errorf("failed to answer %s request %s: %v", kind, envelope.CorrelationID, err)
		return
	}
	if !ok {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		b.logger.Errorf("failed to encode %s response %s: %v", kind, envelope.CorrelationID, err)
		return
	}

	select {
	case <-b.stopCh:
		return
	default:
	}

	channel := envelope.ReplyTo
	if channel == "" {
		channel = responseChannelName(b.namespace, kind)
	}

	if err := b.publish(b.ctx, &Envelope{
		Channel:       channel,
		CorrelationID: envelope.CorrelationID,
		Origin:        b.identity,
		Payload:       payload,
	}); err != nil {
		b.logger.Errorf("failed to answer %s request %s: %v", kind, envelope.CorrelationID, err)
		return
	}
	b.metric.RecordAnswered(b.ctx, kind)
}
