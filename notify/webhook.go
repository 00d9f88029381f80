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

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/tochemey/sharder/internal/http"
	"github.com/tochemey/sharder/log"
)

// DefaultDeliveryTimeout bounds a single webhook delivery
const DefaultDeliveryTimeout = 10 * time.Second

// Webhook posts notices as JSON to an HTTP endpoint
type Webhook struct {
	url     string
	client  *nethttp.Client
	logger  log.Logger
	timeout time.Duration

	// mu guards closed and the additions to wg
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// enforce compilation error
var _ Notifier = (*Webhook)(nil)

// NewWebhook creates a Webhook posting to url
func NewWebhook(url string, logger log.Logger) (*Webhook, error) {
	client, err := http.NewClient(DefaultDeliveryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create the webhook client: %w", err)
	}
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Webhook{
		url:     url,
		client:  client,
		logger:  logger,
		timeout: DefaultDeliveryTimeout,
	}, nil
}

// Notify posts the event in the background
func (w *Webhook) Notify(ctx context.Context, event Event) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
		defer cancel()
		if err := w.deliver(ctx, event); err != nil {
			w.logger.Warnf("failed to deliver notice %q: %v", event.Title, err)
		}
	}()
}

// Close waits for the pending deliveries
func (w *Webhook) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.wg.Wait()
	w.client.CloseIdleConnections()
	return nil
}

func (w *Webhook) deliver(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	request, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := w.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode >= nethttp.StatusBadRequest {
		return fmt.Errorf("unexpected status %s", response.Status)
	}
	return nil
}
