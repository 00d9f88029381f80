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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/tochemey/sharder/log"
)

func TestSeverity(t *testing.T) {
	assert.Equal(t, "info", Info.String())
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "error", Error.String())
}

func TestNoOp(t *testing.T) {
	var notifier Notifier = NoOp{}
	notifier.Notify(context.TODO(), Event{Title: "ignored"})
	assert.NoError(t, notifier.Close())
}

func TestWebhook(t *testing.T) {
	t.Run("With delivery", func(t *testing.T) {
		received := make(chan map[string]any, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			var payload map[string]any
			assert.NoError(t, json.Unmarshal(body, &payload))
			received <- payload
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		webhook, err := NewWebhook(server.URL, log.DiscardLogger)
		require.NoError(t, err)

		webhook.Notify(context.TODO(), Event{Title: "lock lost", Description: "cluster 2", Severity: Warning})
		require.NoError(t, webhook.Close())

		payload := <-received
		assert.Equal(t, "lock lost", payload["title"])
		assert.Equal(t, "cluster 2", payload["description"])
		assert.Equal(t, "warning", payload["severity"])

		// dropped once closed
		webhook.Notify(context.TODO(), Event{Title: "late"})
		assert.Empty(t, received)
	})
	t.Run("With a failing endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		webhook, err := NewWebhook(server.URL, log.DiscardLogger)
		require.NoError(t, err)
		assert.Error(t, webhook.deliver(context.TODO(), Event{Title: "boom"}))
		webhook.Notify(context.TODO(), Event{Title: "boom"})
		require.NoError(t, webhook.Close())
	})
	t.Run("With notices racing close", func(t *testing.T) {
		delivered := atomic.NewInt64(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			delivered.Inc()
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		webhook, err := NewWebhook(server.URL, log.DiscardLogger)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 10 {
					webhook.Notify(context.TODO(), Event{Title: "storm"})
				}
			}()
		}

		require.NoError(t, webhook.Close())
		settled := delivered.Load()
		// nothing is delivered once Close returned
		assert.Never(t, func() bool { return delivered.Load() != settled }, 100*time.Millisecond, 10*time.Millisecond)
		wg.Wait()
		assert.LessOrEqual(t, delivered.Load(), int64(200))
	})
}
