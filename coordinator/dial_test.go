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

package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/sharder/config"
	"github.com/tochemey/sharder/errors"
	"github.com/tochemey/sharder/log"
	"github.com/tochemey/sharder/testkit"
)

func TestDial(t *testing.T) {
	t.Run("With memory transport", func(t *testing.T) {
		ctx := context.TODO()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		t.Cleanup(server.Close)

		cfg := clusterConfig(0, secret)
		cfg.TotalShards = 2
		cfg.WebhookURL = server.URL
		gw := testkit.NewGateway(testkit.WithAutoReady(10 * time.Millisecond))
		t.Cleanup(gw.Close)

		coordinator, err := Dial(ctx, cfg, gw, WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		require.NoError(t, coordinator.Start(ctx))

		require.NoError(t, coordinator.Queue(ctx))
		require.Eventually(t, func() bool {
			return coordinator.State() == FullyReady
		}, 5*time.Second, 10*time.Millisecond)

		out, err := coordinator.Stats(ctx, "", time.Second)
		require.NoError(t, err)
		assert.Len(t, out.Clusters, 1)
		assert.Len(t, out.Shards, 2)

		results, err := coordinator.EvalAll(ctx, "shards", nil, time.Second)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Empty(t, results[0].Error)

		require.NoError(t, coordinator.Stop(ctx))
	})
	t.Run("With invalid configuration", func(t *testing.T) {
		cfg := config.Default()
		cfg.Transport = "kafka"
		coordinator, err := Dial(context.TODO(), cfg, testkit.NewGateway())
		require.Error(t, err)
		assert.True(t, errors.IsConfigurationError(err))
		assert.Nil(t, coordinator)
	})
	t.Run("With unreachable redis", func(t *testing.T) {
		cfg := config.Default()
		cfg.RedisAddress = "127.0.0.1:1"
		ctx, cancel := context.WithTimeout(context.TODO(), 2*time.Second)
		defer cancel()

		coordinator, err := Dial(ctx, cfg, testkit.NewGateway())
		require.Error(t, err)
		assert.ErrorContains(t, err, "failed to reach redis")
		assert.Nil(t, coordinator)
	})
}
