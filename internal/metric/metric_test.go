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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewLockMetric(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lockMetric, err := NewLockMetric(meter)
	require.NoError(t, err)
	require.NotNil(t, lockMetric)

	ctx := context.TODO()
	assert.NotPanics(t, func() {
		lockMetric.RecordAcquired(ctx, 12)
		lockMetric.RecordExtended(ctx)
		lockMetric.RecordLost(ctx)
	})
	assert.NotNil(t, NoopLockMetric())
}

func TestNewBroadcastMetric(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	broadcastMetric, err := NewBroadcastMetric(meter)
	require.NoError(t, err)
	require.NotNil(t, broadcastMetric)

	ctx := context.TODO()
	assert.NotPanics(t, func() {
		broadcastMetric.RecordRequest(ctx, "stats")
		broadcastMetric.RecordTimeout(ctx, "stats")
		broadcastMetric.RecordAnswered(ctx, "stats")
	})
	assert.NotNil(t, NoopBroadcastMetric())
}

func TestNewProvider(t *testing.T) {
	provider := NewProvider(nil)
	require.NotNil(t, provider.Meter())

	provider = NewProvider(noop.NewMeterProvider())
	require.NotNil(t, provider.Meter())
}
