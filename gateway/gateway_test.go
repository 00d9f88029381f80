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

package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	for _, status := range []Status{StatusDisconnected, StatusConnecting, StatusHandshaking, StatusReady} {
		bytea, err := json.Marshal(status)
		require.NoError(t, err)

		var decoded Status
		require.NoError(t, json.Unmarshal(bytea, &decoded))
		assert.Equal(t, status, decoded)
	}

	assert.JSONEq(t, `"handshaking"`, mustJSON(t, StatusHandshaking))
	assert.Equal(t, "Status(9)", Status(9).String())

	var status Status
	assert.Error(t, status.UnmarshalText([]byte("resuming")))

	assert.False(t, StatusDisconnected.InFlight())
	assert.True(t, StatusConnecting.InFlight())
	assert.True(t, StatusHandshaking.InFlight())
	assert.True(t, StatusReady.InFlight())
}

func TestEventKind(t *testing.T) {
	assert.Equal(t, "shardReady", ShardReady.String())
	assert.Equal(t, "shardDisconnect", ShardDisconnect.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "EventKind(7)", EventKind(7).String())
}

func mustJSON(t *testing.T, value any) string {
	t.Helper()
	bytea, err := json.Marshal(value)
	require.NoError(t, err)
	return string(bytea)
}
