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

package broadcast

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	testCases := []struct {
		channel string
		kind    channelKind
		name    string
	}{
		{channel: "sharder:request:stats", kind: requestChannel, name: "stats"},
		{channel: "sharder:response:guild", kind: responseChannel, name: "guild"},
		{channel: "sharder:event:reload", kind: eventChannel, name: "reload"},
		{channel: "other:request:stats", kind: unknownChannel},
		{channel: "sharder:unknown:stats", kind: unknownChannel},
	}
	for _, testCase := range testCases {
		t.Run(testCase.channel, func(t *testing.T) {
			kind, name := parseChannel("sharder", testCase.channel)
			assert.Equal(t, testCase.kind, kind)
			assert.Equal(t, testCase.name, name)
		})
	}

	assert.Equal(t, "sharder:request:stats", requestChannelName("sharder", "stats"))
	assert.Equal(t, "sharder:response:stats", responseChannelName("sharder", "stats"))
	assert.Equal(t, "sharder:event:reload", eventChannelName("sharder", "reload"))
}

func TestIDGenerator(t *testing.T) {
	t.Run("With layout", func(t *testing.T) {
		id := NewIDGenerator("cluster-3").Next()
		parts := strings.Split(id, ":")
		require.Len(t, parts, 3)
		assert.Equal(t, "cluster-3", parts[0])
		_, err := strconv.ParseInt(parts[1], 10, 64)
		require.NoError(t, err)
		assert.Len(t, parts[2], 12)
	})
	t.Run("With a frozen clock", func(t *testing.T) {
		generator := NewIDGenerator("cluster-0")
		frozen := time.Unix(0, 42)
		generator.now = func() time.Time { return frozen }

		seen := make(map[string]struct{})
		previous := int64(0)
		for range 100 {
			id := generator.Next()
			_, exists := seen[id]
			require.False(t, exists)
			seen[id] = struct{}{}

			stamp, err := strconv.ParseInt(strings.Split(id, ":")[1], 10, 64)
			require.NoError(t, err)
			assert.Greater(t, stamp, previous)
			previous = stamp
		}
	})
	t.Run("With distinct identities", func(t *testing.T) {
		assert.NotEqual(t, NewIDGenerator("a").Next(), NewIDGenerator("b").Next())
	})
}
