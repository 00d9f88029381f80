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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

const (
	requestPrefix  = "request:"
	responsePrefix = "response:"
	eventPrefix    = "event:"
)

// Envelope is the wire layout of every message exchanged on the medium
type Envelope struct {
	Channel       string          `json:"channel"`
	CorrelationID string          `json:"correlationID"`
	Origin        string          `json:"origin,omitempty"`
	Key           string          `json:"key,omitempty"`
	Signature     string          `json:"signature,omitempty"`
	ReplyTo       string          `json:"replyTo,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`

	kind string
}

// channelKind classifies a namespaced channel name
type channelKind int

const (
	unknownChannel channelKind = iota
	requestChannel
	responseChannel
	eventChannel
)

// parseChannel splits <namespace>:<request|response|event>:<name>
func parseChannel(namespace, channel string) (channelKind, string) {
	rest, ok := strings.CutPrefix(channel, namespace+":")
	if !ok {
		return unknownChannel, ""
	}
	switch {
	case strings.HasPrefix(rest, requestPrefix):
		return requestChannel, strings.TrimPrefix(rest, requestPrefix)
	case strings.HasPrefix(rest, responsePrefix):
		return responseChannel, strings.TrimPrefix(rest, responsePrefix)
	case strings.HasPrefix(rest, eventPrefix):
		return eventChannel, strings.TrimPrefix(rest, eventPrefix)
	default:
		return unknownChannel, ""
	}
}

func requestChannelName(namespace, kind string) string {
	return namespace + ":" + requestPrefix + kind
}

func responseChannelName(namespace, kind string) string {
	return namespace + ":" + responsePrefix + kind
}

func eventChannelName(namespace, name string) string {
	return namespace + ":" + eventPrefix + name
}

// IDGenerator builds correlation ids unique across concurrently issuing
// processes: <identity>:<timestamp>:<random>. The timestamp never goes
// backwards within a process, even when the wall clock does.
type IDGenerator struct {
	identity string
	last     *atomic.Int64
	now      func() time.Time
}

// NewIDGenerator creates an IDGenerator for the given identity
func NewIDGenerator(identity string) *IDGenerator {
	return &IDGenerator{
		identity: identity,
		last:     atomic.NewInt64(0),
		now:      time.Now,
	}
}

// Next returns a fresh correlation id
func (g *IDGenerator) Next() string {
	stamp := g.now().UnixNano()
	for {
		last := g.last.Load()
		if stamp <= last {
			stamp = last + 1
		}
		if g.last.CompareAndSwap(last, stamp) {
			break
		}
	}
	return fmt.Sprintf("%s:%d:%s", g.identity, stamp, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
