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

package eval

import (
	"context"
	"fmt"

	"github.com/tochemey/sharder/gateway"
	"github.com/tochemey/sharder/stats"
)

// RegisterBuiltins registers the queries every cluster can answer from its
// gateway client: guilds, users, voice, shards, uptime, guild and user
func RegisterBuiltins(registry *Registry, gw gateway.Gateway, collector *stats.Collector) {
	registry.Register("guilds", func(context.Context, []string) (any, error) {
		return gw.GuildCount(), nil
	})
	registry.Register("users", func(context.Context, []string) (any, error) {
		return gw.UserCount(), nil
	})
	registry.Register("voice", func(context.Context, []string) (any, error) {
		return gw.VoiceConnectionCount(), nil
	})
	registry.Register("shards", func(context.Context, []string) (any, error) {
		return collector.Snapshot().Shards, nil
	})
	registry.Register("uptime", func(context.Context, []string) (any, error) {
		return collector.Uptime().Milliseconds(), nil
	})
	registry.Register("guild", func(_ context.Context, args []string) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected a guild id, got %d arguments", len(args))
		}
		guild, _ := gw.Guild(args[0])
		return guild, nil
	})
	registry.Register("user", func(_ context.Context, args []string) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected a user id, got %d arguments", len(args))
		}
		user, _ := gw.User(args[0])
		return user, nil
	})
}
