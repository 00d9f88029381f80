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

package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tochemey/sharder/errors"
)

var (
	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)
)

// Redis is a Locker backed by a single redis deployment. Ownership is a
// random token stored with SET NX PX; extend and release only act when the
// stored token still matches.
type Redis struct {
	client redis.UniversalClient
	config *Config
}

// enforce compilation error
var _ Locker = (*Redis)(nil)

// NewRedis creates a Redis locker
func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	return &Redis{
		client: client,
		config: newConfig(opts...),
	}
}

// Acquire blocks until the key is owned by the caller
func (x *Redis) Acquire(ctx context.Context, key string) (*Handle, error) {
	handle := newHandle(key)
	err := acquire(ctx, x.config, key, func(ctx context.Context) (bool, error) {
		return x.client.SetNX(ctx, key, handle.token, x.config.Timeout).Result()
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Extend refreshes the TTL of a held lock
func (x *Redis) Extend(ctx context.Context, handle *Handle, ttl time.Duration) error {
	updated, err := extendScript.Run(ctx, x.client, []string{handle.key}, handle.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: extend %s: %v", errors.ErrLockServiceUnavailable, handle.key, err)
	}
	if updated == 0 {
		return fmt.Errorf("extend %s: %w", handle.key, errors.ErrLockLost)
	}
	return nil
}

// Release gives the lock up
func (x *Redis) Release(ctx context.Context, handle *Handle) error {
	deleted, err := releaseScript.Run(ctx, x.client, []string{handle.key}, handle.token).Int64()
	if err != nil {
		return fmt.Errorf("%w: release %s: %v", errors.ErrLockServiceUnavailable, handle.key, err)
	}
	if deleted == 0 {
		return fmt.Errorf("release %s: %w", handle.key, errors.ErrLockLost)
	}
	return nil
}
