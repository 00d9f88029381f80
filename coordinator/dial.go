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
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tochemey/sharder/config"
	"github.com/tochemey/sharder/gateway"
	"github.com/tochemey/sharder/lock"
	"github.com/tochemey/sharder/log"
	"github.com/tochemey/sharder/notify"
	"github.com/tochemey/sharder/pubsub"
)

// Dial creates a Coordinator whose lock, transport and notifier are built
// from the configuration:
//   - redis: redis lock and redis pub/sub
//   - nats: redis lock and nats pub/sub
//   - memory: in-process lock and pub/sub, for a fleet living in one process
func Dial(ctx context.Context, cfg *config.Config, gw gateway.Gateway, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger()
	lockOpts := []lock.Option{
		lock.WithTimeout(cfg.LockTTL()),
		lock.WithRetryDelay(cfg.RetryDelay),
		lock.WithMaxAttempts(cfg.LockMaxAttempts),
		lock.WithLogger(logger),
	}

	var (
		locker    lock.Locker
		transport pubsub.Transport
		cleanup   = func() error { return nil }
	)

	switch cfg.Transport {
	case config.TransportMemory:
		locker = lock.NewMemory(lock.NewMedium(), lockOpts...)
		transport = pubsub.NewMemory(pubsub.NewHub())
	case config.TransportRedis, config.TransportNATS:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddress, err)
		}

		locker = lock.NewRedis(redisClient, lockOpts...)
		cleanup = redisClient.Close
		if cfg.Transport == config.TransportRedis {
			transport = pubsub.NewRedis(ctx, redisClient)
			break
		}

		natsTransport, err := pubsub.DialNATS(cfg.NATSURL, cfg.ClusterIdentity())
		if err != nil {
			_ = redisClient.Close()
			return nil, err
		}
		transport = natsTransport
	}

	opts = append([]Option{withCleanup(cleanup)}, opts...)
	var notifier notify.Notifier = notify.NoOp{}
	if cfg.WebhookURL != "" {
		webhook, err := notify.NewWebhook(cfg.WebhookURL, logger)
		if err != nil {
			return nil, release(err, transport, cleanup)
		}
		notifier = webhook
		opts = append([]Option{WithNotifier(webhook)}, opts...)
	}

	coordinator, err := New(cfg, gw, locker, transport, opts...)
	if err != nil {
		_ = notifier.Close()
		return nil, release(err, transport, cleanup)
	}
	return coordinator, nil
}

func release(err error, transport pubsub.Transport, cleanup func() error) error {
	if e := transport.Close(); e != nil {
		log.DefaultLogger.Warnf("failed to close transport: %v", e)
	}
	if e := cleanup(); e != nil {
		log.DefaultLogger.Warnf("failed to release redis client: %v", e)
	}
	return err
}
