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

// Package config holds the settings of a cluster of the fleet. They are read
// from a file and SHARDER_ prefixed environment variables, environment
// taking precedence.
package config

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tochemey/sharder/internal/validation"
	"github.com/tochemey/sharder/log"
	"github.com/tochemey/sharder/shardrange"
)

const (
	// EnvPrefix prefixes the environment variables read by Load
	EnvPrefix = "SHARDER"

	// TransportRedis selects the redis pub/sub transport and lock
	TransportRedis = "redis"
	// TransportNATS selects the nats transport with the redis lock
	TransportNATS = "nats"
	// TransportMemory selects the in-process transport and lock
	TransportMemory = "memory"
)

var (
	identityPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	identityInvalid = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// Config holds the settings of a cluster
type Config struct {
	// ClusterIndex is the index of this cluster in the fleet
	ClusterIndex int
	// ShardsPerCluster is the number of shards owned by a cluster
	ShardsPerCluster int
	// TotalShards is the number of shards of the fleet
	TotalShards int
	// LockKey is the admission lock key. It also namespaces the broadcast channels.
	LockKey string
	// Identity stamps the broadcast requests of this process. Defaults to <lockKey>-<clusterIndex>.
	Identity string
	// HandshakeBudget is the lock time granted per owned shard
	HandshakeBudget time.Duration
	// ExtendGrace is the lock extension granted on every ready shard
	ExtendGrace time.Duration
	// HeartbeatInterval is the period of the lock refresh. Zero means a third of the lock TTL.
	HeartbeatInterval time.Duration
	// RetryDelay is the delay between two attempts on a contended lock
	RetryDelay time.Duration
	// LockMaxAttempts bounds the attempts made to reach an unreachable lock medium
	LockMaxAttempts int
	// MaxConcurrency enables batched admission when greater than one
	MaxConcurrency int
	// BatchWindow is the admission window of batched admission
	BatchWindow time.Duration
	// RequestTimeout is the default deadline of first-response requests
	RequestTimeout time.Duration
	// FanInTimeout is the default deadline of fan-in requests
	FanInTimeout time.Duration
	// SharedSecret signs evaluation requests. Evaluation is disabled when empty.
	SharedSecret string
	// Transport is one of redis, nats or memory
	Transport string
	// RedisAddress is the host:port of the redis server
	RedisAddress string
	// RedisPassword is the password of the redis server
	RedisPassword string
	// RedisDB is the redis database
	RedisDB int
	// NATSURL is the url of the nats server
	NATSURL string
	// WebhookURL receives the operational notices when set
	WebhookURL string
	// LogLevel is one of debug, info, warning or error
	LogLevel string
}

// Default returns the default settings of a single cluster fleet
func Default() *Config {
	return &Config{
		ClusterIndex:     0,
		ShardsPerCluster: 1,
		TotalShards:      1,
		LockKey:          "sharder",
		HandshakeBudget:  5 * time.Second,
		ExtendGrace:      8 * time.Second,
		RetryDelay:       time.Second,
		LockMaxAttempts:  5,
		MaxConcurrency:   1,
		BatchWindow:      5 * time.Second,
		RequestTimeout:   2 * time.Second,
		FanInTimeout:     5 * time.Second,
		Transport:        TransportRedis,
		RedisAddress:     "127.0.0.1:6379",
		NATSURL:          "nats://127.0.0.1:4222",
		LogLevel:         "info",
	}
}

// Load reads the settings from the given file, when not empty, and from the
// environment on top of the defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	config := &Config{
		ClusterIndex:      v.GetInt("cluster.index"),
		ShardsPerCluster:  v.GetInt("cluster.shards-per-cluster"),
		TotalShards:       v.GetInt("cluster.total-shards"),
		LockKey:           v.GetString("lock.key"),
		Identity:          v.GetString("cluster.identity"),
		HandshakeBudget:   v.GetDuration("lock.handshake-budget"),
		ExtendGrace:       v.GetDuration("lock.extend-grace"),
		HeartbeatInterval: v.GetDuration("lock.heartbeat-interval"),
		RetryDelay:        v.GetDuration("lock.retry-delay"),
		LockMaxAttempts:   v.GetInt("lock.max-attempts"),
		MaxConcurrency:    v.GetInt("admission.max-concurrency"),
		BatchWindow:       v.GetDuration("admission.batch-window"),
		RequestTimeout:    v.GetDuration("rpc.request-timeout"),
		FanInTimeout:      v.GetDuration("rpc.fan-in-timeout"),
		SharedSecret:      v.GetString("rpc.shared-secret"),
		Transport:         v.GetString("transport.kind"),
		RedisAddress:      v.GetString("transport.redis.address"),
		RedisPassword:     v.GetString("transport.redis.password"),
		RedisDB:           v.GetInt("transport.redis.db"),
		NATSURL:           v.GetString("transport.nats.url"),
		WebhookURL:        v.GetString("notify.webhook-url"),
		LogLevel:          v.GetString("log.level"),
	}
	return config, config.Validate()
}

// AutomaticEnv only resolves the keys viper knows of, hence every key gets a default
func setDefaults(v *viper.Viper, config *Config) {
	v.SetDefault("cluster.index", config.ClusterIndex)
	v.SetDefault("cluster.shards-per-cluster", config.ShardsPerCluster)
	v.SetDefault("cluster.total-shards", config.TotalShards)
	v.SetDefault("cluster.identity", config.Identity)
	v.SetDefault("lock.key", config.LockKey)
	v.SetDefault("lock.handshake-budget", config.HandshakeBudget)
	v.SetDefault("lock.extend-grace", config.ExtendGrace)
	v.SetDefault("lock.heartbeat-interval", config.HeartbeatInterval)
	v.SetDefault("lock.retry-delay", config.RetryDelay)
	v.SetDefault("lock.max-attempts", config.LockMaxAttempts)
	v.SetDefault("admission.max-concurrency", config.MaxConcurrency)
	v.SetDefault("admission.batch-window", config.BatchWindow)
	v.SetDefault("rpc.request-timeout", config.RequestTimeout)
	v.SetDefault("rpc.fan-in-timeout", config.FanInTimeout)
	v.SetDefault("rpc.shared-secret", config.SharedSecret)
	v.SetDefault("transport.kind", config.Transport)
	v.SetDefault("transport.redis.address", config.RedisAddress)
	v.SetDefault("transport.redis.password", config.RedisPassword)
	v.SetDefault("transport.redis.db", config.RedisDB)
	v.SetDefault("transport.nats.url", config.NATSURL)
	v.SetDefault("notify.webhook-url", config.WebhookURL)
	v.SetDefault("log.level", config.LogLevel)
}

// Validate checks the settings. Every violation is reported as an
// errors.ConfigurationError.
func (c *Config) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddAssertion(c.ShardsPerCluster > 0, "shardsPerCluster", "must be greater than zero").
		AddAssertion(c.TotalShards > 0, "totalShards", "must be greater than zero").
		AddAssertion(c.ClusterIndex >= 0, "clusterIndex", "must not be negative").
		AddAssertion(c.LockKey != "", "lockKey", "is required").
		AddAssertion(c.HandshakeBudget > 0, "handshakeBudget", "must be greater than zero").
		AddAssertion(c.ExtendGrace > 0, "extendGrace", "must be greater than zero").
		AddAssertion(c.HeartbeatInterval >= 0, "heartbeatInterval", "must not be negative").
		AddAssertion(c.RetryDelay > 0, "retryDelay", "must be greater than zero").
		AddAssertion(c.LockMaxAttempts > 0, "lockMaxAttempts", "must be greater than zero").
		AddAssertion(c.MaxConcurrency > 0, "maxConcurrency", "must be greater than zero").
		AddAssertion(c.BatchWindow > 0, "batchWindow", "must be greater than zero").
		AddAssertion(c.RequestTimeout > 0, "requestTimeout", "must be greater than zero").
		AddAssertion(c.FanInTimeout > 0, "fanInTimeout", "must be greater than zero").
		AddAssertion(log.ParseLevel(c.LogLevel) != log.InvalidLevel, "logLevel", "must be one of debug, info, warning, error").
		AddAssertion(slices.Contains([]string{TransportRedis, TransportNATS, TransportMemory}, c.Transport), "transport", "must be one of redis, nats, memory")

	if c.ShardsPerCluster > 0 && c.TotalShards > 0 {
		chain.AddAssertion(c.ClusterIndex < shardrange.ClusterCount(c.ShardsPerCluster, c.TotalShards), "clusterIndex", "is beyond the last cluster of the fleet")
	}

	if c.Identity != "" {
		chain.AddValidator(validation.NewPatternValidator("identity", c.Identity, identityPattern))
	}

	switch c.Transport {
	case TransportRedis:
		chain.AddValidator(validation.NewAddressValidator("redisAddress", c.RedisAddress))
	case TransportNATS:
		chain.AddValidator(validation.NewAddressValidator("redisAddress", c.RedisAddress)).
			AddValidator(validation.NewAddressValidator("natsURL", c.NATSURL))
	}

	return chain.Validate()
}

// ClusterIdentity returns the identity of the cluster on the broadcast bus
func (c *Config) ClusterIdentity() string {
	if c.Identity != "" {
		return c.Identity
	}
	return identityInvalid.ReplaceAllString(c.LockKey, "_") + "-" + strconv.Itoa(c.ClusterIndex)
}

// ClusterCount returns the number of clusters of the fleet
func (c *Config) ClusterCount() int {
	return shardrange.ClusterCount(c.ShardsPerCluster, c.TotalShards)
}

// LockTTL returns the TTL of the fleet lock: the handshake budget of every
// shard the cluster owns. Lockers handed to the coordinator use it as timeout.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.ShardsPerCluster) * c.HandshakeBudget
}

// Logger creates the logger of the configured level
func (c *Config) Logger() log.Logger {
	level := log.ParseLevel(c.LogLevel)
	if level == log.InvalidLevel {
		level = log.InfoLevel
	}
	return log.NewZap(level)
}
