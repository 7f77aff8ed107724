// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package bdb

import (
	"net/http"
	"time"
)

// DefaultConfig is the default configuration for the BlockchainDB client.
var DefaultConfig = Config{
	BaseURL:      "https://api.blockset.com",
	Timeout:      30 * time.Second,
	MaxPageSize:  20,
	AddressChunk: 50,
	Retries:      3,
	RetryDelay:   250 * time.Millisecond,
	CacheSize:    1 << 12,
	MaxInFlight:  8,
	PollInterval: 10 * time.Second,
	Overlap:      1,
	SeenSize:     1 << 12,
}

// Config contains the configuration options for the BlockchainDB client.
type Config struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	MaxPageSize  uint
	AddressChunk uint
	Retries      uint64
	RetryDelay   time.Duration
	CacheSize    int64
	MaxInFlight  int64
	PollInterval time.Duration
	Overlap      uint64
	SeenSize     int
	Transport    http.RoundTripper
	Recorder     Recorder
}

// Option is an option that can be given to the client to configure optional
// parameters on initialization.
type Option func(*Config)

// WithBaseURL sets the root URL of the BlockchainDB service.
func WithBaseURL(url string) Option {
	return func(cfg *Config) {
		cfg.BaseURL = url
	}
}

// WithToken sets the client token sent as bearer authorization.
func WithToken(token string) Option {
	return func(cfg *Config) {
		cfg.Token = token
	}
}

// WithTimeout sets the deadline of each individual request.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *Config) {
		cfg.Timeout = timeout
	}
}

// WithMaxPageSize sets the default page size hint for paginated queries.
func WithMaxPageSize(size uint) Option {
	return func(cfg *Config) {
		cfg.MaxPageSize = size
	}
}

// WithAddressChunk sets how many addresses are sent in a single query.
func WithAddressChunk(size uint) Option {
	return func(cfg *Config) {
		cfg.AddressChunk = size
	}
}

// WithRetries sets how many times a read request is retried after a network
// failure, and the initial delay between attempts.
func WithRetries(retries uint64, delay time.Duration) Option {
	return func(cfg *Config) {
		cfg.Retries = retries
		cfg.RetryDelay = delay
	}
}

// WithCacheSize sets the maximum number of currencies kept in memory.
func WithCacheSize(size int64) Option {
	return func(cfg *Config) {
		cfg.CacheSize = size
	}
}

// WithMaxInFlight bounds the number of concurrent requests.
func WithMaxInFlight(max int64) Option {
	return func(cfg *Config) {
		cfg.MaxInFlight = max
	}
}

// WithPollInterval sets how often subscriptions poll for new blocks.
func WithPollInterval(interval time.Duration) Option {
	return func(cfg *Config) {
		cfg.PollInterval = interval
	}
}

// WithTransport replaces the HTTP transport, mostly for tests.
func WithTransport(transport http.RoundTripper) Option {
	return func(cfg *Config) {
		cfg.Transport = transport
	}
}

// WithRecorder sets the component that records request metrics.
func WithRecorder(recorder Recorder) Option {
	return func(cfg *Config) {
		cfg.Recorder = recorder
	}
}
