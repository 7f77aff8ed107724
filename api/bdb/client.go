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
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgraph-io/ristretto"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// MediaType is the versioned content type the client accepts.
const MediaType = "application/vnd.blockset.V_2020-03-21+json"

// Client queries the BlockchainDB service. Every method is safe for
// concurrent use and honors the deadline of its context, on top of the
// per-request timeout of the client.
type Client struct {
	log      zerolog.Logger
	cfg      Config
	base     *url.URL
	http     *http.Client
	validate *validator.Validate
	cache    *ristretto.Cache
	sema     *semaphore.Weighted
	record   Recorder
}

// New creates a new client for the BlockchainDB service.
func New(log zerolog.Logger, options ...Option) (*Client, error) {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("could not parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute (url: %s)", cfg.BaseURL)
	}
	if cfg.MaxPageSize == 0 || cfg.AddressChunk == 0 || cfg.MaxInFlight <= 0 {
		return nil, fmt.Errorf("page size, address chunk and in-flight limit must be positive")
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * cfg.CacheSize,
		MaxCost:     cfg.CacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create currency cache: %w", err)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	record := cfg.Recorder
	if record == nil {
		record = nopRecorder{}
	}

	c := Client{
		log:      log.With().Str("component", "bdb_client").Logger(),
		cfg:      cfg,
		base:     base,
		http:     &http.Client{Transport: transport},
		validate: validator.New(),
		cache:    cache,
		sema:     semaphore.NewWeighted(cfg.MaxInFlight),
		record:   record,
	}

	return &c, nil
}

// Close releases the resources held by the client.
func (c *Client) Close() {
	c.cache.Close()
}

func (c *Client) endpoint(path string, query url.Values) string {
	ref := url.URL{Path: strings.TrimPrefix(path, "/")}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	return c.base.ResolveReference(&ref).String()
}

// resolve turns a continuation link returned by the service into an absolute
// URL, as the service may return relative links.
func (c *Client) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("could not parse continuation link: %w", err)
	}
	return c.base.ResolveReference(ref).String(), nil
}
