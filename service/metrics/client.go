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

package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/optakt/walletkit/api/bdb"
	"github.com/optakt/walletkit/service/system"
)

// Client wraps the blockchain database client of a system and records how
// long each call takes, retries included.
type Client struct {
	client   system.Client
	duration *prometheus.HistogramVec
}

func NewClient(client system.Client, reg prometheus.Registerer) *Client {

	durationOpts := prometheus.HistogramOpts{
		Name:      "bdb_call_duration_seconds",
		Namespace: namespace,
		Help:      "duration of blockchain database calls, retries included",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}
	duration := promauto.With(reg).NewHistogramVec(durationOpts, []string{"call"})

	c := Client{
		client:   client,
		duration: duration,
	}

	return &c
}

func (c *Client) time(call string) func() {
	start := time.Now()
	return func() {
		c.duration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	}
}

func (c *Client) Blockchains(ctx context.Context, mainnet bool) ([]bdb.Blockchain, error) {
	defer c.time("blockchains")()
	return c.client.Blockchains(ctx, mainnet)
}

func (c *Client) Blockchain(ctx context.Context, id string) (bdb.Blockchain, error) {
	defer c.time("blockchain")()
	return c.client.Blockchain(ctx, id)
}

func (c *Client) Currencies(ctx context.Context, blockchainID string) ([]bdb.Currency, error) {
	defer c.time("currencies")()
	return c.client.Currencies(ctx, blockchainID)
}

// Transactions is not timed, as it only prepares a lazy sequence of pages.
func (c *Client) Transactions(query bdb.TransactionQuery) *bdb.Transactions {
	return c.client.Transactions(query)
}

func (c *Client) Transaction(ctx context.Context, id string, includeRaw bool, includeProof bool) (bdb.Transaction, error) {
	defer c.time("transaction")()
	return c.client.Transaction(ctx, id, includeRaw, includeProof)
}

func (c *Client) CreateTransaction(ctx context.Context, blockchainID string, hash string, data []byte) error {
	defer c.time("create_transaction")()
	return c.client.CreateTransaction(ctx, blockchainID, hash, data)
}

func (c *Client) EstimateTransactionFee(ctx context.Context, blockchainID string, hash string, data []byte) (bdb.FeeEstimate, error) {
	defer c.time("estimate_transaction_fee")()
	return c.client.EstimateTransactionFee(ctx, blockchainID, hash, data)
}

func (c *Client) Subscribe(query bdb.FeedQuery) (*bdb.Feed, error) {
	defer c.time("subscribe")()
	return c.client.Subscribe(query)
}
