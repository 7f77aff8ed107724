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
	"context"

	"github.com/rs/zerolog"

	"github.com/optakt/walletkit/service/dispatch"
)

const notificationKey = "bdb"

// Async exposes the client through completion callbacks. Every method returns
// immediately with a function that cancels the request. Completions are
// delivered one at a time, in the order in which the requests completed, on
// a notification goroutine dedicated to the async client; they are never
// invoked from within the calling goroutine.
type Async struct {
	client *Client
	notify *dispatch.Dispatcher
}

// NewAsync wraps the given client.
func NewAsync(log zerolog.Logger, client *Client) *Async {
	a := Async{
		client: client,
		notify: dispatch.New(log.With().Str("component", "bdb_async").Logger(), dispatch.WithLanes(1)),
	}
	return &a
}

// Close delivers pending completions and stops the notification goroutine.
// Requests completing afterwards are dropped.
func (a *Async) Close() {
	a.notify.Stop()
}

func (a *Async) start(ctx context.Context, request func(ctx context.Context) func()) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		complete := request(ctx)
		a.notify.Dispatch(notificationKey, complete)
	}()
	return cancel
}

func (a *Async) Blockchains(ctx context.Context, mainnet bool, done func([]Blockchain, error)) func() {
	return a.start(ctx, func(ctx context.Context) func() {
		blockchains, err := a.client.Blockchains(ctx, mainnet)
		return func() { done(blockchains, err) }
	})
}

func (a *Async) Blockchain(ctx context.Context, id string, done func(Blockchain, error)) func() {
	return a.start(ctx, func(ctx context.Context) func() {
		blockchain, err := a.client.Blockchain(ctx, id)
		return func() { done(blockchain, err) }
	})
}

func (a *Async) Currencies(ctx context.Context, blockchainID string, done func([]Currency, error)) func() {
	return a.start(ctx, func(ctx context.Context) func() {
		currencies, err := a.client.Currencies(ctx, blockchainID)
		return func() { done(currencies, err) }
	})
}

func (a *Async) Currency(ctx context.Context, id string, done func(Currency, error)) func() {
	return a.start(ctx, func(ctx context.Context) func() {
		currency, err := a.client.Currency(ctx, id)
		return func() { done(currency, err) }
	})
}

func (a *Async) Transfer(ctx context.Context, id string, done func(Transfer, error)) func() {
	return a.start(ctx, func(ctx context.Context) func() {
		transfer, err := a.client.Transfer(ctx, id)
		return func() { done(transfer, err) }
	})
}

func (a *Async) Transaction(ctx context.Context, id string, includeRaw bool, includeProof bool, done func(Transaction, error)) func() {
	return a.start(ctx, func(ctx context.Context) func() {
		transaction, err := a.client.Transaction(ctx, id, includeRaw, includeProof)
		return func() { done(transaction, err) }
	})
}

func (a *Async) Block(ctx context.Context, id string, includeRaw bool, includeTransactions bool, done func(Block, error)) func() {
	return a.start(ctx, func(ctx context.Context) func() {
		block, err := a.client.Block(ctx, id, includeRaw, includeTransactions)
		return func() { done(block, err) }
	})
}

func (a *Async) CreateTransaction(ctx context.Context, blockchainID string, hash string, data []byte, done func(error)) func() {
	return a.start(ctx, func(ctx context.Context) func() {
		err := a.client.CreateTransaction(ctx, blockchainID, hash, data)
		return func() { done(err) }
	})
}

func (a *Async) EstimateTransactionFee(ctx context.Context, blockchainID string, hash string, data []byte, done func(FeeEstimate, error)) func() {
	return a.start(ctx, func(ctx context.Context) func() {
		estimate, err := a.client.EstimateTransactionFee(ctx, blockchainID, hash, data)
		return func() { done(estimate, err) }
	})
}

// Transfers delivers each page of the query to the page callback, then calls
// the done callback exactly once. Cancelling stops the sequence after the
// page in flight, which is dropped.
func (a *Async) Transfers(ctx context.Context, query TransferQuery, page func([]Transfer), done func(error)) func() {
	transfers := a.client.Transfers(query)
	cancel := a.start(ctx, func(ctx context.Context) func() {
		for transfers.Next(ctx) {
			items := transfers.Page()
			a.notify.Dispatch(notificationKey, func() { page(items) })
		}
		err := transfers.Err()
		return func() { done(err) }
	})
	return func() {
		transfers.Cancel()
		cancel()
	}
}

// Transactions delivers each page of the query to the page callback, then
// calls the done callback exactly once.
func (a *Async) Transactions(ctx context.Context, query TransactionQuery, page func([]Transaction), done func(error)) func() {
	transactions := a.client.Transactions(query)
	cancel := a.start(ctx, func(ctx context.Context) func() {
		for transactions.Next(ctx) {
			items := transactions.Page()
			a.notify.Dispatch(notificationKey, func() { page(items) })
		}
		err := transactions.Err()
		return func() { done(err) }
	})
	return func() {
		transactions.Cancel()
		cancel()
	}
}
