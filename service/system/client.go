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

package system

import (
	"context"

	"github.com/optakt/walletkit/api/bdb"
)

// Client is the subset of the BlockchainDB client used by the system.
type Client interface {
	Blockchains(ctx context.Context, mainnet bool) ([]bdb.Blockchain, error)
	Blockchain(ctx context.Context, id string) (bdb.Blockchain, error)
	Currencies(ctx context.Context, blockchainID string) ([]bdb.Currency, error)
	Transactions(query bdb.TransactionQuery) *bdb.Transactions
	Transaction(ctx context.Context, id string, includeRaw bool, includeProof bool) (bdb.Transaction, error)
	CreateTransaction(ctx context.Context, blockchainID string, hash string, data []byte) error
	EstimateTransactionFee(ctx context.Context, blockchainID string, hash string, data []byte) (bdb.FeeEstimate, error)
	Subscribe(query bdb.FeedQuery) (*bdb.Feed, error)
}
