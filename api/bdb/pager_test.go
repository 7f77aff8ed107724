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

package bdb_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/walletkit/api/bdb"
	"github.com/optakt/walletkit/models/failure"
	"github.com/optakt/walletkit/testing/mocks"
)

func transferIDs(transfers []bdb.Transfer) []string {
	ids := make([]string, 0, len(transfers))
	for _, transfer := range transfers {
		ids = append(ids, transfer.ID)
	}
	return ids
}

func TestClient_Transfers(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		for height := uint64(1); height <= 7; height++ {
			server.AddTransaction(mocks.GenericTransaction(height, 0, 1000*height, height%2 == 0))
		}
		client := newClient(t, server)

		query := bdb.TransferQuery{
			BlockchainID: mocks.GenericNetworkID,
			Addresses:    []string{mocks.GenericAddress},
			Begin:        2,
			End:          6,
		}
		got, err := client.Transfers(query).All(context.Background())

		require.NoError(t, err)
		assert.Len(t, got, 4)
		for _, transfer := range got {
			assert.Equal(t, mocks.GenericNetworkID, transfer.BlockchainID)
		}
	})

	t.Run("page size does not change results", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		for height := uint64(1); height <= 9; height++ {
			server.AddTransaction(mocks.GenericTransaction(height, 0, 500, true))
			server.AddTransaction(mocks.GenericTransaction(height, 1, 700, false))
		}
		client := newClient(t, server)

		query := bdb.TransferQuery{
			BlockchainID: mocks.GenericNetworkID,
			Addresses:    []string{mocks.GenericAddress},
		}
		query.MaxPageSize = 3
		small, err := client.Transfers(query).All(context.Background())
		require.NoError(t, err)
		hits := server.Hits("/transfers")

		query.MaxPageSize = 100
		large, err := client.Transfers(query).All(context.Background())
		require.NoError(t, err)

		assert.Len(t, small, 18)
		assert.Equal(t, transferIDs(large), transferIDs(small))
		assert.Equal(t, 6, hits)
		assert.Equal(t, 7, server.Hits("/transfers"))
	})

	t.Run("splits addresses into chunks", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		addresses := []string{"tb1qaddress0", "tb1qaddress1", "tb1qaddress2"}
		for i, address := range addresses {
			transaction := mocks.GenericTransaction(uint64(i+1), 0, 100, true)
			transaction.Transfers[0].Target = address
			server.AddTransaction(transaction)
		}
		client := newClient(t, server, bdb.WithAddressChunk(2))

		query := bdb.TransferQuery{
			BlockchainID: mocks.GenericNetworkID,
			Addresses:    addresses,
		}
		got, err := client.Transfers(query).All(context.Background())

		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.Equal(t, 2, server.Hits("/transfers"))
	})

	t.Run("skips empty pages", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		client := newClient(t, server)

		transfers := client.Transfers(bdb.TransferQuery{
			BlockchainID: mocks.GenericNetworkID,
			Addresses:    []string{mocks.GenericAddress},
		})

		assert.False(t, transfers.Next(context.Background()))
		assert.NoError(t, transfers.Err())
	})

	t.Run("stops after cancellation", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		for height := uint64(1); height <= 4; height++ {
			server.AddTransaction(mocks.GenericTransaction(height, 0, 100, true))
		}
		client := newClient(t, server)

		transfers := client.Transfers(bdb.TransferQuery{
			BlockchainID: mocks.GenericNetworkID,
			Addresses:    []string{mocks.GenericAddress},
			MaxPageSize:  1,
		})
		require.True(t, transfers.Next(context.Background()))
		assert.Len(t, transfers.Page(), 1)

		transfers.Cancel()
		transfers.Cancel()

		assert.False(t, transfers.Next(context.Background()))
		assert.NoError(t, transfers.Err())
		assert.Equal(t, 1, server.Hits("/transfers"))
	})
}

func TestNewTransfers(t *testing.T) {
	t.Run("walks every segment", func(t *testing.T) {
		t.Parallel()

		pages := map[string][]bdb.Transfer{
			"a1": {{ID: "1"}},
			"a2": {},
			"a3": {{ID: "2"}, {ID: "3"}},
			"b1": {{ID: "4"}},
		}
		links := map[string]string{"a1": "a2", "a2": "a3"}
		fetch := func(_ context.Context, cursor string) ([]bdb.Transfer, string, error) {
			return pages[cursor], links[cursor], nil
		}

		got, err := bdb.NewTransfers(fetch, "a1", "b1").All(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3", "4"}, transferIDs(got))
	})

	t.Run("handles fetch failure", func(t *testing.T) {
		t.Parallel()

		calls := 0
		fetch := func(_ context.Context, cursor string) ([]bdb.Transfer, string, error) {
			calls++
			if calls > 1 {
				return nil, "", mocks.GenericError
			}
			return []bdb.Transfer{{ID: cursor}}, "next", nil
		}

		transfers := bdb.NewTransfers(fetch)
		got, err := transfers.All(context.Background())

		assert.ErrorIs(t, err, mocks.GenericError)
		assert.Len(t, got, 1)
		assert.False(t, transfers.Next(context.Background()))
		assert.Equal(t, 2, calls)
	})

	t.Run("drops page completed after cancellation", func(t *testing.T) {
		t.Parallel()

		var transfers *bdb.Transfers
		fetch := func(ctx context.Context, _ string) ([]bdb.Transfer, string, error) {
			transfers.Cancel()
			<-ctx.Done()
			return []bdb.Transfer{{ID: "late"}}, "", nil
		}
		transfers = bdb.NewTransfers(fetch)

		assert.False(t, transfers.Next(context.Background()))
		assert.Empty(t, transfers.Page())
		assert.NoError(t, transfers.Err())
	})
}

func TestClient_Transactions(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		for height := uint64(10); height < 15; height++ {
			transaction := mocks.GenericTransaction(height, 0, 100, true)
			transaction.Raw = mocks.GenericBytes
			server.AddTransaction(transaction)
		}
		client := newClient(t, server)

		transactions := client.Transactions(bdb.TransactionQuery{
			BlockchainID: mocks.GenericNetworkID,
			Addresses:    []string{mocks.GenericAddress},
			Begin:        11,
			End:          14,
			IncludeRaw:   true,
			MaxPageSize:  2,
		})

		var pages [][]bdb.Transaction
		for transactions.Next(context.Background()) {
			pages = append(pages, transactions.Page())
		}

		require.NoError(t, transactions.Err())
		require.Len(t, pages, 2)
		assert.Len(t, pages[0], 2)
		assert.Len(t, pages[1], 1)
		assert.Equal(t, mocks.GenericBytes, pages[0][0].Raw)
		require.Len(t, pages[0][0].Transfers, 1)
		assert.Equal(t, mocks.GenericAddress, pages[0][0].Transfers[0].Target)
	})
}

func TestClient_Transaction(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		transaction := mocks.GenericTransaction(mocks.GenericHeight, 3, 100, false)
		server.AddTransaction(transaction)
		client := newClient(t, server)

		got, err := client.Transaction(context.Background(), transaction.ID, false, false)

		require.NoError(t, err)
		assert.Equal(t, transaction.Hash, got.Hash)
		require.NotNil(t, got.BlockHeight)
		assert.Equal(t, mocks.GenericHeight, *got.BlockHeight)
		assert.Len(t, got.Transfers, 1)
	})

	t.Run("handles unknown transaction", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		client := newClient(t, server)

		_, err := client.Transaction(context.Background(), "bitcoin-testnet:unknown", false, false)

		assert.True(t, errors.As(err, &failure.NotFound{}))
	})
}

func TestClient_Blocks(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		for height := uint64(1); height <= 5; height++ {
			server.AddBlock(bdb.Block{
				ID:           fmt.Sprintf("%s:%064x", mocks.GenericNetworkID, height),
				BlockchainID: mocks.GenericNetworkID,
				Hash:         fmt.Sprintf("%064x", height),
				Height:       height,
				Mined:        mocks.GenericTimestamp,
			})
		}
		client := newClient(t, server)

		got, err := client.Blocks(bdb.BlockQuery{
			BlockchainID: mocks.GenericNetworkID,
			Begin:        2,
			End:          5,
			MaxPageSize:  2,
		}).All(context.Background())

		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, uint64(2), got[0].Height)
		assert.Equal(t, uint64(4), got[2].Height)
	})
}

func TestClient_Block(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		transaction := mocks.GenericTransaction(mocks.GenericHeight, 0, 100, true)
		block := bdb.Block{
			ID:           fmt.Sprintf("%s:%064x", mocks.GenericNetworkID, mocks.GenericHeight),
			BlockchainID: mocks.GenericNetworkID,
			Hash:         fmt.Sprintf("%064x", mocks.GenericHeight),
			Height:       mocks.GenericHeight,
			Mined:        mocks.GenericTimestamp,
			Transactions: []bdb.Transaction{transaction},
		}
		server.AddBlock(block)
		client := newClient(t, server)

		got, err := client.Block(context.Background(), block.ID, false, true)

		require.NoError(t, err)
		assert.Equal(t, block.Hash, got.Hash)
		require.Len(t, got.Transactions, 1)
		assert.Equal(t, transaction.ID, got.Transactions[0].ID)
	})
}
