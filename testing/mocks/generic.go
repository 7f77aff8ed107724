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

package mocks

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/optakt/walletkit/api/bdb"
)

// Global variables that can be used for testing. They are non-nil valid values for the types commonly needed
// to test wallet components.
var (
	NoopLogger = zerolog.New(io.Discard)

	GenericError = errors.New("dummy error")

	GenericHeight = uint64(42)

	GenericBytes = []byte(`test`)

	GenericNetworkID = "bitcoin-testnet"

	GenericCurrencyID = "bitcoin-testnet:__native__"

	GenericAddress = "mpA3xtTBuq1Q3wHuGMaMnGeWmTfbm4zXvG"

	GenericCounterparty = "n2eMqTT929pb1RDNuqEnxdaLau1rxy3efi"

	GenericHash = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"

	GenericTimestamp = time.Date(2020, 3, 21, 12, 0, 0, 0, time.UTC)
)

// GenericBlockchain returns the test blockchain at the given tip.
func GenericBlockchain(height uint64) bdb.Blockchain {
	return bdb.Blockchain{
		ID:          GenericNetworkID,
		Name:        "Bitcoin Testnet",
		Network:     "testnet",
		IsMainnet:   false,
		CurrencyID:  GenericCurrencyID,
		BlockHeight: &height,
		FeeEstimates: []bdb.BlockchainFee{
			{
				Fee:              bdb.Amount{CurrencyID: GenericCurrencyID, Value: "30"},
				Tier:             "10m",
				ConfirmationTime: 600_000,
			},
			{
				Fee:              bdb.Amount{CurrencyID: GenericCurrencyID, Value: "10"},
				Tier:             "60m",
				ConfirmationTime: 3_600_000,
			},
		},
		ConfirmationsUntilFinal: 6,
	}
}

// GenericCurrency returns the native currency of the test blockchain.
func GenericCurrency() bdb.Currency {
	return bdb.Currency{
		ID:           GenericCurrencyID,
		Name:         "Bitcoin",
		Code:         "btc",
		Type:         "native",
		BlockchainID: GenericNetworkID,
		Verified:     true,
		Denominations: []bdb.Denomination{
			{Name: "Satoshi", Code: "sat", Decimals: 0},
			{Name: "Bitcoin", Code: "btc", Decimals: 8},
		},
	}
}

// GenericTransaction returns a confirmed transaction at the given height
// that moves the given amount of satoshis between the generic addresses.
// Incoming transactions pay the generic address.
func GenericTransaction(height uint64, index int, amount uint64, incoming bool) bdb.Transaction {
	source, target := GenericAddress, GenericCounterparty
	if incoming {
		source, target = GenericCounterparty, GenericAddress
	}

	hash := fmt.Sprintf("%064x", uint64(height)<<16|uint64(index))
	id := fmt.Sprintf("%s:%s", GenericNetworkID, hash)
	blockHash := fmt.Sprintf("%064x", height)
	confirmations := uint64(1)
	timestamp := GenericTimestamp.Add(time.Duration(height) * 10 * time.Minute)
	position := uint64(index)

	return bdb.Transaction{
		ID:            id,
		BlockchainID:  GenericNetworkID,
		Hash:          hash,
		Identifier:    hash,
		Status:        bdb.StatusConfirmed,
		Size:          225,
		Fee:           &bdb.Amount{CurrencyID: GenericCurrencyID, Value: "100"},
		BlockHash:     &blockHash,
		BlockHeight:   &height,
		Index:         &position,
		Confirmations: &confirmations,
		Timestamp:     &timestamp,
		FirstSeen:     &timestamp,
		Transfers: []bdb.Transfer{
			{
				ID:            fmt.Sprintf("%s:0", id),
				BlockchainID:  GenericNetworkID,
				Index:         0,
				Amount:        bdb.Amount{CurrencyID: GenericCurrencyID, Value: fmt.Sprint(amount)},
				Source:        source,
				Target:        target,
				TransactionID: id,
			},
		},
	}
}
