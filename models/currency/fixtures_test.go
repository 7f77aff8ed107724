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

package currency_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/optakt/walletkit/models/currency"
)

type units struct {
	btc      *currency.Currency
	satoshi  *currency.Unit
	bit      *currency.Unit
	bitcoin  *currency.Unit
	eth      *currency.Currency
	wei      *currency.Unit
	gwei     *currency.Unit
	ethereum *currency.Unit
}

func testUnits(t *testing.T) units {
	t.Helper()

	btc, err := currency.New("bitcoin-mainnet:__native__", "Bitcoin", "btc", currency.TypeNative, "")
	require.NoError(t, err)
	satoshi, err := currency.NewBaseUnit(btc, "bitcoin-mainnet:__native__:sat", "Satoshi", "SAT")
	require.NoError(t, err)
	bit, err := currency.NewUnit(btc, "bitcoin-mainnet:__native__:bit", "Bit", "bit", satoshi, 2)
	require.NoError(t, err)
	bitcoin, err := currency.NewUnit(btc, "bitcoin-mainnet:__native__:btc", "Bitcoin", "BTC", satoshi, 8)
	require.NoError(t, err)

	eth, err := currency.New("ethereum-mainnet:__native__", "Ethereum", "eth", currency.TypeNative, "")
	require.NoError(t, err)
	wei, err := currency.NewBaseUnit(eth, "ethereum-mainnet:__native__:wei", "Wei", "WEI")
	require.NoError(t, err)
	gwei, err := currency.NewUnit(eth, "ethereum-mainnet:__native__:gwei", "Gwei", "GWEI", wei, 9)
	require.NoError(t, err)
	ethereum, err := currency.NewUnit(eth, "ethereum-mainnet:__native__:eth", "Ether", "ETH", wei, 18)
	require.NoError(t, err)

	u := units{
		btc:      btc,
		satoshi:  satoshi,
		bit:      bit,
		bitcoin:  bitcoin,
		eth:      eth,
		wei:      wei,
		gwei:     gwei,
		ethereum: ethereum,
	}

	return u
}
