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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/walletkit/models/currency"
	"github.com/optakt/walletkit/models/failure"
)

func TestNew(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		c, err := currency.New("ethereum-mainnet:0xa0b8", "USD Coin", "usdc", currency.TypeERC20, "0xa0b8")

		require.NoError(t, err)
		assert.Equal(t, "ethereum-mainnet:0xa0b8", c.UIDs())
		assert.Equal(t, "USD Coin", c.Name())
		assert.Equal(t, "usdc", c.Code())
		assert.Equal(t, currency.TypeERC20, c.Type())
		issuer, ok := c.Issuer()
		assert.True(t, ok)
		assert.Equal(t, "0xa0b8", issuer)
	})

	t.Run("native currency has no issuer", func(t *testing.T) {
		t.Parallel()

		c, err := currency.New("bitcoin-mainnet:__native__", "Bitcoin", "btc", currency.TypeNative, "")

		require.NoError(t, err)
		_, ok := c.Issuer()
		assert.False(t, ok)
	})

	t.Run("handles empty uids", func(t *testing.T) {
		t.Parallel()

		_, err := currency.New("", "Bitcoin", "btc", currency.TypeNative, "")

		var invalid failure.InvalidArgument
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "uids", invalid.Argument)
	})

	t.Run("handles empty code", func(t *testing.T) {
		t.Parallel()

		_, err := currency.New("bitcoin-mainnet:__native__", "Bitcoin", "", currency.TypeNative, "")

		var invalid failure.InvalidArgument
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "code", invalid.Argument)
	})

	t.Run("equality only depends on uids", func(t *testing.T) {
		t.Parallel()

		a, err := currency.New("bitcoin-mainnet:__native__", "Bitcoin", "btc", currency.TypeNative, "")
		require.NoError(t, err)
		b, err := currency.New("bitcoin-mainnet:__native__", "Bitcoin (renamed)", "xbt", currency.TypeNative, "")
		require.NoError(t, err)
		c, err := currency.New("bitcoin-testnet:__native__", "Bitcoin", "btc", currency.TypeNative, "")
		require.NoError(t, err)

		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
	})
}
