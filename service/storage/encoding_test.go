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

package storage_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optakt/walletkit/service/storage"
)

func TestEncodeKey(t *testing.T) {
	t.Run("prefix only", func(t *testing.T) {
		t.Parallel()

		key := storage.EncodeKey(storage.PrefixVersion)

		assert.Equal(t, []byte{storage.PrefixVersion}, key)
	})

	t.Run("fixed width segments", func(t *testing.T) {
		t.Parallel()

		key := storage.EncodeKey(storage.PrefixTransfer, "bitcoin-mainnet", "a-very-long-transfer-identifier", uint64(7))

		assert.Len(t, key, 1+8+8+8)
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 7}, key[17:])
	})

	t.Run("leading segments form a prefix", func(t *testing.T) {
		t.Parallel()

		network := storage.EncodeKey(storage.PrefixTransfer, "bitcoin-mainnet")
		transfer := storage.EncodeKey(storage.PrefixTransfer, "bitcoin-mainnet", "transfer-1")
		other := storage.EncodeKey(storage.PrefixTransfer, "bitcoin-testnet", "transfer-1")

		assert.True(t, bytes.HasPrefix(transfer, network))
		assert.False(t, bytes.HasPrefix(other, network))
	})

	t.Run("unknown segment type", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			storage.EncodeKey(storage.PrefixHeight, 3.14)
		})
	})
}
