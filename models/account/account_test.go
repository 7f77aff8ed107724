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

package account_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/walletkit/models/account"
	"github.com/optakt/walletkit/models/failure"
)

const phrase = "ginger settle marine tissue robot crane night number ramp coast roast critic"

func TestFromPhrase(t *testing.T) {
	timestamp := time.Date(2020, 3, 21, 0, 0, 0, 0, time.UTC)

	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		acc, err := account.FromPhrase(phrase, "5766b9fa-e9aa-4b6d-9b77-b5f1136e5e96", timestamp)

		require.NoError(t, err)
		assert.Equal(t, "5766b9fa-e9aa-4b6d-9b77-b5f1136e5e96", acc.UIDs())
		assert.Equal(t, timestamp, acc.Timestamp())
		assert.Len(t, acc.Fingerprint(), 8)
		seed, ok := acc.Seed()
		assert.True(t, ok)
		assert.Len(t, seed, 64)
	})

	t.Run("whitespace does not change the seed", func(t *testing.T) {
		t.Parallel()

		a, err := account.FromPhrase(phrase, "uids", timestamp)
		require.NoError(t, err)
		b, err := account.FromPhrase("  "+phrase+"\n", "uids", timestamp)
		require.NoError(t, err)

		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("handles empty phrase", func(t *testing.T) {
		t.Parallel()

		_, err := account.FromPhrase("   ", "uids", timestamp)

		var invalid failure.InvalidAccount
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("handles empty uids", func(t *testing.T) {
		t.Parallel()

		_, err := account.FromPhrase(phrase, "", timestamp)

		var invalid failure.InvalidAccount
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("handles missing timestamp", func(t *testing.T) {
		t.Parallel()

		_, err := account.FromPhrase(phrase, "uids", time.Time{})

		var invalid failure.InvalidAccount
		assert.True(t, errors.As(err, &invalid))
	})
}

func TestSerialization(t *testing.T) {
	timestamp := time.Date(2020, 3, 21, 0, 0, 0, 0, time.UTC)
	acc, err := account.FromPhrase(phrase, "5766b9fa-e9aa-4b6d-9b77-b5f1136e5e96", timestamp)
	require.NoError(t, err)

	t.Run("restores public part", func(t *testing.T) {
		t.Parallel()

		restored, err := account.Deserialize(acc.Serialize())

		require.NoError(t, err)
		assert.Equal(t, acc.UIDs(), restored.UIDs())
		assert.Equal(t, acc.Timestamp(), restored.Timestamp())
		assert.Equal(t, acc.Fingerprint(), restored.Fingerprint())
		_, ok := restored.Seed()
		assert.False(t, ok)
	})

	t.Run("handles corrupted text", func(t *testing.T) {
		t.Parallel()

		text := acc.Serialize()
		corrupted := text[:len(text)-1] + "z"
		if corrupted == text {
			corrupted = text[:len(text)-1] + "y"
		}

		_, err := account.Deserialize(corrupted)

		var invalid failure.InvalidAccount
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("handles garbage", func(t *testing.T) {
		t.Parallel()

		_, err := account.Deserialize("0OIl")

		var invalid failure.InvalidAccount
		assert.True(t, errors.As(err, &invalid))
	})
}
