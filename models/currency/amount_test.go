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

func TestAmount(t *testing.T) {
	u := testUnits(t)

	t.Run("stores base units", func(t *testing.T) {
		t.Parallel()

		amount := currency.NewAmountInt64(3, u.bitcoin)

		assert.Equal(t, int64(300_000_000), amount.BaseValue().Int64())
		assert.Equal(t, "3 BTC", amount.String())
	})

	t.Run("parses decimal text", func(t *testing.T) {
		t.Parallel()

		amount, err := currency.ParseAmount("0.015", u.bitcoin)

		require.NoError(t, err)
		assert.Equal(t, int64(1_500_000), amount.BaseValue().Int64())
		assert.Equal(t, "0.015", amount.Decimal().String())
	})

	t.Run("handles text more precise than base unit", func(t *testing.T) {
		t.Parallel()

		_, err := currency.ParseAmount("0.000000001", u.bitcoin)

		var invalid failure.InvalidArgument
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("handles text that is not a number", func(t *testing.T) {
		t.Parallel()

		_, err := currency.ParseAmount("one bitcoin", u.bitcoin)

		var invalid failure.InvalidArgument
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("converts display unit without loss", func(t *testing.T) {
		t.Parallel()

		amount := currency.NewAmountInt64(12_345, u.satoshi)
		converted, err := amount.Convert(u.bitcoin)

		require.NoError(t, err)
		assert.Equal(t, "0.00012345", converted.Decimal().String())
		_, err = converted.Integer(currency.RoundExact)
		assert.Error(t, err)
		whole, err := converted.Integer(currency.RoundDown)
		require.NoError(t, err)
		assert.Zero(t, whole.Int64())
	})

	t.Run("adds and subtracts compatible amounts", func(t *testing.T) {
		t.Parallel()

		a := currency.NewAmountInt64(1, u.bitcoin)
		b := currency.NewAmountInt64(50_000_000, u.satoshi)

		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.Equal(t, "1.5 BTC", sum.String())

		diff, err := b.Sub(a)
		require.NoError(t, err)
		assert.True(t, diff.IsNegative())
		assert.Equal(t, int64(-50_000_000), diff.BaseValue().Int64())

		cmp, err := a.Compare(b)
		require.NoError(t, err)
		assert.Equal(t, 1, cmp)

		assert.True(t, currency.ZeroAmount(u.bit).IsZero())
		assert.Equal(t, int64(-100_000_000), a.Negate().BaseValue().Int64())
	})

	t.Run("handles arithmetic on incompatible amounts", func(t *testing.T) {
		t.Parallel()

		a := currency.NewAmountInt64(1, u.bitcoin)
		b := currency.NewAmountInt64(1, u.ethereum)

		_, err := a.Add(b)
		var incompatible failure.IncompatibleUnits
		assert.True(t, errors.As(err, &incompatible))

		_, err = a.Compare(b)
		assert.True(t, errors.As(err, &incompatible))

		_, err = a.Convert(u.wei)
		assert.True(t, errors.As(err, &incompatible))
	})
}
