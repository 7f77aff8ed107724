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
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/walletkit/api/bdb"
	"github.com/optakt/walletkit/models/failure"
	"github.com/optakt/walletkit/testing/mocks"
)

func TestClient_CreateTransaction(t *testing.T) {
	hash := "9b1a2d4f"

	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		rec := &recorder{}
		client := newClient(t, server, bdb.WithRecorder(rec))

		err := client.CreateTransaction(context.Background(), mocks.GenericNetworkID, hash, mocks.GenericBytes)

		require.NoError(t, err)
		submitted := server.Submitted()
		require.Len(t, submitted, 1)
		assert.Equal(t, mocks.GenericNetworkID, submitted[0].BlockchainID)
		assert.Equal(t, hash, submitted[0].Hash)
		assert.Equal(t, mocks.GenericBytes, submitted[0].Data)
		assert.Equal(t, []string{bdb.OutcomeSuccess}, rec.outcomes("create_transaction"))
	})

	t.Run("handles rejected transaction", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		server.SetSubmitStatus(http.StatusBadRequest)
		client := newClient(t, server)

		err := client.CreateTransaction(context.Background(), mocks.GenericNetworkID, hash, mocks.GenericBytes)

		var submission failure.SubmissionError
		require.True(t, errors.As(err, &submission))
		assert.Equal(t, http.StatusBadRequest, submission.Code)
		assert.Equal(t, "transaction rejected", submission.Message)
		assert.Empty(t, server.Submitted())
	})

	t.Run("does not retry submission", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		server.Fail("/transactions", http.StatusServiceUnavailable)
		client := newClient(t, server)

		err := client.CreateTransaction(context.Background(), mocks.GenericNetworkID, hash, mocks.GenericBytes)

		var submission failure.SubmissionError
		require.True(t, errors.As(err, &submission))
		assert.Equal(t, http.StatusServiceUnavailable, submission.Code)
		assert.Equal(t, 1, server.Hits("/transactions"))
		assert.Empty(t, server.Submitted())
	})
}

func TestClient_EstimateTransactionFee(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		client := newClient(t, server)

		got, err := client.EstimateTransactionFee(context.Background(), mocks.GenericNetworkID, "hash", mocks.GenericBytes)

		require.NoError(t, err)
		assert.Equal(t, uint64(len(mocks.GenericBytes)), got.CostUnits)
		assert.Empty(t, server.Submitted())
	})

	t.Run("handles rejected estimate", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		server.Fail("/transactions", http.StatusUnprocessableEntity)
		client := newClient(t, server)

		_, err := client.EstimateTransactionFee(context.Background(), mocks.GenericNetworkID, "hash", mocks.GenericBytes)

		var query failure.QueryError
		require.True(t, errors.As(err, &query))
		assert.Equal(t, http.StatusUnprocessableEntity, query.Status)
	})
}

func TestClient_Subscriptions(t *testing.T) {
	subscription := bdb.Subscription{
		DeviceID: "4b2f2c11-0f6b-4d0e-9a43-cb0f3c7d1f01",
		Endpoint: bdb.Endpoint{Environment: "sandbox", Kind: "webhook", Value: "https://example.com/hook"},
		Currencies: []bdb.SubscriptionCurrency{
			{
				CurrencyID: mocks.GenericCurrencyID,
				Addresses:  []string{mocks.GenericAddress},
				Events:     []bdb.SubscriptionEvent{{Name: "submitted"}, {Name: "confirmed", Confirmations: []uint32{1, 6}}},
			},
		},
	}

	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		client := newClient(t, server)
		ctx := context.Background()

		created, err := client.CreateSubscription(ctx, subscription)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, subscription.Currencies, created.Currencies)

		got, err := client.Subscription(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)

		list, err := client.Subscriptions(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		created.Endpoint.Value = "https://example.com/other"
		updated, err := client.UpdateSubscription(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/other", updated.Endpoint.Value)

		err = client.DeleteSubscription(ctx, created.ID)
		require.NoError(t, err)

		_, err = client.Subscription(ctx, created.ID)
		var notFound failure.NotFound
		assert.True(t, errors.As(err, &notFound))
	})

	t.Run("handles invalid subscription", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		client := newClient(t, server)

		_, err := client.CreateSubscription(context.Background(), bdb.Subscription{})

		assert.Error(t, err)
		assert.Zero(t, server.Hits("/subscriptions"))
	})

	t.Run("handles unknown subscription", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		client := newClient(t, server)

		err := client.DeleteSubscription(context.Background(), "subscription-9")

		var notFound failure.NotFound
		assert.True(t, errors.As(err, &notFound))
	})
}
