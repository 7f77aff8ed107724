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

package system_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/walletkit/codec/zbor"
	"github.com/optakt/walletkit/models/account"
	"github.com/optakt/walletkit/models/currency"
	"github.com/optakt/walletkit/models/failure"
	"github.com/optakt/walletkit/service/system"
	"github.com/optakt/walletkit/testing/mocks"
)

// funded returns a synced manager whose primary wallet holds 5000 satoshis,
// and the satoshi unit.
func funded(t *testing.T, server *mocks.BDBServer, listener *recorder) (*system.WalletManager, *currency.Unit) {
	t.Helper()

	server.AddTransaction(mocks.GenericTransaction(10, 0, 5000, true))
	_, manager := managed(t, server, listener)
	synced(t, manager, listener)

	network := manager.Network()
	sat, ok := network.BaseUnit(network.Currency())
	require.True(t, ok)

	return manager, sat
}

func TestWalletManager_CreateTransfer(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		manager, sat := funded(t, server, listener)
		wallet := manager.PrimaryWallet()

		transfer, err := manager.CreateTransfer(wallet, mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), currency.NewAmountInt64(100, sat))

		require.NoError(t, err)
		assert.Equal(t, system.TransferStateCreated, transfer.State())
		assert.Equal(t, system.DirectionSent, transfer.Direction())
		assert.Equal(t, mocks.GenericAddress, transfer.Source())
		assert.Equal(t, mocks.GenericCounterparty, transfer.Target())
		assert.NotEmpty(t, transfer.ID())
		assert.Equal(t, int64(3900), wallet.Balance().BaseValue().Int64())
		found, ok := wallet.TransferByID(transfer.ID())
		require.True(t, ok)
		assert.Same(t, transfer, found)
		assert.Eventually(t, func() bool {
			return listener.received(system.WalletTransferAdded{Transfer: transfer})
		}, waitFor, tick)
	})

	t.Run("recovers funds sent to own address", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		manager, sat := funded(t, server, newRecorder())

		transfer, err := manager.CreateTransfer(manager.PrimaryWallet(), mocks.GenericAddress, currency.NewAmountInt64(1000, sat), currency.NewAmountInt64(100, sat))

		require.NoError(t, err)
		assert.Equal(t, system.DirectionRecovered, transfer.Direction())
		assert.Equal(t, int64(4900), manager.PrimaryWallet().Balance().BaseValue().Int64())
	})

	t.Run("handles insufficient balance", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		manager, sat := funded(t, server, newRecorder())

		_, err := manager.CreateTransfer(manager.PrimaryWallet(), mocks.GenericCounterparty, currency.NewAmountInt64(4950, sat), currency.NewAmountInt64(100, sat))

		var invalid failure.InvalidArgument
		assert.True(t, errors.As(err, &invalid))
		assert.Len(t, manager.PrimaryWallet().Transfers(), 1)
	})

	t.Run("handles invalid arguments", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		manager, sat := funded(t, server, newRecorder())
		wallet := manager.PrimaryWallet()
		fee := currency.NewAmountInt64(100, sat)

		var invalid failure.InvalidArgument
		_, err := manager.CreateTransfer(wallet, "", currency.NewAmountInt64(1000, sat), fee)
		assert.True(t, errors.As(err, &invalid))
		_, err = manager.CreateTransfer(wallet, mocks.GenericCounterparty, currency.ZeroAmount(sat), fee)
		assert.True(t, errors.As(err, &invalid))
		_, err = manager.CreateTransfer(wallet, mocks.GenericCounterparty, currency.NewAmountInt64(-5, sat), fee)
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("handles incompatible units", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		manager, sat := funded(t, server, newRecorder())
		other, err := currency.New("ethereum-ropsten:__native__", "Ether", "eth", currency.TypeNative, "")
		require.NoError(t, err)
		wei, err := currency.NewBaseUnit(other, "ethereum-ropsten:__native__:wei", "Wei", "wei")
		require.NoError(t, err)

		_, err = manager.CreateTransfer(manager.PrimaryWallet(), mocks.GenericCounterparty, currency.NewAmountInt64(1000, wei), currency.NewAmountInt64(100, sat))

		var incompatible failure.IncompatibleUnits
		assert.True(t, errors.As(err, &incompatible))
	})
	t.Run("handles storage failure", func(t *testing.T) {
		t.Parallel()

		failing := new(int32)
		inner := zbor.NewCodec()
		codec := mocks.BaselineCodec(t)
		codec.MarshalFunc = func(value interface{}) ([]byte, error) {
			if atomic.LoadInt32(failing) == 1 {
				return nil, mocks.GenericError
			}
			return inner.Marshal(value)
		}
		codec.UnmarshalFunc = inner.Unmarshal

		server := newServer(t, 99)
		server.AddTransaction(mocks.GenericTransaction(10, 0, 5000, true))
		listener := newRecorder()
		_, manager := managed(t, server, listener, system.WithCodec(codec))
		synced(t, manager, listener)
		network := manager.Network()
		sat, _ := network.BaseUnit(network.Currency())
		wallet := manager.PrimaryWallet()
		added := func(e interface{}) bool {
			_, ok := e.(system.WalletTransferAdded)
			return ok
		}
		require.Eventually(t, func() bool {
			return listener.count(added) == 1
		}, waitFor, tick)

		atomic.StoreInt32(failing, 1)
		_, err := manager.CreateTransfer(wallet, mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), currency.NewAmountInt64(100, sat))

		assert.Error(t, err)
		assert.Len(t, wallet.Transfers(), 1)
		assert.Equal(t, int64(5000), wallet.Balance().BaseValue().Int64())
		assert.Never(t, func() bool {
			return listener.count(added) > 1
		}, 100*time.Millisecond, tick)
	})
}

func TestWalletManager_SubmitTransfer(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		manager, sat := funded(t, server, listener)
		wallet := manager.PrimaryWallet()
		transfer, err := manager.CreateTransfer(wallet, mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), currency.NewAmountInt64(100, sat))
		require.NoError(t, err)

		err = manager.SubmitTransfer(context.Background(), wallet, transfer)

		require.NoError(t, err)
		assert.Equal(t, system.TransferStateSubmitted, transfer.State())
		assert.Equal(t, mocks.GenericHash, transfer.Hash())
		submitted := server.Submitted()
		require.Len(t, submitted, 1)
		assert.Equal(t, mocks.GenericNetworkID, submitted[0].BlockchainID)
		assert.Equal(t, mocks.GenericHash, submitted[0].Hash)
		assert.NotEmpty(t, submitted[0].Data)
		assert.Eventually(t, func() bool {
			return listener.received(system.TransferChanged{Old: system.TransferStateCreated, New: system.TransferStateSigning}) &&
				listener.received(system.TransferChanged{Old: system.TransferStateSigning, New: system.TransferStateSubmitted}) &&
				listener.received(system.WalletTransferSubmitted{Transfer: transfer, Success: true})
		}, waitFor, tick)
	})

	t.Run("includes submitted transfer once confirmed", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		manager, sat := funded(t, server, listener)
		wallet := manager.PrimaryWallet()
		transfer, err := manager.CreateTransfer(wallet, mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), currency.NewAmountInt64(100, sat))
		require.NoError(t, err)
		require.NoError(t, manager.SubmitTransfer(context.Background(), wallet, transfer))

		confirmed := mocks.GenericTransaction(100, 0, 1000, false)
		confirmed.Hash = mocks.GenericHash
		server.AddTransaction(confirmed)
		server.SetHeight(mocks.GenericNetworkID, 100)

		assert.Eventually(t, func() bool {
			return transfer.State() == system.TransferStateIncluded
		}, waitFor, tick)
		assert.Equal(t, uint64(100), transfer.BlockHeight())
		assert.Len(t, wallet.Transfers(), 2)
		assert.Equal(t, int64(3900), wallet.Balance().BaseValue().Int64())
	})

	t.Run("handles rejected transaction", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		server.SetSubmitStatus(http.StatusBadRequest)
		listener := newRecorder()
		manager, sat := funded(t, server, listener)
		wallet := manager.PrimaryWallet()
		transfer, err := manager.CreateTransfer(wallet, mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), currency.NewAmountInt64(100, sat))
		require.NoError(t, err)

		err = manager.SubmitTransfer(context.Background(), wallet, transfer)

		var submission failure.SubmissionError
		require.True(t, errors.As(err, &submission))
		assert.Equal(t, http.StatusBadRequest, submission.Code)
		assert.Equal(t, system.TransferStateFailed, transfer.State())
		assert.Equal(t, int64(5000), wallet.Balance().BaseValue().Int64())
		assert.Eventually(t, func() bool {
			return listener.received(system.WalletTransferSubmitted{Transfer: transfer, Success: false})
		}, waitFor, tick)
	})

	t.Run("handles signing failure", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		server.AddTransaction(mocks.GenericTransaction(10, 0, 5000, true))
		listener := newRecorder()
		s := newSystemWith(t, server, account.NewWatchOnly(map[string]string{mocks.GenericNetworkID: mocks.GenericAddress}), listener)
		require.NoError(t, s.Configure(context.Background(), []string{mocks.GenericNetworkID}))
		network, _ := s.NetworkBy(mocks.GenericNetworkID)
		_, err := s.CreateWalletManager(network)
		require.NoError(t, err)
		manager, _ := s.ManagerBy(network.ID())
		synced(t, manager, listener)
		sat, _ := network.BaseUnit(network.Currency())
		wallet := manager.PrimaryWallet()
		transfer, err := manager.CreateTransfer(wallet, mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), currency.NewAmountInt64(100, sat))
		require.NoError(t, err)

		err = manager.SubmitTransfer(context.Background(), wallet, transfer)

		assert.ErrorIs(t, err, account.ErrWatchOnly)
		assert.Equal(t, system.TransferStateFailed, transfer.State())
		assert.Empty(t, server.Submitted())
	})

	t.Run("handles transfer submitted twice", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		manager, sat := funded(t, server, newRecorder())
		wallet := manager.PrimaryWallet()
		transfer, err := manager.CreateTransfer(wallet, mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), currency.NewAmountInt64(100, sat))
		require.NoError(t, err)
		require.NoError(t, manager.SubmitTransfer(context.Background(), wallet, transfer))

		err = manager.SubmitTransfer(context.Background(), wallet, transfer)

		var invalid failure.InvalidTransition
		assert.True(t, errors.As(err, &invalid))
		assert.Len(t, server.Submitted(), 1)
	})

	t.Run("handles transfer of another wallet", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		manager, _ := funded(t, server, newRecorder())
		other, sat := funded(t, newServer(t, 99), newRecorder())
		transfer, err := other.CreateTransfer(other.PrimaryWallet(), mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), currency.NewAmountInt64(100, sat))
		require.NoError(t, err)

		err = manager.SubmitTransfer(context.Background(), manager.PrimaryWallet(), transfer)

		var invalid failure.InvalidArgument
		assert.True(t, errors.As(err, &invalid))
		assert.Equal(t, system.TransferStateCreated, transfer.State())
		assert.Empty(t, server.Submitted())
	})
}

func TestWalletManager_DeleteTransfer(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		manager, sat := funded(t, server, listener)
		wallet := manager.PrimaryWallet()
		transfer, err := manager.CreateTransfer(wallet, mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), currency.NewAmountInt64(100, sat))
		require.NoError(t, err)

		err = manager.DeleteTransfer(wallet, transfer)

		require.NoError(t, err)
		assert.Equal(t, system.TransferStateDeleted, transfer.State())
		assert.Equal(t, int64(5000), wallet.Balance().BaseValue().Int64())
		var invalid failure.InvalidTransition
		assert.True(t, errors.As(manager.DeleteTransfer(wallet, transfer), &invalid))
		assert.Eventually(t, func() bool {
			return listener.received(system.TransferDeleted{})
		}, waitFor, tick)
	})
}

func TestWalletManager_EstimateFee(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		crypto := mocks.BaselineCapability(t)
		crypto.SignFunc = func(*account.Account, string, []byte) ([]byte, string, error) {
			return mocks.GenericBytes, mocks.GenericHash, nil
		}
		s := newSystemWith(t, server, crypto, nil)
		require.NoError(t, s.Configure(context.Background(), []string{mocks.GenericNetworkID}))
		network, _ := s.NetworkBy(mocks.GenericNetworkID)
		_, err := s.CreateWalletManager(network)
		require.NoError(t, err)
		manager, _ := s.ManagerBy(network.ID())
		sat, _ := network.BaseUnit(network.Currency())
		wallet := manager.PrimaryWallet()

		fee, err := manager.EstimateFee(context.Background(), wallet, mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), network.Fees()[0])

		require.NoError(t, err)
		assert.Equal(t, int64(len(mocks.GenericBytes)*30), fee.BaseValue().Int64())
		assert.Same(t, wallet.FeeUnit(), fee.Unit())
		assert.Empty(t, server.Submitted())
	})

	t.Run("handles incompatible fee tier", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		_, manager := managed(t, server, newRecorder())
		other, err := currency.New("ethereum-ropsten:__native__", "Ether", "eth", currency.TypeNative, "")
		require.NoError(t, err)
		wei, err := currency.NewBaseUnit(other, "ethereum-ropsten:__native__:wei", "Wei", "wei")
		require.NoError(t, err)
		tier := system.NetworkFee{Tier: "1m", PricePerCostFactor: currency.NewAmountInt64(1, wei)}
		network := manager.Network()
		sat, _ := network.BaseUnit(network.Currency())

		_, err = manager.EstimateFee(context.Background(), manager.PrimaryWallet(), mocks.GenericCounterparty, currency.NewAmountInt64(1000, sat), tier)

		var incompatible failure.IncompatibleUnits
		assert.True(t, errors.As(err, &incompatible))
	})

	t.Run("handles incompatible amount", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		_, manager := managed(t, server, newRecorder())
		other, err := currency.New("ethereum-ropsten:__native__", "Ether", "eth", currency.TypeNative, "")
		require.NoError(t, err)
		wei, err := currency.NewBaseUnit(other, "ethereum-ropsten:__native__:wei", "Wei", "wei")
		require.NoError(t, err)
		network := manager.Network()
		sat, _ := network.BaseUnit(network.Currency())
		tier := system.NetworkFee{Tier: "1m", PricePerCostFactor: currency.NewAmountInt64(1, sat)}

		_, err = manager.EstimateFee(context.Background(), manager.PrimaryWallet(), mocks.GenericCounterparty, currency.NewAmountInt64(1000, wei), tier)

		var incompatible failure.IncompatibleUnits
		assert.True(t, errors.As(err, &incompatible))
		assert.Zero(t, server.Hits("/transactions"))
	})
}
