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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/walletkit/api/bdb"
	"github.com/optakt/walletkit/models/failure"
	"github.com/optakt/walletkit/service/system"
	"github.com/optakt/walletkit/testing/mocks"
)

// managed returns the manager of the generic network of a freshly
// configured system.
func managed(t *testing.T, server *mocks.BDBServer, listener *recorder, options ...system.Option) (*system.System, *system.WalletManager) {
	t.Helper()

	s, network := configured(t, server, listener, options...)
	created, err := s.CreateWalletManager(network)
	require.NoError(t, err)
	require.True(t, created)
	manager, ok := s.ManagerBy(network.ID())
	require.True(t, ok)

	return s, manager
}

// synced connects the manager and waits for the first sync pass to complete.
func synced(t *testing.T, manager *system.WalletManager, listener *recorder) {
	t.Helper()

	require.NoError(t, manager.Connect())
	require.Eventually(t, func() bool {
		return listener.stopped(system.StopComplete) && manager.State() == system.ManagerStateConnected
	}, waitFor, tick)
}

// withHistory adds an incoming transfer of 5000 and an outgoing transfer of
// 1000 with a fee of 100, plus a transaction of other addresses.
func withHistory(server *mocks.BDBServer) {
	server.AddTransaction(mocks.GenericTransaction(10, 0, 5000, true))

	outgoing := mocks.GenericTransaction(60, 0, 1000, false)
	outgoing.Transfers = append(outgoing.Transfers, bdb.Transfer{
		ID:            outgoing.ID + ":1",
		BlockchainID:  mocks.GenericNetworkID,
		Index:         1,
		Amount:        bdb.Amount{CurrencyID: mocks.GenericCurrencyID, Value: "100"},
		Source:        mocks.GenericAddress,
		Target:        bdb.FeeAddress,
		TransactionID: outgoing.ID,
	})
	server.AddTransaction(outgoing)

	unrelated := mocks.GenericTransaction(20, 1, 777, true)
	unrelated.Transfers[0].Target = "mv4rnyY3Su5gjcDNzbMLKBQkBicCtHUtFB"
	server.AddTransaction(unrelated)
}

func TestWalletManager_Connect(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		_, manager := managed(t, server, listener, system.WithSyncWindow(50))
		wallet := manager.PrimaryWallet()

		err := manager.Connect()
		require.NoError(t, err)

		want := []system.ManagerEvent{
			system.ManagerCreated{},
			system.ManagerWalletAdded{Wallet: wallet},
			system.ManagerChanged{Old: system.ManagerStateCreated, New: system.ManagerStateConnected},
			system.ManagerChanged{Old: system.ManagerStateConnected, New: system.ManagerStateSyncing},
			system.ManagerSyncStarted{},
			system.ManagerSyncProgress{Progress: 0.5, Height: 49},
			system.ManagerSyncProgress{Progress: 1, Height: 99},
			system.ManagerSyncStopped{Reason: system.StopComplete},
			system.ManagerChanged{Old: system.ManagerStateSyncing, New: system.ManagerStateConnected},
		}
		require.Eventually(t, func() bool {
			return len(listener.managerEvents()) >= len(want)
		}, waitFor, tick)
		assert.Equal(t, want, listener.managerEvents())
		assert.Equal(t, system.ManagerStateConnected, manager.State())
	})

	t.Run("applies transfers of the account", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		withHistory(server)
		listener := newRecorder()
		_, manager := managed(t, server, listener, system.WithSyncWindow(50))

		synced(t, manager, listener)

		wallet := manager.PrimaryWallet()
		assert.Equal(t, int64(3900), wallet.Balance().BaseValue().Int64())
		transfers := wallet.Transfers()
		require.Len(t, transfers, 2)
		assert.Equal(t, system.DirectionReceived, transfers[0].Direction())
		assert.Equal(t, system.TransferStateIncluded, transfers[0].State())
		assert.Equal(t, uint64(10), transfers[0].BlockHeight())
		assert.Equal(t, system.DirectionSent, transfers[1].Direction())
		fee, ok := transfers[1].Fee()
		require.True(t, ok)
		assert.Equal(t, int64(100), fee.BaseValue().Int64())
		assert.Eventually(t, func() bool {
			return listener.count(func(e interface{}) bool {
				_, ok := e.(system.WalletTransferAdded)
				return ok
			}) == 2
		}, waitFor, tick)
	})

	t.Run("resumes from stored height", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		_, manager := managed(t, server, listener, system.WithSyncWindow(50))
		synced(t, manager, listener)
		hits := server.Hits("/transactions")

		err := manager.Sync()
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			return listener.count(func(e interface{}) bool {
				stop, ok := e.(system.ManagerSyncStopped)
				return ok && stop.Reason == system.StopComplete
			}) == 2
		}, waitFor, tick)
		assert.Equal(t, hits, server.Hits("/transactions"))
		assert.Equal(t, 2, listener.count(func(e interface{}) bool {
			return e == system.ManagerSyncProgress{Progress: 1, Height: 99}
		}))
	})

	t.Run("follows new blocks once synced", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		withHistory(server)
		listener := newRecorder()
		_, manager := managed(t, server, listener)
		synced(t, manager, listener)

		server.AddTransaction(mocks.GenericTransaction(101, 0, 2000, true))
		server.SetHeight(mocks.GenericNetworkID, 101)

		require.Eventually(t, func() bool {
			return listener.received(system.ManagerBlockUpdated{Height: 101})
		}, waitFor, tick)
		wallet := manager.PrimaryWallet()
		assert.Equal(t, int64(5900), wallet.Balance().BaseValue().Int64())
		assert.Equal(t, uint64(101), manager.Network().Height())
		first := wallet.Transfers()[0]
		assert.Equal(t, uint64(92), first.Confirmations())
	})

	t.Run("handles failed sync", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		server.Fail("/transactions", 400)
		listener := newRecorder()
		_, manager := managed(t, server, listener)

		err := manager.Connect()
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return listener.stopped(system.StopError) && manager.State() == system.ManagerStateDisconnected
		}, waitFor, tick)
		var stop system.ManagerSyncStopped
		for _, event := range listener.managerEvents() {
			e, ok := event.(system.ManagerSyncStopped)
			if ok {
				stop = e
			}
		}
		var query failure.QueryError
		assert.True(t, errors.As(stop.Err, &query))
		assert.Eventually(t, func() bool {
			return listener.received(system.ManagerChanged{Old: system.ManagerStateSyncing, New: system.ManagerStateDisconnected, Reason: system.DisconnectError})
		}, waitFor, tick)

		err = manager.Connect()
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return listener.stopped(system.StopComplete) && manager.State() == system.ManagerStateConnected
		}, waitFor, tick)
	})

	t.Run("handles unknown chain tip", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		_, manager := managed(t, server, listener)
		blockchain := mocks.GenericBlockchain(99)
		blockchain.BlockHeight = nil
		server.AddBlockchain(blockchain)

		err := manager.Connect()
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			return listener.stopped(system.StopError) && manager.State() == system.ManagerStateDisconnected
		}, waitFor, tick)
	})

	t.Run("handles invalid transitions", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		_, manager := managed(t, server, newRecorder())

		var invalid failure.InvalidTransition
		assert.True(t, errors.As(manager.Sync(), &invalid))
		assert.True(t, errors.As(manager.Disconnect(), &invalid))
		require.NoError(t, manager.Connect())
		assert.True(t, errors.As(manager.Connect(), &invalid))
	})
}

func TestWalletManager_SyncToDepth(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		withHistory(server)
		listener := newRecorder()
		_, manager := managed(t, server, listener, system.WithSyncWindow(50))
		synced(t, manager, listener)
		hits := server.Hits("/transactions")

		err := manager.SyncToDepth(system.SyncFromCreation)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return listener.count(func(e interface{}) bool {
				return e == system.ManagerSyncStopped{Reason: system.StopComplete}
			}) == 2
		}, waitFor, tick)
		assert.Equal(t, hits+2, server.Hits("/transactions"))
		wallet := manager.PrimaryWallet()
		assert.Len(t, wallet.Transfers(), 2)
		assert.Equal(t, int64(3900), wallet.Balance().BaseValue().Int64())
	})

	t.Run("rescans from last confirmed send", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		withHistory(server)
		listener := newRecorder()
		_, manager := managed(t, server, listener, system.WithSyncWindow(50))
		synced(t, manager, listener)
		hits := server.Hits("/transactions")

		err := manager.SyncToDepth(system.SyncFromLastConfirmedSend)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return listener.count(func(e interface{}) bool {
				return e == system.ManagerSyncStopped{Reason: system.StopComplete}
			}) == 2
		}, waitFor, tick)
		assert.Equal(t, hits+1, server.Hits("/transactions"))
		assert.True(t, listener.received(system.ManagerSyncProgress{Progress: 1, Height: 99}))
	})

	t.Run("rescans nothing from last trusted block", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		withHistory(server)
		listener := newRecorder()
		_, manager := managed(t, server, listener, system.WithSyncWindow(50))
		synced(t, manager, listener)
		hits := server.Hits("/transactions")

		err := manager.SyncToDepth(system.SyncFromLastTrustedBlock)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return listener.count(func(e interface{}) bool {
				return e == system.ManagerSyncStopped{Reason: system.StopComplete}
			}) == 2
		}, waitFor, tick)
		assert.Equal(t, hits, server.Hits("/transactions"))
	})

	t.Run("recommends sync when a send fails", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		withHistory(server)
		listener := newRecorder()
		_, manager := managed(t, server, listener, system.WithSyncWindow(50))
		synced(t, manager, listener)

		outgoing := mocks.GenericTransaction(60, 0, 1000, false)
		outgoing.Status = bdb.StatusFailed
		server.AddTransaction(outgoing)

		err := manager.SyncToDepth(system.SyncFromLastConfirmedSend)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			return listener.received(system.ManagerSyncRecommended{Depth: system.SyncFromLastConfirmedSend})
		}, waitFor, tick)
		sent, ok := manager.PrimaryWallet().TransferByID(outgoing.Transfers[0].ID)
		require.True(t, ok)
		assert.Equal(t, system.TransferStateFailed, sent.State())
	})

	t.Run("handles invalid depth", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		_, manager := managed(t, server, listener)
		synced(t, manager, listener)

		err := manager.SyncToDepth(system.SyncDepth(0))

		var invalid failure.InvalidArgument
		assert.True(t, errors.As(err, &invalid))
		assert.Equal(t, system.ManagerStateConnected, manager.State())
	})

	t.Run("handles disconnected manager", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		_, manager := managed(t, server, newRecorder())

		err := manager.SyncToDepth(system.SyncFromCreation)

		var invalid failure.InvalidTransition
		assert.True(t, errors.As(err, &invalid))
	})
}

func TestWalletManager_Disconnect(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		_, manager := managed(t, server, listener)
		synced(t, manager, listener)

		err := manager.Disconnect()

		require.NoError(t, err)
		assert.Equal(t, system.ManagerStateDisconnected, manager.State())
		assert.Eventually(t, func() bool {
			return listener.received(system.ManagerChanged{Old: system.ManagerStateConnected, New: system.ManagerStateDisconnected, Reason: system.DisconnectRequested})
		}, waitFor, tick)
		assert.False(t, listener.stopped(system.StopRequested))
	})

	t.Run("stops sync in progress", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		s, manager := managed(t, server, listener, system.WithSyncWindow(1))
		require.NoError(t, manager.Connect())

		err := manager.Disconnect()
		require.NoError(t, err)
		require.NoError(t, s.Close(context.Background()))

		assert.Eventually(t, func() bool {
			return listener.received(system.SystemDeleted{})
		}, waitFor, tick)
		assert.True(t, listener.stopped(system.StopRequested))
		assert.False(t, listener.stopped(system.StopComplete))
		assert.True(t, listener.received(system.ManagerChanged{Old: system.ManagerStateSyncing, New: system.ManagerStateDisconnected, Reason: system.DisconnectRequested}))
	})
}

func TestWalletManager_Delete(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		listener := newRecorder()
		s, manager := managed(t, server, listener)
		synced(t, manager, listener)

		err := manager.Delete()
		require.NoError(t, err)

		assert.Equal(t, system.ManagerStateDeleted, manager.State())
		_, ok := s.ManagerBy(mocks.GenericNetworkID)
		assert.False(t, ok)
		var invalid failure.InvalidTransition
		assert.True(t, errors.As(manager.Connect(), &invalid))
		assert.True(t, errors.As(manager.Delete(), &invalid))
		assert.Eventually(t, func() bool {
			return listener.received(system.WalletDeleted{}) && listener.received(system.ManagerDeleted{})
		}, waitFor, tick)

		created, err := s.CreateWalletManager(manager.Network())
		require.NoError(t, err)
		assert.True(t, created)
	})
}

func TestWalletManager_Restore(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		t.Parallel()

		server := newServer(t, 99)
		withHistory(server)
		path := filepath.Join(t.TempDir(), "state")
		listener := newRecorder()

		first, err := system.New(mocks.NoopLogger, newAccount(t), mocks.BaselineCapability(t), listener, false, path, newClient(t, server))
		require.NoError(t, err)
		require.NoError(t, first.Configure(context.Background(), []string{mocks.GenericNetworkID}))
		network, ok := first.NetworkBy(mocks.GenericNetworkID)
		require.True(t, ok)
		_, err = first.CreateWalletManager(network)
		require.NoError(t, err)
		manager, ok := first.ManagerBy(mocks.GenericNetworkID)
		require.True(t, ok)
		synced(t, manager, listener)
		require.NoError(t, first.Close(context.Background()))

		second, err := system.New(mocks.NoopLogger, newAccount(t), mocks.BaselineCapability(t), nil, false, path, newClient(t, server))
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = second.Close(context.Background())
		})
		require.NoError(t, second.Configure(context.Background(), []string{mocks.GenericNetworkID}))

		restored, ok := second.ManagerBy(mocks.GenericNetworkID)
		require.True(t, ok)
		assert.Equal(t, system.ManagerStateCreated, restored.State())
		wallet := restored.PrimaryWallet()
		assert.Equal(t, int64(3900), wallet.Balance().BaseValue().Int64())
		assert.Len(t, wallet.Transfers(), 2)
	})
}
