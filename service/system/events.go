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

package system

import (
	"github.com/optakt/walletkit/models/currency"
)

// Listener receives every event of a system. Calls for a given network, and
// for its manager, wallets and transfers, never overlap and arrive in the
// order in which the events occurred. A listener may call back into the
// system from within any of its methods.
type Listener interface {
	HandleSystemEvent(system *System, event SystemEvent)
	HandleNetworkEvent(system *System, network *Network, event NetworkEvent)
	HandleManagerEvent(system *System, manager *WalletManager, event ManagerEvent)
	HandleWalletEvent(system *System, manager *WalletManager, wallet *Wallet, event WalletEvent)
	HandleTransferEvent(system *System, manager *WalletManager, wallet *Wallet, transfer *Transfer, event TransferEvent)
}

// SystemEvent is an event of the system itself.
type SystemEvent interface {
	systemEvent()
}

type SystemCreated struct{}

type SystemNetworkAdded struct {
	Network *Network
}

type SystemNetworkRemoved struct {
	NetworkID string
}

type SystemManagerAdded struct {
	Manager *WalletManager
}

// SystemDiscoveredNetworks lists the networks found when the system was
// configured without an explicit set of networks.
type SystemDiscoveredNetworks struct {
	NetworkIDs []string
}

type SystemDeleted struct{}

func (SystemCreated) systemEvent()            {}
func (SystemNetworkAdded) systemEvent()       {}
func (SystemNetworkRemoved) systemEvent()     {}
func (SystemManagerAdded) systemEvent()       {}
func (SystemDiscoveredNetworks) systemEvent() {}
func (SystemDeleted) systemEvent()            {}

// NetworkEvent is an event of a network.
type NetworkEvent interface {
	networkEvent()
}

// NetworkCreated is sent once for each network added to the system.
type NetworkCreated struct{}

// NetworkUpdated is sent when the height or the fees of a network change.
type NetworkUpdated struct {
	Height uint64
	Fees   []NetworkFee
}

type NetworkDeleted struct{}

func (NetworkCreated) networkEvent() {}
func (NetworkUpdated) networkEvent() {}
func (NetworkDeleted) networkEvent() {}

// ManagerEvent is an event of a wallet manager.
type ManagerEvent interface {
	managerEvent()
}

type ManagerCreated struct{}

// ManagerChanged is emitted on every state transition of a wallet manager.
// Reason is only set for transitions to the disconnected state.
type ManagerChanged struct {
	Old    ManagerState
	New    ManagerState
	Reason DisconnectReason
}

type ManagerDeleted struct{}

type ManagerWalletAdded struct {
	Wallet *Wallet
}

type ManagerWalletChanged struct {
	Wallet *Wallet
}

type ManagerWalletDeleted struct {
	Wallet *Wallet
}

type ManagerSyncStarted struct{}

// ManagerSyncProgress reports the share of the current sync pass that is
// done, between zero and one. It never decreases within a pass.
type ManagerSyncProgress struct {
	Progress float64
	Height   uint64
}

// ManagerSyncStopped ends a sync pass. Err is set if the reason is an error.
type ManagerSyncStopped struct {
	Reason StopReason
	Err    error
}

// ManagerSyncRecommended is sent when the manager detects that its wallets
// may miss transfers, and a sync pass from the given depth would recover them.
type ManagerSyncRecommended struct {
	Depth SyncDepth
}

// ManagerBlockUpdated is sent when a connected manager learns about a new
// chain tip.
type ManagerBlockUpdated struct {
	Height uint64
}

func (ManagerCreated) managerEvent()         {}
func (ManagerChanged) managerEvent()         {}
func (ManagerDeleted) managerEvent()         {}
func (ManagerWalletAdded) managerEvent()     {}
func (ManagerWalletChanged) managerEvent()   {}
func (ManagerWalletDeleted) managerEvent()   {}
func (ManagerSyncStarted) managerEvent()     {}
func (ManagerSyncProgress) managerEvent()    {}
func (ManagerSyncStopped) managerEvent()     {}
func (ManagerSyncRecommended) managerEvent() {}
func (ManagerBlockUpdated) managerEvent()    {}

// WalletEvent is an event of a wallet.
type WalletEvent interface {
	walletEvent()
}

type WalletCreated struct{}

type WalletBalanceUpdated struct {
	Balance currency.Amount
}

type WalletTransferAdded struct {
	Transfer *Transfer
}

type WalletTransferChanged struct {
	Transfer *Transfer
}

// WalletTransferSubmitted reports the outcome of the submission of a
// transfer created by the wallet.
type WalletTransferSubmitted struct {
	Transfer *Transfer
	Success  bool
}

type WalletDeleted struct{}

func (WalletCreated) walletEvent()           {}
func (WalletBalanceUpdated) walletEvent()    {}
func (WalletTransferAdded) walletEvent()     {}
func (WalletTransferChanged) walletEvent()   {}
func (WalletTransferSubmitted) walletEvent() {}
func (WalletDeleted) walletEvent()           {}

// TransferEvent is an event of a transfer.
type TransferEvent interface {
	transferEvent()
}

type TransferCreated struct {
	State TransferState
}

type TransferChanged struct {
	Old TransferState
	New TransferState
}

type TransferDeleted struct{}

func (TransferCreated) transferEvent() {}
func (TransferChanged) transferEvent() {}
func (TransferDeleted) transferEvent() {}
