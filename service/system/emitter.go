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
	"sync/atomic"
)

// systemKey is the dispatch key of events that concern no network.
const systemKey = "system"

type nopListener struct{}

func (nopListener) HandleSystemEvent(*System, SystemEvent) {
}

func (nopListener) HandleNetworkEvent(*System, *Network, NetworkEvent) {
}

func (nopListener) HandleManagerEvent(*System, *WalletManager, ManagerEvent) {
}

func (nopListener) HandleWalletEvent(*System, *WalletManager, *Wallet, WalletEvent) {
}

func (nopListener) HandleTransferEvent(*System, *WalletManager, *Wallet, *Transfer, TransferEvent) {
}

// keyOf returns the dispatch key of a system event. Events that concern a
// network share its key, so that they are delivered in order with the events
// of the network and of its manager.
func keyOf(event SystemEvent) string {
	switch e := event.(type) {
	case SystemNetworkAdded:
		return e.Network.ID()
	case SystemNetworkRemoved:
		return e.NetworkID
	case SystemManagerAdded:
		return e.Manager.Network().ID()
	default:
		return systemKey
	}
}

func (s *System) emitSystem(event SystemEvent) {
	s.deliver(keyOf(event), func() {
		s.listener.HandleSystemEvent(s, event)
	})
}

func (s *System) emitNetwork(network *Network, event NetworkEvent) {
	s.deliver(network.ID(), func() {
		s.listener.HandleNetworkEvent(s, network, event)
	})
}

func (s *System) emitManager(manager *WalletManager, event ManagerEvent) {
	s.deliver(manager.network.ID(), func() {
		s.listener.HandleManagerEvent(s, manager, event)
	})
}

func (s *System) emitWallet(manager *WalletManager, wallet *Wallet, event WalletEvent) {
	s.deliver(manager.network.ID(), func() {
		s.listener.HandleWalletEvent(s, manager, wallet, event)
	})
}

func (s *System) emitTransfer(manager *WalletManager, wallet *Wallet, transfer *Transfer, event TransferEvent) {
	s.deliver(manager.network.ID(), func() {
		s.listener.HandleTransferEvent(s, manager, wallet, transfer, event)
	})
}

// deliver queues the listener callback on the lane of the key. The number of
// callbacks in progress is tracked so that Close can avoid waiting on lanes
// from within a callback.
func (s *System) deliver(key string, fn func()) {
	s.dispatch.Dispatch(key, func() {
		atomic.AddInt32(s.delivering, 1)
		defer atomic.AddInt32(s.delivering, -1)
		fn()
	})
}
