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
	"sync"

	"github.com/optakt/walletkit/service/system"
)

// recorder records every event it receives, in the order of delivery. The
// optional hooks are called after recording, from the delivering goroutine.
type recorder struct {
	mutex  *sync.Mutex
	events []interface{}

	onNetwork func(s *system.System, network *system.Network, event system.NetworkEvent)
	onManager func(s *system.System, manager *system.WalletManager, event system.ManagerEvent)
}

func newRecorder() *recorder {
	r := recorder{
		mutex: &sync.Mutex{},
	}
	return &r
}

func (r *recorder) HandleSystemEvent(_ *system.System, event system.SystemEvent) {
	r.record(event)
}

func (r *recorder) HandleNetworkEvent(s *system.System, network *system.Network, event system.NetworkEvent) {
	r.record(event)
	if r.onNetwork != nil {
		r.onNetwork(s, network, event)
	}
}

func (r *recorder) HandleManagerEvent(s *system.System, manager *system.WalletManager, event system.ManagerEvent) {
	r.record(event)
	if r.onManager != nil {
		r.onManager(s, manager, event)
	}
}

func (r *recorder) HandleWalletEvent(_ *system.System, _ *system.WalletManager, _ *system.Wallet, event system.WalletEvent) {
	r.record(event)
}

func (r *recorder) HandleTransferEvent(_ *system.System, _ *system.WalletManager, _ *system.Wallet, _ *system.Transfer, event system.TransferEvent) {
	r.record(event)
}

func (r *recorder) record(event interface{}) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) all() []interface{} {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]interface{}(nil), r.events...)
}

func (r *recorder) managerEvents() []system.ManagerEvent {
	var events []system.ManagerEvent
	for _, event := range r.all() {
		e, ok := event.(system.ManagerEvent)
		if ok {
			events = append(events, e)
		}
	}
	return events
}

func (r *recorder) count(match func(event interface{}) bool) int {
	count := 0
	for _, event := range r.all() {
		if match(event) {
			count++
		}
	}
	return count
}

// received returns whether an event equal to the given one was received. The
// event must be of a comparable type.
func (r *recorder) received(event interface{}) bool {
	return r.count(func(e interface{}) bool {
		return e == event
	}) > 0
}

// stopped returns whether a sync pass stopped for the given reason.
func (r *recorder) stopped(reason system.StopReason) bool {
	return r.count(func(e interface{}) bool {
		stop, ok := e.(system.ManagerSyncStopped)
		return ok && stop.Reason == reason
	}) > 0
}
