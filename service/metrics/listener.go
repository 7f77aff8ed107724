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

package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/optakt/walletkit/service/system"
)

// Listener counts the events of a system and tracks the progress of its
// wallet managers, before handing every event to the wrapped listener.
type Listener struct {
	next     system.Listener
	events   *prometheus.CounterVec
	progress *prometheus.GaugeVec
	height   *prometheus.GaugeVec
	stops    *prometheus.CounterVec
}

func NewListener(next system.Listener, reg prometheus.Registerer) *Listener {

	eventsOpts := prometheus.CounterOpts{
		Name:      "events_total",
		Namespace: namespace,
		Help:      "number of delivered events",
	}
	events := promauto.With(reg).NewCounterVec(eventsOpts, []string{"entity", "event"})

	progressOpts := prometheus.GaugeOpts{
		Name:      "sync_progress_ratio",
		Namespace: namespace,
		Help:      "progress of the current sync pass",
	}
	progress := promauto.With(reg).NewGaugeVec(progressOpts, []string{"network"})

	heightOpts := prometheus.GaugeOpts{
		Name:      "synced_height",
		Namespace: namespace,
		Help:      "latest height synced by the wallet manager",
	}
	height := promauto.With(reg).NewGaugeVec(heightOpts, []string{"network"})

	stopsOpts := prometheus.CounterOpts{
		Name:      "sync_stops_total",
		Namespace: namespace,
		Help:      "number of sync passes that stopped, by reason",
	}
	stops := promauto.With(reg).NewCounterVec(stopsOpts, []string{"network", "reason"})

	l := Listener{
		next:     next,
		events:   events,
		progress: progress,
		height:   height,
		stops:    stops,
	}

	return &l
}

func (l *Listener) HandleSystemEvent(s *system.System, event system.SystemEvent) {
	l.count("system", event)
	if l.next != nil {
		l.next.HandleSystemEvent(s, event)
	}
}

func (l *Listener) HandleNetworkEvent(s *system.System, network *system.Network, event system.NetworkEvent) {
	l.count("network", event)
	if l.next != nil {
		l.next.HandleNetworkEvent(s, network, event)
	}
}

func (l *Listener) HandleManagerEvent(s *system.System, manager *system.WalletManager, event system.ManagerEvent) {
	l.count("manager", event)

	id := manager.Network().ID()
	switch e := event.(type) {
	case system.ManagerSyncStarted:
		l.progress.WithLabelValues(id).Set(0)
	case system.ManagerSyncProgress:
		l.progress.WithLabelValues(id).Set(e.Progress)
		l.height.WithLabelValues(id).Set(float64(e.Height))
	case system.ManagerBlockUpdated:
		l.height.WithLabelValues(id).Set(float64(e.Height))
	case system.ManagerSyncStopped:
		l.stops.WithLabelValues(id, e.Reason.String()).Inc()
	case system.ManagerDeleted:
		l.progress.DeleteLabelValues(id)
		l.height.DeleteLabelValues(id)
	}

	if l.next != nil {
		l.next.HandleManagerEvent(s, manager, event)
	}
}

func (l *Listener) HandleWalletEvent(s *system.System, manager *system.WalletManager, wallet *system.Wallet, event system.WalletEvent) {
	l.count("wallet", event)
	if l.next != nil {
		l.next.HandleWalletEvent(s, manager, wallet, event)
	}
}

func (l *Listener) HandleTransferEvent(s *system.System, manager *system.WalletManager, wallet *system.Wallet, transfer *system.Transfer, event system.TransferEvent) {
	l.count("transfer", event)
	if l.next != nil {
		l.next.HandleTransferEvent(s, manager, wallet, transfer, event)
	}
}

func (l *Listener) count(entity string, event interface{}) {
	name := fmt.Sprintf("%T", event)
	name = name[strings.LastIndex(name, ".")+1:]
	l.events.WithLabelValues(entity, name).Inc()
}
