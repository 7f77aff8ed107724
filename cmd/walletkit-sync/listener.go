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

package main

import (
	"github.com/rs/zerolog"

	"github.com/optakt/walletkit/service/system"
)

// pilot creates a wallet manager for every configured network and keeps
// each manager connected.
type pilot struct {
	log zerolog.Logger
}

func (p *pilot) HandleSystemEvent(_ *system.System, event system.SystemEvent) {
	switch e := event.(type) {
	case system.SystemDiscoveredNetworks:
		p.log.Info().Strs("networks", e.NetworkIDs).Msg("networks discovered")
	case system.SystemDeleted:
		p.log.Info().Msg("system closed")
	}
}

func (p *pilot) HandleNetworkEvent(s *system.System, network *system.Network, event system.NetworkEvent) {
	switch e := event.(type) {
	case system.NetworkCreated:
		created, err := s.CreateWalletManager(network)
		if err != nil {
			p.log.Error().Err(err).Str("network", network.ID()).Msg("could not create wallet manager")
			return
		}
		if created {
			p.log.Info().Str("network", network.ID()).Msg("wallet manager created")
		}
	case system.NetworkUpdated:
		p.log.Debug().Str("network", network.ID()).Uint64("height", e.Height).Msg("network height updated")
	}
}

func (p *pilot) HandleManagerEvent(_ *system.System, manager *system.WalletManager, event system.ManagerEvent) {
	log := p.log.With().Str("network", manager.Network().ID()).Logger()
	switch e := event.(type) {
	case system.ManagerCreated:
		err := manager.Connect()
		if err != nil {
			log.Error().Err(err).Msg("could not connect wallet manager")
		}
	case system.ManagerChanged:
		if e.New == system.ManagerStateDisconnected {
			log.Info().Str("old", e.Old.String()).Str("reason", e.Reason.String()).Msg("wallet manager disconnected")
			return
		}
		log.Info().Str("old", e.Old.String()).Str("new", e.New.String()).Msg("wallet manager state changed")
	case system.ManagerSyncProgress:
		log.Debug().Float64("progress", e.Progress).Uint64("height", e.Height).Msg("sync progressing")
	case system.ManagerSyncStopped:
		if e.Err != nil {
			log.Warn().Err(e.Err).Str("reason", e.Reason.String()).Msg("sync stopped")
			return
		}
		log.Info().Str("reason", e.Reason.String()).Msg("sync stopped")
	}
}

func (p *pilot) HandleWalletEvent(_ *system.System, manager *system.WalletManager, wallet *system.Wallet, event system.WalletEvent) {
	e, ok := event.(system.WalletBalanceUpdated)
	if !ok {
		return
	}
	p.log.Info().
		Str("network", manager.Network().ID()).
		Str("currency", wallet.Currency().Code()).
		Str("balance", e.Balance.String()).
		Msg("wallet balance updated")
}

func (p *pilot) HandleTransferEvent(_ *system.System, manager *system.WalletManager, _ *system.Wallet, transfer *system.Transfer, event system.TransferEvent) {
	e, ok := event.(system.TransferChanged)
	if !ok {
		return
	}
	p.log.Info().
		Str("network", manager.Network().ID()).
		Str("transfer", transfer.ID()).
		Str("old", e.Old.String()).
		Str("new", e.New.String()).
		Msg("transfer state changed")
}
