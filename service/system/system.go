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
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/optakt/walletkit/api/bdb"
	"github.com/optakt/walletkit/codec/zbor"
	"github.com/optakt/walletkit/models/account"
	"github.com/optakt/walletkit/models/failure"
	"github.com/optakt/walletkit/service/dispatch"
	"github.com/optakt/walletkit/service/storage"
)

// ErrClosed is returned by operations on a system that was closed.
var ErrClosed = errors.New("system closed")

// System is the root of the wallet engine for one account. It owns the
// networks the account is followed on, one wallet manager per network, and
// the persisted state of both.
type System struct {
	log      zerolog.Logger
	cfg      Config
	account  *account.Account
	crypto   account.Capability
	listener Listener
	mainnet  bool
	path     string
	client   Client
	store    *storage.Store
	dispatch *dispatch.Dispatcher
	mutex    *sync.Mutex
	networks map[string]*Network
	managers map[string]*WalletManager
	paused   map[string]struct{}
	closed   bool

	delivering *int32
}

// New creates a system for the account. State is persisted at the given
// path; an empty path keeps it in memory. Events are delivered to the
// listener, which may be nil.
func New(log zerolog.Logger, acc *account.Account, crypto account.Capability, listener Listener, mainnet bool, path string, client Client, options ...Option) (*System, error) {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}
	if cfg.Codec == nil {
		cfg.Codec = zbor.NewCodec()
	}
	if cfg.SyncWindow == 0 {
		cfg.SyncWindow = DefaultConfig.SyncWindow
	}

	err := acc.Validate()
	if err != nil {
		return nil, err
	}
	if listener == nil {
		listener = nopListener{}
	}

	store, err := storage.Open(log, path, cfg.Codec)
	if err != nil {
		return nil, fmt.Errorf("could not open storage: %w", err)
	}

	s := System{
		log:      log.With().Str("component", "system").Str("account", acc.UIDs()).Logger(),
		cfg:      cfg,
		account:  acc,
		crypto:   crypto,
		listener: listener,
		mainnet:  mainnet,
		path:     path,
		client:   client,
		store:    store,
		dispatch: dispatch.New(log, dispatch.WithLanes(cfg.Lanes)),
		mutex:    &sync.Mutex{},
		networks: make(map[string]*Network),
		managers: make(map[string]*WalletManager),
		paused:   make(map[string]struct{}),

		delivering: new(int32),
	}

	s.emitSystem(SystemCreated{})

	s.log.Info().Bool("mainnet", mainnet).Str("path", path).Msg("system created")

	return &s, nil
}

// Wipe removes the state persisted at the given path. No system may be
// using it.
func Wipe(path string) error {
	return storage.Wipe(path)
}

func (s *System) Account() *account.Account {
	return s.account
}

func (s *System) IsMainnet() bool {
	return s.mainnet
}

type configuration struct {
	blockchain bdb.Blockchain
	currencies []bdb.Currency
}

// Configure sets the networks of the system. Networks that are not known yet
// are created, known ones are refreshed and the ones missing from the list
// are removed together with their manager. Without any network ID, every
// network of the blockchain database matching the mainnet setting of the
// system is used. Configuring the same list twice has no further effect than
// refreshing the networks.
func (s *System) Configure(ctx context.Context, networkIDs []string) error {

	if s.isClosed() {
		return ErrClosed
	}

	ids, err := s.discover(ctx, networkIDs)
	if err != nil {
		return fmt.Errorf("could not determine networks: %w", err)
	}

	configurations := make([]configuration, len(ids))
	group, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		group.Go(func() error {
			blockchain, err := s.client.Blockchain(gctx, id)
			if err != nil {
				return fmt.Errorf("could not get blockchain (id: %s): %w", id, err)
			}
			if blockchain.IsMainnet != s.mainnet {
				return failure.InvalidArgument{
					Description: failure.NewDescription("network does not match system mainnet setting",
						failure.WithString("network", id),
					),
					Argument: "networkIDs",
				}
			}
			currencies, err := s.client.Currencies(gctx, id)
			if err != nil {
				return fmt.Errorf("could not get currencies (id: %s): %w", id, err)
			}
			configurations[i] = configuration{blockchain: blockchain, currencies: currencies}
			return nil
		})
	}
	err = group.Wait()
	if err != nil {
		return err
	}

	records, err := s.store.Networks()
	if err != nil {
		return fmt.Errorf("could not get persisted networks: %w", err)
	}
	restore := make(map[string]bool, len(records))
	for _, record := range records {
		restore[record.ID] = record.Manager
	}

	s.mutex.Lock()

	if s.closed {
		s.mutex.Unlock()
		return ErrClosed
	}

	wanted := make(map[string]struct{}, len(ids))
	var added []*Network
	for _, c := range configurations {
		wanted[c.blockchain.ID] = struct{}{}

		network, ok := s.networks[c.blockchain.ID]
		if ok {
			changed, err := network.update(c.blockchain)
			if err != nil {
				s.log.Warn().Err(err).Str("network", network.ID()).Msg("could not refresh network")
				continue
			}
			if changed {
				s.emitNetwork(network, NetworkUpdated{Height: network.Height(), Fees: network.Fees()})
			}
			continue
		}

		network, err = NewNetwork(c.blockchain, c.currencies)
		if err != nil {
			s.mutex.Unlock()
			return fmt.Errorf("could not create network (id: %s): %w", c.blockchain.ID, err)
		}
		err = s.store.SaveNetwork(storage.Network{
			ID:        network.ID(),
			Name:      network.Name(),
			Height:    network.Height(),
			IsMainnet: network.IsMainnet(),
			Manager:   restore[network.ID()],
		})
		if err != nil {
			s.mutex.Unlock()
			return fmt.Errorf("could not persist network (id: %s): %w", network.ID(), err)
		}

		s.networks[network.ID()] = network
		added = append(added, network)
		s.emitSystem(SystemNetworkAdded{Network: network})
		s.emitNetwork(network, NetworkCreated{})

		s.log.Info().Str("network", network.ID()).Uint64("height", network.Height()).Msg("network added")
	}

	var removed []*Network
	for id, network := range s.networks {
		_, ok := wanted[id]
		if ok {
			continue
		}
		delete(s.networks, id)
		removed = append(removed, network)
	}

	s.mutex.Unlock()

	for _, network := range removed {
		err := s.remove(network)
		if err != nil {
			return fmt.Errorf("could not remove network (id: %s): %w", network.ID(), err)
		}
	}

	for _, network := range added {
		if !restore[network.ID()] {
			continue
		}
		_, err := s.CreateWalletManager(network)
		if err != nil {
			s.log.Warn().Err(err).Str("network", network.ID()).Msg("could not restore wallet manager")
		}
	}

	return nil
}

// discover returns the deduplicated network IDs to configure.
func (s *System) discover(ctx context.Context, networkIDs []string) ([]string, error) {

	if len(networkIDs) > 0 {
		seen := make(map[string]struct{}, len(networkIDs))
		ids := make([]string, 0, len(networkIDs))
		for _, id := range networkIDs {
			_, ok := seen[id]
			if ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		return ids, nil
	}

	blockchains, err := s.client.Blockchains(ctx, s.mainnet)
	if err != nil {
		return nil, fmt.Errorf("could not list blockchains: %w", err)
	}
	ids := make([]string, 0, len(blockchains))
	for _, blockchain := range blockchains {
		ids = append(ids, blockchain.ID)
	}

	s.emitSystem(SystemDiscoveredNetworks{NetworkIDs: ids})

	return ids, nil
}

func (s *System) remove(network *Network) error {

	s.mutex.Lock()
	manager, ok := s.managers[network.ID()]
	s.mutex.Unlock()

	if ok {
		err := manager.Delete()
		if err != nil {
			return fmt.Errorf("could not delete wallet manager: %w", err)
		}
	}

	err := s.store.DeleteNetwork(network.ID())
	if err != nil {
		return fmt.Errorf("could not delete persisted network: %w", err)
	}

	s.emitNetwork(network, NetworkDeleted{})
	s.emitSystem(SystemNetworkRemoved{NetworkID: network.ID()})

	s.log.Info().Str("network", network.ID()).Msg("network removed")

	return nil
}

// CreateWalletManager creates the wallet manager of the network. It returns
// false if the network already has one.
func (s *System) CreateWalletManager(network *Network) (bool, error) {

	address, err := s.crypto.Address(s.account, network.ID())
	if err != nil {
		return false, failure.InvalidAccount{
			Description: failure.NewDescription("could not derive address",
				failure.WithString("network", network.ID()),
				failure.WithErr(err),
			),
			UIDs: s.account.UIDs(),
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	known, ok := s.networks[network.ID()]
	if !ok || known != network {
		return false, failure.InvalidArgument{
			Description: failure.NewDescription("network not configured",
				failure.WithString("network", network.ID()),
			),
			Argument: "network",
		}
	}
	_, ok = s.managers[network.ID()]
	if ok {
		return false, nil
	}

	records, err := s.store.Transfers(network.ID())
	if err != nil {
		return false, fmt.Errorf("could not restore transfers: %w", err)
	}
	err = s.store.SaveNetwork(storage.Network{
		ID:        network.ID(),
		Name:      network.Name(),
		Height:    network.Height(),
		IsMainnet: network.IsMainnet(),
		Manager:   true,
	})
	if err != nil {
		return false, fmt.Errorf("could not persist network: %w", err)
	}

	manager := newWalletManager(s, network, address)
	s.managers[network.ID()] = manager
	s.emitSystem(SystemManagerAdded{Manager: manager})
	manager.announce(records)

	return true, nil
}

// forget removes a deleted manager from the system.
func (s *System) forget(manager *WalletManager) {

	network := manager.Network()

	s.mutex.Lock()
	current, ok := s.managers[network.ID()]
	if ok && current == manager {
		delete(s.managers, network.ID())
	}
	delete(s.paused, network.ID())
	_, configured := s.networks[network.ID()]
	s.mutex.Unlock()

	err := s.store.DeleteNetwork(network.ID())
	if err != nil {
		s.log.Error().Err(err).Str("network", network.ID()).Msg("could not delete persisted manager state")
		return
	}
	if !configured {
		return
	}
	err = s.store.SaveNetwork(storage.Network{
		ID:        network.ID(),
		Name:      network.Name(),
		Height:    network.Height(),
		IsMainnet: network.IsMainnet(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("network", network.ID()).Msg("could not persist network")
	}
}

// Networks returns the configured networks, sorted by ID.
func (s *System) Networks() []*Network {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	networks := make([]*Network, 0, len(s.networks))
	for _, network := range s.networks {
		networks = append(networks, network)
	}
	sort.Slice(networks, func(i int, j int) bool {
		return networks[i].ID() < networks[j].ID()
	})

	return networks
}

func (s *System) NetworkBy(id string) (*Network, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	network, ok := s.networks[id]
	return network, ok
}

// Managers returns the wallet managers, sorted by network ID.
func (s *System) Managers() []*WalletManager {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	managers := make([]*WalletManager, 0, len(s.managers))
	for _, manager := range s.managers {
		managers = append(managers, manager)
	}
	sort.Slice(managers, func(i int, j int) bool {
		return managers[i].Network().ID() < managers[j].Network().ID()
	})

	return managers
}

// ManagerBy returns the wallet manager of the network with the given ID.
func (s *System) ManagerBy(networkID string) (*WalletManager, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	manager, ok := s.managers[networkID]
	return manager, ok
}

// Pause disconnects every connected manager. Resume reconnects them.
func (s *System) Pause() {
	for _, manager := range s.Managers() {
		err := manager.Disconnect()
		if err != nil {
			continue
		}
		s.mutex.Lock()
		s.paused[manager.Network().ID()] = struct{}{}
		s.mutex.Unlock()
	}
	s.log.Info().Msg("system paused")
}

// Resume reconnects the managers disconnected by Pause.
func (s *System) Resume() {

	s.mutex.Lock()
	var managers []*WalletManager
	for id := range s.paused {
		manager, ok := s.managers[id]
		if ok {
			managers = append(managers, manager)
		}
	}
	s.paused = make(map[string]struct{})
	s.mutex.Unlock()

	for _, manager := range managers {
		err := manager.Connect()
		if err != nil {
			s.log.Warn().Err(err).Str("network", manager.Network().ID()).Msg("could not resume wallet manager")
		}
	}
	s.log.Info().Int("managers", len(managers)).Msg("system resumed")
}

// UpdateNetworkFees refreshes the height and fees of every network.
func (s *System) UpdateNetworkFees(ctx context.Context) error {

	if s.isClosed() {
		return ErrClosed
	}

	var result error
	for _, network := range s.Networks() {
		blockchain, err := s.client.Blockchain(ctx, network.ID())
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("could not get blockchain (id: %s): %w", network.ID(), err))
			continue
		}
		changed, err := network.update(blockchain)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("could not update network (id: %s): %w", network.ID(), err))
			continue
		}
		if changed {
			s.emitNetwork(network, NetworkUpdated{Height: network.Height(), Fees: network.Fees()})
		}
	}

	return result
}

func (s *System) isClosed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closed
}

// Close stops every manager, delivers the pending events and closes the
// persisted state. The system cannot be used afterwards.
//
// When a listener callback is in progress, such as when Close is called from
// one, the pending events are delivered after Close returns, since waiting
// for them would block the lane running the callback.
func (s *System) Close(ctx context.Context) error {

	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return nil
	}
	s.closed = true
	s.mutex.Unlock()

	managers := s.Managers()
	for _, manager := range managers {
		_ = manager.Disconnect()
	}

	var result error
	done := make(chan struct{})
	go func() {
		for _, manager := range managers {
			manager.wait()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		result = multierror.Append(result, fmt.Errorf("could not wait for wallet managers: %w", ctx.Err()))
	}

	if atomic.LoadInt32(s.delivering) > 0 {
		s.log.Debug().Msg("listener callback in progress, delivering pending events asynchronously")
		go s.finish()
	} else {
		s.finish()
	}

	err := s.store.Close()
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("could not close storage: %w", err))
	}

	s.log.Info().Msg("system closed")

	return result
}

// finish delivers the pending events, followed by the deletion of the system,
// and stops the dispatcher.
func (s *System) finish() {
	s.dispatch.Flush()
	s.emitSystem(SystemDeleted{})
	s.dispatch.Stop()
}
