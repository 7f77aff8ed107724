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
	"math"
	"math/big"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/optakt/walletkit/api/bdb"
	"github.com/optakt/walletkit/models/currency"
	"github.com/optakt/walletkit/models/failure"
	"github.com/optakt/walletkit/service/storage"
)

var errStale = errors.New("superseded by a newer connection")

// WalletManager follows one network for the account of the system. It owns
// one wallet per currency the account holds on the network and keeps them
// synchronized with the chain while it is connected.
type WalletManager struct {
	log        zerolog.Logger
	cfg        Config
	system     *System
	network    *Network
	address    string
	mutex      *sync.Mutex
	state      ManagerState
	wallets    []*Wallet
	byCurrency map[string]*Wallet
	transfers  map[string]*Transfer
	generation uint64
	cancel     context.CancelFunc
	feed       *bdb.Feed
	wg         *sync.WaitGroup
	rewind     *uint64
}

func newWalletManager(s *System, network *Network, address string) *WalletManager {
	m := WalletManager{
		log:        s.log.With().Str("component", "wallet_manager").Str("network", network.ID()).Logger(),
		cfg:        s.cfg,
		system:     s,
		network:    network,
		address:    address,
		mutex:      &sync.Mutex{},
		state:      ManagerStateCreated,
		byCurrency: make(map[string]*Wallet),
		transfers:  make(map[string]*Transfer),
		wg:         &sync.WaitGroup{},
	}
	return &m
}

// announce emits the creation of the manager and of its primary wallet,
// then restores the transfers persisted by earlier runs.
func (m *WalletManager) announce(records []storage.Transfer) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.system.emitManager(m, ManagerCreated{})
	m.walletFor(m.network.Currency())

	sort.SliceStable(records, func(i int, j int) bool {
		return position(records[i]) < position(records[j])
	})

	touched := make(map[*Wallet]struct{})
	for _, record := range records {
		w, t, err := m.restore(record)
		if err != nil {
			m.log.Warn().Err(err).Str("transfer", record.ID).Msg("skipping persisted transfer")
			continue
		}
		m.emitAdded(w, t)
		touched[w] = struct{}{}
	}
	for _, w := range m.wallets {
		_, ok := touched[w]
		if ok {
			m.refresh(w)
		}
	}

	m.log.Info().Str("address", m.address).Int("transfers", len(records)).Msg("wallet manager created")
}

// position orders persisted transfers by inclusion height, with transfers
// that were not included yet last.
func position(record storage.Transfer) uint64 {
	if record.BlockHeight == 0 {
		return math.MaxUint64
	}
	return record.BlockHeight
}

func (m *WalletManager) restore(record storage.Transfer) (*Wallet, *Transfer, error) {

	c, ok := m.network.CurrencyByUIDs(record.Currency)
	if !ok {
		return nil, nil, fmt.Errorf("unknown currency (currency: %s)", record.Currency)
	}
	if record.Amount == nil {
		return nil, nil, fmt.Errorf("missing amount")
	}
	w := m.walletFor(c)

	amount, err := m.amount(c, record.Amount, w.Unit())
	if err != nil {
		return nil, nil, fmt.Errorf("could not restore amount: %w", err)
	}

	t := newTransfer(record.ID, record.Source, record.Target, amount, Direction(record.Direction), TransferState(record.State))
	t.hash = record.Hash
	t.height = record.BlockHeight
	t.confirmations = record.Confirmations
	t.timestamp = record.Timestamp
	if record.Fee != nil {
		fee, err := m.amount(m.network.Currency(), record.Fee, w.FeeUnit())
		if err != nil {
			return nil, nil, fmt.Errorf("could not restore fee: %w", err)
		}
		t.setFee(fee)
	}

	w.add(t)
	m.transfers[t.ID()] = t

	return w, t, nil
}

// amount expresses a number of base units of the currency in the given unit.
func (m *WalletManager) amount(c *currency.Currency, value *big.Int, unit *currency.Unit) (currency.Amount, error) {
	base, ok := m.network.BaseUnit(c)
	if !ok {
		return currency.Amount{}, fmt.Errorf("no base unit (currency: %s)", c.UIDs())
	}
	return currency.NewAmount(value, base).Convert(unit)
}

// System returns the system the manager belongs to.
func (m *WalletManager) System() *System {
	return m.system
}

func (m *WalletManager) Network() *Network {
	return m.network
}

// Address returns the address of the account on the network.
func (m *WalletManager) Address() string {
	return m.address
}

func (m *WalletManager) State() ManagerState {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state
}

// Wallets returns the wallets of the manager, primary wallet first.
func (m *WalletManager) Wallets() []*Wallet {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]*Wallet(nil), m.wallets...)
}

// PrimaryWallet returns the wallet of the native currency of the network.
func (m *WalletManager) PrimaryWallet() *Wallet {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.byCurrency[m.network.Currency().UIDs()]
}

func (m *WalletManager) WalletByCurrency(c *currency.Currency) (*Wallet, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	w, ok := m.byCurrency[c.UIDs()]
	return w, ok
}

// Connect starts following the network. It immediately starts a sync pass
// and, once the pass completes, listens for new blocks until the manager is
// disconnected.
func (m *WalletManager) Connect() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state != ManagerStateCreated && m.state != ManagerStateDisconnected {
		return m.invalid(ManagerStateConnected)
	}

	m.change(ManagerStateConnected)
	m.startSync()

	return nil
}

// Sync starts a new sync pass on a connected manager.
func (m *WalletManager) Sync() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state != ManagerStateConnected {
		return m.invalid(ManagerStateSyncing)
	}

	m.startSync()

	return nil
}

// SyncToDepth starts a new sync pass on a connected manager, which rescans
// the network from the given depth rather than from the last synced height.
func (m *WalletManager) SyncToDepth(depth SyncDepth) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state != ManagerStateConnected {
		return m.invalid(ManagerStateSyncing)
	}

	begin, err := m.depthHeight(depth)
	if err != nil {
		return err
	}
	m.rewind = &begin
	m.startSync()

	return nil
}

// depthHeight returns the height a sync pass to the given depth begins at.
// It must be called with the lock held.
func (m *WalletManager) depthHeight(depth SyncDepth) (uint64, error) {
	switch depth {
	case SyncFromCreation:
		return 0, nil

	case SyncFromLastTrustedBlock:
		height, _, err := m.system.store.Height(m.network.ID())
		if err != nil {
			return 0, fmt.Errorf("could not get stored height: %w", err)
		}
		return height, nil

	case SyncFromLastConfirmedSend:
		height := uint64(0)
		for _, w := range m.wallets {
			for _, t := range w.Transfers() {
				if t.Direction() != DirectionSent || t.State() != TransferStateIncluded {
					continue
				}
				if t.BlockHeight() > height {
					height = t.BlockHeight()
				}
			}
		}
		return height, nil

	default:
		return 0, failure.InvalidArgument{
			Description: failure.NewDescription("unknown sync depth",
				failure.WithString("depth", depth.String()),
			),
			Argument: "depth",
		}
	}
}

// Disconnect stops following the network. A sync pass in progress stops
// with the requested reason.
func (m *WalletManager) Disconnect() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state != ManagerStateConnected && m.state != ManagerStateSyncing {
		return m.invalid(ManagerStateDisconnected)
	}

	m.halt()
	m.disconnect(DisconnectRequested)

	return nil
}

// Delete stops the manager for good and removes everything persisted for its
// network. Any further call on the manager fails.
func (m *WalletManager) Delete() error {
	m.mutex.Lock()

	if m.state == ManagerStateDeleted {
		m.mutex.Unlock()
		return m.invalid(ManagerStateDeleted)
	}

	m.halt()
	for _, w := range m.wallets {
		m.system.emitWallet(m, w, WalletDeleted{})
		m.system.emitManager(m, ManagerWalletDeleted{Wallet: w})
	}
	m.change(ManagerStateDeleted)
	m.system.emitManager(m, ManagerDeleted{})

	m.mutex.Unlock()

	m.system.forget(m)

	return nil
}

// wait blocks until the background work of the manager has stopped.
func (m *WalletManager) wait() {
	m.wg.Wait()
}

// halt stops any sync pass or feed, so that they no longer affect the
// manager. It must be called with the lock held.
func (m *WalletManager) halt() {
	m.generation++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.stopFeed()
	if m.state == ManagerStateSyncing {
		m.system.emitManager(m, ManagerSyncStopped{Reason: StopRequested})
	}
}

func (m *WalletManager) change(next ManagerState) {
	old := m.state
	m.state = next
	m.system.emitManager(m, ManagerChanged{Old: old, New: next})
	m.log.Debug().Str("old", old.String()).Str("new", next.String()).Msg("wallet manager state changed")
}

func (m *WalletManager) disconnect(reason DisconnectReason) {
	old := m.state
	m.state = ManagerStateDisconnected
	m.system.emitManager(m, ManagerChanged{Old: old, New: ManagerStateDisconnected, Reason: reason})
	m.log.Debug().Str("old", old.String()).Str("reason", reason.String()).Msg("wallet manager disconnected")
}

func (m *WalletManager) invalid(next ManagerState) error {
	return failure.InvalidTransition{
		Description: failure.NewDescription("transition not allowed",
			failure.WithString("network", m.network.ID()),
		),
		Entity: "wallet manager",
		From:   m.state.String(),
		To:     next.String(),
	}
}

func (m *WalletManager) startSync() {
	m.stopFeed()
	if m.cancel != nil {
		m.cancel()
	}

	m.generation++
	generation := m.generation
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.change(ManagerStateSyncing)
	m.system.emitManager(m, ManagerSyncStarted{})

	rewind := m.rewind
	m.rewind = nil

	m.wg.Add(1)
	go m.runSync(ctx, generation, rewind)
}

func (m *WalletManager) runSync(ctx context.Context, generation uint64, rewind *uint64) {
	defer m.wg.Done()

	end, err := m.pass(ctx, generation, rewind)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if generation != m.generation {
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if err != nil {
		event := m.log.Error().Err(err)
		var queryErr failure.QueryError
		if errors.As(err, &queryErr) {
			event = event.Int("status", queryErr.Status).Object("failure", queryErr.Description)
		}
		event.Msg("sync pass failed")
		m.system.emitManager(m, ManagerSyncStopped{Reason: StopError, Err: err})
		m.disconnect(DisconnectError)
		return
	}

	m.system.emitManager(m, ManagerSyncStopped{Reason: StopComplete})
	m.change(ManagerStateConnected)
	m.startFeed(generation, end)
}

func (m *WalletManager) startFeed(generation uint64, from uint64) {

	feed, err := m.system.client.Subscribe(bdb.FeedQuery{
		BlockchainID: m.network.ID(),
		Addresses:    []string{m.address},
		From:         from,
	})
	if err != nil {
		m.log.Warn().Err(err).Msg("could not subscribe to network updates")
		return
	}
	m.feed = feed

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go m.follow(ctx, feed, generation)
}

func (m *WalletManager) stopFeed() {
	if m.feed == nil {
		return
	}
	m.feed.Cancel()
	m.feed = nil
}

func (m *WalletManager) follow(ctx context.Context, feed *bdb.Feed, generation uint64) {
	defer m.wg.Done()

	for update := range feed.Updates() {
		err := m.update(ctx, generation, update)
		if errors.Is(err, errStale) || ctx.Err() != nil {
			return
		}
		if err != nil {
			m.log.Warn().Err(err).Uint64("height", update.Height).Msg("could not apply network update")
		}
	}
}

// update applies a live update of the network.
func (m *WalletManager) update(ctx context.Context, generation uint64, update bdb.Update) error {

	seen := make(map[string]struct{})
	var transactions []bdb.Transaction
	for _, transfer := range update.Transfers {
		_, ok := seen[transfer.TransactionID]
		if ok {
			continue
		}
		seen[transfer.TransactionID] = struct{}{}
		transaction, err := m.system.client.Transaction(ctx, transfer.TransactionID, false, false)
		if err != nil {
			return fmt.Errorf("could not get transaction (id: %s): %w", transfer.TransactionID, err)
		}
		transactions = append(transactions, transaction)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if generation != m.generation {
		return errStale
	}

	records := m.apply(transactions, update.Height)
	records = append(records, m.confirm(update.Height)...)
	err := m.system.store.Checkpoint(m.network.ID(), update.Height+1, records)
	if err != nil {
		return fmt.Errorf("could not checkpoint update: %w", err)
	}

	if m.network.advance(update.Height) {
		m.system.emitNetwork(m.network, NetworkUpdated{Height: update.Height, Fees: m.network.Fees()})
	}
	m.system.emitManager(m, ManagerBlockUpdated{Height: update.Height})

	return nil
}

// walletFor returns the wallet of the given currency, creating it if needed.
// It must be called with the lock held.
func (m *WalletManager) walletFor(c *currency.Currency) *Wallet {
	w, ok := m.byCurrency[c.UIDs()]
	if ok {
		return w
	}

	unit, _ := m.network.DefaultUnit(c)
	fee, _ := m.network.DefaultUnit(m.network.Currency())
	w = newWallet(c, unit, fee)
	m.wallets = append(m.wallets, w)
	m.byCurrency[c.UIDs()] = w

	m.system.emitWallet(m, w, WalletCreated{})
	m.system.emitManager(m, ManagerWalletAdded{Wallet: w})

	return w
}

func (m *WalletManager) emitAdded(w *Wallet, t *Transfer) {
	m.system.emitTransfer(m, w, t, TransferCreated{State: t.State()})
	m.system.emitWallet(m, w, WalletTransferAdded{Transfer: t})
}

func (m *WalletManager) emitChanged(w *Wallet, t *Transfer, old TransferState, next TransferState) {
	m.system.emitTransfer(m, w, t, TransferChanged{Old: old, New: next})
	m.system.emitWallet(m, w, WalletTransferChanged{Transfer: t})
}

// refresh recomputes the balance of the wallet and announces it if it
// changed.
func (m *WalletManager) refresh(w *Wallet) {
	if !w.recompute() {
		return
	}
	m.system.emitWallet(m, w, WalletBalanceUpdated{Balance: w.Balance()})
	m.system.emitManager(m, ManagerWalletChanged{Wallet: w})
}
