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
	"errors"
	"time"

	"github.com/optakt/walletkit/api/bdb"
	"github.com/optakt/walletkit/models/failure"
	"github.com/optakt/walletkit/service/storage"
)

// stateOf maps the status reported by the blockchain database to the state
// of the transfers of a transaction.
func stateOf(status string) TransferState {
	switch status {
	case bdb.StatusConfirmed:
		return TransferStateIncluded
	case bdb.StatusFailed, bdb.StatusRejected:
		return TransferStateFailed
	default:
		return TransferStateSubmitted
	}
}

// apply merges the transactions found on chain into the wallets of the
// manager and returns the records to persist. It must be called with the
// lock held.
func (m *WalletManager) apply(transactions []bdb.Transaction, tip uint64) []storage.Transfer {

	var records []storage.Transfer
	touched := make(map[*Wallet]struct{})
	for _, transaction := range transactions {
		for _, transfer := range transaction.Transfers {
			if transfer.Target == bdb.FeeAddress {
				continue
			}
			if transfer.Source != m.address && transfer.Target != m.address {
				continue
			}
			w, t, ok := m.merge(transaction, transfer, tip)
			if !ok {
				continue
			}
			touched[w] = struct{}{}
			records = append(records, t.record())
		}
	}

	for _, w := range m.wallets {
		_, ok := touched[w]
		if ok {
			m.refresh(w)
		}
	}

	return records
}

// merge adds the transfer to its wallet, or updates the transfer the wallet
// already knows. It returns false if nothing was merged.
func (m *WalletManager) merge(transaction bdb.Transaction, transfer bdb.Transfer, tip uint64) (*Wallet, *Transfer, bool) {

	log := m.log.With().Str("transfer", transfer.ID).Logger()

	c, ok := m.network.CurrencyByUIDs(transfer.Amount.CurrencyID)
	if !ok {
		log.Debug().Str("currency", transfer.Amount.CurrencyID).Msg("skipping transfer of unknown currency")
		return nil, nil, false
	}
	value, ok := transfer.Amount.Int()
	if !ok {
		log.Warn().Str("amount", transfer.Amount.Value).Msg("skipping transfer with invalid amount")
		return nil, nil, false
	}

	w := m.walletFor(c)
	amount, err := m.amount(c, value, w.Unit())
	if err != nil {
		log.Warn().Err(err).Msg("skipping transfer with unconvertible amount")
		return nil, nil, false
	}

	direction := DirectionReceived
	switch {
	case transfer.Source == m.address && transfer.Target == m.address:
		direction = DirectionRecovered
	case transfer.Source == m.address:
		direction = DirectionSent
	}

	height := uint64(0)
	if transaction.BlockHeight != nil {
		height = *transaction.BlockHeight
	}
	confirmations := uint64(0)
	switch {
	case transaction.Confirmations != nil:
		confirmations = *transaction.Confirmations
	case height > 0 && tip >= height:
		confirmations = tip - height + 1
	}
	var timestamp time.Time
	if transaction.Timestamp != nil {
		timestamp = *transaction.Timestamp
	}
	state := stateOf(transaction.Status)

	t, known := m.transfers[transfer.ID]
	if !known {
		t, known = m.pending(w, transaction.Hash, transfer)
	}
	if !known {
		t = newTransfer(transfer.ID, transfer.Source, transfer.Target, amount, direction, state)
		t.setHash(transaction.Hash)
		m.fee(t, transaction, direction)
		t.include(height, confirmations, timestamp)
		w.add(t)
		m.transfers[t.ID()] = t
		m.emitAdded(w, t)
		return w, t, true
	}

	m.transfers[transfer.ID] = t
	included := t.include(height, confirmations, timestamp)
	m.fee(t, transaction, direction)
	old, changed, err := t.transition(state)
	var invalid failure.InvalidTransition
	if errors.As(err, &invalid) {
		log.Warn().Err(err).Msg("ignoring invalid transfer transition")
	}
	if changed {
		m.emitChanged(w, t, old, state)
	} else if included {
		m.system.emitWallet(m, w, WalletTransferChanged{Transfer: t})
	}
	if changed && state == TransferStateFailed && t.Direction() == DirectionSent {
		m.system.emitManager(m, ManagerSyncRecommended{Depth: SyncFromLastConfirmedSend})
	}

	return w, t, true
}

// pending returns the locally created transfer of the wallet that the
// on-chain transfer of the transaction with the given hash corresponds to.
func (m *WalletManager) pending(w *Wallet, hash string, transfer bdb.Transfer) (*Transfer, bool) {
	if hash == "" || transfer.Source != m.address {
		return nil, false
	}
	t, ok := w.TransferByHash(hash)
	if !ok || t.ID() == transfer.ID || t.Target() != transfer.Target {
		return nil, false
	}
	return t, true
}

// fee records the fee of the transaction on transfers paid by the account.
func (m *WalletManager) fee(t *Transfer, transaction bdb.Transaction, direction Direction) {
	if direction == DirectionReceived || transaction.Fee == nil {
		return
	}
	c, ok := m.network.CurrencyByUIDs(transaction.Fee.CurrencyID)
	if !ok {
		return
	}
	value, ok := transaction.Fee.Int()
	if !ok {
		return
	}
	unit, _ := m.network.DefaultUnit(c)
	fee, err := m.amount(c, value, unit)
	if err != nil {
		return
	}
	t.setFee(fee)
}

// confirm updates the confirmations of included transfers for a new tip. It
// must be called with the lock held.
func (m *WalletManager) confirm(tip uint64) []storage.Transfer {
	var records []storage.Transfer
	for _, w := range m.wallets {
		for _, t := range w.Transfers() {
			height := t.BlockHeight()
			if t.State() != TransferStateIncluded || height == 0 || tip < height {
				continue
			}
			if !t.include(height, tip-height+1, time.Time{}) {
				continue
			}
			m.system.emitWallet(m, w, WalletTransferChanged{Transfer: t})
			records = append(records, t.record())
		}
	}
	return records
}
