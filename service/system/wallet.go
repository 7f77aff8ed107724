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
	"sync"

	"github.com/optakt/walletkit/models/currency"
)

// Wallet holds the balance and the transfers of one currency of a wallet
// manager.
type Wallet struct {
	mutex     *sync.RWMutex
	currency  *currency.Currency
	unit      *currency.Unit
	fee       *currency.Unit
	balance   currency.Amount
	transfers []*Transfer
	byID      map[string]*Transfer
}

func newWallet(c *currency.Currency, unit *currency.Unit, fee *currency.Unit) *Wallet {
	w := Wallet{
		mutex:    &sync.RWMutex{},
		currency: c,
		unit:     unit,
		fee:      fee,
		balance:  currency.ZeroAmount(unit),
		byID:     make(map[string]*Transfer),
	}
	return &w
}

func (w *Wallet) Currency() *currency.Currency {
	return w.currency
}

// Unit returns the default unit of the wallet currency.
func (w *Wallet) Unit() *currency.Unit {
	return w.unit
}

// FeeUnit returns the unit in which fees of the wallet transfers are paid.
func (w *Wallet) FeeUnit() *currency.Unit {
	return w.fee
}

func (w *Wallet) Balance() currency.Amount {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.balance
}

// Transfers returns the transfers of the wallet in the order in which the
// wallet learned about them.
func (w *Wallet) Transfers() []*Transfer {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return append([]*Transfer(nil), w.transfers...)
}

func (w *Wallet) TransferByID(id string) (*Transfer, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	t, ok := w.byID[id]
	return t, ok
}

// TransferByHash returns the first transfer of the wallet that belongs to
// the transaction with the given hash.
func (w *Wallet) TransferByHash(hash string) (*Transfer, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	for _, t := range w.transfers {
		if t.Hash() == hash {
			return t, true
		}
	}
	return nil, false
}

func (w *Wallet) add(t *Transfer) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.transfers = append(w.transfers, t)
	w.byID[t.ID()] = t
}

// recompute derives the balance from the transfers. It returns whether the
// balance changed.
func (w *Wallet) recompute() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	balance := currency.ZeroAmount(w.unit)
	for _, t := range w.transfers {
		if !t.counts() {
			continue
		}
		switch t.Direction() {
		case DirectionReceived:
			balance, _ = balance.Add(t.Amount())
		case DirectionSent:
			balance, _ = balance.Sub(t.Amount())
		}
		if t.Direction() == DirectionReceived {
			continue
		}
		fee, ok := t.Fee()
		if ok && fee.Unit().IsCompatibleWith(w.unit) {
			balance, _ = balance.Sub(fee)
		}
	}

	cmp, _ := balance.Compare(w.balance)
	w.balance = balance

	return cmp != 0
}
