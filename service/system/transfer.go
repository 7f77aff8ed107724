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
	"time"

	"github.com/optakt/walletkit/models/currency"
	"github.com/optakt/walletkit/models/failure"
	"github.com/optakt/walletkit/service/storage"
)

// Transfer is a movement of funds into or out of a wallet.
type Transfer struct {
	mutex         *sync.RWMutex
	id            string
	hash          string
	source        string
	target        string
	amount        currency.Amount
	fee           currency.Amount
	hasFee        bool
	direction     Direction
	state         TransferState
	height        uint64
	confirmations uint64
	timestamp     time.Time
}

func newTransfer(id string, source string, target string, amount currency.Amount, direction Direction, state TransferState) *Transfer {
	t := Transfer{
		mutex:     &sync.RWMutex{},
		id:        id,
		source:    source,
		target:    target,
		amount:    amount,
		direction: direction,
		state:     state,
	}
	return &t
}

// ID returns the identifier of the transfer. Transfers found on chain use
// the identifier of the blockchain database; transfers created locally use a
// random one.
func (t *Transfer) ID() string {
	return t.id
}

// Hash returns the hash of the transaction the transfer belongs to. It is
// empty until the transfer has been signed.
func (t *Transfer) Hash() string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.hash
}

func (t *Transfer) Source() string {
	return t.source
}

func (t *Transfer) Target() string {
	return t.target
}

func (t *Transfer) Amount() currency.Amount {
	return t.amount
}

// Fee returns the fee paid for the transfer, if it is known.
func (t *Transfer) Fee() (currency.Amount, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.fee, t.hasFee
}

func (t *Transfer) Direction() Direction {
	return t.direction
}

func (t *Transfer) State() TransferState {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.state
}

// BlockHeight returns the height of the block that included the transfer,
// or zero if it is not included yet.
func (t *Transfer) BlockHeight() uint64 {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.height
}

func (t *Transfer) Confirmations() uint64 {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.confirmations
}

func (t *Transfer) Timestamp() time.Time {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.timestamp
}

// transition moves the transfer to the next state. Moving to the current
// state is a no-op.
func (t *Transfer) transition(next TransferState) (TransferState, bool, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	old := t.state
	if next == old && !old.IsTerminal() {
		return old, false, nil
	}
	if !old.CanMoveTo(next) {
		return old, false, failure.InvalidTransition{
			Description: failure.NewDescription("transfer state can only move forward",
				failure.WithString("transfer", t.id),
			),
			Entity: "transfer",
			From:   old.String(),
			To:     next.String(),
		}
	}
	t.state = next

	return old, true, nil
}

// include records where the transfer was included. It returns whether
// anything changed.
func (t *Transfer) include(height uint64, confirmations uint64, timestamp time.Time) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	changed := t.height != height || t.confirmations != confirmations
	t.height = height
	t.confirmations = confirmations
	if !timestamp.IsZero() {
		t.timestamp = timestamp
	}

	return changed
}

func (t *Transfer) setFee(fee currency.Amount) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.fee = fee
	t.hasFee = true
}

func (t *Transfer) setHash(hash string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.hash = hash
}

// counts returns whether the transfer affects the balance.
func (t *Transfer) counts() bool {
	state := t.State()
	return state != TransferStateFailed && state != TransferStateDeleted
}

func (t *Transfer) record() storage.Transfer {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	r := storage.Transfer{
		ID:            t.id,
		Hash:          t.hash,
		Currency:      t.amount.Unit().Currency().UIDs(),
		Source:        t.source,
		Target:        t.target,
		Amount:        t.amount.BaseValue(),
		State:         uint8(t.state),
		Direction:     uint8(t.direction),
		BlockHeight:   t.height,
		Confirmations: t.confirmations,
		Timestamp:     t.timestamp,
	}
	if t.hasFee {
		r.Fee = t.fee.BaseValue()
	}

	return r
}
