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
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/optakt/walletkit/models/currency"
	"github.com/optakt/walletkit/models/failure"
)

// unsigned is the payload handed to the capability for signing.
type unsigned struct {
	Network  string   `cbor:"1,keyasint"`
	Currency string   `cbor:"2,keyasint"`
	Source   string   `cbor:"3,keyasint"`
	Target   string   `cbor:"4,keyasint"`
	Amount   *big.Int `cbor:"5,keyasint"`
	Fee      *big.Int `cbor:"6,keyasint,omitempty"`
}

// CreateTransfer creates a transfer of the given amount from the wallet to
// the target address. The fee is the total fee the transfer is expected to
// pay. The transfer stays in the created state until it is submitted.
func (m *WalletManager) CreateTransfer(wallet *Wallet, target string, amount currency.Amount, fee currency.Amount) (*Transfer, error) {

	if target == "" {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("target address must not be empty"),
			Argument:    "target",
		}
	}
	if amount.Unit() == nil || !amount.Unit().IsCompatibleWith(wallet.Unit()) {
		return nil, failure.IncompatibleUnits{
			Description: failure.NewDescription("amount is not in a unit of the wallet currency",
				failure.WithString("currency", wallet.Currency().UIDs()),
			),
			From: unitOf(amount),
			To:   wallet.Unit().UIDs(),
		}
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("amount must be positive",
				failure.WithString("amount", amount.String()),
			),
			Argument: "amount",
		}
	}
	if fee.Unit() == nil || !fee.Unit().IsCompatibleWith(wallet.FeeUnit()) {
		return nil, failure.IncompatibleUnits{
			Description: failure.NewDescription("fee is not in a unit of the network currency",
				failure.WithString("network", m.network.ID()),
			),
			From: unitOf(fee),
			To:   wallet.FeeUnit().UIDs(),
		}
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state == ManagerStateDeleted {
		return nil, m.invalid(ManagerStateDeleted)
	}
	err := m.owns(wallet, nil)
	if err != nil {
		return nil, err
	}

	total := amount
	if fee.Unit().IsCompatibleWith(wallet.Unit()) {
		total, _ = amount.Add(fee)
	}
	cmp, _ := total.Compare(wallet.Balance())
	if cmp > 0 {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("insufficient balance",
				failure.WithString("total", total.String()),
				failure.WithString("balance", wallet.Balance().String()),
			),
			Argument: "amount",
		}
	}

	direction := DirectionSent
	if target == m.address {
		direction = DirectionRecovered
	}
	converted, _ := amount.Convert(wallet.Unit())
	t := newTransfer(uuid.New().String(), m.address, target, converted, direction, TransferStateCreated)
	t.setFee(fee)

	err = m.system.store.SaveTransfer(m.network.ID(), t.record())
	if err != nil {
		return nil, fmt.Errorf("could not persist transfer: %w", err)
	}

	wallet.add(t)
	m.transfers[t.ID()] = t
	m.emitAdded(wallet, t)
	m.refresh(wallet)

	m.log.Info().Str("transfer", t.ID()).Str("target", target).Str("amount", amount.String()).Msg("transfer created")

	return t, nil
}

// SubmitTransfer signs the transfer with the capability of the system and
// submits it to the blockchain database. The transfer ends up submitted on
// success, and failed otherwise.
func (m *WalletManager) SubmitTransfer(ctx context.Context, wallet *Wallet, transfer *Transfer) error {

	m.mutex.Lock()
	if m.state == ManagerStateDeleted {
		m.mutex.Unlock()
		return m.invalid(ManagerStateDeleted)
	}
	err := m.owns(wallet, transfer)
	if err != nil {
		m.mutex.Unlock()
		return err
	}
	old, _, err := transfer.transition(TransferStateSigning)
	if err != nil {
		m.mutex.Unlock()
		return fmt.Errorf("could not start signing: %w", err)
	}
	m.emitChanged(wallet, transfer, old, TransferStateSigning)
	m.mutex.Unlock()

	err = m.sign(ctx, wallet, transfer)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	next := TransferStateSubmitted
	if err != nil {
		next = TransferStateFailed
	}
	old, changed, terr := transfer.transition(next)
	if terr != nil {
		m.log.Warn().Err(terr).Str("transfer", transfer.ID()).Msg("could not record submission outcome")
	}
	if changed {
		m.emitChanged(wallet, transfer, old, next)
	}
	m.system.emitWallet(m, wallet, WalletTransferSubmitted{Transfer: transfer, Success: err == nil})
	m.refresh(wallet)

	perr := m.system.store.SaveTransfer(m.network.ID(), transfer.record())
	if perr != nil {
		m.log.Error().Err(perr).Str("transfer", transfer.ID()).Msg("could not persist submitted transfer")
	}

	if err != nil {
		m.log.Warn().Err(err).Str("transfer", transfer.ID()).Msg("transfer submission failed")
		return fmt.Errorf("could not submit transfer: %w", err)
	}

	m.log.Info().Str("transfer", transfer.ID()).Str("hash", transfer.Hash()).Msg("transfer submitted")

	return nil
}

func (m *WalletManager) sign(ctx context.Context, wallet *Wallet, transfer *Transfer) error {

	payload, err := m.payload(wallet, transfer)
	if err != nil {
		return fmt.Errorf("could not encode transfer: %w", err)
	}
	signed, hash, err := m.system.crypto.Sign(m.system.account, m.network.ID(), payload)
	if err != nil {
		return fmt.Errorf("could not sign transfer: %w", err)
	}
	transfer.setHash(hash)

	err = m.system.client.CreateTransaction(ctx, m.network.ID(), hash, signed)
	if err != nil {
		return fmt.Errorf("could not create transaction: %w", err)
	}

	return nil
}

func (m *WalletManager) payload(wallet *Wallet, transfer *Transfer) ([]byte, error) {
	u := unsigned{
		Network:  m.network.ID(),
		Currency: wallet.Currency().UIDs(),
		Source:   transfer.Source(),
		Target:   transfer.Target(),
		Amount:   transfer.Amount().BaseValue(),
	}
	fee, ok := transfer.Fee()
	if ok {
		u.Fee = fee.BaseValue()
	}
	return cbor.Marshal(u)
}

// EstimateFee estimates the fee of sending the amount to the target at the
// price of the given fee tier. The estimate is expressed in the fee unit of
// the wallet.
func (m *WalletManager) EstimateFee(ctx context.Context, wallet *Wallet, target string, amount currency.Amount, tier NetworkFee) (currency.Amount, error) {

	if tier.PricePerCostFactor.Unit() == nil || !tier.PricePerCostFactor.Unit().IsCompatibleWith(wallet.FeeUnit()) {
		return currency.Amount{}, failure.IncompatibleUnits{
			Description: failure.NewDescription("fee tier is not priced in the network currency",
				failure.WithString("tier", tier.Tier),
			),
			From: unitOf(tier.PricePerCostFactor),
			To:   wallet.FeeUnit().UIDs(),
		}
	}

	if amount.Unit() == nil || !amount.Unit().IsCompatibleWith(wallet.Unit()) {
		return currency.Amount{}, failure.IncompatibleUnits{
			Description: failure.NewDescription("amount is not in a unit of the wallet currency",
				failure.WithString("currency", wallet.Currency().UIDs()),
			),
			From: unitOf(amount),
			To:   wallet.Unit().UIDs(),
		}
	}

	draft := newTransfer("", m.address, target, amount, DirectionSent, TransferStateCreated)
	payload, err := m.payload(wallet, draft)
	if err != nil {
		return currency.Amount{}, fmt.Errorf("could not encode transfer: %w", err)
	}
	signed, hash, err := m.system.crypto.Sign(m.system.account, m.network.ID(), payload)
	if err != nil {
		return currency.Amount{}, fmt.Errorf("could not sign transfer: %w", err)
	}

	estimate, err := m.system.client.EstimateTransactionFee(ctx, m.network.ID(), hash, signed)
	if err != nil {
		return currency.Amount{}, fmt.Errorf("could not estimate fee: %w", err)
	}

	cost := new(big.Int).SetUint64(estimate.CostUnits)
	price := tier.PricePerCostFactor.BaseValue()
	total := new(big.Int).Mul(cost, price)
	base, _ := m.network.BaseUnit(m.network.Currency())

	return currency.NewAmount(total, base).Convert(wallet.FeeUnit())
}

// DeleteTransfer marks the transfer as deleted. It then no longer counts
// towards the balance of the wallet.
func (m *WalletManager) DeleteTransfer(wallet *Wallet, transfer *Transfer) error {

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state == ManagerStateDeleted {
		return m.invalid(ManagerStateDeleted)
	}
	err := m.owns(wallet, transfer)
	if err != nil {
		return err
	}
	old, _, err := transfer.transition(TransferStateDeleted)
	if err != nil {
		return fmt.Errorf("could not delete transfer: %w", err)
	}
	m.emitChanged(wallet, transfer, old, TransferStateDeleted)
	m.system.emitTransfer(m, wallet, transfer, TransferDeleted{})
	m.refresh(wallet)

	err = m.system.store.SaveTransfer(m.network.ID(), transfer.record())
	if err != nil {
		return fmt.Errorf("could not persist deleted transfer: %w", err)
	}

	return nil
}

// owns checks that the wallet belongs to the manager and, if given, that the
// transfer belongs to the wallet. It must be called with the lock held.
func (m *WalletManager) owns(wallet *Wallet, transfer *Transfer) error {
	known, ok := m.byCurrency[wallet.Currency().UIDs()]
	if !ok || known != wallet {
		return failure.InvalidArgument{
			Description: failure.NewDescription("wallet does not belong to the manager",
				failure.WithString("currency", wallet.Currency().UIDs()),
			),
			Argument: "wallet",
		}
	}
	if transfer == nil {
		return nil
	}
	found, ok := wallet.TransferByID(transfer.ID())
	if !ok || found != transfer {
		return failure.InvalidArgument{
			Description: failure.NewDescription("transfer does not belong to the wallet",
				failure.WithString("currency", wallet.Currency().UIDs()),
				failure.WithString("transfer", transfer.ID()),
			),
			Argument: "transfer",
		}
	}
	return nil
}

func unitOf(amount currency.Amount) string {
	if amount.Unit() == nil {
		return ""
	}
	return amount.Unit().UIDs()
}
