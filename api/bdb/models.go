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

package bdb

import (
	"encoding/json"
	"math/big"
	"time"
)

// NativeAddress is the address the service reports for native currencies,
// which have no issuing contract.
const NativeAddress = "__native__"

// FeeAddress is the target address of the transfers that pay the fee of a
// transaction.
const FeeAddress = "__fee__"

// The following are the transaction statuses reported by the service.
const (
	StatusConfirmed = "confirmed"
	StatusSubmitted = "submitted"
	StatusReverted  = "reverted"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

// Amount is a quantity of a currency, in base units.
type Amount struct {
	CurrencyID string `json:"currency_id" validate:"required"`
	Value      string `json:"amount" validate:"required,number"`
}

// Int returns the amount as an integer.
func (a Amount) Int() (*big.Int, bool) {
	return new(big.Int).SetString(a.Value, 10)
}

// BlockchainFee is a fee estimate for a given confirmation tier.
type BlockchainFee struct {
	Fee              Amount `json:"fee"`
	Tier             string `json:"tier"`
	ConfirmationTime uint64 `json:"estimated_confirmation_in"`
}

// Blockchain is a chain indexed by the service.
type Blockchain struct {
	ID                      string          `json:"id" validate:"required"`
	Name                    string          `json:"name"`
	Network                 string          `json:"network"`
	IsMainnet               bool            `json:"is_mainnet"`
	CurrencyID              string          `json:"native_currency_id" validate:"required"`
	BlockHeight             *uint64         `json:"-"`
	VerifiedBlockHash       *string         `json:"verified_block_hash,omitempty"`
	FeeEstimates            []BlockchainFee `json:"fee_estimates" validate:"dive"`
	ConfirmationsUntilFinal uint32          `json:"confirmations_until_final"`
}

// The service reports an unknown height as -1.
func (b *Blockchain) UnmarshalJSON(data []byte) error {
	type alias Blockchain
	wire := struct {
		*alias
		BlockHeight *int64 `json:"block_height"`
	}{alias: (*alias)(b)}
	err := json.Unmarshal(data, &wire)
	if err != nil {
		return err
	}
	b.BlockHeight = nil
	if wire.BlockHeight != nil && *wire.BlockHeight >= 0 {
		height := uint64(*wire.BlockHeight)
		b.BlockHeight = &height
	}
	return nil
}

func (b Blockchain) MarshalJSON() ([]byte, error) {
	type alias Blockchain
	height := int64(-1)
	if b.BlockHeight != nil {
		height = int64(*b.BlockHeight)
	}
	wire := struct {
		alias
		BlockHeight int64 `json:"block_height"`
	}{alias: alias(b), BlockHeight: height}
	return json.Marshal(wire)
}

// Denomination is a unit in which a currency can be displayed.
type Denomination struct {
	Name     string `json:"name"`
	Code     string `json:"short_name" validate:"required"`
	Decimals uint8  `json:"decimals"`
}

// Currency is an asset on a blockchain.
type Currency struct {
	ID            string         `json:"currency_id" validate:"required"`
	Name          string         `json:"name"`
	Code          string         `json:"code" validate:"required"`
	Type          string         `json:"type"`
	BlockchainID  string         `json:"blockchain_id" validate:"required"`
	Address       *string        `json:"-"`
	Verified      bool           `json:"verified"`
	Denominations []Denomination `json:"denominations" validate:"dive"`
}

// Native currencies carry a placeholder address on the wire.
func (c *Currency) UnmarshalJSON(data []byte) error {
	type alias Currency
	wire := struct {
		*alias
		Address *string `json:"address"`
	}{alias: (*alias)(c)}
	err := json.Unmarshal(data, &wire)
	if err != nil {
		return err
	}
	c.Address = nil
	if wire.Address != nil && *wire.Address != NativeAddress && *wire.Address != "" {
		c.Address = wire.Address
	}
	return nil
}

func (c Currency) MarshalJSON() ([]byte, error) {
	type alias Currency
	address := NativeAddress
	if c.Address != nil {
		address = *c.Address
	}
	wire := struct {
		alias
		Address string `json:"address"`
	}{alias: alias(c), Address: address}
	return json.Marshal(wire)
}

// Transfer is the movement of an amount between two addresses, as part of a
// transaction.
type Transfer struct {
	ID               string            `json:"transfer_id" validate:"required"`
	BlockchainID     string            `json:"blockchain_id"`
	Index            uint64            `json:"index"`
	Amount           Amount            `json:"amount"`
	Acknowledgements uint64            `json:"acknowledgements"`
	Source           string            `json:"from_address"`
	Target           string            `json:"to_address"`
	TransactionID    string            `json:"transaction_id"`
	Meta             map[string]string `json:"meta,omitempty"`
}

// Transaction is a transaction as seen by the service. Raw and Proof are only
// present if they were requested, and Transfers if the service embedded them.
type Transaction struct {
	ID               string     `json:"transaction_id" validate:"required"`
	BlockchainID     string     `json:"blockchain_id"`
	Hash             string     `json:"hash" validate:"required"`
	Identifier       string     `json:"identifier"`
	Status           string     `json:"status" validate:"required"`
	Size             uint64     `json:"size"`
	Fee              *Amount    `json:"fee,omitempty"`
	Acknowledgements uint64     `json:"acknowledgements"`
	FirstSeen        *time.Time `json:"first_seen,omitempty"`
	BlockHash        *string    `json:"block_hash,omitempty"`
	BlockHeight      *uint64    `json:"block_height,omitempty"`
	Index            *uint64    `json:"index,omitempty"`
	Confirmations    *uint64    `json:"confirmations,omitempty"`
	Timestamp        *time.Time `json:"timestamp,omitempty"`
	Raw              []byte     `json:"raw,omitempty"`
	Proof            *string    `json:"proof,omitempty"`
	Transfers        []Transfer `json:"-" validate:"dive"`
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	wire := struct {
		*alias
		Embedded *struct {
			Transfers []Transfer `json:"transfers"`
		} `json:"_embedded"`
	}{alias: (*alias)(t)}
	err := json.Unmarshal(data, &wire)
	if err != nil {
		return err
	}
	t.Transfers = nil
	if wire.Embedded != nil {
		t.Transfers = wire.Embedded.Transfers
	}
	return nil
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	type embedded struct {
		Transfers []Transfer `json:"transfers"`
	}
	type alias Transaction
	wire := struct {
		alias
		Embedded *embedded `json:"_embedded,omitempty"`
	}{alias: alias(t)}
	if t.Transfers != nil {
		wire.Embedded = &embedded{Transfers: t.Transfers}
	}
	return json.Marshal(wire)
}

// Block is a block of a blockchain.
type Block struct {
	ID               string        `json:"block_id" validate:"required"`
	BlockchainID     string        `json:"blockchain_id"`
	Hash             string        `json:"hash" validate:"required"`
	Height           uint64        `json:"height"`
	Mined            time.Time     `json:"mined"`
	Size             uint64        `json:"size"`
	Acknowledgements uint64        `json:"acknowledgements"`
	PrevHash         *string       `json:"prev_hash,omitempty"`
	NextHash         *string       `json:"next_hash,omitempty"`
	Header           []byte        `json:"header,omitempty"`
	Raw              []byte        `json:"raw,omitempty"`
	Transactions     []Transaction `json:"-" validate:"dive"`
}

func (b *Block) UnmarshalJSON(data []byte) error {
	type alias Block
	wire := struct {
		*alias
		Embedded *struct {
			Transactions []Transaction `json:"transactions"`
		} `json:"_embedded"`
	}{alias: (*alias)(b)}
	err := json.Unmarshal(data, &wire)
	if err != nil {
		return err
	}
	b.Transactions = nil
	if wire.Embedded != nil {
		b.Transactions = wire.Embedded.Transactions
	}
	return nil
}

func (b Block) MarshalJSON() ([]byte, error) {
	type embedded struct {
		Transactions []Transaction `json:"transactions"`
	}
	type alias Block
	wire := struct {
		alias
		Embedded *embedded `json:"_embedded,omitempty"`
	}{alias: alias(b)}
	if b.Transactions != nil {
		wire.Embedded = &embedded{Transactions: b.Transactions}
	}
	return json.Marshal(wire)
}

// Endpoint is where a subscription delivers its notifications.
type Endpoint struct {
	Environment string `json:"environment"`
	Kind        string `json:"kind" validate:"required"`
	Value       string `json:"value" validate:"required"`
}

// SubscriptionEvent is an event kind a subscription is interested in, with the
// confirmation counts at which it should fire.
type SubscriptionEvent struct {
	Name          string   `json:"name" validate:"required"`
	Confirmations []uint32 `json:"confirmations,omitempty"`
}

// SubscriptionCurrency selects the addresses watched for one currency.
type SubscriptionCurrency struct {
	CurrencyID string              `json:"currency_id" validate:"required"`
	Addresses  []string            `json:"addresses"`
	Events     []SubscriptionEvent `json:"events" validate:"dive"`
}

// Subscription is a registration for server-side notifications.
type Subscription struct {
	ID         string                 `json:"subscription_id,omitempty"`
	DeviceID   string                 `json:"device_id" validate:"required"`
	Endpoint   Endpoint               `json:"endpoint"`
	Currencies []SubscriptionCurrency `json:"currencies" validate:"dive"`
}

// FeeEstimate is the cost of a transaction estimated by the service, in units
// of the chain's fee basis.
type FeeEstimate struct {
	CostUnits  uint64            `json:"cost_units"`
	Properties map[string]string `json:"properties,omitempty"`
}

type submission struct {
	BlockchainID string `json:"blockchain_id"`
	Hash         string `json:"transaction_id"`
	Data         []byte `json:"data"`
}

type link struct {
	Href string `json:"href"`
}

type page struct {
	Embedded map[string]json.RawMessage `json:"_embedded"`
	Links    struct {
		Next *link `json:"next"`
	} `json:"_links"`
}
