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
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/optakt/walletkit/api/bdb"
	"github.com/optakt/walletkit/models/currency"
	"github.com/optakt/walletkit/models/failure"
)

// NetworkFee is the price paid per unit of transaction cost to be included
// within the given confirmation time.
type NetworkFee struct {
	Tier               string
	ConfirmationTime   time.Duration
	PricePerCostFactor currency.Amount
}

// Network is a blockchain known to the system, with the currencies it
// supports and their units.
type Network struct {
	mutex         *sync.RWMutex
	id            string
	name          string
	mainnet       bool
	native        *currency.Currency
	currencies    []*currency.Currency
	byUIDs        map[string]*currency.Currency
	units         map[string][]*currency.Unit
	bases         map[string]*currency.Unit
	defaults      map[string]*currency.Unit
	height        uint64
	fees          []NetworkFee
	confirmations uint32
}

// NewNetwork builds a network from a blockchain and the currencies it
// supports. The native currency of the blockchain must be among them.
func NewNetwork(blockchain bdb.Blockchain, currencies []bdb.Currency) (*Network, error) {

	n := Network{
		mutex:         &sync.RWMutex{},
		id:            blockchain.ID,
		name:          blockchain.Name,
		mainnet:       blockchain.IsMainnet,
		byUIDs:        make(map[string]*currency.Currency),
		units:         make(map[string][]*currency.Unit),
		bases:         make(map[string]*currency.Unit),
		defaults:      make(map[string]*currency.Unit),
		confirmations: blockchain.ConfirmationsUntilFinal,
	}

	for _, wire := range currencies {
		if wire.BlockchainID != blockchain.ID {
			continue
		}
		err := n.addCurrency(wire)
		if err != nil {
			return nil, fmt.Errorf("could not add currency (currency: %s): %w", wire.ID, err)
		}
	}

	native, ok := n.byUIDs[blockchain.CurrencyID]
	if !ok {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("native currency not among network currencies",
				failure.WithString("network", blockchain.ID),
				failure.WithString("currency", blockchain.CurrencyID),
			),
			Argument: "currencies",
		}
	}
	n.native = native

	if blockchain.BlockHeight != nil {
		n.height = *blockchain.BlockHeight
	}
	fees, err := n.convertFees(blockchain.FeeEstimates)
	if err != nil {
		return nil, fmt.Errorf("could not convert fees: %w", err)
	}
	n.fees = fees

	return &n, nil
}

func (n *Network) addCurrency(wire bdb.Currency) error {

	typ := currency.Type(wire.Type)
	if typ == "" {
		typ = currency.TypeNative
		if wire.Address != nil {
			typ = currency.TypeERC20
		}
	}
	issuer := ""
	if wire.Address != nil {
		issuer = *wire.Address
	}
	c, err := currency.New(wire.ID, wire.Name, wire.Code, typ, issuer)
	if err != nil {
		return fmt.Errorf("could not create currency: %w", err)
	}

	denominations := append([]bdb.Denomination(nil), wire.Denominations...)
	sort.SliceStable(denominations, func(i int, j int) bool {
		return denominations[i].Decimals < denominations[j].Decimals
	})

	var base *currency.Unit
	if len(denominations) > 0 && denominations[0].Decimals == 0 {
		d := denominations[0]
		base, err = currency.NewBaseUnit(c, unitUIDs(c, d.Code), d.Name, d.Code)
		denominations = denominations[1:]
	} else {
		base, err = currency.NewBaseUnit(c, unitUIDs(c, "__base__"), wire.Name+" base unit", wire.Code+"i")
	}
	if err != nil {
		return fmt.Errorf("could not create base unit: %w", err)
	}

	units := []*currency.Unit{base}
	def := base
	for _, d := range denominations {
		unit, err := currency.NewUnit(c, unitUIDs(c, d.Code), d.Name, d.Code, base, d.Decimals)
		if err != nil {
			return fmt.Errorf("could not create unit (code: %s): %w", d.Code, err)
		}
		units = append(units, unit)
		def = unit
	}
	for _, unit := range units {
		if strings.EqualFold(unit.Symbol(), c.Code()) {
			def = unit
		}
	}

	n.currencies = append(n.currencies, c)
	n.byUIDs[c.UIDs()] = c
	n.units[c.UIDs()] = units
	n.bases[c.UIDs()] = base
	n.defaults[c.UIDs()] = def

	return nil
}

func unitUIDs(c *currency.Currency, code string) string {
	return fmt.Sprintf("%s:%s", c.UIDs(), strings.ToLower(code))
}

func (n *Network) convertFees(estimates []bdb.BlockchainFee) ([]NetworkFee, error) {
	fees := make([]NetworkFee, 0, len(estimates))
	for _, estimate := range estimates {
		price, ok := estimate.Fee.Int()
		if !ok {
			return nil, failure.InvalidArgument{
				Description: failure.NewDescription("fee is not an integer",
					failure.WithString("tier", estimate.Tier),
					failure.WithString("fee", estimate.Fee.Value),
				),
				Argument: "fee",
			}
		}
		c, ok := n.byUIDs[estimate.Fee.CurrencyID]
		if !ok {
			c = n.native
		}
		fee := NetworkFee{
			Tier:               estimate.Tier,
			ConfirmationTime:   time.Duration(estimate.ConfirmationTime) * time.Millisecond,
			PricePerCostFactor: currency.NewAmount(price, n.bases[c.UIDs()]),
		}
		fees = append(fees, fee)
	}
	return fees, nil
}

// update refreshes the height and fees of the network. It returns whether
// anything changed.
func (n *Network) update(blockchain bdb.Blockchain) (bool, error) {

	fees, err := n.convertFees(blockchain.FeeEstimates)
	if err != nil {
		return false, fmt.Errorf("could not convert fees: %w", err)
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	changed := !sameFees(n.fees, fees)
	n.fees = fees
	if blockchain.BlockHeight != nil && *blockchain.BlockHeight != n.height {
		n.height = *blockchain.BlockHeight
		changed = true
	}

	return changed, nil
}

// advance moves the height forward. It returns false if the height was
// already at or above the given one.
func (n *Network) advance(height uint64) bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if height <= n.height {
		return false
	}
	n.height = height
	return true
}

func sameFees(a []NetworkFee, b []NetworkFee) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Tier != b[i].Tier || a[i].ConfirmationTime != b[i].ConfirmationTime {
			return false
		}
		cmp, err := a[i].PricePerCostFactor.Compare(b[i].PricePerCostFactor)
		if err != nil || cmp != 0 {
			return false
		}
	}
	return true
}

func (n *Network) ID() string {
	return n.id
}

func (n *Network) Name() string {
	return n.name
}

func (n *Network) IsMainnet() bool {
	return n.mainnet
}

// Height returns the last known chain tip.
func (n *Network) Height() uint64 {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return n.height
}

// Fees returns the fee tiers of the network, fastest first as reported by
// the blockchain database.
func (n *Network) Fees() []NetworkFee {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return append([]NetworkFee(nil), n.fees...)
}

// ConfirmationsUntilFinal is how many confirmations make a transfer final.
func (n *Network) ConfirmationsUntilFinal() uint32 {
	return n.confirmations
}

// Currency returns the native currency of the network.
func (n *Network) Currency() *currency.Currency {
	return n.native
}

func (n *Network) Currencies() []*currency.Currency {
	return append([]*currency.Currency(nil), n.currencies...)
}

// CurrencyByUIDs returns the network currency with the given UIDs.
func (n *Network) CurrencyByUIDs(uids string) (*currency.Currency, bool) {
	c, ok := n.byUIDs[uids]
	return c, ok
}

// HasCurrency returns whether the currency is supported by the network.
func (n *Network) HasCurrency(c *currency.Currency) bool {
	_, ok := n.byUIDs[c.UIDs()]
	return ok
}

// Units returns every unit of the currency, base unit first.
func (n *Network) Units(c *currency.Currency) []*currency.Unit {
	return append([]*currency.Unit(nil), n.units[c.UIDs()]...)
}

func (n *Network) BaseUnit(c *currency.Currency) (*currency.Unit, bool) {
	unit, ok := n.bases[c.UIDs()]
	return unit, ok
}

// DefaultUnit returns the unit amounts of the currency are displayed in.
func (n *Network) DefaultUnit(c *currency.Currency) (*currency.Unit, bool) {
	unit, ok := n.defaults[c.UIDs()]
	return unit, ok
}

func (n *Network) String() string {
	return n.id
}
