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

package currency

import (
	"github.com/optakt/walletkit/models/failure"
)

// Unit is a denomination of a currency. Every currency has exactly one base
// unit with zero decimals; every other unit expresses amounts as a number of
// base units shifted by its decimals.
type Unit struct {
	uids     string
	currency *Currency
	name     string
	symbol   string
	decimals uint8
	base     *Unit
}

// NewBaseUnit creates the base unit of the given currency.
func NewBaseUnit(currency *Currency, uids string, name string, symbol string) (*Unit, error) {

	if currency == nil {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("unit needs a currency", failure.WithString("uids", uids)),
			Argument:    "currency",
		}
	}
	if uids == "" {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("unit UIDs must not be empty", failure.WithString("currency", currency.UIDs())),
			Argument:    "uids",
		}
	}

	u := Unit{
		uids:     uids,
		currency: currency,
		name:     name,
		symbol:   symbol,
		decimals: 0,
	}
	u.base = &u

	return &u, nil
}

// NewUnit creates a derived unit of the given currency, worth 10^decimals of
// the given base unit.
func NewUnit(currency *Currency, uids string, name string, symbol string, base *Unit, decimals uint8) (*Unit, error) {

	if currency == nil {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("unit needs a currency", failure.WithString("uids", uids)),
			Argument:    "currency",
		}
	}
	if uids == "" {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("unit UIDs must not be empty", failure.WithString("currency", currency.UIDs())),
			Argument:    "uids",
		}
	}
	if base == nil || !base.IsBase() {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("derived unit needs a base unit", failure.WithString("uids", uids)),
			Argument:    "base",
		}
	}
	if !base.HasCurrency(currency) {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("base unit belongs to another currency",
				failure.WithString("uids", uids),
				failure.WithString("currency", currency.UIDs()),
				failure.WithString("base_currency", base.Currency().UIDs()),
			),
			Argument: "base",
		}
	}
	if decimals == 0 {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("derived unit must have decimals", failure.WithString("uids", uids)),
			Argument:    "decimals",
		}
	}

	u := Unit{
		uids:     uids,
		currency: currency,
		name:     name,
		symbol:   symbol,
		decimals: decimals,
		base:     base,
	}

	return &u, nil
}

func (u *Unit) UIDs() string {
	return u.uids
}

func (u *Unit) Currency() *Currency {
	return u.currency
}

func (u *Unit) Name() string {
	return u.name
}

func (u *Unit) Symbol() string {
	return u.symbol
}

func (u *Unit) Decimals() uint8 {
	return u.decimals
}

// Base returns the base unit, which is the unit itself for base units.
func (u *Unit) Base() *Unit {
	return u.base
}

func (u *Unit) IsBase() bool {
	return u.base == u
}

// IsCompatibleWith returns whether both units resolve to the same base unit.
func (u *Unit) IsCompatibleWith(other *Unit) bool {
	if u == nil || other == nil {
		return false
	}
	return u.base.uids == other.base.uids
}

// HasCurrency returns whether the unit is a denomination of the given
// currency.
func (u *Unit) HasCurrency(currency *Currency) bool {
	if u == nil {
		return false
	}
	return u.currency.Equal(currency)
}

// Equal returns whether both units have the same UIDs.
func (u *Unit) Equal(other *Unit) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.uids == other.uids
}

func (u *Unit) String() string {
	return u.symbol
}
