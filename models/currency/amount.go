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
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/optakt/walletkit/models/failure"
)

// Amount is a signed quantity of a currency. It is stored as an integer
// number of base units, and is displayed in its unit.
type Amount struct {
	value *big.Int
	unit  *Unit
}

// NewAmount creates an amount of `count` times the given unit.
func NewAmount(count *big.Int, unit *Unit) Amount {
	value := new(big.Int).Mul(count, pow10(int(unit.decimals)))
	return Amount{value: value, unit: unit}
}

// NewAmountInt64 is a shorthand for NewAmount with a small integer count.
func NewAmountInt64(count int64, unit *Unit) Amount {
	return NewAmount(big.NewInt(count), unit)
}

// ZeroAmount returns an empty amount displayed in the given unit.
func ZeroAmount(unit *Unit) Amount {
	return Amount{value: new(big.Int), unit: unit}
}

// ParseAmount parses a decimal string expressed in the given unit, such as
// "0.015" for a unit with eight decimals. It fails if the string carries more
// precision than the base unit can represent.
func ParseAmount(text string, unit *Unit) (Amount, error) {

	dec, err := decimal.NewFromString(text)
	if err != nil {
		return Amount{}, failure.InvalidArgument{
			Description: failure.NewDescription("amount is not a decimal number",
				failure.WithString("text", text),
				failure.WithErr(err),
			),
			Argument: "text",
		}
	}

	shifted := dec.Shift(int32(unit.decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return Amount{}, failure.InvalidArgument{
			Description: failure.NewDescription("amount is more precise than the base unit",
				failure.WithString("text", text),
				failure.WithString("unit", unit.uids),
			),
			Argument: "text",
		}
	}

	return Amount{value: shifted.BigInt(), unit: unit}, nil
}

func (a Amount) Unit() *Unit {
	return a.unit
}

// BaseValue returns the amount as a number of base units.
func (a Amount) BaseValue() *big.Int {
	if a.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.value)
}

// Integer returns the amount as a whole number of its unit.
func (a Amount) Integer(rounding Rounding) (*big.Int, error) {
	return Convert(a.BaseValue(), a.unit.base, a.unit, rounding)
}

// Decimal returns the exact amount expressed in its unit.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.BaseValue(), -int32(a.unit.decimals))
}

// Convert returns the same amount displayed in another compatible unit. It
// never loses precision.
func (a Amount) Convert(to *Unit) (Amount, error) {
	if !a.unit.IsCompatibleWith(to) {
		return Amount{}, incompatible(a.unit, to)
	}
	return Amount{value: a.BaseValue(), unit: to}, nil
}

// Add returns the sum of both amounts in the unit of the receiver.
func (a Amount) Add(other Amount) (Amount, error) {
	if !a.unit.IsCompatibleWith(other.unit) {
		return Amount{}, incompatible(a.unit, other.unit)
	}
	sum := new(big.Int).Add(a.BaseValue(), other.BaseValue())
	return Amount{value: sum, unit: a.unit}, nil
}

// Sub returns the difference of both amounts in the unit of the receiver.
func (a Amount) Sub(other Amount) (Amount, error) {
	if !a.unit.IsCompatibleWith(other.unit) {
		return Amount{}, incompatible(a.unit, other.unit)
	}
	diff := new(big.Int).Sub(a.BaseValue(), other.BaseValue())
	return Amount{value: diff, unit: a.unit}, nil
}

func (a Amount) Negate() Amount {
	return Amount{value: new(big.Int).Neg(a.BaseValue()), unit: a.unit}
}

// Compare returns -1, 0 or +1 depending on whether the receiver is smaller
// than, equal to or greater than the other amount.
func (a Amount) Compare(other Amount) (int, error) {
	if !a.unit.IsCompatibleWith(other.unit) {
		return 0, incompatible(a.unit, other.unit)
	}
	return a.BaseValue().Cmp(other.BaseValue()), nil
}

func (a Amount) IsZero() bool {
	return a.value == nil || a.value.Sign() == 0
}

func (a Amount) IsNegative() bool {
	return a.value != nil && a.value.Sign() < 0
}

func (a Amount) String() string {
	if a.unit == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s", a.Decimal().String(), a.unit.symbol)
}
