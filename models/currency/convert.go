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
	"math/big"

	"github.com/optakt/walletkit/models/failure"
)

var ten = big.NewInt(10)

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(exp)), nil)
}

// Convert converts a number of `from` units into a number of `to` units. The
// units must be compatible. Converting towards a unit with more decimals can
// lose precision; in that case, the given rounding mode decides the result,
// and RoundExact makes the conversion fail instead.
func Convert(value *big.Int, from *Unit, to *Unit, rounding Rounding) (*big.Int, error) {

	if value == nil {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("missing value to convert"),
			Argument:    "value",
		}
	}
	if !from.IsCompatibleWith(to) {
		return nil, incompatible(from, to)
	}

	shift := int(from.decimals) - int(to.decimals)
	if shift >= 0 {
		return new(big.Int).Mul(value, pow10(shift)), nil
	}

	divisor := pow10(-shift)
	quo, rem := new(big.Int).QuoRem(value, divisor, new(big.Int))
	if rem.Sign() == 0 {
		return quo, nil
	}

	// At this point, the quotient has been truncated towards zero, so any
	// rounding away from zero moves it one step in the direction of the sign.
	away := big.NewInt(int64(value.Sign()))
	switch rounding {

	case RoundDown:
		return quo, nil

	case RoundUp:
		return quo.Add(quo, away), nil

	case RoundHalfEven:
		double := new(big.Int).Abs(rem)
		double.Lsh(double, 1)
		cmp := double.Cmp(divisor)
		if cmp > 0 || (cmp == 0 && quo.Bit(0) == 1) {
			quo.Add(quo, away)
		}
		return quo, nil

	case RoundExact:
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("conversion would lose precision",
				failure.WithString("value", value.String()),
				failure.WithString("from", from.uids),
				failure.WithString("to", to.uids),
			),
			Argument: "value",
		}

	default:
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("unknown rounding mode",
				failure.WithString("rounding", rounding.String()),
			),
			Argument: "rounding",
		}
	}
}

func incompatible(from *Unit, to *Unit) failure.IncompatibleUnits {
	name := func(u *Unit) string {
		if u == nil {
			return "<nil>"
		}
		return u.uids
	}
	return failure.IncompatibleUnits{
		Description: failure.NewDescription("units do not share a base unit"),
		From:        name(from),
		To:          name(to),
	}
}
