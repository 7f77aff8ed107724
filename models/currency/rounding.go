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
)

// Rounding decides what happens when a conversion cannot be represented
// exactly in the target unit.
type Rounding uint8

// The zero value refuses any loss of precision.
const (
	RoundExact Rounding = iota
	RoundDown
	RoundUp
	RoundHalfEven
)

// String implements the Stringer interface.
func (r Rounding) String() string {
	switch r {
	case RoundExact:
		return "exact"
	case RoundDown:
		return "down"
	case RoundUp:
		return "up"
	case RoundHalfEven:
		return "half_even"
	default:
		return fmt.Sprintf("invalid rounding %d", r)
	}
}
