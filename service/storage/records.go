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

package storage

import (
	"math/big"
	"time"
)

// CurrentVersion is the schema version written by this code. Databases with
// any other version are refused.
const CurrentVersion = uint64(1)

// Transfer is the persisted form of a wallet transfer. Amounts are expressed
// in base units of the currency.
type Transfer struct {
	ID            string
	Hash          string
	Currency      string
	Source        string
	Target        string
	Amount        *big.Int
	Fee           *big.Int
	State         uint8
	Direction     uint8
	BlockHeight   uint64
	Confirmations uint64
	Timestamp     time.Time
}

// Network is the persisted knowledge about a configured network.
type Network struct {
	ID        string
	Name      string
	Height    uint64
	IsMainnet bool
	Manager   bool
}
