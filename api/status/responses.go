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

package status

type Network struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Mainnet  bool   `json:"mainnet"`
	Height   uint64 `json:"height"`
	Currency string `json:"currency"`
	Fees     []Fee  `json:"fees"`
}

type Fee struct {
	Tier      string `json:"tier"`
	PricePer  string `json:"price_per_cost_factor"`
	ConfirmIn string `json:"confirmation_time"`
}

type Manager struct {
	Network string   `json:"network"`
	Address string   `json:"address"`
	State   string   `json:"state"`
	Wallets []Wallet `json:"wallets"`
}

type Wallet struct {
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Transfers int    `json:"transfers"`
}
