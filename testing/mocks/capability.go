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

package mocks

import (
	"testing"

	"github.com/optakt/walletkit/models/account"
)

type Capability struct {
	AddressFunc func(account *account.Account, network string) (string, error)
	SignFunc    func(account *account.Account, network string, unsigned []byte) ([]byte, string, error)
	RecoverFunc func(network string, signed []byte) (string, error)
}

func BaselineCapability(t *testing.T) *Capability {
	t.Helper()

	c := Capability{
		AddressFunc: func(*account.Account, string) (string, error) {
			return GenericAddress, nil
		},
		SignFunc: func(_ *account.Account, _ string, unsigned []byte) ([]byte, string, error) {
			return unsigned, GenericHash, nil
		},
		RecoverFunc: func(string, []byte) (string, error) {
			return GenericAddress, nil
		},
	}

	return &c
}

func (c *Capability) Address(account *account.Account, network string) (string, error) {
	return c.AddressFunc(account, network)
}

func (c *Capability) Sign(account *account.Account, network string, unsigned []byte) ([]byte, string, error) {
	return c.SignFunc(account, network, unsigned)
}

func (c *Capability) Recover(network string, signed []byte) (string, error) {
	return c.RecoverFunc(network, signed)
}
