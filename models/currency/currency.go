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

// Type is the kind of asset a currency represents on its blockchain.
type Type string

// The following currency types are known to the blockchain database. Other
// values are passed through unchanged.
const (
	TypeNative Type = "native"
	TypeERC20  Type = "erc20"
)

// Currency is an immutable description of an asset. Two currencies are the
// same currency if and only if they have the same UIDs.
type Currency struct {
	uids   string
	name   string
	code   string
	typ    Type
	issuer string
}

// New creates a new currency. The issuer is optional and should be left
// empty for native currencies.
func New(uids string, name string, code string, typ Type, issuer string) (*Currency, error) {

	if uids == "" {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("currency UIDs must not be empty",
				failure.WithString("code", code),
			),
			Argument: "uids",
		}
	}
	if code == "" {
		return nil, failure.InvalidArgument{
			Description: failure.NewDescription("currency code must not be empty",
				failure.WithString("uids", uids),
			),
			Argument: "code",
		}
	}

	c := Currency{
		uids:   uids,
		name:   name,
		code:   code,
		typ:    typ,
		issuer: issuer,
	}

	return &c, nil
}

func (c *Currency) UIDs() string {
	return c.uids
}

func (c *Currency) Name() string {
	return c.name
}

func (c *Currency) Code() string {
	return c.code
}

func (c *Currency) Type() Type {
	return c.typ
}

// Issuer returns the issuing contract or account of the currency, if it has
// one.
func (c *Currency) Issuer() (string, bool) {
	return c.issuer, c.issuer != ""
}

// Equal returns whether both currencies have the same UIDs.
func (c *Currency) Equal(other *Currency) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.uids == other.uids
}

func (c *Currency) String() string {
	return c.code
}
