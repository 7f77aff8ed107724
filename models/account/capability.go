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

package account

import (
	"errors"
	"fmt"
)

// Capability is the cryptographic collaborator that knows how to turn an
// account into addresses and signatures for a given network. Key derivation
// and signing schemes live behind this interface.
type Capability interface {
	Address(account *Account, network string) (string, error)
	Sign(account *Account, network string, unsigned []byte) (signed []byte, hash string, err error)
	Recover(network string, signed []byte) (string, error)
}

// ErrWatchOnly is returned when signing is requested from a capability that
// holds no key material.
var ErrWatchOnly = errors.New("watch-only capability cannot sign")

// WatchOnly is a capability for accounts whose addresses are known but whose
// keys are not. It can be used to follow balances and incoming transfers.
type WatchOnly struct {
	addresses map[string]string
}

// NewWatchOnly creates a watch-only capability with one address per network.
func NewWatchOnly(addresses map[string]string) *WatchOnly {
	w := WatchOnly{
		addresses: make(map[string]string, len(addresses)),
	}
	for network, address := range addresses {
		w.addresses[network] = address
	}
	return &w
}

func (w *WatchOnly) Address(_ *Account, network string) (string, error) {
	address, ok := w.addresses[network]
	if !ok {
		return "", fmt.Errorf("no address for network (network: %s)", network)
	}
	return address, nil
}

func (w *WatchOnly) Sign(_ *Account, _ string, _ []byte) ([]byte, string, error) {
	return nil, "", ErrWatchOnly
}

func (w *WatchOnly) Recover(_ string, _ []byte) (string, error) {
	return "", ErrWatchOnly
}
