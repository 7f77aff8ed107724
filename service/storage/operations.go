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
	"fmt"

	"github.com/dgraph-io/badger/v2"
)

// SaveVersion is an operation that writes the schema version of the database.
func (l *Library) SaveVersion(version uint64) func(*badger.Txn) error {
	return l.save(EncodeKey(PrefixVersion), version)
}

// RetrieveVersion is an operation that reads the schema version of the database.
func (l *Library) RetrieveVersion(version *uint64) func(*badger.Txn) error {
	return l.retrieve(EncodeKey(PrefixVersion), version)
}

// SaveHeight is an operation that writes the height up to which the given
// network has been synchronized.
func (l *Library) SaveHeight(network string, height uint64) func(*badger.Txn) error {
	return l.save(EncodeKey(PrefixHeight, network), height)
}

// RetrieveHeight is an operation that reads the synchronized height of the
// given network.
func (l *Library) RetrieveHeight(network string, height *uint64) func(*badger.Txn) error {
	return l.retrieve(EncodeKey(PrefixHeight, network), height)
}

// SaveNetwork is an operation that writes what is known about a network.
func (l *Library) SaveNetwork(network Network) func(*badger.Txn) error {
	return l.save(EncodeKey(PrefixNetwork, network.ID), network)
}

// RetrieveNetworks is an operation that reads every saved network.
func (l *Library) RetrieveNetworks(networks *[]Network) func(*badger.Txn) error {
	return l.iterate(EncodeKey(PrefixNetwork), func(val []byte) error {
		var network Network
		err := l.codec.Unmarshal(val, &network)
		if err != nil {
			return fmt.Errorf("could not decode network: %w", err)
		}
		*networks = append(*networks, network)
		return nil
	})
}

// SaveTransfer is an operation that writes a transfer of the given network.
// Saving a transfer with an existing ID replaces it.
func (l *Library) SaveTransfer(network string, transfer Transfer) func(*badger.Txn) error {
	return l.save(EncodeKey(PrefixTransfer, network, transfer.ID), transfer)
}

// RetrieveTransfers is an operation that reads all transfers of the given
// network.
func (l *Library) RetrieveTransfers(network string, transfers *[]Transfer) func(*badger.Txn) error {
	return l.iterate(EncodeKey(PrefixTransfer, network), func(val []byte) error {
		var transfer Transfer
		err := l.codec.Unmarshal(val, &transfer)
		if err != nil {
			return fmt.Errorf("could not decode transfer: %w", err)
		}
		*transfers = append(*transfers, transfer)
		return nil
	})
}

// DeleteNetwork is an operation that removes everything stored about the
// given network.
func (l *Library) DeleteNetwork(network string) func(*badger.Txn) error {
	return Combine(
		l.purge(EncodeKey(PrefixTransfer, network)),
		deleteKey(EncodeKey(PrefixHeight, network)),
		deleteKey(EncodeKey(PrefixNetwork, network)),
	)
}

func deleteKey(key []byte) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		return tx.Delete(key)
	}
}
