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

// Combine runs the given operations in order and stops at the first one that
// fails.
func Combine(ops ...func(*badger.Txn) error) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		for _, op := range ops {
			err := op(tx)
			if err != nil {
				return err
			}
		}
		return nil
	}
}

func (l *Library) retrieve(key []byte, value interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			return fmt.Errorf("could not get record (key: %x): %w", key, err)
		}
		err = item.Value(func(data []byte) error {
			return l.codec.Unmarshal(data, value)
		})
		if err != nil {
			return fmt.Errorf("could not decode record (key: %x): %w", key, err)
		}
		return nil
	}
}

// save encodes the value before returning, so callers can pass loop
// variables.
func (l *Library) save(key []byte, value interface{}) func(*badger.Txn) error {
	data, encErr := l.codec.Marshal(value)
	return func(tx *badger.Txn) error {
		if encErr != nil {
			return fmt.Errorf("could not encode record (key: %x): %w", key, encErr)
		}
		err := tx.Set(key, data)
		if err != nil {
			return fmt.Errorf("could not set record (key: %x): %w", key, err)
		}
		return nil
	}
}

// iterate hands every value stored under the prefix to the handler, in key
// order.
func (l *Library) iterate(prefix []byte, handle func(data []byte) error) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(handle)
			if err != nil {
				return fmt.Errorf("could not handle record (key: %x): %w", it.Item().Key(), err)
			}
		}
		return nil
	}
}

// purge deletes every key under the prefix. Keys are collected before the
// iterator is closed and deleted afterwards.
func (l *Library) purge(prefix []byte) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			err := tx.Delete(key)
			if err != nil {
				return fmt.Errorf("could not delete record (key: %x): %w", key, err)
			}
		}
		return nil
	}
}
