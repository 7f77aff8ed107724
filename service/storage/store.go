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
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"

	"github.com/optakt/walletkit/models/failure"
)

// DefaultOptions returns the Badger options used for wallet state, which is
// small and written in short bursts. An empty directory means the state
// only lives in memory.
func DefaultOptions(dir string) badger.Options {
	opts := badger.DefaultOptions(dir).
		WithNumMemtables(1).
		WithNumLevelZeroTables(1).
		WithNumLevelZeroTablesStall(2).
		WithValueLogFileSize(16 << 20).
		WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return opts
}

// Store persists wallet state for a system.
type Store struct {
	log  zerolog.Logger
	db   *badger.DB
	lib  *Library
	path string
	once *sync.Once
}

// Open opens the database at the given path and checks that it holds state
// this code can understand. A corrupted database or one of another schema
// version results in an IncompatibleState error.
func Open(log zerolog.Logger, path string, codec Codec) (*Store, error) {

	db, err := badger.Open(DefaultOptions(path))
	if err != nil {
		return nil, failure.IncompatibleState{
			Description: failure.NewDescription("could not open database", failure.WithErr(err)),
			Path:        path,
		}
	}

	s := Store{
		log:  log.With().Str("component", "storage").Str("path", path).Logger(),
		db:   db,
		lib:  New(codec),
		path: path,
		once: &sync.Once{},
	}

	err = s.check()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &s, nil
}

// FromDB wraps an already opened database, and initializes or checks its
// schema version.
func FromDB(log zerolog.Logger, db *badger.DB, codec Codec) (*Store, error) {

	s := Store{
		log:  log.With().Str("component", "storage").Logger(),
		db:   db,
		lib:  New(codec),
		once: &sync.Once{},
	}

	err := s.check()
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *Store) check() error {

	var version uint64
	err := s.db.View(s.lib.RetrieveVersion(&version))
	if errors.Is(err, badger.ErrKeyNotFound) {
		s.log.Debug().Uint64("version", CurrentVersion).Msg("initializing empty database")
		err = s.db.Update(s.lib.SaveVersion(CurrentVersion))
		if err != nil {
			return fmt.Errorf("could not save schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return failure.IncompatibleState{
			Description: failure.NewDescription("could not read schema version", failure.WithErr(err)),
			Path:        s.path,
		}
	}
	if version != CurrentVersion {
		return failure.IncompatibleState{
			Description: failure.NewDescription("unsupported schema version",
				failure.WithUint64("have", version),
				failure.WithUint64("want", CurrentVersion),
			),
			Path: s.path,
		}
	}

	return nil
}

// Height returns the height up to which the network was synchronized, if it
// ever was.
func (s *Store) Height(network string) (uint64, bool, error) {
	var height uint64
	err := s.db.View(s.lib.RetrieveHeight(network, &height))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not retrieve height: %w", err)
	}
	return height, true, nil
}

// Transfers returns every persisted transfer of the network.
func (s *Store) Transfers(network string) ([]Transfer, error) {
	var transfers []Transfer
	err := s.db.View(s.lib.RetrieveTransfers(network, &transfers))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve transfers: %w", err)
	}
	return transfers, nil
}

// Networks returns every persisted network.
func (s *Store) Networks() ([]Network, error) {
	var networks []Network
	err := s.db.View(s.lib.RetrieveNetworks(&networks))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve networks: %w", err)
	}
	return networks, nil
}

// SaveNetwork writes what is known about a network.
func (s *Store) SaveNetwork(network Network) error {
	err := s.db.Update(s.lib.SaveNetwork(network))
	if err != nil {
		return fmt.Errorf("could not save network: %w", err)
	}
	return nil
}

// Checkpoint atomically writes the given transfers together with the height
// up to which they were synchronized.
func (s *Store) Checkpoint(network string, height uint64, transfers []Transfer) error {
	ops := make([]func(*badger.Txn) error, 0, len(transfers)+1)
	for _, transfer := range transfers {
		ops = append(ops, s.lib.SaveTransfer(network, transfer))
	}
	ops = append(ops, s.lib.SaveHeight(network, height))

	err := s.db.Update(Combine(ops...))
	if err != nil {
		return fmt.Errorf("could not save checkpoint: %w", err)
	}

	s.log.Debug().
		Str("network", network).
		Uint64("height", height).
		Int("transfers", len(transfers)).
		Msg("checkpoint saved")

	return nil
}

// SaveTransfer writes a single transfer without touching the height.
func (s *Store) SaveTransfer(network string, transfer Transfer) error {
	err := s.db.Update(s.lib.SaveTransfer(network, transfer))
	if err != nil {
		return fmt.Errorf("could not save transfer: %w", err)
	}
	return nil
}

// DeleteNetwork removes everything stored about the network.
func (s *Store) DeleteNetwork(network string) error {
	err := s.db.Update(s.lib.DeleteNetwork(network))
	if err != nil {
		return fmt.Errorf("could not delete network: %w", err)
	}
	return nil
}

// Close closes the underlying database. It is safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}

// Wipe removes all persisted state at the given path. The store using it
// must be closed first.
func Wipe(path string) error {
	if path == "" {
		return nil
	}
	err := os.RemoveAll(path)
	if err != nil {
		return fmt.Errorf("could not remove storage directory: %w", err)
	}
	return nil
}
