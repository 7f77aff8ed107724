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

package system

import (
	"github.com/optakt/walletkit/service/storage"
)

// DefaultConfig is the default configuration of the system.
var DefaultConfig = Config{
	Lanes:      4,
	SyncWindow: 1000,
	PageSize:   0,
}

// Config contains the optional parameters of the system.
type Config struct {
	Lanes      uint
	SyncWindow uint64
	PageSize   uint
	Codec      storage.Codec
}

// Option is an option that can be given to the system to configure optional
// parameters on initialization.
type Option func(*Config)

// WithLanes sets how many event delivery lanes are used. Events of a given
// network are always delivered on the same lane.
func WithLanes(lanes uint) Option {
	return func(cfg *Config) {
		cfg.Lanes = lanes
	}
}

// WithSyncWindow sets how many blocks are fetched between two checkpoints of
// a sync pass. Progress is reported once per window.
func WithSyncWindow(window uint64) Option {
	return func(cfg *Config) {
		cfg.SyncWindow = window
	}
}

// WithPageSize sets the page size hint used when fetching transactions. Zero
// uses the default of the client.
func WithPageSize(size uint) Option {
	return func(cfg *Config) {
		cfg.PageSize = size
	}
}

// WithCodec sets the codec used to encode persisted state. By default, state
// is encoded with compressed CBOR.
func WithCodec(codec storage.Codec) Option {
	return func(cfg *Config) {
		cfg.Codec = codec
	}
}
