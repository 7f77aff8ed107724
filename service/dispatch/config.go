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

package dispatch

// DefaultConfig is the default configuration for the dispatcher.
var DefaultConfig = Config{
	Lanes: 4,
}

// Config contains the configuration options for the dispatcher.
type Config struct {
	Lanes uint
}

// Option is an option that can be given to the dispatcher to configure
// optional parameters on initialization.
type Option func(*Config)

// WithLanes sets the number of independent delivery lanes. Keys that map to
// different lanes are delivered concurrently.
func WithLanes(lanes uint) Option {
	return func(cfg *Config) {
		cfg.Lanes = lanes
	}
}
