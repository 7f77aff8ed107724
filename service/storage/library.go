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

// Codec is what the library uses to turn records into bytes and back.
type Codec interface {
	Marshal(value interface{}) ([]byte, error)
	Unmarshal(data []byte, value interface{}) error
}

// Library is the storage library. It provides the individual operations that
// can be combined into a single Badger transaction.
type Library struct {
	codec Codec
}

// New returns a new storage library using the given codec.
func New(codec Codec) *Library {
	lib := Library{
		codec: codec,
	}

	return &lib
}
