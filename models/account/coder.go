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
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// Coder converts binary data, such as hashes and addresses, to and from its
// textual representation.
type Coder interface {
	Encode(data []byte) string
	Decode(text string) ([]byte, error)
}

// Hex is the lowercase hexadecimal coder.
type Hex struct{}

func (Hex) Encode(data []byte) string {
	return hex.EncodeToString(data)
}

func (Hex) Decode(text string) ([]byte, error) {
	data, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("could not decode hex: %w", err)
	}
	return data, nil
}

// Base58 is the bitcoin-alphabet base58 coder.
type Base58 struct{}

func (Base58) Encode(data []byte) string {
	return base58.Encode(data)
}

func (Base58) Decode(text string) ([]byte, error) {
	data, err := base58.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("could not decode base58: %w", err)
	}
	return data, nil
}

const checksumSize = 4

// Base58Check is the base58 coder with a trailing four-byte double SHA-256
// checksum.
type Base58Check struct{}

func (Base58Check) Encode(data []byte) string {
	payload := make([]byte, 0, len(data)+checksumSize)
	payload = append(payload, data...)
	payload = append(payload, checksum(data)...)
	return base58.Encode(payload)
}

func (Base58Check) Decode(text string) ([]byte, error) {
	payload, err := base58.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("could not decode base58: %w", err)
	}
	if len(payload) < checksumSize {
		return nil, fmt.Errorf("payload too short for checksum (length: %d)", len(payload))
	}
	data := payload[:len(payload)-checksumSize]
	sum := payload[len(payload)-checksumSize:]
	if !bytes.Equal(sum, checksum(data)) {
		return nil, fmt.Errorf("checksum mismatch (have: %x, want: %x)", sum, checksum(data))
	}
	return data, nil
}

func checksum(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:checksumSize]
}
