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
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/optakt/walletkit/models/failure"
)

const (
	serializationVersion = 1
	fingerprintSize      = 8
	seedIterations       = 2048
	seedSize             = 64
)

// Account is the identity that owns the wallets of a system. It carries the
// seed derived from the recovery phrase so that a signing capability can
// derive keys from it; the seed is never serialized.
type Account struct {
	uids        string
	timestamp   time.Time
	fingerprint []byte
	seed        []byte
}

// FromPhrase creates an account from a recovery phrase. The timestamp is the
// earliest point in time at which the account may have been used, which
// bounds how far back synchronization needs to go.
func FromPhrase(phrase string, uids string, timestamp time.Time) (*Account, error) {

	words := strings.Fields(phrase)
	if len(words) == 0 {
		return nil, failure.InvalidAccount{
			Description: failure.NewDescription("recovery phrase is empty"),
			UIDs:        uids,
		}
	}

	normalized := strings.Join(words, " ")
	seed := pbkdf2.Key([]byte(normalized), []byte("mnemonic"), seedIterations, seedSize, sha512.New)

	a := Account{
		uids:        uids,
		timestamp:   timestamp.UTC(),
		fingerprint: fingerprint(seed),
		seed:        seed,
	}

	err := a.Validate()
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (a *Account) UIDs() string {
	return a.uids
}

func (a *Account) Timestamp() time.Time {
	return a.timestamp
}

// Fingerprint identifies the account's key material without revealing it.
func (a *Account) Fingerprint() []byte {
	return a.fingerprint
}

// Seed returns the key derivation seed, which is only available on accounts
// created from a phrase.
func (a *Account) Seed() ([]byte, bool) {
	return a.seed, len(a.seed) > 0
}

// Validate checks that the account is usable without needing any network.
func (a *Account) Validate() error {
	if a == nil {
		return failure.InvalidAccount{Description: failure.NewDescription("account is missing")}
	}
	if a.uids == "" {
		return failure.InvalidAccount{
			Description: failure.NewDescription("account UIDs must not be empty"),
		}
	}
	if len(a.fingerprint) != fingerprintSize {
		return failure.InvalidAccount{
			Description: failure.NewDescription("invalid fingerprint length",
				failure.WithInt("length", len(a.fingerprint)),
			),
			UIDs: a.uids,
		}
	}
	if a.seed != nil && !bytes.Equal(fingerprint(a.seed), a.fingerprint) {
		return failure.InvalidAccount{
			Description: failure.NewDescription("seed does not match fingerprint"),
			UIDs:        a.uids,
		}
	}
	if a.timestamp.IsZero() {
		return failure.InvalidAccount{
			Description: failure.NewDescription("account timestamp is missing"),
			UIDs:        a.uids,
		}
	}
	return nil
}

// Serialize encodes the public part of the account as base58check text.
func (a *Account) Serialize() string {
	payload := make([]byte, 0, 1+8+2+len(a.uids)+fingerprintSize)
	payload = append(payload, serializationVersion)
	payload = appendUint64(payload, uint64(a.timestamp.Unix()))
	payload = appendUint16(payload, uint16(len(a.uids)))
	payload = append(payload, a.uids...)
	payload = append(payload, a.fingerprint...)
	return Base58Check{}.Encode(payload)
}

// Deserialize restores an account from its serialized form. The restored
// account has no seed and can only be used for watching.
func Deserialize(text string) (*Account, error) {

	payload, err := Base58Check{}.Decode(text)
	if err != nil {
		return nil, failure.InvalidAccount{
			Description: failure.NewDescription("could not decode serialized account", failure.WithErr(err)),
		}
	}
	if len(payload) < 1+8+2 || payload[0] != serializationVersion {
		return nil, failure.InvalidAccount{
			Description: failure.NewDescription("unsupported account serialization",
				failure.WithInt("length", len(payload)),
			),
		}
	}

	unix := binary.BigEndian.Uint64(payload[1:9])
	size := int(binary.BigEndian.Uint16(payload[9:11]))
	rest := payload[11:]
	if len(rest) != size+fingerprintSize {
		return nil, failure.InvalidAccount{
			Description: failure.NewDescription("truncated account serialization",
				failure.WithInt("length", len(payload)),
			),
		}
	}

	a := Account{
		uids:        string(rest[:size]),
		timestamp:   time.Unix(int64(unix), 0).UTC(),
		fingerprint: append([]byte{}, rest[size:]...),
	}

	err = a.Validate()
	if err != nil {
		return nil, fmt.Errorf("could not validate account: %w", err)
	}

	return &a, nil
}

func fingerprint(seed []byte) []byte {
	sum := sha256.Sum256(seed)
	return sum[:fingerprintSize]
}

func appendUint64(b []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(b, buf[:]...)
}

func appendUint16(b []byte, v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return append(b, buf[:]...)
}
