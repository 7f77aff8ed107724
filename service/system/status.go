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
	"fmt"
)

// ManagerState is the connection state of a wallet manager.
type ManagerState uint8

// The following are the states of a wallet manager.
const (
	ManagerStateCreated ManagerState = iota + 1
	ManagerStateConnected
	ManagerStateSyncing
	ManagerStateDisconnected
	ManagerStateDeleted
)

// String implements the Stringer interface.
func (s ManagerState) String() string {
	switch s {
	case ManagerStateCreated:
		return "created"
	case ManagerStateConnected:
		return "connected"
	case ManagerStateSyncing:
		return "syncing"
	case ManagerStateDisconnected:
		return "disconnected"
	case ManagerStateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("invalid manager state %d", s)
	}
}

// TransferState is the lifecycle state of a transfer. States only ever move
// forward; Failed and Deleted are terminal.
type TransferState uint8

// The following are the states of a transfer, in lifecycle order.
const (
	TransferStateCreated TransferState = iota + 1
	TransferStateSigning
	TransferStateSubmitted
	TransferStateIncluded
	TransferStateFailed
	TransferStateDeleted
)

// String implements the Stringer interface.
func (s TransferState) String() string {
	switch s {
	case TransferStateCreated:
		return "created"
	case TransferStateSigning:
		return "signing_in_progress"
	case TransferStateSubmitted:
		return "submitted"
	case TransferStateIncluded:
		return "included"
	case TransferStateFailed:
		return "failed"
	case TransferStateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("invalid transfer state %d", s)
	}
}

// IsTerminal returns whether no transition can leave the state.
func (s TransferState) IsTerminal() bool {
	return s == TransferStateFailed || s == TransferStateDeleted
}

// CanMoveTo returns whether a transfer in this state may move to the next
// one.
func (s TransferState) CanMoveTo(next TransferState) bool {
	switch {
	case s.IsTerminal():
		return false
	case next.IsTerminal():
		return true
	case next < TransferStateCreated || next > TransferStateIncluded:
		return false
	default:
		return next > s
	}
}

// Direction is the way a transfer moves funds relative to the wallet.
type Direction uint8

// The following are the directions of a transfer.
const (
	DirectionSent Direction = iota + 1
	DirectionReceived
	DirectionRecovered
)

// String implements the Stringer interface.
func (d Direction) String() string {
	switch d {
	case DirectionSent:
		return "sent"
	case DirectionReceived:
		return "received"
	case DirectionRecovered:
		return "recovered"
	default:
		return fmt.Sprintf("invalid direction %d", d)
	}
}

// StopReason is why a sync pass ended.
type StopReason uint8

// The following are the reasons for which a sync pass stops.
const (
	StopComplete StopReason = iota + 1
	StopError
	StopRequested
)

// String implements the Stringer interface.
func (r StopReason) String() string {
	switch r {
	case StopComplete:
		return "complete"
	case StopError:
		return "error"
	case StopRequested:
		return "requested"
	default:
		return fmt.Sprintf("invalid stop reason %d", r)
	}
}

// DisconnectReason is why a wallet manager became disconnected.
type DisconnectReason uint8

// The following are the reasons for which a wallet manager disconnects.
const (
	DisconnectRequested DisconnectReason = iota + 1
	DisconnectError
)

// String implements the Stringer interface.
func (r DisconnectReason) String() string {
	switch r {
	case DisconnectRequested:
		return "requested"
	case DisconnectError:
		return "error"
	default:
		return fmt.Sprintf("invalid disconnect reason %d", r)
	}
}

// SyncDepth is how far back a sync pass requested with SyncToDepth starts.
type SyncDepth uint8

// The following are the depths a sync pass can start from.
const (
	SyncFromLastConfirmedSend SyncDepth = iota + 1
	SyncFromLastTrustedBlock
	SyncFromCreation
)

// String implements the Stringer interface.
func (d SyncDepth) String() string {
	switch d {
	case SyncFromLastConfirmedSend:
		return "last_confirmed_send"
	case SyncFromLastTrustedBlock:
		return "last_trusted_block"
	case SyncFromCreation:
		return "creation"
	default:
		return fmt.Sprintf("invalid sync depth %d", d)
	}
}
