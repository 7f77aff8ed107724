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
	"context"
	"fmt"

	"github.com/optakt/walletkit/api/bdb"
)

type syncStatus uint8

const (
	syncInitialize syncStatus = iota + 1
	syncTip
	syncScan
	syncComplete
)

func (s syncStatus) String() string {
	switch s {
	case syncInitialize:
		return "initialize"
	case syncTip:
		return "tip"
	case syncScan:
		return "scan"
	case syncComplete:
		return "complete"
	default:
		return fmt.Sprintf("invalid sync status %d", s)
	}
}

// syncState is the state of one sync pass. The pass scans the half-open
// block range [begin, end) from cursor onward. If rewind is set, the pass
// begins there instead of at the stored height, if it is lower.
type syncState struct {
	generation uint64
	status     syncStatus
	rewind     *uint64
	begin      uint64
	end        uint64
	cursor     uint64
}

type checkFunc func(*syncState) bool

type transitionFunc func(context.Context, *syncState) error

func when(status syncStatus) checkFunc {
	return func(s *syncState) bool {
		return s.status == status
	}
}

type edge struct {
	check      checkFunc
	transition transitionFunc
}

// syncFSM runs the transitions of a sync pass until it completes.
type syncFSM struct {
	state *syncState
	edges []edge
}

func newSyncFSM(state *syncState) *syncFSM {
	f := syncFSM{
		state: state,
	}
	return &f
}

func (f *syncFSM) add(check checkFunc, transition transitionFunc) {
	f.edges = append(f.edges, edge{check: check, transition: transition})
}

func (f *syncFSM) run(ctx context.Context) error {
TransitionLoop:
	for f.state.status != syncComplete {
		err := ctx.Err()
		if err != nil {
			return err
		}
		for _, e := range f.edges {
			if !e.check(f.state) {
				continue
			}
			err := e.transition(ctx, f.state)
			if err != nil {
				return fmt.Errorf("could not apply %s transition: %w", f.state.status, err)
			}
			continue TransitionLoop
		}
		return fmt.Errorf("could not find transition for sync status %s", f.state.status)
	}
	return nil
}

// pass runs one sync pass of the manager. It returns the exclusive end of
// the synced range.
func (m *WalletManager) pass(ctx context.Context, generation uint64, rewind *uint64) (uint64, error) {

	state := syncState{
		generation: generation,
		status:     syncInitialize,
		rewind:     rewind,
	}

	fsm := newSyncFSM(&state)
	fsm.add(when(syncInitialize), m.initialize)
	fsm.add(when(syncTip), m.tip)
	fsm.add(when(syncScan), m.scan)

	err := fsm.run(ctx)
	if err != nil {
		return 0, err
	}

	return state.end, nil
}

// initialize resumes from the height stored by the previous pass, or from
// the requested depth.
func (m *WalletManager) initialize(_ context.Context, s *syncState) error {

	height, _, err := m.system.store.Height(m.network.ID())
	if err != nil {
		return fmt.Errorf("could not get stored height: %w", err)
	}
	if s.rewind != nil && *s.rewind < height {
		height = *s.rewind
	}

	s.begin = height
	s.cursor = height
	s.status = syncTip

	m.log.Debug().Uint64("begin", height).Msg("sync pass initialized")

	return nil
}

// tip retrieves the current chain tip, which bounds the pass.
func (m *WalletManager) tip(ctx context.Context, s *syncState) error {

	blockchain, err := m.system.client.Blockchain(ctx, m.network.ID())
	if err != nil {
		return fmt.Errorf("could not get blockchain: %w", err)
	}
	if blockchain.BlockHeight == nil {
		return fmt.Errorf("blockchain height unknown (network: %s)", m.network.ID())
	}
	tip := *blockchain.BlockHeight

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if s.generation != m.generation {
		return errStale
	}

	changed, err := m.network.update(blockchain)
	if err != nil {
		return fmt.Errorf("could not update network: %w", err)
	}
	if changed {
		m.system.emitNetwork(m.network, NetworkUpdated{Height: m.network.Height(), Fees: m.network.Fees()})
	}

	s.end = tip + 1
	if s.begin >= s.end {
		m.system.emitManager(m, ManagerSyncProgress{Progress: 1, Height: tip})
		s.status = syncComplete
		return nil
	}

	s.status = syncScan

	return nil
}

// scan fetches the transactions of the next window and checkpoints them.
func (m *WalletManager) scan(ctx context.Context, s *syncState) error {

	hi := s.cursor + m.cfg.SyncWindow
	if hi > s.end || hi < s.cursor {
		hi = s.end
	}

	query := bdb.TransactionQuery{
		BlockchainID: m.network.ID(),
		Addresses:    []string{m.address},
		Begin:        s.cursor,
		End:          hi,
		MaxPageSize:  m.cfg.PageSize,
	}
	transactions, err := m.system.client.Transactions(query).All(ctx)
	if err != nil {
		return fmt.Errorf("could not get transactions (begin: %d, end: %d): %w", s.cursor, hi, err)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if s.generation != m.generation {
		return errStale
	}

	tip := s.end - 1
	records := m.apply(transactions, tip)
	err = m.system.store.Checkpoint(m.network.ID(), hi, records)
	if err != nil {
		return fmt.Errorf("could not checkpoint window: %w", err)
	}

	progress := float64(hi-s.begin) / float64(s.end-s.begin)
	m.system.emitManager(m, ManagerSyncProgress{Progress: progress, Height: hi - 1})

	m.log.Debug().Uint64("begin", s.cursor).Uint64("end", hi).Int("transactions", len(transactions)).Msg("sync window scanned")

	s.cursor = hi
	if hi == s.end {
		s.status = syncComplete
	}

	return nil
}
