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

package bdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
)

// FeedQuery selects what a feed watches: the transfers of a set of addresses
// on one blockchain, starting at a given height.
type FeedQuery struct {
	BlockchainID string
	Addresses    []string
	From         uint64
}

// Update is a notification of new chain data. Height is the chain tip at the
// time of the update; Transfers are the transfers of the watched addresses
// that were not part of any previous update.
type Update struct {
	BlockchainID string
	Height       uint64
	Transfers    []Transfer
}

// Feed is a live subscription to new blocks and transfers. It polls the
// service at the configured interval and delivers updates on an unbuffered
// channel until it is cancelled.
type Feed struct {
	log     zerolog.Logger
	client  *Client
	query   FeedQuery
	id      string
	next    uint64
	seen    *lru.Cache
	updates chan Update
	stop    chan struct{}
	once    *sync.Once
	wg      *sync.WaitGroup
}

// Subscribe starts a feed for the given query.
func (c *Client) Subscribe(query FeedQuery) (*Feed, error) {

	seen, err := lru.New(c.cfg.SeenSize)
	if err != nil {
		return nil, fmt.Errorf("could not create transfer cache: %w", err)
	}

	id := uuid.New().String()
	f := Feed{
		log:     c.log.With().Str("feed", id).Str("blockchain", query.BlockchainID).Logger(),
		client:  c,
		query:   query,
		id:      id,
		next:    query.From,
		seen:    seen,
		updates: make(chan Update),
		stop:    make(chan struct{}),
		once:    &sync.Once{},
		wg:      &sync.WaitGroup{},
	}

	f.wg.Add(1)
	go f.run()

	return &f, nil
}

// ID returns the unique identifier of the feed.
func (f *Feed) ID() string {
	return f.id
}

// Updates returns the channel on which updates are delivered. It is closed
// once the feed has been cancelled.
func (f *Feed) Updates() <-chan Update {
	return f.updates
}

// Cancel stops the feed. Once it returns, no further update is delivered. It
// is safe to call any number of times.
func (f *Feed) Cancel() {
	f.once.Do(func() {
		close(f.stop)
	})
	f.wg.Wait()
}

func (f *Feed) run() {
	defer f.wg.Done()
	defer close(f.updates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-f.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(f.client.cfg.PollInterval)
	defer ticker.Stop()

	for {
		update, ok := f.poll(ctx)
		if ok {
			select {
			case f.updates <- update:
			case <-f.stop:
				return
			}
		}

		select {
		case <-ticker.C:
		case <-f.stop:
			return
		}
	}
}

// poll checks whether the chain advanced and, if so, collects the new
// transfers. Failures are logged and retried on the next tick.
func (f *Feed) poll(ctx context.Context) (Update, bool) {

	blockchain, err := f.client.Blockchain(ctx, f.query.BlockchainID)
	if err != nil {
		if ctx.Err() == nil {
			f.log.Warn().Err(err).Msg("could not poll blockchain")
		}
		return Update{}, false
	}
	if blockchain.BlockHeight == nil {
		return Update{}, false
	}

	tip := *blockchain.BlockHeight
	end := tip + 1
	if end <= f.next {
		return Update{}, false
	}

	begin := f.next
	if begin > f.client.cfg.Overlap {
		begin -= f.client.cfg.Overlap
	} else {
		begin = 0
	}

	var fresh []Transfer
	if len(f.query.Addresses) > 0 {
		query := TransferQuery{
			BlockchainID: f.query.BlockchainID,
			Addresses:    f.query.Addresses,
			Begin:        begin,
			End:          end,
		}
		transfers, err := f.client.Transfers(query).All(ctx)
		if err != nil {
			if ctx.Err() == nil {
				f.log.Warn().Err(err).Uint64("begin", begin).Uint64("end", end).Msg("could not poll transfers")
			}
			return Update{}, false
		}
		for _, transfer := range transfers {
			if f.seen.Contains(transfer.ID) {
				continue
			}
			f.seen.Add(transfer.ID, struct{}{})
			fresh = append(fresh, transfer)
		}
	}

	f.next = end

	update := Update{
		BlockchainID: f.query.BlockchainID,
		Height:       tip,
		Transfers:    fresh,
	}

	f.log.Debug().Uint64("height", tip).Int("transfers", len(fresh)).Msg("feed updated")

	return update, true
}
