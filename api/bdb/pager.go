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
	"sync"
)

// pager walks through a sequence of segments, each of which is a chain of
// pages linked by continuation cursors. It is forward-only: once a page has
// been consumed, it cannot be requested again from the same pager.
type pager struct {
	mutex    *sync.Mutex
	fetch    func(ctx context.Context, cursor string) (interface{}, int, string, error)
	segments []string
	cursor   string
	active   bool
	page     interface{}
	err      error
	done     bool
	stop     chan struct{}
	once     *sync.Once
}

func newPager(fetch func(ctx context.Context, cursor string) (interface{}, int, string, error), segments []string) *pager {
	p := pager{
		mutex:    &sync.Mutex{},
		fetch:    fetch,
		segments: segments,
		stop:     make(chan struct{}),
		once:     &sync.Once{},
	}
	return &p
}

// next fetches the next non-empty page. It returns false when the sequence is
// exhausted, when it failed or when it was cancelled.
func (p *pager) next(ctx context.Context) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for !p.done {

		if p.cancelled() {
			p.page = nil
			p.done = true
			break
		}

		if !p.active {
			if len(p.segments) == 0 {
				p.done = true
				break
			}
			p.cursor = p.segments[0]
			p.segments = p.segments[1:]
			p.active = true
		}

		fetchCtx, cancel := context.WithCancel(ctx)
		go func() {
			select {
			case <-p.stop:
				cancel()
			case <-fetchCtx.Done():
			}
		}()
		page, count, next, err := p.fetch(fetchCtx, p.cursor)
		cancel()

		// A page that arrives after cancellation is dropped.
		if p.cancelled() {
			p.page = nil
			p.done = true
			break
		}
		if err != nil {
			p.page = nil
			p.err = err
			p.done = true
			break
		}

		p.cursor = next
		p.active = next != ""
		if count == 0 {
			continue
		}

		p.page = page
		return true
	}

	return false
}

func (p *pager) cancelled() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *pager) current() interface{} {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.page
}

// Err returns the error that ended the sequence, if any. A cancelled
// sequence has no error.
func (p *pager) Err() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.err
}

// Cancel aborts any in-flight page request and ends the sequence. It can be
// called any number of times, from any goroutine.
func (p *pager) Cancel() {
	p.once.Do(func() {
		close(p.stop)
	})
}

// Transfers is a lazily fetched sequence of transfer pages.
type Transfers struct {
	*pager
}

// TransferFetch fetches one page of transfers for the given cursor, and
// returns the cursor of the following page, if there is one.
type TransferFetch func(ctx context.Context, cursor string) ([]Transfer, string, error)

// NewTransfers creates a transfer sequence from a page fetching function and
// the cursors of the first page of each segment.
func NewTransfers(fetch TransferFetch, segments ...string) *Transfers {
	if len(segments) == 0 {
		segments = []string{""}
	}
	generic := func(ctx context.Context, cursor string) (interface{}, int, string, error) {
		page, next, err := fetch(ctx, cursor)
		return page, len(page), next, err
	}
	return &Transfers{pager: newPager(generic, segments)}
}

// Next advances to the next page. It blocks until the page is available.
func (t *Transfers) Next(ctx context.Context) bool {
	return t.next(ctx)
}

// Page returns the page fetched by the last successful call to Next.
func (t *Transfers) Page() []Transfer {
	page, _ := t.current().([]Transfer)
	return page
}

// All consumes the rest of the sequence.
func (t *Transfers) All(ctx context.Context) ([]Transfer, error) {
	var all []Transfer
	for t.Next(ctx) {
		all = append(all, t.Page()...)
	}
	return all, t.Err()
}

// Transactions is a lazily fetched sequence of transaction pages.
type Transactions struct {
	*pager
}

// TransactionFetch fetches one page of transactions for the given cursor.
type TransactionFetch func(ctx context.Context, cursor string) ([]Transaction, string, error)

// NewTransactions creates a transaction sequence from a page fetching
// function and the cursors of the first page of each segment.
func NewTransactions(fetch TransactionFetch, segments ...string) *Transactions {
	if len(segments) == 0 {
		segments = []string{""}
	}
	generic := func(ctx context.Context, cursor string) (interface{}, int, string, error) {
		page, next, err := fetch(ctx, cursor)
		return page, len(page), next, err
	}
	return &Transactions{pager: newPager(generic, segments)}
}

func (t *Transactions) Next(ctx context.Context) bool {
	return t.next(ctx)
}

func (t *Transactions) Page() []Transaction {
	page, _ := t.current().([]Transaction)
	return page
}

func (t *Transactions) All(ctx context.Context) ([]Transaction, error) {
	var all []Transaction
	for t.Next(ctx) {
		all = append(all, t.Page()...)
	}
	return all, t.Err()
}

// Blocks is a lazily fetched sequence of block pages.
type Blocks struct {
	*pager
}

// BlockFetch fetches one page of blocks for the given cursor.
type BlockFetch func(ctx context.Context, cursor string) ([]Block, string, error)

// NewBlocks creates a block sequence from a page fetching function and the
// cursors of the first page of each segment.
func NewBlocks(fetch BlockFetch, segments ...string) *Blocks {
	if len(segments) == 0 {
		segments = []string{""}
	}
	generic := func(ctx context.Context, cursor string) (interface{}, int, string, error) {
		page, next, err := fetch(ctx, cursor)
		return page, len(page), next, err
	}
	return &Blocks{pager: newPager(generic, segments)}
}

func (b *Blocks) Next(ctx context.Context) bool {
	return b.next(ctx)
}

func (b *Blocks) Page() []Block {
	page, _ := b.current().([]Block)
	return page
}

func (b *Blocks) All(ctx context.Context) ([]Block, error) {
	var all []Block
	for b.Next(ctx) {
		all = append(all, b.Page()...)
	}
	return all, b.Err()
}
