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

import (
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/gammazero/deque"
	"github.com/rs/zerolog"
)

// Dispatcher runs callbacks in the order they were dispatched for any given
// key. Callbacks for keys on different lanes may run concurrently. Dispatch
// never blocks and never runs the callback inline, so it is safe to call from
// within a callback.
type Dispatcher struct {
	log   zerolog.Logger
	lanes []*lane
	wg    *sync.WaitGroup
	mutex *sync.RWMutex
	done  bool
}

type lane struct {
	mutex  *sync.Mutex
	queue  *deque.Deque
	notify chan struct{}
	stop   chan struct{}
}

// New creates a new dispatcher and starts its lanes.
func New(log zerolog.Logger, options ...Option) *Dispatcher {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}
	if cfg.Lanes == 0 {
		cfg.Lanes = 1
	}

	d := Dispatcher{
		log:   log.With().Str("component", "dispatcher").Logger(),
		lanes: make([]*lane, 0, cfg.Lanes),
		wg:    &sync.WaitGroup{},
		mutex: &sync.RWMutex{},
	}

	for i := uint(0); i < cfg.Lanes; i++ {
		l := lane{
			mutex:  &sync.Mutex{},
			queue:  deque.New(),
			notify: make(chan struct{}, 1),
			stop:   make(chan struct{}),
		}
		d.lanes = append(d.lanes, &l)
		d.wg.Add(1)
		go d.run(&l)
	}

	return &d
}

// Dispatch queues the callback on the lane of the given key. It returns false
// if the dispatcher was already stopped, in which case the callback is
// dropped.
func (d *Dispatcher) Dispatch(key string, fn func()) bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if d.done {
		d.log.Debug().Str("key", key).Msg("dropping callback after stop")
		return false
	}

	l := d.lanes[xxhash.ChecksumString64(key)%uint64(len(d.lanes))]
	l.mutex.Lock()
	l.queue.PushBack(fn)
	l.mutex.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}

	return true
}

// Flush blocks until every callback dispatched before the call has run. It
// must not be called from within a callback.
func (d *Dispatcher) Flush() {
	wg := &sync.WaitGroup{}
	d.mutex.RLock()
	if d.done {
		d.mutex.RUnlock()
		return
	}
	for _, l := range d.lanes {
		wg.Add(1)
		l.mutex.Lock()
		l.queue.PushBack(func() { wg.Done() })
		l.mutex.Unlock()
		select {
		case l.notify <- struct{}{}:
		default:
		}
	}
	d.mutex.RUnlock()
	wg.Wait()
}

// Stop refuses further callbacks, runs the ones already queued and waits for
// all lanes to exit.
func (d *Dispatcher) Stop() {
	d.mutex.Lock()
	if d.done {
		d.mutex.Unlock()
		return
	}
	d.done = true
	for _, l := range d.lanes {
		close(l.stop)
	}
	d.mutex.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run(l *lane) {
	defer d.wg.Done()

	for {
		select {
		case <-l.notify:
			d.drain(l)
		case <-l.stop:
			d.drain(l)
			return
		}
	}
}

func (d *Dispatcher) drain(l *lane) {
	for {
		l.mutex.Lock()
		if l.queue.Len() == 0 {
			l.mutex.Unlock()
			return
		}
		fn := l.queue.PopFront().(func())
		l.mutex.Unlock()

		d.call(fn)
	}
}

func (d *Dispatcher) call(fn func()) {
	defer func() {
		r := recover()
		if r != nil {
			d.log.Error().Interface("panic", r).Msg("recovered from panic in callback")
		}
	}()
	fn()
}
