// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scout

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// FetchFunc handles one scheduled URL. ctx is the pool's context.
type FetchFunc func(ctx context.Context, rawURL string)

// WorkerPool drains scheduled URLs into a fixed number of goroutines, each
// calling the pool's FetchFunc. Handlers never submit to the pool
// themselves, so a full queue cannot deadlock the workers.
type WorkerPool struct {
	ctx    context.Context
	handle FetchFunc
	logger zerolog.Logger
	urls   chan string
	wg     sync.WaitGroup

	// mu guards closed against concurrent Submit calls
	mu     sync.RWMutex
	closed bool

	workers  int
	active   atomic.Int64
	done     atomic.Int64
	panicked atomic.Int64
}

// NewWorkerPool starts workers goroutines reading from a queue of queueSize
// URLs. Workers exit when ctx is cancelled or the pool is closed.
func NewWorkerPool(ctx context.Context, workers, queueSize int, handle FetchFunc, logger zerolog.Logger) *WorkerPool {
	workers = max(workers, 1)
	wp := &WorkerPool{
		ctx:     ctx,
		handle:  handle,
		logger:  logger,
		urls:    make(chan string, max(queueSize, 0)),
		workers: workers,
	}

	wp.wg.Add(workers)
	for range workers {
		go wp.run()
	}
	return wp
}

func (wp *WorkerPool) run() {
	defer wp.wg.Done()
	for {
		select {
		case <-wp.ctx.Done():
			return
		case u, ok := <-wp.urls:
			if !ok {
				return
			}
			wp.fetch(u)
		}
	}
}

// fetch runs the handler for u. A panicking handler is logged and the
// worker keeps going.
func (wp *WorkerPool) fetch(u string) {
	wp.active.Add(1)
	defer func() {
		wp.active.Add(-1)
		wp.done.Add(1)
		if r := recover(); r != nil {
			wp.panicked.Add(1)
			wp.logger.Error().
				Str("url", u).
				Err(fmt.Errorf("%v", r)).
				Msg("fetch handler panicked")
		}
	}()
	wp.handle(wp.ctx, u)
}

// Submit queues rawURL. It blocks while the queue is full, returns the
// context error once the pool's context is cancelled and ErrPoolClosed
// after Close.
func (wp *WorkerPool) Submit(rawURL string) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolClosed
	}
	select {
	case wp.urls <- rawURL:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Workers returns the number of worker goroutines
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Active returns the number of URLs being handled right now
func (wp *WorkerPool) Active() int {
	return int(wp.active.Load())
}

// Done returns the number of handled URLs, panicked ones included
func (wp *WorkerPool) Done() int {
	return int(wp.done.Load())
}

// Panics returns the number of handler panics recovered
func (wp *WorkerPool) Panics() int {
	return int(wp.panicked.Load())
}

// Close stops accepting URLs and waits for the running handlers. URLs
// still queued are dropped if the context was cancelled.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.urls)
	}
	wp.mu.Unlock()
	wp.wg.Wait()
}
