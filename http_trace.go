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
//
// This file includes modifications to code originally developed by Adam Tauber,
// licensed under the Apache License, Version 2.0.

package scout

import (
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

// FetchTrace records the timing of one Fetch. Connect and FirstByte
// describe the last hop; Total spans all redirect hops and the body read.
type FetchTrace struct {
	ConnectDuration   time.Duration
	FirstByteDuration time.Duration
	TotalDuration     time.Duration
	Hops              int

	mu             sync.Mutex
	begin          time.Time
	start, connect time.Time
}

func newFetchTrace() *FetchTrace {
	return &FetchTrace{begin: time.Now()}
}

// clientTrace returns hooks filling in the connect and first byte durations
// of the next request
func (ft *FetchTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(string) {
			ft.mu.Lock()
			ft.start = time.Now()
			ft.ConnectDuration = 0
			ft.mu.Unlock()
		},
		ConnectStart: func(string, string) {
			ft.mu.Lock()
			ft.connect = time.Now()
			ft.mu.Unlock()
		},
		ConnectDone: func(string, string, error) {
			ft.mu.Lock()
			ft.ConnectDuration = time.Since(ft.connect)
			ft.mu.Unlock()
		},
		GotFirstResponseByte: func() {
			ft.mu.Lock()
			ft.FirstByteDuration = time.Since(ft.start)
			ft.mu.Unlock()
		},
	}
}

// withTrace returns req with the trace hooks attached to its context
func (ft *FetchTrace) withTrace(req *http.Request) *http.Request {
	ft.mu.Lock()
	ft.Hops++
	ft.mu.Unlock()
	return req.WithContext(httptrace.WithClientTrace(req.Context(), ft.clientTrace()))
}

func (ft *FetchTrace) finish() {
	ft.mu.Lock()
	ft.TotalDuration = time.Since(ft.begin)
	ft.mu.Unlock()
}
