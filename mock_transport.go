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
	"bytes"
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"
)

// MockResponse represents a mock HTTP response
type MockResponse struct {
	// StatusCode is the HTTP status code to return (default: 200)
	StatusCode int
	// Body is the response body content (used if BodyFunc is nil)
	Body string
	// BodyFunc generates the body from the request and takes precedence over Body
	BodyFunc func(*http.Request) string
	// Headers are the HTTP headers to include in the response
	Headers http.Header
	// Delay simulates network latency before returning the response
	Delay time.Duration
	// Error simulates a network error
	Error error
}

type mockPattern struct {
	pattern  *regexp.Regexp
	response *MockResponse
}

// MockTransport is an http.RoundTripper serving registered responses, so
// robots.txt lookups and page fetches can be tested without a network.
// Unregistered URLs get a 404.
type MockTransport struct {
	mutex     sync.RWMutex
	responses map[string]*MockResponse
	patterns  []mockPattern
	requests  map[string]int
}

// NewMockTransport creates an empty MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[string]*MockResponse),
		requests:  make(map[string]int),
	}
}

// Client returns an http.Client using the transport
func (m *MockTransport) Client() *http.Client {
	return &http.Client{Transport: m}
}

// RegisterResponse registers a mock response for an exact URL match
func (m *MockTransport) RegisterResponse(url string, response *MockResponse) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.responses[url] = withDefaults(response)
}

// RegisterHTML registers a 200 text/html response
func (m *MockTransport) RegisterHTML(url, html string) {
	m.registerTyped(url, "text/html; charset=utf-8", html)
}

// RegisterText registers a 200 text/plain response
func (m *MockTransport) RegisterText(url, text string) {
	m.registerTyped(url, "text/plain; charset=utf-8", text)
}

// RegisterRobots registers the robots.txt of origin
func (m *MockTransport) RegisterRobots(origin, robots string) {
	m.RegisterText(origin+"/robots.txt", robots)
}

// RegisterRedirect registers a redirect from url to location
func (m *MockTransport) RegisterRedirect(url, location string, status int) {
	headers := make(http.Header)
	headers.Set("Location", location)
	m.RegisterResponse(url, &MockResponse{StatusCode: status, Headers: headers})
}

// RegisterError registers a network failure for url
func (m *MockTransport) RegisterError(url string, err error) {
	m.RegisterResponse(url, &MockResponse{Error: err})
}

// RegisterPattern registers a mock response for URLs matching a regex pattern
func (m *MockTransport) RegisterPattern(pattern string, response *MockResponse) error {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.patterns = append(m.patterns, mockPattern{pattern: regex, response: withDefaults(response)})
	return nil
}

// Requests returns how many times url was requested
func (m *MockTransport) Requests(url string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.requests[url]
}

func (m *MockTransport) registerTyped(url, contentType, body string) {
	headers := make(http.Header)
	headers.Set("Content-Type", contentType)
	m.RegisterResponse(url, &MockResponse{StatusCode: http.StatusOK, Body: body, Headers: headers})
}

func withDefaults(response *MockResponse) *MockResponse {
	if response.StatusCode == 0 {
		response.StatusCode = http.StatusOK
	}
	if response.Headers == nil {
		response.Headers = make(http.Header)
	}
	return response
}

// RoundTrip implements the http.RoundTripper interface
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	url := req.URL.String()

	m.mutex.Lock()
	m.requests[url]++
	mockResp, found := m.responses[url]
	if !found {
		for _, p := range m.patterns {
			if p.pattern.MatchString(url) {
				mockResp, found = p.response, true
				break
			}
		}
	}
	m.mutex.Unlock()

	if !found {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewBufferString("Not Found")),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}

	if mockResp.Delay > 0 {
		select {
		case <-time.After(mockResp.Delay):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}
	if mockResp.Error != nil {
		return nil, mockResp.Error
	}

	body := mockResp.Body
	if mockResp.BodyFunc != nil {
		body = mockResp.BodyFunc(req)
	}
	return &http.Response{
		StatusCode:    mockResp.StatusCode,
		Body:          io.NopCloser(bytes.NewBufferString(body)),
		Header:        mockResp.Headers.Clone(),
		ContentLength: int64(len(body)),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}, nil
}
