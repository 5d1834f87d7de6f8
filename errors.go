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

import "errors"

var (
	// ErrMalformedURL is returned when a URL cannot be parsed into an identity.
	// Callers treat it as a rejection.
	ErrMalformedURL = errors.New("malformed URL")
	// ErrPolicyFetch is the error logged when a robots.txt document cannot be
	// fetched or parsed. The origin is then treated as allowed.
	ErrPolicyFetch = errors.New("robots.txt fetch failed")
	// ErrContentParse is returned when a page body cannot be parsed. The page
	// then has zero tokens and fails the size gate.
	ErrContentParse = errors.New("content parse failed")
	// ErrSessionClosed is returned when a closed session is used
	ErrSessionClosed = errors.New("crawl session closed")
	// ErrInvariantViolation signals corrupted session state
	ErrInvariantViolation = errors.New("crawl session invariant violated")
	// ErrNoPattern is the error type for LimitRules without patterns
	ErrNoPattern = errors.New("no pattern defined in LimitRule")
	// ErrMaxPages is returned by the driver when the page budget is exhausted
	ErrMaxPages = errors.New("max pages limit reached")
	// ErrPoolClosed is returned when a URL is submitted to a closed fetch pool
	ErrPoolClosed = errors.New("fetch pool closed")
)
