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
	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultShingleSize is the number of consecutive tokens per shingle
	DefaultShingleSize = 3
	// DefaultSampleModulus keeps roughly one shingle hash in four
	DefaultSampleModulus = 4
)

// Fingerprint is the sampled set of shingle hashes of a page
type Fingerprint map[uint64]struct{}

// NewFingerprint builds the fingerprint of tokens with the default shingle
// size and sample rate.
func NewFingerprint(tokens []string) Fingerprint {
	return NewFingerprintWith(tokens, DefaultShingleSize, DefaultSampleModulus)
}

// NewFingerprintWith hashes every window of k consecutive tokens and keeps the
// hashes divisible by modulus. A sequence of n tokens yields n-k+1 shingles,
// none when n < k. xxhash is unseeded, so equal token sequences produce equal
// fingerprints across processes.
func NewFingerprintWith(tokens []string, k int, modulus uint64) Fingerprint {
	fp := make(Fingerprint)
	if k <= 0 || len(tokens) < k {
		return fp
	}
	if modulus == 0 {
		modulus = 1
	}

	d := xxhash.New()
	for i := 0; i+k <= len(tokens); i++ {
		d.Reset()
		for j := i; j < i+k; j++ {
			if j > i {
				d.WriteString(" ")
			}
			d.WriteString(tokens[j])
		}
		if h := d.Sum64(); h%modulus == 0 {
			fp[h] = struct{}{}
		}
	}
	return fp
}

// ShingleHash returns the hash of one shingle, the tokens joined by a space
func ShingleHash(shingle ...string) uint64 {
	d := xxhash.New()
	for i, tok := range shingle {
		if i > 0 {
			d.WriteString(" ")
		}
		d.WriteString(tok)
	}
	return d.Sum64()
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets are identical (1);
// exactly one empty set shares nothing (0).
func Jaccard(a, b Fingerprint) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for h := range small {
		if _, ok := large[h]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
