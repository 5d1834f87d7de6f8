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

// TrapMatch describes the history entry that made a page a near-duplicate
type TrapMatch struct {
	// Index is the position of the matching fingerprint in the history
	Index int
	// Similarity is the Jaccard similarity with that fingerprint
	Similarity float64
}

// TrapDetector keeps the fingerprint history of a session and flags pages
// that are near-duplicates of a recent page.
//
// The history only grows. A check reads the window entries ending one slot
// before the most recent, i.e. indices len-2 down to len-1-window, and is
// inactive until the history holds more than window entries.
//
// TrapDetector is not safe for concurrent use; the Session serializes it.
type TrapDetector struct {
	window    int
	threshold float64
	history   []Fingerprint
}

// NewTrapDetector creates a detector comparing against window fingerprints
// with the given similarity threshold
func NewTrapDetector(window int, threshold float64) *TrapDetector {
	if window <= 0 {
		window = 25
	}
	if threshold <= 0 {
		threshold = 0.9
	}
	return &TrapDetector{window: window, threshold: threshold}
}

// Check compares fp against the window and returns the first match in
// descending index order.
func (d *TrapDetector) Check(fp Fingerprint) (TrapMatch, bool) {
	n := len(d.history)
	if n <= d.window {
		return TrapMatch{}, false
	}
	for i := n - 2; i > n-2-d.window && i >= 0; i-- {
		if sim := Jaccard(fp, d.history[i]); sim >= d.threshold {
			return TrapMatch{Index: i, Similarity: sim}, true
		}
	}
	return TrapMatch{}, false
}

// IsTrap reports whether fp is a near-duplicate of a page in the window
func (d *TrapDetector) IsTrap(fp Fingerprint) bool {
	_, trap := d.Check(fp)
	return trap
}

// Append adds fp to the end of the history
func (d *TrapDetector) Append(fp Fingerprint) {
	d.history = append(d.history, fp)
}

// Len returns the number of fingerprints in the history
func (d *TrapDetector) Len() int {
	return len(d.history)
}

// Window returns the number of entries a check compares against
func (d *TrapDetector) Window() int {
	return d.window
}
