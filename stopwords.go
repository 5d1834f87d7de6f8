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

// englishStopwords are excluded from word statistics. Contractions are kept
// for completeness even though the tokenizer splits them at the apostrophe.
var englishStopwords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"against": true, "all": true, "am": true, "an": true, "and": true,
	"any": true, "are": true, "aren't": true, "as": true, "at": true,
	"be": true, "because": true, "been": true, "before": true, "being": true,
	"below": true, "between": true, "both": true, "but": true, "by": true,
	"can't": true, "cannot": true, "could": true, "couldn't": true, "did": true,
	"didn't": true, "do": true, "does": true, "doesn't": true, "doing": true,
	"don't": true, "down": true, "during": true, "each": true, "few": true,
	"for": true, "from": true, "further": true, "had": true, "hadn't": true,
	"has": true, "hasn't": true, "have": true, "haven't": true, "having": true,
	"he": true, "he'd": true, "he'll": true, "he's": true, "her": true,
	"here": true, "here's": true, "hers": true, "herself": true, "him": true,
	"himself": true, "his": true, "how": true, "how's": true, "i": true,
	"i'd": true, "i'll": true, "i'm": true, "i've": true, "if": true,
	"in": true, "into": true, "is": true, "isn't": true, "it": true,
	"it's": true, "its": true, "itself": true, "let's": true, "me": true,
	"more": true, "most": true, "mustn't": true, "my": true, "myself": true,
	"no": true, "nor": true, "not": true, "of": true, "off": true,
	"on": true, "once": true, "only": true, "or": true, "other": true,
	"ought": true, "our": true, "ours": true, "ourselves": true, "out": true,
	"over": true, "own": true, "same": true, "shan't": true, "she": true,
	"she'd": true, "she'll": true, "she's": true, "should": true, "shouldn't": true,
	"so": true, "some": true, "such": true, "than": true, "that": true,
	"that's": true, "the": true, "their": true, "theirs": true, "them": true,
	"themselves": true, "then": true, "there": true, "there's": true, "these": true,
	"they": true, "they'd": true, "they'll": true, "they're": true, "they've": true,
	"this": true, "those": true, "through": true, "to": true, "too": true,
	"under": true, "until": true, "up": true, "very": true, "was": true,
	"wasn't": true, "we": true, "we'd": true, "we'll": true, "we're": true,
	"we've": true, "were": true, "weren't": true, "what": true, "what's": true,
	"when": true, "when's": true, "where": true, "where's": true, "which": true,
	"while": true, "who": true, "who's": true, "whom": true, "why": true,
	"why's": true, "with": true, "won't": true, "would": true, "wouldn't": true,
	"you": true, "you'd": true, "you'll": true, "you're": true, "you've": true,
	"your": true, "yours": true, "yourself": true, "yourselves": true,
}

// IsStopword reports whether word is excluded from word statistics
func IsStopword(word string) bool {
	return englishStopwords[word]
}
