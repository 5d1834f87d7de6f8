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
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// wordPattern defines a word as a maximal run of lowercase letters and digits
var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// ExtractedPage is the result of parsing a page body once. Tokens feed both
// the fingerprint and the word statistics; Links are the raw href values of
// every anchor in document order.
type ExtractedPage struct {
	Tokens []string
	Links  []string
	// BaseHref is the href of the first <base> element, if any
	BaseHref string
}

// ExtractPage parses body according to contentType. Non-textual content
// yields an empty page and no error. A body that cannot be decoded or parsed
// yields an empty page and an error wrapping ErrContentParse.
func ExtractPage(body []byte, contentType string, detectCharset bool) (*ExtractedPage, error) {
	page := &ExtractedPage{}
	if len(body) == 0 {
		return page, nil
	}
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
		params = nil
	}

	reader, err := decodeBody(body, params["charset"], detectCharset)
	if err != nil {
		return page, fmt.Errorf("%w: %v", ErrContentParse, err)
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return extractHTML(reader)
	case "text/plain":
		text, err := io.ReadAll(reader)
		if err != nil {
			return page, fmt.Errorf("%w: %v", ErrContentParse, err)
		}
		page.Tokens = Tokenize(string(text))
		return page, nil
	default:
		return page, nil
	}
}

// extractHTML parses the document once. The node tree is shared between
// goquery (visible text) and htmlquery (anchors and base).
func extractHTML(r io.Reader) (*ExtractedPage, error) {
	page := &ExtractedPage{}
	root, err := htmlquery.Parse(r)
	if err != nil {
		return page, fmt.Errorf("%w: %v", ErrContentParse, err)
	}

	if base := htmlquery.FindOne(root, "//base[@href]"); base != nil {
		page.BaseHref = strings.TrimSpace(htmlquery.SelectAttr(base, "href"))
	}
	for _, a := range htmlquery.Find(root, "//a[@href]") {
		if href := strings.TrimSpace(htmlquery.SelectAttr(a, "href")); href != "" {
			page.Links = append(page.Links, href)
		}
	}

	doc := goquery.NewDocumentFromNode(root)
	// Remove script and style elements as they're not visible text
	doc.Find("script, style, noscript, template").Remove()
	page.Tokens = Tokenize(visibleText(doc.Selection))
	return page, nil
}

// visibleText concatenates the text nodes under selection. Inline markup is
// joined as-is; block elements are separated by a space so that words in
// adjacent paragraphs do not merge.
func visibleText(selection *goquery.Selection) string {
	var b strings.Builder

	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, child *goquery.Selection) {
			nodeName := goquery.NodeName(child)
			switch {
			case nodeName == "#text":
				b.WriteString(child.Text())
			case nodeName == "#comment":
			case blockElements[nodeName]:
				b.WriteByte(' ')
				walk(child)
				b.WriteByte(' ')
			default:
				walk(child)
			}
		})
	}
	walk(selection)
	return b.String()
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "title": true, "tr": true, "ul": true,
}

// Tokenize lowercases text and returns its maximal alphanumeric runs
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// decodeBody converts body to UTF-8. A declared charset wins; otherwise the
// charset is sniffed when detect is set.
func decodeBody(body []byte, declared string, detect bool) (io.Reader, error) {
	label := strings.TrimSpace(declared)
	if label == "" && detect {
		label = detectCharset(body)
	}
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return bytes.NewReader(body), nil
	}
	r, err := charset.NewReaderLabel(label, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return r, nil
}

// detectCharset returns the most likely charset of body, or "" when the
// detector has no confident answer.
func detectCharset(body []byte) string {
	sample := body
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	result, err := chardet.NewHtmlDetector().DetectBest(sample)
	if err != nil || result == nil || result.Confidence < 50 {
		return ""
	}
	return result.Charset
}
