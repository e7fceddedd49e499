/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textnorm cleans imported plain text and splits it into candidate
// lines for classification. Both functions are pure and total: any input,
// including binary garbage, yields a defined result and never a panic.
package textnorm

import (
	"strings"
	"unicode/utf8"
)

// Normalize unifies line endings and strips control characters that binary
// extraction adapters tend to leak into plain text:
//   - CRLF, lone CR, NEL (U+0085), LS (U+2028) and PS (U+2029) become "\n"
//   - vertical tab and form feed become "\n" (page breaks are line breaks here)
//   - NUL bytes are dropped
//   - a leading byte-order mark is removed
func Normalize(raw string) string {
	s := strings.TrimPrefix(raw, "\uFEFF")
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			// invalid byte: pass through untouched
			b.WriteByte(s[i])
			i++
			continue
		}
		switch r {
		case '\r':
			// swallow the LF of a CRLF pair
			if i+size < len(s) && s[i+size] == '\n' {
				size++
			}
			b.WriteByte('\n')
		case '\v', '\f', '\u0085', '\u2028', '\u2029':
			b.WriteByte('\n')
		case 0:
			// drop NUL
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// Segment splits normalized text into trimmed candidate lines. Whitespace
// runs inside a line collapse to a single space; empty lines are dropped.
// One physical line produces at most one candidate: segmentation never
// merges across line boundaries.
func Segment(text string) []string {
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
