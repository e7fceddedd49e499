/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textnorm

import (
	"reflect"
	"testing"
)

func TestNormalizeLineEndings(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb", "a\nb"},
		{"lone cr", "a\rb", "a\nb"},
		{"nel", "a\u0085b", "a\nb"},
		{"line separator", "a\u2028b", "a\nb"},
		{"paragraph separator", "a\u2029b", "a\nb"},
		{"form feed", "a\fb", "a\nb"},
		{"vertical tab", "a\vb", "a\nb"},
		{"nul dropped", "a\x00b", "ab"},
		{"leading bom", "\uFEFFمشهد", "مشهد"},
		{"empty", "", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Fatalf("%s: Normalize(%q) = %q, want %q", c.name, c.in, got, c.want)
		}
	}
}

func TestNormalizeKeepsInteriorBOM(t *testing.T) {
	if got := Normalize("a\uFEFFb"); got != "a\uFEFFb" {
		t.Fatalf("interior BOM must survive, got %q", got)
	}
}

func TestSegmentCollapsesAndTrims(t *testing.T) {
	got := Segment("  مشهد   12  \n\n\n   داخلي - ليل\t\tغرفة  \n")
	want := []string{"مشهد 12", "داخلي - ليل غرفة"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Segment = %#v, want %#v", got, want)
	}
}

func TestSegmentOnePhysicalLineOneCandidate(t *testing.T) {
	got := Segment("سطر أول\nسطر ثان\nسطر ثالث")
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %#v", len(got), got)
	}
}

func TestSegmentGarbageYieldsEmpty(t *testing.T) {
	for _, in := range []string{"", "\n\n\n", "   \n \t \n"} {
		if got := Segment(Normalize(in)); len(got) != 0 {
			t.Fatalf("Segment(%q) = %#v, want empty", in, got)
		}
	}
}

func TestNormalizeInvalidUTF8DoesNotPanic(t *testing.T) {
	in := string([]byte{0xff, 0xfe, 'a', '\r', '\n', 0xc0})
	out := Normalize(in)
	if out == "" {
		t.Fatalf("expected bytes to survive, got empty string")
	}
}
