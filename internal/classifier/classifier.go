/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package classifier turns normalized lines into typed screenplay elements.
//
// Classification is a fold: a State value is threaded through the lines in
// source order, carrying the scene-header expectation and the pending
// dialogue flag from one line to the next. The rule chain is an ordered list
// of predicates evaluated first-match-wins; rare unambiguous structural
// markers sit before the high-frequency, ambiguous speaker/dialogue
// heuristics, and action is the unconditional fallback, so every line
// terminates in a format and classification never fails.
package classifier

import (
	"katib/internal/domain"
	"katib/internal/pattern"
)

// HeaderExpectation tracks which scene-header continuation the previous line
// promised.
type HeaderExpectation int

const (
	ExpectNone HeaderExpectation = iota
	ExpectHeader2
	ExpectHeader3
)

// State is the mutable fold accumulator for one classification pass over one
// document. A State must never be shared across concurrent passes; zero
// value is ready to use.
type State struct {
	ExpectedHeader    HeaderExpectation
	ExpectingDialogue bool
	PreviousFormat    domain.FormatID
}

// result is what a rule yields when it claims a line.
type result struct {
	format     domain.FormatID
	method     domain.ClassificationMethod
	confidence float64
}

// rule pairs a name with its predicate. The predicate inspects the line and
// the incoming state and, on a match, mutates the state for the next line.
type rule struct {
	name  string
	apply func(line string, st *State) (result, bool)
}

// Rules is the ordered chain. Exported so the ordering and its rationale can
// be inspected and unit-tested independent of control flow.
var Rules = []rule{
	{name: "basmala", apply: func(line string, st *State) (result, bool) {
		if !pattern.IsBasmala(line) {
			return result{}, false
		}
		st.reset()
		return result{domain.FormatBasmala, domain.MethodRule, 0.99}, true
	}},
	{name: "expected-header", apply: func(line string, st *State) (result, bool) {
		switch st.ExpectedHeader {
		case ExpectHeader2:
			st.ExpectedHeader = ExpectNone
			if pattern.IsTimeLocation(line) {
				st.ExpectedHeader = ExpectHeader3
				return result{domain.FormatSceneHeader2, domain.MethodContext, 0.9}, true
			}
		case ExpectHeader3:
			st.ExpectedHeader = ExpectNone
			if pattern.IsHeader3Continuation(line) {
				return result{domain.FormatSceneHeader3, domain.MethodContext, 0.8}, true
			}
		}
		// expectation cleared, fall through to the standalone rules
		return result{}, false
	}},
	{name: "scene-header-top-line", apply: func(line string, st *State) (result, bool) {
		if !pattern.IsSceneHeaderTopLine(line) {
			return result{}, false
		}
		st.reset()
		st.ExpectedHeader = ExpectHeader3
		return result{domain.FormatSceneHeaderTopLine, domain.MethodRule, 0.95}, true
	}},
	{name: "scene-header-1", apply: func(line string, st *State) (result, bool) {
		if !pattern.IsSceneNumber(line) {
			return result{}, false
		}
		st.reset()
		st.ExpectedHeader = ExpectHeader2
		return result{domain.FormatSceneHeader1, domain.MethodRule, 0.95}, true
	}},
	{name: "scene-header-2", apply: func(line string, st *State) (result, bool) {
		if !pattern.IsTimeLocation(line) {
			return result{}, false
		}
		st.reset()
		st.ExpectedHeader = ExpectHeader3
		return result{domain.FormatSceneHeader2, domain.MethodRule, 0.9}, true
	}},
	{name: "scene-header-3", apply: func(line string, st *State) (result, bool) {
		if !pattern.IsLikelyLocation(line) {
			return result{}, false
		}
		st.reset()
		return result{domain.FormatSceneHeader3, domain.MethodRule, 0.7}, true
	}},
	{name: "transition", apply: func(line string, st *State) (result, bool) {
		if !pattern.IsTransition(line) {
			return result{}, false
		}
		st.reset()
		return result{domain.FormatTransition, domain.MethodRule, 0.95}, true
	}},
	{name: "character-cue", apply: func(line string, st *State) (result, bool) {
		if !pattern.IsSpeakerCue(line) {
			return result{}, false
		}
		st.reset()
		st.ExpectingDialogue = true
		return result{domain.FormatCharacter, domain.MethodRule, 0.9}, true
	}},
	{name: "parenthetical", apply: func(line string, st *State) (result, bool) {
		if !pattern.IsParenthetical(line) {
			return result{}, false
		}
		if st.ExpectingDialogue || st.PreviousFormat == domain.FormatCharacter ||
			st.PreviousFormat == domain.FormatDialogue || st.PreviousFormat == domain.FormatParenthetical {
			// keep the pending dialogue alive across the aside
			return result{domain.FormatParenthetical, domain.MethodRule, 0.85}, true
		}
		return result{}, false
	}},
	{name: "inline-dialogue", apply: func(line string, st *State) (result, bool) {
		if !pattern.IsInlineDialogue(line) {
			return result{}, false
		}
		st.reset()
		return result{domain.FormatDialogue, domain.MethodRule, 0.75}, true
	}},
	{name: "dialogue-after-cue", apply: func(line string, st *State) (result, bool) {
		if !st.ExpectingDialogue {
			return result{}, false
		}
		st.reset()
		return result{domain.FormatDialogue, domain.MethodContext, 0.8}, true
	}},
	{name: "dialogue-continuation", apply: func(line string, st *State) (result, bool) {
		if st.PreviousFormat != domain.FormatCharacter && st.PreviousFormat != domain.FormatDialogue {
			return result{}, false
		}
		st.reset()
		return result{domain.FormatDialogue, domain.MethodContext, 0.6}, true
	}},
	{name: "action-fallback", apply: func(line string, st *State) (result, bool) {
		st.reset()
		return result{domain.FormatAction, domain.MethodRule, 0.5}, true
	}},
}

func (st *State) reset() {
	st.ExpectedHeader = ExpectNone
	st.ExpectingDialogue = false
}

// Classify assigns a format to one line and advances the state. It always
// returns a format; action is the fallback.
func Classify(line string, st *State) (domain.FormatID, domain.ClassificationMethod, float64) {
	for _, r := range Rules {
		if res, ok := r.apply(line, st); ok {
			st.PreviousFormat = res.format
			return res.format, res.method, res.confidence
		}
	}
	// unreachable: action-fallback always claims the line
	st.PreviousFormat = domain.FormatAction
	return domain.FormatAction, domain.MethodRule, 0.5
}

// ClassifyAll folds a fresh State over the lines in source order. Calling it
// twice on identical input yields identical output.
func ClassifyAll(lines []string) []domain.ClassifiedLine {
	st := &State{}
	out := make([]domain.ClassifiedLine, 0, len(lines))
	for i, line := range lines {
		f, m, c := Classify(line, st)
		out = append(out, domain.ClassifiedLine{
			LineIndex:    i,
			Text:         line,
			AssignedType: f,
			Method:       m,
			Confidence:   c,
		})
	}
	return out
}
