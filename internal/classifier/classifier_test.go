/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package classifier

import (
	"reflect"
	"strings"
	"testing"

	"katib/internal/domain"
	"katib/internal/textnorm"
)

func classifyText(t *testing.T, text string) []domain.FormatID {
	t.Helper()
	lines := textnorm.Segment(textnorm.Normalize(text))
	out := ClassifyAll(lines)
	types := make([]domain.FormatID, 0, len(out))
	for _, l := range out {
		types = append(types, l.AssignedType)
	}
	return types
}

func TestThreePartSceneHeader(t *testing.T) {
	got := classifyText(t, "مشهد 12\nداخلي - ليل\nغرفة الاجتماعات")
	want := []domain.FormatID{domain.FormatSceneHeader1, domain.FormatSceneHeader2, domain.FormatSceneHeader3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCueThenDialogue(t *testing.T) {
	got := classifyText(t, "أحمد:\nأنا جاهز الآن")
	want := []domain.FormatID{domain.FormatCharacter, domain.FormatDialogue}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTransitionThenSceneNumber(t *testing.T) {
	got := classifyText(t, "قطع إلى:\nمشهد 5")
	want := []domain.FormatID{domain.FormatTransition, domain.FormatSceneHeader1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBasmalaFirst(t *testing.T) {
	got := classifyText(t, "بسم الله الرحمن الرحيم\nمشهد 1\nداخلي - نهار")
	want := []domain.FormatID{domain.FormatBasmala, domain.FormatSceneHeader1, domain.FormatSceneHeader2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFusedTopLineExpectsPlace(t *testing.T) {
	got := classifyText(t, "مشهد 12 - داخلي - ليل\nغرفة النوم")
	want := []domain.FormatID{domain.FormatSceneHeaderTopLine, domain.FormatSceneHeader3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestHeaderExpectationClearsOnMiss(t *testing.T) {
	// the line after the scene number is prose, not a time/location header;
	// the expectation must clear and the prose must fall through to action
	got := classifyText(t, "مشهد 3\nيدخل أحمد الغرفة مسرعا وهو يحمل حقيبة كبيرة.")
	want := []domain.FormatID{domain.FormatSceneHeader1, domain.FormatAction}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParentheticalBetweenCueAndDialogue(t *testing.T) {
	got := classifyText(t, "أحمد:\n(يضحك)\nأنا جاهز الآن")
	want := []domain.FormatID{domain.FormatCharacter, domain.FormatParenthetical, domain.FormatDialogue}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParentheticalWithoutDialogueContextIsAction(t *testing.T) {
	got := classifyText(t, "يدخل أحمد الغرفة مسرعا وهو يصرخ بأعلى صوته.\n(صوت انفجار بعيد)")
	if got[1] != domain.FormatAction {
		t.Fatalf("parenthesized line outside a dialogue context = %v, want action", got[1])
	}
}

func TestInlineDialogue(t *testing.T) {
	got := classifyText(t, "أحمد: أنا جاهز الآن")
	want := []domain.FormatID{domain.FormatDialogue}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDialogueContinuation(t *testing.T) {
	got := classifyText(t, "أحمد:\nأنا جاهز الآن\nسأخرج بعد قليل")
	want := []domain.FormatID{domain.FormatCharacter, domain.FormatDialogue, domain.FormatDialogue}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestActionFallbackNeverFails(t *testing.T) {
	lines := []string{"@@##$$", strings.Repeat("س", 500), "123 456 789"}
	out := ClassifyAll(lines)
	if len(out) != len(lines) {
		t.Fatalf("every line must classify, got %d of %d", len(out), len(lines))
	}
	for _, l := range out {
		if l.AssignedType == "" {
			t.Fatalf("line %d resolved to empty format", l.LineIndex)
		}
	}
}

func TestClassificationDeterministic(t *testing.T) {
	text := "بسم الله الرحمن الرحيم\nمشهد 12\nداخلي - ليل\nغرفة الاجتماعات\nأحمد:\nأنا جاهز الآن\nقطع إلى:\nمشهد 13"
	a := classifyText(t, text)
	b := classifyText(t, text)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two passes over identical input diverged: %v vs %v", a, b)
	}
}

func TestStatePerPassIsolation(t *testing.T) {
	// a fresh fold must not inherit the previous document's pending cue
	first := classifyText(t, "أحمد:")
	if first[0] != domain.FormatCharacter {
		t.Fatalf("cue misclassified: %v", first)
	}
	second := classifyText(t, "نص عادي تماما بلا أي سياق سابق.")
	if second[0] != domain.FormatAction {
		t.Fatalf("state leaked across passes: %v", second)
	}
}

func TestRuleChainOrderIsStable(t *testing.T) {
	wantOrder := []string{
		"basmala", "expected-header", "scene-header-top-line", "scene-header-1",
		"scene-header-2", "scene-header-3", "transition", "character-cue",
		"parenthetical", "inline-dialogue", "dialogue-after-cue",
		"dialogue-continuation", "action-fallback",
	}
	if len(Rules) != len(wantOrder) {
		t.Fatalf("rule count = %d, want %d", len(Rules), len(wantOrder))
	}
	for i, r := range Rules {
		if r.name != wantOrder[i] {
			t.Fatalf("rule %d = %q, want %q", i, r.name, wantOrder[i])
		}
	}
}
